package app

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
)

func TestRequestValidate(t *testing.T) {
	const playlist = "https://cdn.example.com/a/b/c/d/playlist.json"
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"audio only", Request{AudioOnly: true, PlaylistURL: playlist, Output: "song"}, ""},
		{"video max", Request{VideoOnly: true, MaxResolution: true, PlaylistURL: playlist, Output: "clip"}, ""},
		{"combined height", Request{Combined: true, Resolution: 720, WebpageURL: "https://example.com/v", Output: "both"}, ""},
		{"invalid height", Request{VideoOnly: true, Resolution: 480, PlaylistURL: playlist, Output: "x"}, "invalid resolution"},
		{"audio with resolution", Request{AudioOnly: true, Resolution: 720, PlaylistURL: playlist, Output: "x"}, "audio-only"},
		{"audio with max", Request{AudioOnly: true, MaxResolution: true, PlaylistURL: playlist, Output: "x"}, "audio-only"},
		{"audio and video", Request{AudioOnly: true, VideoOnly: true, PlaylistURL: playlist, Output: "x"}, "together"},
		{"both sources", Request{AudioOnly: true, PlaylistURL: playlist, WebpageURL: "https://example.com", Output: "x"}, "both playlist and webpage"},
		{"no source", Request{AudioOnly: true, Output: "x"}, "either a playlist or webpage"},
		{"no output", Request{AudioOnly: true, PlaylistURL: playlist, Output: "  "}, "output file name"},
		{"no mode", Request{PlaylistURL: playlist, Output: "x"}, "specify a mode"},
		{"combined with video flag", Request{Combined: true, VideoOnly: true, MaxResolution: true, PlaylistURL: playlist, Output: "x"}, "combined mode"},
		{"max and height", Request{VideoOnly: true, MaxResolution: true, Resolution: 720, PlaylistURL: playlist, Output: "x"}, "max resolution and custom"},
		{"video without policy", Request{VideoOnly: true, PlaylistURL: playlist, Output: "x"}, "resolution flag is missing"},
		{"combined without policy", Request{Combined: true, PlaylistURL: playlist, Output: "x"}, "resolution flag is missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if downloader.CategoryOf(err) != downloader.CategoryInvalidArgs {
				t.Fatalf("expected invalid_args category, got %q", downloader.CategoryOf(err))
			}
		})
	}
}

func TestRequestValidateNormalizes(t *testing.T) {
	req := Request{
		AudioOnly:   true,
		PlaylistURL: "https://cdn.example.com/p.json",
		Output:      " my song (live).v2 ",
		OutputDir:   "out/../music",
		CookiesPath: "cookies.json",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Output != "my_song__live__v2" {
		t.Fatalf("unexpected sanitized output %q", req.Output)
	}
	if !filepath.IsAbs(req.OutputDir) || filepath.Base(req.OutputDir) != "music" {
		t.Fatalf("expected absolute music dir, got %q", req.OutputDir)
	}
	if !filepath.IsAbs(req.CookiesPath) {
		t.Fatalf("expected absolute cookie path, got %q", req.CookiesPath)
	}
}

func TestRequestShapeAndPolicy(t *testing.T) {
	if s := (Request{AudioOnly: true}).Shape(); s != downloader.ShapeAudioOnly {
		t.Fatalf("got %v", s)
	}
	if s := (Request{VideoOnly: true}).Shape(); s != downloader.ShapeVideoOnly {
		t.Fatalf("got %v", s)
	}
	if s := (Request{Combined: true}).Shape(); s != downloader.ShapeCombined {
		t.Fatalf("got %v", s)
	}
	if _, ok := (Request{AudioOnly: true}).VideoPolicy(); ok {
		t.Fatal("audio-only request has no video policy")
	}
	if p, ok := (Request{Resolution: 540}).VideoPolicy(); !ok || p.Height != 540 || p.Max {
		t.Fatalf("unexpected policy %+v", p)
	}
}
