package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
	"github.com/lvcoi/vimeo-dl-go/internal/manifest"
	"github.com/lvcoi/vimeo-dl-go/internal/scrape"
)

const exampleManifest = `{
	"video": [{"width": 1280, "height": 720, "segments": [{"url": "a/720?range=0-100"}]}],
	"audio": [{"codecs": "mp4a.40.2", "segments": [{"url": "a/aud?range=0-50"}]}]
}`

type recordingJobs struct {
	jobs []downloader.Job
	err  error
}

func (r *recordingJobs) Run(_ context.Context, job downloader.Job) error {
	r.jobs = append(r.jobs, job)
	return r.err
}

type fakeLocator struct {
	url string
	err error
}

func (f fakeLocator) FindManifestURL(context.Context, string, string) (string, error) {
	return f.url, f.err
}

func newManifestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "manifest.json") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(jobs JobRunner) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	printer := downloader.NewPrinter(downloader.Options{LogLevel: "debug"}, &out, nil)
	return &App{
		Printer: printer,
		Client:  downloader.NewHTTPClient(0, "", false),
		Jobs:    jobs,
	}, &out
}

func TestRunCombinedExample(t *testing.T) {
	server := newManifestServer(t, exampleManifest)
	jobs := &recordingJobs{}
	a, _ := newTestApp(jobs)
	checked := ""
	a.CheckFFmpeg = func(path string) error { checked = "yes"; return nil }

	manifestURL := server.URL + "/x/y/z/w/manifest.json"
	res, code := a.Run(context.Background(), Request{
		Combined:      true,
		MaxResolution: true,
		PlaylistURL:   manifestURL,
		Output:        "myvid",
	})
	if code != 0 || res.Err != nil {
		t.Fatalf("Run failed: %d %v", code, res.Err)
	}
	if checked == "" {
		t.Fatal("expected transcoder check for combined job")
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs.jobs))
	}
	job := jobs.jobs[0]
	if job.VideoURL != server.URL+"/x/range/avf/a/720" {
		t.Fatalf("unexpected video URL %q", job.VideoURL)
	}
	if job.AudioURL != server.URL+"/x/range/avf/a/aud" {
		t.Fatalf("unexpected audio URL %q", job.AudioURL)
	}
	if job.OutputPath != "myvid.mp4" || res.Output != "myvid.mp4" {
		t.Fatalf("unexpected output %q", job.OutputPath)
	}
	if job.Source != manifestURL {
		t.Fatalf("unexpected source %q", job.Source)
	}
}

func TestRunAudioOnlySkipsVideo(t *testing.T) {
	server := newManifestServer(t, `{"video": [], "audio": [{"codecs": "mp4a.40.2", "segments": [{"url": "s/aud"}]}]}`)
	jobs := &recordingJobs{}
	a, _ := newTestApp(jobs)
	a.Options.OutputDir = "music"

	_, code := a.Run(context.Background(), Request{AudioOnly: true, PlaylistURL: server.URL + "/a/b/c/d/e/manifest.json", Output: "song"})
	if code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	job := jobs.jobs[0]
	if job.VideoURL != "" || job.AudioURL == "" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.OutputPath != "music/song.mp3" {
		t.Fatalf("unexpected output path %q", job.OutputPath)
	}
}

func TestRunVideoOnlyIgnoresMissingAudio(t *testing.T) {
	server := newManifestServer(t, `{"video": [{"width": 640, "height": 360, "segments": [{"url": "v"}]}], "audio": [{"codecs": "opus", "segments": [{"url": "a"}]}]}`)
	jobs := &recordingJobs{}
	a, out := newTestApp(jobs)
	a.CheckFFmpeg = func(string) error { return errors.New("must not be called") }

	_, code := a.Run(context.Background(), Request{VideoOnly: true, Resolution: 360, PlaylistURL: server.URL + "/manifest.json", Output: "clip"})
	if code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	if jobs.jobs[0].AudioURL != "" || jobs.jobs[0].OutputPath != "clip.mp4" {
		t.Fatalf("unexpected job %+v", jobs.jobs[0])
	}
	if !strings.Contains(out.String(), "audio stream not resolved") {
		t.Fatalf("expected debug note about audio, got %q", out.String())
	}
}

func TestRunFailures(t *testing.T) {
	good := newManifestServer(t, exampleManifest)
	bad := newManifestServer(t, `{"video": [`)

	tests := []struct {
		name    string
		req     Request
		locator ManifestLocator
		ffmpeg  error
		code    int
	}{
		{
			name: "invalid request",
			req:  Request{AudioOnly: true, Output: "x"},
			code: 2,
		},
		{
			name:   "ffmpeg missing",
			req:    Request{AudioOnly: true, PlaylistURL: good.URL + "/manifest.json", Output: "x"},
			ffmpeg: downloader.WrapCategory(downloader.CategoryUnavailable, downloader.ErrFFmpegUnavailable),
			code:   7,
		},
		{
			name: "no matching height",
			req:  Request{VideoOnly: true, Resolution: 1080, PlaylistURL: good.URL + "/manifest.json", Output: "x"},
			code: 3,
		},
		{
			name: "malformed manifest",
			req:  Request{AudioOnly: true, PlaylistURL: bad.URL + "/manifest.json", Output: "x"},
			code: 3,
		},
		{
			name: "manifest 404",
			req:  Request{AudioOnly: true, PlaylistURL: good.URL + "/missing", Output: "x"},
			code: 4,
		},
		{
			name:    "page without manifest",
			req:     Request{AudioOnly: true, WebpageURL: "https://example.com/v", Output: "x"},
			locator: fakeLocator{err: scrape.ErrManifestNotFound},
			code:    3,
		},
		{
			name:    "bad cookie file",
			req:     Request{AudioOnly: true, WebpageURL: "https://example.com/v", CookiesPath: "c.json", Output: "x"},
			locator: fakeLocator{err: &scrape.CookieFileError{Path: "c.json", Err: errors.New("bad")}},
			code:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &recordingJobs{}
			a, _ := newTestApp(jobs)
			a.Locator = tt.locator
			a.CheckFFmpeg = func(string) error { return tt.ffmpeg }

			res, code := a.Run(context.Background(), tt.req)
			if code != tt.code {
				t.Fatalf("expected exit code %d, got %d (%v)", tt.code, code, res.Err)
			}
			if len(jobs.jobs) != 0 {
				t.Fatal("no job should run")
			}
			if res.Error == "" {
				t.Fatal("expected error text")
			}
		})
	}
}

func TestRunWebpageUsesLocator(t *testing.T) {
	server := newManifestServer(t, exampleManifest)
	jobs := &recordingJobs{}
	a, _ := newTestApp(jobs)
	a.Locator = fakeLocator{url: server.URL + "/1/2/3/4/5/manifest.json"}

	res, code := a.Run(context.Background(), Request{VideoOnly: true, MaxResolution: true, WebpageURL: "https://example.com/v", Output: "clip"})
	if code != 0 {
		t.Fatalf("expected success, got %d (%v)", code, res.Err)
	}
	if res.ManifestURL != server.URL+"/1/2/3/4/5/manifest.json" {
		t.Fatalf("unexpected manifest URL %q", res.ManifestURL)
	}
	if jobs.jobs[0].VideoURL != server.URL+"/1/2/range/avf/a/720" {
		t.Fatalf("unexpected video URL %q", jobs.jobs[0].VideoURL)
	}
}

func TestRunPropagatesJobError(t *testing.T) {
	server := newManifestServer(t, exampleManifest)
	jobErr := downloader.WrapCategory(downloader.CategoryProcessing, errors.New("mux failed"))
	a, _ := newTestApp(&recordingJobs{err: jobErr})
	a.CheckFFmpeg = func(string) error { return nil }

	_, code := a.Run(context.Background(), Request{Combined: true, MaxResolution: true, PlaylistURL: server.URL + "/manifest.json", Output: "x"})
	if code != 5 {
		t.Fatalf("expected processing exit code, got %d", code)
	}
}

func TestBuildJobNeedsResolvableKinds(t *testing.T) {
	m := &manifest.Manifest{Audio: []manifest.AudioVariant{{Codecs: "mp4a.40.2", Segments: []manifest.Segment{{URL: "a"}}}}}
	_, err := BuildJob(m, "https://cdn.example.com/m.json", Request{Combined: true, MaxResolution: true, Output: "x"}, "", nil)
	if !errors.Is(err, manifest.ErrNoVideoData) || downloader.CategoryOf(err) != downloader.CategoryResolution {
		t.Fatalf("expected resolution error for missing video, got %v", err)
	}
}
