package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
	"github.com/lvcoi/vimeo-dl-go/internal/manifest"
)

// Request is one invocation: what to download, from where, and to which name.
type Request struct {
	AudioOnly bool
	VideoOnly bool
	Combined  bool

	MaxResolution bool
	Resolution    int

	PlaylistURL string
	WebpageURL  string
	CookiesPath string

	Output    string
	OutputDir string
}

// Validate checks the mode, resolution and source rules and normalizes the
// output name and paths in place.
func (r *Request) Validate() error {
	if err := r.validate(); err != nil {
		return downloader.WrapCategory(downloader.CategoryInvalidArgs, err)
	}
	return nil
}

func (r *Request) validate() error {
	if r.Resolution != 0 && !manifest.IsValidHeight(r.Resolution) {
		return fmt.Errorf("invalid resolution %d (valid: %s)", r.Resolution, heightList())
	}
	hasResolution := r.Resolution != 0
	switch {
	case r.AudioOnly && (r.MaxResolution || hasResolution):
		return errors.New("cannot use resolution flags with audio-only mode")
	case r.AudioOnly && r.VideoOnly:
		return errors.New("cannot use audio and video-only modes together")
	case r.PlaylistURL != "" && r.WebpageURL != "":
		return errors.New("cannot use both playlist and webpage links")
	case r.PlaylistURL == "" && r.WebpageURL == "":
		return errors.New("provide either a playlist or webpage link")
	case strings.TrimSpace(r.Output) == "":
		return errors.New("output file name is required")
	case !r.AudioOnly && !r.VideoOnly && !r.Combined:
		return errors.New("specify a mode (audio-only, video-only, combined)")
	case r.Combined && (r.AudioOnly || r.VideoOnly):
		return errors.New("combined mode cannot contain audio or video flags")
	case r.MaxResolution && hasResolution:
		return errors.New("cannot use max resolution and custom resolution together")
	case (r.VideoOnly || r.Combined) && !(r.MaxResolution || hasResolution):
		return errors.New("resolution flag is missing in video mode")
	}

	r.Output = downloader.SanitizeName(strings.TrimSpace(r.Output))
	if r.OutputDir != "" {
		dir, err := absClean(r.OutputDir)
		if err != nil {
			return fmt.Errorf("output directory: %w", err)
		}
		r.OutputDir = dir
	}
	if r.CookiesPath != "" {
		path, err := absClean(r.CookiesPath)
		if err != nil {
			return fmt.Errorf("cookie path: %w", err)
		}
		r.CookiesPath = path
	}
	return nil
}

// Shape is the job shape selected by the mode flags.
func (r Request) Shape() downloader.JobShape {
	switch {
	case r.AudioOnly:
		return downloader.ShapeAudioOnly
	case r.VideoOnly:
		return downloader.ShapeVideoOnly
	default:
		return downloader.ShapeCombined
	}
}

// VideoPolicy returns the resolution policy, and false when none was asked for.
func (r Request) VideoPolicy() (manifest.VideoPolicy, bool) {
	if !r.MaxResolution && r.Resolution == 0 {
		return manifest.VideoPolicy{}, false
	}
	return manifest.VideoPolicy{Max: r.MaxResolution, Height: r.Resolution}, true
}

func absClean(path string) (string, error) {
	return filepath.Abs(filepath.Clean(strings.TrimSpace(path)))
}

func heightList() string {
	parts := make([]string, 0, len(manifest.ValidHeights))
	for _, h := range manifest.ValidHeights {
		parts = append(parts, fmt.Sprint(h))
	}
	return strings.Join(parts, ", ")
}
