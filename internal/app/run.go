package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
	"github.com/lvcoi/vimeo-dl-go/internal/manifest"
	"github.com/lvcoi/vimeo-dl-go/internal/scrape"
)

// ManifestLocator finds the manifest URL behind a web page.
type ManifestLocator interface {
	FindManifestURL(ctx context.Context, pageURL, cookiesPath string) (string, error)
}

// JobRunner executes a resolved job.
type JobRunner interface {
	Run(ctx context.Context, job downloader.Job) error
}

// App wires manifest acquisition, resolution and the download engine.
type App struct {
	Options downloader.Options
	Printer *downloader.Printer
	// Client fetches manifests; it retries transient failures.
	Client  *http.Client
	Locator ManifestLocator
	Jobs    JobRunner

	// CheckFFmpeg verifies the transcoder before any download starts.
	CheckFFmpeg func(path string) error
}

// Result is the outcome of one run.
type Result struct {
	ManifestURL string `json:"manifest_url,omitempty"`
	Output      string `json:"output,omitempty"`
	Err         error  `json:"-"`
	Error       string `json:"error,omitempty"`
}

// Run validates req, locates and resolves the manifest and runs the job.
// The exit code is derived from the error category.
func (a *App) Run(ctx context.Context, req Request) (Result, int) {
	result, err := a.run(ctx, req)
	if err != nil {
		result.Err = err
		result.Error = downloader.SanitizeError(err)
	}
	return result, downloader.ExitCode(err)
}

func (a *App) run(ctx context.Context, req Request) (Result, error) {
	var result Result
	if err := req.Validate(); err != nil {
		return result, err
	}
	shape := req.Shape()

	if shape.NeedsAudio() && a.CheckFFmpeg != nil {
		if err := a.CheckFFmpeg(a.Options.FFmpegPath); err != nil {
			return result, err
		}
	}

	manifestURL, err := a.locate(ctx, req)
	if err != nil {
		return result, err
	}
	result.ManifestURL = manifestURL
	a.Printer.Log(downloader.LogDebug, "manifest located", "url", manifestURL)

	m, err := manifest.Load(ctx, a.Client, manifestURL)
	if err != nil {
		return result, categorizeLoadError(err)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = a.Options.OutputDir
	}
	job, err := BuildJob(m, manifestURL, req, outputDir, a.Printer)
	if err != nil {
		return result, err
	}
	result.Output = job.OutputPath

	return result, a.Jobs.Run(ctx, job)
}

func (a *App) locate(ctx context.Context, req Request) (string, error) {
	if req.PlaylistURL != "" {
		return req.PlaylistURL, nil
	}
	if a.Locator == nil {
		return "", downloader.WrapCategory(downloader.CategoryUnavailable, errors.New("webpage discovery is not available"))
	}
	a.Printer.Log(downloader.LogInfo, "searching page for manifest", "page", req.WebpageURL)
	manifestURL, err := a.Locator.FindManifestURL(ctx, req.WebpageURL, req.CookiesPath)
	if err != nil {
		var cookieErr *scrape.CookieFileError
		switch {
		case errors.As(err, &cookieErr):
			return "", downloader.WrapCategory(downloader.CategoryInvalidArgs, err)
		case errors.Is(err, scrape.ErrManifestNotFound):
			return "", downloader.WrapCategory(downloader.CategoryResolution, err)
		default:
			return "", downloader.WrapCategory(downloader.CategoryNetwork, fmt.Errorf("webpage discovery: %w", err))
		}
	}
	return manifestURL, nil
}

func categorizeLoadError(err error) error {
	var parseErr *manifest.ParseError
	switch {
	case errors.As(err, &parseErr):
		return downloader.WrapCategory(downloader.CategoryResolution, err)
	case errors.Is(err, manifest.ErrMalformedURL):
		return downloader.WrapCategory(downloader.CategoryInvalidURL, err)
	default:
		return downloader.WrapCategory(downloader.CategoryNetwork, fmt.Errorf("loading manifest: %w", err))
	}
}

// BuildJob resolves both stream kinds and keeps those the request's shape
// needs. A kind that cannot be resolved is only an error when needed.
func BuildJob(m *manifest.Manifest, manifestURL string, req Request, outputDir string, printer *downloader.Printer) (downloader.Job, error) {
	shape := req.Shape()
	job := downloader.Job{
		OutputPath: downloader.OutputPath(outputDir, req.Output, shape),
		Title:      req.Output,
		Source:     manifestURL,
	}

	videoURL, videoErr := resolveVideo(m, manifestURL, req)
	audioURL, audioErr := resolveAudio(m, manifestURL)

	if shape.NeedsVideo() {
		if videoErr != nil {
			return job, videoErr
		}
		job.VideoURL = videoURL
	} else if videoErr != nil {
		printer.Log(downloader.LogDebug, "video stream not resolved", "error", videoErr)
	}

	if shape.NeedsAudio() {
		if audioErr != nil {
			return job, audioErr
		}
		job.AudioURL = audioURL
	} else if audioErr != nil {
		printer.Log(downloader.LogDebug, "audio stream not resolved", "error", audioErr)
	}
	return job, nil
}

func resolveVideo(m *manifest.Manifest, manifestURL string, req Request) (string, error) {
	policy, ok := req.VideoPolicy()
	if !ok {
		return "", downloader.WrapCategory(downloader.CategoryResolution, errors.New("no resolution policy requested"))
	}
	seg, err := manifest.SelectVideo(m, policy)
	if err != nil {
		return "", downloader.WrapCategory(downloader.CategoryResolution, fmt.Errorf("video (%s): %w", policy, err))
	}
	return transform(manifestURL, seg.URL)
}

func resolveAudio(m *manifest.Manifest, manifestURL string) (string, error) {
	seg, err := manifest.SelectAudio(m)
	if err != nil {
		return "", downloader.WrapCategory(downloader.CategoryResolution, fmt.Errorf("audio: %w", err))
	}
	return transform(manifestURL, seg.URL)
}

func transform(manifestURL, ref string) (string, error) {
	resolved, err := manifest.TransformURL(manifestURL, ref)
	if err != nil {
		return "", downloader.WrapCategory(downloader.CategoryInvalidURL, err)
	}
	return resolved, nil
}
