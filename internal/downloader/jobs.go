package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	labelVideo = "video"
	labelAudio = "audio"
)

// JobShape is the kind of output a job produces.
type JobShape int

const (
	ShapeAudioOnly JobShape = iota + 1
	ShapeVideoOnly
	ShapeCombined
)

func (s JobShape) String() string {
	switch s {
	case ShapeAudioOnly:
		return "audio-only"
	case ShapeVideoOnly:
		return "video-only"
	case ShapeCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// Extension is ".mp3" when only audio is produced and ".mp4" otherwise.
func (s JobShape) Extension() string {
	if s == ShapeAudioOnly {
		return ".mp3"
	}
	return ".mp4"
}

func (s JobShape) NeedsVideo() bool { return s == ShapeVideoOnly || s == ShapeCombined }
func (s JobShape) NeedsAudio() bool { return s == ShapeAudioOnly || s == ShapeCombined }

// ErrEmptyJob is returned for a job with neither stream set.
var ErrEmptyJob = errors.New("job has no stream to download")

// Job is one download: the resolved stream URLs and where the result goes.
type Job struct {
	VideoURL   string
	AudioURL   string
	OutputPath string

	// Title and Source are written as tags into MP3 outputs.
	Title  string
	Source string
}

// Shape derives the job shape from which stream URLs are set.
func (j Job) Shape() (JobShape, error) {
	switch {
	case j.VideoURL != "" && j.AudioURL != "":
		return ShapeCombined, nil
	case j.VideoURL != "":
		return ShapeVideoOnly, nil
	case j.AudioURL != "":
		return ShapeAudioOnly, nil
	}
	return 0, wrapCategory(CategoryInvalidArgs, ErrEmptyJob)
}

// Orchestrator runs jobs: fetch the streams, then finalize, convert or mux.
type Orchestrator struct {
	opts      Options
	printer   *Printer
	fetcher   *Fetcher
	processor *Processor

	newRenderer func() ProgressRenderer
	newJobID    func() string
}

// NewOrchestrator returns an Orchestrator using opts for paths, the
// transcoder and the segment client.
func NewOrchestrator(opts Options, printer *Printer) *Orchestrator {
	o := &Orchestrator{
		opts:      opts,
		printer:   printer,
		fetcher:   NewFetcher(NewHTTPClient(opts.SegmentTimeout, opts.UserAgent, false)),
		processor: NewProcessor(opts.ffmpegPath(), printer),
		newJobID:  uuid.NewString,
	}
	o.newRenderer = func() ProgressRenderer {
		if printer == nil {
			return nil
		}
		return printer.NewLineRenderer()
	}
	return o
}

// SetRenderer replaces the progress renderer factory.
func (o *Orchestrator) SetRenderer(factory func() ProgressRenderer) {
	if factory != nil {
		o.newRenderer = factory
	}
}

// Run executes job to a terminal state. On failure every temporary artifact
// is removed, the sanitized failure is printed and the returned error is
// marked as reported.
func (o *Orchestrator) Run(ctx context.Context, job Job) error {
	label := filepath.Base(job.OutputPath)
	outputPath, size, err := o.run(ctx, job)
	if err != nil {
		o.printer.ItemResult(label, outputPath, 0, err)
		return markReported(err)
	}
	o.printer.ItemResult(label, outputPath, size, nil)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job Job) (string, int64, error) {
	shape, err := job.Shape()
	if err != nil {
		return job.OutputPath, 0, err
	}
	if job.OutputPath == "" {
		return "", 0, errorf(CategoryInvalidArgs, "no output path given")
	}
	outputPath := job.OutputPath

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return outputPath, 0, wrapCategory(CategoryFilesystem, fmt.Errorf("creating output directory: %w", err))
		}
	}
	workDir := o.opts.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(outputPath)
	}

	jobID := o.newJobID()
	temps := make(map[string]string, 2)
	if shape.NeedsVideo() {
		temps[labelVideo] = tempArtifactPath(workDir, labelVideo, jobID)
	}
	if shape.NeedsAudio() {
		temps[labelAudio] = tempArtifactPath(workDir, labelAudio, jobID)
	}
	cleanup := func() {
		for _, path := range temps {
			removeQuietly(path)
			removeQuietly(path + partSuffix)
		}
	}

	o.printer.Log(LogDebug, "starting job", "shape", shape.String(), "job_id", jobID, "output", outputPath)

	if err := o.fetchAll(ctx, job, temps); err != nil {
		cleanup()
		return outputPath, 0, err
	}

	switch shape {
	case ShapeAudioOnly:
		err = o.processor.ConvertAudio(ctx, temps[labelAudio], outputPath)
	case ShapeVideoOnly:
		err = o.processor.FinalizeVideo(temps[labelVideo], outputPath)
	case ShapeCombined:
		err = o.processor.Mux(ctx, temps[labelVideo], temps[labelAudio], outputPath)
	}
	cleanup()
	if err != nil {
		return outputPath, 0, err
	}

	if shape == ShapeAudioOnly {
		embedAudioTags(outputPath, job.Title, sourceHost(job.Source), o.printer)
	}
	if err := checkOutputFile(outputPath); err != nil {
		o.printer.Log(LogWarn, "output validation failed", "path", outputPath, "error", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return outputPath, 0, wrapCategory(CategoryFilesystem, fmt.Errorf("stat output: %w", err))
	}
	return outputPath, info.Size(), nil
}

// fetchAll downloads every stream of the job concurrently. A failed fetch
// does not cancel its sibling; both run to completion before returning.
func (o *Orchestrator) fetchAll(ctx context.Context, job Job, temps map[string]string) error {
	urls := map[string]string{labelVideo: job.VideoURL, labelAudio: job.AudioURL}

	tracker := NewProgressTracker(o.newRenderer())
	tracker.Start()
	defer tracker.Stop()

	var g errgroup.Group
	for _, label := range []string{labelVideo, labelAudio} {
		label := label
		dest, ok := temps[label]
		if !ok {
			continue
		}
		rawURL := urls[label]
		g.Go(func() error {
			_, err := o.fetcher.Fetch(ctx, rawURL, dest, label, tracker.Report)
			return err
		})
	}
	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return wrapCategory(CategoryInterrupted, ctx.Err())
	}
	return err
}

// sourceHost keeps only the host of the manifest origin so no path or
// query ever reaches the output file.
func sourceHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
