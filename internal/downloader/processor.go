package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// stderrTailLimit bounds how much transcoder output is kept for error messages.
const stderrTailLimit = 2048

// ErrFFmpegUnavailable is returned when the transcoder binary cannot be found.
var ErrFFmpegUnavailable = errors.New("ffmpeg not found")

// Runner executes one compiled transcoder graph. The graph carries the
// job context.
type Runner interface {
	Run(stream *ffmpeg.Stream) error
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(stream *ffmpeg.Stream) error {
	var stderr bytes.Buffer
	err := stream.SetFfmpegPath(r.binary).
		WithErrorOutput(&stderr).
		Silent(true).
		Run()
	if err == nil {
		return nil
	}
	if ctxErr := stream.Context.Err(); ctxErr != nil {
		return ctxErr
	}
	if tail := tailString(stderr.String(), stderrTailLimit); tail != "" {
		return fmt.Errorf("%s exited with error: %w: %s", r.binary, err, tail)
	}
	return fmt.Errorf("%s exited with error: %w", r.binary, err)
}

// FFmpegAvailable reports whether the transcoder binary can be resolved.
func FFmpegAvailable(path string) error {
	if path == "" {
		path = "ffmpeg"
	}
	if _, err := exec.LookPath(path); err != nil {
		return wrapCategory(CategoryUnavailable, fmt.Errorf("%w (%s): %v", ErrFFmpegUnavailable, path, err))
	}
	return nil
}

// Processor turns fetched artifacts into the final output. Temporary
// artifacts are removed whatever the outcome.
type Processor struct {
	runner Runner
	logger Logger
}

// Logger is the subset of Printer the processor needs.
type Logger interface {
	Log(level LogLevel, msg string, args ...any)
}

// NewProcessor returns a Processor invoking the binary at ffmpegPath.
func NewProcessor(ffmpegPath string, logger Logger) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Processor{runner: execRunner{binary: ffmpegPath}, logger: logger}
}

// renameFile is swapped out in tests.
var renameFile = os.Rename

// FinalizeVideo moves a fetched video artifact to the output path. When the
// work directory sits on another filesystem the artifact is copied instead.
func (p *Processor) FinalizeVideo(videoTemp, outputPath string) error {
	err := renameFile(videoTemp, outputPath)
	if errors.Is(err, syscall.EXDEV) {
		err = moveAcrossDevices(videoTemp, outputPath)
	}
	if err != nil {
		removeQuietly(videoTemp)
		return wrapCategory(CategoryFilesystem, fmt.Errorf("moving video to %s: %w", outputPath, err))
	}
	return nil
}

func moveAcrossDevices(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + partSuffix
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		removeQuietly(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		removeQuietly(tmp)
		return err
	}
	// tmp and dest share a directory
	if err := os.Rename(tmp, dest); err != nil {
		removeQuietly(tmp)
		return err
	}
	removeQuietly(src)
	return nil
}

// ConvertAudio transcodes an audio artifact to MP3 and deletes the artifact.
func (p *Processor) ConvertAudio(ctx context.Context, audioTemp, outputPath string) error {
	defer removeQuietly(audioTemp)
	return p.run(ctx, "converting audio", mp3Stream(ctx, audioTemp, outputPath), outputPath)
}

// Mux combines a video and an audio artifact without re-encoding the video
// and deletes both artifacts.
func (p *Processor) Mux(ctx context.Context, videoTemp, audioTemp, outputPath string) error {
	defer removeQuietly(videoTemp)
	defer removeQuietly(audioTemp)
	return p.run(ctx, "muxing", muxStream(ctx, videoTemp, audioTemp, outputPath), outputPath)
}

func (p *Processor) run(ctx context.Context, step string, stream *ffmpeg.Stream, outputPath string) error {
	if p.logger != nil {
		p.logger.Log(LogDebug, "invoking transcoder", "step", step, "args", strings.Join(stream.GetArgs(), " "))
	}
	if err := p.runner.Run(stream); err != nil {
		removeQuietly(outputPath)
		if ctx.Err() != nil {
			return wrapCategory(CategoryInterrupted, fmt.Errorf("%s: %w", step, ctx.Err()))
		}
		return wrapCategory(CategoryProcessing, fmt.Errorf("%s: %w", step, err))
	}
	return nil
}

func mp3Stream(ctx context.Context, input, output string) *ffmpeg.Stream {
	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{ffmpeg.Input(input)}, output,
		ffmpeg.KwArgs{"vn": "", "c:a": "libmp3lame", "q:a": "2"}).
		OverWriteOutput()
}

func muxStream(ctx context.Context, video, audio, output string) *ffmpeg.Stream {
	streams := []*ffmpeg.Stream{ffmpeg.Input(video), ffmpeg.Input(audio)}
	return ffmpeg.OutputContext(ctx, streams, output, ffmpeg.KwArgs{"c:v": "copy", "c:a": "aac"}).
		OverWriteOutput()
}

func removeQuietly(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

func tailString(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
