package downloader

import "time"

// Options configures the download engine.
type Options struct {
	// OutputDir is prepended to the output name when set.
	OutputDir string
	// WorkDir holds temporary artifacts. Empty means the output directory
	// of the job.
	WorkDir string
	// FFmpegPath is the transcoder binary, looked up on PATH when bare.
	FFmpegPath string
	UserAgent  string
	// SegmentTimeout bounds a whole segment transfer; zero means none.
	SegmentTimeout time.Duration
	Quiet          bool
	// TUI selects the full-screen progress renderer.
	TUI      bool
	LogLevel string
	LogJSON  bool
}

func (o Options) ffmpegPath() string {
	if o.FFmpegPath == "" {
		return "ffmpeg"
	}
	return o.FFmpegPath
}
