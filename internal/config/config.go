// Package config loads settings from code defaults, an optional YAML file and
// VIMEO_DL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
	"github.com/lvcoi/vimeo-dl-go/internal/scrape"
)

const (
	envVarPrefix = "VIMEO_DL"
	appName      = "vimeo-dl"
)

// Config holds the settings shared by every run. Command-line flags are
// applied on top by the caller.
type Config struct {
	OutputDir       string        `envconfig:"VIMEO_DL_OUTPUT_DIR"       yaml:"outputDir"`
	WorkDir         string        `envconfig:"VIMEO_DL_WORK_DIR"         yaml:"workDir"`
	FFmpegPath      string        `envconfig:"VIMEO_DL_FFMPEG_PATH"      yaml:"ffmpegPath"`
	BrowserPath     string        `envconfig:"VIMEO_DL_BROWSER_PATH"     yaml:"browserPath"`
	UserAgent       string        `envconfig:"VIMEO_DL_USER_AGENT"       yaml:"userAgent"`
	ManifestTimeout time.Duration `envconfig:"VIMEO_DL_MANIFEST_TIMEOUT" yaml:"manifestTimeout"`
	SegmentTimeout  time.Duration `envconfig:"VIMEO_DL_SEGMENT_TIMEOUT"  yaml:"segmentTimeout"`
	BrowserTimeout  time.Duration `envconfig:"VIMEO_DL_BROWSER_TIMEOUT"  yaml:"browserTimeout"`
	LogLevel        string        `envconfig:"VIMEO_DL_LOG_LEVEL"        yaml:"logLevel"`
	LogJSON         bool          `envconfig:"VIMEO_DL_LOG_JSON"         yaml:"logJSON"`
	TUI             bool          `envconfig:"VIMEO_DL_TUI"              yaml:"tui"`
	Quiet           bool          `envconfig:"VIMEO_DL_QUIET"            yaml:"quiet"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		FFmpegPath:      "ffmpeg",
		UserAgent:       downloader.DefaultUserAgent,
		ManifestTimeout: 30 * time.Second,
		BrowserTimeout:  60 * time.Second,
		LogLevel:        "info",
	}
}

// FilePath returns the config file location: $VIMEO_DL_CONFIG_FILE, or
// vimeo-dl.yaml under the user config directory.
func FilePath() string {
	if path := os.Getenv(envVarPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName+".yaml")
}

// Load layers the config file and the environment over Default. A missing
// file is not an error.
func Load() (*Config, error) {
	return LoadFile(FilePath())
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if c.ManifestTimeout < 0 || c.SegmentTimeout < 0 || c.BrowserTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q / %s_LOG_LEVEL", c.LogLevel, envVarPrefix)
	}
	return nil
}

// Options converts the config to download engine options.
func (c *Config) Options() downloader.Options {
	return downloader.Options{
		OutputDir:      c.OutputDir,
		WorkDir:        c.WorkDir,
		FFmpegPath:     c.FFmpegPath,
		UserAgent:      c.UserAgent,
		SegmentTimeout: c.SegmentTimeout,
		Quiet:          c.Quiet,
		TUI:            c.TUI,
		LogLevel:       c.LogLevel,
		LogJSON:        c.LogJSON,
	}
}

// ScrapeOptions converts the config to browser options.
func (c *Config) ScrapeOptions() scrape.Options {
	return scrape.Options{
		Timeout:   c.BrowserTimeout,
		UserAgent: c.UserAgent,
		ExecPath:  c.BrowserPath,
	}
}
