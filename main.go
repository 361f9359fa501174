package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/lvcoi/vimeo-dl-go/internal/app"
	"github.com/lvcoi/vimeo-dl-go/internal/config"
	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	cmd := newCommand(stdout, stderr, stop, &exitCode)
	if err := cmd.RunContext(ctx, args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	return exitCode
}

func newCommand(stdout, stderr io.Writer, interrupt func(), exitCode *int) *cli.App {
	return &cli.App{
		Name:      "vimeo-dl",
		Usage:     "download the audio and video streams behind a player manifest",
		UsageText: "vimeo-dl (-a | -v | -c) [-m | -r HEIGHT] (-p MANIFEST_URL | -w PAGE_URL) -o NAME [options]",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "audioOnly", Aliases: []string{"a"}, Usage: "download audio only (mp3)"},
			&cli.BoolFlag{Name: "videoOnly", Aliases: []string{"v"}, Usage: "download video only"},
			&cli.BoolFlag{Name: "combine", Aliases: []string{"c"}, Usage: "download audio and video and mux them"},
			&cli.BoolFlag{Name: "maxResolution", Aliases: []string{"m"}, Usage: "pick the largest video variant"},
			&cli.IntFlag{Name: "resolution", Aliases: []string{"r"}, Usage: "pick the video variant of this height (240, 360, 540, 720, 1080)"},
			&cli.StringFlag{Name: "jsonPlaylist", Aliases: []string{"p"}, Usage: "manifest (playlist.json) URL"},
			&cli.StringFlag{Name: "webPage", Aliases: []string{"w"}, Usage: "page embedding the player; the manifest is discovered with headless Chrome"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file name without extension"},
			&cli.StringFlag{Name: "path", Usage: "output directory"},
			&cli.StringFlag{Name: "cookiePath", Aliases: []string{"cp"}, Usage: "cookie-export JSON file used when loading the page"},
			&cli.StringFlag{Name: "ffmpeg", Usage: "ffmpeg binary"},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error"},
			&cli.BoolFlag{Name: "log-json", Usage: "emit logs as JSON"},
			&cli.BoolFlag{Name: "tui", Usage: "full-screen progress view"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress progress output (errors still shown)"},
			&cli.BoolFlag{Name: "json", Usage: "print the run result as JSON on stdout"},
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			*exitCode = download(c, stdout, stderr, interrupt)
			return nil
		},
	}
}

func download(c *cli.Context, stdout, stderr io.Writer, interrupt func()) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return downloader.ExitCode(downloader.WrapCategory(downloader.CategoryInvalidArgs, err))
	}
	applyFlags(c, cfg)

	printer := downloader.NewPrinter(cfg.Options(), stderr, nil)
	application := app.New(cfg, printer)
	if cfg.TUI && !cfg.Quiet && printer.Interactive() {
		application.UseTUI(c.Context, interrupt)
	}

	req := app.Request{
		AudioOnly:     c.Bool("audioOnly"),
		VideoOnly:     c.Bool("videoOnly"),
		Combined:      c.Bool("combine"),
		MaxResolution: c.Bool("maxResolution"),
		Resolution:    c.Int("resolution"),
		PlaylistURL:   c.String("jsonPlaylist"),
		WebpageURL:    c.String("webPage"),
		CookiesPath:   c.String("cookiePath"),
		Output:        c.String("output"),
		OutputDir:     c.String("path"),
	}

	result, code := application.Run(c.Context, req)
	downloader.CloseIdleConnections()

	if c.Bool("json") {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(struct {
			app.Result
			Category string `json:"category,omitempty"`
		}{result, string(downloader.CategoryOf(result.Err))})
	}
	if result.Err != nil && !downloader.IsReported(result.Err) {
		printer.Log(downloader.LogError, result.Error, "category", string(downloader.CategoryOf(result.Err)))
	}
	return code
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-json") {
		cfg.LogJSON = c.Bool("log-json")
	}
	if c.IsSet("tui") {
		cfg.TUI = c.Bool("tui")
	}
	if c.IsSet("quiet") {
		cfg.Quiet = c.Bool("quiet")
	}
	if c.Bool("json") {
		cfg.Quiet = true
	}
}
