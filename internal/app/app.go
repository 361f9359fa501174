// Package app turns a validated request into a finished download.
package app

import (
	"context"
	"os"

	"github.com/lvcoi/vimeo-dl-go/internal/config"
	"github.com/lvcoi/vimeo-dl-go/internal/downloader"
	"github.com/lvcoi/vimeo-dl-go/internal/scrape"
)

// New wires the production collaborators from cfg.
func New(cfg *config.Config, printer *downloader.Printer) *App {
	opts := cfg.Options()
	return &App{
		Options:     opts,
		Printer:     printer,
		Client:      downloader.NewHTTPClient(cfg.ManifestTimeout, cfg.UserAgent, true),
		Locator:     scrape.New(cfg.ScrapeOptions(), printer.Logger()),
		Jobs:        downloader.NewOrchestrator(opts, printer),
		CheckFFmpeg: downloader.FFmpegAvailable,
	}
}

// UseTUI switches job progress to the full-screen renderer. onInterrupt
// runs when the user presses ctrl+c inside it.
func (a *App) UseTUI(ctx context.Context, onInterrupt func()) {
	orchestrator, ok := a.Jobs.(*downloader.Orchestrator)
	if !ok {
		return
	}
	orchestrator.SetRenderer(func() downloader.ProgressRenderer {
		manager := downloader.NewProgressManager(os.Stderr, onInterrupt)
		manager.Start(ctx)
		return manager
	})
}
