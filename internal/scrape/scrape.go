// Package scrape finds the manifest URL a web page player requests, using a
// headless browser.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/hashicorp/go-hclog"
)

// ManifestMarker identifies the player's manifest request.
const ManifestMarker = "/playlist/av/primary/playlist.json"

// ErrManifestNotFound is returned when the page never requested a manifest.
var ErrManifestNotFound = errors.New("no manifest request observed")

// Options configures the browser.
type Options struct {
	// Timeout bounds the whole page visit.
	Timeout   time.Duration
	UserAgent string
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

// Scraper loads pages in headless Chrome and watches their network traffic.
type Scraper struct {
	opts   Options
	logger hclog.Logger
}

func New(opts Options, logger hclog.Logger) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scraper{opts: opts, logger: logger.Named("scrape")}
}

// FindManifestURL loads pageURL, optionally with the cookies in cookiesPath,
// and returns the URL of the first request carrying ManifestMarker.
func (s *Scraper) FindManifestURL(ctx context.Context, pageURL, cookiesPath string) (string, error) {
	var cookies []*network.CookieParam
	if cookiesPath != "" {
		loaded, err := LoadCookies(cookiesPath)
		if err != nil {
			return "", err
		}
		cookies = loaded
		s.logger.Debug("loaded cookies", "count", len(cookies))
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if s.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(s.opts.UserAgent))
	}
	if s.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(s.opts.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.opts.Timeout)
	defer cancelTimeout()

	found := make(chan string, 1)
	chromedp.ListenTarget(browserCtx, requestWatcher(found))

	actions := []chromedp.Action{network.Enable()}
	if len(cookies) > 0 {
		actions = append(actions, network.SetCookies(cookies))
	}
	actions = append(actions, chromedp.Navigate(pageURL))

	s.logger.Debug("loading page", "timeout", s.opts.Timeout)
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		select {
		case manifestURL := <-found:
			return manifestURL, nil
		default:
		}
		return "", fmt.Errorf("loading page: %w", err)
	}

	select {
	case manifestURL := <-found:
		return manifestURL, nil
	case <-browserCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w within %s", ErrManifestNotFound, s.opts.Timeout)
	}
}

// requestWatcher returns a target listener that sends the first manifest
// request URL to found. Later matches are dropped.
func requestWatcher(found chan<- string) func(ev any) {
	return func(ev any) {
		req, ok := ev.(*network.EventRequestWillBeSent)
		if !ok || req.Request == nil || !isManifestRequest(req.Request.URL) {
			return
		}
		select {
		case found <- req.Request.URL:
		default:
		}
	}
}

func isManifestRequest(rawURL string) bool {
	return strings.Contains(rawURL, ManifestMarker)
}
