package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// partSuffix marks an artifact that is still being written.
const partSuffix = ".part"

// maxPrealloc caps the buffer reserved up front from Content-Length.
const maxPrealloc = 256 << 20

// ErrNoURL is returned when a stream has no URL to fetch.
var ErrNoURL = errors.New("no url provided")

// Fetcher downloads one stream to a local temporary artifact.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher using client. Segment clients should not retry.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient(0, "", false)
	}
	return &Fetcher{client: client}
}

// Fetch issues a single GET for rawURL, buffers the body in memory while
// reporting every chunk to onProgress, and writes it atomically to dest.
// No retry is attempted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest, label string, onProgress ProgressFunc) (string, error) {
	if rawURL == "" {
		return "", wrapCategory(CategoryInvalidURL, fmt.Errorf("%s: %w", label, ErrNoURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", wrapCategory(CategoryInvalidURL, fmt.Errorf("%s: invalid URL: %w", label, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", wrapCategory(CategoryNetwork, fmt.Errorf("downloading %s: %w", label, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", wrapCategory(CategoryNetwork, fmt.Errorf("downloading %s: HTTP %s", label, resp.Status))
	}

	size := resp.ContentLength
	var buf bytes.Buffer
	if size > 0 && size <= maxPrealloc {
		buf.Grow(int(size))
	}

	progress := newProgressWriter(label, size, onProgress)
	if _, err := copyWithContext(ctx, &teeWriter{buf: &buf, progress: progress}, resp.Body); err != nil {
		return "", wrapCategory(CategoryNetwork, fmt.Errorf("downloading %s: %w", label, err))
	}
	if size > 0 && progress.Loaded() != size {
		return "", wrapCategory(CategoryNetwork, fmt.Errorf("downloading %s: received %d of %d bytes", label, progress.Loaded(), size))
	}

	if err := writeFileAtomic(dest, buf.Bytes()); err != nil {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("writing %s: %w", label, err))
	}
	return dest, nil
}

// teeWriter buffers first so that progress never runs ahead of the data.
type teeWriter struct {
	buf      *bytes.Buffer
	progress *progressWriter
}

func (w *teeWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if err != nil {
		return n, err
	}
	return w.progress.Write(p[:n])
}

func writeFileAtomic(dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := dest + partSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
