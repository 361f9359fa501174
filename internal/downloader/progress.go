package downloader

import (
	"context"
	"io"
	"math"
	"sync/atomic"
)

// ProgressFunc receives the bytes transferred so far for one labelled stream.
// total is <= 0 when the server did not announce a length.
type ProgressFunc func(label string, loaded, total int64)

// progressWriter counts bytes written through it and reports each chunk.
type progressWriter struct {
	label    string
	size     int64
	loaded   atomic.Int64
	onUpdate ProgressFunc
}

func newProgressWriter(label string, size int64, onUpdate ProgressFunc) *progressWriter {
	return &progressWriter{
		label:    label,
		size:     size,
		onUpdate: onUpdate,
	}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n := len(b)
	loaded := p.loaded.Add(int64(n))
	if p.onUpdate != nil {
		p.onUpdate(p.label, loaded, p.size)
	}
	return n, nil
}

func (p *progressWriter) Loaded() int64 {
	return p.loaded.Load()
}

// Percentage returns loaded/total*100 rounded to two decimals. ok is false
// when total is unknown, in which case no percentage can be given.
func Percentage(loaded, total int64) (pct float64, ok bool) {
	if total <= 0 {
		return 0, false
	}
	pct = float64(loaded) / float64(total) * 100
	pct = math.Round(pct*100) / 100
	return math.Min(100, math.Max(0, pct)), true
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	reader := &contextReader{ctx: ctx, r: src}
	return io.Copy(dst, reader)
}
