package downloader

import (
	"fmt"
	"strings"
	"sync"
)

// LabelProgress is the latest transfer state of one labelled stream.
type LabelProgress struct {
	Label  string
	Loaded int64
	Total  int64
}

// Percent returns the rounded completion percentage, or ok=false when the
// total length is unknown.
func (p LabelProgress) Percent() (float64, bool) {
	return Percentage(p.Loaded, p.Total)
}

func (p LabelProgress) String() string {
	if pct, ok := p.Percent(); ok {
		return fmt.Sprintf("%s: %.2f%%", p.Label, pct)
	}
	// indeterminate: show what has arrived instead of a bogus percentage
	return fmt.Sprintf("%s: %s", p.Label, humanBytes(p.Loaded))
}

// FormatStatus joins the states into the single status line.
func FormatStatus(states []LabelProgress) string {
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " | ")
}

// ProgressRenderer draws tracker snapshots. Calls come from a single goroutine.
type ProgressRenderer interface {
	Render(states []LabelProgress)
	Done(states []LabelProgress)
}

// ProgressTracker merges reports from concurrent fetches. Fetches send
// reports over a channel; one goroutine owns the table and redraws.
type ProgressTracker struct {
	renderer ProgressRenderer
	updates  chan LabelProgress
	done     chan struct{}

	mu      sync.RWMutex
	started bool
	stopped bool
	final   []LabelProgress
}

// NewProgressTracker returns a tracker drawing through renderer; a nil
// renderer discards output.
func NewProgressTracker(renderer ProgressRenderer) *ProgressTracker {
	if renderer == nil {
		renderer = discardRenderer{}
	}
	return &ProgressTracker{
		renderer: renderer,
		updates:  make(chan LabelProgress, 64),
		done:     make(chan struct{}),
	}
}

// Start launches the redraw goroutine.
func (t *ProgressTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	go t.loop()
}

// Report records the progress of label. It matches ProgressFunc and is
// safe for concurrent use. Reports after Stop are dropped.
func (t *ProgressTracker) Report(label string, loaded, total int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.started || t.stopped {
		return
	}
	t.updates <- LabelProgress{Label: label, Loaded: loaded, Total: total}
}

// Stop drains pending reports, lets the renderer finish and returns the
// final state of every label seen.
func (t *ProgressTracker) Stop() []LabelProgress {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	if t.stopped {
		t.mu.Unlock()
		<-t.done
		return t.final
	}
	t.stopped = true
	close(t.updates)
	t.mu.Unlock()

	<-t.done
	return t.final
}

func (t *ProgressTracker) loop() {
	defer close(t.done)

	table := make(map[string]LabelProgress)
	var order []string
	snapshot := func() []LabelProgress {
		states := make([]LabelProgress, 0, len(order))
		for _, label := range order {
			states = append(states, table[label])
		}
		return states
	}

	for update := range t.updates {
		if _, seen := table[update.Label]; !seen {
			order = append(order, update.Label)
		}
		table[update.Label] = update
		t.renderer.Render(snapshot())
	}

	final := snapshot()
	t.renderer.Done(final)
	t.final = final
}

type discardRenderer struct{}

func (discardRenderer) Render([]LabelProgress) {}
func (discardRenderer) Done([]LabelProgress)   {}
