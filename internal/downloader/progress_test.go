package downloader

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name   string
		loaded int64
		total  int64
		want   float64
		ok     bool
	}{
		{"half", 50, 100, 50, true},
		{"rounds to two decimals", 1, 3, 33.33, true},
		{"complete", 10, 10, 100, true},
		{"overshoot clamps", 12, 10, 100, true},
		{"unknown total", 500, 0, 0, false},
		{"negative total", 500, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Percentage(tt.loaded, tt.total)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if math.IsNaN(got) || got != tt.want {
				t.Fatalf("Percentage(%d, %d) = %v, want %v", tt.loaded, tt.total, got, tt.want)
			}
		})
	}
}

func TestProgressWriterReportsEveryChunk(t *testing.T) {
	var reports []int64
	pw := newProgressWriter("audio", 10, func(label string, loaded, total int64) {
		if label != "audio" || total != 10 {
			t.Fatalf("unexpected report %s %d/%d", label, loaded, total)
		}
		reports = append(reports, loaded)
	})
	for _, chunk := range []string{"123", "4567", "890"} {
		if _, err := pw.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	want := []int64{3, 7, 10}
	if len(reports) != len(want) {
		t.Fatalf("expected %d reports, got %v", len(want), reports)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("report %d = %d, want %d", i, reports[i], want[i])
		}
	}
	if pw.Loaded() != 10 {
		t.Fatalf("Loaded() = %d", pw.Loaded())
	}
}

func TestCopyWithContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := copyWithContext(ctx, &bytes.Buffer{}, strings.NewReader("data"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLabelProgressString(t *testing.T) {
	tests := []struct {
		state LabelProgress
		want  string
	}{
		{LabelProgress{Label: "video", Loaded: 4523, Total: 10000}, "video: 45.23%"},
		{LabelProgress{Label: "audio", Loaded: 0, Total: 100}, "audio: 0.00%"},
		{LabelProgress{Label: "video", Loaded: 1536, Total: 0}, "video: 1.5KB"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if strings.Contains(tt.state.String(), "NaN") {
			t.Errorf("unexpected NaN in %q", tt.state.String())
		}
	}
}

func TestFormatStatusJoinsLabels(t *testing.T) {
	got := FormatStatus([]LabelProgress{
		{Label: "video", Loaded: 1, Total: 2},
		{Label: "audio", Loaded: 1, Total: 4},
	})
	if got != "video: 50.00% | audio: 25.00%" {
		t.Fatalf("unexpected status line %q", got)
	}
}

type recordingRenderer struct {
	mu      sync.Mutex
	renders [][]LabelProgress
	done    []LabelProgress
	doneN   int
}

func (r *recordingRenderer) Render(states []LabelProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, states)
}

func (r *recordingRenderer) Done(states []LabelProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = states
	r.doneN++
}

func TestProgressTrackerMergesConcurrentReports(t *testing.T) {
	renderer := &recordingRenderer{}
	tracker := NewProgressTracker(renderer)
	tracker.Start()

	var wg sync.WaitGroup
	for _, label := range []string{"video", "audio"} {
		label := label
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(1); i <= 100; i++ {
				tracker.Report(label, i, 100)
			}
		}()
	}
	wg.Wait()
	final := tracker.Stop()

	if len(final) != 2 {
		t.Fatalf("expected 2 labels, got %v", final)
	}
	for _, state := range final {
		if state.Loaded != 100 || state.Total != 100 {
			t.Fatalf("expected final state 100/100, got %+v", state)
		}
	}
	if renderer.doneN != 1 {
		t.Fatalf("expected Done once, got %d", renderer.doneN)
	}
	if len(renderer.renders) != 200 {
		t.Fatalf("expected one redraw per report, got %d", len(renderer.renders))
	}
}

func TestProgressTrackerKeepsFirstSeenOrder(t *testing.T) {
	tracker := NewProgressTracker(nil)
	tracker.Start()
	tracker.Report("video", 1, 10)
	tracker.Report("audio", 1, 10)
	tracker.Report("video", 5, 10)
	final := tracker.Stop()

	if len(final) != 2 || final[0].Label != "video" || final[1].Label != "audio" {
		t.Fatalf("unexpected order %v", final)
	}
	if final[0].Loaded != 5 {
		t.Fatalf("expected last write to win, got %+v", final[0])
	}
}

func TestProgressTrackerStopIsIdempotent(t *testing.T) {
	tracker := NewProgressTracker(nil)
	if got := tracker.Stop(); got != nil {
		t.Fatalf("expected nil from unstarted tracker, got %v", got)
	}

	tracker.Start()
	tracker.Report("audio", 3, 0)
	first := tracker.Stop()
	tracker.Report("audio", 9, 0)

	done := make(chan []LabelProgress)
	go func() { done <- tracker.Stop() }()
	select {
	case second := <-done:
		if len(second) != 1 || second[0].Loaded != first[0].Loaded {
			t.Fatalf("second Stop returned %v, first %v", second, first)
		}
	case <-time.After(time.Second):
		t.Fatal("second Stop blocked")
	}
}

func TestLineRendererNonTTYPrintsOnlyFinalLine(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(Options{}, &buf, nil)
	renderer := printer.NewLineRenderer()

	renderer.Render([]LabelProgress{{Label: "video", Loaded: 1, Total: 4}})
	renderer.Render([]LabelProgress{{Label: "video", Loaded: 2, Total: 4}})
	renderer.Done([]LabelProgress{{Label: "video", Loaded: 4, Total: 4}})

	output := buf.String()
	if strings.Contains(output, "\r") {
		t.Fatalf("expected no carriage returns in non-TTY output, got %q", output)
	}
	if output != "video: 100.00%\n" {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestLineRendererQuiet(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(Options{Quiet: true}, &buf, nil)
	printer.NewLineRenderer().Done([]LabelProgress{{Label: "audio", Loaded: 1, Total: 1}})
	if buf.Len() != 0 {
		t.Fatalf("expected no output in quiet mode, got %q", buf.String())
	}
}
