package downloader

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// LogLevel is the severity of a console message.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

func (l LogLevel) hclog() hclog.Level {
	switch l {
	case LogDebug:
		return hclog.Debug
	case LogWarn:
		return hclog.Warn
	case LogError:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Printer owns the console: log lines, the in-place progress line and the
// per-job result line. All writes to out go through mu.
type Printer struct {
	mu          sync.Mutex
	out         io.Writer
	logger      hclog.Logger
	quiet       bool
	color       bool
	interactive bool
	columns     int

	// progressLine is the status line currently drawn, if any.
	progressLine string
}

// NewLogger builds the root structured logger writing to out.
func NewLogger(out io.Writer, level string, jsonFormat bool) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "vimeo-dl",
		Level:      lvl,
		Output:     out,
		JSONFormat: jsonFormat,
	})
}

// NewPrinter returns a Printer writing to out. A nil logger gets one built
// from opts.
func NewPrinter(opts Options, out io.Writer, logger hclog.Logger) *Printer {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = NewLogger(out, opts.LogLevel, opts.LogJSON)
	}
	columns := terminalColumns()
	if columns <= 0 {
		columns = 100
	}
	interactive := isTerminal(out)
	return &Printer{
		out:         out,
		logger:      logger,
		quiet:       opts.Quiet,
		color:       interactive && supportsColor(),
		interactive: interactive,
		columns:     columns,
	}
}

// Logger returns the underlying structured logger.
func (p *Printer) Logger() hclog.Logger {
	return p.logger
}

// Interactive reports whether output goes to a terminal.
func (p *Printer) Interactive() bool {
	return p != nil && p.interactive
}

// Log sanitizes msg and emits it at level, keeping any progress line intact.
func (p *Printer) Log(level LogLevel, msg string, args ...any) {
	if p == nil {
		return
	}
	if p.quiet && level < LogWarn {
		return
	}
	msg = Sanitize(msg)
	for i := 1; i < len(args); i += 2 {
		if s, ok := args[i].(string); ok {
			args[i] = Sanitize(s)
		}
		if err, ok := args[i].(error); ok {
			args[i] = SanitizeError(err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progressLine != "" {
		p.clearLineLocked()
	}
	p.logger.Log(level.hclog(), msg, args...)
	if p.progressLine != "" {
		fmt.Fprint(p.out, p.progressLine)
	}
}

// ItemResult prints the terminal line of a job.
func (p *Printer) ItemResult(label, outputPath string, size int64, err error) {
	if p == nil {
		return
	}
	if err == nil && p.quiet {
		return
	}

	statusText := "OK"
	statusColor := colorGreen
	detail := fmt.Sprintf("%s %s", padLeft(humanBytes(size), 9), outputPath)
	if err != nil {
		statusText = "FAIL"
		statusColor = colorRed
		detail = SanitizeError(err)
	}

	prefix := fmt.Sprintf("[%s]", label)
	maxDetail := p.columns - len(prefix) - len(statusText) - 3
	if maxDetail < 0 {
		maxDetail = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progressLine != "" {
		p.clearLineLocked()
		p.progressLine = ""
	}
	fmt.Fprintf(p.out, "%s %s %s\n", prefix, p.colorize(statusText, statusColor), truncateText(detail, maxDetail))
}

// NewLineRenderer returns the single-line progress renderer bound to p.
func (p *Printer) NewLineRenderer() ProgressRenderer {
	return &lineRenderer{printer: p}
}

// lineRenderer redraws one status line in place on a terminal. Off a
// terminal it prints only the final line.
type lineRenderer struct {
	printer *Printer
}

func (r *lineRenderer) Render(states []LabelProgress) {
	p := r.printer
	if p.quiet || !p.interactive {
		return
	}
	line := truncateText(FormatStatus(states), p.columns-1)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLineLocked()
	fmt.Fprint(p.out, line)
	p.progressLine = line
}

func (r *lineRenderer) Done(states []LabelProgress) {
	p := r.printer
	if p.quiet || len(states) == 0 {
		return
	}
	line := FormatStatus(states)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.interactive {
		p.clearLineLocked()
	}
	fmt.Fprintln(p.out, line)
	p.progressLine = ""
}

func (p *Printer) clearLineLocked() {
	if !p.interactive {
		return
	}
	fmt.Fprint(p.out, "\r\x1b[2K")
}

func (p *Printer) colorize(text, color string) string {
	if !p.color || color == "" {
		return text
	}
	return color + text + colorReset
}

func padLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat(" ", width-len(value)) + value
}

func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

func terminalColumns() int {
	if columns := os.Getenv("COLUMNS"); columns != "" {
		if val, err := strconv.Atoi(columns); err == nil && val > 0 {
			return val
		}
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func supportsColor() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" || os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return os.Getenv("CLICOLOR") != "0"
}

const (
	colorReset = "\x1b[0m"
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
)
