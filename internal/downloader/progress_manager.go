package downloader

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressManager renders tracker snapshots with Bubble Tea. It is the
// full-screen alternative to the single status line.
type ProgressManager struct {
	mu          sync.Mutex
	out         io.Writer
	onInterrupt func()
	program     *tea.Program
	started     bool
	done        chan struct{}
}

// NewProgressManager returns a manager drawing to out. onInterrupt runs when
// the user presses ctrl+c inside the view.
func NewProgressManager(out io.Writer, onInterrupt func()) *ProgressManager {
	if out == nil {
		out = os.Stderr
	}
	return &ProgressManager{out: out, onInterrupt: onInterrupt}
}

// Start begins rendering in a separate goroutine. The program stops when
// ctx is done or Done is called.
func (pm *ProgressManager) Start(ctx context.Context) {
	if pm == nil {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.started {
		return
	}

	program := tea.NewProgram(newProgressModel(pm.onInterrupt),
		tea.WithOutput(pm.out),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	pm.program = program
	pm.started = true
	pm.done = make(chan struct{})

	go func() {
		defer close(pm.done)
		_, _ = program.Run()
	}()
}

// Render implements ProgressRenderer.
func (pm *ProgressManager) Render(states []LabelProgress) {
	pm.send(snapshotMsg{states: states, at: time.Now()})
}

// Done implements ProgressRenderer. It draws the final state and stops the
// program.
func (pm *ProgressManager) Done(states []LabelProgress) {
	pm.send(snapshotMsg{states: states, at: time.Now()})
	pm.Stop()
}

// Stop ends the program and waits briefly for it to restore the terminal.
func (pm *ProgressManager) Stop() {
	if pm == nil {
		return
	}
	pm.mu.Lock()
	program := pm.program
	done := pm.done
	pm.mu.Unlock()

	if program != nil {
		program.Send(stopMsg{})
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

func (pm *ProgressManager) send(msg tea.Msg) {
	if pm == nil {
		return
	}
	pm.mu.Lock()
	program := pm.program
	pm.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

type snapshotMsg struct {
	states []LabelProgress
	at     time.Time
}

type stopMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0B0B0B")).
			Background(lipgloss.Color("#FFE66D")).
			Bold(true).
			Padding(0, 1)

	percentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00F5D4")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Faint(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FDBFF"))
)

type progressModel struct {
	rows        map[string]*progressRow
	order       []string
	width       int
	spin        spinner.Model
	quit        bool
	interrupted bool
	onInterrupt func()
}

type progressRow struct {
	state   LabelProgress
	started time.Time
	updated time.Time
	bar     progressbar.Model
}

func newProgressModel(onInterrupt func()) *progressModel {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = spinnerStyle
	return &progressModel{
		rows:        make(map[string]*progressRow),
		width:       80,
		spin:        spin,
		onInterrupt: onInterrupt,
	}
}

func barWidth(total int) int {
	width := total - 10
	if width < 10 {
		return 10
	}
	return width
}

func (m *progressModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for _, row := range m.rows {
			row.bar.Width = barWidth(m.width)
		}
	case snapshotMsg:
		for _, state := range msg.states {
			row, ok := m.rows[state.Label]
			if !ok {
				row = &progressRow{
					started: msg.at,
					bar: progressbar.New(
						progressbar.WithGradient("#FF006E", "#00F5FF"),
						progressbar.WithWidth(barWidth(m.width)),
						progressbar.WithoutPercentage(),
					),
				}
				m.rows[state.Label] = row
				m.order = append(m.order, state.Label)
			}
			row.state = state
			row.updated = msg.at
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			m.quit = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case stopMsg:
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.order) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" Downloads"))
	b.WriteString("\n")
	for _, label := range m.order {
		row := m.rows[label]
		elapsed := row.updated.Sub(row.started)

		pct, known := row.state.Percent()
		var head, bar string
		if known {
			head = percentStyle.Render(fmt.Sprintf("%6.2f%%", pct))
			bar = row.bar.ViewAs(pct / 100)
		} else {
			// no length announced: spin instead of inventing a percentage
			head = spinnerStyle.Render(m.spin.View()) + "      "
			bar = detailStyle.Render(strings.Repeat("·", row.bar.Width))
		}
		fmt.Fprintf(&b, "%s %s\n", head, labelStyle.Render(label))
		b.WriteString(bar)
		b.WriteString("\n")

		total := "?"
		if row.state.Total > 0 {
			total = humanBytes(row.state.Total)
		}
		detail := fmt.Sprintf("%s / %s · %s · %s", humanBytes(row.state.Loaded), total,
			formatRate(row.state.Loaded, elapsed), formatDurationShort(elapsed))
		fmt.Fprintf(&b, "        %s\n", detailStyle.Render(detail))
	}
	return b.String()
}

func formatRate(current int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "--/s"
	}
	rate := int64(float64(current) / elapsed.Seconds())
	if rate <= 0 {
		return "--/s"
	}
	return humanBytes(rate) + "/s"
}

func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%.0fs", int(d.Minutes()), math.Mod(d.Seconds(), 60))
	default:
		return fmt.Sprintf("%dh%.0fm", int(d.Hours()), math.Mod(d.Minutes(), 60))
	}
}
