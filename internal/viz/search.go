package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/search"
)

const (
	previewWidth  = 36
	previewHeight = 14
	tableRows     = 5
)

// LiveConfig describes the batches a LiveSearch runs.
type LiveConfig struct {
	Batches  int
	PerBatch int
	Workers  int
	// Attempts is incremented by the selector's OnAttempt hook and polled
	// for the progress bar.
	Attempts *atomic.Int64
}

type TickMsg time.Time

type batchDoneMsg struct {
	report search.Report
	err    error
}

// LiveSearch runs the search one batch per tea.Cmd and redraws between them.
type LiveSearch struct {
	sel    *search.Selector
	cfg    LiveConfig
	ctx    context.Context
	cancel context.CancelFunc

	batch       int
	running     bool
	stopping    bool
	done        bool
	frame       int
	totals      search.Report
	bestHistory []float64
	admitted    []float64
	preview     string
	previewID   string
	err         error
}

func NewLiveSearch(ctx context.Context, sel *search.Selector, cfg LiveConfig) *LiveSearch {
	if cfg.Attempts == nil {
		cfg.Attempts = new(atomic.Int64)
	}
	cfg.Batches = max(cfg.Batches, 1)
	cfg.Workers = max(cfg.Workers, 1)

	ctx, cancel := context.WithCancel(ctx)
	m := &LiveSearch{sel: sel, cfg: cfg, ctx: ctx, cancel: cancel}
	m.totals.Best = dynamo.NonChaotic
	m.refreshPreview()
	return m
}

func (m *LiveSearch) Init() tea.Cmd {
	return tea.Batch(m.nextBatch(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *LiveSearch) nextBatch() tea.Cmd {
	if m.batch >= m.cfg.Batches || m.stopping || m.ctx.Err() != nil {
		m.finish()
		return tea.Quit
	}
	m.running = true
	sel, ctx, n, workers := m.sel, m.ctx, m.cfg.PerBatch, m.cfg.Workers
	return func() tea.Msg {
		rep, err := sel.Search(ctx, n, workers)
		return batchDoneMsg{report: rep, err: err}
	}
}

func (m *LiveSearch) finish() {
	m.running = false
	m.done = true
	m.cancel()
}

func (m *LiveSearch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stopping = true
			m.cancel()
		case "q":
			m.stopping = true
		case "t":
			ApplyTheme(NextTheme())
		}
		return m, nil

	case TickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()

	case batchDoneMsg:
		m.running = false
		m.batch++
		m.totals.Attempts += msg.report.Attempts
		m.totals.Completed += msg.report.Completed
		m.totals.Diverged += msg.report.Diverged
		m.totals.Collapsed += msg.report.Collapsed
		m.totals.Chaotic += msg.report.Chaotic
		m.totals.Admitted += msg.report.Admitted
		m.totals.HookErrors += msg.report.HookErrors
		m.totals.Best = msg.report.Best
		m.admitted = append(m.admitted, float64(msg.report.Admitted))
		if !dynamo.IsNonChaotic(msg.report.Best) {
			m.bestHistory = append(m.bestHistory, msg.report.Best)
		}
		m.refreshPreview()

		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.err = msg.err
			}
			m.finish()
			return m, tea.Quit
		}
		return m, m.nextBatch()
	}
	return m, nil
}

func (m *LiveSearch) refreshPreview() {
	best := m.sel.Best()
	if len(best) == 0 || best[0].ID == m.previewID {
		return
	}
	m.previewID = best[0].ID
	m.preview = RenderCandidate(best[0], previewWidth, previewHeight)
}

// Totals is the sum of every finished batch.
func (m *LiveSearch) Totals() search.Report { return m.totals }

// Err is the first non-cancellation error a batch returned.
func (m *LiveSearch) Err() error { return m.err }

// Interrupted reports whether the user stopped the run early.
func (m *LiveSearch) Interrupted() bool { return m.stopping }

func (m *LiveSearch) View() string {
	var s strings.Builder
	s.WriteString(Banner("CHAOSFIND") + "  " + Subtle.Render("live search") + "\n\n")

	total := m.cfg.Batches * m.cfg.PerBatch
	done := int(m.cfg.Attempts.Load())
	fraction := 0.0
	if total > 0 {
		fraction = float64(done) / float64(total)
	}

	status := StatusRunning.Render(AnimatedSpinner(m.frame) + " searching")
	switch {
	case m.done:
		status = Subtle.Render("finished")
	case m.stopping:
		status = StatusStopping.Render("stopping after this batch")
	}
	s.WriteString(status + "\n")
	s.WriteString(ProgressBar(fraction, 40) + fmt.Sprintf(" %d/%d\n\n", done, total))

	stat := func(label string, v any) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(fmt.Sprint(v)) + "\n")
	}
	stat("Batch", fmt.Sprintf("%d/%d", m.batch, m.cfg.Batches))
	stat("Completed", m.totals.Completed)
	stat("Diverged", m.totals.Diverged)
	stat("Collapsed", m.totals.Collapsed)
	stat("Chaotic", m.totals.Chaotic)
	stat("Admitted", m.totals.Admitted)
	if m.totals.HookErrors > 0 {
		s.WriteString(MetricLabel.Render("Hook errors") + ErrorText.Render(fmt.Sprint(m.totals.HookErrors)) + "\n")
	}
	s.WriteString(MetricLabel.Render("Admissions") + SparklineChart(m.admitted, 30) + "\n\n")

	if len(m.bestHistory) > 1 {
		chart := asciigraph.Plot(m.bestHistory,
			asciigraph.Height(6), asciigraph.Width(40),
			asciigraph.Precision(4), asciigraph.Caption("best exponent per batch"))
		s.WriteString(chart + "\n\n")
	}

	best := m.sel.Best()
	if len(best) > 0 {
		s.WriteString(BestTable(best, tableRows) + "\n")
	} else {
		s.WriteString(Subtle.Render("no chaotic systems yet") + "\n")
	}
	if m.err != nil {
		s.WriteString(ErrorText.Render("error: "+m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("q: stop after batch  ctrl+c: cancel  t: theme"))

	stats := lipgloss.NewStyle().PaddingLeft(2).Render(s.String())
	if m.preview == "" {
		return stats
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(m.preview), stats)
}

// RunLive runs m as a full screen program and returns it once the last
// batch has finished.
func RunLive(m *LiveSearch) (*LiveSearch, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return m, err
	}
	if lm, ok := final.(*LiveSearch); ok {
		return lm, lm.Err()
	}
	return m, m.Err()
}
