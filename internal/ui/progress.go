package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ddebug/internal/oracle"
	"ddebug/internal/reduce"
)

// recentTrials is how many decided trials the view lists.
const recentTrials = 8

type progressModel struct {
	title   string
	events  <-chan reduce.Event
	spinner spinner.Model
	prog    progress.Model
	recent  []trialItem
	last    reduce.Event
	hits    int
	width   int
	done    bool
}

type trialItem struct {
	label   string
	status  string
	cached  bool
	accepts bool
}

type eventMsg reduce.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders reduction
// progress from a session's event stream. The model quits when the channel
// is closed.
func NewProgressModel(title string, events <-chan reduce.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(reduce.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		// The session owns cancellation; ctrl+c reaches it as SIGINT.
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := m.title
	if m.last.Pass > 0 {
		header = fmt.Sprintf("%s (pass %d)", header, m.last.Pass)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("  %d decided  %d removed of %d  %d cached  %s -> %s  %s",
		m.last.Trials, m.last.Accepted, m.last.Removable, m.hits,
		sizeLabel(m.last.Original), sizeLabel(m.last.Bytes), m.last.Elapsed.Round(time.Second))))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-6, 20)
	for _, item := range m.recent {
		status := fmt.Sprintf("%*s", statusWidth, item.status)
		line := fmt.Sprintf("  %s %s", styleStatus(item).Render(status), truncate(item.label, nameWidth))
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(m.fraction()))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev reduce.Event) tea.Cmd {
	m.last = ev
	if ev.Kind != reduce.EventTrial {
		return m.prog.SetPercent(m.fraction())
	}
	if ev.Cached {
		m.hits++
	}
	accepted := ev.Verdict == oracle.Reproduces
	status := "kept"
	if accepted {
		status = "removed"
	} else if ev.Verdict == oracle.Timeout {
		status = "timeout"
	}
	m.recent = append(m.recent, trialItem{label: ev.Label, status: status, cached: ev.Cached, accepts: accepted})
	if len(m.recent) > recentTrials {
		m.recent = m.recent[len(m.recent)-recentTrials:]
	}
	return m.prog.SetPercent(m.fraction())
}

// fraction is the share of the original program removed so far.
func (m *progressModel) fraction() float64 {
	if m.last.Original <= 0 {
		return 0
	}
	f := float64(m.last.Original-m.last.Bytes) / float64(m.last.Original)
	return min(max(f, 0), 1)
}

const statusWidth = 8

func styleStatus(item trialItem) lipgloss.Style {
	style := lipgloss.NewStyle()
	switch item.status {
	case "removed":
		style = style.Foreground(lipgloss.Color("2"))
	case "timeout":
		style = style.Foreground(lipgloss.Color("3"))
	default:
		style = style.Foreground(lipgloss.Color("7"))
	}
	if item.cached {
		style = style.Faint(true)
	}
	return style
}

func sizeLabel(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
