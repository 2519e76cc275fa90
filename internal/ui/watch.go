package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/retools/internal/retools"
)

// DefaultRefreshInterval is how often the watch view re-lists the table
const DefaultRefreshInterval = 500 * time.Millisecond

// Lister takes a statistics snapshot
type Lister func(filter string) (retools.Report, error)

// Executor runs a console command and returns its report
type Executor func(line string) (string, error)

// WatchConfig configures the live statistics view
type WatchConfig struct {
	List     Lister
	Execute  Executor
	Interval time.Duration
	Title    string
}

type refreshMsg time.Time

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Run   key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Run, k.Clear, k.Quit}}
}

// WatchModel is a Bubble Tea model showing the statistics table live with
// a command line underneath. Lines starting with "/" set the listing
// filter; anything else is passed to the console.
type WatchModel struct {
	config WatchConfig

	Input textinput.Model
	Help  help.Model
	Keys  watchKeyMap

	Filter  string
	Report  retools.Report
	Running bool
	Output  string
	Err     error

	Width  int
	Height int
}

// NewWatchModel creates the watch view
func NewWatchModel(config WatchConfig) WatchModel {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Title == "" {
		config.Title = "RE tools"
	}

	input := textinput.New()
	input.Placeholder = "command (help), /filter"
	input.Prompt = "re> "
	input.CharLimit = 128
	input.Focus()

	width, height := GetTerminalSize()
	return WatchModel{
		config: config,
		Input:  input,
		Help:   help.New(),
		Keys: watchKeyMap{
			Run: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "run"),
			),
			Clear: key.NewBinding(
				key.WithKeys("ctrl+l"),
				key.WithHelp("ctrl+l", "clear table"),
			),
			Quit: key.NewBinding(
				key.WithKeys("esc", "ctrl+c"),
				key.WithHelp("esc", "quit"),
			),
		},
		Width:  width,
		Height: height,
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.config.Interval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

// refresh re-lists the table
func (m WatchModel) refresh() WatchModel {
	r, err := m.config.List(m.Filter)
	if err != nil {
		m.Running = !errors.Is(err, retools.ErrNotRunning)
		m.Report = retools.Report{Filter: m.Filter}
		return m
	}
	m.Running = true
	m.Report = r
	return m
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Height = msg.Height
		m.Help.Width = m.Width
		return m, nil

	case refreshMsg:
		return m.refresh(), m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Clear):
			m = m.run("clear")
			return m.refresh(), nil
		case key.Matches(msg, m.Keys.Run):
			line := strings.TrimSpace(m.Input.Value())
			m.Input.SetValue("")
			switch {
			case line == "quit" || line == "exit":
				return m, tea.Quit
			case strings.HasPrefix(line, "/"):
				m.Filter = strings.TrimPrefix(line, "/")
				m.Output, m.Err = "", nil
			case line != "":
				m = m.run(line)
			}
			return m.refresh(), nil
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m WatchModel) run(line string) WatchModel {
	out, err := m.config.Execute(line)
	m.Output = strings.TrimRight(out, "\n")
	m.Err = err
	return m
}

// View implements tea.Model
func (m WatchModel) View() string {
	status := StatusIdleStyle.Render("idle")
	if m.Running {
		status = StatusRunningStyle.Render("running")
	}
	title := HeaderTitleStyle.Render(strings.ToUpper(m.config.Title)) + "  " + status
	if m.Filter != "" {
		title += "  " + SummaryStyle.Render(fmt.Sprintf("filter %q", m.Filter))
	}

	var footer []string
	if m.Output != "" {
		style := OutputStyle
		if m.Err != nil {
			style = style.Foreground(ErrorColor)
		}
		footer = append(footer, style.Render(m.Output))
	}
	footer = append(footer, m.Input.View(), m.Help.View(m.Keys))
	footerText := strings.Join(footer, "\n")

	var body string
	if m.Running {
		// title, blank line, table header, summary line, blank line
		rows := m.Height - lipgloss.Height(footerText) - 5
		if rows < 1 {
			rows = 1
		}
		body = RenderReport(m.Report, m.Width, rows)
	} else {
		body = SummaryStyle.Render("Engine stopped. Type \"start\" to collect statistics.") + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, footerText)
}
