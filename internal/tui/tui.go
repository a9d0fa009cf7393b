// Package tui provides a Bubble Tea screen bound to a sleep tracker.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/sleeptrack/internal/format"
	"github.com/fakeyudi/sleeptrack/internal/night"
	"github.com/fakeyudi/sleeptrack/internal/tracker"
	"github.com/fakeyudi/sleeptrack/internal/watch"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	trackingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	snackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Messages ────────────

// Observable changes arrive in the program as these messages.
type (
	tonightMsg    struct{ night *night.Night }
	historyMsg    string
	visibilityMsg struct{ start, stop, clear bool }
	navigateMsg   night.Night
	ratedMsg      night.Night
	clearedMsg    struct{}
	errMsg        struct{ err error }
	opDoneMsg     struct{}
	tickMsg       time.Time
)

// ── Model ────────────────────

// Model is the root Bubble Tea model for the tracker screen.
type Model struct {
	tr  *tracker.Tracker
	ctx context.Context

	width   int
	height  int
	ready   bool
	history viewport.Model

	tonight      *night.Night
	historyText  string
	vis          visibilityMsg
	rating       *night.Night // set while the rating prompt is open
	confirmClear bool
	busy         bool
	snack        string
	err          error
	now          time.Time
}

// New creates a model for tr. Tracker operations started from the screen
// use ctx.
func New(ctx context.Context, tr *tracker.Tracker) Model {
	return Model{
		tr:          tr,
		ctx:         ctx,
		tonight:     tr.Tonight().Get(),
		historyText: tr.History().Get(),
		vis: visibilityMsg{
			start: tr.StartVisible().Get(),
			stop:  tr.StopVisible().Get(),
			clear: tr.ClearVisible().Get(),
		},
		now: time.Now(),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewport()
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case tonightMsg:
		m.tonight = msg.night
	case historyMsg:
		m.historyText = string(msg)
		m.history.SetContent(m.historyText)
	case visibilityMsg:
		m.vis = msg
	case navigateMsg:
		n := night.Night(msg)
		m.rating = &n
		m.tr.ConsumeNavigation()
	case ratedMsg:
		m.rating = nil
		m.snack = "Rated " + night.Night(msg).Quality.String() + "."
		m.tr.ConsumeRatingDone()
	case clearedMsg:
		m.snack = "All your data is gone forever."
		m.tr.ConsumeCleared()
	case errMsg:
		m.err = msg.err
	case opDoneMsg:
		m.busy = false
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirmClear {
		m.confirmClear = false
		if key == "y" {
			return m.do(m.tr.Clear)
		}
		m.snack = "Clear cancelled."
		return m, nil
	}

	if m.rating != nil {
		switch key {
		case "0", "1", "2", "3", "4", "5":
			r := night.Rating(key[0] - '0')
			id := m.rating.ID
			return m.do(func(ctx context.Context) error { return m.tr.Rate(ctx, id, r) })
		case "esc":
			m.rating = nil
			m.snack = "Rating skipped."
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "s":
		if m.vis.start {
			return m.do(m.tr.Start)
		}
	case "t":
		if m.vis.stop {
			return m.do(m.tr.Stop)
		}
	case "c":
		if m.vis.clear {
			m.confirmClear = true
			return m, nil
		}
	case "r":
		return m.do(m.tr.Reload)
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

// do runs a tracker operation off the event loop. Results come back through
// the observables; opDoneMsg only clears the busy flag.
func (m Model) do(op func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.snack = ""
	ctx := m.ctx
	return m, func() tea.Msg {
		_ = op(ctx)
		return opDoneMsg{}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  sleeptrack")

	var status string
	if m.tonight != nil {
		since := m.tonight.StartTime
		status = trackingStyle.Render("  ● Tracking") + "  " +
			labelStyle.Render("since") + " " + timeStyle.Render(since.Format("Mon 15:04")) + "  " +
			dimStyle.Render("("+format.Duration(m.now.Sub(since))+")")
	} else {
		status = dimStyle.Render("  ○ Not tracking")
	}

	var prompt string
	switch {
	case m.rating != nil:
		prompt = promptStyle.Render(fmt.Sprintf("How did you sleep? Slept %s. Press 0 (very bad) … 5 (excellent), esc to skip.",
			format.Duration(m.rating.Duration())))
	case m.confirmClear:
		prompt = promptStyle.Render("Delete every night? Press y to confirm.")
	case m.err != nil:
		prompt = errStyle.Render("  error: " + m.err.Error())
	case m.snack != "":
		prompt = snackStyle.Render("  " + m.snack)
	}

	statusBar := statusBarStyle.Width(m.width).Render(m.hints())

	return lipgloss.JoinVertical(lipgloss.Left, title, status, prompt, m.history.View(), statusBar)
}

func (m Model) hints() string {
	var parts []string
	hint := func(key, label string) {
		parts = append(parts, keyStyle.Render(key)+" "+label)
	}
	if m.vis.start {
		hint("s", "start")
	}
	if m.vis.stop {
		hint("t", "stop")
	}
	if m.vis.clear {
		hint("c", "clear")
	}
	hint("r", "reload")
	hint("↑/↓", "scroll")
	hint("q", "quit")
	if m.busy {
		parts = append(parts, dimStyle.Render("working…"))
	}
	return strings.Join(parts, "  ")
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewport() {
	// title + status + prompt + status bar
	vpHeight := m.height - 4
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.history = viewport.New(m.width, vpHeight)
	m.history.SetContent(m.historyText)
}

// ── Binding ───────────────────────────────────────────────────────────────────

// bind forwards tracker observables into p. It returns a func that drops
// every subscription.
func bind(p *tea.Program, tr *tracker.Tracker) func() {
	vis := func() {
		p.Send(visibilityMsg{
			start: tr.StartVisible().Get(),
			stop:  tr.StopVisible().Get(),
			clear: tr.ClearVisible().Get(),
		})
	}
	cancels := []func(){
		tr.Tonight().Subscribe(func(n *night.Night) { p.Send(tonightMsg{night: n}) }),
		tr.History().Subscribe(func(s string) { p.Send(historyMsg(s)) }),
		tr.StartVisible().Subscribe(func(bool) { vis() }),
		tr.StopVisible().Subscribe(func(bool) { vis() }),
		tr.ClearVisible().Subscribe(func(bool) { vis() }),
		tr.NavigateToRating().Subscribe(func(n night.Night) { p.Send(navigateMsg(n)) }),
		tr.RatingDone().Subscribe(func(n night.Night) { p.Send(ratedMsg(n)) }),
		tr.Cleared().Subscribe(func(struct{}) { p.Send(clearedMsg{}) }),
		tr.Err().Subscribe(func(err error) { p.Send(errMsg{err: err}) }),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Run shows the tracker screen until the user quits. When dbPath names a
// file, changes made by other sleeptrack processes are picked up.
func Run(ctx context.Context, tr *tracker.Tracker, dbPath string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, tr), tea.WithAltScreen(), tea.WithContext(ctx))

	// Send blocks until the program loop is running, so subscribe off-thread.
	unbind := make(chan func(), 1)
	go func() { unbind <- bind(p, tr) }()
	defer func() {
		cancel()
		(<-unbind)()
	}()

	if dbPath != "" && dbPath != night.MemoryPath {
		go watchStore(ctx, tr, dbPath, log, func(err error) { p.Send(errMsg{err: err}) })
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// watchStore reloads tr whenever dbPath changes until ctx is done. A watcher
// failure is logged and handed to onErr.
func watchStore(ctx context.Context, tr *tracker.Tracker, dbPath string, log *slog.Logger, onErr func(error)) {
	err := watch.Watch(ctx, dbPath, watch.DefaultDebounce, func() {
		_ = tr.Reload(ctx)
	})
	if err != nil {
		log.Warn("database watcher stopped", "path", dbPath, "error", err)
		onErr(fmt.Errorf("watching %s: %w", dbPath, err))
	}
}
