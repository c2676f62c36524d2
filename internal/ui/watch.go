package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"github.com/muurk/heaterble/internal/protocol"
	"github.com/muurk/heaterble/internal/session"
)

// Controller is the subset of a heater session the dashboard drives
type Controller interface {
	Ping(ctx context.Context) (protocol.DeviceState, error)
	SetPower(ctx context.Context, on bool) (protocol.DeviceState, error)
	SetOperationMode(ctx context.Context, mode protocol.OperationMode) (protocol.DeviceState, error)
	SetLevel(ctx context.Context, value uint8) (protocol.DeviceState, error)
}

// watchKeyMap defines keybindings for the watch dashboard
type watchKeyMap struct {
	Power   key.Binding
	Up      key.Binding
	Down    key.Binding
	Mode    key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings for the short help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Up, k.Down, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Mode, k.Refresh},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Power: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "power on/off"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "+", "k"),
			key.WithHelp("↑/+", "raise level"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "-", "j"),
			key.WithHelp("↓/-", "lower level"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual/automatic"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// pollTickMsg fires every poll interval
type pollTickMsg time.Time

// resultMsg carries the outcome of a heater request
type resultMsg struct {
	action string
	state  protocol.DeviceState
	err    error
}

// WatchConfig configures the watch dashboard
type WatchConfig struct {
	Title          string        // Heater name
	Subtitle       string        // e.g., the BLE address
	PollInterval   time.Duration // Status refresh period
	RequestTimeout time.Duration // Deadline for each request
}

// WatchModel is a live dashboard that polls the heater and lets the user
// switch it on and off and adjust its level.
//
// Polls are rate limited to one per interval: manual refreshes share the
// limiter with the ticker, and no poll is sent while a request is in flight.
type WatchModel struct {
	ctrl   Controller
	config WatchConfig

	limiter *rate.Limiter
	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap

	state      *protocol.DeviceState
	busy       bool
	action     string
	lastErr    error
	fatal      error
	lastUpdate time.Time
	width      int
	quitting   bool
}

// NewWatchModel creates a dashboard for ctrl. The first poll is sent on Init.
func NewWatchModel(ctrl Controller, config WatchConfig) WatchModel {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = session.DefaultResponseTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	limiter := rate.NewLimiter(rate.Every(config.PollInterval), 1)
	limiter.Allow() // spent by the initial poll

	return WatchModel{
		ctrl:    ctrl,
		config:  config,
		limiter: limiter,
		spinner: s,
		help:    help.New(),
		keys:    newWatchKeyMap(),
		busy:    true,
		action:  "refresh",
		width:   GetTerminalWidth(),
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.request("refresh", m.ctrl.Ping),
		m.tick(),
	)
}

// Err returns the error that ended the dashboard, if any
func (m WatchModel) Err() error {
	return m.fatal
}

// State returns the last status received
func (m WatchModel) State() (protocol.DeviceState, bool) {
	if m.state == nil {
		return protocol.DeviceState{}, false
	}
	return *m.state, true
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// request runs fn with the request timeout and reports the result
func (m WatchModel) request(action string, fn func(context.Context) (protocol.DeviceState, error)) tea.Cmd {
	timeout := m.config.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		state, err := fn(ctx)
		return resultMsg{action: action, state: state, err: err}
	}
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ClampWidth(msg.Width)
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollTickMsg:
		if m.busy || !m.limiter.Allow() {
			return m, m.tick()
		}
		m.busy, m.action = true, "refresh"
		return m, tea.Batch(m.tick(), m.request("refresh", m.ctrl.Ping))

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.lastErr = msg.err
			if isFatal(msg.err) {
				m.fatal = msg.err
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		state := msg.state
		m.state = &state
		m.lastErr = nil
		m.lastUpdate = time.Now()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// Everything below talks to the heater, one request at a time.
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		if !m.limiter.Allow() {
			return m, nil
		}
		return m.start("refresh", m.ctrl.Ping)

	case key.Matches(msg, m.keys.Power):
		if m.state == nil {
			return m, nil
		}
		on := !m.state.Power.On()
		return m.start("power", func(ctx context.Context) (protocol.DeviceState, error) {
			return m.ctrl.SetPower(ctx, on)
		})

	case key.Matches(msg, m.keys.Mode):
		if m.state == nil {
			return m, nil
		}
		mode := protocol.ModeAutomatic
		if m.state.Mode == protocol.ModeAutomatic {
			mode = protocol.ModeManual
		}
		return m.start("mode", func(ctx context.Context) (protocol.DeviceState, error) {
			return m.ctrl.SetOperationMode(ctx, mode)
		})

	case key.Matches(msg, m.keys.Up):
		return m.stepLevel(1)

	case key.Matches(msg, m.keys.Down):
		return m.stepLevel(-1)
	}

	return m, nil
}

func (m WatchModel) start(action string, fn func(context.Context) (protocol.DeviceState, error)) (tea.Model, tea.Cmd) {
	m.busy, m.action = true, action
	return m, m.request(action, fn)
}

// stepLevel moves the target by delta within the current mode's range
func (m WatchModel) stepLevel(delta int) (tea.Model, tea.Cmd) {
	if m.state == nil {
		return m, nil
	}
	next, ok := NextLevel(*m.state, delta)
	if !ok {
		return m, nil
	}
	return m.start("level", func(ctx context.Context) (protocol.DeviceState, error) {
		return m.ctrl.SetLevel(ctx, next)
	})
}

// NextLevel returns the target level delta steps from the current one,
// clamped to the mode's range. ok is false when the mode is unknown or the
// target would not change.
func NextLevel(state protocol.DeviceState, delta int) (uint8, bool) {
	lo, hi, ok := state.Mode.LevelRange()
	if !ok {
		return 0, false
	}
	current := int(state.TargetLevel)
	if current < int(lo) || current > int(hi) {
		// heaters report 0 while off
		current = int(lo)
		if delta > 0 {
			delta--
		}
	}
	next := current + delta
	if next < int(lo) {
		next = int(lo)
	}
	if next > int(hi) {
		next = int(hi)
	}
	if next == int(state.TargetLevel) {
		return 0, false
	}
	return uint8(next), true
}

// isFatal reports errors after which the session is gone
func isFatal(err error) bool {
	return session.IsAuthenticationFailed(err) || session.IsTransport(err) || session.IsNotConnected(err)
}

// View implements tea.Model
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if m.state != nil {
		b.WriteString(RenderState(m.config.Title, m.config.Subtitle, *m.state, m.width))
	} else {
		b.WriteString(PanelStyle(m.width).Render(
			TitleStyle.Render(strings.ToUpper(m.config.Title)) + "\n" +
				SubtitleStyle.Render("Waiting for the first status notification…"),
		))
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(fmt.Sprintf(" %s %s…", m.spinner.View(), m.action))
	case !m.lastUpdate.IsZero():
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("   updated %s", m.lastUpdate.Format("15:04:05"))))
	}
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(ErrorMessageStyle.Render("   " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}
