package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/gruenbeck-cloud/internal/device"
)

// staleAfter is how long without a telemetry frame before the live
// badge turns stale. The cloud pushes roughly every minute while the
// push window is armed.
const staleAfter = 90 * time.Second

// WatchConfig describes the device being watched and the hook for
// re-arming the cloud's push window.
type WatchConfig struct {
	DeviceName string
	Serial     string

	// Refresh re-arms the telemetry push window. Bound to the r key.
	// Runs off the UI goroutine; may be nil.
	Refresh func() error
}

// Messages injected by the streaming goroutine via Program.Send.
type (
	// WatchConnectedMsg reports that the relay websocket is up and the
	// push window is armed.
	WatchConnectedMsg struct{}

	// WatchUpdateMsg carries a device snapshot after a telemetry frame
	// was folded in.
	WatchUpdateMsg struct{ Device device.Device }

	// WatchErrorMsg reports a fatal stream error. The model quits; the
	// command renders the error after the program exits.
	WatchErrorMsg struct{ Err error }

	// WatchClosedMsg reports that the relay closed the stream.
	WatchClosedMsg struct{}
)

type (
	watchTickMsg        time.Time
	watchRefreshDoneMsg struct{ err error }
)

// watchKeyMap defines the key bindings for the watch view
type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns the key bindings for the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns the key bindings for the full help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh},
		{k.Quit},
	}
}

var defaultWatchKeys = watchKeyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// WatchModel is the Bubble Tea model for the live telemetry view. It
// starts on a connecting screen and switches to the telemetry panel
// once the stream delivers frames. Stream events arrive as messages
// sent by the command's streaming goroutine.
type WatchModel struct {
	config WatchConfig

	spinner spinner.Model
	gauge   progress.Model
	help    help.Model
	keys    watchKeyMap

	device     *device.Device
	frames     int
	lastUpdate time.Time
	started    time.Time

	connected  bool
	closed     bool
	refreshing bool
	quitting   bool
	err        error
	refreshErr error

	width  int
	height int
}

// NewWatchModel creates the watch model in its connecting state
func NewWatchModel(config WatchConfig) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	gauge := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)

	width, height := GetTerminalSize()

	return WatchModel{
		config:  config,
		spinner: s,
		gauge:   gauge,
		help:    help.New(),
		keys:    defaultWatchKeys,
		started: time.Now(),
		width:   width,
		height:  height,
	}
}

// NewWatchProgram wraps the model in a full-screen Bubble Tea program.
// The caller pumps stream events into it with Send.
func NewWatchProgram(config WatchConfig) *tea.Program {
	return tea.NewProgram(NewWatchModel(config), tea.WithAltScreen())
}

// Init starts the spinner and the once-a-second repaint tick
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, watchTick())
}

// watchTick drives the age displays while no frames arrive
func watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

// Update handles messages
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Refresh):
			if !m.connected || m.refreshing || m.config.Refresh == nil {
				return m, nil
			}
			m.refreshing = true
			refresh := m.config.Refresh
			return m, func() tea.Msg {
				return watchRefreshDoneMsg{err: refresh()}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		// The spinner only runs on the connecting screen
		if m.connected || m.quitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case watchTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, watchTick()

	case watchRefreshDoneMsg:
		m.refreshing = false
		m.refreshErr = msg.err
		return m, nil

	case WatchConnectedMsg:
		m.connected = true
		return m, nil

	case WatchUpdateMsg:
		// A frame implies the stream is up even if the connected
		// message was lost to timing
		m.connected = true
		m.device = &msg.Device
		m.frames++
		m.lastUpdate = time.Now()
		m.refreshErr = nil
		return m, nil

	case WatchErrorMsg:
		m.err = msg.Err
		return m, tea.Quit

	case WatchClosedMsg:
		m.closed = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the current screen
func (m WatchModel) View() string {
	if m.quitting || m.err != nil || m.closed {
		// The command prints the closing summary after the program
		// exits and the terminal is restored
		return ""
	}
	if !m.connected {
		return m.viewConnecting()
	}
	return m.viewLive()
}

// viewConnecting renders the centered connect screen
func (m WatchModel) viewConnecting() string {
	title := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(fmt.Sprintf("%s Connecting to %s", m.spinner.View(), m.config.DeviceName))

	subtitle := StatusBarStyle.Render("Negotiating relay access with the Grünbeck cloud")
	elapsed := StatusBarStyle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Second)))

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		title,
		"",
		subtitle,
		"",
		elapsed,
		"",
		m.help.View(m.keys),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// viewLive renders the telemetry panel
func (m WatchModel) viewLive() string {
	width := m.width
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	name := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(m.config.DeviceName)
	serial := StatusBarStyle.Render("serial " + m.config.Serial)
	header := name + "  " + serial + "   " + m.badge()

	divider := RenderHorizontalDivider(width-4, "─")

	sections := []string{header, divider}

	if m.device == nil {
		sections = append(sections, "", StepNoteStyle.Render("  Waiting for the first telemetry frame..."))
	} else {
		if gauges := m.gaugeRows(); len(gauges) > 0 {
			sections = append(sections, "")
			sections = append(sections, gauges...)
		}
		if rows := m.telemetryRows(); len(rows) > 0 {
			sections = append(sections, "")
			sections = append(sections, rows...)
		}
	}

	sections = append(sections, "", divider, m.statusBar(), m.help.View(m.keys))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// badge reports the freshness of the stream
func (m WatchModel) badge() string {
	if m.lastUpdate.IsZero() {
		return StaleBadgeStyle.Render(LiveMarker + " waiting")
	}
	if time.Since(m.lastUpdate) > staleAfter {
		return StaleBadgeStyle.Render(LiveMarker + " stale")
	}
	return LiveBadgeStyle.Render(LiveMarker + " live")
}

// gaugeRows renders the remaining-capacity bars. Twin-tank models
// report both exchanger columns.
func (m WatchModel) gaugeRows() []string {
	rt := m.device.Realtime
	if rt.RemainingCapacityPercent == nil {
		return nil
	}

	label := "Capacity"
	if rt.RemainingCapacityPercent2 != nil {
		label = "Exchanger 1"
	}

	rows := []string{m.renderGauge(label, *rt.RemainingCapacityPercent)}
	if rt.RemainingCapacityPercent2 != nil {
		rows = append(rows, m.renderGauge("Exchanger 2", *rt.RemainingCapacityPercent2))
	}
	return rows
}

func (m WatchModel) renderGauge(label string, percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	key := lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(labelWidth).
		Render(label + ":")
	return "  " + key + " " + m.gauge.ViewAs(float64(percent)/100)
}

// telemetryRows renders one row per reported telemetry value. Fields
// the appliance has not sent yet are skipped.
func (m WatchModel) telemetryRows() []string {
	rt := m.device.Realtime
	var rows []string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, kvRow(label, value))
		}
	}

	add("Current flow", rtPairFloat(rt.CurrentFlowRate, rt.CurrentFlowRate2, 2, "m³/h"))
	add("Remaining capacity", rtPairFloat(rt.RemainingCapacityVolume, rt.RemainingCapacityVolume2, 2, "m³"))
	add("Soft water meter", rtPairInt(rt.SoftWaterQuantity, rt.SoftWaterQuantity2, "l"))
	add("Salt reserve", rtInt(rt.SaltRange, "days"))
	add("Salt consumption", rtFloat(rt.SaltConsumption, 2, "kg"))
	add("Regenerations", rtInt(rt.RegenerationCounter, ""))
	add("Last regeneration", rtPairClock(rt.LastRegeneration, rt.LastRegeneration2))
	add("Regeneration step", rtStep(rt))
	add("Next service", rtInt(rt.NextServiceIn, "days"))
	add("Peak flow", rtFloat(rt.FlowRatePeak, 2, "m³/h"))
	add("Soft water hardness", rtInt(rt.ActualSoftWaterHardness, "°dH"))
	add("Make-up water", rtInt(rt.MakeUpWaterVolume, "l"))
	add("Adsorber exhausted", rtInt(rt.AdsorberExhaustedPercent, "%"))
	add("Adsorber water left", rtFloat(rt.RemainingAdsorberWater, 2, "m³"))
	add("Chlorine current", rtInt(rt.CurrentChlorine, "mA"))

	return rows
}

// statusBar renders the footer counters
func (m WatchModel) statusBar() string {
	parts := []string{fmt.Sprintf("updates: %d", m.frames)}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, fmt.Sprintf("last: %s ago", time.Since(m.lastUpdate).Round(time.Second)))
	}
	parts = append(parts, fmt.Sprintf("watching: %s", time.Since(m.started).Round(time.Second)))
	if m.refreshing {
		parts = append(parts, "refreshing...")
	} else if m.refreshErr != nil {
		parts = append(parts, "refresh failed")
	}

	bar := parts[0]
	for _, p := range parts[1:] {
		bar += "  |  " + p
	}
	return StatusBarStyle.Render("  " + bar)
}

// Err returns the stream error that ended the program, if any
func (m WatchModel) Err() error { return m.err }

// Closed reports whether the relay ended the stream
func (m WatchModel) Closed() bool { return m.closed }

// Frames returns how many telemetry frames arrived
func (m WatchModel) Frames() int { return m.frames }

// Elapsed returns how long the watch ran
func (m WatchModel) Elapsed() time.Duration {
	return time.Since(m.started).Round(time.Second)
}

// --- Telemetry value formatting ---

// rtFloat formats an optional float with a unit, empty when unreported
func rtFloat(v *float64, precision int, unit string) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%.*f", precision, *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// rtInt formats an optional integer with a unit, empty when unreported
func rtInt(v *int, unit string) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%d", *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// rtPairFloat joins the twin-tank columns with a slash
func rtPairFloat(a, b *float64, precision int, unit string) string {
	if b == nil {
		return rtFloat(a, precision, unit)
	}
	if a == nil {
		return rtFloat(b, precision, unit)
	}
	s := fmt.Sprintf("%.*f / %.*f", precision, *a, precision, *b)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// rtPairInt joins the twin-tank columns with a slash
func rtPairInt(a, b *int, unit string) string {
	if b == nil {
		return rtInt(a, unit)
	}
	if a == nil {
		return rtInt(b, unit)
	}
	s := fmt.Sprintf("%d / %d", *a, *b)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// rtPairClock joins the per-exchanger regeneration clocks
func rtPairClock(a, b *device.Clock) string {
	switch {
	case a == nil && b == nil:
		return ""
	case b == nil:
		return a.String()
	case a == nil:
		return b.String()
	default:
		return a.String() + " / " + b.String()
	}
}

// rtStep labels the regeneration status code. The remaining-step value
// is firmware-defined and shown as delivered.
func rtStep(rt device.RealtimeInfo) string {
	if rt.RegenerationStepCode == nil {
		return ""
	}
	s := device.RegenerationStep(*rt.RegenerationStepCode).String()
	if rt.RegenerationRemaining != nil {
		s += fmt.Sprintf(" (remaining: %.0f)", *rt.RegenerationRemaining)
	}
	return s
}
