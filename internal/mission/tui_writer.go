package mission

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"droneops-formation/internal/config"
	"droneops-formation/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an event line for the viewport.
type logMsg struct{ line string }

// alertMsg carries an operator alert line.
type alertMsg struct{ line string }

// vehicleMsg carries the latest row for one vehicle.
type vehicleMsg struct{ telemetry.VehicleRow }

// modeMsg reports a formation mode transition.
type modeMsg struct{ telemetry.ModeChangeRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setRequesterMsg struct{ fn func(string) error }

const (
	maxLogLines   = 1000
	maxAlertLines = 5
)

// modeKeys maps console keys to requested modes.
var modeKeys = map[string]string{
	"a": "alongside",
	"v": "vertical_weave",
	"d": "descend_to_altitude",
	"l": "land",
	"r": "idle",
}

var modeBadgeColors = map[string]string{
	"idle":                "8",
	"takeoff":             "11",
	"alongside":           "10",
	"vertical_weave":      "14",
	"descend_to_altitude": "13",
	"land":                "12",
}

// TUIWriter renders the formation in a bubbletea console.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.FormationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		// Quitting the console stops the whole process.
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.VehicleRow) error {
	w.program.Send(vehicleMsg{row})
	return nil
}

// WriteBatch sends every row to the console.
func (w *TUIWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteModeChange implements ModeWriter.
func (w *TUIWriter) WriteModeChange(row telemetry.ModeChangeRow) error {
	w.program.Send(modeMsg{row})
	w.program.Send(logMsg{line: fmt.Sprintf("%s[%s]%s %sMODE%s %s -> %s (%s)",
		colorGray, row.Timestamp.Format(time.TimeOnly), colorReset,
		colorCyan, colorReset, row.From, row.To, row.Event)})
	return nil
}

// WriteCommand implements CommandWriter.
func (w *TUIWriter) WriteCommand(row telemetry.CommandRow) error {
	line := fmt.Sprintf("%s[%s]%s %sCMD%s %s %s",
		colorGray, row.Timestamp.Format(time.TimeOnly), colorReset,
		colorBlue, colorReset, row.VehicleID, row.Command)
	if row.Value != "" {
		line += " " + row.Value
	}
	if row.Error != "" {
		line += fmt.Sprintf(" %s%s%s", colorRed, row.Error, colorReset)
	}
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteAlert implements AlertWriter.
func (w *TUIWriter) WriteAlert(row telemetry.AlertRow) error {
	w.program.Send(alertMsg{line: fmt.Sprintf("[%s] %s %s %s",
		row.Timestamp.Format(time.TimeOnly), row.Kind, row.VehicleID, row.Message)})
	return nil
}

// SetAdminStatus implements AdminStatusWriter.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetModeRequester implements ModeRequester.
func (w *TUIWriter) SetModeRequester(fn func(string) error) {
	w.program.Send(setRequesterMsg{fn: fn})
}

// Close stops the program and waits for it to exit.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.FormationConfig
	header     table.Model
	vehicles   table.Model
	vp         viewport.Model
	alertVP    viewport.Model
	logs       []string
	alerts     []string
	rows       map[string]telemetry.VehicleRow
	order      []string
	mode       string
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
	request    func(string) error
	notice     string
}

func newTUIModel(cfg *config.FormationConfig) tuiModel {
	hcols := []table.Column{
		{Title: "Config", Width: 18},
		{Title: "Value", Width: 14},
		{Title: "Config", Width: 18},
		{Title: "Value", Width: 14},
	}
	var hrows []table.Row
	if cfg != nil {
		hrows = []table.Row{
			{"Mission", cfg.MissionID, "Scenario", orDash(cfg.Scenario)},
			{"Takeoff Alt (m)", fmt.Sprintf("%.1f", cfg.TakeoffAlt), "Cycle", cfg.CycleInterval.String()},
			{"Min Offset (m)", fmt.Sprintf("%.1f", cfg.MinOffset), "Max Offset (m)", fmt.Sprintf("%.1f", cfg.MaxOffset)},
			{"Vehicles", fmt.Sprintf("%d", len(cfg.Vehicles)), "Comm Loss", fmt.Sprintf("%.2f", cfg.Link.CommLoss)},
		}
	}
	header := table.New(table.WithColumns(hcols), table.WithRows(hrows), table.WithHeight(len(hrows)+1))

	vcols := []table.Column{
		{Title: "Slot", Width: 4},
		{Title: "Vehicle", Width: 12},
		{Title: "State", Width: 9},
		{Title: "Flight", Width: 9},
		{Title: "Alt", Width: 7},
		{Title: "Target Alt", Width: 10},
		{Title: "Phase", Width: 6},
		{Title: "Landing", Width: 7},
	}
	vehicles := table.New(table.WithColumns(vcols), table.WithHeight(2))

	return tuiModel{
		cfg:        cfg,
		header:     header,
		vehicles:   vehicles,
		vp:         viewport.New(0, 0),
		alertVP:    viewport.New(0, 0),
		rows:       make(map[string]telemetry.VehicleRow),
		mode:       "idle",
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.header.SetWidth(msg.Width)
		m.vehicles.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.alertVP.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshAlerts()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.refreshAlerts()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.alertVP.GotoBottom()
			}
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		}
		if target, ok := modeKeys[msg.String()]; ok {
			m.notice = m.requestMode(target)
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case alertMsg:
		m.alerts = append(m.alerts, msg.line)
		if len(m.alerts) > maxAlertLines {
			m.alerts = m.alerts[len(m.alerts)-maxAlertLines:]
		}
		m.updateViewportHeight()
		m.refreshAlerts()
	case vehicleMsg:
		if _, ok := m.rows[msg.VehicleID]; !ok {
			m.order = append(m.order, msg.VehicleID)
		}
		m.rows[msg.VehicleID] = msg.VehicleRow
		m.mode = msg.Mode
		m.refreshVehicles()
		m.updateViewportHeight()
	case modeMsg:
		m.mode = msg.To
	case adminMsg:
		m.admin = msg.active
	case setRequesterMsg:
		m.request = msg.fn
	}
	return m, nil
}

func (m tuiModel) requestMode(target string) string {
	if m.request == nil {
		return "mode requests unavailable"
	}
	if err := m.request(target); err != nil {
		return fmt.Sprintf("%s rejected: %v", target, err)
	}
	return "requested " + target
}

func (m *tuiModel) refreshVehicles() {
	rows := make([]table.Row, 0, len(m.order))
	for _, id := range m.order {
		r := m.rows[id]
		state := "disarmed"
		if r.Armed {
			state = "armed"
		}
		landing := ""
		if r.Active {
			landing = "●"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.Slot), r.VehicleID, state, r.FlightMode,
			fmt.Sprintf("%.1f", r.Alt), fmt.Sprintf("%.1f", r.TargetAlt),
			fmt.Sprintf("%.1f", r.Phase), landing,
		})
	}
	m.vehicles.SetRows(rows)
	m.vehicles.SetHeight(len(rows) + 1)
}

func (m *tuiModel) updateViewportHeight() {
	alertLines := len(m.alerts)
	if alertLines == 0 {
		alertLines = 1
	}
	m.alertVP.Height = alertLines

	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.vehicles.View()) +
		1 + m.alertVP.Height + lipgloss.Height(m.renderBottom()) + 5
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
		m.alertVP.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshAlerts() {
	content := "none"
	if len(m.alerts) > 0 {
		lines := make([]string, 0, len(m.alerts))
		for _, l := range m.alerts {
			if m.wrap && m.alertVP.Width > 0 {
				l = wordwrap.String(l, m.alertVP.Width)
			}
			lines = append(lines, l)
		}
		content = strings.Join(lines, "\n")
	}
	m.alertVP.SetContent(content)
	if m.autoscroll {
		m.alertVP.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	alertTitle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("Alerts:")
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.vehicles.View(),
		divider,
		m.vp.View(),
		divider,
		alertTitle,
		m.alertVP.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func (m tuiModel) renderHeader() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.header.View(), "  ", modeBadge(m.mode))
}

func modeBadge(mode string) string {
	bg, ok := modeBadgeColors[mode]
	if !ok {
		bg = "7"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color(bg)).
		Render(strings.ToUpper(mode))
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	line := fmt.Sprintf("Admin UI %s | Wrap %s | Scroll %s | a/v/d/l/r request mode | ? help",
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
	if m.notice != "" {
		line += "\n" + m.notice
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" a  request alongside",
		" v  request vertical weave",
		" d  request descend to altitude",
		" l  request land",
		" r  reset to idle",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
