package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vxpsim/internal/metrics"
	"github.com/san-kum/vxpsim/internal/report"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

type screen int

const (
	screenMenu screen = iota
	screenAdjust
	screenAcquire
	screenReport
	screenSolution
	screenTrend
	screenLog
)

type menuItem struct {
	label  string
	target screen
}

var menu = []menuItem{
	{"Adjustments", screenAdjust},
	{"Acquire", screenAcquire},
	{"Measurements", screenReport},
	{"Solution", screenSolution},
	{"Trend", screenTrend},
	{"Event log", screenLog},
}

const (
	fieldPitch = iota
	fieldTrim
	fieldBolt
	numFields
)

var fieldNames = [numFields]string{"P/L turns", "Trim mm", "Bolt g"}

var fieldStep = [numFields]float64{0.25, 0.25, 5}

// Model is the interactive trainer. Save, if set, persists the session after
// every change.
type Model struct {
	sess *session.Session
	save func(*session.Session) error

	screen screen
	cursor int

	regime int
	blade  int
	field  int

	status string
	width  int
	height int
}

func New(sess *session.Session, save func(*session.Session) error) Model {
	return Model{sess: sess, save: save, width: 80, height: 24}
}

func Run(sess *session.Session, save func(*session.Session) error) error {
	_, err := tea.NewProgram(New(sess, save), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m *Model) persist() {
	if m.save == nil {
		return
	}
	if err := m.save(m.sess); err != nil {
		m.status = "save failed: " + err.Error()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.screen {
	case screenMenu:
		return m.menuKey(msg)
	case screenAdjust:
		return m.adjustKey(msg), nil
	case screenAcquire:
		return m.acquireKey(msg), nil
	default:
		if k := msg.String(); k == "q" || k == "esc" {
			m.screen = screenMenu
		}
	}
	return m, nil
}

func (m Model) menuKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menu)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.screen = menu[m.cursor].target
		m.status = ""
	case "n":
		if err := m.sess.NextRun(); err != nil {
			m.status = err.Error()
		} else {
			m.status = fmt.Sprintf("run %d started", m.sess.Run())
			m.persist()
		}
	}
	return m, nil
}

func (m Model) adjustKey(msg tea.KeyMsg) Model {
	r := rotor.Regimes[m.regime]
	b := rotor.Blades[m.blade]
	switch msg.String() {
	case "q", "esc":
		m.screen = screenMenu
	case "tab":
		m.regime = (m.regime + 1) % len(rotor.Regimes)
	case "up", "k":
		if m.blade > 0 {
			m.blade--
		}
	case "down", "j":
		if m.blade < len(rotor.Blades)-1 {
			m.blade++
		}
	case "f":
		m.field = (m.field + 1) % numFields
	case "left", "h", "right", "l":
		step := fieldStep[m.field]
		if k := msg.String(); k == "left" || k == "h" {
			step = -step
		}
		v := m.sess.Adjustments().Get(r, b)
		switch m.field {
		case fieldPitch:
			v.PitchTurns += step
		case fieldTrim:
			v.TrimMM += step
		case fieldBolt:
			v.BoltG = max(0, v.BoltG+step)
		}
		m.sess.SetAdjustment(r, b, v)
		m.persist()
	case "0":
		m.sess.SetAdjustment(r, b, rotor.BladeAdjustment{})
		m.persist()
	}
	return m
}

func (m Model) acquireKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "q", "esc":
		m.screen = screenMenu
	case "g":
		m.acquire(rotor.Ground)
	case "h":
		m.acquire(rotor.Hover)
	case "f":
		m.acquire(rotor.Horizontal)
	case "a":
		if _, err := m.sess.AcquireAll(context.Background()); err != nil {
			m.status = err.Error()
			return m
		}
		m.status = fmt.Sprintf("run %d: all regimes acquired", m.sess.Run())
		m.persist()
	}
	return m
}

func (m *Model) acquire(r rotor.Regime) {
	meas := m.sess.Acquire(r)
	m.status = fmt.Sprintf("%s: %.2f ips @ %s", r.Label(), meas.Balance.AmpIPS, rotor.ClockLabel(meas.Balance.PhaseDeg))
	m.persist()
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenMenu:
		body = m.viewMenu()
	case screenAdjust:
		body = m.viewAdjust()
	case screenAcquire:
		body = m.viewAcquire()
	case screenReport:
		body = report.Results(m.sess.Run(), m.sess.Measurements(m.sess.Run()), m.sess.Solver(), report.Options{Color: true})
	case screenSolution:
		body = report.Solution(m.sess.Run(), m.sess.Measurements(m.sess.Run()), m.sess.Solver(), m.sess.Limits(), report.Options{Color: true})
	case screenTrend:
		body = m.viewTrend()
	case screenLog:
		body = m.viewLog()
	}

	var sb strings.Builder
	sb.WriteString(title.Render(fmt.Sprintf("VXP TRAINER  run %d/%d", m.sess.Run(), m.sess.MaxRuns())))
	if m.sess.Passed() {
		sb.WriteString("  " + green.Render("PASSED"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(panel.Render(body))
	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(yellow.Render(m.status) + "\n")
	}
	return sb.String()
}

func (m Model) viewMenu() string {
	var sb strings.Builder
	sb.WriteString(white.Render("MAIN ROTOR") + "\n\n")
	for i, item := range menu {
		if i == m.cursor {
			sb.WriteString(selected.Render("> "+item.label) + "\n")
		} else {
			sb.WriteString("  " + item.label + "\n")
		}
	}
	sb.WriteString("\n" + keyHint.Render("j/k move  enter open  n next run  q quit"))
	return sb.String()
}

func (m Model) viewAdjust() string {
	r := rotor.Regimes[m.regime]
	adj := m.sess.Adjustments()

	var sb strings.Builder
	sb.WriteString(cyan.Render("ADJUSTMENTS  "+r.Label()) + "\n\n")
	sb.WriteString(fmt.Sprintf("%-6s", ""))
	for i, name := range fieldNames {
		cell := fmt.Sprintf("%11s", name)
		if i == m.field {
			cell = magenta.Render(cell)
		}
		sb.WriteString(cell)
	}
	sb.WriteString("\n")
	for i, b := range rotor.Blades {
		v := adj.Get(r, b)
		line := fmt.Sprintf("%-6s%11.2f%11.2f%11.0f", b, v.PitchTurns, v.TrimMM, v.BoltG)
		if i == m.blade {
			line = selected.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	if !r.ForwardFlight() {
		sb.WriteString(dim.Render("trim tabs act in forward flight only") + "\n")
	}
	sb.WriteString("\n" + keyHint.Render("tab regime  j/k blade  f field  h/l change  0 clear  q back"))
	return sb.String()
}

func (m Model) viewAcquire() string {
	run := m.sess.Run()
	var sb strings.Builder
	sb.WriteString(cyan.Render(fmt.Sprintf("ACQUIRE  run %d", run)) + "\n\n")
	for _, st := range m.sess.Evaluate(run) {
		mark := dim.Render("NOT ACQUIRED")
		if st.Present {
			if st.OK() {
				mark = green.Render(fmt.Sprintf("spread %4.1f mm  %.3f ips  OK", st.Spread, st.AmpIPS))
			} else {
				mark = red.Render(fmt.Sprintf("spread %4.1f mm  %.3f ips  OUT", st.Spread, st.AmpIPS))
			}
		}
		sb.WriteString(fmt.Sprintf("%-18s  %s\n", st.Regime.Label(), mark))
	}
	sb.WriteString("\n" + keyHint.Render("g ground  h hover  f horizontal  a all  q back"))
	return sb.String()
}

// viewTrend plots the worst balance reading of every acquired run.
func (m Model) viewTrend() string {
	runs := m.sess.RunSet().Runs()
	worst := metrics.NewWorstBalance()
	series := make([]float64, 0, len(runs))
	for _, run := range runs {
		worst.Reset()
		worst.Observe(m.sess.Measurements(run))
		series = append(series, worst.Value())
	}
	if len(series) == 0 {
		return dim.Render("no runs acquired yet")
	}
	if len(series) == 1 {
		series = append(series, series[0])
	}
	return asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Width(40),
		asciigraph.Precision(3),
		asciigraph.Caption("worst balance (ips) per run"),
	)
}

func (m Model) viewLog() string {
	events := m.sess.Events()
	limit := m.height - 8
	if limit < 5 {
		limit = 5
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.String()
	}
	if len(lines) == 0 {
		return dim.Render("(empty)")
	}
	return strings.Join(lines, "\n")
}
