package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestAdjustEditor(t *testing.T) {
	sess := session.New(session.DefaultOptions())
	saves := 0
	m := New(sess, func(*session.Session) error { saves++; return nil })

	// Adjustments, horizontal regime, GRN blade, trim field, two steps up.
	m = press(t, m, "enter", "tab", "tab", "j", "f", "l", "l")

	got := sess.Adjustments().Get(rotor.Horizontal, rotor.GRN)
	if got.TrimMM != 0.5 {
		t.Errorf("expected trim 0.5, got %+v", got)
	}
	if saves != 2 {
		t.Errorf("expected 2 saves, got %d", saves)
	}

	m = press(t, m, "f", "h")
	if got := sess.Adjustments().Get(rotor.Horizontal, rotor.GRN).BoltG; got != 0 {
		t.Errorf("bolt weight must not go negative, got %v", got)
	}

	m = press(t, m, "0")
	if got := sess.Adjustments().Get(rotor.Horizontal, rotor.GRN); got != (rotor.BladeAdjustment{}) {
		t.Errorf("expected cleared adjustment, got %+v", got)
	}

	m = press(t, m, "esc")
	if m.screen != screenMenu {
		t.Error("esc should return to the menu")
	}
}

func TestAcquireScreen(t *testing.T) {
	sess := session.New(session.DefaultOptions())
	m := New(sess, nil)

	m = press(t, m, "j", "enter", "h")
	if sess.State(1, rotor.Hover) != session.Acquired {
		t.Fatal("expected hover acquired")
	}
	if !strings.Contains(m.status, "Hover Flight") {
		t.Errorf("unexpected status %q", m.status)
	}

	m = press(t, m, "a")
	if !sess.RunSet().Complete(1) {
		t.Error("expected run complete")
	}
	if !strings.Contains(m.View(), "100% Ground") {
		t.Error("acquire view should list regimes")
	}
}

func TestNextRunFromMenu(t *testing.T) {
	opts := session.DefaultOptions()
	opts.MaxRuns = 2
	sess := session.New(opts)
	m := New(sess, nil)

	m = press(t, m, "n")
	if sess.Run() != 2 {
		t.Fatalf("expected run 2, got %d", sess.Run())
	}
	m = press(t, m, "n")
	if m.status != session.ErrLastRun.Error() {
		t.Errorf("expected last-run status, got %q", m.status)
	}
}

func TestSaveFailureShown(t *testing.T) {
	sess := session.New(session.DefaultOptions())
	m := New(sess, func(*session.Session) error { return errors.New("disk full") })

	m = press(t, m, "j", "enter", "g")
	if !strings.Contains(m.status, "disk full") {
		t.Errorf("expected save error in status, got %q", m.status)
	}
}

func TestViews(t *testing.T) {
	sess := session.New(session.DefaultOptions())
	m := New(sess, nil)

	for i := range menu {
		m.screen = menu[i].target
		if m.View() == "" {
			t.Errorf("%s: empty view", menu[i].label)
		}
	}

	m.screen = screenTrend
	if !strings.Contains(m.View(), "no runs acquired yet") {
		t.Error("trend should say when nothing is acquired")
	}
	m = press(t, New(sess, nil), "j", "enter", "a", "esc")
	m.screen = screenTrend
	if !strings.Contains(m.View(), "worst balance") {
		t.Error("expected trend caption")
	}
}
