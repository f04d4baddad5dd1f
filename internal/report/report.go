// Package report renders measurements and solutions as fixed-width text in
// the layout of the legacy track and balance analyzer.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/solver"
)

const (
	colWidth = 8
	// tabDegPerMM converts trim-tab bend to the legacy TabS5/TabS6 readout.
	tabDegPerMM = 0.8
	rule        = "=============================================================="
)

var (
	BladeColor = map[rotor.Blade]lipgloss.Color{
		rotor.BLU: lipgloss.Color("#3b82f6"),
		rotor.GRN: lipgloss.Color("#22c55e"),
		rotor.YEL: lipgloss.Color("#eab308"),
		rotor.RED: lipgloss.Color("#ef4444"),
	}
	RegimeColor = map[rotor.Regime]lipgloss.Color{
		rotor.Ground:     lipgloss.Color("#d0d0d0"),
		rotor.Hover:      lipgloss.Color("#60a5fa"),
		rotor.Horizontal: lipgloss.Color("#4ade80"),
	}
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

// Options control rendering. Color off gives plain text for files and tests.
type Options struct {
	Color bool
}

type painter struct{ color bool }

func (p painter) paint(c lipgloss.Color, s string) string {
	if !p.color {
		return s
	}
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func (p painter) regime(r rotor.Regime) string {
	return p.paint(RegimeColor[r], fmt.Sprintf("%-18s", r.Label()))
}

func (p painter) verdict(ok bool) string {
	if !ok {
		if p.color {
			return failStyle.Render("FAIL")
		}
		return "FAIL"
	}
	if p.color {
		return passStyle.Render("OK")
	}
	return "OK"
}

func header(lines []string, run int) []string {
	return append(lines,
		"BO105   MAIN ROTOR   TRACK & BALANCE",
		"OPTION: B   STROBEX MODE: B",
		fmt.Sprintf("RUN: %d   ID: TRAINING", run),
		"",
	)
}

// Results renders the measurements of one run, the solution options and the
// predicted split.
func Results(run int, set rotor.MeasurementSet, sv *solver.Solver, opts Options) string {
	p := painter{color: opts.Color}
	lines := header(nil, run)
	present := set.Present()

	lines = append(lines, "----- Balance Measurements -----")
	for _, r := range present {
		b := set[r].Balance
		lines = append(lines, fmt.Sprintf("%s  1P %0.2f IPS  %5s  RPM:%0.0f", p.regime(r), b.AmpIPS, rotor.ClockLabel(b.PhaseDeg), b.RPM))
	}
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("----- Track Height (mm rel. %s) -----", rotor.ReferenceBlade))
	for _, r := range present {
		parts := make([]string, 0, len(rotor.Blades))
		for _, b := range rotor.Blades {
			parts = append(parts, p.paint(BladeColor[b], fmt.Sprintf("%s:%+5.1f", b, set[r].Track[b])))
		}
		lines = append(lines, p.regime(r)+"  "+strings.Join(parts, "  "))
	}

	lines = append(lines, "", "----- Solution Options -----")
	if len(present) == 0 {
		lines = append(lines, "(No regimes collected yet)", "")
		return strings.Join(lines, "\n")
	}

	labels := make([]string, len(present))
	for i, r := range present {
		labels[i] = r.Label()
	}
	lines = append(lines,
		"SOLUTION TYPE: BALANCE",
		"REGIMES USED: "+strings.Join(labels, ", "),
		"USED: Pitch link, Trim tab, Weight",
		"",
		"Adjustments",
	)

	sol := sv.Solve(set)
	tabs := make(map[rotor.Blade]float64, len(rotor.Blades))
	weights := make(map[rotor.Blade]float64, len(rotor.Blades))
	for _, b := range rotor.Blades {
		tabs[b] = sol.TrimTab[b] * tabDegPerMM
	}
	weights[sol.WeightBlade] = sol.WeightG

	lines = append(lines,
		p.bladeHeader("P/L(flats)"), p.bladeRow(sol.PitchLink, "%.2f"),
		p.bladeHeader("TabS5(deg)"), p.bladeRow(tabs, "%.1f"),
		p.bladeHeader("TabS6(deg)"), p.bladeRow(tabs, "%.1f"),
		p.bladeHeader("Wt(plqts)"), p.bladeRow(weights, "%.0f"),
	)

	lines = append(lines, "", "----- Prediction -----")
	for _, r := range present {
		lines = append(lines, fmt.Sprintf("%s  M/R L   %0.2f", p.regime(r), set[r].Balance.AmpIPS))
	}
	lines = append(lines, "Track Split")
	for _, r := range present {
		lines = append(lines, fmt.Sprintf("%s  %0.2f", p.regime(r), compliance.TrackSpread(set[r])))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (p painter) bladeHeader(label string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s", label))
	for _, b := range rotor.Blades {
		sb.WriteString(p.paint(BladeColor[b], fmt.Sprintf("%*s", colWidth, b)))
	}
	return sb.String()
}

func (p painter) bladeRow(vals map[rotor.Blade]float64, format string) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", 12))
	for _, b := range rotor.Blades {
		sb.WriteString(p.paint(BladeColor[b], fmt.Sprintf("%*s", colWidth, fmt.Sprintf(format, vals[b]))))
	}
	return sb.String()
}

// Solution renders per-regime compliance and the suggested corrections.
func Solution(run int, set rotor.MeasurementSet, sv *solver.Solver, limits compliance.Limits, opts Options) string {
	p := painter{color: opts.Color}
	lines := header(nil, run)

	for _, st := range limits.Evaluate(set) {
		if !st.Present {
			continue
		}
		b := set[st.Regime].Balance
		lines = append(lines,
			rule,
			"REGIME: "+st.Regime.Label(),
			fmt.Sprintf("TRACK SPREAD: %0.1f mm   (limit %0.0f mm)  %s", st.Spread, st.TrackLimit, p.verdict(st.TrackOK)),
			fmt.Sprintf("BALANCE: %0.3f ips @ %s   (limit %0.2f ips)  %s", b.AmpIPS, rotor.ClockLabel(b.PhaseDeg), st.BalanceLimit, p.verdict(st.BalanceOK)),
			"",
		)
	}

	sol := sv.Solve(set)
	lines = append(lines, rule, "SUGGESTED CORRECTIONS (training)", "",
		"Pitch links (turns)  [CW lowers tip / CCW raises tip]")
	for _, b := range rotor.Blades {
		lines = append(lines, fmt.Sprintf("  %s: %+0.2f", b, sol.PitchLink[b]))
	}
	lines = append(lines, "", "Trim tabs (mm)  [Down lowers tip / Up raises tip]  (horizontal only)")
	for _, b := range rotor.Blades {
		lines = append(lines, fmt.Sprintf("  %s: %+0.2f", b, sol.TrimTab[b]))
	}
	lines = append(lines, "", "Balance weight (ground/hover/horizontal: pick worst reading)")
	if len(set) == 0 {
		lines = append(lines, "  (no balance readings)")
	} else {
		lines = append(lines, fmt.Sprintf("  Add ~%0.0f g at blade bolt: %s", sol.WeightG, sol.WeightBlade))
	}
	lines = append(lines, "", "NOTE: Training output only. Not for real aircraft work.")
	return strings.Join(lines, "\n")
}

// Status renders the acquisition grid of a run: one line per regime.
func Status(run int, states map[rotor.Regime]bool, opts Options) string {
	p := painter{color: opts.Color}
	lines := []string{fmt.Sprintf("RUN %d", run)}
	for _, r := range rotor.Regimes {
		mark := "NOT ACQUIRED"
		if states[r] {
			mark = "ACQUIRED"
		}
		lines = append(lines, fmt.Sprintf("  %s  %s", p.regime(r), mark))
	}
	return strings.Join(lines, "\n")
}
