package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/vxpsim/internal/rotor"
)

// PolarPoint is one balance reading drawn on the clock chart.
type PolarPoint struct {
	Label   string
	Color   string
	Balance rotor.BalanceReading
}

var RegimeColors = map[rotor.Regime]string{
	rotor.Ground:     "#ffb000",
	rotor.Hover:      "#00c8ff",
	rotor.Horizontal: "#ff4fd8",
}

var BladeColors = map[rotor.Blade]string{
	rotor.BLU: "#3b82f6",
	rotor.GRN: "#22c55e",
	rotor.YEL: "#eab308",
	rotor.RED: "#ef4444",
}

// PointsFromSet returns one point per present regime in canonical order.
func PointsFromSet(set rotor.MeasurementSet) []PolarPoint {
	points := make([]PolarPoint, 0, len(set))
	for _, r := range set.Present() {
		points = append(points, PolarPoint{
			Label:   r.String(),
			Color:   RegimeColors[r],
			Balance: set[r].Balance,
		})
	}
	return points
}

// PolarToSVG draws balance readings on a clock face: 12 o'clock up, phase
// clockwise, amplitude radial. maxAmp <= 0 scales to the largest reading.
func PolarToSVG(points []PolarPoint, maxAmp float64, size int) string {
	if maxAmp <= 0 {
		for _, p := range points {
			maxAmp = math.Max(maxAmp, p.Balance.AmpIPS)
		}
		maxAmp = niceCeil(maxAmp)
	}
	if maxAmp <= 0 {
		maxAmp = 1
	}

	c := float64(size) / 2
	radius := c * 0.8

	toXY := func(amp, clock float64) (float64, float64) {
		v := rotor.VectorFromClock(clock).Scale(amp / maxAmp * radius)
		return c + v.X, c - v.Y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="none" stroke="#2a2a2a">
`, size, size, size, size))

	for i := 1; i <= 4; i++ {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, c, c, radius*float64(i)/4))
	}
	for h := 0; h < 12; h++ {
		x, y := toXY(maxAmp, float64(h)*30)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, c, c, x, y))
	}
	sb.WriteString("</g>\n<g font-family=\"monospace\" font-size=\"11\">\n")

	for _, b := range rotor.Blades {
		x, y := toXY(maxAmp*1.12, b.ClockDeg())
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="%s" text-anchor="middle">%s</text>
`, x, y+4, BladeColors[b], b))
	}
	sb.WriteString(fmt.Sprintf(`<text x="4" y="%d" fill="#808080">%.2f ips full scale</text>
`, size-6, maxAmp))

	for _, p := range points {
		x, y := toXY(p.Balance.AmpIPS, p.Balance.PhaseDeg)
		color := p.Color
		if color == "" {
			color = "#00ff00"
		}
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
<text x="%.1f" y="%.1f" fill="%s">%s %.2f@%s</text>
`, c, c, x, y, color, x, y, color, x+6, y-6, color, p.Label, p.Balance.AmpIPS, rotor.ClockLabel(p.Balance.PhaseDeg)))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// niceCeil rounds up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 0
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp+1e-12 {
			return m * exp
		}
	}
	return 10 * exp
}

type Point struct{ X, Y float64 }

// TrajectoryToSVG creates an SVG polyline from a series of points.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
