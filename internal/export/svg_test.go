package export

import (
	"strings"
	"testing"

	"github.com/san-kum/vxpsim/internal/rotor"
)

func TestPolarToSVG(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Ground: {Regime: rotor.Ground, Balance: rotor.BalanceReading{AmpIPS: 0.30, PhaseDeg: 125, RPM: 433}},
		rotor.Hover:  {Regime: rotor.Hover, Balance: rotor.BalanceReading{AmpIPS: 0.12, PhaseDeg: 110, RPM: 433}},
	}
	svg := PolarToSVG(PointsFromSet(set), 0, 400)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not a complete SVG document")
	}
	for _, want := range []string{"GROUND 0.30@04:00", "HOVER 0.12@03:30", ">YEL<", ">GRN<", "0.50 ips full scale"} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestPolarToSVGEmpty(t *testing.T) {
	svg := PolarToSVG(nil, 0, 200)
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("empty chart should still be a document")
	}
	if strings.Contains(svg, "NaN") {
		t.Error("empty chart should not contain NaN coordinates")
	}
}

func TestPointsFromSetOrder(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Horizontal: {Regime: rotor.Horizontal},
		rotor.Ground:     {Regime: rotor.Ground},
	}
	points := PointsFromSet(set)
	if len(points) != 2 || points[0].Label != "GROUND" || points[1].Label != "HORIZONTAL" {
		t.Errorf("unexpected points %+v", points)
	}
	if points[0].Color != RegimeColors[rotor.Ground] {
		t.Error("expected regime color")
	}
}

func TestNiceCeil(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0.30, 0.5},
		{0.12, 0.2},
		{0.05, 0.05},
		{0.9, 1},
		{0, 0},
	}
	for _, tt := range tests {
		if got := niceCeil(tt.in); got < tt.want-1e-12 || got > tt.want+1e-12 {
			t.Errorf("niceCeil(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	if TrajectoryToSVG([]Point{{0, 0}}, 100, 100, "#fff") != "" {
		t.Error("single point should produce nothing")
	}
	svg := TrajectoryToSVG([]Point{{1, 0.3}, {2, 0.2}, {3, 0.05}}, 100, 100, "#fff")
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected two line segments: %s", svg)
	}
}
