package rotor

import (
	"fmt"
	"math"
)

type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// VectorFromClock maps a clock angle to a unit vector. The clock angle is
// converted to a mathematical angle phi = 90° - theta.
func VectorFromClock(thetaDeg float64) Vec2 {
	phi := (90.0 - thetaDeg) * math.Pi / 180.0
	return Vec2{math.Cos(phi), math.Sin(phi)}
}

// ClockFromVector is the inverse of VectorFromClock, in [0, 360).
// The zero vector has no phase; callers must special-case it.
func ClockFromVector(v Vec2) float64 {
	phi := math.Atan2(v.Y, v.X) * 180.0 / math.Pi
	return NormalizeDeg(90.0 - phi)
}

// NormalizeDeg wraps an angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	if d >= 360.0 {
		d = 0
	}
	return d
}

// ClockLabel renders a clock angle as a 12-hour "HH:MM" label with
// half-hour resolution.
func ClockLabel(thetaDeg float64) string {
	halves := int(math.Round(NormalizeDeg(thetaDeg)/15.0)) % 24
	hour := halves / 2
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%02d:%02d", hour, (halves%2)*30)
}
