// Package rotor defines the data model of the main-rotor track and balance
// trainer.
//
// The package holds the closed enumerations and value types shared by the
// simulator, the compliance checker and the solver:
//
//   - [Blade]: one of the four blades, in fixed order
//   - [Regime]: the flight condition a measurement is taken in
//   - [BalanceReading]: 1/rev vibration vector in clock-angle form
//   - [Measurement]: one acquisition (balance + per-blade track)
//   - [Adjustments]: operator pitch-link, trim-tab and bolt-weight input
//
// Phases are clock angles: 12 o'clock is 0° and angles grow clockwise.
// [VectorFromClock] and [ClockFromVector] convert between clock angles
// and Cartesian vectors.
package rotor
