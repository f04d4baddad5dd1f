// Package analysis recovers balance readings from accelerometer traces.
//
// A trace is synthesized from a balance reading: the 1/rev component carries
// the reading's amplitude and clock phase, a smaller 4/rev blade-pass
// component and sensor noise are added on top. [Extract] runs an FFT over an
// integer number of revolutions and reads the 1/rev bin back:
//
//	tr := analysis.Synthesize(m.Balance, analysis.DefaultTraceConfig(), src)
//	got := analysis.Extract(tr)
//
// [OrderSpectrum] gives the amplitude per rotor order for plotting.
package analysis
