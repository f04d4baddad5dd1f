package sim

const (
	DefaultPitchLinkMMPerTurn = 10.0
	DefaultTrimTabMMPerMM     = 15.0
	DefaultBoltIPSPerGram     = 0.0020
	DefaultTrackSigmaMM       = 0.45
	DefaultBalanceSigmaIPS    = 0.003
	DefaultRPM                = 433.0

	// below this magnitude the balance phase is reported as 0
	phaseEpsilon = 1e-6
)

// Coefficients are the linear response laws of the trainer. They are
// calibrated for plausible operator feedback, not validated aerodynamics.
type Coefficients struct {
	PitchLinkMMPerTurn float64 `yaml:"pitchlink_mm_per_turn" json:"pitchlink_mm_per_turn"`
	TrimTabMMPerMM     float64 `yaml:"trimtab_mm_per_mm" json:"trimtab_mm_per_mm"`
	BoltIPSPerGram     float64 `yaml:"bolt_ips_per_gram" json:"bolt_ips_per_gram"`
	TrackSigmaMM       float64 `yaml:"track_sigma_mm" json:"track_sigma_mm"`
	BalanceSigmaIPS    float64 `yaml:"balance_sigma_ips" json:"balance_sigma_ips"`
	RPM                float64 `yaml:"rpm" json:"rpm"`
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		PitchLinkMMPerTurn: DefaultPitchLinkMMPerTurn,
		TrimTabMMPerMM:     DefaultTrimTabMMPerMM,
		BoltIPSPerGram:     DefaultBoltIPSPerGram,
		TrackSigmaMM:       DefaultTrackSigmaMM,
		BalanceSigmaIPS:    DefaultBalanceSigmaIPS,
		RPM:                DefaultRPM,
	}
}
