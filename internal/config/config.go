package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/sim"
)

const (
	DefaultMaxRuns    = session.DefaultMaxRuns
	DefaultMQTTBroker = "tcp://localhost:1883"
	DefaultMQTTTopic  = "vxp"
	DefaultServeAddr  = ":8090"
)

// ErrInvalidCoefficient indicates a response coefficient that is zero or
// negative. The solver divides by every one of them.
var ErrInvalidCoefficient = errors.New("config: coefficient must be positive")

type Config struct {
	Seed            int64             `yaml:"seed"`
	MaxRuns         int               `yaml:"max_runs"`
	KeepAdjustments bool              `yaml:"keep_adjustments"`
	Coefficients    sim.Coefficients  `yaml:"coefficients"`
	Limits          compliance.Limits `yaml:"limits"`
	Aircraft        session.Aircraft  `yaml:"aircraft"`
	Adjustments     rotor.Adjustments `yaml:"adjustments,omitempty"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Serve           ServeConfig       `yaml:"serve"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Retain   bool   `yaml:"retain"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxRuns:      DefaultMaxRuns,
		Coefficients: sim.DefaultCoefficients(),
		Limits:       compliance.DefaultLimits(),
		MQTT: MQTTConfig{
			Broker:   DefaultMQTTBroker,
			ClientID: "vxpsim",
			Topic:    DefaultMQTTTopic,
			Retain:   true,
		},
		Serve: ServeConfig{Addr: DefaultServeAddr},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the coefficients the solver inverts.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"pitchlink_mm_per_turn", c.Coefficients.PitchLinkMMPerTurn},
		{"trimtab_mm_per_mm", c.Coefficients.TrimTabMMPerMM},
		{"bolt_ips_per_gram", c.Coefficients.BoltIPSPerGram},
	}
	for _, ch := range checks {
		if !(ch.v > 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalidCoefficient, ch.name, ch.v)
		}
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Seed = c.Seed
	opts.MaxRuns = c.MaxRuns
	opts.KeepAdjustments = c.KeepAdjustments
	opts.Coefficients = c.Coefficients
	opts.Limits = c.Limits
	return opts
}
