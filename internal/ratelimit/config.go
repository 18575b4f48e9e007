package ratelimit

import "time"

// Config selects and parameterizes the pacing for one provider. Delay
// feeds the delay gate; RequestsPerSec and Burst feed the windowed
// strategies.
type Config struct {
	Strategy       Strategy      `yaml:"strategy" json:"strategy"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	RequestsPerSec float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst          int           `yaml:"burst" json:"burst"`
}

// DefaultConfig is the unkeyed E-utilities budget, the strictest pacing
// any of the catalog's providers asks for.
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyFixedDelay,
		Delay:          350 * time.Millisecond,
		RequestsPerSec: 3,
		Burst:          3,
	}
}

func applyDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.Delay <= 0 {
		cfg.Delay = def.Delay
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = def.RequestsPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	return cfg
}
