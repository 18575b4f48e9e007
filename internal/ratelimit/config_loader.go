package ratelimit

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// providerDefaults carries the built-in pacing for each provider family.
// The eutils endpoints share one budget regardless of database, the FTP
// mirror tolerates a slightly slower cadence, and RePORTER asks for at
// most one call per second.
var providerDefaults = map[string]Config{
	"eutils": {
		Strategy: StrategyFixedDelay,
		Delay:    350 * time.Millisecond,
	},
	"dbgap_ftp": {
		Strategy: StrategyFixedDelay,
		Delay:    500 * time.Millisecond,
	},
	"nih_reporter": {
		Strategy: StrategyFixedDelay,
		Delay:    1 * time.Second,
	},
}

// SourceConfigs maps provider names to limiter configs.
type SourceConfigs struct {
	RateLimits map[string]Config `yaml:"rate_limits" json:"rate_limits"`
}

// DefaultSourceConfigs returns the built-in per-provider pacing table.
func DefaultSourceConfigs() SourceConfigs {
	limits := make(map[string]Config, len(providerDefaults))
	for name, cfg := range providerDefaults {
		limits[name] = applyDefaults(cfg)
	}
	return SourceConfigs{RateLimits: limits}
}

// LoadSourceConfigs parses YAML bytes into SourceConfigs. Providers absent
// from the file keep their built-in pacing.
func LoadSourceConfigs(data []byte) (SourceConfigs, error) {
	cfgs := DefaultSourceConfigs()
	var parsed SourceConfigs
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return SourceConfigs{}, err
	}
	for name, cfg := range parsed.RateLimits {
		cfgs.RateLimits[name] = applyDefaults(cfg)
	}
	return cfgs, nil
}

// LoadSourceConfigsFile reads a YAML pacing file from disk. An empty path
// yields the built-in table.
func LoadSourceConfigsFile(path string) (SourceConfigs, error) {
	if path == "" {
		return DefaultSourceConfigs(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceConfigs{}, err
	}
	return LoadSourceConfigs(data)
}

// For returns the limiter config for a provider. Unknown providers fall
// back to the eutils budget, the strictest of the built-ins.
func (s SourceConfigs) For(source string) Config {
	if cfg, ok := s.RateLimits[source]; ok {
		return applyDefaults(cfg)
	}
	if cfg, ok := providerDefaults[source]; ok {
		return applyDefaults(cfg)
	}
	return DefaultConfig()
}
