// internal/workers/pairing/calculate-pairings/config.go
package calculatepairings

import (
	"time"

	"pairing-workers/internal/common/config"
	"pairing-workers/internal/pairing"
)

type Config struct {
	Timeout time.Duration
	// Defaults applied to parameters the job omits.
	Defaults pairing.Options
}

func LoadConfig(wc config.WorkerConfig, pc config.PairingConfig) *Config {
	cfg := &Config{
		Timeout: 60 * time.Second,
		Defaults: pairing.Options{
			CooldownDays: pc.DefaultCooldownDays,
			MaxRisk:      pc.DefaultMaxRisk,
		},
	}
	if wc.Timeout > 0 {
		cfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return cfg
}
