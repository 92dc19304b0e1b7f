// internal/workers/pairing/get-pairing-details/config.go
package getpairingdetails

import (
	"time"

	"pairing-workers/internal/common/config"
	"pairing-workers/internal/pairing"
)

type Config struct {
	Timeout      time.Duration
	Defaults     pairing.Options
	HistoryLimit int
	Suggestions  int
	Attempts     int
}

func LoadConfig(wc config.WorkerConfig, pc config.PairingConfig) *Config {
	cfg := &Config{
		Timeout: 30 * time.Second,
		Defaults: pairing.Options{
			CooldownDays: pc.DefaultCooldownDays,
			MaxRisk:      pc.DefaultMaxRisk,
		},
		HistoryLimit: pc.DetailHistoryLimit,
		Suggestions:  pc.DetailSuggestions,
		Attempts:     pc.DetailSampleAttempts,
	}
	if wc.Timeout > 0 {
		cfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return cfg
}
