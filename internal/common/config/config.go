// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
	Server   ServerConfig            `mapstructure:"server"`
	Registry RegistryConfig          `mapstructure:"registry"`
	Pairing  PairingConfig           `mapstructure:"pairing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig points spans at an OTLP gRPC collector. An empty endpoint keeps them local.
type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
}

// ServerConfig is the health/metrics listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// RegistryConfig points at an activity registry file. Empty uses the embedded registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// PairingConfig holds the engine defaults applied when a job omits a parameter.
type PairingConfig struct {
	DefaultCooldownDays   int     `mapstructure:"default_cooldown_days"`
	DefaultMaxRisk        float64 `mapstructure:"default_max_risk"`
	MaxPairs              int     `mapstructure:"max_pairs"`
	RecentAmountsExcluded int     `mapstructure:"recent_amounts_excluded"`
	DetailHistoryLimit    int     `mapstructure:"detail_history_limit"`
	DetailSuggestions     int     `mapstructure:"detail_suggestions"`
	DetailSampleAttempts  int     `mapstructure:"detail_sample_attempts"`
	SnapshotCacheTTL      int     `mapstructure:"snapshot_cache_ttl"` // seconds, negative disables the cache
	SnapshotCacheKey      string  `mapstructure:"snapshot_cache_key"`
}

// CacheEnabled reports whether snapshots go through Redis.
func (p PairingConfig) CacheEnabled() bool {
	return p.SnapshotCacheTTL >= 0
}

// CacheTTL returns the snapshot cache lifetime.
func (p PairingConfig) CacheTTL() time.Duration {
	return time.Duration(p.SnapshotCacheTTL) * time.Second
}
