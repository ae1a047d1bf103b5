// Package config loads engine configuration from a YAML file with
// environment variable overrides. The file is optional; every knob has
// a working default so the binary runs with no config at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type OracleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearxConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	PerHostRPS float64       `mapstructure:"per_host_rps"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig bounds one request's traversal. These values feed the
// workflow through an activity so running workflows stay deterministic.
type SchedulerConfig struct {
	MaxConcurrentVisits int           `mapstructure:"max_concurrent_visits"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	GracePeriod         time.Duration `mapstructure:"grace_period"`
	VisitAttempts       int           `mapstructure:"visit_attempts"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ObservabilityConfig struct {
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Tracing struct {
		Enabled      bool   `mapstructure:"enabled"`
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

type Config struct {
	HTTP          HTTPConfig          `mapstructure:"http"`
	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Oracle        OracleConfig        `mapstructure:"oracle"`
	Searx         SearxConfig         `mapstructure:"searx"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Load reads the config file named by CONFIG_PATH (default
// ./config/scour.yaml), applies defaults, then applies env overrides.
// A missing file is not an error.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "./config/scour.yaml"
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "10m")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "scour-tasks")
	v.SetDefault("oracle.base_url", "http://localhost:8090")
	v.SetDefault("oracle.timeout", "2m")
	v.SetDefault("searx.base_url", "http://localhost:8888")
	v.SetDefault("searx.timeout", "60s")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.per_host_rps", 1.0)
	v.SetDefault("fetch.cache_ttl", "15m")
	v.SetDefault("scheduler.max_concurrent_visits", 4)
	v.SetDefault("scheduler.request_timeout", "5m")
	v.SetDefault("scheduler.grace_period", "5s")
	v.SetDefault("scheduler.visit_attempts", 2)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 2112)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("observability.logging.level", "info")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("TEMPORAL_HOST_PORT"); v != "" {
		cfg.Temporal.HostPort = v
	}
	if v := os.Getenv("TEMPORAL_NAMESPACE"); v != "" {
		cfg.Temporal.Namespace = v
	}
	if v := os.Getenv("TEMPORAL_TASK_QUEUE"); v != "" {
		cfg.Temporal.TaskQueue = v
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("SEARX_BASE_URL"); v != "" {
		cfg.Searx.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Observability.Metrics.Port = p
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.OTLPEndpoint = v
		cfg.Observability.Tracing.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Scheduler.RequestTimeout = d
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_VISITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.MaxConcurrentVisits = n
		}
	}
}
