package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "EXPLORATION_"

type Config struct {
	Log         LogConfig         `toml:"log" envPrefix:"LOG_"`
	DB          DBConfig          `toml:"db" envPrefix:"DB_"`
	HTTP        HTTPConfig        `toml:"http" envPrefix:"HTTP_"`
	Progression ProgressionConfig `toml:"progression" envPrefix:"PROGRESSION_"`
	Notify      NotifyConfig      `toml:"notify" envPrefix:"NOTIFY_"`
	Telemetry   TelemetryConfig   `toml:"telemetry" envPrefix:"OTEL_"`
}

type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
	Color bool   `toml:"color" env:"COLOR"`
}

type DBConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver       string `toml:"driver" env:"DRIVER"`
	Host         string `toml:"host" env:"HOST"`
	Port         int    `toml:"port" env:"PORT"`
	User         string `toml:"user" env:"USER"`
	Password     string `toml:"password" env:"PASSWORD"`
	Database     string `toml:"database" env:"DATABASE"`
	SSLMode      string `toml:"ssl_mode" env:"SSL_MODE"`
	PoolSize     int    `toml:"pool_size" env:"POOL_SIZE"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxLifetime  int    `toml:"max_lifetime" env:"MAX_LIFETIME"`
	SQLitePath   string `toml:"sqlite_path" env:"SQLITE_PATH"`
}

type HTTPConfig struct {
	Addr      string `toml:"addr" env:"ADDR"`
	JWTSecret string `toml:"jwt_secret" env:"JWT_SECRET"`
}

type ProgressionConfig struct {
	VisitReward      int64 `toml:"visit_reward" env:"VISIT_REWARD"`
	LeaderboardLimit int   `toml:"leaderboard_limit" env:"LEADERBOARD_LIMIT"`
	// TxTimeout bounds a single store transaction, in seconds.
	TxTimeout int `toml:"tx_timeout" env:"TX_TIMEOUT"`
}

func (c ProgressionConfig) TxTimeoutDuration() time.Duration {
	return time.Duration(c.TxTimeout) * time.Second
}

type NotifyConfig struct {
	Workers    int `toml:"workers" env:"WORKERS"`
	QueueSize  int `toml:"queue_size" env:"QUEUE_SIZE"`
	DedupeSize int `toml:"dedupe_size" env:"DEDUPE_SIZE"`
}

type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector address. Tracing is off when empty.
	Endpoint    string `toml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `toml:"insecure" env:"INSECURE"`
	ServiceName string `toml:"service_name" env:"SERVICE_NAME"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Color: true},
		DB: DBConfig{
			Driver:     "sqlite",
			Host:       "localhost",
			Port:       5432,
			User:       "postgres",
			Database:   "exploration",
			SSLMode:    "disable",
			PoolSize:   10,
			SQLitePath: "exploration.db",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Progression: ProgressionConfig{
			VisitReward:      5,
			LeaderboardLimit: 100,
			TxTimeout:        10,
		},
		Notify: NotifyConfig{
			Workers:    2,
			QueueSize:  256,
			DedupeSize: 1024,
		},
		Telemetry: TelemetryConfig{ServiceName: "exploration"},
	}
}

// Load decodes the TOML file at path over the defaults and then applies
// EXPLORATION_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		if err = toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.DB.Driver))
	}
	if c.Progression.VisitReward <= 0 {
		errs = append(errs, fmt.Errorf("progression.visit_reward must be positive, got %d", c.Progression.VisitReward))
	}
	if c.Progression.TxTimeout <= 0 {
		errs = append(errs, fmt.Errorf("progression.tx_timeout must be positive, got %d", c.Progression.TxTimeout))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, fmt.Errorf("notify.workers must be positive, got %d", c.Notify.Workers))
	}
	if c.Notify.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("notify.queue_size must be positive, got %d", c.Notify.QueueSize))
	}
	return errors.Join(errs...)
}
