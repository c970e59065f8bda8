package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	Retention      string `mapstructure:"retention"`
	// MaintenanceSchedule is a cron expression for the nightly purge/vacuum job.
	MaintenanceSchedule string `mapstructure:"maintenance_schedule"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MonitoringConfig drives the engine cycle and its bounded stores.
type MonitoringConfig struct {
	Enabled           bool         `mapstructure:"enabled"`
	Interval          string       `mapstructure:"interval"`
	MinSleep          string       `mapstructure:"min_sleep"`
	CollectionTimeout string       `mapstructure:"collection_timeout"`
	MetricBufferSize  int          `mapstructure:"metric_buffer_size"`
	AlertRetention    string       `mapstructure:"alert_retention"`
	CorrelationWindow string       `mapstructure:"correlation_window"`
	RulesPath         string       `mapstructure:"rules_path"`
	MaxAlerts         int          `mapstructure:"max_alerts"`
	Health            HealthConfig `mapstructure:"health"`
}

// HealthConfig holds the fixed per-component status thresholds.
type HealthConfig struct {
	WarningThreshold  float64 `mapstructure:"warning_threshold"`
	CriticalThreshold float64 `mapstructure:"critical_threshold"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Load reads configuration from configs/config.yaml with env overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("database.path", "./data/sentinel.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.retention", "720h")
	viper.SetDefault("database.maintenance_schedule", "0 3 * * *")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.interval", "30s")
	viper.SetDefault("monitoring.min_sleep", "1s")
	viper.SetDefault("monitoring.collection_timeout", "5s")
	viper.SetDefault("monitoring.metric_buffer_size", 1000)
	viper.SetDefault("monitoring.alert_retention", "168h")
	viper.SetDefault("monitoring.correlation_window", "1h")
	viper.SetDefault("monitoring.rules_path", "./configs/rules.yaml")
	viper.SetDefault("monitoring.max_alerts", 10000)
	viper.SetDefault("monitoring.health.warning_threshold", 70)
	viper.SetDefault("monitoring.health.critical_threshold", 90)

	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)
}

// Duration parses a duration field, falling back to def on empty or bad input.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
