package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the complete configuration for the service.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	GPSWox GPSWoxConfig `mapstructure:"gpswox"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Report ReportConfig `mapstructure:"report"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateWindowSec int           `mapstructure:"rate_window"`
	TrustProxy    bool          `mapstructure:"trust_proxy"`
}

// GPSWoxConfig holds the provider account and request tuning.
type GPSWoxConfig struct {
	APIURL           string        `mapstructure:"api_url"`
	Email            string        `mapstructure:"email"`
	Password         string        `mapstructure:"password"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	ProbeRetries     int           `mapstructure:"probe_retries"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	DriverEndpoints  []string      `mapstructure:"driver_endpoints"`
	HistoryEndpoints []string      `mapstructure:"history_endpoints"`
	HistoryBatchSize int           `mapstructure:"history_batch_size"`
}

// RedisConfig holds the session cache settings. An empty Addr keeps the
// session token in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// MongoConfig holds the snapshot store settings. An empty URI disables
// snapshots.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// MQTTConfig holds the publisher settings. An empty BrokerURL disables
// publishing.
type MQTTConfig struct {
	BrokerURL string `mapstructure:"broker_url"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Topic     string `mapstructure:"topic"`
	QoS       byte   `mapstructure:"qos"`
}

// AuthConfig holds the bearer-token settings for API callers.
type AuthConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	TokenExpiry      time.Duration `mapstructure:"token_expiry"`
	ClientID         string        `mapstructure:"client_id"`
	ClientSecretHash string        `mapstructure:"client_secret_hash"`
	ClientRole       string        `mapstructure:"client_role"`
}

// ReportConfig holds the fleet report thresholds.
type ReportConfig struct {
	OverspeedKmh float64 `mapstructure:"overspeed_kmh"`
	HighKmh      float64 `mapstructure:"high_kmh"`
	CriticalKmh  float64 `mapstructure:"critical_kmh"`
	MovingKmh    float64 `mapstructure:"moving_kmh"`
	StopMinutes  float64 `mapstructure:"stop_minutes"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	ErrMissingGPSWoxURL         = errors.New("GPSWOX_API_URL is required")
	ErrMissingGPSWoxCredentials = errors.New("GPSWOX_EMAIL and GPSWOX_PASSWORD are required")
	ErrMissingJWTSecret         = errors.New("AUTH_JWT_SECRET is required when auth is enabled")
)

// Load reads configuration from an optional file, a .env file and the
// environment. Keys map to env vars by upper-casing and replacing dots with
// underscores (gpswox.api_url is GPSWOX_API_URL).
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.GPSWox.DriverEndpoints = cleanList(cfg.GPSWox.DriverEndpoints)
	cfg.GPSWox.HistoryEndpoints = cleanList(cfg.GPSWox.HistoryEndpoints)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", 60)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("gpswox.api_url", "")
	v.SetDefault("gpswox.email", "")
	v.SetDefault("gpswox.password", "")
	v.SetDefault("gpswox.request_timeout", "15s")
	v.SetDefault("gpswox.probe_timeout", "8s")
	v.SetDefault("gpswox.max_retries", 3)
	v.SetDefault("gpswox.probe_retries", 1)
	v.SetDefault("gpswox.session_ttl", "1h")
	v.SetDefault("gpswox.driver_endpoints", []string{})
	v.SetDefault("gpswox.history_endpoints", []string{})
	v.SetDefault("gpswox.history_batch_size", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "gpswox:session")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "fleet_tracking")
	v.SetDefault("mongo.collection", "report_snapshots")

	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "fleet")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiry", "24h")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret_hash", "")
	v.SetDefault("auth.client_role", "viewer")

	v.SetDefault("report.overspeed_kmh", 80)
	v.SetDefault("report.high_kmh", 90)
	v.SetDefault("report.critical_kmh", 120)
	v.SetDefault("report.moving_kmh", 2)
	v.SetDefault("report.stop_minutes", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GPSWox.APIURL) == "" {
		return ErrMissingGPSWoxURL
	}
	if c.GPSWox.Email == "" || c.GPSWox.Password == "" {
		return ErrMissingGPSWoxCredentials
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// cleanList trims entries, drops empty ones and splits values that arrived
// as one comma separated string.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
