package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Server.TrustProxy)
	assert.Equal(t, 15*time.Second, cfg.GPSWox.RequestTimeout)
	assert.Equal(t, 8*time.Second, cfg.GPSWox.ProbeTimeout)
	assert.Equal(t, 3, cfg.GPSWox.MaxRetries)
	assert.Equal(t, 1, cfg.GPSWox.ProbeRetries)
	assert.Equal(t, time.Hour, cfg.GPSWox.SessionTTL)
	assert.Equal(t, 5, cfg.GPSWox.HistoryBatchSize)
	assert.Empty(t, cfg.GPSWox.DriverEndpoints)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, "report_snapshots", cfg.Mongo.Collection)
	assert.Equal(t, "fleet", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, 80.0, cfg.Report.OverspeedKmh)
	assert.Equal(t, 90.0, cfg.Report.HighKmh)
	assert.Equal(t, 120.0, cfg.Report.CriticalKmh)
	assert.Equal(t, 2.0, cfg.Report.MovingKmh)
	assert.Equal(t, 30.0, cfg.Report.StopMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_TRUST_PROXY", "true")
	t.Setenv("GPSWOX_API_URL", "tracking.example.com")
	t.Setenv("GPSWOX_EMAIL", "ops@example.com")
	t.Setenv("GPSWOX_PASSWORD", "secret")
	t.Setenv("GPSWOX_PROBE_TIMEOUT", "3s")
	t.Setenv("GPSWOX_DRIVER_ENDPOINTS", "{base}/a?h={hash}, {base}/b?h={hash}")
	t.Setenv("GPSWOX_HISTORY_BATCH_SIZE", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWT_SECRET", "jwt")
	t.Setenv("REPORT_OVERSPEED_KMH", "70")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, "tracking.example.com", cfg.GPSWox.APIURL)
	assert.Equal(t, "ops@example.com", cfg.GPSWox.Email)
	assert.Equal(t, 3*time.Second, cfg.GPSWox.ProbeTimeout)
	assert.Equal(t, []string{"{base}/a?h={hash}", "{base}/b?h={hash}"}, cfg.GPSWox.DriverEndpoints)
	assert.Equal(t, 2, cfg.GPSWox.HistoryBatchSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 70.0, cfg.Report.OverspeedKmh)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 7000
gpswox:
  api_url: https://gps.example.com
  history_endpoints:
    - "{base}/get_history?user_api_hash={hash}&device_id={device_id}"
mqtt:
  broker_url: tcp://localhost:1883
  topic: acme/fleet
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "https://gps.example.com", cfg.GPSWox.APIURL)
	assert.Len(t, cfg.GPSWox.HistoryEndpoints, 1)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "acme/fleet", cfg.MQTT.Topic)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			GPSWox: GPSWoxConfig{APIURL: "gps.example.com", Email: "a@b.c", Password: "p"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		err    error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing url", func(c *Config) { c.GPSWox.APIURL = "  " }, ErrMissingGPSWoxURL},
		{"missing email", func(c *Config) { c.GPSWox.Email = "" }, ErrMissingGPSWoxCredentials},
		{"missing password", func(c *Config) { c.GPSWox.Password = "" }, ErrMissingGPSWoxCredentials},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }, ErrMissingJWTSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	c := valid()
	c.Server.Port = 0
	assert.Error(t, c.Validate())
}

func TestCleanList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, cleanList([]string{"a, b", "", " c "}))
	assert.Empty(t, cleanList(nil))
}
