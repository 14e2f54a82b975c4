package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bfrb.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 10, cfg.Wearable.WindowSize())
	assert.Equal(t, 80.0, cfg.Wearable.ThresholdPercent)
	assert.Equal(t, Range{Min: 8.5, Max: 10.1}, cfg.Calibration.X)
	assert.Equal(t, Range{Min: -5, Max: 5}, cfg.Calibration.Y)
	assert.Equal(t, Range{Min: -0.5, Max: 3}, cfg.Calibration.Z)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[wearable]
sample_rate_hz = 10

[calibration.x]
min = 7.0
max = 11.0

[store]
driver = "memory"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Wearable.WindowSize())
	assert.Equal(t, Range{Min: 7, Max: 11}, cfg.Calibration.X)
	assert.Equal(t, Range{Min: -5, Max: 5}, cfg.Calibration.Y)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "ws://127.0.0.1:8080/", cfg.Companion.MobileURL)
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	path := writeConfig(t, `
[calibration.z]
min = 3.0
max = -0.5
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "calibration.z.min")
}

func TestLoadRejectsBadToml(t *testing.T) {
	_, err := Load(writeConfig(t, "[wearable\n"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := LoadOrDefault(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(missing, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"logging.level":     func(c *Config) { c.Logging.Level = "loud" },
		"sample_rate_hz":    func(c *Config) { c.Wearable.SampleRateHz = 0 },
		"window_seconds":    func(c *Config) { c.Wearable.WindowSeconds = -1 },
		"threshold_percent": func(c *Config) { c.Wearable.ThresholdPercent = 120 },
		"haptic_pattern":    func(c *Config) { c.Wearable.HapticPattern = "" },
		"sensor.driver":     func(c *Config) { c.Sensor.Driver = "lidar" },
		"store.driver":      func(c *Config) { c.Store.Driver = "sql" },
		"store.root":        func(c *Config) { c.Store.Root = "" },
		"store.nats_url":    func(c *Config) { c.Store.Driver = "nats"; c.Store.Subject = "" },
		"mobile.user":       func(c *Config) { c.Mobile.User = "" },
	}
	for want, mutate := range cases {
		t.Run(want, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorContains(t, Validate(cfg), want)
		})
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "bfrb.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
