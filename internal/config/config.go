// Package config handles loading, defaulting, and validation of the BFRB
// Sense TOML configuration file. All tiers share one file; each daemon
// reads the sections it needs.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Logging     LoggingConfig     `toml:"logging"     json:"logging"`
	Wearable    WearableConfig    `toml:"wearable"    json:"wearable"`
	Calibration CalibrationConfig `toml:"calibration" json:"calibration"`
	Sensor      SensorConfig      `toml:"sensor"      json:"sensor"`
	Companion   CompanionConfig   `toml:"companion"   json:"companion"`
	Mobile      MobileConfig      `toml:"mobile"      json:"mobile"`
	Stream      StreamConfig      `toml:"stream"      json:"stream"`
	Store       StoreConfig       `toml:"store"       json:"store"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type WearableConfig struct {
	Bind             string  `toml:"bind"              json:"bind"`
	PeerURL          string  `toml:"peer_url"          json:"peer_url"`
	SampleRateHz     int     `toml:"sample_rate_hz"    json:"sample_rate_hz"`
	WindowSeconds    int     `toml:"window_seconds"    json:"window_seconds"`
	ThresholdPercent float64 `toml:"threshold_percent" json:"threshold_percent"`
	HapticPattern    string  `toml:"haptic_pattern"    json:"haptic_pattern"`
}

// WindowSize is the number of samples held by the sliding window.
func (w WearableConfig) WindowSize() int {
	return w.SampleRateHz * w.WindowSeconds
}

// Range is an open interval (Min, Max).
type Range struct {
	Min float64 `toml:"min" json:"min"`
	Max float64 `toml:"max" json:"max"`
}

// CalibrationConfig holds the per-axis bounds used by the classifier.
type CalibrationConfig struct {
	X Range `toml:"x" json:"x"`
	Y Range `toml:"y" json:"y"`
	Z Range `toml:"z" json:"z"`
}

type SensorConfig struct {
	Driver              string `toml:"driver"                json:"driver"`
	SerialPort          string `toml:"serial_port"           json:"serial_port"`
	BaudRate            int    `toml:"baud_rate"             json:"baud_rate"`
	EpisodeEverySeconds int    `toml:"episode_every_seconds" json:"episode_every_seconds"`
	EpisodeSeconds      int    `toml:"episode_seconds"       json:"episode_seconds"`
}

type CompanionConfig struct {
	Bind      string `toml:"bind"       json:"bind"`
	MobileURL string `toml:"mobile_url" json:"mobile_url"`
}

type MobileConfig struct {
	Bind            string `toml:"bind"             json:"bind"`
	StreamURL       string `toml:"stream_url"       json:"stream_url"`
	Notifications   bool   `toml:"notifications"    json:"notifications"`
	DefaultDuration string `toml:"default_duration" json:"default_duration"`
	User            string `toml:"user"             json:"user"`
}

type StreamConfig struct {
	DeviceBind string `toml:"device_bind" json:"device_bind"`
	ClientBind string `toml:"client_bind" json:"client_bind"`
	StatusBind string `toml:"status_bind" json:"status_bind"`
}

type StoreConfig struct {
	Driver  string `toml:"driver"   json:"driver"`
	Root    string `toml:"root"     json:"root"`
	NATSURL string `toml:"nats_url" json:"nats_url"`
	Subject string `toml:"subject"  json:"subject"`
}

// Default returns a Config populated with the calibrated defaults. Values
// here are used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Wearable: WearableConfig{
			Bind:             "127.0.0.1:8070",
			PeerURL:          "ws://127.0.0.1:8090/peer",
			SampleRateHz:     5,
			WindowSeconds:    2,
			ThresholdPercent: 80,
			HapticPattern:    "alert",
		},
		Calibration: CalibrationConfig{
			X: Range{Min: 8.5, Max: 10.1},
			Y: Range{Min: -5, Max: 5},
			Z: Range{Min: -0.5, Max: 3},
		},
		Sensor: SensorConfig{
			Driver:              "sim",
			BaudRate:            115200,
			EpisodeEverySeconds: 30,
			EpisodeSeconds:      4,
		},
		Companion: CompanionConfig{
			Bind:      "127.0.0.1:8090",
			MobileURL: "ws://127.0.0.1:8080/",
		},
		Mobile: MobileConfig{
			Bind:            "0.0.0.0:8080",
			StreamURL:       "ws://127.0.0.1:8081/",
			Notifications:   true,
			DefaultDuration: "1",
			User:            "local",
		},
		Stream: StreamConfig{
			DeviceBind: "127.0.0.1:8080",
			ClientBind: "0.0.0.0:8081",
			StatusBind: "127.0.0.1:8082",
		},
		Store: StoreConfig{
			Driver:  "file",
			Root:    "/var/lib/bfrb",
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "bfrb.behaviors",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// defaults when the caller did not ask for that path explicitly.
func LoadOrDefault(path string, explicit bool) (Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks cross-field constraints.
func Validate(cfg Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	if cfg.Wearable.SampleRateHz <= 0 {
		return errors.New("wearable.sample_rate_hz must be > 0")
	}
	if cfg.Wearable.WindowSeconds <= 0 {
		return errors.New("wearable.window_seconds must be > 0")
	}
	if cfg.Wearable.ThresholdPercent < 0 || cfg.Wearable.ThresholdPercent > 100 {
		return errors.New("wearable.threshold_percent must be between 0 and 100")
	}
	if cfg.Wearable.HapticPattern == "" {
		return errors.New("wearable.haptic_pattern must not be empty")
	}
	for name, r := range map[string]Range{"x": cfg.Calibration.X, "y": cfg.Calibration.Y, "z": cfg.Calibration.Z} {
		if r.Min >= r.Max {
			return fmt.Errorf("calibration.%s.min must be < calibration.%s.max", name, name)
		}
	}
	switch cfg.Sensor.Driver {
	case "sim", "serial", "none":
	default:
		return errors.New("sensor.driver must be one of sim, serial, none")
	}
	if cfg.Sensor.Driver == "serial" && cfg.Sensor.BaudRate <= 0 {
		return errors.New("sensor.baud_rate must be > 0")
	}
	if cfg.Sensor.EpisodeEverySeconds < 0 || cfg.Sensor.EpisodeSeconds < 0 {
		return errors.New("sensor episode durations must be >= 0")
	}
	if cfg.Companion.MobileURL == "" {
		return errors.New("companion.mobile_url must not be empty")
	}
	if cfg.Wearable.PeerURL == "" {
		return errors.New("wearable.peer_url must not be empty")
	}
	switch cfg.Store.Driver {
	case "file":
		if cfg.Store.Root == "" {
			return errors.New("store.root must not be empty")
		}
	case "nats":
		if cfg.Store.NATSURL == "" || cfg.Store.Subject == "" {
			return errors.New("store.nats_url and store.subject must not be empty")
		}
	case "memory":
	default:
		return errors.New("store.driver must be one of file, nats, memory")
	}
	if cfg.Mobile.User == "" {
		return errors.New("mobile.user must not be empty")
	}
	return nil
}
