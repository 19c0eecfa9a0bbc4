// Package config loads the bridge configuration from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rpc-bridge/codec"
)

type Config struct {
	Bridge    BridgeConfig    `toml:"bridge"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
	Registry  RegistryConfig  `toml:"registry"`
}

type BridgeConfig struct {
	Codec           string        `toml:"codec"`            // json, binary or cbor
	QueueSize       int           `toml:"queue_size"`       // Buffered records per target
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"` // e.g. "5s"
	AdvertiseAddr   string        `toml:"advertise_addr"`   // Published with registrations
}

// RateLimitConfig disables limiting when Rate is zero.
type RateLimitConfig struct {
	Rate  float64 `toml:"rate"`
	Burst int     `toml:"burst"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// RegistryConfig disables announcements when Endpoints is empty.
type RegistryConfig struct {
	Endpoints []string `toml:"endpoints"`
	TTL       int64    `toml:"ttl"` // seconds
}

func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			Codec:           "json",
			QueueSize:       64,
			ShutdownTimeout: 5 * time.Second,
		},
		Log:      LogConfig{Level: "info"},
		Registry: RegistryConfig{TTL: 10},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return Parse(string(data))
}

func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	if _, cerr := codec.ParseCodecType(c.Bridge.Codec); cerr != nil {
		err = multierr.Append(err, cerr)
	}
	if c.Bridge.QueueSize < 0 {
		err = multierr.Append(err, fmt.Errorf("bridge.queue_size must not be negative, got %d", c.Bridge.QueueSize))
	}
	if c.Bridge.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("bridge.shutdown_timeout must be positive, got %s", c.Bridge.ShutdownTimeout))
	}
	if c.RateLimit.Rate < 0 || (c.RateLimit.Rate > 0 && c.RateLimit.Burst <= 0) {
		err = multierr.Append(err, fmt.Errorf("rate_limit needs rate >= 0 and a positive burst when enabled"))
	}
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", lerr))
	}
	if len(c.Registry.Endpoints) > 0 && c.Registry.TTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("registry.ttl must be positive, got %d", c.Registry.TTL))
	}
	return err
}

// CodecType returns the configured codec. Call after Validate.
func (c BridgeConfig) CodecType() codec.CodecType {
	t, _ := codec.ParseCodecType(c.Codec)
	return t
}

// Build constructs the process logger.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
