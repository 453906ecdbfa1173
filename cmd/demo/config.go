package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// DemoConfig controls the demo's ring size, subscriber fan-out, and
// whether to wire the Redis-backed cross-process signal factory.
type DemoConfig struct {
	Capacity        uint64 `mapstructure:"capacity"`
	Subscribers     int    `mapstructure:"subscribers"`
	Publications    int    `mapstructure:"publications"`
	Multiproc       bool   `mapstructure:"multiproc"`
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisChannelKey string `mapstructure:"redis_channel_key"`
}

// DefaultDemoConfig mirrors the ring buffer's own DefaultConfig pattern:
// sane defaults that a config file or environment variables can override.
func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		Capacity:        1024,
		Subscribers:     4,
		Publications:    100_000,
		Multiproc:       false,
		RedisAddr:       "localhost:6379",
		RedisChannelKey: "disruptor:demo",
	}
}

// LoadDemoConfig reads an optional YAML config file (path may be empty,
// in which case only defaults and environment overrides apply).
func LoadDemoConfig(path string) (DemoConfig, error) {
	cfg := DefaultDemoConfig()

	v := viper.New()
	v.SetEnvPrefix("DISRUPTOR_DEMO")
	v.AutomaticEnv()
	v.SetDefault("capacity", cfg.Capacity)
	v.SetDefault("subscribers", cfg.Subscribers)
	v.SetDefault("publications", cfg.Publications)
	v.SetDefault("multiproc", cfg.Multiproc)
	v.SetDefault("redis_addr", cfg.RedisAddr)
	v.SetDefault("redis_channel_key", cfg.RedisChannelKey)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("demo: reading config %q: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("demo: decoding config: %w", err)
	}
	if cfg.Capacity == 0 || cfg.Capacity&(cfg.Capacity-1) != 0 {
		return cfg, fmt.Errorf("demo: capacity must be a non-zero power of two, got %d", cfg.Capacity)
	}
	return cfg, nil
}
