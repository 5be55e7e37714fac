package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds bridge runtime settings, loaded from an optional YAML file
// with environment overrides.
type Config struct {
	Adapter AdapterConfig `yaml:"adapter"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
}

type AdapterConfig struct {
	// Command is run through the shell to start the backend debug adapter.
	Command string `yaml:"command"`
	// Addr is a TCP address of an already-listening adapter; when both are
	// set, Command is started first and Addr dialed.
	Addr           string        `yaml:"addr"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type BridgeConfig struct {
	// ListenAddr switches the bridge from stdio to websocket listen mode.
	ListenAddr string `yaml:"listen_addr"`
	// ScratchDir is where compiled cell text is written for the adapter.
	ScratchDir string `yaml:"scratch_dir"`
	// TranscriptDir enables JSONL traffic transcripts when non-empty.
	TranscriptDir string `yaml:"transcript_dir"`
}

type LoggingConfig struct {
	Verbosity int `yaml:"verbosity"`
}

func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// Load reads config from a YAML file, falling back to defaults when the file
// does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays NBDAP_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("NBDAP_ADAPTER_CMD"); v != "" {
		cfg.Adapter.Command = v
	}
	if v := os.Getenv("NBDAP_ADAPTER_ADDR"); v != "" {
		cfg.Adapter.Addr = v
	}
	if v := os.Getenv("NBDAP_SCRATCH_DIR"); v != "" {
		cfg.Bridge.ScratchDir = v
	}
	if v := os.Getenv("NBDAP_TRANSCRIPT_DIR"); v != "" {
		cfg.Bridge.TranscriptDir = v
	}
	if v := os.Getenv("NBDAP_LISTEN_ADDR"); v != "" {
		cfg.Bridge.ListenAddr = v
	}
	cfg.Adapter.ConnectTimeout = parseDurationEnv("NBDAP_CONNECT_TIMEOUT", cfg.Adapter.ConnectTimeout)
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
