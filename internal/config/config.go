package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// #region config

// Config is the process configuration of an entity profile node.
type Config struct {
	DBPath      string        `yaml:"db_path"`
	ListenAddr  string        `yaml:"listen_addr"`
	MetricsAddr string        `yaml:"metrics_addr"`
	NodeID      string        `yaml:"node_id"`
	Peers       []string      `yaml:"peers"`
	LogLevel    string        `yaml:"log_level"`
	RPCTimeout  time.Duration `yaml:"rpc_timeout"`

	RequiredSamples    int64 `yaml:"required_samples"`
	CategoryFieldLimit int   `yaml:"category_field_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	host, _ := os.Hostname()
	if host == "" {
		host = "node-0"
	}
	return Config{
		DBPath:             "entity_profile.db",
		ListenAddr:         "localhost:50051",
		MetricsAddr:        "localhost:9464",
		NodeID:             host,
		LogLevel:           "info",
		RPCTimeout:         10 * time.Second,
		RequiredSamples:    128,
		CategoryFieldLimit: 2,
	}
}

// #endregion config

// #region load

// Load reads YAML config over the defaults. An empty path skips the file.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DBPath = envOr("ENTITY_PROFILE_DB", cfg.DBPath)
	cfg.ListenAddr = envOr("ENTITY_PROFILE_LISTEN", cfg.ListenAddr)
	cfg.MetricsAddr = envOr("ENTITY_PROFILE_METRICS", cfg.MetricsAddr)
	cfg.NodeID = envOr("ENTITY_PROFILE_NODE_ID", cfg.NodeID)
	cfg.LogLevel = envOr("ENTITY_PROFILE_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("ENTITY_PROFILE_PEERS"); v != "" {
		cfg.Peers = splitList(v)
	}
	if v := os.Getenv("ENTITY_PROFILE_REQUIRED_SAMPLES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ENTITY_PROFILE_REQUIRED_SAMPLES: %w", err)
		}
		cfg.RequiredSamples = n
	}
	if v := os.Getenv("ENTITY_PROFILE_RPC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ENTITY_PROFILE_RPC_TIMEOUT: %w", err)
		}
		cfg.RPCTimeout = d
	}
	return nil
}

// #endregion load

// #region validate

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.RequiredSamples <= 0 {
		errs = append(errs, fmt.Errorf("required_samples must be > 0, got %d", c.RequiredSamples))
	}
	if c.CategoryFieldLimit < 1 {
		errs = append(errs, fmt.Errorf("category_field_limit must be >= 1, got %d", c.CategoryFieldLimit))
	}
	if c.RPCTimeout < 0 {
		errs = append(errs, fmt.Errorf("rpc_timeout must not be negative, got %s", c.RPCTimeout))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion helpers
