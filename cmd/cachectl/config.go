package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the cachectl configuration, loaded from YAML with
// environment overrides for the common knobs.
type Config struct {
	Store struct {
		// Backend selects the store: memory, file, leveldb or redis.
		Backend string `yaml:"backend"`

		// Path is the on-disk location for the file and leveldb backends.
		Path string `yaml:"path"`

		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
			TTL  string `yaml:"ttl"`
		} `yaml:"redis"`

		// compiled
		redisTTL time.Duration
	} `yaml:"store"`

	Cache struct {
		Shared    bool `yaml:"shared"`
		Heuristic bool `yaml:"heuristic"`
	} `yaml:"cache"`

	Server struct {
		Port   int    `yaml:"port"`
		Origin string `yaml:"origin"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// LoadConfig reads a YAML config file, applies defaults and validates.
// An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = getEnv("CACHECTL_BACKEND", "memory")
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	switch cfg.Store.Backend {
	case "memory", "file", "leveldb", "redis":
	default:
		return Config{}, fmt.Errorf("store.backend: unknown backend %q", cfg.Store.Backend)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = getEnv("CACHECTL_PATH", ".cachectl")
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = getEnv("CACHECTL_REDIS_ADDR", "localhost:6379")
	}
	if cfg.Store.Redis.TTL == "" {
		cfg.Store.Redis.TTL = "24h"
	}
	ttl, err := time.ParseDuration(cfg.Store.Redis.TTL)
	if err != nil {
		return Config{}, fmt.Errorf("store.redis.ttl: %w", err)
	}
	cfg.Store.redisTTL = ttl

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.Origin = strings.TrimRight(cfg.Server.Origin, "/")

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = getEnv("CACHECTL_LOG_LEVEL", "info")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
