package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. QUIZ_REDIS_ADDR or
// QUIZ_SERVER_BASE_URL.
const EnvPrefix = "QUIZ"

type Config struct {
	Debug  bool `yaml:"debug"`
	Server struct {
		Port    string `yaml:"port"`
		BaseURL string `yaml:"baseURL" split_words:"true"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bolt struct {
		Path string `yaml:"path"`
	} `yaml:"bolt"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		CacheSize    int    `yaml:"cacheSize" split_words:"true"`
		TickInterval string `yaml:"tickInterval" split_words:"true"`
		SyncInterval string `yaml:"syncInterval" split_words:"true"`
		Scoring      string `yaml:"scoring"`
		MaxBonus     int    `yaml:"maxBonus" split_words:"true"`
	} `yaml:"quiz"`
	AntiCheat struct {
		Enabled       bool   `yaml:"enabled"`
		MinReaction   string `yaml:"minReaction" split_words:"true"`
		LateTolerance string `yaml:"lateTolerance" split_words:"true"`
		StrictNonce   bool   `yaml:"strictNonce" split_words:"true"`
	} `yaml:"anticheat"`
}

// Load reads YAML config from path and then applies QUIZ_* environment
// overrides. A missing file is not an error: the environment alone is enough.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
