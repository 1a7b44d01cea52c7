package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmorrisey/pokedraft/internal/draft/bridge"
	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
)

// ServerConfig is the full server configuration. Values come from an
// optional YAML file, then environment variables override.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	TimeoutPolicy    string `yaml:"timeout_policy"`
	SubscriberBuffer int    `yaml:"subscriber_buffer"`
	PresenceTTLSec   int    `yaml:"presence_ttl_sec"`
	PingIntervalSec  int    `yaml:"ping_interval_sec"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Migrate bool `yaml:"migrate"`
}

func defaultServerConfig() ServerConfig {
	cfg := ServerConfig{
		Port:           "8080",
		AllowedOrigins: []string{"*"},
		TimeoutPolicy:  "auto-pick",
		Migrate:        true,
	}
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.SubjectPrefix = "pokedraft.events"
	return cfg
}

// loadConfig merges defaults, the optional YAML file, and the environment.
func loadConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()

	if path := getEnv("CONFIG_FILE", "config.yaml"); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.TimeoutPolicy = getEnv("TIMEOUT_POLICY", cfg.TimeoutPolicy)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	if v := os.Getenv("NATS_ENABLED"); v != "" {
		cfg.NATS.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MIGRATE"); v != "" {
		cfg.Migrate, _ = strconv.ParseBool(v)
	}

	if cfg.TimeoutPolicy != "auto-pick" && cfg.TimeoutPolicy != "skip" {
		return cfg, fmt.Errorf("invalid timeout_policy %q, want auto-pick or skip", cfg.TimeoutPolicy)
	}
	return cfg, nil
}

func (c ServerConfig) hubConfig() hub.Config {
	hc := hub.DefaultConfig()
	if c.SubscriberBuffer > 0 {
		hc.SubscriberBuffer = c.SubscriberBuffer
	}
	if c.PresenceTTLSec > 0 {
		hc.PresenceTTL = time.Duration(c.PresenceTTLSec) * time.Second
	}
	if c.PingIntervalSec > 0 {
		hc.PingInterval = time.Duration(c.PingIntervalSec) * time.Second
	}
	return hc
}

func (c ServerConfig) intakeConfig() intake.Config {
	ic := intake.DefaultConfig()
	if c.TimeoutPolicy == "skip" {
		ic.TimeoutPolicy = clock.PolicySkip
	}
	return ic
}

func (c ServerConfig) natsConfig() bridge.Config {
	bc := bridge.DefaultConfig()
	bc.URL = c.NATS.URL
	if c.NATS.SubjectPrefix != "" {
		bc.SubjectPrefix = c.NATS.SubjectPrefix
	}
	return bc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
