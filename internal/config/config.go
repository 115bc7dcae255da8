package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`
	Engine struct {
		// LockTimeout bounds the wait for the per-test lock.
		LockTimeout string `yaml:"lock_timeout"`
		// SweepInterval is how often the ledger is scanned for overdue deadlines.
		SweepInterval string `yaml:"sweep_interval"`
		NotifyTimeout string `yaml:"notify_timeout"`
		// LeaderboardBuffer is the per-subscriber snapshot buffer.
		LeaderboardBuffer int `yaml:"leaderboard_buffer"`
	} `yaml:"engine"`
	// Roster seeds group membership at startup.
	Roster struct {
		Groups []Group `yaml:"groups"`
	} `yaml:"roster"`
}

type Group struct {
	ID       string   `yaml:"id"`
	Admins   []string `yaml:"admins"`
	Students []string `yaml:"students"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
