package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token       string `yaml:"token"`
		AdminID     int64  `yaml:"admin_id"`
		AnswerDelay string `yaml:"answer_delay"`
	} `yaml:"telegram"`
	Questions struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Registry struct {
		Path string `yaml:"path"`
	} `yaml:"registry"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path. BOT_TOKEN and ADMIN_ID environment
// variables override the file so secrets can stay out of it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if admin := os.Getenv("ADMIN_ID"); admin != "" {
		if id, err := strconv.ParseInt(admin, 10, 64); err == nil {
			cfg.Telegram.AdminID = id
		}
	}
	if cfg.Questions.Path == "" {
		cfg.Questions.Path = "questions.json"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "users.json"
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
