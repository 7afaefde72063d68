package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // schedule-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Cron struct {
	Secret string `yaml:"secret"`
}

// Presence — единственные таймаут-параметры ядра: окно протухания
// heartbeat и льготное окно до закрытия звонка.
type Presence struct {
	StaleWindow string `yaml:"staleWindow"` // default 45s
	GraceWindow string `yaml:"graceWindow"` // default 3m
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Cron     Cron     `yaml:"cron"`
	Presence Presence `yaml:"presence"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		c.Postgres.DSN = os.Getenv("POSTGRES_DSN")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Cron.Secret == "" {
		c.Cron.Secret = os.Getenv("CRON_SECRET")
	}
	if c.Cron.Secret == "" {
		return errors.New("cron.secret is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "schedule-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// StaleWindow с дефолтом: окно «живого» heartbeat.
func (c *Config) StaleWindow() time.Duration {
	return parseDurationOr(45*time.Second, c.Presence.StaleWindow)
}

// GraceWindow с дефолтом: сколько комната живёт без единой активности.
func (c *Config) GraceWindow() time.Duration {
	return parseDurationOr(3*time.Minute, c.Presence.GraceWindow)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
