package core

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes how to reach the database and how calls are logged.
type Config struct {
	Dialect               string        `yaml:"dialect"`
	Driver                string        `yaml:"driver"`
	DSN                   string        `yaml:"dsn"`
	MaxOpenConns          int           `yaml:"max_open_conns"`
	MaxIdleConns          int           `yaml:"max_idle_conns"`
	ConnMaxLifetime       time.Duration `yaml:"conn_max_lifetime"`
	DefaultTimeoutMinutes int           `yaml:"default_timeout_minutes"`
	LogLevel              string        `yaml:"log_level"`
}

var defaultDrivers = map[string]string{
	"mssql":            "sqlserver",
	"sqlserver":        "sqlserver",
	"oracle":           "godror",
	"godror":           "godror",
	"go-ora":           "oracle",
	"oracle-refcursor": "oracle",
	"postgres":         "pgx",
	"pgx":              "pgx",
	"mysql":            "mysql",
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills the driver from the dialect and the log level.
func (c *Config) ApplyDefaults() {
	c.Dialect = strings.ToLower(c.Dialect)
	if c.Driver == "" {
		c.Driver = defaultDrivers[c.Dialect]
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if c.Dialect == "" {
		return errors.New("config: dialect is required")
	}
	if _, ok := defaultDrivers[c.Dialect]; !ok {
		return errors.Errorf("config: unknown dialect %q", c.Dialect)
	}
	if c.DSN == "" {
		return errors.New("config: dsn is required")
	}
	if c.DefaultTimeoutMinutes < 0 {
		return errors.Errorf("config: default_timeout_minutes must not be negative, got %d", c.DefaultTimeoutMinutes)
	}
	return nil
}
