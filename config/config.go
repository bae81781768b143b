// Package config loads process configuration for the task economy server.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML file,
// environment variables, command-line flags (applied by cmd/server).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port   string `yaml:"port"`
	Driver string `yaml:"driver"`
	DBPath string `yaml:"db_path"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	PolicyFile string `yaml:"policy_file"`

	NarrativeURL     string        `yaml:"narrative_url"`
	NarrativeAPIKey  string        `yaml:"narrative_api_key"`
	NarrativeTimeout time.Duration `yaml:"narrative_timeout"`

	SettlementInterval time.Duration `yaml:"settlement_interval"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Port:               "8080",
		Driver:             DriverSQLite,
		DBPath:             "task-economy.db",
		DBPort:             5432,
		NarrativeTimeout:   20 * time.Second,
		SettlementInterval: time.Hour,
		AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load applies the YAML file at path (skipped when empty) and then the
// environment on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TASK_ECONOMY_PORT", &c.Port)
	str("TASK_ECONOMY_DRIVER", &c.Driver)
	str("TASK_ECONOMY_DB_PATH", &c.DBPath)
	str("DB_HOST", &c.DBHost)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("TASK_ECONOMY_POLICY_FILE", &c.PolicyFile)
	str("NARRATIVE_URL", &c.NarrativeURL)
	str("NARRATIVE_API_KEY", &c.NarrativeAPIKey)

	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DB_PORT %q: %w", v, err)
		}
		c.DBPort = port
	}
	if v, ok := lookup("NARRATIVE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: NARRATIVE_TIMEOUT %q: %w", v, err)
		}
		c.NarrativeTimeout = d
	}
	if v, ok := lookup("TASK_ECONOMY_SETTLEMENT_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TASK_ECONOMY_SETTLEMENT_INTERVAL %q: %w", v, err)
		}
		c.SettlementInterval = d
	}
	if v, ok := lookup("TASK_ECONOMY_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = SplitList(v)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	if c.SettlementInterval <= 0 {
		return fmt.Errorf("config: settlement interval must be positive, got %s", c.SettlementInterval)
	}
	return nil
}

// ConnString renders the PostgreSQL DSN.
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
