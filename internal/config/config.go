// Package config resolves agent settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CALAGENT_"

// Config holds every tunable of the agent.
type Config struct {
	Model         string `yaml:"model"`
	MaxTokens     int64  `yaml:"max_tokens"`
	TokenBudget   int    `yaml:"token_budget"`
	TokenCounter  string `yaml:"token_counter"`
	MaxSteps      int    `yaml:"max_steps"`
	MaxInputRunes int    `yaml:"max_input_runes"`

	DBPath      string `yaml:"db_path"`
	HistoryPath string `yaml:"history_path"`
	UserID      string `yaml:"user_id"`
	Timezone    string `yaml:"timezone"`

	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	ObserveJSON bool   `yaml:"observe_json"`
	EventsDir   string `yaml:"events_dir"`
	// MetricsAddr, when set, serves Prometheus metrics at /metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	BaseURL string `yaml:"base_url"`
	// APIKey is only read from the environment.
	APIKey string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Model:         "claude-3-7-sonnet-latest",
		MaxTokens:     1024,
		TokenBudget:   8000,
		TokenCounter:  "heuristic",
		MaxSteps:      8,
		MaxInputRunes: 1000,
		DBPath:        filepath.Join(".calagent", "calagent.db"),
		HistoryPath:   filepath.Join(".calagent", "history.json"),
		UserID:        "local",
		Timezone:      "Local",
		LogLevel:      "info",
		EventsDir:     ".calagent",
	}
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config. path may be empty; when set, the YAML file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"MODEL":         &c.Model,
		"TOKEN_COUNTER": &c.TokenCounter,
		"DB_PATH":       &c.DBPath,
		"HISTORY_PATH":  &c.HistoryPath,
		"USER_ID":       &c.UserID,
		"TIMEZONE":      &c.Timezone,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FILE":      &c.LogFile,
		"EVENTS_DIR":    &c.EventsDir,
		"METRICS_ADDR":  &c.MetricsAddr,
		"BASE_URL":      &c.BaseURL,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(envPrefix + k); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_BUDGET":    &c.TokenBudget,
		"MAX_STEPS":       &c.MaxSteps,
		"MAX_INPUT_RUNES": &c.MaxInputRunes,
	}
	for k, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", envPrefix, k, v, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(envPrefix + "MAX_TOKENS"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_TOKENS %q: %w", envPrefix, v, err)
		}
		c.MaxTokens = n
	}
	if v, ok := os.LookupEnv(envPrefix + "OBSERVE_JSON"); ok {
		c.ObserveJSON = v == "1" || strings.EqualFold(v, "true")
	}
	c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	return nil
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model must be set"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.TokenBudget <= 0 {
		errs = append(errs, fmt.Errorf("token_budget must be positive, got %d", c.TokenBudget))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps))
	}
	if c.MaxInputRunes <= 0 {
		errs = append(errs, fmt.Errorf("max_input_runes must be positive, got %d", c.MaxInputRunes))
	}
	switch c.TokenCounter {
	case "heuristic", "tiktoken":
	default:
		errs = append(errs, fmt.Errorf("token_counter must be heuristic or tiktoken, got %q", c.TokenCounter))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
