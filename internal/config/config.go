package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort      = 3000
	defaultEnv       = "development"
	defaultTimeoutMS = 10000
	defaultPythonBin = "python3"
)

// AppConfig holds runtime configuration. Values come from an optional YAML
// file, then environment variables override field by field.
type AppConfig struct {
	Port             int      `yaml:"port"               envconfig:"PORT"`
	DSN              string   `yaml:"dsn"                envconfig:"DATABASE_URL"`
	RedisURL         string   `yaml:"redis_url"          envconfig:"REDIS_URL"`
	Env              string   `yaml:"env"                envconfig:"APP_ENV"`
	SessionSecret    string   `yaml:"session_secret"     envconfig:"SESSION_SECRET"`
	HandlerTimeoutMS int      `yaml:"handler_timeout_ms" envconfig:"HANDLER_TIMEOUT_MS"`
	PythonBin        string   `yaml:"python_bin"         envconfig:"PYTHON_BIN"`
	AllowedOrigins   []string `yaml:"allowed_origins"    envconfig:"ALLOWED_ORIGINS"`

	// CascadeProjectDelete controls whether deleting a project also deletes
	// its endpoints and pages. nil means the default (cascade).
	CascadeProjectDelete *bool `yaml:"cascade_project_delete" envconfig:"CASCADE_PROJECT_DELETE"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
}

// AnthropicConfig configures the optional AI generator plug-in.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" envconfig:"ANTHROPIC_API_KEY"`
	Model  string `yaml:"model"   envconfig:"ANTHROPIC_MODEL"`
}

// Load reads the YAML file at path (missing file is fine when the path is the
// default), applies environment overrides, and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
		// Running from env alone is supported.
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	normalize(&cfg)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.HandlerTimeoutMS < 1 {
		return nil, fmt.Errorf("invalid handler_timeout_ms %d, expected >= 1", cfg.HandlerTimeoutMS)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:             defaultPort,
		Env:              defaultEnv,
		HandlerTimeoutMS: defaultTimeoutMS,
		PythonBin:        defaultPythonBin,
	}
}

func normalize(cfg *AppConfig) {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.PythonBin = strings.TrimSpace(cfg.PythonBin)
	if cfg.PythonBin == "" {
		cfg.PythonBin = defaultPythonBin
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.HandlerTimeoutMS == 0 {
		cfg.HandlerTimeoutMS = defaultTimeoutMS
	}

	out := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	cfg.AllowedOrigins = out
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// HandlerTimeout is the wall-clock budget for one sandbox invocation.
func (c *AppConfig) HandlerTimeout() time.Duration {
	return time.Duration(c.HandlerTimeoutMS) * time.Millisecond
}

// ShouldCascadeProjectDelete defaults to true when unset.
func (c *AppConfig) ShouldCascadeProjectDelete() bool {
	if c.CascadeProjectDelete == nil {
		return true
	}
	return *c.CascadeProjectDelete
}
