package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEmailPattern accepts BUBT department addresses such as user@cse.bubt.edu.bd.
const DefaultEmailPattern = `^[a-zA-Z0-9._%+-]+@([a-zA-Z0-9]+\.)?bubt\.edu\.bd$`

// Config holds all configuration for the application
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Chat    ChatConfig    `yaml:"chat"`
	Log     LogConfig     `yaml:"log"`
	Mock    MockConfig    `yaml:"mock"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	RegisterPath string        `yaml:"register_path"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AuthConfig holds client-side account rules
type AuthConfig struct {
	EmailPattern string `yaml:"email_pattern"`
}

// StorageConfig holds the session database location
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig holds chat settings
type ChatConfig struct {
	SelfID string `yaml:"self_id"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// MockConfig configures the in-memory development backend
type MockConfig struct {
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port"`
	JWTSecret string   `yaml:"jwt_secret"`
	Admins    []string `yaml:"admins"` // varsity IDs granted the admin role
	Seed      bool     `yaml:"seed"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "https://handoff-backend.onrender.com",
			RegisterPath: "/api/register",
			Timeout:      15 * time.Second,
		},
		Auth:    AuthConfig{EmailPattern: DefaultEmailPattern},
		Storage: StorageConfig{Path: "handoff.db"},
		Chat:    ChatConfig{SelfID: "current-user"},
		Log:     LogConfig{Level: "info"},
		Mock: MockConfig{
			Host:      "127.0.0.1",
			Port:      8000,
			JWTSecret: "handoff-dev-secret",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the client cannot run without
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if !strings.HasPrefix(c.API.RegisterPath, "/") {
		errs = append(errs, errors.New("api.register_path must start with /"))
	}
	if _, err := regexp.Compile(c.Auth.EmailPattern); err != nil {
		errs = append(errs, fmt.Errorf("auth.email_pattern: %w", err))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Mock.Port < 0 || c.Mock.Port > 65535 {
		errs = append(errs, fmt.Errorf("mock.port out of range: %d", c.Mock.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the listen address of the mock backend
func (m *MockConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}
