package config

import (
	"fmt"
	"strings"
)

// Config is the main configuration structure for atelier.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Provider ProviderConfig `yaml:"provider"`
	Images   ImagesConfig   `yaml:"images"`
	Agent    AgentConfig    `yaml:"agent"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	// Dir is the root data directory; canvases and generated images
	// live under it.
	Dir string `yaml:"dir"`
}

type ProviderConfig struct {
	// Name selects the chat backend: "openai" or "anthropic".
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type ImagesConfig struct {
	Enabled       bool   `yaml:"enabled"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	GenerateModel string `yaml:"generate_model"`
	EditModel     string `yaml:"edit_model"`
}

type AgentConfig struct {
	// StepBudget bounds model round-trips per request.
	StepBudget   int    `yaml:"step_budget"`
	SystemPrompt string `yaml:"system_prompt"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the configuration file, resolving $include
// directives and environment variable references.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	raw, err := loadRaw(path, map[string]bool{})
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a usable configuration without a config file; API
// keys still come from the environment.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "openai"
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 4096
	}
	if cfg.Agent.StepBudget == 0 {
		cfg.Agent.StepBudget = 200
	}
	if cfg.Images.GenerateModel == "" {
		cfg.Images.GenerateModel = "seedream-4-0-250828"
	}
	if cfg.Images.EditModel == "" {
		cfg.Images.EditModel = cfg.Images.GenerateModel
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider.Name) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q (expected openai or anthropic)", c.Provider.Name)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Agent.StepBudget < 1 {
		return fmt.Errorf("agent step_budget must be positive, got %d", c.Agent.StepBudget)
	}
	return nil
}
