package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's full configuration, loaded from YAML with a few
// environment overrides for secrets.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Export  ExportConfig  `yaml:"export"`
}

// BackendConfig points at the transcription product's backend.
type BackendConfig struct {
	BaseURL          string `yaml:"base_url"`
	PushURL          string `yaml:"push_url"`
	Token            string `yaml:"token"`
	ReconnectSeconds int    `yaml:"reconnect_seconds"`
}

// ServerConfig configures the local HTTP surface UI clients talk to.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig holds knobs for the session engine.
type EngineConfig struct {
	// LLMConfigured mirrors whether the backend has a summarization
	// provider; it decides if the summarization sub-machine is entered
	// after transcription completes.
	LLMConfigured bool `yaml:"llm_configured"`
}

// ExportConfig configures background export rendering.
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// Load reads and validates the config file. SCRIBEVIEW_TOKEN overrides the
// backend token so it can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if token := os.Getenv("SCRIBEVIEW_TOKEN"); token != "" {
		cfg.Backend.Token = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.PushURL == "" {
		return fmt.Errorf("backend.push_url is required")
	}

	if c.Backend.ReconnectSeconds <= 0 {
		c.Backend.ReconnectSeconds = 3
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "data/exports"
	}
	if c.Export.Workers <= 0 {
		c.Export.Workers = 2
	}
	if c.Export.QueueSize <= 0 {
		c.Export.QueueSize = 32
	}
	return nil
}
