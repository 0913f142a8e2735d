package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Murmur configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Resolver
	Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`

	// Voice
	Voice VoiceConfig `json:"voice" mapstructure:"voice"`

	// Catalog
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`

	// Stores
	Stores StoresConfig `json:"stores" mapstructure:"stores"`

	// Maintenance
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
	Timeout int    `json:"timeout" mapstructure:"timeout"` // seconds, per request
}

// ResolverConfig holds intent resolver configuration
type ResolverConfig struct {
	Model       string            `json:"model" mapstructure:"model"`
	Temperature float64           `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int               `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     int               `json:"timeout" mapstructure:"timeout"` // seconds
	Profiles    []ResolverProfile `json:"profiles" mapstructure:"profiles"`
	Scenarios   []string          `json:"scenarios" mapstructure:"scenarios"`
}

// ResolverProfile represents credentials for a model provider
type ResolverProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// VoiceConfig holds speech service configuration
type VoiceConfig struct {
	TranscriberKey string     `json:"transcriber_key" mapstructure:"transcriber_key"`
	Murf           MurfConfig `json:"murf" mapstructure:"murf"`
}

// MurfConfig holds synthesizer configuration
type MurfConfig struct {
	APIKey        string `json:"api_key" mapstructure:"api_key"`
	VoiceID       string `json:"voice_id" mapstructure:"voice_id"`
	FallbackVoice string `json:"fallback_voice" mapstructure:"fallback_voice"`
	Style         string `json:"style" mapstructure:"style"`
	Locale        string `json:"locale" mapstructure:"locale"`
}

// CatalogConfig holds product catalog configuration
type CatalogConfig struct {
	File  string `json:"file" mapstructure:"file"`   // empty uses the built-in catalog
	Watch bool   `json:"watch" mapstructure:"watch"` // hot-reload the file on change
}

// StoresConfig holds persistence paths
type StoresConfig struct {
	OrdersFile   string `json:"orders_file" mapstructure:"orders_file"`
	CasesFile    string `json:"cases_file" mapstructure:"cases_file"`
	WellnessFile string `json:"wellness_file" mapstructure:"wellness_file"`
}

// MaintenanceConfig holds background maintenance settings
type MaintenanceConfig struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	CompactSchedule string `json:"compact_schedule" mapstructure:"compact_schedule"` // cron expression
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 90,
		},
		Resolver: ResolverConfig{
			Model:       "claude-sonnet-4",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     30,
			Profiles:    []ResolverProfile{},
		},
		Voice: VoiceConfig{
			Murf: MurfConfig{
				VoiceID:       "en-US-marcus",
				FallbackVoice: "en-UK-ruby",
				Style:         "Promo",
				Locale:        "en-US",
			},
		},
		Catalog: CatalogConfig{
			Watch: true,
		},
		Maintenance: MaintenanceConfig{
			Enabled:         true,
			CompactSchedule: "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   50,
			MaxAge:    14,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if len(c.Resolver.Profiles) == 0 {
		return fmt.Errorf("no resolver credentials configured: at least one profile is required")
	}

	for i, profile := range c.Resolver.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("resolver profile %d: ID is required", i)
		}
		if err := v.ValidateProvider(profile.Provider); err != nil {
			return fmt.Errorf("resolver profile %s: %w", profile.ID, err)
		}
		if err := v.ValidateAPIKey(profile.APIKey, profile.Provider); err != nil {
			return fmt.Errorf("resolver profile %s: %w", profile.ID, err)
		}
	}

	if err := v.ValidateTemperature(c.Resolver.Temperature); err != nil {
		return err
	}
	if err := v.ValidateMaxTokens(c.Resolver.MaxTokens); err != nil {
		return err
	}

	if err := v.ValidatePort(c.Server.Port); err != nil {
		return err
	}

	if c.Logging.Level != "" {
		if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
			return err
		}
	}

	if c.Maintenance.Enabled {
		if err := v.ValidateCronSpec(c.Maintenance.CompactSchedule); err != nil {
			return err
		}
	}

	return nil
}
