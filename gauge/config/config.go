package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Evals   EvalsConfig   `mapstructure:"evals"`
}

// ClientConfig stores the connection details of the model endpoint.
type ClientConfig struct {
	APIKey  string `mapstructure:"api_key" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// CatalogConfig stores tool registration filters.
type CatalogConfig struct {
	DisabledTools    []string `mapstructure:"disabled_tools"`    // fully-qualified names
	DisabledToolkits []string `mapstructure:"disabled_toolkits"` // toolkit names
}

// EvalsConfig stores evaluation run settings and rubric defaults.
type EvalsConfig struct {
	MaxConcurrent          int     `mapstructure:"max_concurrent" validate:"min=1"`
	FailThreshold          float64 `mapstructure:"fail_threshold" validate:"gte=0,lte=1"`
	WarnThreshold          float64 `mapstructure:"warn_threshold" validate:"gte=0,lte=1"`
	FailOnToolSelection    bool    `mapstructure:"fail_on_tool_selection"`
	FailOnToolCallQuantity bool    `mapstructure:"fail_on_tool_call_quantity"`
	ToolSelectionWeight    float64 `mapstructure:"tool_selection_weight" validate:"gte=0,lte=1"`
	EnableTracing          bool    `mapstructure:"enable_tracing"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.SetConfigName("toolgauge")
		viper.SetConfigType("yaml")
	}

	// Set default values. The api_key default registers the key so the
	// CLIENT_API_KEY environment variable is picked up.
	viper.SetDefault("client.api_key", "")
	viper.SetDefault("client.base_url", "")

	viper.SetDefault("evals.max_concurrent", 1)
	viper.SetDefault("evals.fail_threshold", 0.8)
	viper.SetDefault("evals.warn_threshold", 0.9)
	viper.SetDefault("evals.fail_on_tool_selection", true)
	viper.SetDefault("evals.fail_on_tool_call_quantity", true)
	viper.SetDefault("evals.tool_selection_weight", 1.0)
	viper.SetDefault("evals.enable_tracing", true)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. client.api_key becomes CLIENT_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
