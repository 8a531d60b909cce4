// Package config holds the explicit configuration of uxspec. Values come from
// defaults, then an optional YAML file, then the environment; the CLI applies
// flag overrides last.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full uxspec configuration.
type Config struct {
	Figma   FigmaConfig   `yaml:"figma"`
	Webhook WebhookConfig `yaml:"webhook"`
	Upload  UploadConfig  `yaml:"upload"`
	AI      AIConfig      `yaml:"ai"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// FigmaConfig selects the document source and screenshot exporter.
type FigmaConfig struct {
	Token   string `yaml:"token"`
	FileKey string `yaml:"file_key"`
	// Exporter is api, browser or none
	Exporter      string        `yaml:"exporter"`
	Scale         float64       `yaml:"scale"`
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// WebhookConfig configures the n8n analysis webhook.
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig configures screenshot hosting.
type UploadConfig struct {
	CloudName    string        `yaml:"cloud_name"`
	UploadPreset string        `yaml:"upload_preset"`
	Folder       string        `yaml:"folder"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AIConfig configures the vision providers.
type AIConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OpenAIKey    string `yaml:"openai_key"`
	AnthropicKey string `yaml:"anthropic_key"`
	MaxWidth     uint   `yaml:"max_width"`
	Markers      bool   `yaml:"markers"`

	// Timeout bounds one vision analysis call
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the companion server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default values
const (
	DefaultWebhookURL   = "http://localhost:5678/webhook/figma-analysis"
	DefaultUploadPreset = "ux-specs-preset"
	DefaultPort         = 3000
	DefaultProvider     = "claude"
	DefaultAITimeout    = 60 * time.Second
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Figma: FigmaConfig{
			Exporter:      "api",
			Scale:         2,
			ExportTimeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			URL:     DefaultWebhookURL,
			Timeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			UploadPreset: DefaultUploadPreset,
			Folder:       "figma-screens",
			Timeout:      30 * time.Second,
		},
		AI: AIConfig{
			Provider: DefaultProvider,
			MaxWidth: 1280,
			Timeout:  DefaultAITimeout,
		},
		Server: ServerConfig{Port: DefaultPort},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Figma.Token, "FIGMA_TOKEN")
	set(&c.Figma.FileKey, "FIGMA_FILE_KEY")
	set(&c.Figma.Exporter, "UXSPEC_EXPORTER")
	set(&c.Webhook.URL, "N8N_WEBHOOK_URL")
	set(&c.Webhook.APIKey, "N8N_API_KEY")
	set(&c.Upload.CloudName, "CLOUDINARY_CLOUD_NAME")
	set(&c.Upload.UploadPreset, "CLOUDINARY_UPLOAD_PRESET")
	set(&c.AI.Provider, "UXSPEC_DEFAULT_PROVIDER")
	set(&c.AI.Model, "UXSPEC_MODEL")
	set(&c.AI.OpenAIKey, "UXSPEC_OPENAI_KEY", "OPENAI_API_KEY")
	set(&c.AI.AnthropicKey, "UXSPEC_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	set(&c.Log.Level, "UXSPEC_LOG_LEVEL")

	if v := getenv("UXSPEC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UXSPEC_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	switch c.Figma.Exporter {
	case "api", "browser", "none":
	default:
		return fmt.Errorf("figma.exporter: unsupported %q (use api, browser or none)", c.Figma.Exporter)
	}
	switch c.AI.Provider {
	case "claude", "anthropic", "openai", "gpt":
	default:
		return fmt.Errorf("ai.provider: unsupported %q (use claude or openai)", c.AI.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.Figma.ExportTimeout <= 0 || c.Webhook.Timeout <= 0 || c.Upload.Timeout <= 0 || c.AI.Timeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if c.Figma.Scale <= 0 {
		return fmt.Errorf("figma.scale must be > 0")
	}
	return nil
}

// ProviderKey returns the API key of the configured AI provider.
func (c *Config) ProviderKey() string {
	switch c.AI.Provider {
	case "openai", "gpt":
		return c.AI.OpenAIKey
	default:
		return c.AI.AnthropicKey
	}
}

// Addr is the server listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }
