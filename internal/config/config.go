// Package config handles SnapBooks configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/snapbooks/internal/provider"
	"github.com/petasbytes/snapbooks/internal/usage"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from --config) is checked first.
// Then: ./config.yaml, ~/.config/snapbooks/config.yaml, /etc/snapbooks/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "snapbooks", "config.yaml"))
	}

	paths = append(paths, "/etc/snapbooks/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all SnapBooks configuration.
type Config struct {
	Listen    ListenConfig           `yaml:"listen"`
	Models    ModelsConfig           `yaml:"models"`
	Providers ProvidersConfig        `yaml:"providers"`
	Pricing   map[string]usage.Rates `yaml:"pricing"`
	Retry     RetryConfig            `yaml:"retry"`
	Storage   StorageConfig          `yaml:"storage"`
	Telegram  TelegramConfig         `yaml:"telegram"`
	Workspace WorkspaceConfig        `yaml:"workspace"`
	Telemetry TelemetryConfig        `yaml:"telemetry"`
	LogLevel  string                 `yaml:"log_level"`
	LogFormat string                 `yaml:"log_format"` // text, json
}

// ListenConfig configures the HTTP server.
type ListenConfig struct {
	Address      string   `yaml:"address"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// ModelsConfig selects the model and bounds each run.
type ModelsConfig struct {
	Default          string `yaml:"default"`
	SearchModel      string `yaml:"search_model"`
	MaxCalls         int    `yaml:"max_calls"`
	MaxParallelTools int    `yaml:"max_parallel_tools"`
	SystemPromptFile string `yaml:"system_prompt_file"`
}

// ProviderConfig holds the credentials of one model provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig lists the configured model providers.
type ProvidersConfig struct {
	Gemini    ProviderConfig `yaml:"gemini"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
}

// RetryConfig mirrors provider.RetryConfig in YAML form.
type RetryConfig struct {
	Attempts     int           `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// StorageConfig selects the conversation store.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // file, sqlite, memory
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// TelegramConfig configures the bot.
type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	APIBase  string  `yaml:"api_base"`
	SendRate float64 `yaml:"send_rate"`
}

// WorkspaceConfig is where generated invoices are written.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

// TelemetryConfig controls the JSONL event log.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Load reads configuration from a YAML file. Values the file omits keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Address: ":8000"},
		Models: ModelsConfig{
			Default:  provider.DefaultGeminiModel,
			MaxCalls: 10,
		},
		Providers: ProvidersConfig{
			Gemini:    ProviderConfig{APIKey: os.Getenv("GEMINI_API_KEY")},
			Anthropic: ProviderConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
			OpenAI:    ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
		},
		Retry: RetryConfig{
			Attempts:     2,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			DataDir: "data",
		},
		Workspace: WorkspaceConfig{Dir: "."},
		LogLevel:  "info",
	}
}

// ProviderName returns the provider serving model, judged by its id prefix.
func ProviderName(model string) string {
	switch {
	case strings.HasPrefix(model, "gemini-"):
		return "gemini"
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "openai"
	default:
		return ""
	}
}

// Provider returns the settings for the named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "gemini":
		return c.Providers.Gemini, true
	case "anthropic":
		return c.Providers.Anthropic, true
	case "openai":
		return c.Providers.OpenAI, true
	default:
		return ProviderConfig{}, false
	}
}

// Validate reports every missing or inconsistent value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Models.Default == "" {
		errs = append(errs, errors.New("models.default is required"))
	} else if name := ProviderName(c.Models.Default); name == "" {
		errs = append(errs, fmt.Errorf("models.default %q: no provider serves this model", c.Models.Default))
	} else if p, _ := c.Provider(name); p.APIKey == "" {
		errs = append(errs, fmt.Errorf("providers.%s.api_key is required for model %s", name, c.Models.Default))
	}
	if c.Models.MaxCalls < 0 {
		errs = append(errs, errors.New("models.max_calls must not be negative"))
	}
	if c.Models.MaxParallelTools < 0 {
		errs = append(errs, errors.New("models.max_parallel_tools must not be negative"))
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q (valid: file, sqlite, memory)", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q (valid: text, json)", c.LogFormat))
	}
	for model, r := range c.Pricing {
		if r.InputPerMillion < 0 || r.OutputPerMillion < 0 {
			errs = append(errs, fmt.Errorf("pricing.%s: rates must not be negative", model))
		}
	}
	return errors.Join(errs...)
}

// PricingTable is the built-in pricing overlaid with the configured rates.
func (c *Config) PricingTable() usage.Pricing {
	p := usage.DefaultPricing()
	for model, r := range c.Pricing {
		p[model] = r
	}
	return p
}

// RetryPolicy converts the retry section for provider.WithRetry.
func (c *Config) RetryPolicy() provider.RetryConfig {
	return provider.RetryConfig{
		Attempts:     c.Retry.Attempts,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   c.Retry.Multiplier,
	}
}

// DatabasePath is the SQLite file shared by the conversation store, the
// invoice archive, the contact book and the usage ledger.
func (c *Config) DatabasePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Storage.DataDir, "snapbooks.db")
}

// ConversationDir holds one JSON file per conversation for the file backend.
func (c *Config) ConversationDir() string {
	return filepath.Join(c.Storage.DataDir, "conversations")
}

// SystemPrompt returns the configured prompt file's content, or the
// built-in prompt when none is set.
func (c *Config) SystemPrompt() (string, error) {
	if c.Models.SystemPromptFile == "" {
		return DefaultSystemPrompt, nil
	}
	b, err := os.ReadFile(c.Models.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(b), nil
}
