// Package config loads the application configuration of planact from TOML
// or YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/planact/agent"
	"github.com/hupe1980/planact/logging"
	"github.com/hupe1980/planact/memory"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// LLM selects and parameterizes the language model.
type LLM struct {
	Provider    string  `json:"provider" toml:"provider" yaml:"provider"`
	BaseURL     string  `json:"base_url" toml:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key" toml:"api_key" yaml:"api_key"`
	ModelName   string  `json:"model_name" toml:"model_name" yaml:"model_name"`
	Temperature float64 `json:"temperature" toml:"temperature" yaml:"temperature"`
	MaxTokens   int64   `json:"max_tokens" toml:"max_tokens" yaml:"max_tokens"`
}

// Tools configures the built in toolkits.
type Tools struct {
	// WorkspaceDir confines the file toolkit.
	WorkspaceDir string `json:"workspace_dir" toml:"workspace_dir" yaml:"workspace_dir"`
	// Compactable lists functions whose results are dropped between steps.
	Compactable []string `json:"compactable" toml:"compactable" yaml:"compactable"`
}

// Session selects the session store. An empty SQLitePath keeps sessions in memory.
type Session struct {
	SQLitePath string `json:"sqlite_path" toml:"sqlite_path" yaml:"sqlite_path"`
}

// Log configures logging.
type Log struct {
	Level  string `json:"level" toml:"level" yaml:"level"`
	Format string `json:"format" toml:"format" yaml:"format"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	LLM     LLM          `json:"llm" toml:"llm" yaml:"llm"`
	Agent   agent.Config `json:"agent" toml:"agent" yaml:"agent"`
	Tools   Tools        `json:"tools" toml:"tools" yaml:"tools"`
	Session Session      `json:"session" toml:"session" yaml:"session"`
	Log     Log          `json:"log" toml:"log" yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		LLM: LLM{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://api.deepseek.com",
			ModelName:   "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		Agent: agent.DefaultConfig(),
		Tools: Tools{
			WorkspaceDir: ".",
			Compactable:  append([]string(nil), memory.DefaultCompactable...),
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path on top of Default, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrInvalid, ext)
	}

	return nil
}

// applyEnv fills the API key from the environment. PLANACT_API_KEY wins over
// the provider specific variable; both win over the file.
func (c *AppConfig) applyEnv() {
	keys := []string{"PLANACT_API_KEY"}

	switch c.LLM.Provider {
	case ProviderAnthropic:
		keys = append(keys, "ANTHROPIC_API_KEY")
	default:
		keys = append(keys, "OPENAI_API_KEY")
	}

	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			c.LLM.APIKey = v
			return
		}
	}
}

// Validate checks the agent bounds and the enumerated settings.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}

	if c.LLM.ModelName == "" {
		errs = append(errs, errors.New("llm.model_name is required"))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v out of range 0..2", c.LLM.Temperature))
	}

	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("llm.max_tokens %d must be positive", c.LLM.MaxTokens))
	}

	errs = append(errs,
		bounded("agent.max_iterations", c.Agent.MaxIterations, 1, 100),
		bounded("agent.max_retries", c.Agent.MaxRetries, 1, 10),
		bounded("agent.max_search_result", c.Agent.MaxSearchResult, 1, 30),
	)

	if c.Tools.WorkspaceDir == "" {
		errs = append(errs, errors.New("tools.workspace_dir is required"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", f))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func bounded(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d out of range %d..%d", name, v, lo, hi)
	}

	return nil
}

// Logger builds the logger described by the Log section.
func (c *AppConfig) Logger() logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)

	return logging.NewLogger(&logging.Config{Level: level, Format: c.Log.Format, Component: "planact"})
}

// Redacted returns a copy safe to print.
func (c *AppConfig) Redacted() *AppConfig {
	out := *c
	out.Tools.Compactable = append([]string(nil), c.Tools.Compactable...)

	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "****"
	}

	return &out
}

// EncodeTOML renders c as TOML.
func (c *AppConfig) EncodeTOML() ([]byte, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return nil, err
	}

	return []byte(b.String()), nil
}

// EncodeYAML renders c as YAML.
func (c *AppConfig) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
