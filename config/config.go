package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"auto_report_author/document"
	"auto_report_author/generator"
)

const (
	DefaultDocument   = "report.md"
	DefaultFindings   = "findings.yaml"
	DefaultServerAddr = ":8080"
)

// Config is one authoring session: what to write, with which model, and where
// the results live on disk.
type Config struct {
	Title           string                 `yaml:"title"`
	Instruction     string                 `yaml:"instruction,omitempty"`
	InstructionFile string                 `yaml:"instruction_file,omitempty"`
	Outline         []document.ChapterSpec `yaml:"outline"`
	Document        string                 `yaml:"document,omitempty"`
	Findings        string                 `yaml:"findings,omitempty"`
	LLM             LLMConfig              `yaml:"llm"`
	Budget          BudgetConfig           `yaml:"budget,omitempty"`
	Retry           RetryConfig            `yaml:"retry,omitempty"`
	ServerAddr      string                 `yaml:"server_addr,omitempty"`
}

type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model,omitempty"`
	APIKey      string   `yaml:"api_key,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

type BudgetConfig struct {
	CapacityTokens int     `yaml:"capacity_tokens,omitempty"`
	CharsPerToken  float64 `yaml:"chars_per_token,omitempty"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
}

var defaultKeyEnv = map[string]string{
	generator.ProviderOpenAI:    "OPENAI_API_KEY",
	generator.ProviderDeepSeek:  "DEEPSEEK_API_KEY",
	generator.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// Load reads a YAML session file. A .env next to it is loaded first so API keys
// can stay out of the file; relative paths are resolved against its directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	dir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.resolve(dir); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) error {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	if c.InstructionFile != "" {
		c.InstructionFile = abs(c.InstructionFile)
		data, err := os.ReadFile(c.InstructionFile)
		if err != nil {
			return fmt.Errorf("reading instruction_file: %w", err)
		}
		c.Instruction = string(data)
	}
	c.Title = strings.TrimSpace(c.Title)
	for i := range c.Outline {
		ch := &c.Outline[i]
		ch.ID = strings.TrimSpace(ch.ID)
		ch.Title = strings.TrimSpace(ch.Title)
		ch.Brief = strings.TrimSpace(ch.Brief)
	}
	if c.Document == "" {
		c.Document = DefaultDocument
	}
	if c.Findings == "" {
		c.Findings = DefaultFindings
	}
	c.Document = abs(c.Document)
	c.Findings = abs(c.Findings)
	return nil
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.Budget.CapacityTokens == 0 {
		c.Budget.CapacityTokens = generator.DefaultCapacity
	}
	if c.Budget.CharsPerToken == 0 {
		c.Budget.CharsPerToken = generator.DefaultCharsPerToken
	}
	def := generator.DefaultRetryPolicy()
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.MaxAttempts
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = def.BaseDelay
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = def.MaxDelay
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaultKeyEnv[c.LLM.Provider]
	}
	if c.LLM.APIKey == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("config: title is required")
	}
	if strings.TrimSpace(c.Instruction) == "" {
		return errors.New("config: instruction or instruction_file is required")
	}
	if len(c.Outline) == 0 {
		return errors.New("config: outline must list at least one chapter")
	}
	seen := make(map[string]bool, len(c.Outline))
	for i, ch := range c.Outline {
		if ch.ID == "" || ch.Title == "" {
			return fmt.Errorf("config: outline[%d] needs both id and title", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("config: outline[%d]: duplicate id %q", i, ch.ID)
		}
		seen[ch.ID] = true
	}
	switch c.LLM.Provider {
	case "":
		return errors.New("config: llm.provider is required")
	case generator.ProviderMock:
	default:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: llm.api_key is empty and %s is not set", c.LLM.APIKeyEnv)
		}
	}
	if c.Budget.CapacityTokens <= 0 {
		return fmt.Errorf("config: budget.capacity_tokens must be positive, got %d", c.Budget.CapacityTokens)
	}
	if c.Budget.CharsPerToken <= 0 {
		return fmt.Errorf("config: budget.chars_per_token must be positive, got %v", c.Budget.CharsPerToken)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.New("config: retry.max_delay must not be below retry.base_delay")
	}
	return nil
}

func (c Config) Settings() generator.LLMSettings {
	return generator.LLMSettings{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}

func (c Config) RetryPolicy() generator.RetryPolicy {
	return generator.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
	}
}

func (c Config) ContextBudget() generator.Budget {
	return generator.NewBudget(c.Budget.CapacityTokens, c.Budget.CharsPerToken)
}
