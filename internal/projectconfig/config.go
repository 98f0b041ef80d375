// Package projectconfig provides the ProjectConfig struct and loader for
// .answerlab.yaml project-level configuration files. Secrets and deploy-time
// settings can be overridden through ANSWERLAB_* environment variables.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// Default values for project configuration. These are the single source of
// truth. New() references them and no other code should duplicate them.
const (
	DefaultConfigFile = ".answerlab.yaml"

	DefaultModel       = "gpt-4o-mini"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2

	DefaultDataPath = "data/questions.json"
	DefaultLogPath  = "data/evaluations.jsonl"
	DefaultDBPath   = "data/history.db"

	DefaultServerPort = 8000
	DefaultLanguage   = "English"
)

// supportedTags are the response languages the evaluator accepts.
var supportedTags = []language.Tag{
	language.English, language.Spanish, language.French,
	language.German, language.Italian, language.Portuguese,
}

// SupportedLanguages lists the English display names of supportedTags.
var SupportedLanguages = func() []string {
	namer := display.English.Languages()
	names := make([]string, 0, len(supportedTags))
	for _, tag := range supportedTags {
		names = append(names, namer.Name(tag))
	}
	return names
}()

// ModelConfig holds the evaluation model settings.
type ModelConfig struct {
	Name        string  `yaml:"name,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// PathsConfig holds file locations for the dataset, evaluation log and
// history database.
type PathsConfig struct {
	Data    string `yaml:"data,omitempty"`
	Log     string `yaml:"log,omitempty"`
	History string `yaml:"history,omitempty"`
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Port      int  `yaml:"port,omitempty"`
	NoBrowser bool `yaml:"no_browser,omitempty"`
}

// SentimentConfig holds settings for the feedback sentiment classifier
// service. An empty URL disables sentiment analysis (feedback is logged
// with a neutral label).
type SentimentConfig struct {
	URL string `yaml:"url,omitempty"`
}

// ArchiveConfig holds settings for archiving the evaluation log to Azure
// Blob Storage.
type ArchiveConfig struct {
	AccountURL string `yaml:"account_url,omitempty"`
	Container  string `yaml:"container,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .answerlab.yaml.
type ProjectConfig struct {
	Model     ModelConfig     `yaml:"model,omitempty"`
	Paths     PathsConfig     `yaml:"paths,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Sentiment SentimentConfig `yaml:"sentiment,omitempty"`
	Archive   ArchiveConfig   `yaml:"archive,omitempty"`
	Language  string          `yaml:"language,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Model: ModelConfig{
			Name:        DefaultModel,
			BaseURL:     DefaultBaseURL,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Paths: PathsConfig{
			Data:    DefaultDataPath,
			Log:     DefaultLogPath,
			History: DefaultDBPath,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Language: DefaultLanguage,
	}
}

// Load reads the config file at path, merges it over defaults, and applies
// environment overrides. A missing file is not an error; defaults plus
// environment are used.
func Load(path string) (*ProjectConfig, error) {
	cfg := New()

	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// no config file; defaults plus environment
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays ANSWERLAB_* environment variables. Environment wins over
// the config file so secrets never need to live on disk.
func (c *ProjectConfig) applyEnv() {
	overlay(&c.Model.APIKey, "ANSWERLAB_API_KEY")
	overlay(&c.Model.Name, "ANSWERLAB_MODEL")
	overlay(&c.Model.BaseURL, "ANSWERLAB_BASE_URL")
	overlay(&c.Paths.Data, "ANSWERLAB_DATA_PATH")
	overlay(&c.Paths.Log, "ANSWERLAB_LOG_PATH")
	overlay(&c.Paths.History, "ANSWERLAB_HISTORY_PATH")
	overlay(&c.Sentiment.URL, "ANSWERLAB_SENTIMENT_URL")
	overlay(&c.Archive.AccountURL, "ANSWERLAB_ARCHIVE_ACCOUNT")
	overlay(&c.Archive.Container, "ANSWERLAB_ARCHIVE_CONTAINER")
	overlay(&c.Language, "ANSWERLAB_LANGUAGE")

	if v := os.Getenv("ANSWERLAB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ANSWERLAB_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Model.MaxTokens = n
		}
	}
	if v := os.Getenv("ANSWERLAB_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Model.Temperature = f
		}
	}
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks value ranges that would otherwise surface as confusing
// runtime failures.
func (c *ProjectConfig) Validate() error {
	if c.Model.MaxTokens < 1 {
		return fmt.Errorf("model.max_tokens must be at least 1, got %d", c.Model.MaxTokens)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be in [0, 2], got %g", c.Model.Temperature)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if _, err := NormalizeLanguage(c.Language); err != nil {
		return err
	}
	return nil
}

// NormalizeLanguage resolves a display name ("spanish") or BCP 47 tag
// ("es", "pt-BR") to the canonical form from SupportedLanguages.
func NormalizeLanguage(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	namer := display.English.Languages()

	for _, tag := range supportedTags {
		if strings.EqualFold(namer.Name(tag), trimmed) {
			return namer.Name(tag), nil
		}
	}

	if parsed, err := language.Parse(trimmed); err == nil {
		base, _ := parsed.Base()
		for _, tag := range supportedTags {
			if supportedBase, _ := tag.Base(); supportedBase == base {
				return namer.Name(tag), nil
			}
		}
	}

	return "", fmt.Errorf("unsupported language %q (supported: %s)",
		name, strings.Join(SupportedLanguages, ", "))
}
