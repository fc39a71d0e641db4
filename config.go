package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default council, used when neither the council file nor saved settings
// name one.
var (
	DefaultCouncilModels = []string{
		"openai/gpt-5.1",
		"google/gemini-3-pro-preview",
		"anthropic/claude-sonnet-4.5",
		"x-ai/grok-4",
	}
	DefaultChairmanModel = "google/gemini-3-pro-preview"
	DefaultTitleModel    = "google/gemini-2.5-flash"
)

// Storage backends.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config holds process configuration. It is built once in main and passed
// to constructors; nothing reads it globally.
type Config struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string

	Council    CouncilConfig
	TitleModel string

	ModelQueryTimeout time.Duration
	TitleGenTimeout   time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	RequestBurst      int
	ModelCacheTTL     time.Duration

	StorageBackend string
	DataDir        string
	SQLitePath     string
	SettingsFile   string

	Port               string
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	LogLevel           string
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		OpenRouterBaseURL:  DefaultOpenRouterURL,
		Council:            CouncilConfig{Members: append([]string(nil), DefaultCouncilModels...), Chairman: DefaultChairmanModel},
		TitleModel:         DefaultTitleModel,
		ModelQueryTimeout:  120 * time.Second,
		TitleGenTimeout:    30 * time.Second,
		MaxRetries:         3,
		RequestsPerSecond:  0,
		RequestBurst:       4,
		ModelCacheTTL:      5 * time.Minute,
		StorageBackend:     StorageJSON,
		DataDir:            "data/conversations",
		SQLitePath:         "data/council.db",
		SettingsFile:       "data/settings.json",
		Port:               "8001",
		CORSAllowedOrigins: []string{},
		MaxRequestBodySize: 1 << 20,
		LogLevel:           "info",
	}
}

// councilFile is the on-disk shape of COUNCIL_FILE.
type councilFile struct {
	CouncilModels []string `toml:"council_models" yaml:"council_models" json:"council_models"`
	ChairmanModel string   `toml:"chairman_model" yaml:"chairman_model" json:"chairman_model"`
	TitleModel    string   `toml:"title_model" yaml:"title_model" json:"title_model"`
}

// LoadConfig loads configuration from a .env file (current or parent
// directory), the environment, and the optional council file named by
// COUNCIL_FILE. Environment variables win over the council file.
func LoadConfig() (*Config, error) {
	for _, envPath := range []string{".env", "../.env"} {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				break
			}
		}
	}

	cfg := DefaultConfig()

	if path := os.Getenv("COUNCIL_FILE"); path != "" {
		if err := LoadCouncilFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCouncilFile reads council members, chairman and title model from a
// TOML, YAML or JSON file, chosen by extension.
func LoadCouncilFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read council file: %w", err)
	}

	var file councilFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return fmt.Errorf("failed to decode TOML council file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to decode YAML council file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to decode JSON council file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported council file type %q", filepath.Ext(path))
	}

	if len(file.CouncilModels) > 0 {
		cfg.Council.Members = file.CouncilModels
	}
	if file.ChairmanModel != "" {
		cfg.Council.Chairman = file.ChairmanModel
	}
	if file.TitleModel != "" {
		cfg.TitleModel = file.TitleModel
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	c.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")

	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("OPENROUTER_BASE_URL", &c.OpenRouterBaseURL)
	setString("CHAIRMAN_MODEL", &c.Council.Chairman)
	setString("TITLE_MODEL", &c.TitleModel)
	setString("STORAGE_BACKEND", &c.StorageBackend)
	setString("DATA_DIR", &c.DataDir)
	setString("SQLITE_PATH", &c.SQLitePath)
	setString("SETTINGS_FILE", &c.SettingsFile)
	setString("PORT", &c.Port)
	setString("LOG_LEVEL", &c.LogLevel)

	if v := os.Getenv("COUNCIL_MODELS"); v != "" {
		c.Council.Members = splitList(v, ",")
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v, ",")
	}

	var errs []error
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration("MODEL_QUERY_TIMEOUT", &c.ModelQueryTimeout)
	setDuration("TITLE_GEN_TIMEOUT", &c.TitleGenTimeout)
	setDuration("MODEL_CACHE_TTL", &c.ModelCacheTTL)
	setInt("MAX_RETRIES", &c.MaxRetries)
	setInt("REQUEST_BURST", &c.RequestBurst)
	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("REQUESTS_PER_SECOND: %w", err))
		} else {
			c.RequestsPerSecond = rps
		}
	}
	return errors.Join(errs...)
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if err := c.Council.Validate(); err != nil {
		return err
	}
	if c.StorageBackend != StorageJSON && c.StorageBackend != StorageSQLite {
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.ModelQueryTimeout <= 0 || c.TitleGenTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MaxRetries < 1 {
		return errors.New("MAX_RETRIES must be at least 1")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("REQUESTS_PER_SECOND must not be negative")
	}
	return nil
}

// RequireAPIKey reports an error when no OpenRouter key is configured.
func (c *Config) RequireAPIKey() error {
	if c.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY environment variable is required")
	}
	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
