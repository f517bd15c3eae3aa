package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance.
var validate = validator.New()

// Config holds the board's environment-supplied settings. The API key and
// the feed settings are optional: a missing key sends no auth header, and a
// missing feed URL or token disables realtime entirely (pull-only mode, not
// an error).
type Config struct {
	// APIBaseURL is the billing API root, e.g. "https://host/api".
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url" validate:"required,url"`

	// APIKey is sent as X-API-KEY when non-empty.
	APIKey string `json:"api_key" yaml:"api_key"`

	// FeedURL is the realtime change feed endpoint.
	FeedURL string `json:"feed_url" yaml:"feed_url" validate:"omitempty,uri"`

	// FeedToken is the public (anon-scope) credential for the feed.
	FeedToken string `json:"feed_token" yaml:"feed_token"`

	// FeedTables lists the tables whose changes trigger refreshes.
	// Defaults to clientes and transacoes.
	FeedTables []string `json:"feed_tables" yaml:"feed_tables"`

	// ExportDir is where accounting exports are saved.
	// Empty means the current directory.
	ExportDir string `json:"export_dir" yaml:"export_dir"`
}

// DefaultFeedTables are the tables watched when none are configured.
var DefaultFeedTables = []string{"clientes", "transacoes"}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FeedEnabled reports whether the realtime feed is configured. Both the
// endpoint and the credential are required; absence of either degrades the
// board to pull-only.
func (c Config) FeedEnabled() bool {
	return c.FeedURL != "" && c.FeedToken != ""
}

// Tables returns the configured feed tables, or the defaults.
func (c Config) Tables() []string {
	if len(c.FeedTables) > 0 {
		return c.FeedTables
	}
	return DefaultFeedTables
}

// ConfigFromEnv builds a Config from TALLY_* environment variables,
// loading a .env file first if one exists:
//
//	TALLY_API_BASE_URL    required
//	TALLY_API_KEY         optional
//	TALLY_FEED_URL        optional
//	TALLY_FEED_TOKEN      optional
//	TALLY_FEED_TABLES     optional, comma-separated
//	TALLY_EXPORT_DIR      optional
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIBaseURL: os.Getenv("TALLY_API_BASE_URL"),
		APIKey:     os.Getenv("TALLY_API_KEY"),
		FeedURL:    os.Getenv("TALLY_FEED_URL"),
		FeedToken:  os.Getenv("TALLY_FEED_TOKEN"),
		ExportDir:  os.Getenv("TALLY_EXPORT_DIR"),
	}
	if tables := os.Getenv("TALLY_FEED_TABLES"); tables != "" {
		for _, t := range strings.Split(tables, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.FeedTables = append(cfg.FeedTables, t)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromFile reads and validates a JSON or YAML config file.
func ConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return parseConfig(data)
}

// WatchConfig watches a configuration source for changes and invokes fn
// with each valid configuration, including the initial one. Invalid payloads
// are reported to fn's error return path via onErr (which may be nil) and
// the previous configuration stays in effect.
//
// WatchConfig blocks until the context is canceled or the watcher closes.
func WatchConfig(ctx context.Context, w Watcher, fn func(Config), onErr func(error)) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-changes:
			if !ok {
				return nil
			}
			cfg, err := parseConfig(raw)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			fn(cfg)
		}
	}
}

// parseConfig decodes config bytes, detecting JSON by its leading brace and
// falling back to YAML, then validates the result.
func parseConfig(data []byte) (Config, error) {
	var cfg Config
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
