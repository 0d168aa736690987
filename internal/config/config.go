// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to the OS keychain or the
// environment. Environment variables (optionally seeded from a .env file) override
// whatever the file says.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chatdb/cli/internal/xdg"

	"github.com/joho/godotenv"
)

// LookupFunc resolves an environment variable; os.LookupEnv in production.
type LookupFunc func(string) (string, bool)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel       string       `json:"log_level"`
	DefaultBackend string       `json:"default_backend"`
	LLM            LLMConfig    `json:"llm"`
	Import         ImportConfig `json:"import"`
}

// LLMConfig describes the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL     string   `json:"base_url"`
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	Timeout     Duration `json:"timeout"`
}

// ImportConfig tunes the CSV importers.
type ImportConfig struct {
	BatchSize int `json:"batch_size"`
}

// Duration is a time.Duration stored as a Go duration string ("30s") in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		LogLevel:       "info",
		DefaultBackend: "sql",
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			Timeout:     Duration(60 * time.Second),
		},
		Import: ImportConfig{BatchSize: 1000},
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration file and applies environment overrides.
func Load() (Config, error) {
	p, err := path()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(p, os.LookupEnv)
}

// LoadFrom reads configuration from p; a missing file yields defaults.
// Values found through lookup win over the file.
func LoadFrom(p string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	c := Defaults()
	data, err := os.ReadFile(p)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", p, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	if err := applyString(lookup, "CHATDB_LOG_LEVEL", &c.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHATDB_DEFAULT_BACKEND", &c.DefaultBackend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHATDB_LLM_BASE_URL", &c.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHATDB_LLM_MODEL", &c.LLM.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat32(lookup, "CHATDB_LLM_TEMPERATURE", &c.LLM.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHATDB_LLM_TIMEOUT", &c.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHATDB_IMPORT_BATCH_SIZE", &c.Import.BatchSize); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the rest of the CLI cannot work with.
func (c Config) Validate() error {
	switch strings.ToLower(c.DefaultBackend) {
	case "sql", "mongodb":
	default:
		return fmt.Errorf("invalid default_backend %q: must be sql or mongodb", c.DefaultBackend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive")
	}
	return nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Files that do not exist are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyString(lookup LookupFunc, key string, target *string) error {
	if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
		*target = strings.TrimSpace(raw)
	}
	return nil
}

func applyInt(lookup LookupFunc, key string, target *int) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = v
	return nil
}

func applyFloat32(lookup LookupFunc, key string, target *float32) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = float32(v)
	return nil
}

func applyDuration(lookup LookupFunc, key string, target *Duration) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = Duration(v)
	return nil
}
