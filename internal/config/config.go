// Package config loads and validates the vttlink configuration. Values come
// from an optional TOML file with CLI flags layered on top; validation runs
// before any transcript is touched so bad thresholds fail the run at startup.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutDir        string `toml:"out_dir"`
	LogDir        string `toml:"log_dir"`
	KnowledgeBase string `toml:"knowledge_base"`
}

// Stitching bounds segment accumulation.
type Stitching struct {
	MaxTokensPerSegment  int     `toml:"max_tokens_per_segment"`
	MaxSecondsPerSegment float64 `toml:"max_seconds_per_segment"`
}

// Extraction configures the entity recognizer.
type Extraction struct {
	ModelPath     string   `toml:"model_path"`
	Labels        []string `toml:"labels"`
	PatternsPath  string   `toml:"patterns_path"`
	ContextTokens int      `toml:"context_tokens"`
}

// Linking configures the two-stage candidate pipeline.
type Linking struct {
	Enabled         bool    `toml:"enabled"`
	AcceptThreshold float64 `toml:"accept_threshold"`
	ReviewThreshold float64 `toml:"review_threshold"`
}

// Wikidata configures the remote search and entity-data APIs.
type Wikidata struct {
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	UserAgent      string `toml:"user_agent"`
	MinIntervalMS  int    `toml:"min_interval_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry bounds the backoff loop around remote calls.
type Retry struct {
	MaxAttempts  int     `toml:"max_attempts"`
	BaseDelayMS  int     `toml:"base_delay_ms"`
	MaxDelayMS   int     `toml:"max_delay_ms"`
	JitterFactor float64 `toml:"jitter_factor"`
}

// Enrichment toggles authority identifier fetching.
type Enrichment struct {
	Enabled bool `toml:"enabled"`
}

// Workflow controls cross-file parallelism.
type Workflow struct {
	Workers int `toml:"workers"`
}

// Logging controls logger construction.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete runtime configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Stitching  Stitching  `toml:"stitching"`
	Extraction Extraction `toml:"extraction"`
	Linking    Linking    `toml:"linking"`
	Wikidata   Wikidata   `toml:"wikidata"`
	Retry      Retry      `toml:"retry"`
	Enrichment Enrichment `toml:"enrichment"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vttlink/config.toml")
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, normalizes, and validates a configuration file. The
// returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string { return sampleConfig }

// WriteSample writes the sample configuration to path, refusing to overwrite
// an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file not found at %s", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
