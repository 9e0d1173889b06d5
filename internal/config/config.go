// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete neko configuration.
type Config struct {
	// Endpoint is the primary chat-completions endpoint.
	Endpoint EndpointConfig `toml:"endpoint"`

	// Vision is the endpoint promoted to when images are submitted.
	Vision VisionConfig `toml:"vision"`

	// Rewrite is the secondary endpoint for condensing long replies.
	Rewrite RewriteConfig `toml:"rewrite"`

	// Chat contains conversation behavior settings.
	Chat ChatConfig `toml:"chat"`
}

// EndpointConfig contains the primary endpoint settings.
type EndpointConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1"
	BaseURL string `toml:"base_url"`
	// APIKey is the bearer credential
	APIKey string `toml:"api_key"`
	// Model is the default model identifier
	Model string `toml:"model"`
	// Temperature is the sampling temperature
	Temperature float64 `toml:"temperature"`
	// RequestsPerMinute enables client-side pacing when positive (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// VisionConfig contains the vision endpoint settings. Empty BaseURL or
// APIKey fall back to the primary endpoint; an empty Model disables
// vision promotion.
type VisionConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// RewriteConfig contains the rewrite endpoint settings.
type RewriteConfig struct {
	// Enabled turns the over-length rewrite pipeline on
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	// MaxResponseLength is the measured-length threshold for rewriting
	MaxResponseLength int `toml:"max_response_length"`
	// TimeoutSecs bounds the rewrite call
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig contains conversation behavior settings.
type ChatConfig struct {
	// SystemInstructions seeds every new session's system turn
	SystemInstructions string `toml:"system_instructions"`
	// RepetitionThreshold is the similarity score treated as a repeat (0.0-1.0)
	RepetitionThreshold float64 `toml:"repetition_threshold"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
		Rewrite: RewriteConfig{
			Enabled:           false,
			MaxResponseLength: 200,
			TimeoutSecs:       6,
		},
		Chat: ChatConfig{
			SystemInstructions:  "你是一个乐于助人的助手。",
			RepetitionThreshold: 0.8,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the neko configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".neko"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.neko/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are
// applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	// SECURITY: Check and fix file permissions if needed
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to the default TOML file.
// SECURITY: Creates the file with 0600 permissions (owner read/write only).
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# neko configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SetDefaults fills in zero-value fields that have non-zero defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Endpoint.BaseURL == "" {
		c.Endpoint.BaseURL = defaults.Endpoint.BaseURL
	}
	if c.Endpoint.Model == "" {
		c.Endpoint.Model = defaults.Endpoint.Model
	}
	if c.Endpoint.Temperature == 0 {
		c.Endpoint.Temperature = defaults.Endpoint.Temperature
	}
	if c.Rewrite.MaxResponseLength == 0 {
		c.Rewrite.MaxResponseLength = defaults.Rewrite.MaxResponseLength
	}
	if c.Rewrite.TimeoutSecs == 0 {
		c.Rewrite.TimeoutSecs = defaults.Rewrite.TimeoutSecs
	}
	if c.Chat.SystemInstructions == "" {
		c.Chat.SystemInstructions = defaults.Chat.SystemInstructions
	}
	if c.Chat.RepetitionThreshold == 0 {
		c.Chat.RepetitionThreshold = defaults.Chat.RepetitionThreshold
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Endpoint.BaseURL != "" {
		if _, err := url.Parse(c.Endpoint.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "endpoint.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Endpoint.Temperature < 0 || c.Endpoint.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %v", c.Endpoint.Temperature),
		})
	}
	if c.Endpoint.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.requests_per_minute",
			Message: "must be non-negative",
		})
	}

	if c.Rewrite.Enabled && c.Rewrite.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "rewrite.model",
			Message: "required when rewrite is enabled",
		})
	}
	if c.Rewrite.MaxResponseLength < 0 {
		errs = append(errs, ValidationError{
			Field:   "rewrite.max_response_length",
			Message: "must be non-negative",
		})
	}
	if c.Rewrite.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "rewrite.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Chat.RepetitionThreshold < 0 || c.Chat.RepetitionThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.repetition_threshold",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %v", c.Chat.RepetitionThreshold),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - NEKO_BASE_URL: overrides endpoint.base_url
//   - NEKO_API_KEY: overrides endpoint.api_key
//   - NEKO_MODEL: overrides endpoint.model
//   - NEKO_VISION_MODEL: overrides vision.model
//   - NEKO_SYSTEM_INSTRUCTIONS: overrides chat.system_instructions
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("NEKO_BASE_URL"); baseURL != "" {
		c.Endpoint.BaseURL = baseURL
	}
	if key := os.Getenv("NEKO_API_KEY"); key != "" {
		c.Endpoint.APIKey = key
	}
	if model := os.Getenv("NEKO_MODEL"); model != "" {
		c.Endpoint.Model = model
	}
	if visionModel := os.Getenv("NEKO_VISION_MODEL"); visionModel != "" {
		c.Vision.Model = visionModel
	}
	if instructions := os.Getenv("NEKO_SYSTEM_INSTRUCTIONS"); instructions != "" {
		c.Chat.SystemInstructions = instructions
	}
}
