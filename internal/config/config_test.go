// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.openai.com/v1", cfg.Endpoint.BaseURL)
	assert.Equal(t, 200, cfg.Rewrite.MaxResponseLength)
	assert.Equal(t, 6, cfg.Rewrite.TimeoutSecs)
	assert.InDelta(t, 0.8, cfg.Chat.RepetitionThreshold, 0.001)
	assert.False(t, cfg.Rewrite.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
[endpoint]
base_url = "http://localhost:8080/v1"
api_key = "secret"
model = "local-model"
temperature = 0.5
requests_per_minute = 30

[vision]
model = "vision-model"

[rewrite]
enabled = true
model = "rewrite-model"
max_response_length = 150

[chat]
system_instructions = "be brief"
repetition_threshold = 0.9
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/v1", cfg.Endpoint.BaseURL)
	assert.Equal(t, "secret", cfg.Endpoint.APIKey)
	assert.Equal(t, "local-model", cfg.Endpoint.Model)
	assert.InDelta(t, 0.5, cfg.Endpoint.Temperature, 0.001)
	assert.Equal(t, 30, cfg.Endpoint.RequestsPerMinute)
	assert.Equal(t, "vision-model", cfg.Vision.Model)
	assert.True(t, cfg.Rewrite.Enabled)
	assert.Equal(t, 150, cfg.Rewrite.MaxResponseLength)
	// Unset fields keep their defaults.
	assert.Equal(t, 6, cfg.Rewrite.TimeoutSecs)
	assert.Equal(t, "be brief", cfg.Chat.SystemInstructions)
	assert.InDelta(t, 0.9, cfg.Chat.RepetitionThreshold, 0.001)
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := writeConfig(t, "[endpoint]\nmodel = \"m\"\n")
	require.NoError(t, os.Chmod(path, 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadFromPath_MalformedTOML(t *testing.T) {
	path := writeConfig(t, "not valid toml [[[")
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NEKO_BASE_URL", "http://override:9090/v1")
	t.Setenv("NEKO_API_KEY", "env-key")
	t.Setenv("NEKO_MODEL", "env-model")
	t.Setenv("NEKO_VISION_MODEL", "env-vision")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://override:9090/v1", cfg.Endpoint.BaseURL)
	assert.Equal(t, "env-key", cfg.Endpoint.APIKey)
	assert.Equal(t, "env-model", cfg.Endpoint.Model)
	assert.Equal(t, "env-vision", cfg.Vision.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Endpoint.Temperature = -1 },
			wantErr: "endpoint.temperature",
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Endpoint.Temperature = 3 },
			wantErr: "endpoint.temperature",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Endpoint.RequestsPerMinute = -5 },
			wantErr: "endpoint.requests_per_minute",
		},
		{
			name:    "rewrite enabled without model",
			mutate:  func(c *Config) { c.Rewrite.Enabled = true },
			wantErr: "rewrite.model",
		},
		{
			name:    "repetition threshold out of range",
			mutate:  func(c *Config) { c.Chat.RepetitionThreshold = 1.5 },
			wantErr: "chat.repetition_threshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.Temperature = -1
	cfg.Chat.RepetitionThreshold = 2

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidateErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, Default().Endpoint.BaseURL, cfg.Endpoint.BaseURL)
	assert.Equal(t, Default().Rewrite.MaxResponseLength, cfg.Rewrite.MaxResponseLength)
	assert.Equal(t, Default().Chat.RepetitionThreshold, cfg.Chat.RepetitionThreshold)
}
