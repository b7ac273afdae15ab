package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("CLIENT_API_KEY", "test-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-key", cfg.Client.APIKey)
	assert.Equal(t, 1, cfg.Evals.MaxConcurrent)
	assert.Equal(t, 0.8, cfg.Evals.FailThreshold)
	assert.Equal(t, 0.9, cfg.Evals.WarnThreshold)
	assert.True(t, cfg.Evals.FailOnToolSelection)
	assert.True(t, cfg.Evals.FailOnToolCallQuantity)
	assert.Equal(t, 1.0, cfg.Evals.ToolSelectionWeight)
	assert.Empty(t, cfg.Catalog.DisabledTools)
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	viper.Reset()
	t.Setenv("CLIENT_API_KEY", "")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "toolgauge.yaml")
	content := []byte(`
client:
  api_key: file-key
  base_url: http://localhost:9099/v1
catalog:
  disabled_tools:
    - Contacts.DeleteContact
evals:
  max_concurrent: 4
  fail_threshold: 0.7
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Client.APIKey)
	assert.Equal(t, "http://localhost:9099/v1", cfg.Client.BaseURL)
	assert.Equal(t, []string{"Contacts.DeleteContact"}, cfg.Catalog.DisabledTools)
	assert.Equal(t, 4, cfg.Evals.MaxConcurrent)
	assert.Equal(t, 0.7, cfg.Evals.FailThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.9, cfg.Evals.WarnThreshold)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "toolgauge.yaml")
	content := []byte(`
client:
  api_key: k
evals:
  max_concurrent: 0
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
