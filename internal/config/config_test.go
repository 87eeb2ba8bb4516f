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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8003", cfg.Server.Port)
	assert.Equal(t, "pneumonia", cfg.Condition)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "pneumonia_grading", cfg.Store.SQLite.Table)
	assert.Equal(t, []string{".jpeg", ".jpg", ".png"}, cfg.Images.Extensions)

	assert.Equal(t, "image_id", cfg.Store.SQLite.Columns.Key)
	assert.Equal(t, "Pneumonia_Grading", cfg.Store.CSV.Columns.Grade)
	assert.Equal(t, "Percentage of Grade", cfg.Store.CSV.Columns.Percentage)
}

func TestLoadConfigPneumothoraxColumnDefaults(t *testing.T) {
	path := writeConfig(t, "condition: pneumothorax\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Pneumothorax_Grading", cfg.Store.CSV.Columns.Grade)
	assert.Equal(t, "Pneumothorax_Status", cfg.Store.CSV.Columns.GroundTruth)
	assert.Equal(t, "Percentage", cfg.Store.CSV.Columns.Percentage)
	assert.Equal(t, "Pneumothorax_Type", cfg.Store.CSV.Columns.PneumothoraxType)
}

func TestLoadConfigColumnOverridesWin(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: csv
  csv:
    path: ./data/legacy.csv
    columns:
      key: Image_File
      grade: Grading
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Image_File", cfg.Store.CSV.Columns.Key)
	assert.Equal(t, "Grading", cfg.Store.CSV.Columns.Grade)
	// Unset names still fall back
	assert.Equal(t, "Ground_Truth", cfg.Store.CSV.Columns.GroundTruth)
}

func TestLoadConfigExpandsRemoteToken(t *testing.T) {
	t.Setenv("GRADING_TEST_TOKEN", "secret-value")
	path := writeConfig(t, `
store:
  backend: remote
  remote:
    repo: example/results
    file_path: grading.csv
    token: ${GRADING_TEST_TOKEN}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-value", cfg.Store.Remote.Token)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
