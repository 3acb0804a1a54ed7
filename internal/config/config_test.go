package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "grid", cfg.Analysis.Optimizer)
	assert.True(t, cfg.Analysis.AnalyzeNormal)
	assert.False(t, cfg.Analysis.AnalyzeOblique)
	assert.Equal(t, 1.0, cfg.Analysis.Sensitivity)
	assert.Equal(t, 10.0, cfg.Analysis.Lat0Step)
	assert.Equal(t, "circle", cfg.Analysis.MatchMethod)
	assert.Equal(t, 20, cfg.Analysis.PrintedResults)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
analysis:
  optimizer: de
  analyzeoblique: true
  maxgenerations: 250
  families:
    - merc
    - bonne
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "de", cfg.Analysis.Optimizer)
	assert.True(t, cfg.Analysis.AnalyzeOblique)
	assert.Equal(t, 250, cfg.Analysis.MaxGenerations)
	assert.Equal(t, []string{"merc", "bonne"}, cfg.Analysis.Families)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Defaults still apply for unset keys
	assert.True(t, cfg.Analysis.AnalyzeNormal)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
