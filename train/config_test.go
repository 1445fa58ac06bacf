package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
max_iterations: 7
engine: log
heldout_fraction: 0.2
corpus:
  lblnames: data/clsp.lblnames
  labels: data/clsp.trnlbls
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, EngineLog, cfg.Engine)
	assert.Equal(t, 0.2, cfg.HeldOutFraction)
	assert.Equal(t, "data/clsp.trnlbls", cfg.Corpus.Labels)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().ConvergenceThresh, cfg.ConvergenceThresh)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestLoadConfigRejects(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":   "max_iteration: 3\n",
		"bad engine":    "engine: fast\n",
		"zero budget":   "max_iterations: 0\n",
		"full held-out": "heldout_fraction: 1\n",
	} {
		_, err := LoadConfig(writeConfig(t, body))
		assert.Error(t, err, name)
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
