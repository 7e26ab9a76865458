package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigurationJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"file_in": "events.jsonl",
		"file_out": "out.h5",
		"no_db": true,
		"num_workers": 4,
		"particles": [{"name": "el", "tag": 11, "rank": 1, "expected": 11}],
		"cuts": [{"label": "el_px", "column": "rec_px", "particle": "el", "min": 0.5}]
	}`)
	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "events.jsonl", config.FileIn)
	assert.Equal(t, 4, config.NumWorkers)
	assert.True(t, config.NoDB)
	require.Len(t, config.Particles, 1)
	assert.Equal(t, int32(11), *config.Particles[0].Expected)
	assert.Nil(t, config.Cuts[0].Max)
	assert.Equal(t, 0.5, *config.Cuts[0].Min)

	// defaults survive for missing fields
	assert.Equal(t, 1000000000, config.MaxEvents)
	assert.Equal(t, 4, config.CompressionLevel)
	assert.Equal(t, []string{"rec"}, config.Types)
}

func TestLoadConfigurationYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
file_in: events.jsonl
truth_matched: true
truth_gen_type: 1
types: [rec, tru]
host: localhost
particles:
  - name: el
    tag: 11
    rank: 1
histograms:
  - name: pmag
    column: "{p}pmag"
    bins: 50
    min: 0
    max: 10
    typed: true
extra_inputs:
  RUN_config_event: int32
`)
	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.True(t, config.TruthMatched)
	assert.Equal(t, int32(1), *config.TruthGenType)
	assert.Equal(t, []string{"rec", "tru"}, config.Types)
	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, "clas12", config.DBName)
	require.Len(t, config.Histograms, 1)
	assert.True(t, config.Histograms[0].Typed)
	assert.Equal(t, "int32", config.Extra["RUN_config_event"])
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfiguration(writeConfig(t, "broken.json", `{"file_in": `))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeConfig(t, "invalid.yml", "no_db: true\n"))
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = LoadConfiguration(writeConfig(t, "workers.json", `{"file_in": "a", "num_workers": 0}`))
	assert.ErrorContains(t, err, "NumWorkers")
}
