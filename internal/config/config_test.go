package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcct-zkfuzz/zkfuzz/internal/mutate"
)

func TestLoadMutationSettingOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setting.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"program_population_size": 64,
		"seed": 99,
		"random_value_ranges": [[0, 10], [100, 200]],
		"random_value_probs": [0.9, 0.1]
	}`), 0o644))

	cfg, err := LoadMutationSetting(path)
	require.NoError(t, err)

	def := mutate.DefaultConfig()
	assert.Equal(t, 64, cfg.ProgramPopulationSize)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, def.MaxGenerations, cfg.MaxGenerations, "unset fields keep their defaults")
	require.Len(t, cfg.RandomValueRanges, 2)
	assert.Equal(t, int64(100), cfg.RandomValueRanges[1].Lo)
}

func TestLoadMutationSettingEmptyPathIsDefault(t *testing.T) {
	cfg, err := LoadMutationSetting("")
	require.NoError(t, err)
	assert.Equal(t, mutate.DefaultConfig(), cfg)
}

func TestLoadMutationSettingMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadMutationSetting(path)
	require.Error(t, err)
}

func TestLoadWhitelist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.txt")
	require.NoError(t, os.WriteFile(path, []byte("# exempt templates\nPoseidon\n\nLessThan\n"), 0o644))

	names, err := LoadWhitelist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Poseidon", "LessThan"}, names)

	empty, err := LoadWhitelist("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
