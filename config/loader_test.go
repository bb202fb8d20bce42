package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenNoFilesExist(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.PaddingSize)
}

func TestLoadPrefersEnvironmentSpecificFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "default.yaml"), []byte("padding_size: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "staging.yaml"), []byte("padding_size: 2\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PaddingSize)
}

func TestLoadFallsBackToDefaultYAML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "default.yaml"), []byte("padding_size: 7\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PaddingSize)
}

func TestLoadEnvOverrideBeatsFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("padding_size: 7\n"), 0o644))
	os.Setenv("MPENC_PADDING_SIZE", "99")
	defer os.Unsetenv("MPENC_PADDING_SIZE")

	cfg, err := Load(LoaderOptions{ConfigDir: tmpDir, Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.PaddingSize)
}

func TestDefaultLoaderOptions(t *testing.T) {
	opts := DefaultLoaderOptions()
	assert.Equal(t, "config", opts.ConfigDir)
	assert.False(t, opts.SkipEnvSubstitution)
}

func TestMustLoadPanicsOnUnreadableFile(t *testing.T) {
	tmpDir := t.TempDir()
	badPath := filepath.Join(tmpDir, "default.yaml")
	require.NoError(t, os.Mkdir(badPath, 0o755))

	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: tmpDir, Environment: "test"})
	})
}
