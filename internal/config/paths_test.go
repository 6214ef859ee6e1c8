package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name        string
		paths       PathsConfig
		storageDir  string
		wantLicense string
		wantSlots   string
	}{
		{
			name:        "defaults under base dir",
			paths:       PathsConfig{BaseDir: base},
			wantLicense: filepath.Join(base, LicenseFileName),
			wantSlots:   filepath.Join(base, SlotsDirName),
		},
		{
			name:        "relative license file",
			paths:       PathsConfig{BaseDir: base, LicenseFile: "custom.json"},
			wantLicense: filepath.Join(base, "custom.json"),
			wantSlots:   filepath.Join(base, SlotsDirName),
		},
		{
			name:        "absolute overrides",
			paths:       PathsConfig{BaseDir: base, LicenseFile: filepath.Join(base, "x", "lic.json")},
			storageDir:  filepath.Join(base, "y", "slots"),
			wantLicense: filepath.Join(base, "x", "lic.json"),
			wantSlots:   filepath.Join(base, "y", "slots"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Paths = tt.paths
			cfg.Storage.Dir = tt.storageDir

			paths, err := cfg.ResolvePaths()
			require.NoError(t, err)
			assert.Equal(t, tt.wantLicense, paths.LicenseFile)
			assert.Equal(t, tt.wantSlots, paths.SlotsDir)
			assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "licensegate")
	cfg := Default()
	cfg.Paths.BaseDir = base

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	info, err := os.Stat(paths.LogsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.False(t, FileExists(paths.LicenseFile))
}
