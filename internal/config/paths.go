package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
type Paths struct {
	BaseDir     string
	LicenseFile string
	LogsDir     string
	SlotsDir    string
}

// GetPaths returns the application paths under the per-user configuration
// directory (for example ~/.config/licensegate on Linux).
func GetPaths() (*Paths, error) {
	return Default().ResolvePaths()
}

// ResolvePaths resolves the configured paths, falling back to the per-user
// configuration directory for anything left empty.
func (c *Config) ResolvePaths() (*Paths, error) {
	baseDir := c.Paths.BaseDir
	if baseDir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user config dir: %w", err)
		}
		baseDir = filepath.Join(userDir, AppName)
	}

	licenseFile := c.Paths.LicenseFile
	if licenseFile == "" {
		licenseFile = filepath.Join(baseDir, LicenseFileName)
	} else if !filepath.IsAbs(licenseFile) {
		licenseFile = filepath.Join(baseDir, licenseFile)
	}

	slotsDir := c.Storage.Dir
	if slotsDir == "" {
		slotsDir = filepath.Join(baseDir, SlotsDirName)
	}

	return &Paths{
		BaseDir:     baseDir,
		LicenseFile: licenseFile,
		LogsDir:     filepath.Join(baseDir, "logs"),
		SlotsDir:    slotsDir,
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.BaseDir,
		p.LogsDir,
		filepath.Dir(p.LicenseFile),
		p.SlotsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// LogPathResolution logs the resolved paths at startup
func (p *Paths) LogPathResolution() {
	slog.Info("Resolved application paths",
		slog.Group("paths",
			slog.String("base_dir", p.BaseDir),
			slog.String("license_file", p.LicenseFile),
			slog.String("logs_dir", p.LogsDir),
			slog.String("slots_dir", p.SlotsDir),
		),
		slog.Bool("license_exists", FileExists(p.LicenseFile)),
	)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
