package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the application
	Version = "1.0.0"

	// LicenseFormatVersion is the version of the signed license document
	LicenseFormatVersion = "v1"

	// TokenFormatVersion is the version of the persisted time token
	TokenFormatVersion = "v1"

	// APIVersion is the version of the HTTP and WebSocket API
	APIVersion = "v1"
)

// Set during build using ldflags
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version       string `json:"version"`
	BuildTime     string `json:"build_time"`
	GitCommit     string `json:"git_commit"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	LicenseFormat string `json:"license_format"`
	TokenFormat   string `json:"token_format"`
	APIVersion    string `json:"api_version"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:       Version,
		BuildTime:     BuildTime,
		GitCommit:     GitCommit,
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		LicenseFormat: LicenseFormatVersion,
		TokenFormat:   TokenFormatVersion,
		APIVersion:    APIVersion,
	}
}

// GetFullVersionString returns a one-line version string for --version.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("licensegate v%s (built: %s, commit: %s, go: %s, %s, license format %s)",
		info.Version, info.BuildTime, info.GitCommit, info.GoVersion, info.Platform, info.LicenseFormat)
}
