package mage

import (
	"runtime"
	"time"
)

type BuildConfig struct {
	AppShortName string   // Name of the binary
	ArchType     string   // Architecture type (e.g., amd64, arm64)
	ArtifactsDir string   // Directory where release archives are stored
	BuildDir     string   // Directory to place build outputs
	BuildTime    string   // Build time in RFC3339 format
	Commit       string   // Git commit hash
	OsType       string   // Operating system type (e.g., linux, windows)
	PackagePath  string   // Go module package path
	Platforms    []string // GOOS/GOARCH pairs built by Dist
	Version      string   // Version of the build
}

func NewBuildConfig() BuildConfig {
	now := time.Now().UTC()

	return BuildConfig{
		AppShortName: "dashboard",
		ArchType:     runtime.GOARCH,
		ArtifactsDir: "build/artifacts",
		BuildDir:     "build",
		BuildTime:    now.Format(time.RFC3339),
		Commit:       gitRevParse(),
		OsType:       runtime.GOOS,
		PackagePath:  "github.com/luxury-yacht/dashboard",
		Platforms:    []string{"linux/amd64", "linux/arm64", "darwin/amd64", "darwin/arm64", "windows/amd64"},
		Version:      productVersion(),
	}
}
