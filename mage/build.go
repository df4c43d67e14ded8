package mage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

func ldflags(cfg BuildConfig) string {
	return fmt.Sprintf("-s -w -X main.version=%s", cfg.Version)
}

func binaryName(cfg BuildConfig, goos string) string {
	if goos == "windows" {
		return cfg.AppShortName + ".exe"
	}
	return cfg.AppShortName
}

// BuildBinary builds the server for the host platform into BuildDir.
func BuildBinary(cfg BuildConfig) error {
	out := filepath.Join(cfg.BuildDir, binaryName(cfg, cfg.OsType))
	fmt.Printf("\n🛠️ Building %s %s (%s/%s)\n\n", cfg.AppShortName, cfg.Version, cfg.OsType, cfg.ArchType)
	return sh.RunV("go", "build", "-trimpath", "-ldflags", ldflags(cfg), "-o", out, ".")
}

// BuildDist cross-compiles every configured platform and archives each
// binary into ArtifactsDir.
func BuildDist(cfg BuildConfig) error {
	if err := os.MkdirAll(cfg.ArtifactsDir, os.ModePerm); err != nil {
		return err
	}
	for _, platform := range cfg.Platforms {
		goos, goarch, ok := strings.Cut(platform, "/")
		if !ok {
			return fmt.Errorf("invalid platform %q", platform)
		}
		stage := filepath.Join(cfg.BuildDir, goos+"-"+goarch)
		bin := filepath.Join(stage, binaryName(cfg, goos))

		fmt.Printf("\n🛠️ Building %s\n", platform)
		env := map[string]string{"GOOS": goos, "GOARCH": goarch, "CGO_ENABLED": "0"}
		if err := sh.RunWithV(env, "go", "build", "-trimpath", "-ldflags", ldflags(cfg), "-o", bin, "."); err != nil {
			return err
		}

		archive := filepath.Join(cfg.ArtifactsDir, fmt.Sprintf("%s-%s-%s-%s.tar.gz", cfg.AppShortName, cfg.Version, goos, goarch))
		if err := sh.RunV("tar", "-czf", archive, "-C", stage, binaryName(cfg, goos)); err != nil {
			return err
		}
	}
	return nil
}
