package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "386":
		return "i686"
	default:
		return arch
	}
}

func DefaultModelDirFor(goos, homeDir, xdgDataHome, localAppData string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome, localAppData)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

func DefaultDatabasePathFor(goos, homeDir, xdgDataHome, localAppData string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome, localAppData)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "voxscribe.db"), nil
}

func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"), os.Getenv("LocalAppData"))
}

func ResolveDatabasePath(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultDatabasePathFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"), os.Getenv("LocalAppData"))
}

func defaultDataDirFor(goos, homeDir, xdgDataHome, localAppData string) (string, error) {
	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "voxscribe"), nil
		}
		if homeDir == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(homeDir, ".local", "share", "voxscribe"), nil
	case "darwin":
		if homeDir == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(homeDir, "Library", "Application Support", "voxscribe"), nil
	case "windows":
		if localAppData != "" {
			return filepath.Join(localAppData, "voxscribe"), nil
		}
		if homeDir == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(homeDir, "AppData", "Local", "voxscribe"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
