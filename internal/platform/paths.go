package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	osWindows = "windows"
	osDarwin  = "darwin"
)

// platformDir resolves one of juked's XDG-style base directories. The
// three public Get*Dir functions below only differ in which environment
// variable and per-OS subdirectory name apply — the branching itself
// (env var override, else a platform-conventional fallback under the
// user's home) is identical across all three, so it lives here once.
// windowsSuffix is appended after the app name only on Windows, for the
// one case (the cache dir) where Windows nests a further "Cache"
// subdirectory that macOS/XDG already fold into their own directory name
// ("Caches", ".cache").
func platformDir(windowsEnvVar, windowsFallbackDir, windowsSuffix, darwinSubdir, xdgEnvVar, xdgFallbackDir string) (string, error) {
	switch runtime.GOOS {
	case osWindows:
		base := os.Getenv(windowsEnvVar)
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", windowsFallbackDir)
		}
		if windowsSuffix != "" {
			return filepath.Join(base, "juked", windowsSuffix), nil
		}
		return filepath.Join(base, "juked"), nil

	case osDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", darwinSubdir, "juked"), nil

	default:
		if xdg := os.Getenv(xdgEnvVar); xdg != "" {
			return filepath.Join(xdg, "juked"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, xdgFallbackDir, "juked"), nil
	}
}

// GetDataDir returns the platform-specific data directory for juked.
func GetDataDir() (string, error) {
	return platformDir("APPDATA", "Roaming", "", "Application Support", "XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the platform-specific cache directory for juked.
func GetCacheDir() (string, error) {
	return platformDir("LOCALAPPDATA", "Local", "Cache", "Caches", "XDG_CACHE_HOME", ".cache")
}

// GetConfigDir returns the platform-specific configuration directory for juked.
func GetConfigDir() (string, error) {
	return platformDir("APPDATA", "Roaming", "", "Preferences", "XDG_CONFIG_HOME", ".config")
}

// GetResourceRoot returns the directory under which every queue element's
// scoped resource directory is created. Callers wipe it on process start.
func GetResourceRoot() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "resources"), nil
}
