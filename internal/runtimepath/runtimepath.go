package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "ixwindow"

// ConfigEnvVar names the environment variable that may point at a config file.
const ConfigEnvVar = "IXWINDOW_CONFIG_PATH"

// ConfigPath locates the config file. Priority:
// 1) $XDG_CONFIG_HOME/ixwindow/ixwindow.toml (if it exists)
// 2) $IXWINDOW_CONFIG_PATH (if it exists)
// 3) ~/.config/ixwindow/ixwindow.toml (returned even when missing)
func ConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate := filepath.Join(xdg, appName, appName+".toml")
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	if explicit := os.Getenv(ConfigEnvVar); explicit != "" && fileExists(explicit) {
		return explicit, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName, appName+".toml"), nil
}

// CacheDir returns the default icon cache directory:
// $XDG_CACHE_HOME/ixwindow or ~/.cache/ixwindow.
func CacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", appName), nil
}

// BspwmSocketPath returns the path of the bspwm control socket.
// BSPWM_SOCKET wins; otherwise the path is derived from DISPLAY the same
// way bspwm does: /tmp/bspwm<host>_<display>_<screen>-socket.
func BspwmSocketPath() (string, error) {
	if sock := os.Getenv("BSPWM_SOCKET"); sock != "" {
		return sock, nil
	}

	display := os.Getenv("DISPLAY")
	if display == "" {
		return "", fmt.Errorf("DISPLAY is not set")
	}

	host, rest, ok := strings.Cut(display, ":")
	if !ok {
		return "", fmt.Errorf("malformed DISPLAY %q", display)
	}
	num, screen, hasScreen := strings.Cut(rest, ".")
	if !hasScreen {
		screen = "0"
	}
	if num == "" {
		return "", fmt.Errorf("malformed DISPLAY %q", display)
	}

	return fmt.Sprintf("/tmp/bspwm%s_%s_%s-socket", host, num, screen), nil
}

// ExpandPath expands environment variables and a leading ~ in path.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
