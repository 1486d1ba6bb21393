package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/gdesatrigraha/korangar/common"
)

// Load loads configuration with priority: defaults < file.
// An empty path searches the standard locations; a missing file is not an
// error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	normalize(cfg)
	return cfg, nil
}

// normalize restores defaults for fields where an explicit zero or empty
// value in the file would break window or logger creation.
func normalize(cfg *Config) {
	defaults := Default()
	cfg.Graphics.Width = common.Coalesce(cfg.Graphics.Width, defaults.Graphics.Width)
	cfg.Graphics.Height = common.Coalesce(cfg.Graphics.Height, defaults.Graphics.Height)
	cfg.Logging.Level = common.Coalesce(cfg.Logging.Level, defaults.Logging.Level)
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Korangar")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Korangar")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "korangar")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "korangar")
	}
}

// loadFromFile merges file values over the existing config.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
