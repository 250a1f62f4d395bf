package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath resolves the config file location:
// $MISSIONGUIDE_CONFIG if set, otherwise ~/.missionguide/config.json.
func DefaultConfigPath() string {
	if p := os.Getenv("MISSIONGUIDE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".missionguide", "config.json")
}

// ResolveCatalogPath makes the command catalog path absolute relative to the
// config file's directory when it is not already absolute.
func ResolveCatalogPath(configPath, catalogPath string) string {
	if catalogPath == "" || filepath.IsAbs(catalogPath) {
		return catalogPath
	}
	return filepath.Join(filepath.Dir(configPath), catalogPath)
}
