package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the locations used when no flag overrides them.
type Paths struct {
	ConfigFile string
	BaseDir    string
}

// DefaultPaths reads WARCDB_CONFIG_PATH and WARCDB_HOME, falling back to
// ~/.config/warcdb.toml and ~/.local/share/warcdb.
func DefaultPaths() (Paths, error) {
	configFile, err := envOrHome("WARCDB_CONFIG_PATH", ".config", "warcdb.toml")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := envOrHome("WARCDB_HOME", ".local", "share", "warcdb")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigFile: configFile, BaseDir: baseDir}, nil
}

// Config returns override, or the default config file when override is empty.
func (p Paths) Config(override string) string {
	if override != "" {
		return override
	}
	return p.ConfigFile
}

func envOrHome(key string, elem ...string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s: %w", key, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}
