package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("WARCDB_CONFIG_PATH", "/srv/warcdb.toml")
		t.Setenv("WARCDB_HOME", "/srv/warcdb")

		got, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths() error = %v", err)
		}
		want := Paths{ConfigFile: "/srv/warcdb.toml", BaseDir: "/srv/warcdb"}
		if got != want {
			t.Errorf("DefaultPaths() = %+v, want %+v", got, want)
		}
	})

	t.Run("home directory fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("WARCDB_CONFIG_PATH", "")
		t.Setenv("WARCDB_HOME", "")

		got, err := DefaultPaths()
		if err != nil {
			t.Fatalf("DefaultPaths() error = %v", err)
		}
		want := Paths{
			ConfigFile: filepath.Join(home, ".config", "warcdb.toml"),
			BaseDir:    filepath.Join(home, ".local", "share", "warcdb"),
		}
		if got != want {
			t.Errorf("DefaultPaths() = %+v, want %+v", got, want)
		}
	})

	t.Run("no home needed when both are set", func(t *testing.T) {
		t.Setenv("HOME", "")
		t.Setenv("WARCDB_CONFIG_PATH", "/srv/warcdb.toml")
		t.Setenv("WARCDB_HOME", "/srv/warcdb")

		if _, err := DefaultPaths(); err != nil {
			t.Errorf("DefaultPaths() error = %v", err)
		}
	})
}

func TestPaths_Config(t *testing.T) {
	p := Paths{ConfigFile: filepath.Join(os.TempDir(), "warcdb.toml")}

	if got := p.Config(""); got != p.ConfigFile {
		t.Errorf("Config(\"\") = %q, want %q", got, p.ConfigFile)
	}
	if got := p.Config("/etc/warcdb.toml"); got != "/etc/warcdb.toml" {
		t.Errorf("Config(override) = %q, want /etc/warcdb.toml", got)
	}
}
