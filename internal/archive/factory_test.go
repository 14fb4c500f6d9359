package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"warcdb/internal/config"
	"warcdb/internal/testutil"
)

func readBody(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading archive body: %v", err)
	}
	return string(data)
}

func TestRouter_Open(t *testing.T) {
	ctx := context.Background()
	id := newIdentity(t)
	dir := t.TempDir()

	plainPath := filepath.Join(dir, "plain.warc")
	os.WriteFile(plainPath, []byte("plain"), 0644)
	encPath := filepath.Join(dir, "secret.warc.age")
	os.WriteFile(encPath, encrypt(t, []byte("secret"), id.Recipient()), 0644)

	s3 := testutil.NewMemoryOpener()
	s3.Add("s3://crawls/remote.warc", []byte("remote"))
	s3.Add("s3://crawls/remote.warc.age", encrypt(t, []byte("remote secret"), id.Recipient()))

	t.Run("local file", func(t *testing.T) {
		r := NewOpenerFromConfig(config.NewConfig(dir), nil)

		a, err := r.Open(ctx, plainPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got := readBody(t, a.Body); got != "plain" {
			t.Errorf("body = %q, want plain", got)
		}
	})

	t.Run("encrypted local file with configured identity", func(t *testing.T) {
		cfg := config.NewConfig(dir)
		cfg.Encryption.IdentityPath = writeIdentityFile(t, id, "")
		r := NewOpenerFromConfig(cfg, nil)

		a, err := r.Open(ctx, encPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if a.Filename != "secret.warc.age" {
			t.Errorf("Filename = %q, want secret.warc.age", a.Filename)
		}
		if got := readBody(t, a.Body); got != "secret" {
			t.Errorf("body = %q, want secret", got)
		}
	})

	t.Run("passphrase asked once", func(t *testing.T) {
		cfg := config.NewConfig(dir)
		cfg.Encryption.IdentityPath = writeIdentityFile(t, id, "pw")
		cfg.Encryption.PassphraseProtected = true

		asked := 0
		r := NewOpenerFromConfig(cfg, func() (string, error) {
			asked++
			return "pw", nil
		})

		for range 2 {
			a, err := r.Open(ctx, encPath)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			readBody(t, a.Body)
		}
		if asked != 1 {
			t.Errorf("passphrase requested %d times, want 1", asked)
		}
	})

	t.Run("encrypted file without identity", func(t *testing.T) {
		r := NewOpenerFromConfig(config.NewConfig(dir), nil)

		if _, err := r.Open(ctx, encPath); err == nil {
			t.Error("Open() error = nil, want missing identity error")
		}
	})

	t.Run("s3 location", func(t *testing.T) {
		r := NewOpenerFromConfig(config.NewConfig(dir), nil, WithS3Opener(s3))

		a, err := r.Open(ctx, "s3://crawls/remote.warc")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got := readBody(t, a.Body); got != "remote" {
			t.Errorf("body = %q, want remote", got)
		}
	})

	t.Run("encrypted s3 location", func(t *testing.T) {
		r := NewOpenerFromConfig(config.NewConfig(dir), nil, WithS3Opener(s3), WithIdentities(id))

		a, err := r.Open(ctx, "s3://crawls/remote.warc.age")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got := readBody(t, a.Body); got != "remote secret" {
			t.Errorf("body = %q, want remote secret", got)
		}
	})

	t.Run("missing local file", func(t *testing.T) {
		r := NewOpenerFromConfig(config.NewConfig(dir), nil)

		if _, err := r.Open(ctx, filepath.Join(dir, "missing.warc")); err == nil {
			t.Error("Open() error = nil, want error")
		}
	})
}
