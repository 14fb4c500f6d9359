package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"

	"warcdb/internal/warcdb"
)

// AgeSuffix marks archives encrypted with age.
const AgeSuffix = ".age"

// PassphraseFunc supplies the passphrase protecting an identity file.
type PassphraseFunc func() (string, error)

// LoadIdentities reads age identities from path. When protected is set the
// file is itself age-encrypted with a passphrase, which passphrase supplies.
func LoadIdentities(path string, protected bool, passphrase PassphraseFunc) ([]age.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	if protected {
		if passphrase == nil {
			return nil, fmt.Errorf("identity file %s is passphrase protected but no passphrase source is set", path)
		}
		pass, err := passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}

		scrypt, err := age.NewScryptIdentity(pass)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}

		dec, err := age.Decrypt(bytes.NewReader(data), scrypt)
		if err != nil {
			return nil, fmt.Errorf("decrypting identity file: %w", err)
		}
		if data, err = io.ReadAll(dec); err != nil {
			return nil, fmt.Errorf("reading decrypted identity file: %w", err)
		}
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", path)
	}
	return identities, nil
}

// IsEncrypted reports whether name carries the age suffix.
func IsEncrypted(name string) bool {
	return strings.HasSuffix(name, AgeSuffix)
}

// decryptArchive replaces a's body with its decrypted stream. The recorded
// filename and path stay those of the encrypted archive.
func decryptArchive(a *warcdb.Archive, identities []age.Identity) (*warcdb.Archive, error) {
	dec, err := age.Decrypt(a.Body, identities...)
	if err != nil {
		a.Body.Close()
		return nil, fmt.Errorf("decrypting %s: %w", a.Path, err)
	}

	return &warcdb.Archive{
		Filename: a.Filename,
		Path:     a.Path,
		Body:     readCloser{Reader: dec, Closer: a.Body},
	}, nil
}

// readCloser pairs a derived reader with the closer of its source.
type readCloser struct {
	io.Reader
	io.Closer
}
