package archive

import (
	"context"
	"fmt"
	"strings"

	"filippo.io/age"

	"warcdb/internal/config"
	"warcdb/internal/warcdb"
)

// Router dispatches archive locations to the matching opener: s3:// URIs to
// S3, everything else to the local filesystem. Archives whose name ends in
// .age are decrypted after opening. S3 clients and age identities are only
// set up when a location needs them.
type Router struct {
	cfg        *config.Config
	passphrase PassphraseFunc

	files      warcdb.ArchiveOpener
	s3         warcdb.ArchiveOpener
	identities []age.Identity
}

var _ warcdb.ArchiveOpener = (*Router)(nil)

// Option customizes a Router.
type Option func(*Router)

// WithS3Opener sets the opener used for s3:// locations.
func WithS3Opener(o warcdb.ArchiveOpener) Option {
	return func(r *Router) { r.s3 = o }
}

// WithIdentities sets the age identities used for encrypted archives instead
// of loading them from the configured identity file.
func WithIdentities(ids ...age.Identity) Option {
	return func(r *Router) { r.identities = ids }
}

// NewOpenerFromConfig creates a Router from configuration. passphrase is only
// called when a passphrase protected identity file has to be unlocked.
func NewOpenerFromConfig(cfg *config.Config, passphrase PassphraseFunc, opts ...Option) *Router {
	r := &Router{
		cfg:        cfg,
		passphrase: passphrase,
		files:      FileOpener{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens location and decrypts it when it is an age archive.
func (r *Router) Open(ctx context.Context, location string) (*warcdb.Archive, error) {
	var (
		a   *warcdb.Archive
		err error
	)
	if strings.HasPrefix(location, S3Scheme) {
		var opener warcdb.ArchiveOpener
		if opener, err = r.s3Opener(ctx); err != nil {
			return nil, err
		}
		a, err = opener.Open(ctx, location)
	} else {
		a, err = r.files.Open(ctx, location)
	}
	if err != nil {
		return nil, err
	}

	if !IsEncrypted(a.Filename) {
		return a, nil
	}

	ids, err := r.ageIdentities()
	if err != nil {
		a.Body.Close()
		return nil, err
	}
	return decryptArchive(a, ids)
}

func (r *Router) s3Opener(ctx context.Context) (warcdb.ArchiveOpener, error) {
	if r.s3 != nil {
		return r.s3, nil
	}
	o, err := NewS3Opener(ctx, r.cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("creating s3 opener: %w", err)
	}
	r.s3 = o
	return o, nil
}

func (r *Router) ageIdentities() ([]age.Identity, error) {
	if r.identities != nil {
		return r.identities, nil
	}
	enc := r.cfg.Encryption
	if enc.IdentityPath == "" {
		return nil, fmt.Errorf("encrypted archive requires encryption.identity_path to be set")
	}
	ids, err := LoadIdentities(enc.IdentityPath, enc.PassphraseProtected, r.passphrase)
	if err != nil {
		return nil, err
	}
	r.identities = ids
	return ids, nil
}
