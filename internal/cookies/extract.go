package cookies

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

// Options configures an extraction. The zero value targets the real
// host: OS filesystem, current platform, system key source.
type Options struct {
	// Fs is the filesystem the browser data is read from.
	Fs afero.Fs
	// Home overrides the user's home directory.
	Home string
	// Getenv overrides environment lookups.
	Getenv func(string) string
	// Os selects the platform's store layout.
	Os OsKind
	// Keys supplies Chromium decryption key material.
	Keys KeySource
	// Logger receives progress and warnings. Cookie values are never
	// logged.
	Logger logger.Logger
	// Strict turns any per-cookie decryption failure into an
	// extraction error instead of an Issue.
	Strict bool
}

// Issue records one cookie that could not be decrypted during a
// non-strict extraction. The value is unrecoverable and not carried.
type Issue struct {
	Domain string
	Name   string
	Err    error
}

// Result is a completed extraction.
type Result struct {
	Jar      *Jar
	Location *StoreLocation
	Issues   []Issue
}

type storeReader func(afero.Fs, *StoreLocation, logger.Logger) ([]RawCookie, int64, error)

var storeReaders = map[StoreFormat]storeReader{
	FormatChromiumSQL:  readChromiumStore,
	FormatFirefoxSQL:   readFirefoxStore,
	FormatSafariBinary: readSafariStore,
}

// Extract locates the store named by spec, reads it, and decrypts what
// needs decrypting. Decryption failures of individual cookies are
// collected as Issues unless Strict is set; locate and read failures
// always fail the whole extraction.
func Extract(ctx context.Context, spec *browserspec.Spec, opts Options) (*Result, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	home := opts.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	osKind := opts.Os
	if osKind == OsUnknown {
		osKind = CurrentOs()
	}
	keys := opts.Keys
	if keys == nil {
		keys = NewSystemKeySource(fs, getenv, log)
	}

	loc, err := NewLocator(fs, home, getenv, log).Locate(spec, osKind)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debug("cookie store for %s: %s", spec, loc.StorePath)

	reader, ok := storeReaders[loc.Format]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for %s stores", ErrIO, loc.Format)
	}
	raws, metaVersion, err := reader(fs, loc, log)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Key material is fetched lazily: a store with no encrypted
	// records never touches the keyring.
	plain := NewDecryptor(&KeyMaterial{}, metaVersion, log)
	var keyed *Decryptor
	var keyErr error

	result := &Result{Location: loc}
	cookies := make([]Cookie, 0, len(raws))
	for _, rec := range raws {
		dec := plain
		if rec.Encrypted {
			if keyed == nil && keyErr == nil {
				material, err := keys.KeyMaterial(loc, spec.Family, spec.Keyring)
				if err != nil {
					if opts.Strict {
						return nil, err
					}
					keyErr = err
					log.Warning("no key material for %s: %v", spec.Family, err)
				} else {
					keyed = NewDecryptor(material, metaVersion, log)
				}
			}
			if keyErr != nil {
				result.Issues = append(result.Issues, Issue{Domain: rec.Host, Name: rec.Name, Err: keyErr})
				continue
			}
			dec = keyed
		}

		cookie, err := dec.Decrypt(rec)
		if err != nil {
			if opts.Strict {
				return nil, err
			}
			result.Issues = append(result.Issues, Issue{Domain: rec.Host, Name: rec.Name, Err: err})
			continue
		}
		cookies = append(cookies, cookie)
	}

	if n := len(result.Issues); n > 0 {
		log.Warning("%d of %d cookies could not be decrypted", n, len(raws))
	}
	result.Jar = NewJar(cookies)
	return result, nil
}
