package cookies

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

const (
	// keyDeriveSalt is the fixed PBKDF2 salt Chromium uses on every
	// platform that derives the cookie key from a password.
	keyDeriveSalt = "saltysalt"
	cbcKeyLen     = 16
	versionTagLen = 3
	gcmNonceLen   = 12

	// hashPrefixMetaVersion is the first Chromium meta schema version
	// whose plaintexts are prefixed with a 32-byte SHA-256 of the host
	// key.
	hashPrefixMetaVersion = 24
	hashPrefixLen         = 32
)

// cbcIV is Chromium's fixed AES-CBC initialization vector: 16 spaces.
var cbcIV = bytes.Repeat([]byte{' '}, aes.BlockSize)

// DeriveCBCKey derives a 16-byte AES-CBC key from a store password the
// way Chromium does: PBKDF2-HMAC-SHA1 over the fixed salt.
func DeriveCBCKey(password []byte, iterations int) []byte {
	return pbkdf2.Key(password, []byte(keyDeriveSalt), iterations, cbcKeyLen, sha1.New)
}

// KeyMaterial holds the candidate keys for one extraction. It is
// produced by a KeySource and owned by the Decryptor; it never leaves
// the package.
type KeyMaterial struct {
	// V10Keys are AES-128-CBC candidates for v10 blobs, tried in
	// order. Chromium sometimes writes cookies with a key derived from
	// an empty password, so sources append that as a fallback.
	V10Keys [][]byte
	// V11Keys are AES-128-CBC candidates for v11 blobs (Linux keyring
	// derived). Empty when no keyring secret was obtainable.
	V11Keys [][]byte
	// AEADKey is the 32-byte AES-256-GCM key for v20 blobs.
	AEADKey []byte
}

// KeySource obtains key material for a browser family. It is an
// injected capability so the engine's core logic is testable with
// fixture keys and never touches real OS secret stores in unit tests.
type KeySource interface {
	KeyMaterial(loc *StoreLocation, family browserspec.Family, keyring string) (*KeyMaterial, error)
}

// StaticKeySource returns fixed key material. Used by tests and by
// callers that already hold a key.
type StaticKeySource struct {
	Material *KeyMaterial
}

func (s StaticKeySource) KeyMaterial(*StoreLocation, browserspec.Family, string) (*KeyMaterial, error) {
	return s.Material, nil
}

// Decryptor turns raw Chromium records into plaintext cookies. One
// Decryptor serves one extraction; it caches nothing across stores.
type Decryptor struct {
	material        *KeyMaterial
	stripHashPrefix bool
	log             logger.Logger
}

// NewDecryptor builds a Decryptor for a store with the given meta
// schema version.
func NewDecryptor(material *KeyMaterial, metaVersion int64, log logger.Logger) *Decryptor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Decryptor{
		material:        material,
		stripHashPrefix: metaVersion >= hashPrefixMetaVersion,
		log:             log,
	}
}

// cipherTable maps a blob's version tag to its cipher. Adding a scheme
// is a table entry, not a new branch in Decrypt.
var cipherTable = map[string]func(d *Decryptor, ciphertext []byte) ([]byte, error){
	"v10": func(d *Decryptor, ct []byte) ([]byte, error) {
		return d.decryptCBCMulti(ct, d.material.V10Keys)
	},
	"v11": func(d *Decryptor, ct []byte) ([]byte, error) {
		return d.decryptCBCMulti(ct, d.material.V11Keys)
	},
	"v20": func(d *Decryptor, ct []byte) ([]byte, error) {
		return d.decryptGCM(ct, d.material.AEADKey)
	},
}

// Decrypt converts a raw record into a Cookie. Plaintext records pass
// through untouched, so decryption is idempotent. Failures identify the
// record by domain and name; the value never appears in errors.
func (d *Decryptor) Decrypt(rec RawCookie) (Cookie, error) {
	cookie := Cookie{
		Name:     rec.Name,
		Domain:   rec.Host,
		Path:     rec.Path,
		Secure:   rec.Secure,
		HttpOnly: rec.HttpOnly,
		SameSite: rec.SameSite,
	}
	if rec.Expiry > 0 {
		cookie.Expires = time.Unix(rec.Expiry, 0)
	}

	if !rec.Encrypted {
		cookie.Value = string(rec.Value)
		return cookie, nil
	}

	if len(rec.Value) < versionTagLen {
		return Cookie{}, fmt.Errorf("%w: cookie %s for %s: blob shorter than its version tag", ErrDecryptionFailed, rec.Name, rec.Host)
	}
	tag := string(rec.Value[:versionTagLen])
	decrypt, ok := cipherTable[tag]
	if !ok {
		return Cookie{}, fmt.Errorf("%w: cookie %s for %s: tag %q", ErrUnsupportedCipherVersion, rec.Name, rec.Host, tag)
	}

	plain, err := decrypt(d, rec.Value[versionTagLen:])
	if err != nil {
		return Cookie{}, fmt.Errorf("cookie %s for %s: %w", rec.Name, rec.Host, err)
	}
	cookie.Value = string(plain)
	return cookie, nil
}

// decryptCBCMulti tries each candidate key until one yields a valid
// UTF-8 plaintext. Chromium gives no authenticated way to tell which
// key encrypted a CBC blob, so the UTF-8 check doubles as verification.
func (d *Decryptor) decryptCBCMulti(ciphertext []byte, keys [][]byte) ([]byte, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no key material for this cipher", ErrDecryptionFailed)
	}
	for _, key := range keys {
		plain, err := decryptAESCBC(ciphertext, key)
		if err != nil {
			continue
		}
		plain = d.stripPrefix(plain)
		if utf8.Valid(plain) {
			return plain, nil
		}
	}
	return nil, fmt.Errorf("%w: no candidate key produced a valid plaintext", ErrDecryptionFailed)
}

func decryptAESCBC(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block aligned", ErrDecryptionFailed)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, cbcIV).CryptBlocks(plain, ciphertext)
	return stripPKCS7(plain)
}

func stripPKCS7(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryptionFailed)
	}
	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(plain) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
	}
	for _, b := range plain[len(plain)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
		}
	}
	return plain[:len(plain)-pad], nil
}

// decryptGCM opens a v20 blob: a 12-byte nonce followed by the
// ciphertext with its 16-byte authentication tag.
func (d *Decryptor) decryptGCM(ciphertext, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: no key material for this cipher", ErrDecryptionFailed)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(ciphertext) < gcmNonceLen+gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce and tag", ErrDecryptionFailed)
	}
	plain, err := gcm.Open(nil, ciphertext[:gcmNonceLen], ciphertext[gcmNonceLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return d.stripPrefix(plain), nil
}

// stripPrefix drops the SHA-256 host prefix newer stores prepend to
// plaintexts.
func (d *Decryptor) stripPrefix(plain []byte) []byte {
	if d.stripHashPrefix && len(plain) > hashPrefixLen {
		return plain[hashPrefixLen:]
	}
	return plain
}
