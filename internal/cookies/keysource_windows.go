//go:build windows

package cookies

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/spf13/afero"
	"golang.org/x/sys/windows"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

// dpapiPrefix tags the Local State master key as DPAPI-wrapped.
var dpapiPrefix = []byte("DPAPI")

// windowsKeySource unwraps the AES-GCM master key stored in the
// profile's Local State file with the user's DPAPI credentials.
type windowsKeySource struct {
	fs  afero.Fs
	log logger.Logger
}

// NewSystemKeySource returns the key source for this platform.
func NewSystemKeySource(fs afero.Fs, _ func(string) string, log logger.Logger) KeySource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &windowsKeySource{fs: fs, log: log}
}

func (s *windowsKeySource) KeyMaterial(loc *StoreLocation, _ browserspec.Family, _ string) (*KeyMaterial, error) {
	statePath := filepath.Join(loc.DataRoot, "Local State")
	raw, err := afero.ReadFile(s.fs, statePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDecryptionFailed, statePath, err)
	}

	var state struct {
		OsCrypt struct {
			EncryptedKey string `json:"encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrDecryptionFailed, statePath, err)
	}
	if state.OsCrypt.EncryptedKey == "" {
		return nil, fmt.Errorf("%w: %s has no os_crypt key", ErrDecryptionFailed, statePath)
	}

	wrapped, err := base64.StdEncoding.DecodeString(state.OsCrypt.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding master key: %v", ErrDecryptionFailed, err)
	}
	if !bytes.HasPrefix(wrapped, dpapiPrefix) {
		return nil, fmt.Errorf("%w: master key is not DPAPI wrapped", ErrDecryptionFailed)
	}

	key, err := dpapiUnprotect(wrapped[len(dpapiPrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: unwrapping master key: %v", ErrDecryptionFailed, err)
	}
	return &KeyMaterial{AEADKey: key}, nil
}

// dpapiUnprotect decrypts a blob with CryptUnprotectData under the
// current user's credentials.
func dpapiUnprotect(data []byte) ([]byte, error) {
	in := windows.DataBlob{
		Size: uint32(len(data)),
		Data: &data[0],
	}
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, 0, &out); err != nil {
		return nil, err
	}
	defer windows.LocalFree(windows.Handle(uintptr(unsafe.Pointer(out.Data))))
	return bytes.Clone(unsafe.Slice(out.Data, out.Size)), nil
}
