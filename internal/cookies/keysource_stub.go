//go:build !linux && !darwin && !windows

package cookies

import (
	"fmt"
	"runtime"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

type unsupportedKeySource struct{}

// NewSystemKeySource returns the key source for this platform.
func NewSystemKeySource(afero.Fs, func(string) string, logger.Logger) KeySource {
	return unsupportedKeySource{}
}

func (unsupportedKeySource) KeyMaterial(*StoreLocation, browserspec.Family, string) (*KeyMaterial, error) {
	return nil, fmt.Errorf("%w: no key source on %s", ErrDecryptionFailed, runtime.GOOS)
}
