//go:build darwin

package cookies

import (
	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

// darwinKeyIterations is Chromium's PBKDF2 iteration count on macOS.
const darwinKeyIterations = 1003

// darwinKeySource pulls the "Safe Storage" secret from the login
// keychain. macOS prompts the user for access the first time.
type darwinKeySource struct {
	log logger.Logger
}

// NewSystemKeySource returns the key source for this platform.
func NewSystemKeySource(_ afero.Fs, _ func(string) string, log logger.Logger) KeySource {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &darwinKeySource{log: log}
}

var darwinKeychainNames = map[browserspec.Family]string{
	browserspec.FamilyChrome:   "Chrome",
	browserspec.FamilyChromium: "Chromium",
	browserspec.FamilyEdge:     "Microsoft Edge",
	browserspec.FamilyBrave:    "Brave",
	browserspec.FamilyOpera:    "Opera",
	browserspec.FamilyVivaldi:  "Vivaldi",
	browserspec.FamilyWhale:    "Whale",
}

func (s *darwinKeySource) KeyMaterial(_ *StoreLocation, family browserspec.Family, _ string) (*KeyMaterial, error) {
	material := &KeyMaterial{
		V10Keys: [][]byte{DeriveCBCKey(nil, darwinKeyIterations)},
	}
	name, ok := darwinKeychainNames[family]
	if !ok {
		return material, nil
	}

	secret, err := keyring.Get(name+" Safe Storage", name)
	if err != nil {
		s.log.Warning("cannot read %s keychain entry: %v", name, err)
		return material, nil
	}
	material.V10Keys = [][]byte{
		DeriveCBCKey([]byte(secret), darwinKeyIterations),
		DeriveCBCKey(nil, darwinKeyIterations),
	}
	return material, nil
}
