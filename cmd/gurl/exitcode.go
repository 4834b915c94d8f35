package main

import (
	"errors"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/internal/cookies"
)

// Exit codes for cookie-engine failures, so scripts can distinguish a
// locked store from a missing profile without parsing stderr.
const (
	exitGeneric          = 1
	exitBadSpec          = 2
	exitNotInstalled     = 3
	exitProfileNotFound  = 4
	exitContainerMissing = 5
	exitStoreLocked      = 6
	exitCorruptStore     = 7
	exitIO               = 8
	exitBadCipher        = 9
	exitDecryption       = 10
)

var exitCodes = []struct {
	err  error
	code int
}{
	{browserspec.ErrMalformedSpec, exitBadSpec},
	{browserspec.ErrUnknownBrowser, exitBadSpec},
	{browserspec.ErrKeyringNotApplicable, exitBadSpec},
	{browserspec.ErrContainerNotApplicable, exitBadSpec},
	{cookies.ErrBrowserNotInstalled, exitNotInstalled},
	{cookies.ErrProfileNotFound, exitProfileNotFound},
	{cookies.ErrContainerNotFound, exitContainerMissing},
	{cookies.ErrStoreLocked, exitStoreLocked},
	{cookies.ErrCorruptStore, exitCorruptStore},
	{cookies.ErrIO, exitIO},
	{cookies.ErrUnsupportedCipherVersion, exitBadCipher},
	{cookies.ErrDecryptionFailed, exitDecryption},
}

func exitCodeFor(err error) int {
	for _, entry := range exitCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return exitGeneric
}
