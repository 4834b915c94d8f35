package cookies

import "errors"

// Sentinel errors for the extraction pipeline. Every returned error
// wraps one of these (match with errors.Is) together with the store
// path or record identity it refers to. Spec parsing errors live in
// package browserspec.
var (
	// ErrBrowserNotInstalled means no cookie store exists where the
	// selected browser keeps one on this OS.
	ErrBrowserNotInstalled = errors.New("browser cookie store not found")

	// ErrProfileNotFound means the named profile does not appear in the
	// family's profile registry.
	ErrProfileNotFound = errors.New("browser profile not found")

	// ErrContainerNotFound means the named Firefox container does not
	// appear in the profile's containers.json.
	ErrContainerNotFound = errors.New("firefox container not found")

	// ErrStoreLocked means the store stayed unreadable even after the
	// copy-and-reread fallback.
	ErrStoreLocked = errors.New("cookie store is locked")

	// ErrCorruptStore means the store's structure contradicts itself
	// (bad magic, impossible lengths, missing tables).
	ErrCorruptStore = errors.New("cookie store is corrupted")

	// ErrIO covers plain filesystem failures while reading a store.
	ErrIO = errors.New("cookie store read failed")

	// ErrUnsupportedCipherVersion means an encrypted value carries a
	// version tag the decryption table does not know.
	ErrUnsupportedCipherVersion = errors.New("unsupported cookie cipher version")

	// ErrDecryptionFailed means a known cipher rejected the blob
	// (authentication tag mismatch, bad padding, or missing key).
	ErrDecryptionFailed = errors.New("cookie decryption failed")
)
