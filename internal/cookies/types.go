package cookies

import (
	"runtime"
	"time"
)

// OsKind identifies the host operating system for store location
// purposes. Passing it explicitly keeps the locator tables testable on
// any platform.
type OsKind int

const (
	OsUnknown OsKind = iota
	OsLinux
	OsDarwin
	OsWindows
)

// CurrentOs detects the OsKind of the running process.
func CurrentOs() OsKind {
	switch runtime.GOOS {
	case "linux":
		return OsLinux
	case "darwin":
		return OsDarwin
	case "windows":
		return OsWindows
	}
	return OsUnknown
}

func (o OsKind) String() string {
	switch o {
	case OsLinux:
		return "linux"
	case OsDarwin:
		return "darwin"
	case OsWindows:
		return "windows"
	}
	return "unknown"
}

// StoreFormat identifies the on-disk format of a cookie store.
type StoreFormat int

const (
	FormatUnknown StoreFormat = iota
	// FormatChromiumSQL is the Chromium cookies SQLite schema with
	// encrypted_value blobs.
	FormatChromiumSQL
	// FormatFirefoxSQL is the Firefox moz_cookies SQLite schema.
	FormatFirefoxSQL
	// FormatSafariBinary is Safari's Cookies.binarycookies page format.
	FormatSafariBinary
)

func (f StoreFormat) String() string {
	switch f {
	case FormatChromiumSQL:
		return "chromium-sqlite"
	case FormatFirefoxSQL:
		return "firefox-sqlite"
	case FormatSafariBinary:
		return "safari-binarycookies"
	}
	return "unknown"
}

// ContainerMode selects which Firefox container namespaces a read
// includes.
type ContainerMode int

const (
	// ContainerAny includes cookies from every container.
	ContainerAny ContainerMode = iota
	// ContainerNone includes only cookies outside any container.
	ContainerNone
	// ContainerSpecific includes only cookies tagged with ContainerID.
	ContainerSpecific
)

// StoreLocation is the resolved location of a cookie store. Derived
// deterministically from a browser spec plus OsKind; never persisted.
type StoreLocation struct {
	// StorePath is the cookie store file.
	StorePath string
	// ProfileRoot is the directory of the resolved profile.
	ProfileRoot string
	// DataRoot is the family's per-user data directory (holds the
	// Chromium Local State file, the Firefox profiles.ini).
	DataRoot string
	// Format selects the reader.
	Format StoreFormat

	// ContainerMode and ContainerID carry the resolved Firefox
	// container filter. Zero values mean "all containers".
	ContainerMode ContainerMode
	ContainerID   int64
}

// SameSite mirrors the samesite column of browser stores. The engine
// carries it through but does not act on it; redirect policy belongs to
// the HTTP pipeline.
type SameSite int

const (
	SameSiteUnspecified SameSite = iota
	SameSiteNone
	SameSiteLax
	SameSiteStrict
)

// RawCookie is one record as read from a store, before decryption.
// Value holds plaintext bytes unless Encrypted is set, in which case it
// holds the ciphertext blob including its version tag.
type RawCookie struct {
	Host      string
	Path      string
	Name      string
	Value     []byte
	Encrypted bool
	Secure    bool
	HttpOnly  bool
	// Expiry is a unix timestamp in seconds; 0 marks a session cookie.
	Expiry   int64
	SameSite SameSite
}

// Cookie is a fully decrypted cookie record.
// The Value field is SENSITIVE and must never be logged or embedded in
// error messages.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HttpOnly bool
	// Expires is the expiry time; the zero value marks a session cookie.
	Expires  time.Time
	SameSite SameSite
}

// Session reports whether the cookie expires with the browser session.
func (c *Cookie) Session() bool {
	return c.Expires.IsZero()
}

// chromiumEpochOffset is the number of seconds between the Windows NT
// epoch (1601-01-01) used by Chromium timestamps and the Unix epoch.
const chromiumEpochOffset int64 = 11_644_473_600

// chromiumToUnix converts a Chromium timestamp (microseconds since
// 1601-01-01) to unix seconds. Chromium stores 0 for session cookies;
// callers treat non-positive results as session cookies too, since they
// predate the Unix epoch and cannot be real expiries.
func chromiumToUnix(chromiumUSec int64) int64 {
	if chromiumUSec == 0 {
		return 0
	}
	return (chromiumUSec / 1_000_000) - chromiumEpochOffset
}

// safariEpochOffset is the unix timestamp of 2001-01-01 00:00:00 UTC,
// the zero point of Safari's floating-point cookie timestamps.
const safariEpochOffset int64 = 978_307_200
