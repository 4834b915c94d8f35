// Package browserspec parses the browser-selection specification used by
// the --cookies-from-browser flag.
//
// The grammar is BROWSER[+KEYRING][:PROFILE][::CONTAINER], e.g.
// "chrome", "chromium+kwallet5", "firefox:work::Personal", "brave:Profile 2".
// Keyring selection only applies to Chromium-family browsers on Linux;
// containers only exist in the Firefox family.
package browserspec

import (
	"errors"
	"fmt"
	"strings"
)

// Family identifies a supported browser family.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyChrome
	FamilyChromium
	FamilyFirefox
	FamilySafari
	FamilyEdge
	FamilyBrave
	FamilyOpera
	FamilyVivaldi
	FamilyWhale
)

var familyNames = map[Family]string{
	FamilyChrome:   "chrome",
	FamilyChromium: "chromium",
	FamilyFirefox:  "firefox",
	FamilySafari:   "safari",
	FamilyEdge:     "edge",
	FamilyBrave:    "brave",
	FamilyOpera:    "opera",
	FamilyVivaldi:  "vivaldi",
	FamilyWhale:    "whale",
}

// ParseFamily resolves a browser name case-insensitively.
func ParseFamily(name string) (Family, bool) {
	lower := strings.ToLower(name)
	for f, n := range familyNames {
		if n == lower {
			return f, true
		}
	}
	return FamilyUnknown, false
}

// String returns the canonical lower-case family name.
func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return "unknown"
}

// IsChromium reports whether the family stores cookies in the Chromium
// SQLite schema with encrypted values.
func (f Family) IsChromium() bool {
	switch f {
	case FamilyChrome, FamilyChromium, FamilyEdge, FamilyBrave, FamilyOpera, FamilyVivaldi, FamilyWhale:
		return true
	}
	return false
}

// IsFirefox reports whether the family uses the Firefox moz_cookies
// schema and supports containers.
func (f Family) IsFirefox() bool {
	return f == FamilyFirefox
}

// Parse errors. Wrapped values carry the offending input; match with
// errors.Is.
var (
	ErrMalformedSpec          = errors.New("malformed browser spec")
	ErrUnknownBrowser         = errors.New("unknown browser")
	ErrKeyringNotApplicable   = errors.New("keyring selection requires a chromium-family browser")
	ErrContainerNotApplicable = errors.New("containers are only supported by firefox")
)

// Spec is a parsed browser selection. Immutable once parsed.
type Spec struct {
	Family    Family
	Keyring   string // optional, Linux keyring backend name
	Profile   string // optional browser profile name (or path)
	Container string // optional Firefox container name
}

// Parse parses BROWSER[+KEYRING][:PROFILE][::CONTAINER].
//
// Split order matters: "::" is cut first so that a profile containing no
// colon and a container name never interfere, then "+" for the keyring,
// then the first remaining ":" for the profile.
func Parse(input string) (*Spec, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: empty spec", ErrMalformedSpec)
	}

	head, container, hasContainer := strings.Cut(input, "::")
	if hasContainer {
		if strings.Contains(container, "::") {
			return nil, fmt.Errorf("%w: %q has more than one container separator", ErrMalformedSpec, input)
		}
		if container == "" {
			return nil, fmt.Errorf("%w: %q has an empty container", ErrMalformedSpec, input)
		}
	}

	browserPart, profile, hasProfile := strings.Cut(head, ":")
	if hasProfile && profile == "" {
		return nil, fmt.Errorf("%w: %q has an empty profile", ErrMalformedSpec, input)
	}

	name, keyring, hasKeyring := strings.Cut(browserPart, "+")
	if hasKeyring && keyring == "" {
		return nil, fmt.Errorf("%w: %q has an empty keyring", ErrMalformedSpec, input)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %q has an empty browser name", ErrMalformedSpec, input)
	}

	family, ok := ParseFamily(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBrowser, name)
	}
	if hasKeyring && !family.IsChromium() {
		return nil, fmt.Errorf("%w: got %q for %s", ErrKeyringNotApplicable, keyring, family)
	}
	if hasContainer && !family.IsFirefox() {
		return nil, fmt.Errorf("%w: got %q for %s", ErrContainerNotApplicable, container, family)
	}

	return &Spec{
		Family:    family,
		Keyring:   keyring,
		Profile:   profile,
		Container: container,
	}, nil
}

// String re-serializes the spec into its canonical form. Parsing the
// result yields an equal Spec.
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Family.String())
	if s.Keyring != "" {
		b.WriteByte('+')
		b.WriteString(s.Keyring)
	}
	if s.Profile != "" {
		b.WriteByte(':')
		b.WriteString(s.Profile)
	}
	if s.Container != "" {
		b.WriteString("::")
		b.WriteString(s.Container)
	}
	return b.String()
}
