package cookies

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

// Locator maps a parsed browser spec plus host OS to a concrete cookie
// store location. All metadata files (profiles.ini, Local State,
// containers.json) are read through the injected afero.Fs so the tables
// are unit-testable on any host.
type Locator struct {
	fs     afero.Fs
	home   string
	getenv func(string) string
	log    logger.Logger
}

// NewLocator creates a Locator rooted at the given home directory.
// A nil fs defaults to the real filesystem, a nil getenv to os.Getenv
// semantics supplied by the caller.
func NewLocator(fs afero.Fs, home string, getenv func(string) string, log logger.Logger) *Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Locator{fs: fs, home: home, getenv: getenv, log: log}
}

// chromiumFamilyDirs returns the family's user-data directory for the
// given OS, and whether the family keeps per-profile subdirectories
// (Opera does not).
func (l *Locator) chromiumFamilyDirs(family browserspec.Family, osKind OsKind) (dataRoot string, supportsProfiles bool, err error) {
	type entry struct {
		rel      string
		profiles bool
		roaming  bool // Windows: APPDATA instead of LOCALAPPDATA
	}
	var table map[browserspec.Family]entry
	switch osKind {
	case OsLinux:
		table = map[browserspec.Family]entry{
			browserspec.FamilyChrome:   {rel: "google-chrome", profiles: true},
			browserspec.FamilyChromium: {rel: "chromium", profiles: true},
			browserspec.FamilyEdge:     {rel: "microsoft-edge", profiles: true},
			browserspec.FamilyBrave:    {rel: "BraveSoftware/Brave-Browser", profiles: true},
			browserspec.FamilyOpera:    {rel: "opera", profiles: false},
			browserspec.FamilyVivaldi:  {rel: "vivaldi", profiles: true},
			browserspec.FamilyWhale:    {rel: "naver-whale", profiles: true},
		}
	case OsDarwin:
		table = map[browserspec.Family]entry{
			browserspec.FamilyChrome:   {rel: "Google/Chrome", profiles: true},
			browserspec.FamilyChromium: {rel: "Chromium", profiles: true},
			browserspec.FamilyEdge:     {rel: "Microsoft Edge", profiles: true},
			browserspec.FamilyBrave:    {rel: "BraveSoftware/Brave-Browser", profiles: true},
			browserspec.FamilyOpera:    {rel: "com.operasoftware.Opera", profiles: false},
			browserspec.FamilyVivaldi:  {rel: "Vivaldi", profiles: true},
			browserspec.FamilyWhale:    {rel: "Naver Whale", profiles: true},
		}
	case OsWindows:
		table = map[browserspec.Family]entry{
			browserspec.FamilyChrome:   {rel: "Google/Chrome/User Data", profiles: true},
			browserspec.FamilyChromium: {rel: "Chromium/User Data", profiles: true},
			browserspec.FamilyEdge:     {rel: "Microsoft/Edge/User Data", profiles: true},
			browserspec.FamilyBrave:    {rel: "BraveSoftware/Brave-Browser/User Data", profiles: true},
			browserspec.FamilyOpera:    {rel: "Opera Software/Opera Stable", profiles: false, roaming: true},
			browserspec.FamilyVivaldi:  {rel: "Vivaldi/User Data", profiles: true},
			browserspec.FamilyWhale:    {rel: "Naver/Naver Whale/User Data", profiles: true},
		}
	default:
		return "", false, fmt.Errorf("%w: unsupported operating system", ErrBrowserNotInstalled)
	}

	e, ok := table[family]
	if !ok {
		return "", false, fmt.Errorf("%w: %s is not a chromium-family browser", ErrBrowserNotInstalled, family)
	}

	var base string
	switch osKind {
	case OsLinux:
		base = l.getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(l.home, ".config")
		}
	case OsDarwin:
		base = filepath.Join(l.home, "Library", "Application Support")
	case OsWindows:
		if e.roaming {
			base = l.getenv("APPDATA")
			if base == "" {
				base = filepath.Join(l.home, "AppData", "Roaming")
			}
		} else {
			base = l.getenv("LOCALAPPDATA")
			if base == "" {
				base = filepath.Join(l.home, "AppData", "Local")
			}
		}
	}
	return filepath.Join(base, filepath.FromSlash(e.rel)), e.profiles, nil
}

// firefoxRoots returns candidate Firefox data roots (holding
// profiles.ini) for the given OS, in priority order.
func (l *Locator) firefoxRoots(osKind OsKind) []string {
	switch osKind {
	case OsLinux:
		return []string{
			filepath.Join(l.home, ".mozilla", "firefox"),
			filepath.Join(l.home, "snap", "firefox", "common", ".mozilla", "firefox"),
		}
	case OsDarwin:
		return []string{
			filepath.Join(l.home, "Library", "Application Support", "Firefox"),
		}
	case OsWindows:
		appData := l.getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(l.home, "AppData", "Roaming")
		}
		return []string{filepath.Join(appData, "Mozilla", "Firefox")}
	}
	return nil
}

// isPathLike reports whether a profile value names a filesystem path
// rather than a profile. Path-like profiles override the locator tables
// and point directly at a store file or profile directory.
func isPathLike(value string) bool {
	return strings.ContainsAny(value, `/\`) || strings.HasPrefix(value, "~")
}

func (l *Locator) expandPath(p string) string {
	if p == "~" {
		return l.home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(l.home, p[2:])
	}
	return p
}

func (l *Locator) isFile(p string) bool {
	info, err := l.fs.Stat(p)
	return err == nil && !info.IsDir()
}

func (l *Locator) isDir(p string) bool {
	info, err := l.fs.Stat(p)
	return err == nil && info.IsDir()
}

// Locate resolves the spec to a cookie store location on the given OS.
func (l *Locator) Locate(spec *browserspec.Spec, osKind OsKind) (*StoreLocation, error) {
	switch {
	case spec.Family == browserspec.FamilySafari:
		return l.locateSafari(spec, osKind)
	case spec.Family.IsFirefox():
		return l.locateFirefox(spec, osKind)
	default:
		return l.locateChromium(spec, osKind)
	}
}

func (l *Locator) locateChromium(spec *browserspec.Spec, osKind OsKind) (*StoreLocation, error) {
	dataRoot, supportsProfiles, err := l.chromiumFamilyDirs(spec.Family, osKind)
	if err != nil {
		return nil, err
	}

	if spec.Profile != "" && isPathLike(spec.Profile) {
		return l.locateChromiumByPath(l.expandPath(spec.Profile), dataRoot)
	}

	if !l.isDir(dataRoot) {
		return nil, fmt.Errorf("%w: %s data dir %s does not exist", ErrBrowserNotInstalled, spec.Family, dataRoot)
	}

	var profileDir string
	switch {
	case spec.Profile == "" && supportsProfiles:
		profileDir = filepath.Join(dataRoot, "Default")
		if !l.isDir(profileDir) {
			// Single-profile installs keep the store at the root.
			profileDir = dataRoot
		}
	case spec.Profile == "":
		profileDir = dataRoot
	case !supportsProfiles:
		return nil, fmt.Errorf("%w: %s does not support profiles", ErrProfileNotFound, spec.Family)
	default:
		profileDir, err = l.resolveChromiumProfile(dataRoot, spec.Profile)
		if err != nil {
			return nil, err
		}
	}

	storePath, ok := l.chromiumCookieFile(profileDir)
	if !ok {
		return nil, fmt.Errorf("%w: no Cookies database under %s", ErrBrowserNotInstalled, profileDir)
	}
	l.log.Debug("resolved %s cookie store: %s", spec.Family, storePath)

	return &StoreLocation{
		StorePath:   storePath,
		ProfileRoot: profileDir,
		DataRoot:    dataRoot,
		Format:      FormatChromiumSQL,
	}, nil
}

func (l *Locator) locateChromiumByPath(p, dataRoot string) (*StoreLocation, error) {
	if l.isFile(p) {
		return &StoreLocation{
			StorePath:   p,
			ProfileRoot: filepath.Dir(p),
			DataRoot:    dataRoot,
			Format:      FormatChromiumSQL,
		}, nil
	}
	if l.isDir(p) {
		if storePath, ok := l.chromiumCookieFile(p); ok {
			return &StoreLocation{
				StorePath:   storePath,
				ProfileRoot: p,
				DataRoot:    dataRoot,
				Format:      FormatChromiumSQL,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: no Cookies database at %s", ErrProfileNotFound, p)
}

// chromiumCookieFile probes the profile directory for the cookie
// database. Newer Chromium moved it under Network/.
func (l *Locator) chromiumCookieFile(profileDir string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(profileDir, "Network", "Cookies"),
		filepath.Join(profileDir, "Cookies"),
	} {
		if l.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// localState mirrors the slice of Chromium's Local State file the
// locator needs: the profile registry mapping directory names to
// display names.
type localState struct {
	Profile struct {
		InfoCache map[string]struct {
			Name string `json:"name"`
		} `json:"info_cache"`
	} `json:"profile"`
}

// resolveChromiumProfile resolves a profile selector against the Local
// State registry. The selector may be either the profile's directory
// name ("Profile 2") or its display name ("work"); display names are
// looked up in info_cache rather than assumed to equal the directory.
func (l *Locator) resolveChromiumProfile(dataRoot, profile string) (string, error) {
	statePath := filepath.Join(dataRoot, "Local State")
	data, err := afero.ReadFile(l.fs, statePath)
	if err != nil {
		// No registry: fall back to treating the selector as a
		// directory name.
		dir := filepath.Join(dataRoot, profile)
		if l.isDir(dir) {
			return dir, nil
		}
		return "", fmt.Errorf("%w: %q (no profile registry at %s)", ErrProfileNotFound, profile, statePath)
	}

	var state localState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("%w: malformed Local State at %s: %v", ErrCorruptStore, statePath, err)
	}

	if _, ok := state.Profile.InfoCache[profile]; ok {
		return filepath.Join(dataRoot, profile), nil
	}
	for dir, info := range state.Profile.InfoCache {
		if info.Name == profile {
			return filepath.Join(dataRoot, dir), nil
		}
	}
	return "", fmt.Errorf("%w: %q not in profile registry %s", ErrProfileNotFound, profile, statePath)
}

func (l *Locator) locateFirefox(spec *browserspec.Spec, osKind OsKind) (*StoreLocation, error) {
	var loc *StoreLocation

	if spec.Profile != "" && isPathLike(spec.Profile) {
		p := l.expandPath(spec.Profile)
		switch {
		case l.isFile(p):
			loc = &StoreLocation{StorePath: p, ProfileRoot: filepath.Dir(p), DataRoot: filepath.Dir(p), Format: FormatFirefoxSQL}
		case l.isDir(p):
			store := filepath.Join(p, "cookies.sqlite")
			if !l.isFile(store) {
				return nil, fmt.Errorf("%w: no cookies.sqlite under %s", ErrProfileNotFound, p)
			}
			loc = &StoreLocation{StorePath: store, ProfileRoot: p, DataRoot: filepath.Dir(p), Format: FormatFirefoxSQL}
		default:
			return nil, fmt.Errorf("%w: %s does not exist", ErrProfileNotFound, p)
		}
	} else {
		roots := l.firefoxRoots(osKind)
		var lastErr error
		for _, root := range roots {
			candidate, err := l.resolveFirefoxProfile(root, spec.Profile)
			if err != nil {
				lastErr = err
				continue
			}
			store := filepath.Join(candidate, "cookies.sqlite")
			if !l.isFile(store) {
				lastErr = fmt.Errorf("%w: no cookies.sqlite under %s", ErrBrowserNotInstalled, candidate)
				continue
			}
			loc = &StoreLocation{StorePath: store, ProfileRoot: candidate, DataRoot: root, Format: FormatFirefoxSQL}
			break
		}
		if loc == nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, fmt.Errorf("%w: firefox data dir not found", ErrBrowserNotInstalled)
		}
	}

	if err := l.resolveContainer(loc, spec.Container); err != nil {
		return nil, err
	}
	l.log.Debug("resolved firefox cookie store: %s", loc.StorePath)
	return loc, nil
}

// resolveFirefoxProfile resolves a profile name (or the default
// profile when name is empty) against profiles.ini under root.
func (l *Locator) resolveFirefoxProfile(root, name string) (string, error) {
	iniPath := filepath.Join(root, "profiles.ini")
	profiles, err := parseProfilesIni(l.fs, iniPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBrowserNotInstalled, iniPath, err)
	}

	if name != "" {
		for _, p := range profiles.profiles {
			if p.name == name {
				return p.absPath(root), nil
			}
		}
		return "", fmt.Errorf("%w: %q not in %s", ErrProfileNotFound, name, iniPath)
	}

	if dir := profiles.defaultPath(root); dir != "" {
		return dir, nil
	}
	return "", fmt.Errorf("%w: no default profile in %s", ErrProfileNotFound, iniPath)
}

// containersFile mirrors the slice of containers.json the locator
// needs. Built-in containers carry no name, only an l10nID like
// "userContextPersonal.label".
type containersFile struct {
	Identities []struct {
		Name          string `json:"name"`
		L10nID        string `json:"l10nID"`
		UserContextID *int64 `json:"userContextId"`
	} `json:"identities"`
}

// resolveContainer fills loc's container filter from the profile's
// containers.json. The selector "none" picks cookies outside any
// container; an unknown name is ErrContainerNotFound. A resolved id
// with no matching cookie rows later yields an empty, not erroneous,
// result.
func (l *Locator) resolveContainer(loc *StoreLocation, container string) error {
	if container == "" {
		loc.ContainerMode = ContainerAny
		return nil
	}
	if container == "none" {
		loc.ContainerMode = ContainerNone
		return nil
	}

	path := filepath.Join(loc.ProfileRoot, "containers.json")
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return fmt.Errorf("%w: %q (no containers.json at %s)", ErrContainerNotFound, container, path)
	}
	var file containersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: malformed containers.json at %s: %v", ErrCorruptStore, path, err)
	}

	for _, id := range file.Identities {
		if id.UserContextID == nil {
			continue
		}
		if id.Name == container || l10nMatches(container, id.L10nID) {
			loc.ContainerMode = ContainerSpecific
			loc.ContainerID = *id.UserContextID
			return nil
		}
	}
	return fmt.Errorf("%w: %q not in %s", ErrContainerNotFound, container, path)
}

// l10nMatches matches a container selector against the localization id
// of a built-in container ("userContextPersonal.label" matches
// "Personal").
func l10nMatches(container, l10nID string) bool {
	const prefix, suffix = "userContext", ".label"
	if !strings.HasPrefix(l10nID, prefix) || !strings.HasSuffix(l10nID, suffix) {
		return false
	}
	return l10nID[len(prefix):len(l10nID)-len(suffix)] == container
}

func (l *Locator) locateSafari(spec *browserspec.Spec, osKind OsKind) (*StoreLocation, error) {
	if spec.Profile != "" {
		if !isPathLike(spec.Profile) {
			return nil, fmt.Errorf("%w: safari has no named profiles", ErrProfileNotFound)
		}
		p := l.expandPath(spec.Profile)
		if !l.isFile(p) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrProfileNotFound, p)
		}
		return &StoreLocation{StorePath: p, ProfileRoot: filepath.Dir(p), DataRoot: filepath.Dir(p), Format: FormatSafariBinary}, nil
	}

	if osKind != OsDarwin {
		return nil, fmt.Errorf("%w: safari cookies only exist on macos", ErrBrowserNotInstalled)
	}

	candidates := []string{
		filepath.Join(l.home, "Library", "Cookies", "Cookies.binarycookies"),
		filepath.Join(l.home, "Library", "Containers", "com.apple.Safari", "Data", "Library", "Cookies", "Cookies.binarycookies"),
	}
	for _, p := range candidates {
		if l.isFile(p) {
			l.log.Debug("resolved safari cookie store: %s", p)
			return &StoreLocation{StorePath: p, ProfileRoot: filepath.Dir(p), DataRoot: filepath.Dir(p), Format: FormatSafariBinary}, nil
		}
	}
	return nil, fmt.Errorf("%w: no Cookies.binarycookies found", ErrBrowserNotInstalled)
}
