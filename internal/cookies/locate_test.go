package cookies

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/internal/browserspec"
)

func mustSpec(t *testing.T, input string) *browserspec.Spec {
	t.Helper()
	s, err := browserspec.Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func newTestLocator(fs afero.Fs, env map[string]string) *Locator {
	return NewLocator(fs, "/home/u", envMap(env), nil)
}

func TestLocateChromeDefaultProfileLinux(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := "/home/u/.config/google-chrome/Default/Cookies"
	writeFile(t, fs, store, "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != store {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, store)
	}
	if loc.Format != FormatChromiumSQL {
		t.Errorf("Format = %v", loc.Format)
	}
	if loc.DataRoot != "/home/u/.config/google-chrome" {
		t.Errorf("DataRoot = %q", loc.DataRoot)
	}
}

func TestLocateChromePrefersNetworkSubdir(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/u/.config/google-chrome/Default/Network/Cookies", "db")
	writeFile(t, fs, "/home/u/.config/google-chrome/Default/Cookies", "legacy")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := "/home/u/.config/google-chrome/Default/Network/Cookies"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}
}

func TestLocateChromeProfileByDisplayName(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/home/u/.config/google-chrome"
	writeFile(t, fs, root+"/Local State",
		`{"profile":{"info_cache":{"Default":{"name":"Personal"},"Profile 2":{"name":"work"}}}}`)
	writeFile(t, fs, root+"/Profile 2/Cookies", "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome:work"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := root + "/Profile 2/Cookies"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}
}

func TestLocateChromeProfileByDirName(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/home/u/.config/google-chrome"
	writeFile(t, fs, root+"/Local State",
		`{"profile":{"info_cache":{"Profile 2":{"name":"work"}}}}`)
	writeFile(t, fs, root+"/Profile 2/Cookies", "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome:Profile 2"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := root + "/Profile 2/Cookies"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}
}

func TestLocateChromeUnknownProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/home/u/.config/google-chrome"
	writeFile(t, fs, root+"/Local State", `{"profile":{"info_cache":{}}}`)
	writeFile(t, fs, root+"/Default/Cookies", "db")

	_, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome:nope"), OsLinux)
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestLocateChromeNotInstalled(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome"), OsLinux)
	if !errors.Is(err, ErrBrowserNotInstalled) {
		t.Errorf("err = %v, want ErrBrowserNotInstalled", err)
	}
}

func TestLocateOperaHasNoProfiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/u/.config/opera/Cookies", "db")
	l := newTestLocator(fs, nil)

	loc, err := l.Locate(mustSpec(t, "opera"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := "/home/u/.config/opera/Cookies"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}

	if _, err := l.Locate(mustSpec(t, "opera:work"), OsLinux); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestLocateChromiumPathOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tmp/exported/Cookies", "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chromium:/tmp/exported/Cookies"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != "/tmp/exported/Cookies" {
		t.Errorf("StorePath = %q", loc.StorePath)
	}

	// A directory override probes for the store inside it.
	loc, err = newTestLocator(fs, nil).Locate(mustSpec(t, "chromium:/tmp/exported"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != "/tmp/exported/Cookies" {
		t.Errorf("StorePath = %q", loc.StorePath)
	}
}

func TestLocateChromeWindowsUsesLocalAppData(t *testing.T) {
	fs := afero.NewMemMapFs()
	env := map[string]string{"LOCALAPPDATA": "/win/AppData/Local"}
	store := filepath.Join("/win/AppData/Local", "Google", "Chrome", "User Data", "Default", "Cookies")
	writeFile(t, fs, store, "db")

	loc, err := newTestLocator(fs, env).Locate(mustSpec(t, "chrome"), OsWindows)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != store {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, store)
	}
}

func firefoxFixture(t *testing.T, fs afero.Fs) string {
	t.Helper()
	root := "/home/u/.mozilla/firefox"
	writeFile(t, fs, root+"/profiles.ini", `
[Install0000]
Default=abc.default-release

[Profile1]
Name=work
IsRelative=1
Path=xyz.work

[Profile0]
Name=default-release
IsRelative=1
Path=abc.default-release
Default=1
`)
	writeFile(t, fs, root+"/abc.default-release/cookies.sqlite", "db")
	writeFile(t, fs, root+"/xyz.work/cookies.sqlite", "db")
	return root
}

func TestLocateFirefoxDefaultProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := firefoxFixture(t, fs)

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "firefox"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := root + "/abc.default-release/cookies.sqlite"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}
	if loc.Format != FormatFirefoxSQL {
		t.Errorf("Format = %v", loc.Format)
	}
	if loc.ContainerMode != ContainerAny {
		t.Errorf("ContainerMode = %v, want ContainerAny", loc.ContainerMode)
	}
}

func TestLocateFirefoxNamedProfile(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := firefoxFixture(t, fs)

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "firefox:work"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if want := root + "/xyz.work/cookies.sqlite"; loc.StorePath != want {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, want)
	}
}

func TestLocateFirefoxContainer(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := firefoxFixture(t, fs)
	writeFile(t, fs, root+"/abc.default-release/containers.json",
		`{"identities":[
			{"userContextId":1,"l10nID":"userContextPersonal.label"},
			{"userContextId":5,"name":"Shopping"}
		]}`)

	tests := []struct {
		spec     string
		mode     ContainerMode
		id       int64
		matchErr error
	}{
		{spec: "firefox::Personal", mode: ContainerSpecific, id: 1},
		{spec: "firefox::Shopping", mode: ContainerSpecific, id: 5},
		{spec: "firefox::none", mode: ContainerNone},
		{spec: "firefox::Banking", matchErr: ErrContainerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, tt.spec), OsLinux)
			if tt.matchErr != nil {
				if !errors.Is(err, tt.matchErr) {
					t.Fatalf("err = %v, want %v", err, tt.matchErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if loc.ContainerMode != tt.mode {
				t.Errorf("ContainerMode = %v, want %v", loc.ContainerMode, tt.mode)
			}
			if loc.ContainerID != tt.id {
				t.Errorf("ContainerID = %d, want %d", loc.ContainerID, tt.id)
			}
		})
	}
}

func TestLocateFirefoxPathOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/backup/ff/cookies.sqlite", "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "firefox:/backup/ff"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != "/backup/ff/cookies.sqlite" {
		t.Errorf("StorePath = %q", loc.StorePath)
	}
}

func TestLocateSafari(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := "/home/u/Library/Cookies/Cookies.binarycookies"
	writeFile(t, fs, store, "cook")
	l := newTestLocator(fs, nil)

	loc, err := l.Locate(mustSpec(t, "safari"), OsDarwin)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != store || loc.Format != FormatSafariBinary {
		t.Errorf("loc = %+v", loc)
	}

	if _, err := l.Locate(mustSpec(t, "safari"), OsLinux); !errors.Is(err, ErrBrowserNotInstalled) {
		t.Errorf("err = %v, want ErrBrowserNotInstalled", err)
	}
	if _, err := l.Locate(mustSpec(t, "safari:work"), OsDarwin); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestLocateSafariSandboxedFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := "/home/u/Library/Containers/com.apple.Safari/Data/Library/Cookies/Cookies.binarycookies"
	writeFile(t, fs, store, "cook")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "safari"), OsDarwin)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != store {
		t.Errorf("StorePath = %q, want %q", loc.StorePath, store)
	}
}

func TestLocateSafariPathOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/exports/Cookies.binarycookies", "cook")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "safari:/exports/Cookies.binarycookies"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != "/exports/Cookies.binarycookies" {
		t.Errorf("StorePath = %q", loc.StorePath)
	}
}

func TestLocateTildeExpansion(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/u/exported/Cookies", "db")

	loc, err := newTestLocator(fs, nil).Locate(mustSpec(t, "chrome:~/exported/Cookies"), OsLinux)
	if err != nil {
		t.Fatal(err)
	}
	if loc.StorePath != "/home/u/exported/Cookies" {
		t.Errorf("StorePath = %q", loc.StorePath)
	}
}
