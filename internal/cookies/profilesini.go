package cookies

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// iniProfile is one [ProfileN] section of a Firefox profiles.ini.
type iniProfile struct {
	name       string
	path       string
	isRelative bool
	isDefault  bool
}

// absPath resolves the profile directory against the data root.
// IsRelative=0 entries carry absolute paths.
func (p *iniProfile) absPath(root string) string {
	if p.path == "" {
		return ""
	}
	if !p.isRelative {
		return filepath.FromSlash(p.path)
	}
	return filepath.Join(root, filepath.FromSlash(p.path))
}

// iniFile is the parsed profile registry.
type iniFile struct {
	profiles []iniProfile
	// installDefault is the Default= value of the first [Install*]
	// section, the profile modern Firefox actually launches.
	installDefault string
}

// defaultPath picks the default profile directory by Firefox's own
// convention: the [Install*] Default entry wins, then a [Profile*]
// section flagged Default=1, then the first profile listed.
func (f *iniFile) defaultPath(root string) string {
	if f.installDefault != "" {
		return filepath.Join(root, filepath.FromSlash(f.installDefault))
	}
	for i := range f.profiles {
		if f.profiles[i].isDefault {
			return f.profiles[i].absPath(root)
		}
	}
	if len(f.profiles) > 0 {
		return f.profiles[0].absPath(root)
	}
	return ""
}

// parseProfilesIni parses a Firefox-style profiles.ini. The format is a
// flat INI: [InstallXXXX] sections carry a Default= profile path,
// [ProfileN] sections carry Name=, Path=, IsRelative= and Default=.
func parseProfilesIni(fs afero.Fs, iniPath string) (*iniFile, error) {
	f, err := fs.Open(iniPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file := &iniFile{}
	var current *iniProfile
	var inInstall bool

	flush := func() {
		if current != nil {
			file.profiles = append(file.profiles, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flush()
			section := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			inInstall = strings.HasPrefix(section, "Install")
			if strings.HasPrefix(section, "Profile") {
				// IsRelative defaults to 1 when the key is absent.
				current = &iniProfile{isRelative: true}
			}
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if inInstall && key == "Default" && file.installDefault == "" {
			file.installDefault = val
			continue
		}
		if current == nil {
			continue
		}
		switch key {
		case "Name":
			current.name = val
		case "Path":
			current.path = val
		case "IsRelative":
			current.isRelative = val != "0"
		case "Default":
			current.isDefault = val == "1"
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return file, nil
}
