//go:build linux

package cookies

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/pkg/logger"
)

// linuxV10Password is the fixed passphrase Chromium's basic-text
// backend derives the v10 key from.
const linuxV10Password = "peanuts"

// linuxKeyIterations is Chromium's PBKDF2 iteration count on Linux.
const linuxKeyIterations = 1

type linuxKeyringBackend int

const (
	backendBasicText linuxKeyringBackend = iota
	backendGnome
	backendKWallet
	backendKWallet5
	backendKWallet6
)

// linuxKeySource obtains Chromium key material from the desktop's
// secret store. The v10 key is always derivable; the v11 key needs the
// browser's "Safe Storage" secret from GNOME Keyring or KWallet.
type linuxKeySource struct {
	getenv func(string) string
	log    logger.Logger
}

// NewSystemKeySource returns the key source for this platform.
func NewSystemKeySource(_ afero.Fs, getenv func(string) string, log logger.Logger) KeySource {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &linuxKeySource{getenv: getenv, log: log}
}

// chromiumKeyringNames maps a family to the name its browser uses for
// keyring entries. Several families piggyback on Chromium's entry.
var chromiumKeyringNames = map[browserspec.Family]string{
	browserspec.FamilyChrome:   "Chrome",
	browserspec.FamilyChromium: "Chromium",
	browserspec.FamilyEdge:     "Chromium",
	browserspec.FamilyBrave:    "Brave",
	browserspec.FamilyOpera:    "Chromium",
	browserspec.FamilyVivaldi:  "Chrome",
	browserspec.FamilyWhale:    "Whale",
}

func (s *linuxKeySource) KeyMaterial(_ *StoreLocation, family browserspec.Family, keyring string) (*KeyMaterial, error) {
	emptyKey := DeriveCBCKey(nil, linuxKeyIterations)
	material := &KeyMaterial{
		V10Keys: [][]byte{DeriveCBCKey([]byte(linuxV10Password), linuxKeyIterations), emptyKey},
	}

	backend, err := s.resolveBackend(keyring)
	if err != nil {
		return nil, err
	}
	name, ok := chromiumKeyringNames[family]
	if !ok {
		return material, nil
	}

	var secret []byte
	switch backend {
	case backendBasicText:
		// Basic text storage has no separate secret; only v10 blobs
		// exist.
	case backendGnome:
		secret = s.secretServicePassword(name)
	case backendKWallet, backendKWallet5, backendKWallet6:
		secret = s.kwalletPassword(name, backend)
	}
	if len(secret) > 0 {
		material.V11Keys = [][]byte{DeriveCBCKey(secret, linuxKeyIterations), emptyKey}
	}
	return material, nil
}

func (s *linuxKeySource) resolveBackend(keyring string) (linuxKeyringBackend, error) {
	if keyring == "" {
		return s.detectBackend(), nil
	}
	switch strings.ToLower(keyring) {
	case "kwallet":
		return backendKWallet, nil
	case "kwallet5":
		return backendKWallet5, nil
	case "kwallet6":
		return backendKWallet6, nil
	case "gnome", "gnomekeyring":
		return backendGnome, nil
	case "basic", "basictext":
		return backendBasicText, nil
	}
	return 0, fmt.Errorf("%w: unsupported keyring %q", ErrDecryptionFailed, keyring)
}

// detectBackend picks the keyring the browser most likely used, from
// the desktop environment variables, the same way Chromium chooses its
// password store.
func (s *linuxKeySource) detectBackend() linuxKeyringBackend {
	for _, part := range strings.Split(s.getenv("XDG_CURRENT_DESKTOP"), ":") {
		switch strings.TrimSpace(part) {
		case "KDE":
			switch s.getenv("KDE_SESSION_VERSION") {
			case "6":
				return backendKWallet6
			case "5":
				return backendKWallet5
			default:
				return backendKWallet
			}
		case "GNOME", "Unity", "X-Cinnamon", "Deepin", "Pantheon", "XFCE", "UKUI", "MATE", "LXQt":
			return backendGnome
		}
	}
	session := s.getenv("DESKTOP_SESSION")
	if strings.Contains(session, "gnome") || strings.Contains(session, "mate") {
		return backendGnome
	}
	if s.getenv("GNOME_DESKTOP_SESSION_ID") != "" {
		return backendGnome
	}
	if s.getenv("KDE_FULL_SESSION") != "" {
		return backendKWallet
	}
	return backendBasicText
}

const (
	secretsBus  = "org.freedesktop.secrets"
	secretsPath = dbus.ObjectPath("/org/freedesktop/secrets")
)

// dbusSecret mirrors the org.freedesktop.Secret.Service secret struct.
type dbusSecret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// secretServicePassword finds the "<name> Safe Storage" item in the
// default Secret Service collection and returns its secret. Failures
// are logged and degrade to nil: without the secret only v11 blobs
// become undecryptable, which surfaces per record.
func (s *linuxKeySource) secretServicePassword(name string) []byte {
	conn, err := dbus.SessionBus()
	if err != nil {
		s.log.Warning("cannot connect to session bus: %v", err)
		return nil
	}

	svc := conn.Object(secretsBus, secretsPath)
	var output dbus.Variant
	var sessionPath dbus.ObjectPath
	if err := svc.Call("org.freedesktop.Secret.Service.OpenSession", 0, "plain", dbus.MakeVariant("")).Store(&output, &sessionPath); err != nil {
		s.log.Warning("secret service session failed: %v", err)
		return nil
	}

	collection := conn.Object(secretsBus, secretsPath+"/aliases/default")
	itemsProp, err := collection.GetProperty("org.freedesktop.Secret.Collection.Items")
	if err != nil {
		s.log.Warning("cannot list keyring items: %v", err)
		return nil
	}
	items, _ := itemsProp.Value().([]dbus.ObjectPath)

	label := name + " Safe Storage"
	for _, path := range items {
		item := conn.Object(secretsBus, path)
		labelProp, err := item.GetProperty("org.freedesktop.Secret.Item.Label")
		if err != nil {
			continue
		}
		itemLabel, _ := labelProp.Value().(string)
		if itemLabel != label {
			continue
		}

		if lockedProp, err := item.GetProperty("org.freedesktop.Secret.Item.Locked"); err == nil {
			if locked, _ := lockedProp.Value().(bool); locked {
				var unlocked []dbus.ObjectPath
				var prompt dbus.ObjectPath
				if err := svc.Call("org.freedesktop.Secret.Service.Unlock", 0, []dbus.ObjectPath{path}).Store(&unlocked, &prompt); err != nil {
					s.log.Warning("cannot unlock keyring item: %v", err)
				}
			}
		}

		var secret dbusSecret
		if err := item.Call("org.freedesktop.Secret.Item.GetSecret", 0, sessionPath).Store(&secret); err != nil {
			s.log.Warning("cannot read keyring secret: %v", err)
			return nil
		}
		return secret.Value
	}

	s.log.Warning("no keyring item labeled %q", label)
	return nil
}

// kwalletPassword reads "<name> Safe Storage" from the "<name> Keys"
// folder of the user's network wallet.
func (s *linuxKeySource) kwalletPassword(name string, backend linuxKeyringBackend) []byte {
	service, path := "org.kde.kwalletd5", "/modules/kwalletd5"
	switch backend {
	case backendKWallet:
		service, path = "org.kde.kwalletd", "/modules/kwalletd"
	case backendKWallet6:
		service, path = "org.kde.kwalletd6", "/modules/kwalletd6"
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		s.log.Warning("cannot connect to session bus: %v", err)
		return nil
	}
	wallet := conn.Object(service, dbus.ObjectPath(path))

	const appID = "gurl"
	var walletName string
	if err := wallet.Call("org.kde.KWallet.networkWallet", 0).Store(&walletName); err != nil {
		s.log.Warning("kwallet networkWallet failed: %v", err)
		return nil
	}
	var handle int32
	if err := wallet.Call("org.kde.KWallet.open", 0, walletName, int64(0), appID).Store(&handle); err != nil || handle < 0 {
		s.log.Warning("cannot open kwallet %q", walletName)
		return nil
	}
	defer wallet.Call("org.kde.KWallet.close", 0, handle, false, appID)

	var password string
	if err := wallet.Call("org.kde.KWallet.readPassword", 0, handle, name+" Keys", name+" Safe Storage", appID).Store(&password); err != nil {
		s.log.Warning("kwallet read failed: %v", err)
		return nil
	}
	return []byte(password)
}
