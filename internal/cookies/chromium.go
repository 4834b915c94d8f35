package cookies

import (
	"database/sql"
	"fmt"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/pkg/logger"
)

// readChromiumStore reads every cookie row of a Chromium cookies
// database into raw records, leaving encrypted values untouched for the
// decryption stage. It also returns the store's meta version, which the
// decryptor needs to know whether plaintexts carry a hash prefix.
func readChromiumStore(fs afero.Fs, loc *StoreLocation, log logger.Logger) ([]RawCookie, int64, error) {
	db, closer, err := openStoreRO(fs, loc.StorePath)
	if err != nil {
		return nil, 0, err
	}
	defer closer()

	cols, err := tableColumns(db, "cookies")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrIO, loc.StorePath, err)
	}
	if len(cols) == 0 {
		return nil, 0, fmt.Errorf("%w: %s has no cookies table", ErrCorruptStore, loc.StorePath)
	}

	metaVersion := readMetaVersion(db)

	secureCol := "is_secure"
	if !cols["is_secure"] {
		secureCol = "secure"
	}
	httpOnlyCol := "0"
	switch {
	case cols["is_httponly"]:
		httpOnlyCol = "is_httponly"
	case cols["httponly"]:
		httpOnlyCol = "httponly"
	}
	sameSiteCol := "-1"
	if cols["samesite"] {
		sameSiteCol = "samesite"
	}

	query := fmt.Sprintf(
		`SELECT host_key, name, value, encrypted_value, path, expires_utc, %s, %s, %s FROM cookies`,
		secureCol, httpOnlyCol, sameSiteCol,
	)
	rows, err := db.Query(query)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: query cookies: %v", ErrCorruptStore, loc.StorePath, err)
	}
	defer rows.Close()

	var records []RawCookie
	for rows.Next() {
		var (
			host, name, value, path string
			encrypted               []byte
			expiresUTC              int64
			secure, httpOnly        int
			sameSite                int
		)
		if err := rows.Scan(&host, &name, &value, &encrypted, &path, &expiresUTC, &secure, &httpOnly, &sameSite); err != nil {
			return nil, 0, fmt.Errorf("%w: %s: scan cookie row: %v", ErrIO, loc.StorePath, err)
		}

		rec := RawCookie{
			Host:     host,
			Path:     path,
			Name:     name,
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
			SameSite: chromiumSameSite(sameSite),
		}
		if unix := chromiumToUnix(expiresUTC); unix > 0 {
			rec.Expiry = unix
		}

		// encrypted_value supersedes the legacy plaintext column
		// whenever it is populated.
		switch {
		case len(encrypted) > 0:
			rec.Value = encrypted
			rec.Encrypted = true
		case value != "":
			rec.Value = []byte(value)
		default:
			log.Debug("skipping valueless cookie %s for %s", name, host)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: iterate cookie rows: %v", ErrIO, loc.StorePath, err)
	}
	return records, metaVersion, nil
}

// readMetaVersion reads the schema version from the meta table. Missing
// or unreadable meta versions degrade to 0 rather than failing the
// read; the value only affects plaintext hash-prefix handling.
func readMetaVersion(db *sql.DB) int64 {
	var value string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&value); err != nil {
		return 0
	}
	var v int64
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return 0
	}
	return v
}

// chromiumSameSite maps Chromium's samesite column (-1 unspecified,
// 0 none, 1 lax, 2 strict).
func chromiumSameSite(v int) SameSite {
	switch v {
	case 0:
		return SameSiteNone
	case 1:
		return SameSiteLax
	case 2:
		return SameSiteStrict
	}
	return SameSiteUnspecified
}
