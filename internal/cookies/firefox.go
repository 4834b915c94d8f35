package cookies

import (
	"database/sql"
	"fmt"

	"github.com/spf13/afero"

	"github.com/gurl-cli/gurl/pkg/logger"
)

// firefoxMsExpirySchema is the first moz_cookies schema version that
// stores expiry in milliseconds instead of seconds.
const firefoxMsExpirySchema = 16

// readFirefoxStore reads moz_cookies rows into raw records. Firefox
// values are stored unencrypted, so every record comes back plaintext.
// The location's container filter restricts which originAttributes the
// query matches.
func readFirefoxStore(fs afero.Fs, loc *StoreLocation, log logger.Logger) ([]RawCookie, int64, error) {
	db, closer, err := openStoreRO(fs, loc.StorePath)
	if err != nil {
		return nil, 0, err
	}
	defer closer()

	cols, err := tableColumns(db, "moz_cookies")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrIO, loc.StorePath, err)
	}
	if len(cols) == 0 {
		return nil, 0, fmt.Errorf("%w: %s has no moz_cookies table", ErrCorruptStore, loc.StorePath)
	}

	schemaVersion := readUserVersion(db)

	expiryCol := ""
	switch {
	case cols["expiry"]:
		expiryCol = "expiry"
	case cols["expires"]:
		expiryCol = "expires"
	default:
		return nil, 0, fmt.Errorf("%w: %s: moz_cookies has no expiry column", ErrCorruptStore, loc.StorePath)
	}
	secureCol := "isSecure"
	if !cols["issecure"] && cols["is_secure"] {
		secureCol = "is_secure"
	}
	httpOnlyCol := "0"
	switch {
	case cols["ishttponly"]:
		httpOnlyCol = "isHttpOnly"
	case cols["is_http_only"]:
		httpOnlyCol = "is_http_only"
	}
	sameSiteCol := "-1"
	if cols["samesite"] {
		sameSiteCol = "sameSite"
	}

	query := fmt.Sprintf(
		`SELECT host, name, value, path, %s, %s, %s, %s FROM moz_cookies`,
		expiryCol, secureCol, httpOnlyCol, sameSiteCol,
	)
	var args []any
	switch loc.ContainerMode {
	case ContainerSpecific:
		if !cols["originattributes"] {
			// Pre-container schema: the requested container cannot hold
			// any cookies here. Empty result, not an error.
			log.Debug("%s predates containers; returning empty set", loc.StorePath)
			return nil, schemaVersion, nil
		}
		query += ` WHERE originAttributes LIKE ? OR originAttributes LIKE ?`
		args = append(args,
			fmt.Sprintf("%%userContextId=%d", loc.ContainerID),
			fmt.Sprintf("%%userContextId=%d&%%", loc.ContainerID),
		)
	case ContainerNone:
		if cols["originattributes"] {
			query += ` WHERE NOT INSTR(originAttributes, 'userContextId=')`
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: query moz_cookies: %v", ErrCorruptStore, loc.StorePath, err)
	}
	defer rows.Close()

	var records []RawCookie
	for rows.Next() {
		var (
			host, name, value, path string
			expiry                  sql.NullInt64
			secure, httpOnly        int
			sameSite                int
		)
		if err := rows.Scan(&host, &name, &value, &path, &expiry, &secure, &httpOnly, &sameSite); err != nil {
			return nil, 0, fmt.Errorf("%w: %s: scan moz_cookies row: %v", ErrIO, loc.StorePath, err)
		}

		rec := RawCookie{
			Host:     host,
			Path:     path,
			Name:     name,
			Value:    []byte(value),
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
			SameSite: firefoxSameSite(sameSite),
		}
		if expiry.Valid {
			seconds := expiry.Int64
			if schemaVersion >= firefoxMsExpirySchema {
				seconds /= 1000
			}
			if seconds > 0 {
				rec.Expiry = seconds
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: iterate moz_cookies rows: %v", ErrIO, loc.StorePath, err)
	}
	return records, schemaVersion, nil
}

func readUserVersion(db *sql.DB) int64 {
	var v int64
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0
	}
	return v
}

// firefoxSameSite maps moz_cookies sameSite (0 none, 1 lax, 2 strict).
func firefoxSameSite(v int) SameSite {
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
