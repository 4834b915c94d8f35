package cookies

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"
)

// openStoreRO opens a cookie database read-only. The live file is tried
// first with an immutable connection; if the owning browser holds a
// lock, the store (plus WAL/SHM sidecars) is copied to a temporary
// directory and the copy is opened instead. The returned closer tears
// down the connection and removes any copy; callers must defer it on
// every path.
//
// A lock that persists after the copy fallback surfaces as
// ErrStoreLocked; there is no further retry.
func openStoreRO(fs afero.Fs, path string) (db *sql.DB, closer func(), err error) {
	db, err = probeOpen(path)
	if err == nil {
		return db, func() { db.Close() }, nil
	}
	firstErr := err

	copyPath, cleanup, copyErr := safeCopy(fs, path)
	if copyErr != nil {
		// The copy itself failed; report the original open failure,
		// classified, with the copy failure attached.
		return nil, nil, fmt.Errorf("%v (copy fallback: %v)", classifySQLiteErr(firstErr, path), copyErr)
	}

	db, err = probeOpen(copyPath)
	if err != nil {
		cleanup()
		return nil, nil, classifySQLiteErr(err, path)
	}
	return db, func() { db.Close(); cleanup() }, nil
}

// probeOpen opens the database and forces a real read, since sql.Open
// alone is lazy and reports nothing about locks.
func probeOpen(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?immutable=1", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// classifySQLiteErr maps driver errors onto the engine's taxonomy.
func classifySQLiteErr(err error, path string) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "locked") || strings.Contains(msg, "busy"):
		return fmt.Errorf("%w: %s: %v", ErrStoreLocked, path, err)
	case strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed"):
		return fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
}

// tableColumns returns the column names of a table, lower-cased for
// schema probing. Browser stores renamed several columns over the
// years, so readers query what is actually there.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}
