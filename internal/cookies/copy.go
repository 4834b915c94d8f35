package cookies

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// safeCopy copies a SQLite cookie store (and its -wal and -shm sidecars
// if present) to a private temporary directory, so the store can be
// read while the owning browser holds a lock on the original.
//
// It returns the path of the copied store and a cleanup function that
// removes the whole temporary directory. The cleanup function must run
// on every exit path, including error paths; safeCopy itself removes
// the directory again if the copy fails partway.
func safeCopy(fs afero.Fs, srcPath string) (copyPath string, cleanup func(), err error) {
	info, err := fs.Stat(srcPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: stat %s: %v", ErrIO, srcPath, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", ErrIO, srcPath)
	}
	if info.Size() == 0 {
		return "", nil, fmt.Errorf("%w: %s is empty", ErrCorruptStore, srcPath)
	}

	tempDir, err := afero.TempDir(fs, "", "gurl-cookies-")
	if err != nil {
		return "", nil, fmt.Errorf("%w: create temp dir: %v", ErrIO, err)
	}
	cleanup = func() {
		_ = fs.RemoveAll(tempDir)
	}

	baseName := filepath.Base(srcPath)
	copyPath = filepath.Join(tempDir, baseName)
	if err := copyFile(fs, srcPath, copyPath); err != nil {
		cleanup()
		return "", nil, err
	}

	// WAL and SHM sidecars hold pages not yet checkpointed into the
	// main file. Copied best-effort: their absence is normal.
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := srcPath + suffix
		if _, err := fs.Stat(sidecar); err == nil {
			_ = copyFile(fs, sidecar, copyPath+suffix)
		}
	}

	return copyPath, cleanup, nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIO, src, err)
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrIO, dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: copy %s: %v", ErrIO, src, err)
	}
	return nil
}
