package installer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CreateZip archives every file in dir into dir/name and returns the archive
// path. A stale archive of the same name from a previous run is excluded
// from the new archive's entries.
func CreateZip(name, dir string) (string, error) {
	zipPath := filepath.Join(dir, name)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read output directory: %w", err)
	}

	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == name {
			continue
		}
		if err := addFile(zw, dir, entry.Name()); err != nil {
			zw.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	return zipPath, nil
}

func addFile(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	// Archive entries use the bare file name, not the full path.
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
