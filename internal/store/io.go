package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// readJSON reads path into out; a missing file leaves out untouched.
func readJSON(path string, out any) error {
	b, err := readFile(path)
	if err != nil || b == nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return oops.Wrapf(err, "decoding %s", filepath.Base(path))
	}
	return nil
}

// readFile returns nil, nil when path does not exist.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Wrapf(err, "reading %s", path)
	}
	return b, nil
}

func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.Wrapf(err, "encoding %s", filepath.Base(path))
	}
	return writeFile(path, b, mode)
}

// writeFile writes via a temp file in the same directory, then renames it
// over path.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return oops.Wrapf(err, "creating temp file for %s", path)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return oops.Wrapf(err, "writing %s", tmp)
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return oops.Wrapf(err, "chmod %s", tmp)
	}
	if err := f.Close(); err != nil {
		return oops.Wrapf(err, "closing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return oops.Wrapf(err, "replacing %s", path)
	}
	return nil
}
