package trust

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shipwaylabs/shipway"
)

const (
	keyMode = 0o600
	dirMode = 0o700
)

// DefaultKeyPath returns ~/.ssh/id_rsa, the conventional private key location.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ssh", "id_rsa")
}

// EnsureKey writes private key material to path with owner-only permissions.
//
// If a file already exists at path the call is a no-op, even when material
// differs: existing keys are never replaced. The check is an explicit
// precondition, not an upsert.
func EnsureKey(path string, material []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &shipway.WriteError{Path: path, Op: "stat", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return &shipway.WriteError{Path: path, Op: "mkdir", Err: err}
	}

	// O_EXCL guards against a concurrent writer creating the file between the
	// stat above and this open.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}

		return &shipway.WriteError{Path: path, Op: "create", Err: err}
	}

	if _, err := f.Write(material); err != nil {
		_ = f.Close()

		return &shipway.WriteError{Path: path, Op: "write", Err: err}
	}

	if err := f.Close(); err != nil {
		return &shipway.WriteError{Path: path, Op: "write", Err: err}
	}

	return nil
}
