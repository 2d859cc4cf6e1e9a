// Package rawio implements the raw file I/O primitives every persisted
// artifact in the database is built on: an atomic write-with-sibling-nonce
// pair for encrypted blocks, and a plain read/write pair for the
// per-database salt file.
//
// Every function here opens, acts on, and closes its file handles within a
// single call; nothing is cached across operations.
package rawio

import (
	"os"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// nonceSuffix names the sibling file holding a ciphertext's nonce.
const nonceSuffix = ".nonce"

// WritePair atomically writes data to path and nonce to path+".nonce".
//
// Both files are written via a temp-file-then-rename so a crash mid-write
// cannot leave a half-written ciphertext or nonce on disk.
func WritePair(path string, data, nonce []byte) error {
	if err := renameio.WriteFile(path+nonceSuffix, nonce, 0o600); err != nil {
		return xerrors.Errorf("writing %s: %w", path+nonceSuffix, err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return xerrors.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadPair reads the ciphertext at path and the nonce at path+".nonce".
func ReadPair(path string) (data, nonce []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, xerrors.Errorf("reading %s: %w", path, err)
	}
	nonce, err = os.ReadFile(path + nonceSuffix)
	if err != nil {
		return nil, nil, xerrors.Errorf("reading %s: %w", path+nonceSuffix, err)
	}
	return data, nonce, nil
}

// WriteAll writes data to path in the clear. Only the per-database salt
// file should ever be written this way.
func WriteAll(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return xerrors.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadAll reads path in the clear. Only the per-database salt file should
// ever be read this way.
func ReadAll(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
