package engine

import (
	"log"
	"os"
	"strconv"

	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"github.com/moelife-coder/msdb/internal/rawio"
	"github.com/moelife-coder/msdb/internal/seal"
	"golang.org/x/xerrors"
)

// Create makes a brand new database at root: the directory must not already
// exist. It generates a fresh salt, derives the key, and writes an initial
// main Metadata carrying type=msdb, ver=DatabaseVersion.
func Create(root string, password []byte) (*Session, error) {
	if _, err := os.Stat(root); err == nil {
		return nil, ErrDatabaseExists
	} else if !os.IsNotExist(err) {
		return nil, xerrors.Errorf("checking %s: %w", root, err)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, xerrors.Errorf("creating database directory %s: %w", root, err)
	}

	salt, err := seal.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := rawio.WriteAll(saltPath(root), salt); err != nil {
		return nil, err
	}
	key := seal.DeriveKey(password, salt)

	main := metadata.New()
	main.NewAttribute(metadata.AttrType, DatabaseType)
	main.NewAttribute(metadata.AttrVer, DatabaseVersion)

	s := &Session{
		Root:         root,
		Key:          key,
		MainMetadata: main,
		Structures:   make(map[ids.MetaId]*Structure),
	}
	if err := s.writeMainMetadata(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open decrypts an existing database at root with password, verifying the
// salt-derived key against the main metadata's authenticator. strictVersion
// makes a type/version mismatch fatal instead of a logged warning.
func Open(root string, password []byte, strictVersion bool) (*Session, error) {
	salt, err := rawio.ReadAll(saltPath(root))
	if err != nil {
		return nil, xerrors.Errorf("reading salt: %w", err)
	}
	key := seal.DeriveKey(password, salt)

	main, err := readMetadata(mainMetadataPath(root), key)
	if err != nil {
		return nil, xerrors.Errorf("decrypting main metadata: %w", err)
	}

	if main.Attribute[metadata.AttrType] != DatabaseType {
		msg := xerrors.Errorf("%w (type=%q)", ErrNotDatabase, main.Attribute[metadata.AttrType])
		if strictVersion {
			return nil, msg
		}
		log.Print(msg)
	}
	if ver := main.Attribute[metadata.AttrVer]; ver != DatabaseVersion {
		if _, err := strconv.Atoi(ver); err != nil {
			msg := xerrors.Errorf("main metadata version %q is not an integer", ver)
			if strictVersion {
				return nil, msg
			}
			log.Print(msg)
		} else {
			msg := xerrors.Errorf("%w: database ver=%s, build expects ver=%s", ErrVersionMismatch, ver, DatabaseVersion)
			if strictVersion {
				return nil, msg
			}
			log.Print(msg)
		}
	}

	return &Session{
		Root:          root,
		Key:           key,
		MainMetadata:  main,
		Structures:    make(map[ids.MetaId]*Structure),
		StrictVersion: strictVersion,
	}, nil
}

// readMetadata reads, decrypts, and decodes the Metadata persisted as a
// ciphertext+nonce pair at path.
func readMetadata(path string, key *[seal.KeyLen]byte) (*metadata.Metadata, error) {
	ciphertext, nonce, err := rawio.ReadPair(path)
	if err != nil {
		return nil, err
	}
	plaintext, err := seal.Open(ciphertext, nonce, key)
	if err != nil {
		return nil, err
	}
	return metadata.Decode(plaintext)
}

// writeMetadata encodes, encrypts, and atomically persists m as a
// ciphertext+nonce pair at path, then clears its dirty bit.
func writeMetadata(path string, m *metadata.Metadata, key *[seal.KeyLen]byte) error {
	ciphertext, nonce, err := seal.Seal(m.Encode(), key)
	if err != nil {
		return err
	}
	if err := rawio.WritePair(path, ciphertext, nonce); err != nil {
		return err
	}
	m.ClearModified()
	return nil
}

// writeMainMetadata persists s.MainMetadata unconditionally (used by Create,
// where there is no prior dirty-bit state to check).
func (s *Session) writeMainMetadata() error {
	return writeMetadata(mainMetadataPath(s.Root), s.MainMetadata, s.Key)
}
