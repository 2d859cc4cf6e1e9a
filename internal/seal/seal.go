// Package seal implements the database's crypto layer: password-based key
// derivation and authenticated symmetric encryption of blocks. It plays the
// role sodiumoxide's pwhash and secretbox play in the reference
// implementation, swapped for their golang.org/x/crypto equivalents.
package seal

import (
	"crypto/rand"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/xerrors"
)

// SaltLen is the length, in bytes, of a per-database salt.
const SaltLen = 32

// KeyLen is the length, in bytes, of a derived symmetric key.
const KeyLen = 32

// NonceLen is the length, in bytes, of a secretbox nonce.
const NonceLen = 24

// Interactive-equivalent argon2id cost parameters, chosen to approximate
// libsodium's pwhash OPSLIMIT_INTERACTIVE/MEMLIMIT_INTERACTIVE: single-user,
// local, fast enough to not annoy a human typing a password.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// GenerateSalt draws a fresh random per-database salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, xerrors.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// DeriveKey deterministically derives a KeyLen-byte symmetric key from
// password and salt: DeriveKey(p, s) == DeriveKey(p, s) for any p, s.
func DeriveKey(password, salt []byte) *[KeyLen]byte {
	derived := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeyLen)
	var key [KeyLen]byte
	copy(key[:], derived)
	return &key
}

// Seal encrypts plaintext under key with a freshly generated nonce,
// producing ciphertext with a built-in authenticator.
func Seal(plaintext []byte, key *[KeyLen]byte) (ciphertext, nonce []byte, err error) {
	var n [NonceLen]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, nil, xerrors.Errorf("generating nonce: %w", err)
	}
	ciphertext = secretbox.Seal(nil, plaintext, &n, key)
	return ciphertext, n[:], nil
}

// Open verifies and decrypts ciphertext produced by Seal. A wrong key or a
// tampered ciphertext/nonce is a fatal, unrecoverable error.
func Open(ciphertext, nonce []byte, key *[KeyLen]byte) ([]byte, error) {
	if len(nonce) != NonceLen {
		return nil, xerrors.Errorf("invalid nonce length %d, want %d", len(nonce), NonceLen)
	}
	var n [NonceLen]byte
	copy(n[:], nonce)
	plaintext, ok := secretbox.Open(nil, ciphertext, &n, key)
	if !ok {
		return nil, xerrors.New("decryption failed: wrong password or corrupted data")
	}
	return plaintext, nil
}
