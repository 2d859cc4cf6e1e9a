// Package ids defines the two fixed-width opaque identifier spaces used
// throughout the database: MetaId for structures and fields, CellId for
// objects and in-block cells.
package ids

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/xerrors"
)

// Length is the width, in bytes, of both identifier spaces.
const Length = 8

// MetaId identifies a structure or a field.
type MetaId [Length]byte

// CellId identifies an object or a cell within a block.
type CellId [Length]byte

// Hex renders the identifier as lowercase hexadecimal, the form used for
// sub_data values and on-disk directory/file names.
func (m MetaId) Hex() string { return hex.EncodeToString(m[:]) }

// Hex renders the identifier as lowercase hexadecimal.
func (c CellId) Hex() string { return hex.EncodeToString(c[:]) }

func (m MetaId) String() string { return m.Hex() }
func (c CellId) String() string { return c.Hex() }

// IsZero reports whether m is the zero value.
func (m MetaId) IsZero() bool { return m == MetaId{} }

// ParseMetaId decodes a hex-encoded MetaId, e.g. a sub_data value.
func ParseMetaId(s string) (MetaId, error) {
	b, err := decodeExact(s)
	if err != nil {
		return MetaId{}, xerrors.Errorf("parsing metadata identifier %q: %w", s, err)
	}
	var m MetaId
	copy(m[:], b)
	return m, nil
}

// ParseCellId decodes a hex-encoded CellId, e.g. a link target.
func ParseCellId(s string) (CellId, error) {
	b, err := decodeExact(s)
	if err != nil {
		return CellId{}, xerrors.Errorf("parsing cell identifier %q: %w", s, err)
	}
	var c CellId
	copy(c[:], b)
	return c, nil
}

func decodeExact(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != Length {
		return nil, xerrors.Errorf("expected %d bytes, got %d", Length, len(b))
	}
	return b, nil
}

// randomBytes draws Length uniformly random bytes from the OS CSPRNG.
// Collision checking against the relevant namespace is the caller's
// responsibility.
func randomBytes() [Length]byte {
	var b [Length]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read on the standard reader only fails if the
		// underlying OS source is broken beyond repair; there is no
		// sensible recovery for the caller.
		panic(xerrors.Errorf("reading random bytes: %w", err))
	}
	return b
}

// NewMetaId draws a fresh, uniformly random MetaId. The caller must retry on
// collision against the relevant namespace (main metadata sub_data, or a
// structure's sub_data).
func NewMetaId() MetaId { return MetaId(randomBytes()) }

// NewCellId draws a fresh, uniformly random CellId. The caller must retry on
// collision against the relevant namespace (an object list, or in-field
// cell identifiers).
func NewCellId() CellId { return CellId(randomBytes()) }
