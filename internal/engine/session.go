package engine

import (
	"log"

	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"github.com/moelife-coder/msdb/internal/seal"
)

// DatabaseType is the main metadata "type" attribute every msdb database
// carries, checked by Open to reject opening a directory that isn't one of
// ours.
const DatabaseType = "msdb"

// DatabaseVersion is the on-disk format version this build writes, and the
// value Open compares against the "ver" attribute of an existing database.
const DatabaseVersion = "1"

// Session is the single in-memory handle through which every engine
// operation runs. Unlike the original source's module-level globals, a
// Session is an explicit value: nothing here is a package variable, so
// multiple databases could in principle be open in the same process (the
// CLI only ever opens one).
type Session struct {
	Root string
	Key  *[seal.KeyLen]byte

	MainMetadata *metadata.Metadata
	Location     Location
	Structures   map[ids.MetaId]*Structure

	// StrictVersion records the strict-version setting Open was called
	// with (fail instead of warn on a database type/version mismatch).
	StrictVersion bool

	// Logger receives warnings from lossy sync paths. Open's type/version
	// mismatch warnings are printed with the standard log package, since
	// they are raised before a Session exists. Defaults to log.Default() so
	// tests can swap in their own to silence or capture it.
	Logger *log.Logger
}

func (s *Session) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// structureCache returns (creating if necessary) the in-memory Structure
// entry for id, without touching the location.
func (s *Session) structureCache(id ids.MetaId) *Structure {
	st, ok := s.Structures[id]
	if !ok {
		st = newStructure()
		s.Structures[id] = st
	}
	return st
}

// currentStructure returns the Structure cache entry for the selected
// structure, or ErrWrongLocation if none is selected.
func (s *Session) currentStructure() (*Structure, error) {
	if s.Location.Structure == nil {
		return nil, ErrWrongLocation
	}
	return s.structureCache(s.Location.Structure.ID), nil
}

// Logout discards the in-memory password-derived key and every cached
// structure, returning the session to a locked state with the location
// reset to the root. MainMetadata and Root survive; unlocking again means
// calling Open, which returns a new Session.
func (s *Session) Logout() {
	s.Key = nil
	s.Structures = make(map[ids.MetaId]*Structure)
	s.Location = Location{}
}

// Pwd renders the current location as Location.Pwd does; the database root
// path is not included.
func (s *Session) Pwd() string {
	return s.Location.Pwd()
}
