package engine

import (
	"os"
	"strconv"

	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"github.com/moelife-coder/msdb/internal/rawio"
	"github.com/moelife-coder/msdb/internal/seal"
	"golang.org/x/xerrors"
)

// defaultStructureCellSize is the default_cell_size a freshly created
// structure carries when none is given explicitly.
const defaultStructureCellSize = 32

// CreateStructure mints a structure named name, persisting its metadata
// immediately. Fails with ErrStructureExists if the name is already taken.
func (s *Session) CreateStructure(name string) (ids.MetaId, error) {
	if _, ok := s.MainMetadata.SubData[name]; ok {
		return ids.MetaId{}, ErrStructureExists
	}
	id := s.freshMetaID(s.MainMetadata.SubData)
	if err := os.MkdirAll(structureDir(s.Root, id), 0o700); err != nil {
		return ids.MetaId{}, xerrors.Errorf("creating structure directory: %w", err)
	}

	st := newStructure()
	st.Metadata.NewAttribute(metadata.AttrType, "struct")
	st.Metadata.NewAttribute(metadata.AttrSize, strconv.Itoa(defaultStructureCellSize))
	listID := ids.NewCellId()
	st.Metadata.NewSubData(metadata.SubDataList, listID.Hex())

	if err := writeMetadata(structureMetadataPath(s.Root, id), st.Metadata, s.Key); err != nil {
		return ids.MetaId{}, err
	}
	s.MainMetadata.NewSubData(name, id.Hex())
	s.Structures[id] = st
	return id, nil
}

// SelectStructure descends into the structure named name, loading its
// metadata and object list from disk and installing a fresh cache entry —
// any field cache previously held for this structure is discarded, matching
// the original source's reselection behavior.
func (s *Session) SelectStructure(name string) error {
	hexID, ok := s.MainMetadata.SubData[name]
	if !ok {
		return ErrStructureNotFound
	}
	id, err := ids.ParseMetaId(hexID)
	if err != nil {
		return xerrors.Errorf("main metadata sub_data[%q]: %w", name, err)
	}

	meta, err := readMetadata(structureMetadataPath(s.Root, id), s.Key)
	if err != nil {
		return xerrors.Errorf("reading structure %q metadata: %w", name, err)
	}
	st := newStructure()
	st.Metadata = meta

	listID, err := st.listID()
	if err != nil {
		return xerrors.Errorf("structure %q: %w", name, err)
	}
	listPath := objectListPath(s.Root, id, listID)
	if _, statErr := os.Stat(listPath); statErr == nil {
		ciphertext, nonce, err := rawio.ReadPair(listPath)
		if err != nil {
			return xerrors.Errorf("reading structure %q object list: %w", name, err)
		}
		plaintext, err := seal.Open(ciphertext, nonce, s.Key)
		if err != nil {
			return xerrors.Errorf("decrypting structure %q object list: %w", name, err)
		}
		st.Objects.ImportRaw(plaintext)
		if err := st.Objects.Decode(st.defaultCellSize()); err != nil {
			return xerrors.Errorf("decoding structure %q object list: %w", name, err)
		}
	} else if !os.IsNotExist(statErr) {
		return xerrors.Errorf("checking structure %q object list: %w", name, statErr)
	}

	s.Structures[id] = st
	s.Location.SelectStructure(id, name)
	return nil
}

// DeleteStructure removes the on-disk directory and the main metadata's
// name entry. The removal is recursive (a structure directory always
// contains at least its own metadata file, so a bare non-recursive remove
// could never succeed); the in-memory structure cache for sibling entries
// is left untouched.
func (s *Session) DeleteStructure(name string) error {
	hexID, ok := s.MainMetadata.SubData[name]
	if !ok {
		return ErrStructureNotFound
	}
	id, err := ids.ParseMetaId(hexID)
	if err != nil {
		return xerrors.Errorf("main metadata sub_data[%q]: %w", name, err)
	}
	if err := os.RemoveAll(structureDir(s.Root, id)); err != nil {
		return xerrors.Errorf("removing structure directory: %w", err)
	}
	s.MainMetadata.DeleteSubData(name)
	delete(s.Structures, id)
	if s.Location.Structure != nil && s.Location.Structure.ID == id {
		s.Location.DeselectStructure()
	}
	return nil
}

// UnloadStructure evicts name's in-memory cache entry without persisting
// it; unsynced changes are lost.
func (s *Session) UnloadStructure(name string) error {
	hexID, ok := s.MainMetadata.SubData[name]
	if !ok {
		return ErrStructureNotFound
	}
	id, err := ids.ParseMetaId(hexID)
	if err != nil {
		return xerrors.Errorf("main metadata sub_data[%q]: %w", name, err)
	}
	delete(s.Structures, id)
	return nil
}

// SetProp sets an attribute at the root (main metadata) or, if a structure
// is selected, on that structure's metadata.
func (s *Session) SetProp(key, value string) error {
	if s.Location.Structure == nil {
		s.MainMetadata.SetAttribute(key, value)
		return nil
	}
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	st.Metadata.SetAttribute(key, value)
	return nil
}

// GetProp lists the attributes of whichever metadata SetProp would target.
func (s *Session) GetProp() (map[string]string, error) {
	if s.Location.Structure == nil {
		return s.MainMetadata.Attribute, nil
	}
	st, err := s.currentStructure()
	if err != nil {
		return nil, err
	}
	return st.Metadata.Attribute, nil
}

// freshMetaID draws MetaIds until one is absent from taken's hex-encoded
// values, the collision-retry loop spec.md requires of every mint site.
func (s *Session) freshMetaID(taken map[string]string) ids.MetaId {
	for {
		id := ids.NewMetaId()
		collision := false
		for _, v := range taken {
			if v == id.Hex() {
				collision = true
				break
			}
		}
		if !collision {
			return id
		}
	}
}
