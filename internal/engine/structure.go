package engine

import (
	"github.com/moelife-coder/msdb/internal/blocks"
	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"golang.org/x/xerrors"
)

// Structure is the in-memory cache entry for one selected-or-touched
// structure: its metadata (type, size, field name -> MetaId sub_data
// entries, the list entry), its object list, and a per-field block cache populated lazily
// by Load.
type Structure struct {
	Metadata *metadata.Metadata
	Objects  *blocks.Queue
	Fields   map[ids.MetaId]*blocks.Queue
}

// newStructure returns an empty cache entry, as installed by
// CreateStructure and by SelectStructure (which always discards any prior
// field cache rather than preserving it across reselection — see
// DESIGN.md).
func newStructure() *Structure {
	return &Structure{
		Metadata: metadata.New(),
		Objects:  blocks.New(),
		Fields:   make(map[ids.MetaId]*blocks.Queue),
	}
}

// defaultCellSize returns the structure's configured default cell size,
// used to decide the frame short-form and to decode field blocks.
func (s *Structure) defaultCellSize() uint32 {
	return attrUint32(s.Metadata, metadata.AttrSize)
}

// fieldID looks up a field's MetaId by its display name, stored as a
// sub_data entry (name -> hex(MetaId)).
func (s *Structure) fieldID(name string) (ids.MetaId, bool) {
	hexID, ok := s.Metadata.SubData[name]
	if !ok {
		return ids.MetaId{}, false
	}
	id, err := ids.ParseMetaId(hexID)
	if err != nil {
		return ids.MetaId{}, false
	}
	return id, true
}

// fieldName reverses fieldID: given a MetaId, find the sub_data key naming
// it.
func (s *Structure) fieldName(id ids.MetaId) (string, bool) {
	for _, k := range s.Metadata.SortedSubDataKeys() {
		if k == metadata.SubDataList {
			continue
		}
		if v, ok := s.fieldID(k); ok && v == id {
			return k, true
		}
	}
	return "", false
}

// listID returns the object list's own CellId, minted once by
// CreateStructure and stored as the sub_data.list entry, which names the
// on-disk file the object list is written to.
func (s *Structure) listID() (ids.CellId, error) {
	hexID, ok := s.Metadata.SubData[metadata.SubDataList]
	if !ok {
		return ids.CellId{}, xerrors.Errorf("structure metadata has no sub_data.list entry")
	}
	id, err := ids.ParseCellId(hexID)
	if err != nil {
		return ids.CellId{}, xerrors.Errorf("parsing sub_data.list: %w", err)
	}
	return id, nil
}
