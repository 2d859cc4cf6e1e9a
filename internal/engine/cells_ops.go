package engine

import (
	"os"
	"strconv"
	"strings"

	"github.com/moelife-coder/msdb/internal/blocks"
	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"golang.org/x/xerrors"
)

// CellType names the four kinds of cell content create_cell/alter_cell
// understand on the command line.
type CellType string

const (
	CellLiteral CellType = "literal"
	CellBlob    CellType = "blob"
	CellLink    CellType = "link"
	CellRevLink CellType = "revlink"
)

// CreateField mints a field named name in the selected structure, persists
// its metadata file, and installs an empty cache entry so cells can be
// written to it immediately.
func (s *Session) CreateField(name string, defaultCellSize uint32) (ids.MetaId, error) {
	if name == metadata.SubDataList {
		return ids.MetaId{}, ErrReservedFieldName
	}
	st, err := s.currentStructure()
	if err != nil {
		return ids.MetaId{}, err
	}
	if _, ok := st.fieldID(name); ok {
		return ids.MetaId{}, xerrors.Errorf("field %q already exists", name)
	}
	id := s.freshMetaID(st.Metadata.SubData)

	fieldMeta := metadata.New()
	fieldMeta.NewAttribute(metadata.AttrSize, strconv.Itoa(int(defaultCellSize)))
	if err := os.MkdirAll(fieldDir(s.Root, s.Location.Structure.ID, id), 0o700); err != nil {
		return ids.MetaId{}, xerrors.Errorf("creating field directory: %w", err)
	}
	if err := writeMetadata(fieldMetadataPath(s.Root, s.Location.Structure.ID, id), fieldMeta, s.Key); err != nil {
		return ids.MetaId{}, err
	}

	st.Metadata.NewSubData(name, id.Hex())
	st.Fields[id] = blocks.New()
	return id, nil
}

// CreateCell writes a cell of type typ with content into field, owned by
// the selected object. If field doesn't exist yet it is auto-created with
// a default cell size equal to the length of the newly-encoded payload.
// That size is stored in the field's metadata only; Sync encodes field
// blocks with fieldSyncDefaultPayloadSize and Load decodes them with the
// structure's size attribute.
func (s *Session) CreateCell(field string, typ CellType, content string) error {
	if field == metadata.SubDataList {
		return ErrReservedFieldName
	}
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	if s.Location.Object == nil {
		return ErrWrongLocation
	}

	cell, payloadLen, err := s.buildCell(typ, content, s.Location.Object.ID)
	if err != nil {
		return err
	}

	fieldID, ok := st.fieldID(field)
	if !ok {
		fieldID, err = s.CreateField(field, uint32(payloadLen))
		if err != nil {
			return err
		}
	}
	queue, ok := st.Fields[fieldID]
	if !ok {
		return ErrFieldNotCached
	}
	queue.ImportCell(cell)
	return nil
}

// AlterCell replaces every cell owned by the selected object in field with
// a single new cell of type typ/content: delete, then create.
func (s *Session) AlterCell(field string, typ CellType, content string) error {
	if err := s.DeleteCell(field); err != nil && err != ErrFieldNotFound {
		return err
	}
	return s.CreateCell(field, typ, content)
}

// DeleteCell removes every cell owned by the selected object from field's
// cache. Returns ErrFieldNotFound if the field doesn't exist, ErrFieldNotCached
// if it exists but hasn't been loaded.
func (s *Session) DeleteCell(field string) error {
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	if s.Location.Object == nil {
		return ErrWrongLocation
	}
	fieldID, ok := st.fieldID(field)
	if !ok {
		return ErrFieldNotFound
	}
	queue, ok := st.Fields[fieldID]
	if !ok {
		return ErrFieldNotCached
	}
	queue.DeleteCell(s.Location.Object.ID)
	return nil
}

// buildCell constructs the in-memory Cell for typ/content and reports the
// byte length of its eventual encoded payload (used as the size attribute
// of a freshly-auto-created field).
func (s *Session) buildCell(typ CellType, content string, owner ids.CellId) (blocks.Cell, int, error) {
	switch typ {
	case CellLiteral:
		return blocks.LiteralCell{Text: content, Owner: owner}, len(content), nil
	case CellBlob:
		data, err := os.ReadFile(content)
		if err != nil {
			return nil, 0, xerrors.Errorf("reading blob content %s: %w", content, err)
		}
		return blocks.BlobCell{Data: data, Owner: owner}, len(data), nil
	case CellLink, CellRevLink:
		target, payloadLen, err := parseLinkTarget(content)
		if err != nil {
			return nil, 0, err
		}
		direction := blocks.Forward
		if typ == CellRevLink {
			direction = blocks.Reverse
		}
		return blocks.LinkCell{Direction: direction, Target: target, Owner: owner}, payloadLen, nil
	default:
		return nil, 0, xerrors.Errorf("%w: %q", ErrUnknownCellType, typ)
	}
}

// parseLinkTarget decodes the "/"-separated hex-identifier content of a
// link/revlink cell: one part is a SameBlock target, two an AnotherField
// target (field/target), three an AnotherStruct target
// (structure/field/target). Any other part count is fatal.
func parseLinkTarget(content string) (blocks.LinkTarget, int, error) {
	parts := strings.Split(content, "/")
	switch len(parts) {
	case 1:
		target, err := ids.ParseCellId(parts[0])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		return blocks.SameBlockTarget{Target: target}, ids.Length, nil
	case 2:
		field, err := ids.ParseMetaId(parts[0])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		target, err := ids.ParseCellId(parts[1])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		return blocks.AnotherFieldTarget{Field: field, Target: target}, 2 * ids.Length, nil
	case 3:
		structure, err := ids.ParseMetaId(parts[0])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		field, err := ids.ParseMetaId(parts[1])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		target, err := ids.ParseCellId(parts[2])
		if err != nil {
			return nil, 0, xerrors.Errorf("%w: %v", ErrMalformedLinkTarget, err)
		}
		return blocks.AnotherStructTarget{Structure: structure, Field: field, Target: target}, 3 * ids.Length, nil
	default:
		return nil, 0, xerrors.Errorf("%w: %q has %d parts, want 1-3", ErrMalformedLinkTarget, content, len(parts))
	}
}
