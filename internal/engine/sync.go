package engine

import (
	"os"

	"github.com/moelife-coder/msdb/internal/blocks"
	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/moelife-coder/msdb/internal/metadata"
	"github.com/moelife-coder/msdb/internal/rawio"
	"github.com/moelife-coder/msdb/internal/seal"
	"golang.org/x/xerrors"
)

// Load reads a field's numbered block files (0.blk, 1.blk, …) from disk,
// decrypting and decoding each into a fresh block queue installed in the
// structure's field cache. If field is empty, every field named in the
// structure's metadata is loaded. Decoding always uses the structure's
// size attribute, uniformly across every field.
func (s *Session) Load(field string) error {
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	structID := s.Location.Structure.ID

	var names []string
	if field != "" {
		names = []string{field}
	} else {
		for _, name := range st.Metadata.SortedSubDataKeys() {
			if name == metadata.SubDataList {
				continue
			}
			names = append(names, name)
		}
	}

	for _, name := range names {
		fieldID, ok := st.fieldID(name)
		if !ok {
			return xerrors.Errorf("%w: %q", ErrFieldNotFound, name)
		}
		q := blocks.New()
		for n := 0; ; n++ {
			path := blockPath(s.Root, structID, fieldID, n)
			if !rawio.Exists(path) {
				break
			}
			ciphertext, nonce, err := rawio.ReadPair(path)
			if err != nil {
				return xerrors.Errorf("reading %s: %w", path, err)
			}
			plaintext, err := seal.Open(ciphertext, nonce, s.Key)
			if err != nil {
				return xerrors.Errorf("decrypting %s: %w", path, err)
			}
			q.ImportRaw(plaintext)
		}
		if err := q.Decode(st.defaultCellSize()); err != nil {
			return xerrors.Errorf("decoding field %q: %w", name, err)
		}
		st.Fields[fieldID] = q
	}
	return nil
}

// Clean empties every cached block queue (object lists and field caches)
// across every structure currently in memory, discarding any unsynced
// changes. This mirrors the original's all-or-nothing clean; there is no
// per-structure variant.
func (s *Session) Clean() {
	for _, st := range s.Structures {
		st.Objects.Clean()
		for _, q := range st.Fields {
			q.Clean()
		}
	}
}

// Sync persists every dirty in-memory cache to disk: the main metadata (if
// its dirty bit is set), then for each cached structure its metadata (if
// dirty), its object list, and every cached field's blocks.
func (s *Session) Sync() error {
	if s.MainMetadata.Modified() {
		if err := s.writeMainMetadata(); err != nil {
			return err
		}
	}

	for structID, st := range s.Structures {
		if err := s.syncObjectList(structID, st); err != nil {
			return err
		}
		for fieldID, q := range st.Fields {
			if err := s.syncField(structID, fieldID, q); err != nil {
				return err
			}
		}
		if st.Metadata.Modified() {
			if err := writeMetadata(structureMetadataPath(s.Root, structID), st.Metadata, s.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncObjectList encodes and persists a structure's object list to its
// single unnumbered list file. An object list that encodes to more than
// one block is an explicit unsupported case — the source this is ported
// from wrote every block to the same path in a loop, silently keeping only
// the last; here it is logged and only the first block is written, making
// the loss visible rather than silent.
func (s *Session) syncObjectList(structID ids.MetaId, st *Structure) error {
	if err := st.Objects.Encode(nil, st.defaultCellSize()); err != nil {
		return xerrors.Errorf("encoding object list: %w", err)
	}
	if len(st.Objects.Raw) == 0 {
		return nil
	}
	if len(st.Objects.Raw) > 1 {
		s.logger().Printf("structure %x: object list encoded to %d blocks, only the first will be written", structID, len(st.Objects.Raw))
	}
	listID, err := st.listID()
	if err != nil {
		return xerrors.Errorf("structure %x: %w", structID, err)
	}
	ciphertext, nonce, err := seal.Seal(st.Objects.Raw[0], s.Key)
	if err != nil {
		return err
	}
	return rawio.WritePair(objectListPath(s.Root, structID, listID), ciphertext, nonce)
}

// fieldSyncDefaultPayloadSize is the hardcoded default payload length sync
// uses to size a field's short frame form, independent of the structure's
// configured size attribute (which Load uses for decoding instead).
const fieldSyncDefaultPayloadSize = 512

// syncField encodes a field's cache to one or more bounded blocks and
// writes each as a numbered <n>.blk file.
func (s *Session) syncField(structID, fieldID ids.MetaId, q *blocks.Queue) error {
	maxBlockBytes := 65536
	if err := q.Encode(&maxBlockBytes, fieldSyncDefaultPayloadSize); err != nil {
		return xerrors.Errorf("encoding field %x: %w", fieldID, err)
	}
	if err := os.MkdirAll(fieldDir(s.Root, structID, fieldID), 0o700); err != nil {
		return xerrors.Errorf("creating field directory: %w", err)
	}
	for n, raw := range q.Raw {
		ciphertext, nonce, err := seal.Seal(raw, s.Key)
		if err != nil {
			return err
		}
		if err := rawio.WritePair(blockPath(s.Root, structID, fieldID, n), ciphertext, nonce); err != nil {
			return err
		}
	}
	return nil
}
