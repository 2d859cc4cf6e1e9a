// Package blocks implements the cell/block codec: translating a stream of
// typed Cells to and from the raw block bytes persisted to disk, including
// size-alignment optimization and fragment reassembly.
package blocks

import (
	"encoding/binary"
	"io"

	"github.com/moelife-coder/msdb/internal/ids"
	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"
)

// Direction distinguishes forward and reverse links.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

// Cell is the tagged union of everything that can live in a block: literal
// text, binary blobs, typed links, and the two fragment kinds used to
// represent values that don't fit in a single frame.
type Cell interface {
	// Identifier returns the owning object's CellId for whole cells, or the
	// shared fragment identifier for fragment cells — the value delete_cell
	// matches against.
	Identifier() ids.CellId
}

// LiteralCell is a UTF-8 text value owned by one object.
type LiteralCell struct {
	Text  string
	Owner ids.CellId
}

func (c LiteralCell) Identifier() ids.CellId { return c.Owner }

// BlobCell is a binary value owned by one object.
type BlobCell struct {
	Data  []byte
	Owner ids.CellId
}

func (c BlobCell) Identifier() ids.CellId { return c.Owner }

// LinkTarget is the tagged union of where a Link cell points.
type LinkTarget interface{ isLinkTarget() }

// SameBlockTarget points at another cell owned within the same field.
type SameBlockTarget struct{ Target ids.CellId }

func (SameBlockTarget) isLinkTarget() {}

// AnotherFieldTarget points at a cell in a different field of the same
// structure.
type AnotherFieldTarget struct {
	Field  ids.MetaId
	Target ids.CellId
}

func (AnotherFieldTarget) isLinkTarget() {}

// AnotherStructTarget points at a cell in a different structure entirely.
type AnotherStructTarget struct {
	Structure ids.MetaId
	Field     ids.MetaId
	Target    ids.CellId
}

func (AnotherStructTarget) isLinkTarget() {}

// LinkCell is a typed reference, forward or reverse, to another cell.
type LinkCell struct {
	Direction Direction
	Target    LinkTarget
	Owner     ids.CellId
}

func (c LinkCell) Identifier() ids.CellId { return c.Owner }

// FragmentHeader is shared by the two fragment cell kinds: the logical
// cell's identifier, this piece's zero-based sequence number, and whether
// it's the last piece.
type FragmentHeader struct {
	Identifier ids.CellId
	Seq        uint8
	IsFinal    bool
}

// LiteralFragmentCell is one piece of a text value too large for one frame.
type LiteralFragmentCell struct {
	Data   []byte
	Header FragmentHeader
}

func (c LiteralFragmentCell) Identifier() ids.CellId { return c.Header.Identifier }

// BlobFragmentCell is one piece of a binary value too large for one frame.
type BlobFragmentCell struct {
	Data   []byte
	Header FragmentHeader
}

func (c BlobFragmentCell) Identifier() ids.CellId { return c.Header.Identifier }

// Opcodes, before the tag byte's shift-and-size-flag packing.
const (
	opLiteral           = 1
	opBlob              = 3
	opLinkFwdSameBlock  = 5
	opLinkFwdAnotherFld = 7
	opLinkFwdAnotherStr = 9
	opLinkRevSameBlock  = opLinkFwdSameBlock + 6
	opLinkRevAnotherFld = opLinkFwdAnotherFld + 6
	opLinkRevAnotherStr = opLinkFwdAnotherStr + 6
	opLiteralFragInit   = 17
	opBlobFragInit      = 19
	opFragmentContinue  = 21
)

// Queue holds a sequence of raw block buffers plus the cumulative decoded
// Cells produced from them, one per field (and one for each structure's
// object list).
type Queue struct {
	Raw   [][]byte
	Cells []Cell
}

// New returns an empty Queue.
func New() *Queue { return &Queue{} }

// ImportRaw appends a raw block buffer, e.g. one just read from disk, to be
// parsed by a later call to Decode.
func (q *Queue) ImportRaw(raw []byte) { q.Raw = append(q.Raw, raw) }

// ImportCell appends a Cell directly to the in-memory list, e.g. one just
// created by the engine.
func (q *Queue) ImportCell(cell Cell) { q.Cells = append(q.Cells, cell) }

// FromRaw builds a Queue from a single raw block buffer, decoding it
// immediately.
func FromRaw(raw []byte, defaultCellSize uint32) (*Queue, error) {
	q := New()
	q.ImportRaw(raw)
	if err := q.Decode(defaultCellSize); err != nil {
		return nil, err
	}
	return q, nil
}

// Decode parses every raw block buffer in q.Raw in order, appending the
// resulting Cells to q.Cells, which also holds any cells already present
// (fragment reassembly looks at all of them). Each call decodes all of
// q.Raw again, so calling it a second time without clearing q.Cells appends
// the earlier blocks' cells a second time.
func (q *Queue) Decode(defaultCellSize uint32) error {
	for _, block := range q.Raw {
		if err := q.decodeBlock(block, defaultCellSize); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) decodeBlock(block []byte, defaultCellSize uint32) error {
	offset := 0
	for offset < len(block) {
		if offset+1 > len(block) {
			return xerrors.New("short frame: missing tag byte")
		}
		tag := block[offset]
		offset++
		opcode := tag >> 1
		sizeFlag := tag & 1
		if opcode == 0 {
			return xerrors.New("found illegal opcode 0 while decoding block")
		}

		var length uint32
		if sizeFlag == 1 {
			length = defaultCellSize
		} else {
			if offset+4 > len(block) {
				return xerrors.New("short frame: missing length field")
			}
			length = binary.BigEndian.Uint32(block[offset : offset+4])
			offset += 4
		}

		if offset+ids.Length > len(block) {
			return xerrors.New("short frame: missing cell identifier")
		}
		var identifier [ids.Length]byte
		copy(identifier[:], block[offset:offset+ids.Length])
		offset += ids.Length

		end := offset + int(length)
		if end > len(block) || end < offset {
			return xerrors.New("short frame: payload runs past end of block")
		}
		payload := block[offset:end]
		offset = end

		if err := q.appendFrame(opcode, identifier, payload); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) appendFrame(opcode byte, identifier [ids.Length]byte, payload []byte) error {
	switch opcode {
	case opLiteral:
		q.Cells = append(q.Cells, LiteralCell{Text: string(payload), Owner: identifier})
	case opBlob:
		data := append([]byte(nil), payload...)
		q.Cells = append(q.Cells, BlobCell{Data: data, Owner: identifier})
	case opLinkFwdSameBlock, opLinkRevSameBlock:
		if len(payload) < ids.Length {
			return xerrors.New("short link payload: same-block target")
		}
		var target [ids.Length]byte
		copy(target[:], payload[:ids.Length])
		q.Cells = append(q.Cells, LinkCell{
			Direction: directionOf(opcode),
			Target:    SameBlockTarget{Target: target},
			Owner:     identifier,
		})
	case opLinkFwdAnotherFld, opLinkRevAnotherFld:
		if len(payload) < 2*ids.Length {
			return xerrors.New("short link payload: another-field target")
		}
		var field, target [ids.Length]byte
		copy(field[:], payload[0:ids.Length])
		copy(target[:], payload[ids.Length:2*ids.Length])
		q.Cells = append(q.Cells, LinkCell{
			Direction: directionOf(opcode),
			Target:    AnotherFieldTarget{Field: field, Target: target},
			Owner:     identifier,
		})
	case opLinkFwdAnotherStr, opLinkRevAnotherStr:
		if len(payload) < 3*ids.Length {
			return xerrors.New("short link payload: another-struct target")
		}
		var structure, field, target [ids.Length]byte
		copy(structure[:], payload[0:ids.Length])
		copy(field[:], payload[ids.Length:2*ids.Length])
		copy(target[:], payload[2*ids.Length:3*ids.Length])
		q.Cells = append(q.Cells, LinkCell{
			Direction: directionOf(opcode),
			Target:    AnotherStructTarget{Structure: structure, Field: field, Target: target},
			Owner:     identifier,
		})
	case opLiteralFragInit:
		data, err := stripFragmentHeader(payload)
		if err != nil {
			return err
		}
		// An initial fragment is always decoded as seq=0, is_final=false
		// regardless of the header bytes actually on the wire.
		q.Cells = append(q.Cells, LiteralFragmentCell{
			Data:   data,
			Header: FragmentHeader{Identifier: identifier, Seq: 0, IsFinal: false},
		})
	case opBlobFragInit:
		data, err := stripFragmentHeader(payload)
		if err != nil {
			return err
		}
		q.Cells = append(q.Cells, BlobFragmentCell{
			Data:   data,
			Header: FragmentHeader{Identifier: identifier, Seq: 0, IsFinal: false},
		})
	case opFragmentContinue:
		return q.appendContinuation(identifier, payload)
	default:
		return xerrors.Errorf("unrecognized opcode %d while decoding block", opcode)
	}
	return nil
}

func directionOf(opcode byte) Direction {
	switch opcode {
	case opLinkRevSameBlock, opLinkRevAnotherFld, opLinkRevAnotherStr:
		return Reverse
	default:
		return Forward
	}
}

// fragmentHeaderLen is the width, in bytes, of the seq/is_final header
// prefixed to every fragment frame's payload (opcodes 17, 19, and 21).
const fragmentHeaderLen = 2

// stripFragmentHeader validates and strips the 2-byte seq/is_final header
// from a fragment frame's payload, returning the remaining data.
func stripFragmentHeader(payload []byte) ([]byte, error) {
	if len(payload) < fragmentHeaderLen {
		return nil, xerrors.New("short fragment payload: missing seq/is_final header")
	}
	if payload[1] != 0 && payload[1] != 1 {
		return nil, xerrors.Errorf("invalid is_final byte %d in fragment frame", payload[1])
	}
	return append([]byte(nil), payload[fragmentHeaderLen:]...), nil
}

// appendContinuation implements fragment reassembly for an opcode-21 frame.
// Reassembled fragments are deliberately NOT removed from q.Cells; see
// DESIGN.md's "Fragment reassembly leaves the source fragments" note.
func (q *Queue) appendContinuation(identifier [ids.Length]byte, payload []byte) error {
	data, err := stripFragmentHeader(payload)
	if err != nil {
		return err
	}
	seq := payload[0]
	isFinal := payload[1] == 1

	type piece struct {
		seq     uint8
		isFinal bool
		data    []byte
		isBlob  bool
	}
	var pieces []piece
	sawBlob := false
	for _, c := range q.Cells {
		switch f := c.(type) {
		case LiteralFragmentCell:
			if f.Header.Identifier == identifier {
				pieces = append(pieces, piece{f.Header.Seq, f.Header.IsFinal, f.Data, false})
			}
		case BlobFragmentCell:
			if f.Header.Identifier == identifier {
				pieces = append(pieces, piece{f.Header.Seq, f.Header.IsFinal, f.Data, true})
				sawBlob = true
			}
		}
	}
	pieces = append(pieces, piece{seq, isFinal, data, false})

	isFinalSeen := isFinal
	maxSeq := seq
	seen := map[uint8]bool{seq: true}
	for _, p := range pieces[:len(pieces)-1] {
		if p.isFinal {
			isFinalSeen = true
		}
		if p.seq > maxSeq {
			maxSeq = p.seq
		}
		seen[p.seq] = true
	}

	complete := false
	if isFinalSeen && len(seen) == int(maxSeq)+1 {
		complete = true
		for s := uint8(0); s <= maxSeq; s++ {
			if !seen[s] {
				complete = false
				break
			}
		}
	}

	if !complete {
		if sawBlob {
			q.Cells = append(q.Cells, BlobFragmentCell{Data: data, Header: FragmentHeader{identifier, seq, isFinal}})
		} else {
			q.Cells = append(q.Cells, LiteralFragmentCell{Data: data, Header: FragmentHeader{identifier, seq, isFinal}})
		}
		return nil
	}

	bySeq := make(map[uint8][]byte, len(pieces))
	isBlobWhole := sawBlob
	for _, p := range pieces {
		bySeq[p.seq] = p.data
		if p.isBlob {
			isBlobWhole = true
		}
	}
	var combined []byte
	for s := uint8(0); s <= maxSeq; s++ {
		combined = append(combined, bySeq[s]...)
	}
	if isBlobWhole {
		q.Cells = append(q.Cells, BlobCell{Data: combined, Owner: identifier})
	} else {
		q.Cells = append(q.Cells, LiteralCell{Text: string(combined), Owner: identifier})
	}
	return nil
}

// Encode packs q.Cells into raw block buffers, replacing q.Raw.
// maxBlockBytes of nil means unbounded (a single output block);
// defaultCellSize enables the short frame form for any cell whose payload
// length matches it exactly.
func (q *Queue) Encode(maxBlockBytes *int, defaultCellSize uint32) error {
	q.Raw = nil
	var current []byte
	flush := func() {
		if len(current) > 0 {
			q.Raw = append(q.Raw, current)
			current = nil
		}
	}
	for _, cell := range q.Cells {
		frame, err := encodeFrame(cell, defaultCellSize)
		if err != nil {
			return err
		}
		if maxBlockBytes != nil && len(current)+len(frame) > *maxBlockBytes && len(current) > 0 {
			flush()
		}
		current = append(current, frame...)
	}
	flush()
	return nil
}

// encodeFrame builds the on-disk bytes for one cell: tag byte, optional
// 4-byte length, 8-byte identifier, payload. The payload length is summed
// up front (it decides the short form); the frame is then assembled through
// a writerseeker.WriterSeeker, writing a zeroed length slot, the identifier
// and each payload part (link targets span several identifiers), and the
// length is patched into that slot afterwards via Seek.
func encodeFrame(cell Cell, defaultCellSize uint32) ([]byte, error) {
	opcode, identifier, payloadParts, err := partsForCell(cell)
	if err != nil {
		return nil, err
	}
	var payloadLen int
	for _, p := range payloadParts {
		payloadLen += len(p)
	}
	shortForm := uint32(payloadLen) == defaultCellSize

	var ws writerseeker.WriterSeeker
	var tag byte = opcode << 1
	if shortForm {
		tag |= 1
	}
	ws.Write([]byte{tag})

	var lengthFieldOffset int64 = -1
	if !shortForm {
		lengthFieldOffset = 1
		ws.Write(make([]byte, 4))
	}
	ws.Write(identifier[:])
	for _, p := range payloadParts {
		ws.Write(p)
	}
	if !shortForm {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(payloadLen))
		if _, err := ws.Seek(lengthFieldOffset, io.SeekStart); err != nil {
			return nil, xerrors.Errorf("patching frame length: %w", err)
		}
		ws.Write(lenBuf[:])
	}
	return ws.Bytes(), nil
}

func partsForCell(cell Cell) (opcode byte, identifier [ids.Length]byte, parts [][]byte, err error) {
	switch c := cell.(type) {
	case LiteralCell:
		return opLiteral, c.Owner, [][]byte{[]byte(c.Text)}, nil
	case BlobCell:
		return opBlob, c.Owner, [][]byte{c.Data}, nil
	case LinkCell:
		base, payload := linkPayload(c.Target)
		if c.Direction == Reverse {
			base += 6
		}
		return base, c.Owner, payload, nil
	case LiteralFragmentCell:
		if c.Header.Seq == 0 {
			return opLiteralFragInit, c.Header.Identifier, [][]byte{{0, boolByte(c.Header.IsFinal)}, c.Data}, nil
		}
		return opFragmentContinue, c.Header.Identifier, [][]byte{{c.Header.Seq, boolByte(c.Header.IsFinal)}, c.Data}, nil
	case BlobFragmentCell:
		if c.Header.Seq == 0 {
			return opBlobFragInit, c.Header.Identifier, [][]byte{{0, boolByte(c.Header.IsFinal)}, c.Data}, nil
		}
		return opFragmentContinue, c.Header.Identifier, [][]byte{{c.Header.Seq, boolByte(c.Header.IsFinal)}, c.Data}, nil
	default:
		return 0, [ids.Length]byte{}, nil, xerrors.Errorf("unknown cell type %T", cell)
	}
}

func linkPayload(target LinkTarget) (opcode byte, parts [][]byte) {
	switch t := target.(type) {
	case SameBlockTarget:
		return opLinkFwdSameBlock, [][]byte{t.Target[:]}
	case AnotherFieldTarget:
		return opLinkFwdAnotherFld, [][]byte{t.Field[:], t.Target[:]}
	case AnotherStructTarget:
		return opLinkFwdAnotherStr, [][]byte{t.Structure[:], t.Field[:], t.Target[:]}
	default:
		panic(xerrors.Errorf("unknown link target type %T", target))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DeleteCell removes every cell whose Identifier() equals identifier —
// owner for whole cells, fragment identifier for fragments.
func (q *Queue) DeleteCell(identifier ids.CellId) {
	kept := q.Cells[:0]
	for _, c := range q.Cells {
		if c.Identifier() != identifier {
			kept = append(kept, c)
		}
	}
	q.Cells = kept
}

// DeleteLiteralCellByContent removes every literal cell whose text equals
// content (used for object removal via the object list).
func (q *Queue) DeleteLiteralCellByContent(content string) {
	kept := q.Cells[:0]
	for _, c := range q.Cells {
		if lit, ok := c.(LiteralCell); ok && lit.Text == content {
			continue
		}
		kept = append(kept, c)
	}
	q.Cells = kept
}

// Clean empties the decoded cell list, discarding any unsynced changes.
func (q *Queue) Clean() { q.Cells = nil }
