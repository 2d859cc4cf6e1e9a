package blocks

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moelife-coder/msdb/internal/ids"
)

func mkCellID(b byte) ids.CellId {
	var c ids.CellId
	for i := range c {
		c[i] = b
	}
	return c
}

func mkMetaID(b byte) ids.MetaId {
	var m ids.MetaId
	for i := range m {
		m[i] = b
	}
	return m
}

func roundTrip(t *testing.T, cells []Cell, defaultCellSize uint32) []Cell {
	t.Helper()
	q := New()
	q.Cells = cells
	if err := q.Encode(nil, defaultCellSize); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded := New()
	for _, raw := range q.Raw {
		decoded.ImportRaw(raw)
	}
	if err := decoded.Decode(defaultCellSize); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded.Cells
}

func TestRoundTripWholeCells(t *testing.T) {
	owner := mkCellID(0x01)
	target := mkCellID(0x02)
	field := mkMetaID(0x03)
	structure := mkMetaID(0x04)

	cells := []Cell{
		LiteralCell{Text: "hello", Owner: owner},
		BlobCell{Data: []byte{0xde, 0xad, 0xbe, 0xef}, Owner: owner},
		LinkCell{Direction: Forward, Target: SameBlockTarget{Target: target}, Owner: owner},
		LinkCell{Direction: Reverse, Target: AnotherFieldTarget{Field: field, Target: target}, Owner: owner},
		LinkCell{Direction: Forward, Target: AnotherStructTarget{Structure: structure, Field: field, Target: target}, Owner: owner},
	}

	got := roundTrip(t, cells, 0)
	if diff := cmp.Diff(cells, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSizeFlagOmitsLengthWhenPayloadMatchesDefault(t *testing.T) {
	owner := mkCellID(0x05)
	defaultSize := uint32(len("fixed"))

	q := New()
	q.Cells = []Cell{LiteralCell{Text: "fixed", Owner: owner}}
	if err := q.Encode(nil, defaultSize); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(q.Raw) != 1 {
		t.Fatalf("expected 1 block, got %d", len(q.Raw))
	}
	raw := q.Raw[0]
	// tag byte + 8-byte identifier + 5-byte payload = 14 bytes; the long
	// form would add a 4-byte length field.
	wantLen := 1 + ids.Length + len("fixed")
	if len(raw) != wantLen {
		t.Fatalf("short form frame length = %d, want %d (long form would be %d)", len(raw), wantLen, wantLen+4)
	}
	if raw[0]&1 != 1 {
		t.Fatalf("tag byte %#x does not have the size flag set", raw[0])
	}

	decoded := New()
	decoded.ImportRaw(raw)
	if err := decoded.Decode(defaultSize); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Cells) != 1 {
		t.Fatalf("expected 1 decoded cell, got %d", len(decoded.Cells))
	}
	lit, ok := decoded.Cells[0].(LiteralCell)
	if !ok || lit.Text != "fixed" {
		t.Fatalf("decoded cell = %#v, want Literal(\"fixed\")", decoded.Cells[0])
	}
}

func TestSizeFlagNotSetWhenPayloadDiffersFromDefault(t *testing.T) {
	owner := mkCellID(0x06)
	q := New()
	q.Cells = []Cell{LiteralCell{Text: "variable length", Owner: owner}}
	if err := q.Encode(nil, 99); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw := q.Raw[0]
	if raw[0]&1 != 0 {
		t.Fatalf("tag byte %#x has size flag set, want unset for a non-matching length", raw[0])
	}
	wantLen := 1 + 4 + ids.Length + len("variable length")
	if len(raw) != wantLen {
		t.Fatalf("long form frame length = %d, want %d", len(raw), wantLen)
	}
}

// TestFragmentReassembly exercises the worked example: three frames with
// opcodes 17, 21, 21 sharing one identifier, payloads "AB", "CD", "EF", the
// last marked final. Decoding must yield a single Literal("ABCDEF").
func TestFragmentReassembly(t *testing.T) {
	identifier := mkCellID(0x07)

	frame := func(data []byte, seq uint8, isFinal bool) []byte {
		f, err := encodeFrame(LiteralFragmentCell{
			Data:   data,
			Header: FragmentHeader{Identifier: identifier, Seq: seq, IsFinal: isFinal},
		}, 0)
		if err != nil {
			t.Fatalf("encodeFrame: %v", err)
		}
		return f
	}
	var block []byte
	block = append(block, frame([]byte("AB"), 0, false)...)
	block = append(block, frame([]byte("CD"), 1, false)...)
	block = append(block, frame([]byte("EF"), 2, true)...)

	q := New()
	q.ImportRaw(block)
	if err := q.Decode(0); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var literals []LiteralCell
	for _, c := range q.Cells {
		if lit, ok := c.(LiteralCell); ok {
			literals = append(literals, lit)
		}
	}
	if len(literals) != 1 {
		t.Fatalf("expected exactly one reassembled Literal cell, got %d (cells: %#v)", len(literals), q.Cells)
	}
	if literals[0].Text != "ABCDEF" {
		t.Fatalf("reassembled text = %q, want %q", literals[0].Text, "ABCDEF")
	}
	if literals[0].Owner != identifier {
		t.Fatalf("reassembled owner = %x, want %x", literals[0].Owner, identifier)
	}

	// The source fragments (the initial piece and the first, non-final
	// continuation) remain in the queue; only the final piece is consumed
	// into the reassembled Literal rather than also being kept as a
	// standalone fragment cell.
	var fragCount int
	for _, c := range q.Cells {
		switch c.(type) {
		case LiteralFragmentCell:
			fragCount++
		}
	}
	if fragCount != 2 {
		t.Fatalf("expected 2 source fragments to remain queued, got %d fragment cells", fragCount)
	}
}

func TestDeleteCellByIdentifier(t *testing.T) {
	owner1 := mkCellID(0x08)
	owner2 := mkCellID(0x09)
	q := New()
	q.Cells = []Cell{
		LiteralCell{Text: "keep", Owner: owner1},
		LiteralCell{Text: "drop", Owner: owner2},
	}
	q.DeleteCell(owner2)
	if len(q.Cells) != 1 {
		t.Fatalf("expected 1 remaining cell, got %d", len(q.Cells))
	}
	if lit := q.Cells[0].(LiteralCell); lit.Text != "keep" {
		t.Fatalf("wrong cell survived deletion: %+v", lit)
	}
}

func TestDeleteLiteralCellByContent(t *testing.T) {
	owner := mkCellID(0x0a)
	q := New()
	q.Cells = []Cell{
		LiteralCell{Text: "alpha", Owner: owner},
		LiteralCell{Text: "beta", Owner: owner},
		BlobCell{Data: []byte("alpha"), Owner: owner},
	}
	q.DeleteLiteralCellByContent("alpha")
	if len(q.Cells) != 2 {
		t.Fatalf("expected 2 remaining cells, got %d: %#v", len(q.Cells), q.Cells)
	}
}

func TestEncodeRespectsMaxBlockBytes(t *testing.T) {
	owner := mkCellID(0x0b)
	q := New()
	for i := 0; i < 5; i++ {
		q.Cells = append(q.Cells, LiteralCell{Text: "xxxxxxxxxx", Owner: owner})
	}
	max := 20
	if err := q.Encode(&max, 0); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(q.Raw) < 2 {
		t.Fatalf("expected multiple blocks when capped at %d bytes, got %d", max, len(q.Raw))
	}
	for _, b := range q.Raw {
		if len(b) > max && len(b) != 1+4+ids.Length+10 {
			t.Fatalf("block of length %d exceeds max %d and isn't a lone oversized frame", len(b), max)
		}
	}
}

func TestDecodeRejectsOpcodeZero(t *testing.T) {
	q := New()
	q.ImportRaw([]byte{0x00})
	if err := q.Decode(0); err == nil {
		t.Fatal("expected an error decoding opcode 0")
	}
}

func TestCleanDiscardsCells(t *testing.T) {
	q := New()
	q.Cells = []Cell{LiteralCell{Text: "x", Owner: mkCellID(0x0c)}}
	q.Clean()
	if len(q.Cells) != 0 {
		t.Fatal("Clean did not empty the cell list")
	}
}
