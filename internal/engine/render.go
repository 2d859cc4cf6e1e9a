package engine

import (
	"fmt"
	"strings"

	"github.com/moelife-coder/msdb/internal/blocks"
	"github.com/moelife-coder/msdb/internal/metadata"
)

// Ls renders the current location's contents as a human-readable string:
// the main metadata at the root, a structure's metadata and cached fields
// inside a structure, the cells owned by the selected object — one line per
// field — inside an object, and just that one field's cells with a field
// selected.
func (s *Session) Ls() (string, error) {
	switch {
	case s.Location.Structure == nil:
		return s.renderMainMetadata(), nil
	case s.Location.Object == nil:
		return s.renderStructure()
	case s.Location.Field == nil:
		return s.renderObject()
	default:
		return s.renderField()
	}
}

func (s *Session) renderField() (string, error) {
	st, err := s.currentStructure()
	if err != nil {
		return "", err
	}
	q, cached := st.Fields[s.Location.Field.ID]
	if !cached {
		return "", ErrFieldNotCached
	}
	owner := s.Location.Object.ID
	var b strings.Builder
	for _, c := range q.Cells {
		if c.Identifier() != owner {
			continue
		}
		fmt.Fprintf(&b, "%s : %s\n", s.Location.Field.Name, displayCell(c))
	}
	return b.String(), nil
}

func (s *Session) renderMainMetadata() string {
	var b strings.Builder
	b.WriteString("metadata:\n")
	for _, k := range s.MainMetadata.SortedAttributeKeys() {
		fmt.Fprintf(&b, "  %s=%s\n", k, s.MainMetadata.Attribute[k])
	}
	b.WriteString("structures:\n")
	for _, k := range s.MainMetadata.SortedSubDataKeys() {
		fmt.Fprintf(&b, "  %s\n", k)
	}
	return b.String()
}

func (s *Session) renderStructure() (string, error) {
	st, err := s.currentStructure()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("metadata:\n")
	for _, k := range st.Metadata.SortedAttributeKeys() {
		fmt.Fprintf(&b, "  %s=%s\n", k, st.Metadata.Attribute[k])
	}
	b.WriteString("fields:\n")
	for _, k := range st.Metadata.SortedSubDataKeys() {
		if k == metadata.SubDataList {
			continue
		}
		if id, ok := st.fieldID(k); ok {
			_, cached := st.Fields[id]
			status := "not loaded"
			if cached {
				status = fmt.Sprintf("%d cells", len(st.Fields[id].Cells))
			}
			fmt.Fprintf(&b, "  %s (%s)\n", k, status)
		}
	}
	b.WriteString("objects:\n")
	for _, c := range st.Objects.Cells {
		if lit, ok := c.(blocks.LiteralCell); ok {
			fmt.Fprintf(&b, "  %s\n", lit.Text)
		}
	}
	return b.String(), nil
}

func (s *Session) renderObject() (string, error) {
	st, err := s.currentStructure()
	if err != nil {
		return "", err
	}
	owner := s.Location.Object.ID
	var b strings.Builder
	for _, name := range st.Metadata.SortedSubDataKeys() {
		if name == metadata.SubDataList {
			continue
		}
		id, ok := st.fieldID(name)
		if !ok {
			continue
		}
		q, cached := st.Fields[id]
		if !cached {
			continue
		}
		for _, c := range q.Cells {
			if c.Identifier() != owner {
				continue
			}
			fmt.Fprintf(&b, "%s : %s\n", name, displayCell(c))
		}
	}
	return b.String(), nil
}

// displayCell renders a single cell's content the way the worked lifecycle
// example expects: a literal renders as a quoted Go string, a blob as its
// byte length, and a link as its direction and target.
func displayCell(c blocks.Cell) string {
	switch v := c.(type) {
	case blocks.LiteralCell:
		return fmt.Sprintf("%q", v.Text)
	case blocks.BlobCell:
		return fmt.Sprintf("<blob, %d bytes>", len(v.Data))
	case blocks.LinkCell:
		return displayLink(v)
	case blocks.LiteralFragmentCell:
		return fmt.Sprintf("<partial literal fragment, seq=%d>", v.Header.Seq)
	case blocks.BlobFragmentCell:
		return fmt.Sprintf("<partial blob fragment, seq=%d>", v.Header.Seq)
	default:
		return fmt.Sprintf("<unknown cell %T>", c)
	}
}

func displayLink(l blocks.LinkCell) string {
	dir := "->"
	if l.Direction == blocks.Reverse {
		dir = "<-"
	}
	switch t := l.Target.(type) {
	case blocks.SameBlockTarget:
		return fmt.Sprintf("%s %s", dir, t.Target.Hex())
	case blocks.AnotherFieldTarget:
		return fmt.Sprintf("%s %s/%s", dir, t.Field.Hex(), t.Target.Hex())
	case blocks.AnotherStructTarget:
		return fmt.Sprintf("%s %s/%s/%s", dir, t.Structure.Hex(), t.Field.Hex(), t.Target.Hex())
	default:
		return fmt.Sprintf("%s <unknown target %T>", dir, t)
	}
}
