package engine

import (
	"github.com/moelife-coder/msdb/internal/blocks"
	"github.com/moelife-coder/msdb/internal/ids"
)

// CreateObject appends a fresh object named name to the selected
// structure's object list. Fails with ErrObjectExists if an object of that
// name already exists.
func (s *Session) CreateObject(name string) (ids.CellId, error) {
	st, err := s.currentStructure()
	if err != nil {
		return ids.CellId{}, err
	}
	if _, ok := findObject(st.Objects, name); ok {
		return ids.CellId{}, ErrObjectExists
	}
	id := s.freshCellID(st.Objects)
	st.Objects.ImportCell(blocks.LiteralCell{Text: name, Owner: id})
	return id, nil
}

// SelectObject scans the selected structure's object list for a literal
// named name and descends into it.
func (s *Session) SelectObject(name string) error {
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	id, ok := findObject(st.Objects, name)
	if !ok {
		return ErrObjectNotFound
	}
	s.Location.SelectObject(id, name)
	return nil
}

// SelectField descends into field name, the analogue of SelectObject one
// level down. The original source calls this selection "select_cell",
// which is misleading since it looks up a field by name, not a cell.
func (s *Session) SelectField(name string) error {
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	if s.Location.Object == nil {
		return ErrWrongLocation
	}
	id, ok := st.fieldID(name)
	if !ok {
		return ErrFieldNotFound
	}
	s.Location.SelectField(id, name)
	return nil
}

// DeleteObject removes the literal named name from the selected
// structure's object list.
func (s *Session) DeleteObject(name string) error {
	st, err := s.currentStructure()
	if err != nil {
		return err
	}
	if _, ok := findObject(st.Objects, name); !ok {
		return ErrObjectNotFound
	}
	st.Objects.DeleteLiteralCellByContent(name)
	if s.Location.Object != nil && s.Location.Object.Name == name {
		s.Location.DeselectObject()
	}
	return nil
}

// findObject scans an object-list queue for a literal cell with the given
// text, returning its owning CellId.
func findObject(q *blocks.Queue, name string) (ids.CellId, bool) {
	for _, c := range q.Cells {
		if lit, ok := c.(blocks.LiteralCell); ok && lit.Text == name {
			return lit.Owner, true
		}
	}
	return ids.CellId{}, false
}

// freshCellID draws CellIds until one is absent from the object list's
// existing owners.
func (s *Session) freshCellID(q *blocks.Queue) ids.CellId {
	for {
		id := ids.NewCellId()
		collision := false
		for _, c := range q.Cells {
			if c.Identifier() == id {
				collision = true
				break
			}
		}
		if !collision {
			return id
		}
	}
}
