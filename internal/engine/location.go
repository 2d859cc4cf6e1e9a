package engine

import (
	"github.com/moelife-coder/msdb/internal/ids"
)

// StructSelection names the currently selected structure.
type StructSelection struct {
	ID   ids.MetaId
	Name string
}

// ObjectSelection names the currently selected object.
type ObjectSelection struct {
	ID   ids.CellId
	Name string
}

// FieldSelection names the currently selected field. The original source
// calls this "current_cell", which is misleading — it is a field looked up
// by name, never an actual cell value.
type FieldSelection struct {
	ID   ids.MetaId
	Name string
}

// Location tracks the session's current position in the
// root -> structure -> object -> field hierarchy. Selection only cascades
// downward: selecting a structure clears any previously selected object and
// field, and so on, so the location is always consistent with exactly one
// of the four depths.
type Location struct {
	Structure *StructSelection
	Object    *ObjectSelection
	Field     *FieldSelection
}

// SelectStructure descends into a structure, clearing any deeper selection.
func (l *Location) SelectStructure(id ids.MetaId, name string) {
	l.Structure = &StructSelection{ID: id, Name: name}
	l.Object = nil
	l.Field = nil
}

// SelectObject descends into an object. The caller must have a structure
// selected; use ErrWrongLocation otherwise.
func (l *Location) SelectObject(id ids.CellId, name string) {
	l.Object = &ObjectSelection{ID: id, Name: name}
	l.Field = nil
}

// SelectField descends into a field. The caller must have an object
// selected.
func (l *Location) SelectField(id ids.MetaId, name string) {
	l.Field = &FieldSelection{ID: id, Name: name}
}

// DeselectStructure ascends to the root, clearing everything below it.
func (l *Location) DeselectStructure() {
	l.Structure = nil
	l.Object = nil
	l.Field = nil
}

// DeselectObject ascends to the structure level.
func (l *Location) DeselectObject() {
	l.Object = nil
	l.Field = nil
}

// DeselectField ascends to the object level.
func (l *Location) DeselectField() {
	l.Field = nil
}

// Leave ascends exactly one level from the current depth; a no-op at the
// root.
func (l *Location) Leave() {
	switch {
	case l.Field != nil:
		l.DeselectField()
	case l.Object != nil:
		l.DeselectObject()
	case l.Structure != nil:
		l.DeselectStructure()
	}
}

// Pwd renders the current location: "~" with no structure selected, the
// structure name with no object selected, "structure/object" with no field
// selected, and "structure/object: field" with a field selected. Location
// holds no root, so the output never includes the database path.
func (l *Location) Pwd() string {
	if l.Structure == nil {
		return "~"
	}
	if l.Object == nil {
		return l.Structure.Name
	}
	if l.Field == nil {
		return l.Structure.Name + "/" + l.Object.Name
	}
	return l.Structure.Name + "/" + l.Object.Name + ": " + l.Field.Name
}
