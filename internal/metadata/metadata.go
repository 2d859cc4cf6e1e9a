// Package metadata implements the two-section key/value record codec used
// for every Metadata value in the database: main metadata, structure
// metadata, and field metadata.
package metadata

import (
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// Reserved attribute/sub_data keys used by the engine.
const (
	AttrType = "type"
	AttrVer  = "ver"
	AttrSize = "size"

	// SubDataList is the reserved sub_data key naming a structure's
	// object-list field. It is not available as a user field name.
	SubDataList = "list"
)

// Metadata holds two order-insensitive string-to-string mappings
// (attribute, sub_data) plus a dirty bit set on any mutation and cleared by
// an explicit ClearModified call from the caller that persisted it.
type Metadata struct {
	Attribute map[string]string
	SubData   map[string]string

	modified bool
}

// New returns an empty Metadata, as created by "new struct" or field
// creation before any attribute/sub_data entry is added.
func New() *Metadata {
	return &Metadata{
		Attribute: make(map[string]string),
		SubData:   make(map[string]string),
	}
}

// Modified reports whether this value has unsynced changes.
func (m *Metadata) Modified() bool { return m.modified }

// ClearModified clears the dirty bit; the caller must have just persisted m.
func (m *Metadata) ClearModified() { m.modified = false }

// NewAttribute inserts a key into the attribute section if absent, marking
// m dirty. Matches the original source's new_attribute (insert-if-absent,
// not overwrite).
func (m *Metadata) NewAttribute(key, value string) {
	if _, ok := m.Attribute[key]; !ok {
		m.Attribute[key] = value
		m.modified = true
	}
}

// SetAttribute overwrites (or inserts) a key in the attribute section,
// marking m dirty. Used by setprop, which — unlike cell creation — is
// expected to replace an existing value.
func (m *Metadata) SetAttribute(key, value string) {
	m.Attribute[key] = value
	m.modified = true
}

// NewSubData inserts a key into the sub_data section if absent, marking m
// dirty.
func (m *Metadata) NewSubData(key, value string) {
	if _, ok := m.SubData[key]; !ok {
		m.SubData[key] = value
		m.modified = true
	}
}

// DeleteSubData removes a key from the sub_data section, marking m dirty if
// present.
func (m *Metadata) DeleteSubData(key string) {
	if _, ok := m.SubData[key]; ok {
		delete(m.SubData, key)
		m.modified = true
	}
}

const (
	sectionSep = "$"
	tokenSep   = ";"
	kvSep      = "="
)

// Encode serializes m into the two-section $-separated, ;-separated
// key=value format. Section contents are emitted in sorted key order for a
// stable, diffable byte representation; the format itself does not require
// this.
func (m *Metadata) Encode() []byte {
	var b strings.Builder
	writeSection(&b, m.Attribute)
	b.WriteString(sectionSep)
	writeSection(&b, m.SubData)
	return []byte(b.String())
}

func writeSection(b *strings.Builder, section map[string]string) {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(kvSep)
		b.WriteString(section[k])
		b.WriteString(tokenSep)
	}
}

// Decode parses the two-section format produced by Encode. The result is
// always marked modified, so a freshly loaded structure is eligible for
// save.
func Decode(raw []byte) (*Metadata, error) {
	s := string(raw)
	sections := strings.SplitN(s, sectionSep, 2)
	if len(sections) != 2 {
		return nil, xerrors.Errorf("malformed metadata: missing %q section separator", sectionSep)
	}
	m := New()
	attr, err := parseSection(sections[0])
	if err != nil {
		return nil, xerrors.Errorf("parsing attribute section: %w", err)
	}
	sub, err := parseSection(sections[1])
	if err != nil {
		return nil, xerrors.Errorf("parsing sub_data section: %w", err)
	}
	m.Attribute = attr
	m.SubData = sub
	m.modified = true
	return m, nil
}

func parseSection(section string) (map[string]string, error) {
	result := make(map[string]string)
	for _, tok := range strings.Split(section, tokenSep) {
		if tok == "" {
			continue
		}
		parts := strings.SplitN(tok, kvSep, 2)
		if len(parts) != 2 {
			return nil, xerrors.Errorf("malformed token %q: missing %q", tok, kvSep)
		}
		result[parts[0]] = parts[1]
	}
	return result, nil
}

// SortedSubDataKeys returns the sub_data keys in sorted order, used by
// ls rendering for deterministic output.
func (m *Metadata) SortedSubDataKeys() []string {
	keys := make([]string, 0, len(m.SubData))
	for k := range m.SubData {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortedAttributeKeys returns the attribute keys in sorted order.
func (m *Metadata) SortedAttributeKeys() []string {
	keys := make([]string, 0, len(m.Attribute))
	for k := range m.Attribute {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
