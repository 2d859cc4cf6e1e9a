package engine

import (
	"strconv"

	"github.com/moelife-coder/msdb/internal/metadata"
)

// attrUint32 reads an attribute key as a base-10 uint32, returning 0 if
// absent or malformed.
func attrUint32(m *metadata.Metadata, key string) uint32 {
	v, ok := m.Attribute[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
