package engine

import (
	"fmt"
	"path/filepath"

	"github.com/moelife-coder/msdb/internal/ids"
)

// Directory layout under a database root D:
//
//	D/salt
//	D/metadata[+.nonce]
//	D/<hex(struct)>/metadata[+.nonce]
//	D/<hex(struct)>/<hex(list)>[+.nonce]            (unnumbered, single file)
//	D/<hex(struct)>/<hex(field)>/metadata[+.nonce]
//	D/<hex(struct)>/<hex(field)>/0.blk[+.nonce], 1.blk[+.nonce], ...

func saltPath(root string) string { return filepath.Join(root, "salt") }

func mainMetadataPath(root string) string { return filepath.Join(root, "metadata") }

func structureDir(root string, structure ids.MetaId) string {
	return filepath.Join(root, structure.Hex())
}

func structureMetadataPath(root string, structure ids.MetaId) string {
	return filepath.Join(structureDir(root, structure), "metadata")
}

func objectListPath(root string, structure ids.MetaId, list ids.CellId) string {
	return filepath.Join(structureDir(root, structure), list.Hex())
}

func fieldDir(root string, structure ids.MetaId, field ids.MetaId) string {
	return filepath.Join(structureDir(root, structure), field.Hex())
}

func fieldMetadataPath(root string, structure ids.MetaId, field ids.MetaId) string {
	return filepath.Join(fieldDir(root, structure, field), "metadata")
}

func blockPath(root string, structure ids.MetaId, field ids.MetaId, n int) string {
	return filepath.Join(fieldDir(root, structure, field), fmt.Sprintf("%d.blk", n))
}
