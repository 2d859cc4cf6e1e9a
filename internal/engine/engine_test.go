package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "db1")
}

// TestLifecycleSmoke walks spec scenario 1: create, populate a structure
// with one object and one literal cell, sync, log out, re-open, and
// confirm ls renders the cell back.
func TestLifecycleSmoke(t *testing.T) {
	root := tempRoot(t)
	password := []byte("hunter2")

	s, err := Create(root, password)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.CreateStructure("users"); err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if err := s.SelectStructure("users"); err != nil {
		t.Fatalf("SelectStructure: %v", err)
	}
	if _, err := s.CreateObject("alice"); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := s.SelectObject("alice"); err != nil {
		t.Fatalf("SelectObject: %v", err)
	}
	if err := s.CreateCell("name", CellLiteral, "Alice"); err != nil {
		t.Fatalf("CreateCell: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	s.Logout()

	s2, err := Open(root, password, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s2.SelectStructure("users"); err != nil {
		t.Fatalf("SelectStructure after reopen: %v", err)
	}
	if err := s2.SelectObject("alice"); err != nil {
		t.Fatalf("SelectObject after reopen: %v", err)
	}
	if err := s2.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := s2.Ls()
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	want := `name : "Alice"`
	if !strings.Contains(out, want) {
		t.Fatalf("ls output = %q, want it to contain %q", out, want)
	}
}

// TestLinkParsing exercises spec scenario 3: one, two, and three hex-id
// parts decode to SameBlock/AnotherField/AnotherStruct link targets; four
// parts is fatal.
func TestLinkParsing(t *testing.T) {
	root := tempRoot(t)
	s, err := Create(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CreateStructure("things"); err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if err := s.SelectStructure("things"); err != nil {
		t.Fatalf("SelectStructure: %v", err)
	}
	if _, err := s.CreateObject("a"); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := s.SelectObject("a"); err != nil {
		t.Fatalf("SelectObject: %v", err)
	}

	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"same_block", "0011223344556677", false},
		{"another_field", "aabbccdd00112233/0011223344556677", false},
		{"another_struct", "0011223344556677/1122334455667788/2233445566778899", false},
		{"too_many_parts", "0011223344556677/1122334455667788/2233445566778899/3344556677889900", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.CreateCell(tc.name, CellLink, tc.content)
			if tc.wantErr && err == nil {
				t.Fatalf("CreateCell(%q): expected an error, got nil", tc.content)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("CreateCell(%q): %v", tc.content, err)
			}
		})
	}
}

// TestReservedFieldNameRejected exercises spec scenario 4: "list" is
// reserved and cannot be used as a field name.
func TestReservedFieldNameRejected(t *testing.T) {
	root := tempRoot(t)
	s, err := Create(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CreateStructure("things"); err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if err := s.SelectStructure("things"); err != nil {
		t.Fatalf("SelectStructure: %v", err)
	}
	if _, err := s.CreateObject("a"); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := s.SelectObject("a"); err != nil {
		t.Fatalf("SelectObject: %v", err)
	}
	if err := s.CreateCell("list", CellLiteral, "X"); err != ErrReservedFieldName {
		t.Fatalf("CreateCell(\"list\", ...) = %v, want ErrReservedFieldName", err)
	}
}

// TestOpenVersionMismatchStrict exercises spec scenario 5: a version
// mismatch is fatal under strict-version, and tolerated (merely logged)
// otherwise.
func TestOpenVersionMismatchStrict(t *testing.T) {
	root := tempRoot(t)
	s, err := Create(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.MainMetadata.Attribute["ver"] = "999"
	if err := s.writeMainMetadata(); err != nil {
		t.Fatalf("writeMainMetadata: %v", err)
	}

	if _, err := Open(root, []byte("pw"), true); err == nil {
		t.Fatal("Open with strict-version expected to fail on version mismatch, got nil")
	}
	if _, err := Open(root, []byte("pw"), false); err != nil {
		t.Fatalf("Open without strict-version expected to tolerate the mismatch, got %v", err)
	}
}

// TestOpenWrongPasswordFails exercises spec scenario 6: opening with an
// incorrect password must fail the authenticated decrypt of the main
// metadata.
func TestOpenWrongPasswordFails(t *testing.T) {
	root := tempRoot(t)
	if _, err := Create(root, []byte("correct horse")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Open(root, []byte("wrong password"), true); err == nil {
		t.Fatal("Open with the wrong password succeeded, want an error")
	}
}

// TestCreateRefusesExistingDirectory confirms Create refuses to clobber an
// existing database root.
func TestCreateRefusesExistingDirectory(t *testing.T) {
	root := tempRoot(t)
	if _, err := Create(root, []byte("pw")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := Create(root, []byte("pw")); err != ErrDatabaseExists {
		t.Fatalf("second Create = %v, want ErrDatabaseExists", err)
	}
}

// TestDeleteStructureRemovesDirectoryAndMetadata confirms a deleted
// structure's directory and main-metadata entry are both gone.
func TestDeleteStructureRemovesDirectoryAndMetadata(t *testing.T) {
	root := tempRoot(t)
	s, err := Create(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, err := s.CreateStructure("temp")
	if err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if err := s.DeleteStructure("temp"); err != nil {
		t.Fatalf("DeleteStructure: %v", err)
	}
	if _, ok := s.MainMetadata.SubData["temp"]; ok {
		t.Fatal("main metadata still names the deleted structure")
	}
	if _, err := os.Stat(structureDir(root, id)); !os.IsNotExist(err) {
		t.Fatalf("structure directory still exists: stat err = %v", err)
	}
}

// TestAlterCellReplacesExistingCell confirms alter_cell deletes then
// recreates so exactly one cell owned by the current object survives.
func TestAlterCellReplacesExistingCell(t *testing.T) {
	root := tempRoot(t)
	s, err := Create(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CreateStructure("things"); err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if err := s.SelectStructure("things"); err != nil {
		t.Fatalf("SelectStructure: %v", err)
	}
	if _, err := s.CreateObject("a"); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := s.SelectObject("a"); err != nil {
		t.Fatalf("SelectObject: %v", err)
	}
	if err := s.CreateCell("name", CellLiteral, "first"); err != nil {
		t.Fatalf("CreateCell: %v", err)
	}
	if err := s.AlterCell("name", CellLiteral, "second"); err != nil {
		t.Fatalf("AlterCell: %v", err)
	}

	st, err := s.currentStructure()
	if err != nil {
		t.Fatalf("currentStructure: %v", err)
	}
	fieldID, ok := st.fieldID("name")
	if !ok {
		t.Fatal("field \"name\" not found")
	}
	var owned int
	for _, c := range st.Fields[fieldID].Cells {
		if c.Identifier() == s.Location.Object.ID {
			owned++
		}
	}
	if owned != 1 {
		t.Fatalf("expected exactly 1 cell owned by the current object after alter, got %d", owned)
	}
}
