package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moelife-coder/msdb/internal/engine"
)

// splitN2 splits s on whitespace into at most n fields, joining any excess
// tokens back into the final field with single spaces (e.g. literal cell
// content, a setprop value, a filesystem path containing spaces).
func splitN2(s string, n int) []string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return fields
	}
	head := fields[:n-1]
	tail := strings.Join(fields[n-1:], " ")
	return append(append([]string{}, head...), tail)
}

// runCommand dispatches one parsed command line against session, which may
// be nil (only "create", "decrypt", and "exit" are valid without one).
// It returns the (possibly newly-created) session, any output to print,
// and an error.
func runCommand(s *engine.Session, root, password string, line string) (*engine.Session, string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return s, "", nil
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "create":
		if len(args) < 1 {
			return s, "", fmt.Errorf("usage: create <path> [password]")
		}
		pw := password
		if len(args) > 1 {
			pw = args[1]
		}
		ns, err := engine.Create(args[0], []byte(pw))
		return ns, "", err

	case "decrypt":
		if len(args) < 1 {
			return s, "", fmt.Errorf("usage: decrypt <path> [password]")
		}
		pw := password
		if len(args) > 1 {
			pw = args[1]
		}
		ns, err := engine.Open(args[0], []byte(pw), false)
		return ns, "", err

	case "exit":
		return s, "", errExit
	}

	if s == nil {
		return s, "", fmt.Errorf("no database is open; use create/decrypt first")
	}

	switch verb {
	case "logout":
		s.Logout()
		return s, "", nil

	case "leave":
		s.Location.Leave()
		return s, "", nil

	case "pwd":
		return s, s.Pwd(), nil

	case "ls", "show", "debls":
		out, err := s.Ls()
		return s, out, err

	case "sync":
		return s, "", s.Sync()

	case "clean":
		s.Clean()
		return s, "", nil

	case "unload":
		if len(args) < 1 {
			return s, "", fmt.Errorf("usage: unload <structure-name>")
		}
		return s, "", s.UnloadStructure(args[0])

	case "load":
		field := ""
		if len(args) > 0 {
			field = args[0]
		}
		return s, "", s.Load(field)

	case "setprop":
		if len(args) < 2 {
			return s, "", fmt.Errorf("usage: setprop <name> <value>")
		}
		parts := splitN2(strings.Join(args, " "), 2)
		return s, "", s.SetProp(parts[0], parts[1])

	case "getprop":
		props, err := s.GetProp()
		if err != nil {
			return s, "", err
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, props[k])
		}
		return s, b.String(), nil

	case "select":
		if len(args) < 1 {
			return s, "", fmt.Errorf("usage: select <name>")
		}
		return s, "", selectPath(s, args[0])

	case "del":
		if len(args) < 1 {
			return s, "", fmt.Errorf("usage: del <name>")
		}
		return s, "", deleteAtLocation(s, args[0])

	case "new":
		return s, "", newAtLocation(s, args)

	case "alter":
		if len(args) < 3 {
			return s, "", fmt.Errorf("usage: alter <field> <type> <content>")
		}
		parts := splitN2(strings.Join(args, " "), 3)
		return s, "", s.AlterCell(parts[0], engine.CellType(parts[1]), parts[2])

	default:
		return s, "", fmt.Errorf("unknown command %q", verb)
	}
}

// errExit is a sentinel returned by the "exit" command, distinguishing a
// clean requested shutdown from an actual error in the REPL's caller.
var errExit = fmt.Errorf("exit")

// selectPath implements "select", descending one level per "/"-separated
// path component so the common "select structure/object" shorthand works
// in a single command, in addition to plain one-level selection.
func selectPath(s *engine.Session, path string) error {
	for _, name := range strings.Split(path, "/") {
		var err error
		switch {
		case s.Location.Structure == nil:
			err = s.SelectStructure(name)
		case s.Location.Object == nil:
			err = s.SelectObject(name)
		case s.Location.Field == nil:
			err = s.SelectField(name)
		default:
			return fmt.Errorf("already at the deepest selectable level")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteAtLocation implements "del": a structure name at the root, an
// object name inside a structure, or a field name inside an object.
func deleteAtLocation(s *engine.Session, name string) error {
	switch {
	case s.Location.Structure == nil:
		return s.DeleteStructure(name)
	case s.Location.Object == nil:
		return s.DeleteObject(name)
	default:
		return s.DeleteCell(name)
	}
}

// newAtLocation implements "new": "new struct <name>" creates a structure
// from any location; "new <name>" creates an object when no object is
// selected; "new <field> <type> <content>" creates or replaces a cell when
// one is.
func newAtLocation(s *engine.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: new struct <name> | new <name> | new <field> <type> <content>")
	}
	if args[0] == "struct" {
		if len(args) < 2 {
			return fmt.Errorf("usage: new struct <name>")
		}
		_, err := s.CreateStructure(args[1])
		return err
	}
	if s.Location.Structure == nil {
		return fmt.Errorf("cannot create an object or a cell at the root")
	}
	if s.Location.Object == nil {
		_, err := s.CreateObject(args[0])
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("usage: new <field> <type> <content>")
	}
	rest := strings.Join(args, " ")
	parts := splitN2(rest, 3)
	return s.CreateCell(parts[0], engine.CellType(parts[1]), parts[2])
}
