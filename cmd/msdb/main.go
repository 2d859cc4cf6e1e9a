// Command msdb is an interactive (or piped-batch) shell over the
// structures/objects/cells hierarchy implemented by internal/engine: create
// or open an encrypted database, then run the command grammar documented in
// internal/engine's operations (new, select, leave, ls, load, sync, unload,
// clean, del, setprop, getprop, alter, pwd, logout, exit) one line at a
// time until EOF or "exit".
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/moelife-coder/msdb/internal/engine"
	"golang.org/x/xerrors"
)

var (
	debug         = flag.Bool("debug", false, "format error messages with additional detail")
	strictVersion = flag.Bool("strict-version", false, "fail instead of warn on a database type/version mismatch")
)

func funcmain() error {
	flag.Parse()

	ctx, canc := interruptibleContext()
	defer canc()

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var session *engine.Session
	fmt.Fprint(out, "msdb> ")
	out.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := in.ReadString('\n')
		if err != nil {
			return nil // EOF
		}
		line = trimNewline(line)

		if isLifecycleVerb(line) {
			ns, err := runLifecycleCommand(in, session, line)
			if err != nil {
				printErr(out, verbOf(line), err)
			} else {
				session = ns
			}
			fmt.Fprint(out, "msdb> ")
			out.Flush()
			continue
		}

		s, result, err := runCommand(session, "", "", line)
		session = s
		if err == errExit {
			return nil
		}
		if err != nil {
			printErr(out, verbOf(line), err)
		} else if result != "" {
			fmt.Fprint(out, result)
		}
		fmt.Fprint(out, "msdb> ")
		out.Flush()
	}
}

func printErr(out *bufio.Writer, verb string, err error) {
	if *debug {
		fmt.Fprintf(out, "%s: %+v\n", verb, err)
	} else {
		fmt.Fprintf(out, "%s: %v\n", verb, err)
	}
	out.Flush()
}

func verbOf(line string) string {
	for i, r := range line {
		if r == ' ' || r == '\t' {
			return line[:i]
		}
	}
	return line
}

// isLifecycleVerb reports whether line starts the two commands (create,
// decrypt) that need an interactive masked-password prompt when no
// password was given on the line.
func isLifecycleVerb(line string) bool {
	verb := verbOf(line)
	return verb == "create" || verb == "decrypt"
}

// runLifecycleCommand handles "create"/"decrypt", prompting for a password
// when one wasn't supplied as a second argument on the line.
func runLifecycleCommand(in *bufio.Reader, session *engine.Session, line string) (*engine.Session, error) {
	fields := splitN2(line, 2)
	if len(fields) < 2 {
		return session, xerrors.Errorf("usage: %s <path> [password]", verbOf(line))
	}
	verb, rest := fields[0], fields[1]
	pathAndMaybePassword := splitN2(rest, 2)
	path := pathAndMaybePassword[0]
	given := ""
	if len(pathAndMaybePassword) > 1 {
		given = pathAndMaybePassword[1]
	}
	password, err := readPassword(in, given, fmt.Sprintf("%s password for %s: ", verb, path))
	if err != nil {
		return session, err
	}
	if verb == "create" {
		return engine.Create(path, []byte(password))
	}
	return engine.Open(path, []byte(password), *strictVersion)
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
