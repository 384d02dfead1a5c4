package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"dmc/compiler"
	"dmc/disasm"
	"dmc/objtree"
	"dmc/path"
)

// inspectCmd compiles a source tree once and drops into an interactive
// REPL for poking at the result: listing types, showing a type's
// variables and procs, and disassembling a proc's bytecode.
//
// Grounded on informatter-nilan's cmd_repl_compiled.go (bufio scanner
// loop, ">>> " prompt, per-line dispatch), but driven by
// github.com/chzyer/readline instead of a bare bufio.Scanner for
// history/line-editing — the teacher's go.mod already carries the
// dependency (marked indirect, unused by any teacher command), so this
// is the home SPEC_FULL.md gives it.
type inspectCmd struct{}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "Compile a source tree and explore it interactively" }
func (*inspectCmd) Usage() string {
	return `inspect <file.dme>:
  Compile the given source, then start a REPL with commands:
    types [prefix]       list object paths, optionally filtered by prefix
    type /path/to/type    show a type's variables and procs
    proc /path/to/proc    disassemble one proc's bytecode
    exit                  quit
`
}

func (*inspectCmd) SetFlags(f *flag.FlagSet) {}

func (*inspectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 no input file given\n")
		return subcommands.ExitUsageError
	}

	driver := compiler.New(compiler.Options{ErrorBudget: 100})
	res, err := driver.Compile(args[0])
	if res != nil {
		for _, d := range res.Sink.All() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}
	tree := res.Tree

	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Printf("inspecting %d types, %d procs. Type 'exit' to quit.\n", len(tree.Objects), len(tree.Procs))

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "exit", "quit":
			return subcommands.ExitSuccess
		case "types":
			prefix := ""
			if len(fields) > 1 {
				prefix = fields[1]
			}
			listTypes(tree, prefix)
		case "type":
			if len(fields) < 2 {
				fmt.Println("usage: type /path/to/type")
				continue
			}
			showType(tree, fields[1])
		case "proc":
			if len(fields) < 2 {
				fmt.Println("usage: proc /path/to/proc")
				continue
			}
			showProc(tree, fields[1])
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func listTypes(tree *objtree.Tree, prefix string) {
	var paths []string
	for p := range tree.PathToID {
		if prefix == "" || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Println(p)
	}
}

func showType(tree *objtree.Tree, p string) {
	id, ok := tree.PathToID[p]
	if !ok {
		fmt.Printf("no such type: %s\n", p)
		return
	}
	obj := tree.Objects[id]
	if obj.HasParent {
		fmt.Printf("%s : %s\n", path.String(obj.Path), path.String(tree.Objects[obj.Parent].Path))
	} else {
		fmt.Println(path.String(obj.Path))
	}
	names := make([]string, 0, len(obj.Variables))
	for name := range obj.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  var/%s\n", name)
	}
	procNames := make([]string, 0, len(obj.Procs))
	for name := range obj.Procs {
		procNames = append(procNames, name)
	}
	sort.Strings(procNames)
	for _, name := range procNames {
		fmt.Printf("  proc/%s\n", name)
	}
}

func showProc(tree *objtree.Tree, p string) {
	for _, proc := range tree.Procs {
		if qualifiedName(tree, proc) == p {
			fmt.Println(disasm.Proc(proc))
			return
		}
	}
	fmt.Printf("no such proc: %s\n", p)
}
