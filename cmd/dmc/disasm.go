package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"dmc/compiler"
	"dmc/disasm"
)

// disasmCmd compiles a source tree and prints every proc's bytecode as
// a human-readable instruction listing, rather than writing the JSON
// artifact.
//
// Grounded on informatter-nilan's cmd_emit_bytecode.go (`--diassemble`
// dumping a text listing alongside the encoded bytecode), adapted to
// print to stdout instead of a sibling file since this front end has
// no notion of a ".dnic" output format of its own.
type disasmCmd struct {
	proc string
}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile and print the bytecode disassembly for every proc" }
func (*disasmCmd) Usage() string {
	return `disasm [-proc /path/to/proc] <file.dme>:
  Compile the given source and print a disassembly listing of each
  proc's bytecode. -proc restricts output to one proc (e.g. "/mob/player/hi").
`
}

func (cmd *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.proc, "proc", "", "restrict output to one proc, given as /path/to/owner/procname")
}

func (cmd *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 no input files given\n")
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

	if cmd.proc != "" {
		for _, proc := range res.Tree.Procs {
			if qualifiedName(res.Tree, proc) == cmd.proc {
				fmt.Println(disasm.Proc(proc))
				return subcommands.ExitSuccess
			}
		}
		fmt.Fprintf(os.Stderr, "💥 no such proc: %s\n", cmd.proc)
		return subcommands.ExitFailure
	}

	fmt.Print(disasm.Tree(res.Tree))
	return subcommands.ExitSuccess
}
