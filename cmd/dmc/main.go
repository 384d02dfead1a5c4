// Command dmc is the Dream Maker front-end compiler's CLI: compile a
// `.dm`/`.dme` source tree to the spec's JSON artifact, disassemble a
// compiled proc's bytecode, or inspect a compiled object tree
// interactively.
//
// Grounded on informatter-nilan's cmd_*.go files, each a
// subcommands.Command implementation, and its main.go — except the
// teacher's main.go never actually calls subcommands.Register, so its
// subcommands are dead code reachable only by direct import. This one
// wires them up.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")
	subcommands.Register(&inspectCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
