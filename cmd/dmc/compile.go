package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"dmc/compiler"
)

// compileCmd is the main entry point: preprocess, parse, fold, build the
// object tree, emit bytecode, and serialize to the spec's JSON artifact.
//
// Grounded on informatter-nilan's cmd_run_compiled.go/cmd_emit_bytecode.go
// Execute shape (read file, drive the phases, report errors to stderr)
// but rebuilt against compiler.Driver instead of compiler.ASTCompiler+vm,
// since this front end stops at bytecode (spec.md §1 Non-goals).
type compileCmd struct {
	defines     defineFlags
	libPaths    stringListFlag
	noStandard  bool
	skipBadArgs bool
	suppressUI  bool
	suppressUT  bool
	dumpPP      bool
	verbose     bool
	notices     bool
	noOpts      bool
	skipTypeck  bool
	version     string
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a .dm/.dme file to the JSON world artifact" }
func (*compileCmd) Usage() string {
	return `compile [options] <file.dme> [file2.dm ...]:
  Preprocess, parse, and build the object tree for the first Dream Maker
  source file given, then emit "<first-file-basename>.json". Only the
  first file argument is compiled; any further file arguments are ignored.
`
}

func (cmd *compileCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&cmd.defines, "define", "define KEY[=VAL], repeatable; missing value defaults to 1")
	f.Var(&cmd.libPaths, "lib-path", "additional include search path, repeatable")
	f.BoolVar(&cmd.noStandard, "no-standard", false, "skip loading DMStandard")
	f.BoolVar(&cmd.skipBadArgs, "skip-bad-args", false, "ignore malformed CLI arguments instead of failing")
	f.BoolVar(&cmd.suppressUI, "suppress-unimplemented", false, "suppress UnimplementedAccess diagnostics")
	f.BoolVar(&cmd.suppressUT, "suppress-unsupported", false, "suppress UnsupportedTypeCheck diagnostics")
	f.BoolVar(&cmd.dumpPP, "dump-preprocessor", false, "print the preprocessed token stream instead of writing the JSON output (all compile phases still run)")
	f.BoolVar(&cmd.verbose, "verbose", false, "print phase timing and progress to stderr")
	f.BoolVar(&cmd.notices, "notices-enabled", false, "enable notice-level diagnostics")
	f.BoolVar(&cmd.noOpts, "no-opts", false, "disable the constant folder")
	f.BoolVar(&cmd.skipTypeck, "skip-anything-typecheck", false, "skip the anything-typecheck pass")
	f.StringVar(&cmd.version, "version", "", "<VER>.<BUILD> recorded in the output JSON's Metadata field")
}

func (cmd *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		if cmd.skipBadArgs {
			return subcommands.ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "💥 no input files given\n")
		return subcommands.ExitUsageError
	}

	defines := map[string]string{}
	for _, kv := range cmd.defines {
		defines[kv.key] = kv.value
	}

	opts := compiler.Options{
		Defines:               defines,
		LibraryPaths:          []string(cmd.libPaths),
		NoStandard:            cmd.noStandard,
		SkipBadArgs:           cmd.skipBadArgs,
		SuppressUnimplemented: cmd.suppressUI,
		SuppressUnsupported:   cmd.suppressUT,
		DumpPreprocessor:      cmd.dumpPP,
		Verbose:               cmd.verbose,
		NoticesEnabled:        cmd.notices,
		NoOpts:                cmd.noOpts,
		ErrorBudget:           100,
		Version:               cmd.version,
	}

	driver := compiler.New(opts)
	root := args[0]
	res, err := driver.Compile(root)
	if res != nil {
		for _, d := range res.Sink.All() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	if cmd.dumpPP {
		fmt.Fprintln(os.Stdout, res.PreprocessedSource)
		return subcommands.ExitSuccess
	}

	if res.Sink.ErrorCount() > 0 {
		return subcommands.ExitFailure
	}

	base := strings.TrimSuffix(filepath.Base(root), filepath.Ext(root))
	outPath := base + ".json"
	if err := driver.WriteJSON(res, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write %s: %v\n", outPath, err)
		return subcommands.ExitFailure
	}
	if cmd.verbose {
		fmt.Fprintf(os.Stderr, "✅ wrote %s\n", outPath)
	}
	return subcommands.ExitSuccess
}

// defineFlags implements flag.Value to collect repeatable `--define
// KEY[=VAL]` options (spec.md §6).
type defineEntry struct{ key, value string }
type defineFlags []defineEntry

func (d *defineFlags) String() string {
	if d == nil {
		return ""
	}
	var parts []string
	for _, e := range *d {
		parts = append(parts, e.key+"="+e.value)
	}
	return strings.Join(parts, ",")
}

func (d *defineFlags) Set(s string) error {
	key, value, found := strings.Cut(s, "=")
	if !found {
		value = "1"
	}
	*d = append(*d, defineEntry{key: key, value: value})
	return nil
}

// stringListFlag implements flag.Value to collect repeatable
// `--lib-path PATH` options.
type stringListFlag []string

func (s *stringListFlag) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
