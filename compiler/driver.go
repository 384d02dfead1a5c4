// Package compiler orchestrates the full front-end pipeline spec.md §2
// lists — preprocess, indent, parse, fold, build the object tree, emit
// bytecode, serialize to JSON — behind one entry point, applying the
// error budget and CLI-flag-driven pragma overrides uniformly across
// every phase (spec.md §5, §7).
//
// Grounded on informatter-nilan's cmd_run_compiled.go/cmd_emit_bytecode.go
// phase-chaining (lexer.New -> parser.Make -> compiler.NewASTCompiler),
// lifted out of cmd_*.go's Execute methods into a reusable Driver so
// cmd/dmc's subcommands, and tests, can both drive it; the error-budget
// and --suppress-*/--skip-bad-args semantics are grounded on
// original_source/include/DMCompiler.h instead, since the teacher has no
// analogous CLI-flag surface.
package compiler

import (
	"fmt"
	"os"
	"strconv"

	"dmc/ast"
	"dmc/codegen"
	"dmc/diag"
	"dmc/dmmap"
	"dmc/fold"
	"dmc/indent"
	"dmc/jsonout"
	"dmc/objtree"
	"dmc/parser"
	"dmc/preprocessor"
	"dmc/stdlib"
	"dmc/token"
)

// Options gathers the CLI surface spec.md §6 describes into one value,
// independent of how cmd/dmc's `flag.FlagSet` parsed it.
type Options struct {
	Defines               map[string]string
	LibraryPaths          []string
	NoStandard            bool
	SkipBadArgs           bool
	SuppressUnimplemented bool
	SuppressUnsupported   bool
	DumpPreprocessor      bool
	Verbose               bool
	NoticesEnabled        bool
	NoOpts                bool // disables the constant folder, spec.md §6 "--no-opts"
	ErrorBudget           int
	Version               string // "--version <VER>.<BUILD>", recorded in the output JSON's Metadata field
}

// Result is everything a caller (cmd/dmc, or a test) might want out of
// one compile: the built tree, the diagnostic sink it was built with,
// and, when requested, the raw preprocessed source.
type Result struct {
	Tree                *objtree.Tree
	Sink                *diag.Sink
	PreprocessedSource  string
	IncludedMaps        []string
	IncludedInterface   string
}

// optionalCodes is the set of diag.Code values spec.md §6's
// `OptionalErrors` output field is allowed to carry: pragma-overridable
// warnings a reader of the JSON might want to inspect without having
// compiled with `--verbose`.
var optionalCodes = map[diag.Code]bool{
	diag.CodeUnimplementedAccess:  true,
	diag.CodeUnsupportedTypeCheck: true,
	diag.CodeStackImbalance:       true,
	diag.CodeUnresolvedProc:       true,
	diag.CodeDivisionByZero:       true,
	diag.CodeDuplicateProc:        true,
}

// Driver runs one compile. Create a fresh one per file the way
// ASTCompiler.CompileAST is a fresh call per source in the teacher.
type Driver struct {
	opts Options
	sink *diag.Sink
}

// New builds a Driver with its diagnostic sink configured from opts:
// the error budget, and the pragma overrides `--suppress-unimplemented`/
// `--suppress-unsupported`/`--notices-enabled` imply.
func New(opts Options) *Driver {
	sink := diag.NewSink(opts.ErrorBudget)
	if opts.SuppressUnimplemented {
		sink.Pragmas.Set(diag.CodeUnimplementedAccess, diag.Disabled)
	}
	if opts.SuppressUnsupported {
		sink.Pragmas.Set(diag.CodeUnsupportedTypeCheck, diag.Disabled)
	}
	if !opts.NoticesEnabled {
		sink.Pragmas.Set(diag.CodeSoftReservedKeyword, diag.Disabled)
		sink.Pragmas.Set(diag.CodePointlessScope, diag.Disabled)
	}
	return &Driver{opts: opts, sink: sink}
}

func (d *Driver) logf(format string, args ...any) {
	if d.opts.Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Compile runs every phase over rootPath and returns the built tree.
// Each phase checks the error budget at its boundary (spec.md §5) and
// the driver stops early, returning the partial Result plus a non-nil
// error, the moment it's exceeded.
func (d *Driver) Compile(rootPath string) (*Result, error) {
	defines := map[string]string{}
	var includedMaps []string
	var interfaceFile string

	stdlibTokens, err := d.preprocessStdlib(defines)
	if err != nil {
		d.logf("⚠️  standard library not found: %v\n", err)
	}
	for name, value := range d.opts.Defines {
		defines[name] = value
	}

	reader := preprocessor.OSFileReader{}
	pp := preprocessor.New(reader, preprocessor.Options{
		Defines:      defines,
		LibraryPaths: d.opts.LibraryPaths,
		NoStandard:   d.opts.NoStandard,
	}, d.sink)
	mainTokens, maps, iface := pp.Preprocess(rootPath)
	includedMaps = append(includedMaps, maps...)
	if iface != "" {
		interfaceFile = iface
	}

	allTokens := append(append([]token.Token{}, stdlibTokens...), mainTokens...)

	var preprocessedSrc string
	if d.opts.DumpPreprocessor {
		preprocessedSrc = renderTokens(allTokens)
	}

	if d.sink.Exceeded() {
		return &Result{Sink: d.sink, PreprocessedSource: preprocessedSrc, IncludedMaps: includedMaps, IncludedInterface: interfaceFile}, fmt.Errorf("compiler: error budget exceeded during preprocessing")
	}

	indented := indent.Apply(allTokens, d.sink)

	stmts := d.parse(indented)
	if d.sink.Exceeded() {
		return &Result{Sink: d.sink, PreprocessedSource: preprocessedSrc, IncludedMaps: includedMaps, IncludedInterface: interfaceFile}, fmt.Errorf("compiler: error budget exceeded during parsing")
	}

	if !d.opts.NoOpts {
		stmts = fold.Stmts(stmts, d.sink)
	}

	tree := objtree.NewBuilder(d.sink, d.opts.NoStandard).Build(stmts)
	if d.sink.Exceeded() {
		return &Result{Tree: tree, Sink: d.sink, PreprocessedSource: preprocessedSrc, IncludedMaps: includedMaps, IncludedInterface: interfaceFile}, fmt.Errorf("compiler: error budget exceeded while building the object tree")
	}

	for _, proc := range tree.Procs {
		if d.sink.Exceeded() {
			break
		}
		codegen.EmitProc(tree, d.sink, proc)
	}

	return &Result{
		Tree:               tree,
		Sink:                d.sink,
		PreprocessedSource:  preprocessedSrc,
		IncludedMaps:        includedMaps,
		IncludedInterface:   interfaceFile,
	}, nil
}

// WriteJSON serializes res.Tree per spec.md §6 and writes it to outPath,
// including the .dmm side channel (SPEC_FULL.md §4) for every map the
// preprocessor resolved a #include to.
func (d *Driver) WriteJSON(res *Result, outPath string) error {
	maps := d.loadMaps(res.IncludedMaps)
	doc := jsonout.Build(res.Tree, res.Sink.OptionalErrors(optionalCodes), maps)
	if d.opts.Version != "" {
		doc.Metadata = d.opts.Version
	}
	return jsonout.WriteFile(doc, outPath)
}

// loadMaps parses every .dmm path the preprocessor resolved. A map that
// fails to load or parse is reported as a CodeMapLoadFailed warning and
// dropped rather than failing the whole write, the same tolerance
// preprocessStdlib gives a missing standard library.
func (d *Driver) loadMaps(paths []string) []jsonout.MapInput {
	var out []jsonout.MapInput
	for _, p := range paths {
		m, err := dmmap.Load(p)
		if err != nil {
			d.sink.Report(diag.New(diag.CodeMapLoadFailed, diag.Warning, token.Location{SourceFile: p}, "failed to load map: %v", err))
			continue
		}
		out = append(out, jsonout.MapInput{Path: p, Map: m})
	}
	return out
}

func (d *Driver) parse(tokens []token.Token) []ast.Stmt {
	p := parser.New(tokens, parser.Options{AllowVarDeclExpression: true}, d.sink)
	return p.Parse()
}

// preprocessStdlib locates DMStandard next to the running executable
// (spec.md §6) and preprocesses its entry file, folding Defines.dm's
// scanned integer constants into defines so they're visible to the
// user file's own macro expansion exactly like any other `-D` define.
// A missing library is reported to the caller but is never fatal.
func (d *Driver) preprocessStdlib(defines map[string]string) ([]token.Token, error) {
	if d.opts.NoStandard {
		return nil, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	dir, ok := stdlib.Locate(exe)
	if !ok {
		return nil, fmt.Errorf("%s not found next to %s", stdlib.DirName, exe)
	}

	consts, _ := stdlib.ScanDefines(dir)
	for name, v := range consts {
		defines[name] = strconv.FormatInt(v, 10)
	}

	reader := preprocessor.OSFileReader{}
	pp := preprocessor.New(reader, preprocessor.Options{LibraryPaths: d.opts.LibraryPaths}, d.sink)
	tokens, _, _ := pp.Preprocess(dir + string(os.PathSeparator) + stdlib.EntryFile)

	var out []token.Token
	for _, tok := range tokens {
		if tok.Kind == token.EOF {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

func renderTokens(tokens []token.Token) string {
	var out string
	for _, tok := range tokens {
		out += tok.Text
		if tok.Kind == token.NEWLINE {
			out += "\n"
		} else {
			out += " "
		}
	}
	return out
}
