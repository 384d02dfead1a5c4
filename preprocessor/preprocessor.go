// Package preprocessor implements DM's C-style text preprocessor:
// directive handling, recursive macro expansion, conditional
// compilation, and transitive file inclusion with cycle prevention
// (spec.md §4.1).
//
// Grounded on original_source/include/DMPreprocessor.h's FileContext
// include stack, Defines_ table, and LastIfEvaluations_ conditional
// stack; adapted from that header's streaming (GetNextToken) design
// into a single eager Preprocess call that returns the full expanded
// token sequence, matching how informatter-nilan's Lexer.Scan returns
// the whole stream at once rather than one token at a time.
package preprocessor

import (
	"fmt"
	"path/filepath"
	"strings"

	"dmc/diag"
	"dmc/lexer"
	"dmc/token"
)

// FileReader abstracts the filesystem so the preprocessor (and its
// tests) never depend on real disk I/O directly.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// Options configures one preprocessing run.
type Options struct {
	Defines       map[string]string // initial command-line -D definitions
	LibraryPaths  []string
	NoStandard    bool
	MaxIncludeDepth int
}

type fileContext struct {
	path     string
	dir      string
	lex      *lexer.Lexer
	tokens   []token.Token
	pos      int
	inStdlib bool
}

// Preprocessor drives one compilation unit's directive handling and
// macro expansion. Create one per compile, not one per file.
type Preprocessor struct {
	reader  FileReader
	opts    Options
	sink    *diag.Sink

	defines map[string]Macro

	stack       []*fileContext
	includeChain []string
	included    map[string]bool

	condStack []condFrame

	includedMaps      []string
	includedInterface string

	pushback []pbTok
}

// pbTok is a pushed-back token tagged with the set of macro names that
// must not re-expand within it — the "blue paint" classic preprocessors
// apply to a macro's own expansion so `#define FOO FOO` terminates
// instead of looping forever, without requiring a global guard that
// would also block legitimate later uses of the same macro name.
type pbTok struct {
	tok      token.Token
	disabled map[string]bool
}

func (t pbTok) isDisabled(name string) bool {
	return t.disabled != nil && t.disabled[name]
}

type condFrame struct {
	taken    bool // some branch in this chain has already been taken
	active   bool // the current branch is live
	parentActive bool
}

// New creates a Preprocessor ready to process a root file.
func New(reader FileReader, opts Options, sink *diag.Sink) *Preprocessor {
	p := &Preprocessor{
		reader:    reader,
		opts:      opts,
		sink:      sink,
		defines:   map[string]Macro{"__LINE__": builtinLine{}, "__FILE__": builtinFile{}, "DM_VERSION": builtinVersion{515}, "DM_BUILD": builtinBuild{1633}},
		included:  map[string]bool{},
	}
	for name, value := range opts.Defines {
		if value == "" {
			value = "1"
		}
		p.defines[name] = TextMacro{Body: []token.Token{token.NewInt(value, parseIntLoose(value), token.Internal)}}
	}
	return p
}

func parseIntLoose(s string) int64 {
	var v int64
	fmt.Sscanf(s, "%d", &v)
	return v
}

// Preprocess runs the full pipeline over rootPath and returns the
// expanded token stream plus the two side lists (spec.md §4.1): maps
// discovered via `#include "x.dmm"`, and at most one interface file.
func (p *Preprocessor) Preprocess(rootPath string) ([]token.Token, []string, string) {
	if !p.pushInclude(rootPath, token.Internal, false) {
		return nil, p.includedMaps, p.includedInterface
	}

	var out []token.Token
	for {
		if p.sink.Exceeded() {
			break
		}
		tok, ok := p.nextExpanded()
		if !ok {
			break
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return out, p.includedMaps, p.includedInterface
}

func (p *Preprocessor) isStdlibFile(path string) bool {
	return !p.opts.NoStandard && strings.Contains(filepath.ToSlash(path), "DMStandard/")
}

func (p *Preprocessor) pushInclude(path string, loc token.Location, idempotentSkipOk bool) bool {
	norm := filepath.Clean(path)
	for _, chain := range p.includeChain {
		if chain == norm {
			chainStr := strings.Join(append(append([]string{}, p.includeChain...), norm), " -> ")
			p.sink.Report(diag.New(diag.CodeIncludeCycle, diag.Error, loc, "include cycle detected: %s", chainStr))
			return false
		}
	}
	if idempotentSkipOk && p.included[norm] {
		return true
	}
	text, err := p.reader.ReadFile(norm)
	if err != nil {
		p.sink.Report(diag.New(diag.CodeMissingInclude, diag.Error, loc, "cannot read included file %q: %v", norm, err))
		return false
	}
	p.included[norm] = true
	p.includeChain = append(p.includeChain, norm)
	ctx := &fileContext{
		path:     norm,
		dir:      filepath.Dir(norm),
		inStdlib: p.isStdlibFile(norm),
	}
	lx := lexer.New(norm, text, ctx.inStdlib, p.sink)
	ctx.tokens = lx.Scan()
	p.stack = append(p.stack, ctx)
	return true
}

func (p *Preprocessor) popInclude() {
	if len(p.stack) == 0 {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.includeChain) > 0 {
		p.includeChain = p.includeChain[:len(p.includeChain)-1]
	}
}

func (p *Preprocessor) current() *fileContext {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// rawNextPB returns the next token straight from the lexer stream
// (pre-macro-expansion, pre-directive), carrying whatever "disabled
// macro names" set it was tagged with when it was pushed back from a
// prior expansion. It pops exhausted file contexts and synthesizes EOF
// when the stack empties.
func (p *Preprocessor) rawNextPB() (pbTok, bool) {
	if len(p.pushback) > 0 {
		t := p.pushback[len(p.pushback)-1]
		p.pushback = p.pushback[:len(p.pushback)-1]
		return t, true
	}
	for {
		ctx := p.current()
		if ctx == nil {
			return pbTok{tok: token.New(token.EOF, "", token.Internal)}, false
		}
		if ctx.pos >= len(ctx.tokens) {
			p.popInclude()
			continue
		}
		tok := ctx.tokens[ctx.pos]
		ctx.pos++
		if tok.Kind == token.EOF {
			p.popInclude()
			continue
		}
		return pbTok{tok: tok}, true
	}
}

func (p *Preprocessor) rawNext() (token.Token, bool) {
	t, ok := p.rawNextPB()
	return t.tok, ok
}

func (p *Preprocessor) push(tok token.Token) {
	p.pushback = append(p.pushback, pbTok{tok: tok})
}

// pushExpansion pushes a macro's expansion back onto the stream, each
// token tagged with `disabled` — the calling macro's name added to
// whatever set the triggering identifier already carried, so a nested
// expansion inherits its ancestors' guards (blue paint).
func (p *Preprocessor) pushExpansion(toks []token.Token, disabled map[string]bool) {
	for i := len(toks) - 1; i >= 0; i-- {
		p.pushback = append(p.pushback, pbTok{tok: toks[i], disabled: disabled})
	}
}

// conditionalActive reports whether tokens should currently be emitted,
// i.e. every enclosing #if/#elif/#else branch on the stack is live.
func (p *Preprocessor) conditionalActive() bool {
	for _, f := range p.condStack {
		if !f.active {
			return false
		}
	}
	return true
}

// nextExpanded returns the next token after directive handling and
// macro expansion, or ok=false at true end of input.
func (p *Preprocessor) nextExpanded() (token.Token, bool) {
	for {
		pb, ok := p.rawNextPB()
		if !ok {
			return pb.tok, true // EOF sentinel already constructed by rawNextPB
		}
		tok := pb.tok

		if tok.IsDirective() {
			p.handleDirective(tok)
			continue
		}

		if !p.conditionalActive() {
			continue
		}

		if tok.Kind == token.WHITESPACE || tok.Kind == token.NEWLINE {
			return tok, true
		}

		if tok.Kind == token.IDENTIFIER && !pb.isDisabled(tok.Text) {
			if macro, ok := p.defines[tok.Text]; ok {
				p.expandMacro(tok, macro, pb.disabled)
				continue
			}
		}

		return tok, true
	}
}

// expandMacro expands one macro call and pushes its result back tagged
// with its own name added to the inherited disabled set, so recursive
// self-reference (direct or indirect) terminates by leaving the
// identifier unexpanded on the next encounter (spec.md §8: "a macro
// expanding to itself... terminates; the identifier is left as an
// identifier token").
func (p *Preprocessor) expandMacro(name token.Token, macro Macro, inherited map[string]bool) {
	var args [][]token.Token
	if macro.HasParameters() {
		args = p.readMacroArguments()
	}
	expansion := macro.Expand(args, name.Location)
	disabled := make(map[string]bool, len(inherited)+1)
	for k := range inherited {
		disabled[k] = true
	}
	disabled[name.Text] = true
	p.pushExpansion(expansion, disabled)
}

// readMacroArguments consumes a parenthesized, comma-separated argument
// list from the upstream token source, capturing each argument as a
// token vector (spec.md §4.1: "multi-token arguments").
func (p *Preprocessor) readMacroArguments() [][]token.Token {
	var args [][]token.Token

	tok, ok := p.rawNext()
	for ok && (tok.Kind == token.WHITESPACE) {
		tok, ok = p.rawNext()
	}
	if !ok || tok.Kind != token.LPAREN {
		if ok {
			p.push(tok)
		}
		return args
	}

	depth := 1
	var current []token.Token
	for {
		tok, ok = p.rawNext()
		if !ok {
			break
		}
		switch tok.Kind {
		case token.LPAREN:
			depth++
			current = append(current, tok)
		case token.RPAREN:
			depth--
			if depth == 0 {
				if len(current) > 0 || len(args) > 0 {
					args = append(args, current)
				}
				return args
			}
			current = append(current, tok)
		case token.COMMA:
			if depth == 1 {
				args = append(args, current)
				current = nil
				continue
			}
			current = append(current, tok)
		case token.WHITESPACE, token.NEWLINE:
			// collapsed out of argument token vectors
		default:
			current = append(current, tok)
		}
	}
	return args
}

func (p *Preprocessor) handleDirective(tok token.Token) {
	switch tok.Kind {
	case token.DIR_INCLUDE:
		if p.conditionalActive() {
			p.handleInclude(tok)
		} else {
			p.skipRestOfLine()
		}
	case token.DIR_DEFINE:
		if p.conditionalActive() {
			p.handleDefine(tok)
		} else {
			p.skipRestOfLine()
		}
	case token.DIR_UNDEF:
		if p.conditionalActive() {
			p.handleUndef(tok)
		} else {
			p.skipRestOfLine()
		}
	case token.DIR_IF:
		p.handleIf(tok)
	case token.DIR_IFDEF:
		p.handleIfdef(tok, true)
	case token.DIR_IFNDEF:
		p.handleIfdef(tok, false)
	case token.DIR_ELIF:
		p.handleElif(tok)
	case token.DIR_ELSE:
		p.handleElse(tok)
	case token.DIR_ENDIF:
		p.handleEndif(tok)
	case token.DIR_ERROR:
		line := p.readLineTokens()
		if p.conditionalActive() {
			p.sink.Report(diag.New(diag.CodeDirectiveError, diag.Error, tok.Location, "#error %s", tokensToText(line)))
		}
	case token.DIR_WARN:
		line := p.readLineTokens()
		if p.conditionalActive() {
			p.sink.Report(diag.New(diag.CodeDirectiveWarning, diag.Warning, tok.Location, "#warning %s", tokensToText(line)))
		}
	case token.DIR_PRAGMA:
		p.skipRestOfLine()
	}
}

func tokensToText(toks []token.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func (p *Preprocessor) skipRestOfLine() {
	for {
		tok, ok := p.rawNext()
		if !ok || tok.Kind == token.NEWLINE || tok.Kind == token.EOF {
			if ok && tok.Kind == token.NEWLINE {
				p.push(tok)
			}
			return
		}
	}
}

func (p *Preprocessor) readLineTokens() []token.Token {
	var out []token.Token
	for {
		tok, ok := p.rawNext()
		if !ok || tok.Kind == token.NEWLINE || tok.Kind == token.EOF {
			if ok && tok.Kind == token.NEWLINE {
				p.push(tok)
			}
			return out
		}
		if tok.Kind != token.WHITESPACE {
			out = append(out, tok)
		}
	}
}

func (p *Preprocessor) handleInclude(tok token.Token) {
	line := p.readLineTokens()
	if len(line) == 0 {
		p.sink.Report(diag.New(diag.CodeMalformedDirective, diag.Error, tok.Location, "#include requires a file path"))
		return
	}
	raw := line[0].Value.Str
	if raw == "" {
		raw = line[0].Text
	}
	resolved := p.resolvePath(raw)
	ext := strings.ToLower(filepath.Ext(resolved))
	switch ext {
	case ".dmm":
		p.includedMaps = append(p.includedMaps, resolved)
	case ".dmf", ".dmi_ui":
		if p.includedInterface != "" {
			p.sink.Report(diag.New(diag.CodeMalformedDirective, diag.Warning, tok.Location, "multiple interface files included; %q replaces %q", resolved, p.includedInterface))
		}
		p.includedInterface = resolved
	default:
		p.pushInclude(resolved, tok.Location, true)
	}
}

func (p *Preprocessor) resolvePath(raw string) string {
	if filepath.IsAbs(raw) {
		return raw
	}
	if ctx := p.current(); ctx != nil {
		candidate := filepath.Join(ctx.dir, raw)
		if _, err := p.reader.ReadFile(candidate); err == nil {
			return candidate
		}
	}
	for _, lib := range p.opts.LibraryPaths {
		candidate := filepath.Join(lib, raw)
		if _, err := p.reader.ReadFile(candidate); err == nil {
			return candidate
		}
	}
	return raw
}

func (p *Preprocessor) handleDefine(tok token.Token) {
	nameTok, ok := p.rawNext()
	if !ok || nameTok.Kind != token.IDENTIFIER {
		p.sink.Report(diag.New(diag.CodeMalformedMacro, diag.Error, tok.Location, "#define requires a macro name"))
		p.skipRestOfLine()
		return
	}
	name := nameTok.Text

	next, ok := p.rawNext()
	if ok && next.Kind == token.LPAREN {
		var params []string
		for {
			pt, ok := p.rawNext()
			if !ok || pt.Kind == token.RPAREN {
				break
			}
			if pt.Kind == token.IDENTIFIER {
				params = append(params, pt.Text)
			}
		}
		body := p.readLineTokens()
		p.defines[name] = FunctionMacro{Parameters: params, Body: body}
		return
	}
	if ok {
		p.push(next)
	}
	body := p.readLineTokens()
	p.defines[name] = TextMacro{Body: body}
}

func (p *Preprocessor) handleUndef(tok token.Token) {
	nameTok, ok := p.rawNext()
	if ok && nameTok.Kind == token.IDENTIFIER {
		delete(p.defines, nameTok.Text)
	}
	p.skipRestOfLine()
}

func (p *Preprocessor) handleIf(tok token.Token) {
	line := p.readLineTokens()
	result := false
	if p.conditionalActive() {
		result = p.evaluateCondition(line)
	}
	p.condStack = append(p.condStack, condFrame{taken: result, active: result, parentActive: p.conditionalActive()})
}

func (p *Preprocessor) handleIfdef(tok token.Token, wantDefined bool) {
	nameTok, ok := p.rawNext()
	p.skipRestOfLine()
	result := false
	if ok && nameTok.Kind == token.IDENTIFIER {
		_, defined := p.defines[nameTok.Text]
		result = defined == wantDefined
	}
	parent := p.conditionalActive()
	if !parent {
		result = false
	}
	p.condStack = append(p.condStack, condFrame{taken: result, active: result, parentActive: parent})
}

func (p *Preprocessor) handleElif(tok token.Token) {
	line := p.readLineTokens()
	if len(p.condStack) == 0 {
		p.sink.Report(diag.New(diag.CodeUnbalancedConditional, diag.Error, tok.Location, "#elif without matching #if"))
		return
	}
	top := &p.condStack[len(p.condStack)-1]
	if !top.parentActive || top.taken {
		top.active = false
		return
	}
	result := p.evaluateCondition(line)
	top.active = result
	if result {
		top.taken = true
	}
}

func (p *Preprocessor) handleElse(tok token.Token) {
	p.skipRestOfLine()
	if len(p.condStack) == 0 {
		p.sink.Report(diag.New(diag.CodeUnbalancedConditional, diag.Error, tok.Location, "#else without matching #if"))
		return
	}
	top := &p.condStack[len(p.condStack)-1]
	if !top.parentActive || top.taken {
		top.active = false
		return
	}
	top.active = true
	top.taken = true
}

func (p *Preprocessor) handleEndif(tok token.Token) {
	p.skipRestOfLine()
	if len(p.condStack) == 0 {
		p.sink.Report(diag.New(diag.CodeUnbalancedConditional, diag.Error, tok.Location, "#endif without matching #if"))
		return
	}
	p.condStack = p.condStack[:len(p.condStack)-1]
}
