// Package parser is a recursive-descent, precedence-climbing parser
// producing a dmc/ast tree from an indent-annotated token stream
// (spec.md §4.4).
//
// The peek/previous/advance/isMatch/consume cursor shape and the
// synchronize-on-error recovery loop are grounded on
// informatter-nilan's parser.Parser (parser/parser.go); this version
// replaces its brace/Lox-shaped statement grammar with DM's
// path-structured object/var/proc definitions and widens the
// expression ladder to the ~30-operator-class set spec.md §4.4
// specifies (path literals, derefs, null-conditional, compound
// assignment, ternary, ranges).
package parser

import (
	"dmc/ast"
	"dmc/diag"
	"dmc/path"
	"dmc/token"
)

// Options configures parsing behavior. AllowVarDeclExpression is carried
// here but no parse function reads it: a for-loop header always accepts
// a leading `var` declaration, and switch subjects and case values never
// accept one.
type Options struct {
	AllowVarDeclExpression bool
}

// maxNoProgressIterations guards against a statement/expression entry
// point that never advances the cursor (spec.md §4.4: "no progress"
// watchdog).
const maxNoProgressIterations = 10000

// maxNestingDepth guards recursive descent against pathological
// expression nesting (spec.md §4.4).
const maxNestingDepth = 250

// Parser holds the full token stream and a single cursor into it.
type Parser struct {
	tokens   []token.Token
	position int
	opts     Options
	sink     *diag.Sink

	nestingDepth int
	currentPath  path.Path
	inProcBody   bool
}

// New creates a Parser over an already indent-processed token stream.
func New(tokens []token.Token, opts Options, sink *diag.Sink) *Parser {
	return &Parser{tokens: tokens, opts: opts, sink: sink, currentPath: path.Root}
}

func (p *Parser) peek() token.Token {
	if p.position >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.position]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.position + offset
	if idx >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) previous() token.Token {
	if p.position == 0 {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.position-1]
}

func (p *Parser) isFinished() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) isMatch(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(kind token.Kind, msg string) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	p.error(diag.CodeBadToken, msg)
	return p.peek(), false
}

func (p *Parser) error(code diag.Code, format string, args ...any) {
	p.sink.Report(diag.New(code, diag.Error, p.peek().Location, format, args...))
}

// skipNewlines consumes any run of NEWLINE tokens, which are otherwise
// statement separators with no syntactic weight of their own.
func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

// Parse runs the parser over the whole token stream and returns the
// top-level statement sequence (a sequence of object statements,
// spec.md §4.4 "Grammar shape").
func (p *Parser) Parse() []ast.Stmt {
	var out []ast.Stmt
	p.skipNewlines()
	iterations := 0
	for !p.isFinished() {
		startPos := p.position
		stmt := p.topLevelStatement()
		if stmt != nil {
			out = append(out, stmt)
		}
		p.skipNewlines()
		iterations++
		if p.position == startPos {
			p.error(diag.CodeNoProgress, "parser made no progress at token %v; aborting", p.peek().Kind)
			p.advance()
		}
		if iterations > maxNoProgressIterations {
			p.error(diag.CodeNoProgress, "exceeded maximum top-level parse iterations")
			break
		}
	}
	return out
}

// topLevelStatement parses one path-structured object statement: a
// leading type path, optionally followed by an indented block of
// nested statements (object/var/proc definitions), or a bare
// `path = value` / `path(...)  body` single-line form.
func (p *Parser) topLevelStatement() (result ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); ok {
				p.synchronize()
				result = nil
				return
			}
			panic(r)
		}
	}()

	if !p.atPathStart() {
		p.error(diag.CodeBadStatement, "expected a type path at top level, got %v", p.peek().Kind)
		p.advance()
		return nil
	}

	loc := p.peek().Location
	pth := p.parsePath()
	return p.finishPathDefinition(loc, pth)
}

// atPathStart reports whether the cursor sits on a token that can begin
// a path-structured statement: an ordinary path (/, identifier, ./..)
// or one of the declaration keywords DM lets a statement open with
// directly, e.g. `var/x = 1` or `proc/f()` at the root scope (spec.md
// §4.4 examples).
func (p *Parser) atPathStart() bool {
	return p.check(token.SLASH) || p.check(token.IDENTIFIER) || p.check(token.DOT) || p.check(token.DOTDOT) ||
		isPathKeywordSegment(p.peek().Kind)
}

// finishPathDefinition resolves what a parsed path introduces: a new
// object scope with a block body, a var declaration/override, or a
// proc/verb definition — all keyed off the trailing path segment and
// what follows it, per spec.md §4.4/§4.6.
func (p *Parser) finishPathDefinition(loc token.Location, pth path.Path) ast.Stmt {
	last, hasLast := path.Last(pth)

	switch {
	case hasLast && (last == "proc" || last == "verb"):
		return p.procDefinitionsBlock(loc, pth, last == "verb")
	case hasLast && last == "var":
		return p.varDefinitionBlock(loc, pth)
	}

	// The single-line `owner/var/Type/name = value` form (spec.md §4.6,
	// example "var/x = 1 + 2"): "var" already got folded into pth by
	// parsePathTail since the declared name that follows it is itself a
	// valid path segment, so the last-segment switch above never fires.
	if owner, declType, name, ok := splitInlineVarPath(pth); ok {
		return p.inlineVarDef(loc, owner, declType, name)
	}

	// Likewise `owner/proc/name(...)` / `owner/verb/name(...)`: the name
	// folded into pth the same way, so it never lands on "proc"/"verb"
	// as the trailing segment the switch above checks for.
	if owner, name, isVerb, ok := splitInlineProcPath(pth); ok {
		return p.finishProcDef(loc, owner, name, isVerb)
	}

	if p.check(token.ASSIGN) {
		p.advance()
		value := p.expression()
		p.endStatement()
		owner := path.RemoveLast(pth)
		name, _ := path.Last(pth)
		return &ast.VarOverride{Base: ast.Base{Loc: loc}, Owner: owner, Name: name, Value: value}
	}

	if p.check(token.LPAREN) {
		return p.singleProcDefinition(loc, path.RemoveLast(pth), last)
	}

	def := &ast.ObjectDef{Base: ast.Base{Loc: loc}, Path: pth}
	if p.check(token.INDENT) {
		def.Body = p.block(pth)
	} else {
		p.endStatement()
	}
	return def
}

// globalVarOwner mirrors objtree's global-owner sentinel (a dmc/path
// value, so parser doesn't need to import objtree): a var declaration
// whose owner path has no object-path segments of its own — declared at
// the root scope, outside any object body — registers as a global
// constant instead of a root-object variable (spec.md §4.6).
var globalVarOwner = path.New(path.Absolute, "global")

// normalizeVarOwner maps the empty owner a root-scope `var/x = 1`
// produces onto globalVarOwner.
func normalizeVarOwner(owner path.Path) path.Path {
	if len(owner.Elements) == 0 {
		return globalVarOwner
	}
	return owner
}

// varDefinitionBlock handles `/path/var/Type/name = value` (single
// line) or `/path/var` followed by an indented block of var
// declarations (spec.md §4.6).
func (p *Parser) varDefinitionBlock(loc token.Location, varPath path.Path) ast.Stmt {
	owner := normalizeVarOwner(path.RemoveLast(varPath))

	if p.check(token.INDENT) {
		p.advance()
		p.skipNewlines()
		var stmts []ast.Stmt
		for !p.check(token.DEDENT) && !p.isFinished() {
			declType, mods := p.parseVarModifiersAndType()
			stmts = append(stmts, p.oneVarDef(p.peek().Location, owner, declType, mods))
			p.skipNewlines()
		}
		p.isMatch(token.DEDENT)
		return &ast.Block{Base: ast.Base{Loc: loc}, Stmts: stmts}
	}

	declType, mods := p.parseVarModifiersAndType()
	return p.oneVarDef(loc, owner, declType, mods)
}

func (p *Parser) parseVarModifiersAndType() (path.Path, ast.VarModifiers) {
	var mods ast.VarModifiers
	for {
		switch p.peek().Kind {
		case token.KW_CONST:
			mods.Const = true
		case token.KW_STATIC:
			mods.Static = true
		case token.KW_GLOBAL:
			mods.Global = true
		case token.KW_TMP:
			mods.Tmp = true
		case token.KW_FINAL:
			mods.Final = true
		default:
			var segs []string
			for p.check(token.IDENTIFIER) {
				segs = append(segs, p.advance().Text)
				if !p.isMatch(token.SLASH) {
					break
				}
			}
			if len(segs) == 0 {
				return path.Path{Kind: path.Relative}, mods
			}
			return path.New(path.Relative, segs[:len(segs)-1]...), mods
		}
		p.advance()
		p.isMatch(token.SLASH)
	}
}

// splitInlineVarPath finds a "var" segment anywhere in pth (not
// necessarily last) and splits the path around it: everything before is
// the declaring object, everything between "var" and the final segment
// is the declared type, and the final segment is the variable's name.
// Returns ok=false for paths with no "var" segment, or where "var" is
// itself the last segment (handled by varDefinitionBlock's block form
// instead).
func splitInlineVarPath(pth path.Path) (owner, declType path.Path, name string, ok bool) {
	for i, seg := range pth.Elements {
		if seg != "var" || i == len(pth.Elements)-1 {
			continue
		}
		rest := pth.Elements[i+1:]
		owner = normalizeVarOwner(path.New(pth.Kind, pth.Elements[:i]...))
		declType = path.New(path.Relative, rest[:len(rest)-1]...)
		return owner, declType, rest[len(rest)-1], true
	}
	return path.Path{}, path.Path{}, "", false
}

// inlineVarDef finishes the single-line `owner/var/Type/name = value`
// form once splitInlineVarPath has located name and declType; only the
// optional initializer remains in the token stream.
func (p *Parser) inlineVarDef(loc token.Location, owner, declType path.Path, name string) ast.Stmt {
	var value ast.Expr
	if p.isMatch(token.ASSIGN) {
		value = p.expression()
	}
	p.endStatement()
	return &ast.VarDef{Base: ast.Base{Loc: loc}, Owner: owner, DeclaredType: declType, Name: name, Value: value}
}

// splitInlineProcPath finds a "proc"/"verb" segment exactly one
// position before pth's last segment and splits it into the declaring
// object's path, whether it's a verb, and the proc's name. Mirrors
// splitInlineVarPath: `owner/proc/name(...)` folds into one path the
// same way `owner/var/name = value` does, since the name is itself a
// valid path segment. A "proc"/"verb" segment anywhere else isn't this
// form (it's either the bare block form, ending in "proc"/"verb"
// itself, or just a type path that happens to use a reserved word).
func splitInlineProcPath(pth path.Path) (owner path.Path, name string, isVerb, ok bool) {
	n := len(pth.Elements)
	if n < 2 {
		return path.Path{}, "", false, false
	}
	seg := pth.Elements[n-2]
	if seg != "proc" && seg != "verb" {
		return path.Path{}, "", false, false
	}
	return path.New(pth.Kind, pth.Elements[:n-2]...), pth.Elements[n-1], seg == "verb", true
}

func (p *Parser) oneVarDef(loc token.Location, owner path.Path, declType path.Path, mods ast.VarModifiers) ast.Stmt {
	var name string
	if p.check(token.IDENTIFIER) {
		name = p.advance().Text
	} else {
		p.error(diag.CodeBadDefinition, "expected a variable name")
	}
	var value ast.Expr
	if p.isMatch(token.ASSIGN) {
		value = p.expression()
	}
	p.endStatement()
	return &ast.VarDef{Base: ast.Base{Loc: loc}, Owner: owner, DeclaredType: declType, Modifiers: mods, Name: name, Value: value}
}

// procDefinitionsBlock handles `/path/proc` followed either by a single
// inline `name(...) body` or an indented block of several proc
// definitions under the same owner.
func (p *Parser) procDefinitionsBlock(loc token.Location, procPath path.Path, isVerb bool) ast.Stmt {
	owner := path.RemoveLast(procPath)

	if p.check(token.INDENT) {
		p.advance()
		p.skipNewlines()
		var stmts []ast.Stmt
		for !p.check(token.DEDENT) && !p.isFinished() {
			name := ""
			if p.check(token.IDENTIFIER) {
				name = p.advance().Text
			}
			stmts = append(stmts, p.finishProcDef(p.peek().Location, owner, name, isVerb))
			p.skipNewlines()
		}
		p.isMatch(token.DEDENT)
		return &ast.Block{Base: ast.Base{Loc: loc}, Stmts: stmts}
	}

	name := ""
	if p.check(token.IDENTIFIER) {
		name = p.advance().Text
	}
	return p.finishProcDef(loc, owner, name, isVerb)
}

// singleProcDefinition handles the case where a proc is defined on a
// path without a preceding `proc`/`verb` segment firing first (DM
// allows `/mob/player/Bump(atom/A)` shorthand, resolved to a proc
// definition when a parenthesized parameter list follows a path).
func (p *Parser) singleProcDefinition(loc token.Location, owner path.Path, name string) ast.Stmt {
	return p.finishProcDef(loc, owner, name, false)
}

func (p *Parser) finishProcDef(loc token.Location, owner path.Path, name string, isVerb bool) ast.Stmt {
	params := p.parseParamList()
	attrs := ast.ProcAttrs{IsVerb: isVerb, SetFlags: map[string]ast.Expr{}}
	var body []ast.Stmt
	if p.check(token.INDENT) {
		savedProcBody := p.inProcBody
		p.inProcBody = true
		body = p.block(path.Combine(owner, path.New(path.Relative, name)))
		p.inProcBody = savedProcBody
		body, attrs = extractSetClauses(body, attrs)
	} else {
		p.endStatement()
	}
	return &ast.ProcDef{Base: ast.Base{Loc: loc}, Owner: owner, Name: name, Params: params, Attrs: attrs, Body: body}
}

// extractSetClauses pulls a leading run of `set name = value` verb
// metadata statements out of a proc body into ProcAttrs.SetFlags, per
// spec.md §4.6's verb attribute handling.
func extractSetClauses(body []ast.Stmt, attrs ast.ProcAttrs) ([]ast.Stmt, ast.ProcAttrs) {
	i := 0
	for i < len(body) {
		es, ok := body[i].(*ast.ExprStmt)
		if !ok {
			break
		}
		assign, ok := es.X.(*ast.Assign)
		if !ok {
			break
		}
		ident, ok := assign.Target.(*ast.Identifier)
		if !ok {
			break
		}
		switch ident.Name {
		case "name":
			if lit, ok := assign.Value.(*ast.Literal); ok && lit.Kind == ast.StringLiteral {
				attrs.VerbName = lit.Str
			}
		case "category":
			if lit, ok := assign.Value.(*ast.Literal); ok && lit.Kind == ast.StringLiteral {
				attrs.VerbCategory = lit.Str
			}
		case "desc":
			if lit, ok := assign.Value.(*ast.Literal); ok && lit.Kind == ast.StringLiteral {
				attrs.VerbDesc = lit.Str
			}
		case "invisibility":
			if lit, ok := assign.Value.(*ast.Literal); ok && lit.Kind == ast.IntLiteral {
				attrs.Invisibility = int(lit.Int)
			}
		default:
			attrs.SetFlags[ident.Name] = assign.Value
		}
		i++
	}
	return body[i:], attrs
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	if _, ok := p.consume(token.LPAREN, "expected '(' to begin a parameter list"); !ok {
		return params
	}
	if p.check(token.RPAREN) {
		p.advance()
		return params
	}
	for {
		declType, _ := p.parseVarModifiersAndType()
		name := ""
		if p.check(token.IDENTIFIER) {
			name = p.advance().Text
		}
		var def ast.Expr
		if p.isMatch(token.ASSIGN) {
			def = p.expression()
		}
		params = append(params, ast.Param{Name: name, DeclaredType: declType, Default: def})
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	p.consume(token.RPAREN, "expected ')' to close parameter list")
	return params
}

// endStatement consumes the statement terminator: a newline, a
// semicolon, or the boundary of a dedent/EOF (all acceptable line
// endings in DM's layout).
func (p *Parser) endStatement() {
	if p.check(token.NEWLINE) || p.check(token.SEMICOLON) {
		p.advance()
		return
	}
	if p.check(token.DEDENT) || p.check(token.EOF) {
		return
	}
}

// parsePath parses a type-path literal in statement-leading context:
// `/a/b/c`, `a/b`, `..`, `.`.
func (p *Parser) parsePath() path.Path {
	kind := path.Relative
	switch {
	case p.check(token.SLASH):
		p.advance()
		kind = path.Absolute
	case p.check(token.DOTDOT):
		p.advance()
		kind = path.Upward
		return p.parsePathTail(kind)
	case p.check(token.DOT):
		p.advance()
		kind = path.Downward
		return p.parsePathTail(kind)
	}
	return p.parsePathTail(kind)
}

func (p *Parser) parsePathTail(kind path.Kind) path.Path {
	var segs []string
	for p.check(token.IDENTIFIER) || isPathKeywordSegment(p.peek().Kind) {
		segs = append(segs, p.advance().Text)
		if !p.isMatch(token.SLASH) {
			break
		}
	}
	return path.New(kind, segs...)
}

// isPathKeywordSegment allows DM keywords like `var`/`proc`/`verb` to
// appear as ordinary path segments (they are reserved words but also
// legal path components, e.g. `/obj/var`).
func isPathKeywordSegment(k token.Kind) bool {
	switch k {
	case token.KW_VAR, token.KW_PROC, token.KW_VERB, token.KW_STATIC, token.KW_GLOBAL,
		token.KW_TMP, token.KW_FINAL, token.KW_NEW, token.KW_DEL, token.KW_NULL, token.KW_CALL:
		return true
	}
	return false
}

// block parses an INDENT ... DEDENT delimited sequence of statements,
// threading currentPath so nested statements see the combined scope
// (spec.md §4.6).
func (p *Parser) block(scope path.Path) []ast.Stmt {
	saved := p.currentPath
	p.currentPath = scope
	defer func() { p.currentPath = saved }()

	p.consume(token.INDENT, "expected an indented block")
	p.skipNewlines()
	var out []ast.Stmt
	iterations := 0
	for !p.check(token.DEDENT) && !p.isFinished() {
		startPos := p.position
		stmt := p.blockStatement()
		if stmt != nil {
			out = append(out, stmt)
		}
		p.skipNewlines()
		iterations++
		if p.position == startPos {
			p.advance()
		}
		if iterations > maxNoProgressIterations {
			break
		}
	}
	p.isMatch(token.DEDENT)
	return out
}

// parseError is panicked by statement/definition entry points on a
// hard syntax error so the nearest enclosing recovery point can
// synchronize (spec.md §4.4 panic mode).
type parseError struct{}

func (p *Parser) synchronize() {
	for !p.isFinished() {
		if p.previous().Kind == token.NEWLINE || p.previous().Kind == token.SEMICOLON ||
			p.previous().Kind == token.DEDENT {
			return
		}
		if p.check(token.DEDENT) || p.check(token.EOF) {
			return
		}
		p.advance()
	}
}
