// Expression parsing: the precedence-climbing ladder spec.md §4.4
// specifies, tightest to loosest. Grounded on informatter-nilan's
// or->and->equality->comparison->term->factor->unary->primary chain
// (parser/parser.go), extended upward with ternary/assignment and
// downward with DM's path/deref/index/call postfix chain and the
// extra operator classes (**, shift, bitwise, equivalence, ranges).
package parser

import (
	"dmc/ast"
	"dmc/diag"
	"dmc/lexer"
	"dmc/token"
)

func (p *Parser) expression() ast.Expr {
	p.nestingDepth++
	defer func() { p.nestingDepth-- }()
	if p.nestingDepth > maxNestingDepth {
		p.error(diag.CodeStackOverflow, "expression nesting exceeds maximum depth")
		panic(parseError{})
	}
	return p.assignment()
}

func (p *Parser) assignment() ast.Expr {
	left := p.ternary()
	loc := p.peek().Location
	switch p.peek().Kind {
	case token.ASSIGN, token.COLON_ASSIGN:
		p.advance()
		value := p.assignment()
		return &ast.Assign{Base: ast.Base{Loc: loc}, Target: left, Value: value}
	}
	if op, ok := compoundOpFor(p.peek().Kind); ok {
		p.advance()
		value := p.assignment()
		return &ast.CompoundAssign{Base: ast.Base{Loc: loc}, Op: op, Target: left, Value: value}
	}
	return left
}

func compoundOpFor(k token.Kind) (ast.CompoundAssignOp, bool) {
	switch k {
	case token.PLUS_ASSIGN:
		return ast.CompAddAssign, true
	case token.MINUS_ASSIGN:
		return ast.CompSubAssign, true
	case token.STAR_ASSIGN:
		return ast.CompMulAssign, true
	case token.SLASH_ASSIGN:
		return ast.CompDivAssign, true
	case token.PERCENT_ASSIGN:
		return ast.CompModAssign, true
	case token.POW_ASSIGN:
		return ast.CompPowAssign, true
	case token.AMP_ASSIGN:
		return ast.CompBitAndAssign, true
	case token.PIPE_ASSIGN:
		return ast.CompBitOrAssign, true
	case token.CARET_ASSIGN:
		return ast.CompBitXorAssign, true
	case token.LSHIFT_ASSIGN:
		return ast.CompShlAssign, true
	case token.RSHIFT_ASSIGN:
		return ast.CompShrAssign, true
	case token.OR_OR_ASSIGN:
		return ast.CompOrOrAssign, true
	case token.AND_AND_ASSIGN:
		return ast.CompAndAndAssign, true
	}
	return 0, false
}

// ternary handles both `cond ? then : else` and the elvis shorthand
// `cond ?: else`.
func (p *Parser) ternary() ast.Expr {
	cond := p.logicalOr()
	if p.check(token.QCOLON) {
		loc := p.advance().Location
		elseE := p.assignment()
		return &ast.Ternary{Base: ast.Base{Loc: loc}, Cond: cond, Then: cond, Else: elseE}
	}
	if p.check(token.QUESTION) {
		loc := p.advance().Location
		thenE := p.assignment()
		p.consume(token.COLON, "expected ':' in ternary expression")
		elseE := p.assignment()
		return &ast.Ternary{Base: ast.Base{Loc: loc}, Cond: cond, Then: thenE, Else: elseE}
	}
	return cond
}

func (p *Parser) logicalOr() ast.Expr {
	left := p.logicalAnd()
	for p.check(token.OR_OR) || p.check(token.KW_OR) {
		loc := p.advance().Location
		right := p.logicalAnd()
		left = &ast.Logical{Base: ast.Base{Loc: loc}, Op: ast.LogicalOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) logicalAnd() ast.Expr {
	left := p.bitwiseOr()
	for p.check(token.AND_AND) || p.check(token.KW_AND) {
		loc := p.advance().Location
		right := p.bitwiseOr()
		left = &ast.Logical{Base: ast.Base{Loc: loc}, Op: ast.LogicalAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseOr() ast.Expr {
	left := p.bitwiseXor()
	for p.check(token.PIPE) {
		loc := p.advance().Location
		right := p.bitwiseXor()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: ast.OpBitOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseXor() ast.Expr {
	left := p.bitwiseAnd()
	for p.check(token.CARET) {
		loc := p.advance().Location
		right := p.bitwiseAnd()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: ast.OpBitXor, Left: left, Right: right}
	}
	return left
}

func (p *Parser) bitwiseAnd() ast.Expr {
	left := p.equality()
	for p.check(token.AMP) {
		loc := p.advance().Location
		right := p.equality()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: ast.OpBitAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) equality() ast.Expr {
	left := p.relational()
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case token.EQ:
			op = ast.OpEq
		case token.NE:
			op = ast.OpNe
		case token.TILDE_EQ:
			op = ast.OpEquivEq
		case token.TILDE_BANG:
			op = ast.OpEquivNe
		default:
			return left
		}
		loc := p.advance().Location
		right := p.relational()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) relational() ast.Expr {
	left := p.shift()
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case token.LT:
			op = ast.OpLt
		case token.LE:
			op = ast.OpLe
		case token.GT:
			op = ast.OpGt
		case token.GE:
			op = ast.OpGe
		default:
			return left
		}
		loc := p.advance().Location
		right := p.shift()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) shift() ast.Expr {
	left := p.additive()
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case token.LSHIFT:
			op = ast.OpShl
		case token.RSHIFT:
			op = ast.OpShr
		default:
			return left
		}
		loc := p.advance().Location
		right := p.additive()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: op, Left: left, Right: right}
	}
}

// additive also covers DM's implicit string-concatenation form: the
// parser keeps emitting a plain OpAdd node for `+`, and when both
// operands are constant strings ast.foldBinary's OpAdd case folds them
// into a single string literal.
func (p *Parser) additive() ast.Expr {
	left := p.multiplicative()
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case token.PLUS:
			op = ast.OpAdd
		case token.MINUS:
			op = ast.OpSub
		default:
			return left
		}
		loc := p.advance().Location
		right := p.multiplicative()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) multiplicative() ast.Expr {
	left := p.power()
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case token.STAR:
			op = ast.OpMul
		case token.SLASH:
			op = ast.OpDiv
		case token.PERCENT:
			op = ast.OpMod
		default:
			return left
		}
		loc := p.advance().Location
		right := p.power()
		left = &ast.Binary{Base: ast.Base{Loc: loc}, Op: op, Left: left, Right: right}
	}
}

// power is right-associative: 2**3**2 == 2**(3**2).
func (p *Parser) power() ast.Expr {
	left := p.unary()
	if p.check(token.POW) {
		loc := p.advance().Location
		right := p.power()
		return &ast.Binary{Base: ast.Base{Loc: loc}, Op: ast.OpPow, Left: left, Right: right}
	}
	return left
}

func (p *Parser) unary() ast.Expr {
	switch p.peek().Kind {
	case token.MINUS:
		loc := p.advance().Location
		return &ast.Unary{Base: ast.Base{Loc: loc}, Op: ast.UnaryNeg, Operand: p.unary()}
	case token.BANG, token.KW_NOT:
		loc := p.advance().Location
		return &ast.Unary{Base: ast.Base{Loc: loc}, Op: ast.UnaryNot, Operand: p.unary()}
	case token.TILDE:
		loc := p.advance().Location
		return &ast.Unary{Base: ast.Base{Loc: loc}, Op: ast.UnaryBitNot, Operand: p.unary()}
	case token.INC:
		loc := p.advance().Location
		return &ast.IncDec{Base: ast.Base{Loc: loc}, Op: ast.PreInc, Operand: p.unary()}
	case token.DEC:
		loc := p.advance().Location
		return &ast.IncDec{Base: ast.Base{Loc: loc}, Op: ast.PreDec, Operand: p.unary()}
	case token.KW_NEW:
		return p.newExpression()
	}
	return p.postfix()
}

// newExpression parses `new Type(Args...)`, `new (exprType)(Args...)`,
// and the bare `new Type` form with no argument list.
func (p *Parser) newExpression() ast.Expr {
	loc := p.advance().Location
	var typeExpr ast.Expr
	switch {
	case p.check(token.SLASH) || p.check(token.DOT) || p.check(token.DOTDOT) || p.check(token.IDENTIFIER):
		pth := p.parsePath()
		typeExpr = &ast.PathExpr{Base: ast.Base{Loc: loc}, Path: pth}
	case p.check(token.LPAREN):
		p.advance()
		typeExpr = p.expression()
		p.consume(token.RPAREN, "expected ')' after computed new-type expression")
	}
	var args []ast.Expr
	if p.check(token.LPAREN) {
		p.advance()
		args = p.parseArgList()
	}
	return &ast.New{Base: ast.Base{Loc: loc}, Type: typeExpr, Args: args}
}

// postfix handles call/index/member-deref/post-inc-dec chains applied
// to a primary expression, left to right.
//
// Note: DM's `:` dynamic-dispatch deref is deliberately not
// recognized here — it is syntactically ambiguous with the ternary
// `cond ? then : else` colon under one-token lookahead, and resolving
// that needs backtracking or a statement-level hint this parser
// doesn't carry. `.`, `::`, and `?.` cover the overwhelming majority
// of real DM member access and are fully supported.
func (p *Parser) postfix() ast.Expr {
	expr := p.primary()
	for {
		switch p.peek().Kind {
		case token.LPAREN:
			loc := p.advance().Location
			args := p.parseArgList()
			expr = p.callFrom(loc, expr, args)
		case token.LBRACKET:
			loc := p.advance().Location
			key := p.expression()
			p.consume(token.RBRACKET, "expected ']'")
			expr = &ast.Index{Base: ast.Base{Loc: loc}, Receiver: expr, Key: key}
		case token.QLBRACK:
			loc := p.advance().Location
			key := p.expression()
			p.consume(token.RBRACKET, "expected ']'")
			expr = &ast.Index{Base: ast.Base{Loc: loc}, Receiver: expr, Key: key, NullCondition: true}
		case token.DOT:
			loc := p.advance().Location
			expr = &ast.Deref{Base: ast.Base{Loc: loc}, Receiver: expr, Kind: ast.DerefDot, Member: p.consumeMemberName()}
		case token.UPWARD_DOT:
			loc := p.advance().Location
			expr = &ast.Deref{Base: ast.Base{Loc: loc}, Receiver: expr, Kind: ast.DerefUpward, Member: p.consumeMemberName()}
		case token.QDOT:
			loc := p.advance().Location
			expr = &ast.Deref{Base: ast.Base{Loc: loc}, Receiver: expr, Kind: ast.DerefNullSafe, Member: p.consumeMemberName()}
		case token.INC:
			loc := p.advance().Location
			expr = &ast.IncDec{Base: ast.Base{Loc: loc}, Op: ast.PostInc, Operand: expr}
		case token.DEC:
			loc := p.advance().Location
			expr = &ast.IncDec{Base: ast.Base{Loc: loc}, Op: ast.PostDec, Operand: expr}
		default:
			return expr
		}
	}
}

// callFrom folds a just-parsed argument list onto its callee: a bare
// identifier or a deref chain becomes a named Call (receiver implicit
// or the deref's receiver); anything else is an indirect call through
// a computed callee expression.
func (p *Parser) callFrom(loc token.Location, callee ast.Expr, args []ast.Expr) ast.Expr {
	switch c := callee.(type) {
	case *ast.Identifier:
		return &ast.Call{Base: ast.Base{Loc: loc}, Name: c.Name, Args: args}
	case *ast.Deref:
		return &ast.Call{Base: ast.Base{Loc: loc}, Receiver: c.Receiver, Name: c.Member, Args: args}
	default:
		return &ast.Call{Base: ast.Base{Loc: loc}, Receiver: callee, Args: args}
	}
}

func (p *Parser) consumeMemberName() string {
	if p.check(token.IDENTIFIER) {
		return p.advance().Text
	}
	if isPathKeywordSegment(p.peek().Kind) {
		return p.advance().Text
	}
	p.error(diag.CodeBadExpression, "expected a member name")
	return ""
}

func (p *Parser) parseArgList() []ast.Expr {
	var args []ast.Expr
	if p.check(token.RPAREN) {
		p.advance()
		return args
	}
	for {
		args = append(args, p.expression())
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	p.consume(token.RPAREN, "expected ')' to close argument list")
	return args
}

func (p *Parser) primary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.IntLiteral, Int: tok.Value.Int}
	case token.FLOAT:
		p.advance()
		return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.FloatLiteral, Float: tok.Value.Float}
	case token.STRING:
		p.advance()
		return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.StringLiteral, Str: tok.Value.Str}
	case token.FORMAT_STRING:
		p.advance()
		return p.parseFormatString(tok)
	case token.RESOURCE:
		p.advance()
		return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.ResourceLiteral, Str: tok.Value.Str}
	case token.KW_NULL:
		p.advance()
		return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.NullLiteral}
	case token.LPAREN:
		p.advance()
		inner := p.expression()
		p.consume(token.RPAREN, "expected ')'")
		return &ast.Grouping{Base: ast.Base{Loc: tok.Location}, Inner: inner}
	case token.SLASH, token.DOT, token.DOTDOT:
		pth := p.parsePath()
		return &ast.PathExpr{Base: ast.Base{Loc: tok.Location}, Path: pth}
	case token.KW_CALL:
		return p.callBuiltin()
	case token.IDENTIFIER:
		p.advance()
		if tok.Text == "locate" && p.check(token.LPAREN) {
			return p.locateExpression(tok.Location)
		}
		return &ast.Identifier{Base: ast.Base{Loc: tok.Location}, Name: tok.Text}
	}
	p.error(diag.CodeBadExpression, "unexpected token %v in expression", tok.Kind)
	p.advance()
	return &ast.Literal{Base: ast.Base{Loc: tok.Location}, Kind: ast.NullLiteral}
}

func (p *Parser) locateExpression(loc token.Location) ast.Expr {
	p.advance() // '('
	args := p.parseArgList()
	var container ast.Expr
	if p.check(token.KW_IN) {
		p.advance()
		container = p.expression()
	}
	return &ast.LocateExpr{Base: ast.Base{Loc: loc}, Args: args, Container: container}
}

// callBuiltin parses DM's `call(refExpr, ...)(args...)` indirect-call
// form, flattening both argument lists into one Call node (the
// reference arguments distinguish themselves to the emitter by
// position, not by a separate field, matching how few other AST nodes
// in this tree carry more than one argument vector).
func (p *Parser) callBuiltin() ast.Expr {
	loc := p.advance().Location
	p.consume(token.LPAREN, "expected '(' after call")
	refArgs := p.parseArgList()
	var args []ast.Expr
	if p.check(token.LPAREN) {
		p.advance()
		args = p.parseArgList()
	}
	return &ast.Call{Base: ast.Base{Loc: loc}, Name: "call", Args: append(refArgs, args...)}
}

// parseFormatString splits a decoded format-string literal's text on
// bracket-delimited slots and re-lexes/re-parses each slot as a full
// expression (spec.md §4.2/§4.4: embedded-expression string literals).
func (p *Parser) parseFormatString(tok token.Token) ast.Expr {
	text := tok.Value.Str
	var parts []string
	var slots []ast.Expr
	var cur []byte
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '[' && depth == 0:
			depth = 1
			start = i + 1
		case c == '[' && depth > 0:
			depth++
		case c == ']' && depth > 0:
			depth--
			if depth == 0 {
				parts = append(parts, string(cur))
				cur = nil
				slots = append(slots, p.parseEmbeddedExpression(text[start:i], tok.Location))
			}
		default:
			if depth == 0 {
				cur = append(cur, c)
			}
		}
	}
	parts = append(parts, string(cur))
	return &ast.FormatString{Base: ast.Base{Loc: tok.Location}, Parts: parts, Slots: slots}
}

func (p *Parser) parseEmbeddedExpression(src string, loc token.Location) ast.Expr {
	sub := lexer.New(loc.SourceFile, src, loc.InStandardLibrary, p.sink)
	toks := sub.Scan()
	toks = append(toks, token.Token{Kind: token.EOF, Location: loc})
	subParser := New(toks, p.opts, p.sink)
	return subParser.expression()
}
