// Procedural-statement parsing: control flow, local declarations, and
// the proc-body/object-body dispatch that shares the same INDENT..
// DEDENT block() reader (spec.md §4.4 "Grammar shape", §4.6 proc
// bodies). Object-body nesting (further /path statements, var/proc
// definitions) stays in parser.go; this file is everything block()
// hands to blockStatement when it's inside a proc body.
package parser

import (
	"dmc/ast"
	"dmc/diag"
	"dmc/path"
	"dmc/token"
)

// blockStatement parses one statement inside an INDENT..DEDENT block,
// recovering at statement boundaries on a hard parse error the same
// way topLevelStatement does.
func (p *Parser) blockStatement() (result ast.Stmt) {
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

	if p.inProcBody {
		return p.procStatement()
	}

	if !p.atPathStart() {
		p.error(diag.CodeBadStatement, "expected a nested definition, got %v", p.peek().Kind)
		p.advance()
		return nil
	}
	loc := p.peek().Location
	pth := p.parsePath()
	combined := pth
	if pth.Kind != path.Absolute {
		combined = path.Combine(p.currentPath, pth)
	}
	return p.finishPathDefinition(loc, combined)
}

// procStatement parses one statement of a procedure body.
func (p *Parser) procStatement() ast.Stmt {
	switch p.peek().Kind {
	case token.KW_VAR:
		return p.localVarDecl()
	case token.KW_IF:
		return p.ifStatement()
	case token.KW_WHILE:
		return p.whileStatement()
	case token.KW_DO:
		return p.doWhileStatement()
	case token.KW_FOR:
		return p.forStatement()
	case token.KW_SWITCH:
		return p.switchStatement()
	case token.KW_SPAWN:
		return p.spawnStatement()
	case token.KW_TRY:
		return p.tryStatement()
	case token.KW_THROW:
		return p.throwStatement()
	case token.KW_RETURN:
		return p.returnStatement()
	case token.KW_BREAK:
		return p.breakStatement()
	case token.KW_CONTINUE:
		return p.continueStatement()
	case token.KW_GOTO:
		return p.gotoStatement()
	case token.KW_SET:
		p.advance()
		return p.exprStatement()
	case token.SEMICOLON:
		p.advance()
		return nil
	}
	if p.check(token.IDENTIFIER) {
		next := p.peekAt(1)
		if next.Kind == token.COLON {
			afterColon := p.peekAt(2).Kind
			if afterColon == token.NEWLINE || afterColon == token.EOF || afterColon == token.DEDENT {
				loc := p.peek().Location
				name := p.advance().Text
				p.advance() // colon
				return &ast.Label{Base: ast.Base{Loc: loc}, Name: name}
			}
		}
	}
	return p.exprStatement()
}

// statementBody parses the body of an if/while/for/do/spawn/try/catch
// arm: either a single statement, or an INDENT-delimited block.
func (p *Parser) statementBody() ast.Stmt {
	p.skipNewlines()
	if p.check(token.INDENT) {
		loc := p.peek().Location
		stmts := p.block(p.currentPath)
		return &ast.Block{Base: ast.Base{Loc: loc}, Stmts: stmts}
	}
	return p.procStatement()
}

func (p *Parser) localVarDecl() ast.Stmt {
	loc := p.advance().Location
	declType, _ := p.parseVarModifiersAndType()
	name := ""
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
	return &ast.VarDecl{Base: ast.Base{Loc: loc}, DeclaredType: declType, Name: name, Value: value}
}

func (p *Parser) ifStatement() ast.Stmt {
	loc := p.advance().Location
	p.consume(token.LPAREN, "expected '(' after if")
	cond := p.expression()
	p.consume(token.RPAREN, "expected ')' after if condition")
	then := p.statementBody()
	var elseStmt ast.Stmt
	save := p.position
	p.skipNewlines()
	if p.check(token.KW_ELSE) {
		p.advance()
		elseStmt = p.statementBody()
	} else {
		p.position = save
	}
	return &ast.If{Base: ast.Base{Loc: loc}, Cond: cond, Then: then, Else: elseStmt}
}

func (p *Parser) whileStatement() ast.Stmt {
	loc := p.advance().Location
	p.consume(token.LPAREN, "expected '(' after while")
	cond := p.expression()
	p.consume(token.RPAREN, "expected ')' after while condition")
	body := p.statementBody()
	return &ast.While{Base: ast.Base{Loc: loc}, Cond: cond, Body: body}
}

func (p *Parser) doWhileStatement() ast.Stmt {
	loc := p.advance().Location
	body := p.statementBody()
	p.skipNewlines()
	p.consume(token.KW_WHILE, "expected 'while' to close a do-loop")
	p.consume(token.LPAREN, "expected '(' after while")
	cond := p.expression()
	p.consume(token.RPAREN, "expected ')' after while condition")
	p.endStatement()
	return &ast.DoWhile{Base: ast.Base{Loc: loc}, Body: body, Cond: cond}
}

// forStatement parses all three DM for-loop shapes: C-style,
// `for(var/T/x in container)`, and `for(var/T/x = lo to hi [step s])`.
func (p *Parser) forStatement() ast.Stmt {
	loc := p.advance().Location
	p.consume(token.LPAREN, "expected '(' after for")

	if p.check(token.KW_VAR) {
		p.advance()
		declType, _ := p.parseVarModifiersAndType()
		name := ""
		if p.check(token.IDENTIFIER) {
			name = p.advance().Text
		}
		switch {
		case p.isMatch(token.KW_IN):
			container := p.expression()
			p.consume(token.RPAREN, "expected ')' after for-in container")
			body := p.statementBody()
			return &ast.For{Base: ast.Base{Loc: loc}, Kind: ast.ForIn, LoopVarType: declType, LoopVar: name, Container: container, Body: body}
		case p.isMatch(token.ASSIGN):
			lo := p.additive()
			p.consume(token.KW_TO, "expected 'to' in a ranged for-loop")
			hi := p.additive()
			var step ast.Expr
			if p.isMatch(token.KW_STEP) {
				step = p.additive()
			}
			p.consume(token.RPAREN, "expected ')' after for-range header")
			body := p.statementBody()
			rng := &ast.Range{Base: ast.Base{Loc: loc}, Low: lo, High: hi, Step: step}
			return &ast.For{Base: ast.Base{Loc: loc}, Kind: ast.ForRange, LoopVarType: declType, LoopVar: name, RangeExpr: rng, Body: body}
		default:
			init := &ast.VarDecl{Base: ast.Base{Loc: loc}, DeclaredType: declType, Name: name}
			return p.finishCStyleFor(loc, init)
		}
	}

	if p.check(token.RPAREN) {
		p.advance()
		body := p.statementBody()
		return &ast.For{Base: ast.Base{Loc: loc}, Kind: ast.ForCStyle, Body: body}
	}

	initExpr := p.expression()
	init := &ast.ExprStmt{Base: ast.Base{Loc: loc}, X: initExpr}
	return p.finishCStyleFor(loc, init)
}

func (p *Parser) finishCStyleFor(loc token.Location, init ast.Stmt) ast.Stmt {
	p.consume(token.COMMA, "expected ',' after for-loop initializer")
	cond := p.expression()
	p.consume(token.COMMA, "expected ',' after for-loop condition")
	stepExpr := p.expression()
	step := ast.Stmt(&ast.ExprStmt{Base: ast.Base{Loc: loc}, X: stepExpr})
	p.consume(token.RPAREN, "expected ')' to close for-loop header")
	body := p.statementBody()
	return &ast.For{Base: ast.Base{Loc: loc}, Kind: ast.ForCStyle, Init: init, Cond: cond, Step: step, Body: body}
}

func (p *Parser) switchStatement() ast.Stmt {
	loc := p.advance().Location
	p.consume(token.LPAREN, "expected '(' after switch")
	subject := p.expression()
	p.consume(token.RPAREN, "expected ')' after switch subject")
	p.skipNewlines()
	p.consume(token.INDENT, "expected an indented switch body")
	p.skipNewlines()
	var cases []ast.SwitchCase
	for !p.check(token.DEDENT) && !p.isFinished() {
		switch {
		case p.check(token.KW_IF):
			p.advance()
			p.consume(token.LPAREN, "expected '(' after case")
			var values []ast.Expr
			for {
				values = append(values, p.caseValue())
				if !p.isMatch(token.COMMA) {
					break
				}
			}
			p.consume(token.RPAREN, "expected ')' to close case values")
			cases = append(cases, ast.SwitchCase{Values: values, Body: p.caseBody()})
		case p.check(token.KW_ELSE):
			p.advance()
			cases = append(cases, ast.SwitchCase{IsDefault: true, Body: p.caseBody()})
		default:
			p.error(diag.CodeBadStatement, "expected 'if' or 'else' inside a switch body")
			p.advance()
		}
		p.skipNewlines()
	}
	p.isMatch(token.DEDENT)
	return &ast.Switch{Base: ast.Base{Loc: loc}, Subject: subject, Cases: cases}
}

func (p *Parser) caseValue() ast.Expr {
	lo := p.additive()
	if p.isMatch(token.KW_TO) {
		hi := p.additive()
		return &ast.Range{Base: ast.Base{Loc: lo.Location()}, Low: lo, High: hi}
	}
	return lo
}

func (p *Parser) caseBody() []ast.Stmt {
	p.skipNewlines()
	if p.check(token.INDENT) {
		return p.block(p.currentPath)
	}
	stmt := p.procStatement()
	if stmt == nil {
		return nil
	}
	return []ast.Stmt{stmt}
}

func (p *Parser) spawnStatement() ast.Stmt {
	loc := p.advance().Location
	var delay ast.Expr
	if p.isMatch(token.LPAREN) {
		if !p.check(token.RPAREN) {
			delay = p.expression()
		}
		p.consume(token.RPAREN, "expected ')' after spawn delay")
	}
	body := p.statementBody()
	return &ast.Spawn{Base: ast.Base{Loc: loc}, Delay: delay, Body: body}
}

func (p *Parser) tryStatement() ast.Stmt {
	loc := p.advance().Location
	body := p.statementBody()
	var catches []ast.CatchClause
	save := p.position
	p.skipNewlines()
	for p.check(token.KW_CATCH) {
		p.advance()
		var excType path.Path
		var varName string
		if p.isMatch(token.LPAREN) {
			if p.check(token.KW_VAR) {
				p.advance()
				excType, _ = p.parseVarModifiersAndType()
				if p.check(token.IDENTIFIER) {
					varName = p.advance().Text
				}
			} else if !p.check(token.RPAREN) {
				excType = p.parsePath()
			}
			p.consume(token.RPAREN, "expected ')' to close catch clause")
		}
		catches = append(catches, ast.CatchClause{ExcType: excType, VarName: varName, Body: p.statementBody()})
		save = p.position
		p.skipNewlines()
	}
	p.position = save
	return &ast.Try{Base: ast.Base{Loc: loc}, Body: body, Catches: catches}
}

func (p *Parser) throwStatement() ast.Stmt {
	loc := p.advance().Location
	value := p.expression()
	p.endStatement()
	return &ast.Throw{Base: ast.Base{Loc: loc}, Value: value}
}

func (p *Parser) returnStatement() ast.Stmt {
	loc := p.advance().Location
	var value ast.Expr
	if !p.check(token.NEWLINE) && !p.check(token.DEDENT) && !p.check(token.SEMICOLON) && !p.isFinished() {
		value = p.expression()
	}
	p.endStatement()
	return &ast.Return{Base: ast.Base{Loc: loc}, Value: value}
}

func (p *Parser) breakStatement() ast.Stmt {
	loc := p.advance().Location
	label := ""
	if p.check(token.IDENTIFIER) {
		label = p.advance().Text
	}
	p.endStatement()
	return &ast.Break{Base: ast.Base{Loc: loc}, Label: label}
}

func (p *Parser) continueStatement() ast.Stmt {
	loc := p.advance().Location
	label := ""
	if p.check(token.IDENTIFIER) {
		label = p.advance().Text
	}
	p.endStatement()
	return &ast.Continue{Base: ast.Base{Loc: loc}, Label: label}
}

func (p *Parser) gotoStatement() ast.Stmt {
	loc := p.advance().Location
	label := ""
	if p.check(token.IDENTIFIER) {
		label = p.advance().Text
	}
	p.endStatement()
	return &ast.Goto{Base: ast.Base{Loc: loc}, Label: label}
}

func (p *Parser) exprStatement() ast.Stmt {
	loc := p.peek().Location
	expr := p.expression()
	p.endStatement()
	return &ast.ExprStmt{Base: ast.Base{Loc: loc}, X: expr}
}
