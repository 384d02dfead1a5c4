// Package fold implements the post-parse constant-folding pass
// (spec.md §4.5): a single-pass, idempotent AST rewrite that evaluates
// pure constant sub-expressions and replaces them with literal nodes.
//
// Grounded on informatter-nilan's parser.astPrinter (parser/printer.go):
// the same "implement both visitor interfaces, Accept(p) over every
// node, build a fresh value per node" shape, except this visitor
// returns a rewritten ast.Expr/ast.Stmt instead of a map[string]any.
// Fold arithmetic itself lives in ast.foldBinary (ast/const_eval.go) so
// Binary.TryConstJSON and this pass can never disagree about what
// folds.
package fold

import (
	"dmc/ast"
	"dmc/diag"
	"dmc/token"
)

type folder struct {
	sink *diag.Sink
}

// Stmts runs the folder once over a top-level statement sequence.
func Stmts(stmts []ast.Stmt, sink *diag.Sink) []ast.Stmt {
	f := &folder{sink: sink}
	return f.foldStmts(stmts)
}

func (f *folder) foldStmts(in []ast.Stmt) []ast.Stmt {
	if in == nil {
		return nil
	}
	out := make([]ast.Stmt, len(in))
	for i, s := range in {
		out[i] = f.foldStmt(s)
	}
	return out
}

func (f *folder) foldStmt(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	result, _ := s.Accept(f).(ast.Stmt)
	return result
}

func (f *folder) foldExpr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	result, _ := e.Accept(f).(ast.Expr)
	return result
}

func literalFromJSON(v any, loc token.Location) ast.Expr {
	switch x := v.(type) {
	case nil:
		return &ast.Literal{Base: ast.Base{Loc: loc}, Kind: ast.NullLiteral}
	case int64:
		return &ast.Literal{Base: ast.Base{Loc: loc}, Kind: ast.IntLiteral, Int: x}
	case float64:
		return &ast.Literal{Base: ast.Base{Loc: loc}, Kind: ast.FloatLiteral, Float: x}
	case string:
		return &ast.Literal{Base: ast.Base{Loc: loc}, Kind: ast.StringLiteral, Str: x}
	default:
		return nil
	}
}

// --- expressions ---

func (f *folder) VisitLiteral(n *ast.Literal) any { return ast.Expr(n) }

func (f *folder) VisitFormatString(n *ast.FormatString) any {
	slots := make([]ast.Expr, len(n.Slots))
	for i, s := range n.Slots {
		slots[i] = f.foldExpr(s)
	}
	fs := &ast.FormatString{Base: n.Base, Parts: n.Parts, Slots: slots}
	if v, ok := fs.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	return ast.Expr(fs)
}

func (f *folder) VisitPathExpr(n *ast.PathExpr) any    { return ast.Expr(n) }
func (f *folder) VisitIdentifier(n *ast.Identifier) any { return ast.Expr(n) }

func (f *folder) VisitUnary(n *ast.Unary) any {
	operand := f.foldExpr(n.Operand)
	nu := &ast.Unary{Base: n.Base, Op: n.Op, Operand: operand}
	if v, ok := nu.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	return ast.Expr(nu)
}

func (f *folder) VisitBinary(n *ast.Binary) any {
	left := f.foldExpr(n.Left)
	right := f.foldExpr(n.Right)
	nb := &ast.Binary{Base: n.Base, Op: n.Op, Left: left, Right: right}
	if v, ok := nb.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	f.reportUnfoldableConstant(n.Op, left, right, n.Loc)
	return ast.Expr(nb)
}

func (f *folder) reportUnfoldableConstant(op ast.BinaryOp, left, right ast.Expr, loc token.Location) {
	if op != ast.OpDiv && op != ast.OpMod {
		return
	}
	_, lok := left.TryConstJSON()
	rv, rok := right.TryConstJSON()
	if lok && rok && (rv == int64(0) || rv == float64(0)) {
		f.sink.Report(diag.New(diag.CodeDivisionByZero, diag.Warning, loc,
			"division by zero in constant expression; left unfolded"))
	}
}

func (f *folder) VisitLogical(n *ast.Logical) any {
	left := f.foldExpr(n.Left)
	right := f.foldExpr(n.Right)
	nl := &ast.Logical{Base: n.Base, Op: n.Op, Left: left, Right: right}
	if v, ok := nl.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	return ast.Expr(nl)
}

func (f *folder) VisitAssign(n *ast.Assign) any {
	return ast.Expr(&ast.Assign{Base: n.Base, Target: n.Target, Value: f.foldExpr(n.Value)})
}

func (f *folder) VisitCompoundAssign(n *ast.CompoundAssign) any {
	return ast.Expr(&ast.CompoundAssign{Base: n.Base, Op: n.Op, Target: n.Target, Value: f.foldExpr(n.Value)})
}

func (f *folder) VisitTernary(n *ast.Ternary) any {
	cond := f.foldExpr(n.Cond)
	thenE := f.foldExpr(n.Then)
	elseE := f.foldExpr(n.Else)
	nt := &ast.Ternary{Base: n.Base, Cond: cond, Then: thenE, Else: elseE}
	if v, ok := nt.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	return ast.Expr(nt)
}

func (f *folder) VisitCall(n *ast.Call) any {
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = f.foldExpr(a)
	}
	var recv ast.Expr
	if n.Receiver != nil {
		recv = f.foldExpr(n.Receiver)
	}
	return ast.Expr(&ast.Call{Base: n.Base, Receiver: recv, Name: n.Name, Args: args})
}

func (f *folder) VisitIndex(n *ast.Index) any {
	return ast.Expr(&ast.Index{Base: n.Base, Receiver: f.foldExpr(n.Receiver), Key: f.foldExpr(n.Key), NullCondition: n.NullCondition})
}

func (f *folder) VisitDeref(n *ast.Deref) any {
	return ast.Expr(&ast.Deref{Base: n.Base, Receiver: f.foldExpr(n.Receiver), Kind: n.Kind, Member: n.Member})
}

func (f *folder) VisitNew(n *ast.New) any {
	var typ ast.Expr
	if n.Type != nil {
		typ = f.foldExpr(n.Type)
	}
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = f.foldExpr(a)
	}
	return ast.Expr(&ast.New{Base: n.Base, Type: typ, Args: args})
}

func (f *folder) VisitIncDec(n *ast.IncDec) any {
	return ast.Expr(&ast.IncDec{Base: n.Base, Op: n.Op, Operand: f.foldExpr(n.Operand)})
}

func (f *folder) VisitGrouping(n *ast.Grouping) any {
	inner := f.foldExpr(n.Inner)
	ng := &ast.Grouping{Base: n.Base, Inner: inner}
	if v, ok := ng.TryConstJSON(); ok {
		if lit := literalFromJSON(v, n.Loc); lit != nil {
			return lit
		}
	}
	return ast.Expr(ng)
}

func (f *folder) VisitRange(n *ast.Range) any {
	var step ast.Expr
	if n.Step != nil {
		step = f.foldExpr(n.Step)
	}
	return ast.Expr(&ast.Range{Base: n.Base, Low: f.foldExpr(n.Low), High: f.foldExpr(n.High), Step: step})
}

func (f *folder) VisitLocateExpr(n *ast.LocateExpr) any {
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = f.foldExpr(a)
	}
	var container ast.Expr
	if n.Container != nil {
		container = f.foldExpr(n.Container)
	}
	return ast.Expr(&ast.LocateExpr{Base: n.Base, Args: args, Container: container})
}

// --- statements ---

func (f *folder) VisitObjectDef(n *ast.ObjectDef) any {
	return ast.Stmt(&ast.ObjectDef{Base: n.Base, Path: n.Path, Body: f.foldStmts(n.Body)})
}

func (f *folder) VisitVarDef(n *ast.VarDef) any {
	var val ast.Expr
	if n.Value != nil {
		val = f.foldExpr(n.Value)
	}
	return ast.Stmt(&ast.VarDef{Base: n.Base, Owner: n.Owner, DeclaredType: n.DeclaredType, Modifiers: n.Modifiers, Name: n.Name, Value: val})
}

func (f *folder) VisitVarOverride(n *ast.VarOverride) any {
	return ast.Stmt(&ast.VarOverride{Base: n.Base, Owner: n.Owner, Name: n.Name, Value: f.foldExpr(n.Value)})
}

func (f *folder) VisitProcDef(n *ast.ProcDef) any {
	params := make([]ast.Param, len(n.Params))
	for i, p := range n.Params {
		np := p
		if p.Default != nil {
			np.Default = f.foldExpr(p.Default)
		}
		params[i] = np
	}
	attrs := n.Attrs
	if attrs.SetFlags != nil {
		folded := make(map[string]ast.Expr, len(attrs.SetFlags))
		for k, v := range attrs.SetFlags {
			folded[k] = f.foldExpr(v)
		}
		attrs.SetFlags = folded
	}
	return ast.Stmt(&ast.ProcDef{Base: n.Base, Owner: n.Owner, Name: n.Name, Params: params, Attrs: attrs, Body: f.foldStmts(n.Body)})
}

func (f *folder) VisitVarDecl(n *ast.VarDecl) any {
	var val ast.Expr
	if n.Value != nil {
		val = f.foldExpr(n.Value)
	}
	return ast.Stmt(&ast.VarDecl{Base: n.Base, DeclaredType: n.DeclaredType, Name: n.Name, Value: val})
}

func (f *folder) VisitExprStmt(n *ast.ExprStmt) any {
	return ast.Stmt(&ast.ExprStmt{Base: n.Base, X: f.foldExpr(n.X)})
}

func (f *folder) VisitBlock(n *ast.Block) any {
	return ast.Stmt(&ast.Block{Base: n.Base, Stmts: f.foldStmts(n.Stmts)})
}

func (f *folder) VisitIf(n *ast.If) any {
	var elseS ast.Stmt
	if n.Else != nil {
		elseS = f.foldStmt(n.Else)
	}
	return ast.Stmt(&ast.If{Base: n.Base, Cond: f.foldExpr(n.Cond), Then: f.foldStmt(n.Then), Else: elseS})
}

func (f *folder) VisitFor(n *ast.For) any {
	out := &ast.For{Base: n.Base, Kind: n.Kind, LoopVarType: n.LoopVarType, LoopVar: n.LoopVar, Body: f.foldStmt(n.Body)}
	if n.Init != nil {
		out.Init = f.foldStmt(n.Init)
	}
	if n.Cond != nil {
		out.Cond = f.foldExpr(n.Cond)
	}
	if n.Step != nil {
		out.Step = f.foldStmt(n.Step)
	}
	if n.Container != nil {
		out.Container = f.foldExpr(n.Container)
	}
	if n.RangeExpr != nil {
		folded, _ := f.foldExpr(n.RangeExpr).(*ast.Range)
		out.RangeExpr = folded
	}
	return ast.Stmt(out)
}

func (f *folder) VisitWhile(n *ast.While) any {
	return ast.Stmt(&ast.While{Base: n.Base, Cond: f.foldExpr(n.Cond), Body: f.foldStmt(n.Body)})
}

func (f *folder) VisitDoWhile(n *ast.DoWhile) any {
	return ast.Stmt(&ast.DoWhile{Base: n.Base, Body: f.foldStmt(n.Body), Cond: f.foldExpr(n.Cond)})
}

func (f *folder) VisitSwitch(n *ast.Switch) any {
	cases := make([]ast.SwitchCase, len(n.Cases))
	for i, c := range n.Cases {
		values := make([]ast.Expr, len(c.Values))
		for j, v := range c.Values {
			values[j] = f.foldExpr(v)
		}
		cases[i] = ast.SwitchCase{Values: values, IsDefault: c.IsDefault, Body: f.foldStmts(c.Body)}
	}
	return ast.Stmt(&ast.Switch{Base: n.Base, Subject: f.foldExpr(n.Subject), Cases: cases})
}

func (f *folder) VisitSpawn(n *ast.Spawn) any {
	var delay ast.Expr
	if n.Delay != nil {
		delay = f.foldExpr(n.Delay)
	}
	return ast.Stmt(&ast.Spawn{Base: n.Base, Delay: delay, Body: f.foldStmt(n.Body)})
}

func (f *folder) VisitTry(n *ast.Try) any {
	catches := make([]ast.CatchClause, len(n.Catches))
	for i, c := range n.Catches {
		catches[i] = ast.CatchClause{ExcType: c.ExcType, VarName: c.VarName, Body: f.foldStmt(c.Body)}
	}
	return ast.Stmt(&ast.Try{Base: n.Base, Body: f.foldStmt(n.Body), Catches: catches})
}

func (f *folder) VisitThrow(n *ast.Throw) any {
	return ast.Stmt(&ast.Throw{Base: n.Base, Value: f.foldExpr(n.Value)})
}

func (f *folder) VisitReturn(n *ast.Return) any {
	var val ast.Expr
	if n.Value != nil {
		val = f.foldExpr(n.Value)
	}
	return ast.Stmt(&ast.Return{Base: n.Base, Value: val})
}

func (f *folder) VisitBreak(n *ast.Break) any    { return ast.Stmt(n) }
func (f *folder) VisitContinue(n *ast.Continue) any { return ast.Stmt(n) }
func (f *folder) VisitGoto(n *ast.Goto) any      { return ast.Stmt(n) }
func (f *folder) VisitLabel(n *ast.Label) any    { return ast.Stmt(n) }
