package codegen

import (
	"fmt"

	"dmc/ast"
	"dmc/diag"
	"dmc/objtree"
	"dmc/path"
	"dmc/token"
)

// abortProc is the panic payload EmitProc recovers from: any visitor
// that hits an unresolvable reference or a stack-depth bug raises one
// of these instead of threading an error return through every Accept
// call, the same panic/recover shape informatter-nilan's
// ASTCompiler.CompileAST uses around SemanticError/DeveloperError —
// narrowed here to one proc at a time (spec.md §4.7 "Failure
// semantics": the whole proc's bytecode is dropped, compilation of
// other procs continues).
type abortProc struct {
	code diag.Code
	loc  token.Location
	msg  string
}

func (a abortProc) Error() string { return a.msg }

type localSlot struct {
	name string
	slot int
}

type loopCtx struct {
	label           string
	baselineDepth   int
	breakPatches    []int
	continuePatches []int
}

// Emitter walks one proc's folded statement body and produces its
// bytecode, tracking stack depth as it goes (spec.md §4.7).
type Emitter struct {
	tree *objtree.Tree
	sink *diag.Sink
	proc *objtree.Proc

	instructions Instructions
	constants    []any

	depth    int
	maxDepth int

	locals []localSlot
	loops  []loopCtx

	labelPositions map[string]int
	pendingGotos   map[string][]int
}

// EmitProc compiles proc's AST body to bytecode in place, setting
// proc.Bytecode, proc.Constants, and proc.MaxStackSize. A failure
// anywhere in the body empties the proc's bytecode and reports a
// warning rather than aborting the whole compilation.
func EmitProc(tree *objtree.Tree, sink *diag.Sink, proc *objtree.Proc) {
	e := &Emitter{
		tree:           tree,
		sink:           sink,
		proc:           proc,
		labelPositions: map[string]int{},
		pendingGotos:   map[string][]int{},
	}

	defer func() {
		if r := recover(); r != nil {
			ap, ok := r.(abortProc)
			if !ok {
				panic(r)
			}
			sink.Report(diag.New(ap.code, diag.Warning, ap.loc, "%s", ap.msg))
			proc.Bytecode = nil
			proc.Constants = nil
			proc.MaxStackSize = 0
		}
	}()

	for _, p := range proc.Parameters {
		e.declareLocal(p.Name)
	}
	e.depth = len(proc.Parameters)
	e.maxDepth = e.depth

	for _, s := range proc.Body {
		e.emitStmt(s)
	}
	for name := range e.pendingGotos {
		if _, ok := e.labelPositions[name]; !ok {
			sink.Report(diag.New(diag.CodeBadStatement, diag.Warning, proc.Location,
				"undefined label '%s' in proc %s", name, proc.Name))
		}
	}
	e.emit(OP_RETURN_NULL)

	proc.Bytecode = e.instructions
	proc.Constants = e.constants
	proc.MaxStackSize = e.maxDepth
}

func (e *Emitter) abort(code diag.Code, loc token.Location, format string, args ...any) {
	panic(abortProc{code: code, loc: loc, msg: fmt.Sprintf(format, args...)})
}

// --- low-level emission helpers ---

func (e *Emitter) pos() int { return len(e.instructions) }

func (e *Emitter) emit(op Opcode, operands ...int) int {
	pos := e.pos()
	e.instructions = append(e.instructions, MakeInstruction(op, operands...)...)
	return pos
}

// placeholder emits op with a zero operand and returns its position so
// a later patch call can fill in the real target, mirroring
// ASTCompiler.emitPlaceholderJump.
func (e *Emitter) placeholder(op Opcode) int {
	return e.emit(op, 0)
}

// patch overwrites a previously emitted placeholder's 2-byte operand,
// exactly as ASTCompiler.patchJump does.
func (e *Emitter) patch(pos int, target int) {
	b := MakeInstruction(OP_JUMP, target) // any single-uint16-operand opcode encodes identically
	e.instructions[pos+1] = b[1]
	e.instructions[pos+2] = b[2]
}

func (e *Emitter) bump(delta int) {
	e.depth += delta
	if e.depth < 0 {
		panic(abortProc{code: diag.CodeStackImbalance, loc: e.proc.Location,
			msg: fmt.Sprintf("stack underflow in proc %s", e.proc.Name)})
	}
	if e.depth > e.maxDepth {
		e.maxDepth = e.depth
	}
}

func (e *Emitter) addConstant(v any) {
	e.constants = append(e.constants, v)
	e.emit(OP_CONSTANT, len(e.constants)-1)
	e.bump(1)
}

func (e *Emitter) declareLocal(name string) int {
	slot := len(e.locals)
	e.locals = append(e.locals, localSlot{name: name, slot: slot})
	return slot
}

func (e *Emitter) resolveLocal(name string) (int, bool) {
	for i := len(e.locals) - 1; i >= 0; i-- {
		if e.locals[i].name == name {
			return e.locals[i].slot, true
		}
	}
	return 0, false
}

func (e *Emitter) internName(name string) int { return e.tree.Strings.Intern(name) }

func (e *Emitter) loopFor(label string) (*loopCtx, bool) {
	for i := len(e.loops) - 1; i >= 0; i-- {
		if label == "" || e.loops[i].label == label {
			return &e.loops[i], true
		}
	}
	return nil, false
}

// --- statements ---

func (e *Emitter) emitStmt(s ast.Stmt) { s.Accept(e) }

func (e *Emitter) VisitObjectDef(n *ast.ObjectDef) any {
	e.abort(diag.CodeBadStatement, n.Location(), "object definition cannot appear inside a proc body")
	return nil
}
func (e *Emitter) VisitVarDef(n *ast.VarDef) any {
	e.abort(diag.CodeBadStatement, n.Location(), "var definition cannot appear inside a proc body")
	return nil
}
func (e *Emitter) VisitVarOverride(n *ast.VarOverride) any {
	e.abort(diag.CodeBadStatement, n.Location(), "var override cannot appear inside a proc body")
	return nil
}
func (e *Emitter) VisitProcDef(n *ast.ProcDef) any {
	e.abort(diag.CodeBadStatement, n.Location(), "proc definition cannot appear inside a proc body")
	return nil
}

func (e *Emitter) VisitVarDecl(n *ast.VarDecl) any {
	if n.Value != nil {
		n.Value.Accept(e)
	} else {
		e.emit(OP_NULL)
		e.bump(1)
	}
	slot := e.declareLocal(n.Name)
	e.emit(OP_SET_LOCAL, slot)
	return nil
}

func (e *Emitter) VisitExprStmt(n *ast.ExprStmt) any {
	n.X.Accept(e)
	e.emit(OP_POP)
	e.bump(-1)
	return nil
}

func (e *Emitter) VisitBlock(n *ast.Block) any {
	marker := len(e.locals)
	for _, s := range n.Stmts {
		e.emitStmt(s)
	}
	popped := len(e.locals) - marker
	e.locals = e.locals[:marker]
	if popped > 0 {
		e.emit(OP_SCOPE_EXIT, popped)
		e.bump(-popped)
	}
	return nil
}

func (e *Emitter) VisitIf(n *ast.If) any {
	n.Cond.Accept(e)
	jumpIfFalse := e.placeholder(OP_JUMP_IF_FALSE)
	e.emitStmt(n.Then)
	if n.Else != nil {
		jumpEnd := e.placeholder(OP_JUMP)
		e.patch(jumpIfFalse, e.pos())
		e.emitStmt(n.Else)
		e.patch(jumpEnd, e.pos())
	} else {
		e.patch(jumpIfFalse, e.pos())
	}
	e.emit(OP_POP)
	e.bump(-1)
	return nil
}

func (e *Emitter) VisitWhile(n *ast.While) any {
	baseline := e.depth
	loopStart := e.pos()
	n.Cond.Accept(e)
	jumpIfFalse := e.placeholder(OP_JUMP_IF_FALSE)

	e.loops = append(e.loops, loopCtx{baselineDepth: baseline})
	e.emitStmt(n.Body)
	lc := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]

	for _, p := range lc.continuePatches {
		e.patch(p, loopStart)
	}
	e.emit(OP_POP)
	e.bump(-1)
	e.emit(OP_JUMP, loopStart)
	// The false edge arrives at loopEnd with the condition still on the stack.
	e.bump(1)

	loopEnd := e.pos()
	e.patch(jumpIfFalse, loopEnd)
	e.emit(OP_POP)
	e.bump(-1)
	for _, p := range lc.breakPatches {
		e.patch(p, e.pos())
	}
	return nil
}

func (e *Emitter) VisitDoWhile(n *ast.DoWhile) any {
	baseline := e.depth
	bodyStart := e.pos()

	e.loops = append(e.loops, loopCtx{baselineDepth: baseline})
	e.emitStmt(n.Body)
	lc := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]

	condPos := e.pos()
	for _, p := range lc.continuePatches {
		e.patch(p, condPos)
	}
	n.Cond.Accept(e)
	exitJump := e.placeholder(OP_JUMP_IF_FALSE)
	e.emit(OP_POP)
	e.bump(-1)
	e.emit(OP_JUMP, bodyStart)
	// The exit edge arrives here with the condition still on the stack.
	e.bump(1)

	e.patch(exitJump, e.pos())
	e.emit(OP_POP)
	e.bump(-1)
	for _, p := range lc.breakPatches {
		e.patch(p, e.pos())
	}
	return nil
}

func (e *Emitter) emitLoopExit(baseline int, target *[]int) {
	pops := e.depth - baseline
	saved := e.depth
	for i := 0; i < pops; i++ {
		e.emit(OP_POP)
		e.bump(-1)
	}
	pos := e.placeholder(OP_JUMP)
	*target = append(*target, pos)
	e.depth = saved
}

func (e *Emitter) VisitFor(n *ast.For) any {
	switch n.Kind {
	case ast.ForCStyle:
		return e.emitForCStyle(n)
	case ast.ForIn:
		return e.emitForIn(n)
	case ast.ForRange:
		return e.emitForRange(n)
	}
	return nil
}

func (e *Emitter) emitForCStyle(n *ast.For) any {
	marker := len(e.locals)
	if n.Init != nil {
		e.emitStmt(n.Init)
	}
	baseline := e.depth
	loopStart := e.pos()
	var jumpIfFalse int
	hasCond := n.Cond != nil
	if hasCond {
		n.Cond.Accept(e)
		jumpIfFalse = e.placeholder(OP_JUMP_IF_FALSE)
	}

	e.loops = append(e.loops, loopCtx{baselineDepth: baseline})
	e.emitStmt(n.Body)
	lc := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]

	if hasCond {
		e.emit(OP_POP)
		e.bump(-1)
	}
	stepPos := e.pos()
	for _, p := range lc.continuePatches {
		e.patch(p, stepPos)
	}
	if n.Step != nil {
		e.emitStmt(n.Step)
	}
	e.emit(OP_JUMP, loopStart)
	if hasCond {
		// The false edge arrives at loopEnd with the condition still on the stack.
		e.bump(1)
	}

	loopEnd := e.pos()
	if hasCond {
		e.patch(jumpIfFalse, loopEnd)
		e.emit(OP_POP)
		e.bump(-1)
	}
	for _, p := range lc.breakPatches {
		e.patch(p, e.pos())
	}

	popped := len(e.locals) - marker
	e.locals = e.locals[:marker]
	if popped > 0 {
		e.emit(OP_SCOPE_EXIT, popped)
		e.bump(-popped)
	}
	return nil
}

// emitForIn iterates a container expression. With no VM to back the
// opcode, OP_ITER_START/OP_ITER_NEXT are given a plausible but
// unexercised shape: the loop variable's slot doubles as the opaque
// iterator state (spec.md's Non-goals exclude execution, only emission).
func (e *Emitter) emitForIn(n *ast.For) any {
	n.Container.Accept(e)
	baseline := e.depth
	e.declareLocal(n.LoopVar)
	iterPos := e.pos()
	jumpDone := e.placeholder(OP_ITER_NEXT)

	e.loops = append(e.loops, loopCtx{baselineDepth: baseline})
	e.emitStmt(n.Body)
	lc := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]

	for _, p := range lc.continuePatches {
		e.patch(p, iterPos)
	}
	e.emit(OP_JUMP, iterPos)

	loopEnd := e.pos()
	e.patch(jumpDone, loopEnd)
	for _, p := range lc.breakPatches {
		e.patch(p, e.pos())
	}
	e.emit(OP_POP)
	e.bump(-1)
	e.locals = e.locals[:len(e.locals)-1]
	return nil
}

func (e *Emitter) emitForRange(n *ast.For) any {
	marker := len(e.locals)
	n.RangeExpr.Low.Accept(e)
	e.declareLocal(n.LoopVar)
	e.emit(OP_SET_LOCAL, e.locals[len(e.locals)-1].slot)

	n.RangeExpr.High.Accept(e)
	e.declareLocal("$range_hi")
	e.emit(OP_SET_LOCAL, e.locals[len(e.locals)-1].slot)

	if n.RangeExpr.Step != nil {
		n.RangeExpr.Step.Accept(e)
	} else {
		e.addConstant(int64(1))
	}
	e.declareLocal("$range_step")
	e.emit(OP_SET_LOCAL, e.locals[len(e.locals)-1].slot)

	baseline := e.depth
	loopVarSlot, _ := e.resolveLocal(n.LoopVar)
	hiSlot, _ := e.resolveLocal("$range_hi")
	stepSlot, _ := e.resolveLocal("$range_step")

	loopStart := e.pos()
	e.emit(OP_GET_LOCAL, loopVarSlot)
	e.bump(1)
	e.emit(OP_GET_LOCAL, hiSlot)
	e.bump(1)
	e.emit(OP_LE)
	e.bump(-1)
	jumpIfFalse := e.placeholder(OP_JUMP_IF_FALSE)

	e.loops = append(e.loops, loopCtx{baselineDepth: baseline})
	e.emitStmt(n.Body)
	lc := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]

	e.emit(OP_POP)
	e.bump(-1)
	stepPos := e.pos()
	for _, p := range lc.continuePatches {
		e.patch(p, stepPos)
	}
	e.emit(OP_GET_LOCAL, loopVarSlot)
	e.bump(1)
	e.emit(OP_GET_LOCAL, stepSlot)
	e.bump(1)
	e.emit(OP_ADD)
	e.bump(-1)
	e.emit(OP_SET_LOCAL, loopVarSlot)
	e.emit(OP_POP)
	e.bump(-1)
	e.emit(OP_JUMP, loopStart)
	// The false edge arrives at loopEnd with the comparison still on the stack.
	e.bump(1)

	loopEnd := e.pos()
	e.patch(jumpIfFalse, loopEnd)
	e.emit(OP_POP)
	e.bump(-1)
	for _, p := range lc.breakPatches {
		e.patch(p, e.pos())
	}

	e.locals = e.locals[:marker]
	e.emit(OP_SCOPE_EXIT, 3)
	e.bump(-3)
	return nil
}

func (e *Emitter) VisitSwitch(n *ast.Switch) any {
	n.Subject.Accept(e)
	subjSlot := e.declareLocal("$switch")
	e.emit(OP_SET_LOCAL, subjSlot)

	var endPatches []int
	for _, c := range n.Cases {
		if c.IsDefault {
			for _, s := range c.Body {
				e.emitStmt(s)
			}
			continue
		}

		var matchJumps []int
		for _, val := range c.Values {
			e.emitCaseTest(subjSlot, val)
			jp := e.placeholder(OP_JUMP_IF_TRUE)
			matchJumps = append(matchJumps, jp)
			e.emit(OP_POP)
			e.bump(-1)
		}
		skipBody := e.placeholder(OP_JUMP)

		bodyStart := e.pos()
		for _, jp := range matchJumps {
			e.patch(jp, bodyStart)
		}
		e.emit(OP_POP)
		e.bump(-1)
		for _, s := range c.Body {
			e.emitStmt(s)
		}
		endJump := e.placeholder(OP_JUMP)
		endPatches = append(endPatches, endJump)

		e.patch(skipBody, e.pos())
	}
	end := e.pos()
	for _, p := range endPatches {
		e.patch(p, end)
	}

	e.emit(OP_POP)
	e.bump(-1)
	e.locals = e.locals[:len(e.locals)-1]
	return nil
}

func (e *Emitter) emitCaseTest(subjSlot int, val ast.Expr) {
	if r, ok := val.(*ast.Range); ok {
		e.emit(OP_GET_LOCAL, subjSlot)
		e.bump(1)
		r.Low.Accept(e)
		e.emit(OP_GE)
		e.bump(-1)
		jumpFalse := e.placeholder(OP_JUMP_IF_FALSE)
		e.emit(OP_POP)
		e.bump(-1)
		e.emit(OP_GET_LOCAL, subjSlot)
		e.bump(1)
		r.High.Accept(e)
		e.emit(OP_LE)
		e.bump(-1)
		endRange := e.placeholder(OP_JUMP)
		e.patch(jumpFalse, e.pos())
		e.patch(endRange, e.pos())
		return
	}
	e.emit(OP_GET_LOCAL, subjSlot)
	e.bump(1)
	val.Accept(e)
	e.emit(OP_EQ)
	e.bump(-1)
}

func (e *Emitter) VisitSpawn(n *ast.Spawn) any {
	if n.Delay != nil {
		n.Delay.Accept(e)
	} else {
		e.addConstant(int64(0))
	}
	spawnPos := e.placeholder(OP_SPAWN)
	e.bump(-1)
	skipJump := e.placeholder(OP_JUMP)

	bodyStart := e.pos()
	e.patch(spawnPos, bodyStart)
	e.emitStmt(n.Body)
	e.emit(OP_RETURN_NULL)

	e.patch(skipJump, e.pos())
	return nil
}

// VisitTry emits a single handler covering the first catch clause; with
// no VM to dispatch on exception type (spec.md's Non-goals exclude the
// VM entirely), additional catch clauses have no runtime meaning here
// and are not emitted.
func (e *Emitter) VisitTry(n *ast.Try) any {
	pushHandler := e.placeholder(OP_PUSH_HANDLER)
	e.emitStmt(n.Body)
	e.emit(OP_POP_HANDLER)
	endJump := e.placeholder(OP_JUMP)

	e.patch(pushHandler, e.pos())
	if len(n.Catches) > 0 {
		c := n.Catches[0]
		if c.VarName != "" {
			e.emit(OP_NULL)
			e.bump(1)
			e.declareLocal(c.VarName)
		}
		e.emitStmt(c.Body)
		if c.VarName != "" {
			e.emit(OP_POP)
			e.bump(-1)
			e.locals = e.locals[:len(e.locals)-1]
		}
	}
	e.patch(endJump, e.pos())
	return nil
}

func (e *Emitter) VisitThrow(n *ast.Throw) any {
	n.Value.Accept(e)
	e.emit(OP_THROW)
	e.bump(-1)
	return nil
}

func (e *Emitter) VisitReturn(n *ast.Return) any {
	if n.Value != nil {
		n.Value.Accept(e)
		e.emit(OP_RETURN)
		e.bump(-1)
	} else {
		e.emit(OP_RETURN_NULL)
	}
	return nil
}

func (e *Emitter) VisitBreak(n *ast.Break) any {
	lc, ok := e.loopFor(n.Label)
	if !ok {
		e.abort(diag.CodeBadStatement, n.Location(), "break outside a loop")
	}
	e.emitLoopExit(lc.baselineDepth, &lc.breakPatches)
	return nil
}

func (e *Emitter) VisitContinue(n *ast.Continue) any {
	lc, ok := e.loopFor(n.Label)
	if !ok {
		e.abort(diag.CodeBadStatement, n.Location(), "continue outside a loop")
	}
	e.emitLoopExit(lc.baselineDepth, &lc.continuePatches)
	return nil
}

// VisitGoto performs no stack reconciliation: it assumes, as is
// conventional in DM source, that a goto only ever crosses statements
// at the same lexical depth (error-handling jumps between sibling
// labels), so no pop sequence is synthesized the way break/continue get
// one.
func (e *Emitter) VisitGoto(n *ast.Goto) any {
	if target, ok := e.labelPositions[n.Label]; ok {
		e.emit(OP_JUMP, target)
		return nil
	}
	pos := e.placeholder(OP_JUMP)
	e.pendingGotos[n.Label] = append(e.pendingGotos[n.Label], pos)
	return nil
}

func (e *Emitter) VisitLabel(n *ast.Label) any {
	here := e.pos()
	e.labelPositions[n.Name] = here
	for _, pos := range e.pendingGotos[n.Name] {
		e.patch(pos, here)
	}
	delete(e.pendingGotos, n.Name)
	return nil
}

// --- expressions ---

func (e *Emitter) VisitLiteral(n *ast.Literal) any {
	switch n.Kind {
	case ast.NullLiteral:
		e.emit(OP_NULL)
		e.bump(1)
	case ast.IntLiteral:
		e.addConstant(n.Int)
	case ast.FloatLiteral:
		e.addConstant(n.Float)
	case ast.StringLiteral:
		e.addConstant(n.Str)
	case ast.ResourceLiteral:
		e.addConstant(Resource(n.Str))
	}
	return nil
}

func (e *Emitter) VisitFormatString(n *ast.FormatString) any {
	e.addConstant(n.Parts[0])
	for i, slot := range n.Slots {
		slot.Accept(e)
		e.emit(OP_CONCAT)
		e.bump(-1)
		e.addConstant(n.Parts[i+1])
		e.emit(OP_CONCAT)
		e.bump(-1)
	}
	return nil
}

func (e *Emitter) VisitPathExpr(n *ast.PathExpr) any {
	v, _ := n.TryConstJSON()
	e.addConstant(v)
	return nil
}

func (e *Emitter) VisitIdentifier(n *ast.Identifier) any {
	if slot, ok := e.resolveLocal(n.Name); ok {
		e.emit(OP_GET_LOCAL, slot)
		e.bump(1)
		return nil
	}
	idx := e.internName(n.Name)
	e.emit(OP_GET_GLOBAL, idx)
	e.bump(1)
	return nil
}

var unaryOps = map[ast.UnaryOp]Opcode{
	ast.UnaryNeg:    OP_NEG,
	ast.UnaryNot:    OP_NOT,
	ast.UnaryBitNot: OP_BNOT,
}

func (e *Emitter) VisitUnary(n *ast.Unary) any {
	n.Operand.Accept(e)
	e.emit(unaryOps[n.Op])
	return nil
}

var binaryOps = map[ast.BinaryOp]Opcode{
	ast.OpAdd:      OP_ADD,
	ast.OpSub:      OP_SUB,
	ast.OpMul:      OP_MUL,
	ast.OpDiv:      OP_DIV,
	ast.OpMod:      OP_MOD,
	ast.OpPow:      OP_POW,
	ast.OpShl:      OP_SHL,
	ast.OpShr:      OP_SHR,
	ast.OpBitAnd:   OP_BAND,
	ast.OpBitOr:    OP_BOR,
	ast.OpBitXor:   OP_BXOR,
	ast.OpLt:       OP_LT,
	ast.OpLe:       OP_LE,
	ast.OpGt:       OP_GT,
	ast.OpGe:       OP_GE,
	ast.OpEq:       OP_EQ,
	ast.OpNe:       OP_NEQ,
	ast.OpEquivEq:  OP_EQUIV,
	ast.OpEquivNe:  OP_NEQUIV,
	ast.OpConcat:   OP_CONCAT,
}

func (e *Emitter) VisitBinary(n *ast.Binary) any {
	n.Left.Accept(e)
	n.Right.Accept(e)
	e.emit(binaryOps[n.Op])
	e.bump(-1)
	return nil
}

func (e *Emitter) VisitLogical(n *ast.Logical) any {
	n.Left.Accept(e)
	if n.Op == ast.LogicalOr {
		jp := e.placeholder(OP_JUMP_IF_TRUE)
		e.emit(OP_POP)
		e.bump(-1)
		n.Right.Accept(e)
		e.patch(jp, e.pos())
	} else {
		jp := e.placeholder(OP_JUMP_IF_FALSE)
		e.emit(OP_POP)
		e.bump(-1)
		n.Right.Accept(e)
		e.patch(jp, e.pos())
	}
	return nil
}

func (e *Emitter) emitLoadLValue(target ast.Expr) { target.Accept(e) }

func (e *Emitter) emitStoreLValue(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Identifier:
		if slot, ok := e.resolveLocal(t.Name); ok {
			e.emit(OP_SET_LOCAL, slot)
		} else {
			e.emit(OP_SET_GLOBAL, e.internName(t.Name))
		}
	case *ast.Deref:
		t.Receiver.Accept(e)
		e.emit(OP_SET_FIELD, e.internName(t.Member))
		e.bump(-1)
	case *ast.Index:
		t.Receiver.Accept(e)
		t.Key.Accept(e)
		e.emit(OP_SET_INDEX)
		e.bump(-2)
	default:
		e.abort(diag.CodeBadExpression, target.Location(), "invalid assignment target")
	}
}

func (e *Emitter) VisitAssign(n *ast.Assign) any {
	n.Value.Accept(e)
	e.emitStoreLValue(n.Target)
	return nil
}

var compoundOps = map[ast.CompoundAssignOp]Opcode{
	ast.CompAddAssign:    OP_ADD,
	ast.CompSubAssign:    OP_SUB,
	ast.CompMulAssign:    OP_MUL,
	ast.CompDivAssign:    OP_DIV,
	ast.CompModAssign:    OP_MOD,
	ast.CompPowAssign:    OP_POW,
	ast.CompBitAndAssign: OP_BAND,
	ast.CompBitOrAssign:  OP_BOR,
	ast.CompBitXorAssign: OP_BXOR,
	ast.CompShlAssign:    OP_SHL,
	ast.CompShrAssign:    OP_SHR,
}

func (e *Emitter) VisitCompoundAssign(n *ast.CompoundAssign) any {
	if n.Op == ast.CompOrOrAssign || n.Op == ast.CompAndAndAssign {
		e.emitLoadLValue(n.Target)
		var jp int
		if n.Op == ast.CompOrOrAssign {
			jp = e.placeholder(OP_JUMP_IF_TRUE)
		} else {
			jp = e.placeholder(OP_JUMP_IF_FALSE)
		}
		e.emit(OP_POP)
		e.bump(-1)
		n.Value.Accept(e)
		e.emitStoreLValue(n.Target)
		e.patch(jp, e.pos())
		return nil
	}

	e.emitLoadLValue(n.Target)
	n.Value.Accept(e)
	e.emit(compoundOps[n.Op])
	e.bump(-1)
	e.emitStoreLValue(n.Target)
	return nil
}

func (e *Emitter) VisitTernary(n *ast.Ternary) any {
	n.Cond.Accept(e)
	jumpIfFalse := e.placeholder(OP_JUMP_IF_FALSE)
	e.emit(OP_POP)
	e.bump(-1)
	n.Then.Accept(e)
	jumpEnd := e.placeholder(OP_JUMP)

	e.patch(jumpIfFalse, e.pos())
	e.emit(OP_POP)
	e.bump(-1)
	n.Else.Accept(e)

	e.patch(jumpEnd, e.pos())
	return nil
}

func (e *Emitter) VisitCall(n *ast.Call) any {
	if n.Receiver == nil {
		if n.Name == "call" {
			for _, a := range n.Args {
				a.Accept(e)
			}
			e.emit(OP_CALL_BUILTIN, len(n.Args))
			e.bump(-len(n.Args) + 1)
			return nil
		}
		procID, ok := e.tree.ResolveProc(e.proc.OwningTypeID, n.Name)
		if !ok {
			e.abort(diag.CodeUnresolvedProc, n.Location(), "call to unresolved proc '%s'", n.Name)
		}
		for _, a := range n.Args {
			a.Accept(e)
		}
		e.emit(OP_CALL, procID, len(n.Args))
		e.bump(-len(n.Args) + 1)
		return nil
	}

	n.Receiver.Accept(e)
	for _, a := range n.Args {
		a.Accept(e)
	}
	e.emit(OP_CALL_METHOD, e.internName(n.Name), len(n.Args))
	e.bump(-(1 + len(n.Args)) + 1)
	return nil
}

func (e *Emitter) VisitIndex(n *ast.Index) any {
	n.Receiver.Accept(e)
	if n.NullCondition {
		jp := e.placeholder(OP_JUMP_IF_NULL)
		n.Key.Accept(e)
		e.emit(OP_GET_INDEX)
		e.bump(-1)
		e.patch(jp, e.pos())
		return nil
	}
	n.Key.Accept(e)
	e.emit(OP_GET_INDEX)
	e.bump(-1)
	return nil
}

func (e *Emitter) VisitDeref(n *ast.Deref) any {
	n.Receiver.Accept(e)
	idx := e.internName(n.Member)
	if n.Kind == ast.DerefNullSafe {
		jp := e.placeholder(OP_JUMP_IF_NULL)
		e.emit(OP_GET_FIELD, idx)
		e.patch(jp, e.pos())
		return nil
	}
	e.emit(OP_GET_FIELD, idx)
	return nil
}

func (e *Emitter) VisitNew(n *ast.New) any {
	pe, ok := n.Type.(*ast.PathExpr)
	if !ok {
		e.abort(diag.CodeUnsupportedTypeCheck, n.Location(), "new with a computed type expression is not supported")
	}
	obj, ok := e.tree.ObjectByPath(pe.Path)
	if !ok {
		e.abort(diag.CodeUnresolvedProc, n.Location(), "new of undefined type %s", path.String(pe.Path))
	}
	for _, a := range n.Args {
		a.Accept(e)
	}
	e.emit(OP_NEW, obj.ID, len(n.Args))
	e.bump(-len(n.Args) + 1)
	return nil
}

var incDecBinOp = map[ast.IncDecOp]Opcode{
	ast.PreInc:  OP_ADD,
	ast.PostInc: OP_ADD,
	ast.PreDec:  OP_SUB,
	ast.PostDec: OP_SUB,
}

func (e *Emitter) VisitIncDec(n *ast.IncDec) any {
	isPost := n.Op == ast.PostInc || n.Op == ast.PostDec
	op := incDecBinOp[n.Op]

	e.emitLoadLValue(n.Operand)
	if isPost {
		e.emit(OP_DUP)
		e.bump(1)
	}
	e.addConstant(int64(1))
	e.emit(op)
	e.bump(-1)
	e.emitStoreLValue(n.Operand)
	if isPost {
		e.emit(OP_POP)
		e.bump(-1)
	}
	return nil
}

func (e *Emitter) VisitGrouping(n *ast.Grouping) any {
	n.Inner.Accept(e)
	return nil
}

func (e *Emitter) VisitRange(n *ast.Range) any {
	e.abort(diag.CodeBadExpression, n.Location(), "range expression is only valid in a for-loop or switch case")
	return nil
}

func (e *Emitter) VisitLocateExpr(n *ast.LocateExpr) any {
	for _, a := range n.Args {
		a.Accept(e)
	}
	hasContainer := 0
	if n.Container != nil {
		n.Container.Accept(e)
		hasContainer = 1
	}
	e.emit(OP_LOCATE, len(n.Args), hasContainer)
	total := len(n.Args) + hasContainer
	e.bump(-total + 1)
	return nil
}
