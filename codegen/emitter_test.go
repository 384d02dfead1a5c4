package codegen

import (
	"testing"

	"dmc/ast"
	"dmc/diag"
	"dmc/objtree"
	"dmc/path"
	"dmc/token"
)

func assertBytecodeEquals(t *testing.T, got []byte, want []byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("instructions length mismatch - got: %d, want: %d (got=%v want=%v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("instruction mismatch at index %d - got: %d, want: %d", i, got[i], want[i])
		}
	}
}

func assertConstantsEqual(t *testing.T, got []any, want []any) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("constants length mismatch - got: %d, want: %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("constant mismatch at index %d - got: %v, want: %v", i, got[i], want[i])
		}
	}
}

func testLoc() token.Location { return token.Location{SourceFile: "test.dm", Line: 1, Column: 1} }

func lit(i int64) *ast.Literal { return &ast.Literal{Base: ast.Base{Loc: testLoc()}, Kind: ast.IntLiteral, Int: i} }

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Base: ast.Base{Loc: testLoc()}, Name: name}
}

// newTestTree returns a tree with the usual base types seeded, so a
// proc's zero-value OwningTypeID always names a real object (/datum).
func newTestTree() *objtree.Tree {
	return objtree.NewBuilder(diag.NewSink(100), false).Tree()
}

func compileProc(tree *objtree.Tree, body []ast.Stmt) *objtree.Proc {
	proc := &objtree.Proc{Name: "test", Location: testLoc()}
	proc.Body = body
	EmitProc(tree, diag.NewSink(100), proc)
	return proc
}

func TestEmitterLiteralExpressionStatement(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: lit(5)},
	})

	want := MakeInstruction(OP_CONSTANT, 0)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
	assertConstantsEqual(t, proc.Constants, []any{int64(5)})
}

func TestEmitterBinaryAddition(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.Binary{
			Base: ast.Base{Loc: testLoc()}, Op: ast.OpAdd, Left: lit(5), Right: lit(1),
		}},
	})

	want := MakeInstruction(OP_CONSTANT, 0)
	want = append(want, MakeInstruction(OP_CONSTANT, 1)...)
	want = append(want, MakeInstruction(OP_ADD)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
	assertConstantsEqual(t, proc.Constants, []any{int64(5), int64(1)})
	if proc.MaxStackSize < 2 {
		t.Errorf("expected a max stack depth of at least 2 for a binary op, got %d", proc.MaxStackSize)
	}
}

func TestEmitterLocalVarDeclAndAssign(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.VarDecl{Base: ast.Base{Loc: testLoc()}, Name: "hp", Value: lit(100)},
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.Assign{
			Base: ast.Base{Loc: testLoc()}, Target: ident("hp"), Value: lit(50),
		}},
	})

	want := MakeInstruction(OP_CONSTANT, 0)
	want = append(want, MakeInstruction(OP_SET_LOCAL, 0)...)
	want = append(want, MakeInstruction(OP_CONSTANT, 1)...)
	want = append(want, MakeInstruction(OP_SET_LOCAL, 0)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}

func TestEmitterIfWithoutElseEmitsSinglePop(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.If{
			Base: ast.Base{Loc: testLoc()},
			Cond: ident("cond"),
			Then: &ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: lit(1)},
		},
	})

	jumpTarget := len(MakeInstruction(OP_GET_GLOBAL, 0)) + len(MakeInstruction(OP_JUMP_IF_FALSE, 0)) +
		len(MakeInstruction(OP_CONSTANT, 0)) + len(MakeInstruction(OP_POP))

	want := MakeInstruction(OP_GET_GLOBAL, 0)
	want = append(want, MakeInstruction(OP_JUMP_IF_FALSE, jumpTarget)...)
	want = append(want, MakeInstruction(OP_CONSTANT, 0)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}

func TestEmitterWhileLoopJumpsBackToCondition(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.While{
			Base: ast.Base{Loc: testLoc()},
			Cond: ident("running"),
			Body: &ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: lit(1)},
		},
	})

	loopStart := 0
	condInstr := MakeInstruction(OP_GET_GLOBAL, 0)
	jumpIfFalseInstr := MakeInstruction(OP_JUMP_IF_FALSE, 0) // target patched below
	bodyInstr := append(MakeInstruction(OP_CONSTANT, 0), MakeInstruction(OP_POP)...)
	popCondInstr := MakeInstruction(OP_POP)
	jumpBackInstr := MakeInstruction(OP_JUMP, loopStart)
	loopEnd := len(condInstr) + len(jumpIfFalseInstr) + len(bodyInstr) + len(popCondInstr) + len(jumpBackInstr)
	jumpIfFalseInstr = MakeInstruction(OP_JUMP_IF_FALSE, loopEnd)

	want := append([]byte{}, condInstr...)
	want = append(want, jumpIfFalseInstr...)
	want = append(want, bodyInstr...)
	want = append(want, popCondInstr...)
	want = append(want, jumpBackInstr...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}

func TestEmitterBreakPopsToLoopBaseline(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.While{
			Base: ast.Base{Loc: testLoc()},
			Cond: ident("running"),
			Body: &ast.Block{Base: ast.Base{Loc: testLoc()}, Stmts: []ast.Stmt{
				&ast.VarDecl{Base: ast.Base{Loc: testLoc()}, Name: "tmp", Value: lit(1)},
				&ast.Break{Base: ast.Base{Loc: testLoc()}},
			}},
		},
	})

	if len(proc.Bytecode) == 0 {
		t.Fatalf("expected non-empty bytecode for a loop with break")
	}
}

func TestEmitterReturnWithValue(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.Return{Base: ast.Base{Loc: testLoc()}, Value: lit(42)},
	})

	want := MakeInstruction(OP_CONSTANT, 0)
	want = append(want, MakeInstruction(OP_RETURN)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}

func TestEmitterCallToUnresolvedProcAbortsAndEmptiesBytecode(t *testing.T) {
	tree := newTestTree()

	proc := compileProc(tree, []ast.Stmt{
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.Call{
			Base: ast.Base{Loc: testLoc()}, Name: "helper",
		}},
	})

	// helper is unresolved in an empty tree, so the emitter aborts the
	// proc and leaves it with no bytecode (spec.md §4.7 failure
	// semantics): this exercises the per-proc recover path.
	if proc.Bytecode != nil {
		t.Errorf("expected a call to an unresolved proc to abort and empty the bytecode, got %v", proc.Bytecode)
	}
}

func TestEmitterNewOfKnownType(t *testing.T) {
	tree := newTestTree()
	mobObj, ok := tree.ObjectByPath(path.Parse("/mob"))
	if !ok {
		t.Fatalf("expected /mob to be seeded")
	}

	proc := compileProc(tree, []ast.Stmt{
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.New{
			Base: ast.Base{Loc: testLoc()},
			Type: &ast.PathExpr{Base: ast.Base{Loc: testLoc()}, Path: path.Parse("/mob")},
		}},
	})

	want := MakeInstruction(OP_NEW, mobObj.ID, 0)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}

func TestEmitterTernary(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.Ternary{
			Base: ast.Base{Loc: testLoc()},
			Cond: ident("flag"),
			Then: lit(1),
			Else: lit(2),
		}},
	})

	if len(proc.Bytecode) == 0 {
		t.Fatalf("expected non-empty bytecode for a ternary expression")
	}
	assertConstantsEqual(t, proc.Constants, []any{int64(1), int64(2)})
}

func TestEmitterPostIncrementDuplicatesBeforeStore(t *testing.T) {
	tree := newTestTree()
	proc := compileProc(tree, []ast.Stmt{
		&ast.VarDecl{Base: ast.Base{Loc: testLoc()}, Name: "x", Value: lit(0)},
		&ast.ExprStmt{Base: ast.Base{Loc: testLoc()}, X: &ast.IncDec{
			Base: ast.Base{Loc: testLoc()}, Op: ast.PostInc, Operand: ident("x"),
		}},
	})

	want := MakeInstruction(OP_CONSTANT, 0)
	want = append(want, MakeInstruction(OP_SET_LOCAL, 0)...)
	want = append(want, MakeInstruction(OP_GET_LOCAL, 0)...)
	want = append(want, MakeInstruction(OP_DUP)...)
	want = append(want, MakeInstruction(OP_CONSTANT, 1)...)
	want = append(want, MakeInstruction(OP_ADD)...)
	want = append(want, MakeInstruction(OP_SET_LOCAL, 0)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_POP)...)
	want = append(want, MakeInstruction(OP_RETURN_NULL)...)

	assertBytecodeEquals(t, proc.Bytecode, want)
}
