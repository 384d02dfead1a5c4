package ast

import "testing"

func intLit(v int64) *Literal { return &Literal{Kind: IntLiteral, Int: v} }

func TestBinaryConstFold(t *testing.T) {
	b := &Binary{Op: OpAdd, Left: intLit(1), Right: intLit(2)}
	got, ok := b.TryConstJSON()
	if !ok || got.(int64) != 3 {
		t.Fatalf("expected 1+2 to fold to 3, got %v ok=%v", got, ok)
	}
}

func TestFormatMacroLikeFold(t *testing.T) {
	// #define SQ(x) ((x)*(x)) applied to (3+1) folds to 16.
	inner := &Binary{Op: OpAdd, Left: intLit(3), Right: intLit(1)}
	sq := &Binary{Op: OpMul, Left: &Grouping{Inner: inner}, Right: &Grouping{Inner: inner}}
	got, ok := sq.TryConstJSON()
	if !ok || got.(int64) != 16 {
		t.Fatalf("expected SQ(3+1) to fold to 16, got %v ok=%v", got, ok)
	}
}

func TestDivisionByZeroDoesNotFold(t *testing.T) {
	b := &Binary{Op: OpDiv, Left: intLit(1), Right: intLit(0)}
	if _, ok := b.TryConstJSON(); ok {
		t.Fatalf("division by zero must not fold to a constant")
	}
}

func TestTernaryFoldsOnConstantPredicate(t *testing.T) {
	tern := &Ternary{Cond: intLit(0), Then: intLit(1), Else: intLit(2)}
	got, ok := tern.TryConstJSON()
	if !ok || got.(int64) != 2 {
		t.Fatalf("expected false branch (2), got %v ok=%v", got, ok)
	}
}
