// Package ast defines the Dream Maker abstract syntax tree: the
// statement and expression node families produced by the parser,
// rewritten in place by the constant folder, and walked by the
// object-tree builder and bytecode emitter.
//
// The node set follows the visitor-dispatch shape of informatter-nilan's
// ast package (Accept(v Visitor) T), widened to the full DM grammar
// spec.md §3 describes: path-based object/var/proc definitions, the
// extended statement set (switch/spawn/try/catch/throw/goto), and the
// full expression family (paths, derefs, null-conditional, compound
// assignment, ternary, format strings).
package ast

import "dmc/token"

// Expr is any expression node. Every node carries its source Location
// and supports TryConstJSON, the hook both the folder and the JSON
// serializer use to ask "do you already know your value" (spec.md §3:
// "Every node supports a tryEvaluateAsConstantJson attempt").
type Expr interface {
	Accept(v ExprVisitor) any
	Location() token.Location
	TryConstJSON() (any, bool)
}

// Stmt is any statement node.
type Stmt interface {
	Accept(v StmtVisitor) any
	Location() token.Location
}

// ExprVisitor dispatches over every expression node kind.
type ExprVisitor interface {
	VisitLiteral(*Literal) any
	VisitFormatString(*FormatString) any
	VisitPathExpr(*PathExpr) any
	VisitIdentifier(*Identifier) any
	VisitUnary(*Unary) any
	VisitBinary(*Binary) any
	VisitLogical(*Logical) any
	VisitAssign(*Assign) any
	VisitCompoundAssign(*CompoundAssign) any
	VisitTernary(*Ternary) any
	VisitCall(*Call) any
	VisitIndex(*Index) any
	VisitDeref(*Deref) any
	VisitNew(*New) any
	VisitIncDec(*IncDec) any
	VisitGrouping(*Grouping) any
	VisitRange(*Range) any
	VisitLocateExpr(*LocateExpr) any
}

// StmtVisitor dispatches over every statement node kind.
type StmtVisitor interface {
	VisitObjectDef(*ObjectDef) any
	VisitVarDef(*VarDef) any
	VisitVarOverride(*VarOverride) any
	VisitProcDef(*ProcDef) any
	VisitVarDecl(*VarDecl) any
	VisitExprStmt(*ExprStmt) any
	VisitBlock(*Block) any
	VisitIf(*If) any
	VisitFor(*For) any
	VisitWhile(*While) any
	VisitDoWhile(*DoWhile) any
	VisitSwitch(*Switch) any
	VisitSpawn(*Spawn) any
	VisitTry(*Try) any
	VisitThrow(*Throw) any
	VisitReturn(*Return) any
	VisitBreak(*Break) any
	VisitContinue(*Continue) any
	VisitGoto(*Goto) any
	VisitLabel(*Label) any
}

// Base carries the one field every node has, sparing each concrete type
// from repeating the bookkeeping.
type Base struct {
	Loc token.Location
}

func (b Base) Location() token.Location { return b.Loc }

// NoConst is embedded by nodes that are never statically evaluable
// (statements, or expressions whose value depends on runtime state).
type NoConst struct{}

func (NoConst) TryConstJSON() (any, bool) { return nil, false }
