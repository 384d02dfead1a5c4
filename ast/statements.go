package ast

import (
	"dmc/path"
)

// ObjectDef is a path-structured object definition such as
// `/mob/player\n\tvar/hp = 100`. The Body holds the statements parsed
// inside the indented block (var defs, overrides, proc defs, and
// further nested object defs).
type ObjectDef struct {
	Base
	Path path.Path
	Body []Stmt
}

func (n *ObjectDef) Accept(v StmtVisitor) any { return v.VisitObjectDef(n) }

// VarModifiers are the declared-type modifiers DM allows on a variable
// path suffix (`var/const/tmp/x`, `var/global/y`, ...).
type VarModifiers struct {
	Const  bool
	Static bool
	Global bool
	Tmp    bool
	Final  bool
}

// VarDef is a new variable declaration on an object: the path up to and
// including `var` names the owning object, the remainder is the
// declared type, and Name/Value complete it.
type VarDef struct {
	Base
	Owner        path.Path
	DeclaredType path.Path
	Modifiers    VarModifiers
	Name         string
	Value        Expr // nil when no initializer is given
}

func (n *VarDef) Accept(v StmtVisitor) any { return v.VisitVarDef(n) }

// VarOverride is a bare `name = expr` under an object path that already
// has an ancestor declaring `name`; its declared type is inherited
// lazily from that ancestor rather than restated here.
type VarOverride struct {
	Base
	Owner path.Path
	Name  string
	Value Expr
}

func (n *VarOverride) Accept(v StmtVisitor) any { return v.VisitVarOverride(n) }

// Param is a single typed, optionally defaulted proc parameter.
type Param struct {
	Name         string
	DeclaredType path.Path
	Default      Expr // nil when the parameter has no default
}

// ProcAttrs carries proc-level modifiers and, for verbs, the exposed
// command metadata.
type ProcAttrs struct {
	IsVerb      bool
	VerbName    string
	VerbCategory string
	VerbDesc    string
	Invisibility int
	SetFlags    map[string]Expr // `set name = value` clauses inside the body preamble
}

// ProcDef is a procedure or verb definition on an owning path.
type ProcDef struct {
	Base
	Owner  path.Path
	Name   string
	Params []Param
	Attrs  ProcAttrs
	Body   []Stmt
}

func (n *ProcDef) Accept(v StmtVisitor) any { return v.VisitProcDef(n) }

// VarDecl is a local `var/type/name = value` declaration inside a proc
// body (as opposed to VarDef, which declares a field on an object).
type VarDecl struct {
	Base
	DeclaredType path.Path
	Name         string
	Value        Expr
}

func (n *VarDecl) Accept(v StmtVisitor) any { return v.VisitVarDecl(n) }

// ExprStmt is an expression evaluated for its side effect; the emitter
// must pop its result since statement context wants no value left on
// the stack.
type ExprStmt struct {
	Base
	X Expr
}

func (n *ExprStmt) Accept(v StmtVisitor) any { return v.VisitExprStmt(n) }

// Block is a sequence of statements sharing one lexical scope.
type Block struct {
	Base
	Stmts []Stmt
}

func (n *Block) Accept(v StmtVisitor) any { return v.VisitBlock(n) }

// If is `if (cond) thenBranch [else elseBranch]`.
type If struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt // nil when there is no else clause
}

func (n *If) Accept(v StmtVisitor) any { return v.VisitIf(n) }

// ForKind distinguishes DM's three for-loop shapes.
type ForKind int

const (
	ForCStyle ForKind = iota // for(init, cond, step)
	ForIn                    // for(var/x in container)
	ForRange                 // for(var/x = lo to hi [step s])
)

// For is any of DM's for-loop forms; unused fields are nil/zero
// depending on Kind.
type For struct {
	Base
	Kind ForKind
	Init Stmt // ForCStyle
	Cond Expr // ForCStyle
	Step Stmt // ForCStyle

	LoopVarType path.Path // ForIn, ForRange
	LoopVar     string    // ForIn, ForRange
	Container   Expr      // ForIn
	RangeExpr   *Range    // ForRange

	Body Stmt
}

func (n *For) Accept(v StmtVisitor) any { return v.VisitFor(n) }

// While is `while (cond) body`.
type While struct {
	Base
	Cond Expr
	Body Stmt
}

func (n *While) Accept(v StmtVisitor) any { return v.VisitWhile(n) }

// DoWhile is `do body while (cond)`.
type DoWhile struct {
	Base
	Body Stmt
	Cond Expr
}

func (n *DoWhile) Accept(v StmtVisitor) any { return v.VisitDoWhile(n) }

// SwitchCase is one `if(val [to val2 [step n]], ...)` arm, or the
// default arm when Values is empty and IsDefault is true.
type SwitchCase struct {
	Values    []Expr // literal values or Range nodes
	IsDefault bool
	Body      []Stmt
}

// Switch is DM's `switch(subject)` statement.
type Switch struct {
	Base
	Subject Expr
	Cases   []SwitchCase
}

func (n *Switch) Accept(v StmtVisitor) any { return v.VisitSwitch(n) }

// Spawn is `spawn([delay]) body`: body runs as a deferred closure after
// the given delay (ticks), default 0.
type Spawn struct {
	Base
	Delay Expr // nil means delay 0
	Body  Stmt
}

func (n *Spawn) Accept(v StmtVisitor) any { return v.VisitSpawn(n) }

// CatchClause is one `catch(var/type/name)` (or bare `catch`) arm.
type CatchClause struct {
	ExcType path.Path
	VarName string // empty for a bare catch
	Body    Stmt
}

// Try is `try body catch(...) handler`.
type Try struct {
	Base
	Body    Stmt
	Catches []CatchClause
}

func (n *Try) Accept(v StmtVisitor) any { return v.VisitTry(n) }

// Throw is `throw expr`.
type Throw struct {
	Base
	Value Expr
}

func (n *Throw) Accept(v StmtVisitor) any { return v.VisitThrow(n) }

// Return is `return [expr]`.
type Return struct {
	Base
	Value Expr // nil for a bare return
}

func (n *Return) Accept(v StmtVisitor) any { return v.VisitReturn(n) }

// Break is `break [label]`.
type Break struct {
	Base
	Label string
}

func (n *Break) Accept(v StmtVisitor) any { return v.VisitBreak(n) }

// Continue is `continue [label]`.
type Continue struct {
	Base
	Label string
}

func (n *Continue) Accept(v StmtVisitor) any { return v.VisitContinue(n) }

// Goto is `goto label`.
type Goto struct {
	Base
	Label string
}

func (n *Goto) Accept(v StmtVisitor) any { return v.VisitGoto(n) }

// Label is `label:` marking a goto target (also the implicit target
// `break`/`continue label:` statements reference).
type Label struct {
	Base
	Name string
}

func (n *Label) Accept(v StmtVisitor) any { return v.VisitLabel(n) }
