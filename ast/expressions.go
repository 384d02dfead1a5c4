package ast

import (
	"dmc/path"
)

// LiteralKind distinguishes the payload carried by a Literal node.
type LiteralKind int

const (
	NullLiteral LiteralKind = iota
	IntLiteral
	FloatLiteral
	StringLiteral
	ResourceLiteral
)

// Literal is a self-evaluating leaf: null, int, float, string, or
// resource-path literal.
type Literal struct {
	Base
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

func (n *Literal) Accept(v ExprVisitor) any { return v.VisitLiteral(n) }

// TryConstJSON reports the literal's own value; literals are always
// constant by definition.
func (n *Literal) TryConstJSON() (any, bool) {
	switch n.Kind {
	case NullLiteral:
		return nil, true
	case IntLiteral:
		return n.Int, true
	case FloatLiteral:
		return n.Float, true
	case StringLiteral:
		return n.Str, true
	case ResourceLiteral:
		return map[string]any{"type": "resource", "path": n.Str}, true
	}
	return nil, false
}

// FormatString is a DM format-string literal with embedded []-delimited
// expression slots (e.g. "Hello, [name]!"). Parts holds the literal text
// segments and Slots the expressions between them, in the order Parts[0],
// Slots[0], Parts[1], ..., Slots[n-1], Parts[n].
type FormatString struct {
	Base
	Parts []string // literal text segments, len(Parts) == len(Slots)+1
	Slots []Expr   // embedded expressions, evaluated and stringified at runtime
}

func (n *FormatString) Accept(v ExprVisitor) any { return v.VisitFormatString(n) }

// TryConstJSON succeeds only for a format string with no slots and a
// single text part, returning that text. Any slot, constant or not,
// makes it report non-constant; slot values are not concatenated here.
func (n *FormatString) TryConstJSON() (any, bool) {
	if len(n.Slots) == 0 {
		if len(n.Parts) == 1 {
			return n.Parts[0], true
		}
		return nil, false
	}
	return nil, false
}

// PathExpr is a type-path literal such as /mob/player, ../foo, or ..
type PathExpr struct {
	Base
	Path path.Path
}

func (n *PathExpr) Accept(v ExprVisitor) any { return v.VisitPathExpr(n) }

func (n *PathExpr) TryConstJSON() (any, bool) {
	return path.String(n.Path), true
}

// Identifier is a bare name reference: a local, a global, a field on an
// implicit receiver, or a global proc/constant name — resolved later.
type Identifier struct {
	Base
	NoConst
	Name string
}

func (n *Identifier) Accept(v ExprVisitor) any { return v.VisitIdentifier(n) }

// UnaryOp enumerates DM's prefix operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryBitNot
)

// Unary is a prefix operator applied to a single operand.
type Unary struct {
	Base
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Accept(v ExprVisitor) any { return v.VisitUnary(n) }

func (n *Unary) TryConstJSON() (any, bool) {
	val, ok := n.Operand.TryConstJSON()
	if !ok {
		return nil, false
	}
	switch n.Op {
	case UnaryNeg:
		switch x := val.(type) {
		case int64:
			return -x, true
		case float64:
			return -x, true
		}
	case UnaryNot:
		return boolToInt(!truthy(val)), true
	case UnaryBitNot:
		if x, ok := val.(int64); ok {
			return ^x, true
		}
	}
	return nil, false
}

// BinaryOp enumerates DM's infix arithmetic/bitwise/relational operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpEquivEq  // ~=
	OpEquivNe  // ~!
	OpConcat       // string concatenation, distinct from OpAdd at the AST level
)

// Binary is a two-operand arithmetic/relational/bitwise expression.
type Binary struct {
	Base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *Binary) Accept(v ExprVisitor) any { return v.VisitBinary(n) }

func (n *Binary) TryConstJSON() (any, bool) {
	l, lok := n.Left.TryConstJSON()
	r, rok := n.Right.TryConstJSON()
	if !lok || !rok {
		return nil, false
	}
	return foldBinary(n.Op, l, r)
}

// LogicalOp distinguishes the two short-circuiting operators.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Logical is && or ||, kept distinct from Binary because it
// short-circuits and the emitter generates jump code instead of a plain
// two-operand instruction.
type Logical struct {
	Base
	Op    LogicalOp
	Left  Expr
	Right Expr
}

func (n *Logical) Accept(v ExprVisitor) any { return v.VisitLogical(n) }

func (n *Logical) TryConstJSON() (any, bool) {
	l, lok := n.Left.TryConstJSON()
	if !lok {
		return nil, false
	}
	if n.Op == LogicalAnd && !truthy(l) {
		return boolToInt(false), true
	}
	if n.Op == LogicalOr && truthy(l) {
		return boolToInt(true), true
	}
	r, rok := n.Right.TryConstJSON()
	if !rok {
		return nil, false
	}
	return boolToInt(truthy(r)), true
}

// Assign is a plain `target = value` assignment.
type Assign struct {
	Base
	NoConst
	Target Expr
	Value  Expr
}

func (n *Assign) Accept(v ExprVisitor) any { return v.VisitAssign(n) }

// CompoundAssignOp enumerates DM's compound-assignment forms, each
// distinct from desugaring into `target = target OP value` because
// null-conditional (`?=`-flavored via deref) and logical variants
// (`||=`, `&&=`) need their own emission shape.
type CompoundAssignOp int

const (
	CompAddAssign CompoundAssignOp = iota
	CompSubAssign
	CompMulAssign
	CompDivAssign
	CompModAssign
	CompPowAssign
	CompBitAndAssign
	CompBitOrAssign
	CompBitXorAssign
	CompShlAssign
	CompShrAssign
	CompOrOrAssign
	CompAndAndAssign
)

// CompoundAssign is `target OP= value`, kept as its own node (rather
// than desugared in the parser) so the emitter can choose between a
// plain read-modify-write and a short-circuiting form for ||=/&&=.
type CompoundAssign struct {
	Base
	NoConst
	Op     CompoundAssignOp
	Target Expr
	Value  Expr
}

func (n *CompoundAssign) Accept(v ExprVisitor) any { return v.VisitCompoundAssign(n) }

// Ternary is `cond ? thenExpr : elseExpr`.
type Ternary struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

func (n *Ternary) Accept(v ExprVisitor) any { return v.VisitTernary(n) }

func (n *Ternary) TryConstJSON() (any, bool) {
	c, ok := n.Cond.TryConstJSON()
	if !ok {
		return nil, false
	}
	if truthy(c) {
		return n.Then.TryConstJSON()
	}
	return n.Else.TryConstJSON()
}

// Call is a proc invocation: receiver.Name(Args...), or a bare global
// call when Receiver is nil.
type Call struct {
	Base
	NoConst
	Receiver Expr // nil for an unqualified/global call
	Name     string
	Args     []Expr
}

func (n *Call) Accept(v ExprVisitor) any { return v.VisitCall(n) }

// Index is `receiver[key]`, optionally null-conditional (`receiver?[key]`).
type Index struct {
	Base
	NoConst
	Receiver      Expr
	Key           Expr
	NullCondition bool
}

func (n *Index) Accept(v ExprVisitor) any { return v.VisitIndex(n) }

// DerefKind distinguishes DM's four member-access spellings.
type DerefKind int

const (
	DerefDot      DerefKind = iota // a.b           (instance field/proc)
	DerefColon                     // a:b           (duck-typed / unsafe)
	DerefUpward                    // a::b          (type-qualified / parent reference)
	DerefNullSafe                  // a?.b          (null-conditional)
)

// Deref is member access on a receiver: field read or the callee side
// of a method call.
type Deref struct {
	Base
	NoConst
	Receiver Expr
	Kind     DerefKind
	Member   string
}

func (n *Deref) Accept(v ExprVisitor) any { return v.VisitDeref(n) }

// New is `new Type(Args...)` or `new receiverExpr(Args...)` (when the
// type is itself a runtime expression rather than a literal path).
type New struct {
	Base
	NoConst
	Type Expr // a PathExpr for the common case, any Expr for computed types
	Args []Expr
}

func (n *New) Accept(v ExprVisitor) any { return v.VisitNew(n) }

// IncDecOp distinguishes prefix from postfix ++/--.
type IncDecOp int

const (
	PreInc IncDecOp = iota
	PreDec
	PostInc
	PostDec
)

// IncDec is ++x, --x, x++, or x--.
type IncDec struct {
	Base
	NoConst
	Op      IncDecOp
	Operand Expr
}

func (n *IncDec) Accept(v ExprVisitor) any { return v.VisitIncDec(n) }

// Grouping is a parenthesized sub-expression, kept as its own node so
// the JSON printer and disassembler can show the source grouping even
// though it folds transparently.
type Grouping struct {
	Base
	Inner Expr
}

func (n *Grouping) Accept(v ExprVisitor) any { return v.VisitGrouping(n) }

func (n *Grouping) TryConstJSON() (any, bool) { return n.Inner.TryConstJSON() }

// Range is the `lo to hi [step s]` syntactic form used in for-loops and
// switch case lists; it is not a general expression but parses as one
// at those specific statement boundaries.
type Range struct {
	Base
	NoConst
	Low  Expr
	High Expr
	Step Expr // nil means step 1
}

func (n *Range) Accept(v ExprVisitor) any { return v.VisitRange(n) }

// LocateExpr is DM's `locate(...) in container` expression form.
type LocateExpr struct {
	Base
	NoConst
	Args      []Expr
	Container Expr // nil when no `in` clause is present
}

func (n *LocateExpr) Accept(v ExprVisitor) any { return v.VisitLocateExpr(n) }

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case bool:
		return x
	}
	return true
}
