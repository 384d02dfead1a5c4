// Package objtree builds and owns the compiled object tree: the
// type/proc/variable registry the bytecode emitter and JSON serializer
// both walk (spec.md §3 "Object Tree", §4.6 "Code-Tree Builder").
//
// The shape mirrors informatter-nilan's interpreter.Environment
// (name -> value map with an implicit parent-chain lookup), widened from
// a single flat scope into one map per object plus an explicit Parent
// link so ancestor search can walk the type hierarchy instead of a
// lexical scope stack.
package objtree

import (
	"dmc/ast"
	"dmc/path"
	"dmc/token"
)

// Variable is a field declared or overridden on an object.
type Variable struct {
	Name              string
	DeclaredType      path.Path
	HasDeclaredType   bool
	IsConst           bool
	IsFinal           bool
	IsGlobal          bool
	IsTmp             bool
	ValueAST          ast.Expr // non-owning; nil when no initializer given
	ExplicitValueType path.Path
	Location          token.Location
}

// Local is a proc parameter or local variable, addressed by slot index
// the way the teacher's compiler.Local addresses VM stack slots.
type Local struct {
	Name         string
	DeclaredType path.Path
	Default      ast.Expr // nil when absent
	Slot         int
}

// Proc is a single procedure or verb definition.
type Proc struct {
	ID             int
	Name           string
	OwningTypeID   int
	IsVerb         bool
	Parameters     []Local
	LocalVariables []Local
	Body           []ast.Stmt
	Bytecode       []byte
	Constants      []any
	MaxStackSize   int
	Location       token.Location

	VerbCategory string
	VerbDesc     string
	Invisibility int
	SetFlags     map[string]ast.Expr
}

// Object is a single type in the tree.
type Object struct {
	ID     int
	Path   path.Path
	Parent int // index into Tree.Objects; -1 for the root
	HasParent bool

	Variables         map[string]*Variable
	VariableOverrides map[string]*Variable
	// Procs maps a proc name to the ordered list of proc IDs declared
	// under that name on this object, earliest first, so that "the
	// proc this one overrides" is simply the previous entry.
	Procs map[string][]int

	ConstVariableNames map[string]bool
	TmpVariableNames   map[string]bool

	InitProcID            int
	HasInitProc           bool
	IsFromStandardLibrary bool
}

// Global is an entry in `/global` or a bare top-level `var` declaration.
type Global struct {
	Variable
}

// StringTable interns names into dense, stable ids (spec.md §3).
type StringTable struct {
	idByName []map[string]int
	names    []string
}

// NewStringTable returns an empty table.
func NewStringTable() *StringTable {
	return &StringTable{idByName: []map[string]int{{}}}
}

// Intern returns the id for name, assigning a fresh dense id the first
// time it is seen.
func (t *StringTable) Intern(name string) int {
	if id, ok := t.idByName[0][name]; ok {
		return id
	}
	id := len(t.names)
	t.names = append(t.names, name)
	t.idByName[0][name] = id
	return id
}

// Name returns the interned string for id.
func (t *StringTable) Name(id int) string {
	return t.names[id]
}

// Len is the number of interned strings; ids are dense over [0, Len()).
func (t *StringTable) Len() int { return len(t.names) }

// Tree owns the objects, procs, globals, and the string-interning and
// name-lookup tables of a single compilation (spec.md §3 "Object Tree").
type Tree struct {
	Objects []*Object
	Procs   []*Proc
	Globals []*Global
	Strings *StringTable

	// GlobalProcs maps a root-level proc name to its proc id.
	GlobalProcs map[string]int
	// PathToID maps an object's canonical absolute path string to its id.
	PathToID map[string]int
}

// NewTree returns an empty tree with no objects or procs. The eager
// seeding of the five base types and the `/atom` family is done by the
// Builder (seedBaseTypes), not here.
func NewTree() *Tree {
	t := &Tree{
		Strings:     NewStringTable(),
		GlobalProcs: map[string]int{},
		PathToID:    map[string]int{},
	}
	return t
}

func newObject(id int, p path.Path) *Object {
	return &Object{
		ID:                 id,
		Path:               p,
		Parent:             -1,
		Variables:          map[string]*Variable{},
		VariableOverrides:  map[string]*Variable{},
		Procs:              map[string][]int{},
		ConstVariableNames: map[string]bool{},
		TmpVariableNames:   map[string]bool{},
	}
}

// addObject registers a brand-new object under p with the given parent
// id (or no parent). Callers are responsible for creating ancestors
// first; Builder.ensureObjectPath does that.
func (t *Tree) addObject(p path.Path, parentID int, hasParent bool) *Object {
	obj := newObject(len(t.Objects), p)
	obj.Parent = parentID
	obj.HasParent = hasParent
	t.Objects = append(t.Objects, obj)
	t.PathToID[path.String(p)] = obj.ID
	return obj
}

// ObjectByPath looks up an existing object by its exact path, per the
// "path -> id map is injective; re-insertion returns the existing id"
// invariant (spec.md §3).
func (t *Tree) ObjectByPath(p path.Path) (*Object, bool) {
	id, ok := t.PathToID[path.String(p)]
	if !ok {
		return nil, false
	}
	return t.Objects[id], true
}

func (t *Tree) addProc(name string, owningTypeID int, loc token.Location) *Proc {
	pr := &Proc{ID: len(t.Procs), Name: name, OwningTypeID: owningTypeID, Location: loc, SetFlags: map[string]ast.Expr{}}
	t.Procs = append(t.Procs, pr)
	return pr
}

func (t *Tree) addGlobal(v Variable) *Global {
	g := &Global{Variable: v}
	t.Globals = append(t.Globals, g)
	return g
}

// ResolveProc implements the proc name-resolution order pinned by
// DESIGN.md §9: the type's own (most-recently-defined) proc, then each
// ancestor in turn, then the global-proc table.
func (t *Tree) ResolveProc(fromTypeID int, name string) (int, bool) {
	obj := t.Objects[fromTypeID]
	for {
		if ids, ok := obj.Procs[name]; ok && len(ids) > 0 {
			return ids[len(ids)-1], true
		}
		if !obj.HasParent {
			break
		}
		obj = t.Objects[obj.Parent]
	}
	if id, ok := t.GlobalProcs[name]; ok {
		return id, true
	}
	return 0, false
}
