package objtree

import (
	"dmc/ast"
	"dmc/diag"
	"dmc/path"
	"dmc/token"
)

// baseTypes are eagerly created before any user file is processed
// (spec.md §4.6, SPEC_FULL.md §4 "DMObjectTree's eager base-type
// seeding"). "datum" has no parent of its own; everything else in this
// list parents to "datum" except the ones that are ancestors of
// themselves in the chain below.
var baseTypeChain = [][2]string{
	{"datum", ""},
	{"list", "datum"},
	{"client", "datum"},
	{"world", "datum"},
	{"savefile", "datum"},
	{"atom", "datum"},
	{"atom/movable", "atom"},
	{"mob", "atom/movable"},
	{"obj", "atom/movable"},
	{"turf", "atom"},
	{"area", "atom"},
}

// globalOwner is the sentinel owner path VarDef nodes use to mean
// "register in the global-constants list", per spec.md §4.6.
var globalOwner = path.New(path.Absolute, "global")

// Builder walks a folded statement list once and populates a Tree
// (spec.md §4.6 "Code-Tree Builder"). Unlike the teacher's
// ASTCompiler, which threads a live scope stack while compiling
// expressions straight to bytecode, the parser here has already fully
// resolved every definition's owning path (ObjectDef.Path,
// VarDef.Owner, ProcDef.Owner, VarOverride.Owner are always absolute),
// so the builder needs no current-path context of its own: it reads
// the path each statement already carries.
type Builder struct {
	tree           *Tree
	sink           *diag.Sink
	noStandardBase bool
	crossedFromLib bool
}

// NewBuilder returns a Builder over a freshly seeded Tree.
// noStandardBase mirrors the CLI's `--no-standard` flag (SPEC_FULL.md
// §2): when set, single-segment paths parent to root instead of
// `/datum`, because the standard library that would otherwise define
// `/datum` was never loaded.
func NewBuilder(sink *diag.Sink, noStandardBase bool) *Builder {
	b := &Builder{tree: NewTree(), sink: sink, noStandardBase: noStandardBase}
	if !noStandardBase {
		b.seedBaseTypes()
	}
	return b
}

func (b *Builder) seedBaseTypes() {
	for _, pair := range baseTypeChain {
		p := path.Parse("/" + pair[0])
		if _, ok := b.tree.ObjectByPath(p); ok {
			continue
		}
		if pair[1] == "" {
			b.tree.addObject(p, -1, false)
			continue
		}
		parent, ok := b.tree.ObjectByPath(path.Parse("/" + pair[1]))
		if !ok {
			// Defensive: baseTypeChain is declared parent-before-child
			// above, so this only fires if that invariant is broken.
			b.tree.addObject(p, -1, false)
			continue
		}
		b.tree.addObject(p, parent.ID, true)
	}
}

// Tree returns the tree built so far.
func (b *Builder) Tree() *Tree { return b.tree }

// Build walks every top-level statement and populates the tree,
// returning it for convenience.
func (b *Builder) Build(stmts []ast.Stmt) *Tree {
	for _, s := range stmts {
		b.processStmt(s)
	}
	return b.tree
}

func (b *Builder) noteLocation(loc token.Location) {
	if !loc.InStandardLibrary && !b.crossedFromLib {
		b.crossedFromLib = true
		b.markAllStandardLibrary()
	}
}

func (b *Builder) markAllStandardLibrary() {
	for _, obj := range b.tree.Objects {
		obj.IsFromStandardLibrary = true
	}
}

func (b *Builder) processStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ObjectDef:
		b.noteLocation(n.Location())
		b.ensureObjectPath(n.Path, n.Location())
		for _, inner := range n.Body {
			b.processStmt(inner)
		}
	case *ast.VarDef:
		b.noteLocation(n.Location())
		b.processVarDef(n)
	case *ast.VarOverride:
		b.noteLocation(n.Location())
		b.processVarOverride(n)
	case *ast.ProcDef:
		b.noteLocation(n.Location())
		b.processProcDef(n)
	default:
		// Any other top-level statement kind is not part of the object
		// tree's grammar (spec.md §4.4: "Top level is a sequence of
		// object statements"); ignore it here.
	}
}

// ensureObjectPath returns the object at p, creating it and every
// missing ancestor prefix first (spec.md §3 invariant: "every object's
// parent ... refers to an object created before it").
func (b *Builder) ensureObjectPath(p path.Path, loc token.Location) *Object {
	if obj, ok := b.tree.ObjectByPath(p); ok {
		return obj
	}
	if len(p.Elements) == 0 {
		return b.tree.addObject(p, -1, false)
	}
	if len(p.Elements) == 1 {
		if b.noStandardBase {
			obj := b.tree.addObject(p, -1, false)
			return obj
		}
		datum, ok := b.tree.ObjectByPath(path.Parse("/datum"))
		if !ok {
			datum = b.tree.addObject(path.Parse("/datum"), -1, false)
		}
		return b.tree.addObject(p, datum.ID, true)
	}
	parentPath := path.RemoveLast(p)
	parent := b.ensureObjectPath(parentPath, loc)
	return b.tree.addObject(p, parent.ID, true)
}

func modifiersFromAST(m ast.VarModifiers) (isConst, isFinal, isGlobal, isTmp bool) {
	return m.Const, m.Final, m.Global || m.Static, m.Tmp
}

func (b *Builder) processVarDef(n *ast.VarDef) {
	isConst, isFinal, isGlobal, isTmp := modifiersFromAST(n.Modifiers)
	v := &Variable{
		Name:            n.Name,
		DeclaredType:    n.DeclaredType,
		HasDeclaredType: true,
		IsConst:         isConst,
		IsFinal:         isFinal,
		IsGlobal:        isGlobal,
		IsTmp:           isTmp,
		ValueAST:        n.Value,
		Location:        n.Location(),
	}

	if path.Equal(n.Owner, globalOwner) {
		b.tree.addGlobal(*v)
		return
	}

	obj := b.ensureObjectPath(n.Owner, n.Location())
	if _, dup := obj.Variables[n.Name]; dup {
		b.sink.Report(diag.New(diag.CodeDuplicateVariable, diag.Error, n.Location(),
			"duplicate declaration of variable '%s' on %s", n.Name, path.String(n.Owner)))
	}
	obj.Variables[n.Name] = v
	if isConst {
		obj.ConstVariableNames[n.Name] = true
	}
	if isTmp {
		obj.TmpVariableNames[n.Name] = true
	}
}

// findAncestorVarType walks obj's ancestor chain (obj itself first, the
// way a proc lookup on the same type always wins before searching
// upward) looking for the nearest definition of name, per spec.md §3's
// override-inherits-declared-type invariant.
func findAncestorVarType(tree *Tree, obj *Object, name string) (path.Path, bool) {
	cursor := obj
	for {
		if v, ok := cursor.Variables[name]; ok {
			return v.DeclaredType, true
		}
		if !cursor.HasParent {
			return path.Path{}, false
		}
		cursor = tree.Objects[cursor.Parent]
	}
}

func (b *Builder) processVarOverride(n *ast.VarOverride) {
	obj := b.ensureObjectPath(n.Owner, n.Location())

	declType, ok := findAncestorVarType(b.tree, obj, n.Name)
	if !ok {
		b.sink.Report(diag.New(diag.CodeMissingParentVariable, diag.Error, n.Location(),
			"'%s' overrides undefined variable '%s'", path.String(n.Owner), n.Name))
	}

	obj.VariableOverrides[n.Name] = &Variable{
		Name:            n.Name,
		DeclaredType:    declType,
		HasDeclaredType: ok,
		ValueAST:        n.Value,
		Location:        n.Location(),
	}
}

func (b *Builder) processProcDef(n *ast.ProcDef) {
	obj := b.ensureObjectPath(n.Owner, n.Location())

	pr := b.tree.addProc(n.Name, obj.ID, n.Location())
	pr.IsVerb = n.Attrs.IsVerb
	pr.VerbCategory = n.Attrs.VerbCategory
	pr.VerbDesc = n.Attrs.VerbDesc
	pr.Invisibility = n.Attrs.Invisibility
	pr.SetFlags = n.Attrs.SetFlags
	pr.Body = n.Body

	pr.Parameters = make([]Local, len(n.Params))
	for i, p := range n.Params {
		pr.Parameters[i] = Local{
			Name:         p.Name,
			DeclaredType: p.DeclaredType,
			Default:      p.Default,
			Slot:         i,
		}
	}

	obj.Procs[n.Name] = append(obj.Procs[n.Name], pr.ID)

	if n.Name == "New" {
		obj.InitProcID = pr.ID
		obj.HasInitProc = true
	}

	if path.Equal(obj.Path, path.Root) {
		b.tree.GlobalProcs[n.Name] = pr.ID
	}
}
