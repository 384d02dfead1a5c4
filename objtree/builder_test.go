package objtree

import (
	"testing"

	"dmc/ast"
	"dmc/diag"
	"dmc/path"
	"dmc/token"
)

func loc() token.Location {
	return token.Location{SourceFile: "test.dm", Line: 1, Column: 1}
}

func objDef(p path.Path, body ...ast.Stmt) *ast.ObjectDef {
	return &ast.ObjectDef{Base: ast.Base{Loc: loc()}, Path: p, Body: body}
}

func varDef(owner path.Path, name string, declType path.Path, mods ast.VarModifiers) *ast.VarDef {
	return &ast.VarDef{Base: ast.Base{Loc: loc()}, Owner: owner, DeclaredType: declType, Modifiers: mods, Name: name}
}

func TestBuilderSeedsBaseTypes(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)

	for _, p := range []string{"/datum", "/list", "/client", "/world", "/savefile", "/atom", "/mob", "/obj", "/turf", "/area"} {
		if _, ok := b.Tree().ObjectByPath(path.Parse(p)); !ok {
			t.Errorf("expected base type %s to be seeded", p)
		}
	}

	mob, _ := b.Tree().ObjectByPath(path.Parse("/mob"))
	movable, _ := b.Tree().ObjectByPath(path.Parse("/atom/movable"))
	if mob.Parent != movable.ID {
		t.Errorf("expected /mob's parent to be /atom/movable, got object id %d", mob.Parent)
	}
}

func TestBuilderCreatesMissingAncestors(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	stmts := []ast.Stmt{objDef(path.Parse("/mob/player/ghost"))}
	tree := b.Build(stmts)

	for _, p := range []string{"/mob", "/mob/player", "/mob/player/ghost"} {
		if _, ok := tree.ObjectByPath(path.Parse(p)); !ok {
			t.Errorf("expected ancestor %s to have been created", p)
		}
	}

	ghost, _ := tree.ObjectByPath(path.Parse("/mob/player/ghost"))
	player, _ := tree.ObjectByPath(path.Parse("/mob/player"))
	if ghost.Parent != player.ID {
		t.Errorf("expected /mob/player/ghost's parent to be /mob/player")
	}
}

func TestBuilderSingleSegmentPathParentsToDatum(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	tree := b.Build([]ast.Stmt{objDef(path.Parse("/vehicle"))})

	vehicle, _ := tree.ObjectByPath(path.Parse("/vehicle"))
	datum, _ := tree.ObjectByPath(path.Parse("/datum"))
	if !vehicle.HasParent || vehicle.Parent != datum.ID {
		t.Errorf("expected /vehicle to parent to /datum")
	}
}

func TestBuilderNoStandardBaseParentsToRoot(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), true)
	tree := b.Build([]ast.Stmt{objDef(path.Parse("/vehicle"))})

	vehicle, _ := tree.ObjectByPath(path.Parse("/vehicle"))
	if vehicle.HasParent {
		t.Errorf("expected /vehicle to have no parent with --no-standard, got parent id %d", vehicle.Parent)
	}
	if _, ok := tree.ObjectByPath(path.Parse("/datum")); ok {
		t.Errorf("expected /datum not to be seeded with --no-standard")
	}
}

func TestBuilderGlobalVarGoesToGlobalsNotAnObject(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	n := varDef(globalOwner, "tick_lag", path.Parse("/"), ast.VarModifiers{Global: true})
	tree := b.Build([]ast.Stmt{n})

	if len(tree.Globals) != 1 || tree.Globals[0].Name != "tick_lag" {
		t.Fatalf("expected one global named tick_lag, got %+v", tree.Globals)
	}
	if _, ok := tree.ObjectByPath(globalOwner); ok {
		t.Errorf("expected no /global object to have been created")
	}
}

func TestBuilderVarOverrideInheritsAncestorType(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	stmts := []ast.Stmt{
		objDef(path.Parse("/mob"), varDef(path.Parse("/mob"), "hp", path.Parse("/"), ast.VarModifiers{})),
		&ast.VarOverride{Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob/player"), Name: "hp", Value: nil},
	}
	tree := b.Build(stmts)

	player, ok := tree.ObjectByPath(path.Parse("/mob/player"))
	if !ok {
		t.Fatalf("expected /mob/player to be created for the override")
	}
	ov, ok := player.VariableOverrides["hp"]
	if !ok || !ov.HasDeclaredType {
		t.Fatalf("expected hp override to inherit a declared type from /mob")
	}
}

func TestBuilderVarOverrideWithNoAncestorReportsError(t *testing.T) {
	sink := diag.NewSink(100)
	b := NewBuilder(sink, false)
	stmts := []ast.Stmt{
		&ast.VarOverride{Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob"), Name: "unknown_field", Value: nil},
	}
	b.Build(stmts)

	if sink.ErrorCount() == 0 {
		t.Errorf("expected an error for overriding an undeclared variable")
	}
}

func TestBuilderProcDefinitionOrderAndGlobalRegistration(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	rootProc := &ast.ProcDef{Base: ast.Base{Loc: loc()}, Owner: path.Root, Name: "helper"}
	stmts := []ast.Stmt{
		objDef(path.Parse("/mob"),
			&ast.ProcDef{Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob"), Name: "New"},
		),
		rootProc,
	}
	tree := b.Build(stmts)

	mob, _ := tree.ObjectByPath(path.Parse("/mob"))
	if !mob.HasInitProc {
		t.Errorf("expected /mob/New to be recorded as the init proc")
	}
	if _, ok := tree.GlobalProcs["helper"]; !ok {
		t.Errorf("expected a root-level proc to be registered as a global proc")
	}
}

func TestBuilderStandardLibraryFinalization(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)

	libLoc := token.Location{SourceFile: "DMStandard/world.dm", InStandardLibrary: true}
	userLoc := token.Location{SourceFile: "game.dm", InStandardLibrary: false}

	b.Build([]ast.Stmt{
		&ast.ObjectDef{Base: ast.Base{Loc: libLoc}, Path: path.Parse("/world/game_world")},
	})
	gameWorld, _ := b.Tree().ObjectByPath(path.Parse("/world/game_world"))
	if gameWorld.IsFromStandardLibrary {
		t.Fatalf("expected the finalization flag to stay unset until a non-library file is reached")
	}

	b.Build([]ast.Stmt{
		&ast.ObjectDef{Base: ast.Base{Loc: userLoc}, Path: path.Parse("/mob/player")},
	})
	if !gameWorld.IsFromStandardLibrary {
		t.Fatalf("expected every object created before the first non-library file to be retroactively marked")
	}
	player, _ := b.Tree().ObjectByPath(path.Parse("/mob/player"))
	if player.IsFromStandardLibrary {
		t.Fatalf("expected /mob/player, created after the crossing, to stay unmarked")
	}
}

func TestResolveProcWalksAncestorsThenGlobals(t *testing.T) {
	b := NewBuilder(diag.NewSink(100), false)
	stmts := []ast.Stmt{
		objDef(path.Parse("/mob"), &ast.ProcDef{Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob"), Name: "bump"}),
		objDef(path.Parse("/mob/player")),
		&ast.ProcDef{Base: ast.Base{Loc: loc()}, Owner: path.Root, Name: "Tick"},
	}
	tree := b.Build(stmts)

	player, _ := tree.ObjectByPath(path.Parse("/mob/player"))
	if _, ok := tree.ResolveProc(player.ID, "bump"); !ok {
		t.Errorf("expected ResolveProc to find bump via ancestor /mob")
	}
	if _, ok := tree.ResolveProc(player.ID, "Tick"); !ok {
		t.Errorf("expected ResolveProc to fall back to the global proc table")
	}
	if _, ok := tree.ResolveProc(player.ID, "nonexistent"); ok {
		t.Errorf("expected ResolveProc to fail for an unknown name")
	}
}
