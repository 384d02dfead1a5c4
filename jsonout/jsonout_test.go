package jsonout_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"dmc/ast"
	"dmc/codegen"
	"dmc/diag"
	"dmc/dmmap"
	"dmc/jsonout"
	"dmc/objtree"
	"dmc/path"
	"dmc/token"
)

func loc() token.Location {
	return token.Location{SourceFile: "test.dm", Line: 1, Column: 1}
}

func buildTestTree(t *testing.T) *objtree.Tree {
	t.Helper()
	b := objtree.NewBuilder(diag.NewSink(100), false)
	stmts := []ast.Stmt{
		&ast.ObjectDef{Base: ast.Base{Loc: loc()}, Path: path.Parse("/mob/player"), Body: []ast.Stmt{
			&ast.VarDef{
				Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob/player"), Name: "health",
				Value: &ast.Literal{Base: ast.Base{Loc: loc()}, Kind: ast.IntLiteral, Int: 100},
			},
			&ast.VarDef{
				Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob/player"), Name: "icon",
				Value: &ast.Literal{Base: ast.Base{Loc: loc()}, Kind: ast.ResourceLiteral, Str: "player.dmi"},
			},
			&ast.ProcDef{
				Base: ast.Base{Loc: loc()}, Owner: path.Parse("/mob/player"), Name: "greet",
				Body: []ast.Stmt{
					&ast.Return{Base: ast.Base{Loc: loc()}, Value: &ast.Literal{Base: ast.Base{Loc: loc()}, Kind: ast.IntLiteral, Int: 1}},
				},
			},
		}},
	}
	tree := b.Build(stmts)

	for _, proc := range tree.Procs {
		if proc.Name == "greet" {
			codegen.EmitProc(tree, diag.NewSink(100), proc)
		}
	}
	return tree
}

func TestBuildProducesTopLevelKeysInSpecOrder(t *testing.T) {
	tree := buildTestTree(t)
	doc := jsonout.Build(tree, nil, nil)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)

	order := []string{`"Metadata"`, `"Strings"`, `"Resources"`, `"Types"`, `"Procs"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		if idx < 0 {
			t.Fatalf("expected key %s in output: %s", key, s)
		}
		if idx < last {
			t.Fatalf("key %s appeared out of order in %s", key, s)
		}
		last = idx
	}
}

func TestBuildEncodesResourceLiteralWithInternedID(t *testing.T) {
	tree := buildTestTree(t)
	doc := jsonout.Build(tree, nil, nil)

	if len(doc.Resources) != 1 || doc.Resources[0] != "player.dmi" {
		t.Fatalf("expected one interned resource 'player.dmi', got %v", doc.Resources)
	}

	var playerType *jsonout.TypeRecord
	for i := range doc.Types {
		if doc.Types[i].Path == "/mob/player" {
			playerType = &doc.Types[i]
		}
	}
	if playerType == nil {
		t.Fatalf("expected /mob/player type record")
	}

	iconVal, ok := playerType.Variables["icon"].(map[string]any)
	if !ok {
		t.Fatalf("expected icon to encode as an object, got %v", playerType.Variables["icon"])
	}
	if iconVal["type"] != "resource" || iconVal["id"] != 0 {
		t.Fatalf("expected icon to be {type:resource, id:0}, got %v", iconVal)
	}

	if playerType.Variables["health"] != int64(100) {
		t.Fatalf("expected health to encode as 100, got %v", playerType.Variables["health"])
	}
}

func TestBuildIncludesEmittedProcBytecode(t *testing.T) {
	tree := buildTestTree(t)
	doc := jsonout.Build(tree, nil, nil)

	var greet *jsonout.ProcRecord
	for i := range doc.Procs {
		if doc.Procs[i].Name == "greet" {
			greet = &doc.Procs[i]
		}
	}
	if greet == nil {
		t.Fatalf("expected a 'greet' proc record")
	}
	if len(greet.Bytecode) == 0 {
		t.Errorf("expected greet's bytecode to be non-empty")
	}
	if greet.MaxStackSize < 1 {
		t.Errorf("expected greet's MaxStackSize to be at least 1, got %d", greet.MaxStackSize)
	}
}

func TestBuildMarshalsPositiveInfinityAsTypedObject(t *testing.T) {
	tree := objtree.NewBuilder(diag.NewSink(100), false).Tree()
	tree.Procs = append(tree.Procs, &objtree.Proc{Name: "infProc", Constants: []any{math.Inf(1)}})
	doc := jsonout.Build(tree, nil, nil)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"PositiveInfinity"`) {
		t.Errorf("expected PositiveInfinity wrapper in output: %s", data)
	}
}

func TestBuildFoldsSuppliedOptionalErrorsIntoOutput(t *testing.T) {
	tree := buildTestTree(t)
	doc := jsonout.Build(tree, map[string]int{"UnresolvedProc": int(diag.Warning)}, nil)

	if doc.OptionalErrors["UnresolvedProc"] != int(diag.Warning) {
		t.Fatalf("expected OptionalErrors to carry through, got %v", doc.OptionalErrors)
	}
}

func TestBuildEncodesSuppliedMaps(t *testing.T) {
	tree := buildTestTree(t)
	dm, err := dmmap.Parse("\"a\" = (/turf/space)\n\n(1,1,1) = {\"\naa\naa\n\"}\n")
	if err != nil {
		t.Fatalf("dmmap.Parse: %v", err)
	}

	doc := jsonout.Build(tree, nil, []jsonout.MapInput{{Path: "station.dmm", Map: dm}})

	if len(doc.Maps) != 1 {
		t.Fatalf("expected 1 map record, got %d", len(doc.Maps))
	}
	rec := doc.Maps[0]
	if rec.Path != "station.dmm" {
		t.Errorf("expected map Path to be station.dmm, got %q", rec.Path)
	}
	if len(rec.Legend["a"]) != 1 || rec.Legend["a"][0] != "/turf/space" {
		t.Errorf("expected legend[a] = [/turf/space], got %v", rec.Legend["a"])
	}
	if len(rec.Blocks) != 1 || rec.Blocks[0].X != 1 || len(rec.Blocks[0].Rows) != 2 {
		t.Fatalf("unexpected block data: %+v", rec.Blocks)
	}
}
