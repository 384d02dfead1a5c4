package compiler_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dmc/compiler"
	"dmc/diag"
	"dmc/path"
)

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestCompileBuildsObjectTreeAndBytecode(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "game.dm", ""+
		"/mob/player\n"+
		"\tvar/health = 100\n"+
		"\tproc/greet()\n"+
		"\t\treturn 1\n")

	d := compiler.New(compiler.Options{NoStandard: true, ErrorBudget: 100})
	res, err := d.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Sink.ErrorCount() != 0 {
		for _, diag := range res.Sink.All() {
			t.Logf("diag: %s", diag.Error())
		}
		t.Fatalf("expected no errors, got %d", res.Sink.ErrorCount())
	}

	player, ok := res.Tree.ObjectByPath(path.Parse("/mob/player"))
	if !ok {
		t.Fatalf("expected /mob/player to have been registered")
	}
	ids, ok := player.Procs["greet"]
	if !ok || len(ids) != 1 {
		t.Fatalf("expected exactly one 'greet' proc on /mob/player, got %v", player.Procs)
	}

	proc := res.Tree.Procs[ids[0]]
	if len(proc.Bytecode) == 0 {
		t.Errorf("expected greet's bytecode to have been emitted")
	}
}

func TestCompileWritesOrderedJSONOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "game.dm", "/obj/item\n\tvar/name = \"sword\"\n")

	d := compiler.New(compiler.Options{NoStandard: true, ErrorBudget: 100})
	res, err := d.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	outPath := filepath.Join(dir, "game.json")
	if err := d.WriteJSON(res, outPath); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["Metadata"] == nil || out["Types"] == nil || out["Procs"] == nil {
		t.Errorf("expected Metadata/Types/Procs in output, got keys %v", out)
	}
}

func TestNewAppliesSuppressAndNoticesPragmaOverrides(t *testing.T) {
	d := compiler.New(compiler.Options{
		NoStandard:            true,
		SuppressUnimplemented: true,
		SuppressUnsupported:   true,
		NoticesEnabled:        false,
	})
	res, err := d.Compile(filepath.Join(t.TempDir(), "missing.dm"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Sink.ErrorCount() == 0 {
		t.Fatalf("expected an error reading a nonexistent source file")
	}
	pragmas := res.Sink.Pragmas
	for _, code := range []diag.Code{diag.CodeUnimplementedAccess, diag.CodeUnsupportedTypeCheck, diag.CodeSoftReservedKeyword, diag.CodePointlessScope} {
		if pragmas.LevelFor(code) != diag.Disabled {
			t.Errorf("expected %s to be disabled, got level %v", code, pragmas.LevelFor(code))
		}
	}
}
