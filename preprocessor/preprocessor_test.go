package preprocessor

import (
	"testing"

	"dmc/diag"
	"dmc/token"
)

func preprocess(t *testing.T, files MapFileReader, root string) []token.Token {
	t.Helper()
	sink := diag.NewSink(100)
	p := New(files, Options{NoStandard: true}, sink)
	toks, _, _ := p.Preprocess(root)
	if sink.ErrorCount() > 0 {
		for _, d := range sink.All() {
			t.Logf("diag: %s", d.Error())
		}
	}
	return toks
}

func textOf(toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind == token.WHITESPACE || t.Kind == token.NEWLINE || t.Kind == token.EOF {
			continue
		}
		out = append(out, t.Text)
	}
	return out
}

func TestFunctionMacroExpansion(t *testing.T) {
	toks := preprocess(t, MapFileReader{
		"a.dm": "#define SQ(x) ((x)*(x))\nvar/y = SQ(3+1)\n",
	}, "a.dm")
	got := textOf(toks)
	want := []string{"var", "/", "y", "=", "(", "(", "3", "+", "1", ")", "*", "(", "3", "+", "1", ")", ")"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %q want %q (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestConditionalCompilationFalseBranch(t *testing.T) {
	toks := preprocess(t, MapFileReader{
		"a.dm": "#if 0\nvar/a = 1\n#else\nvar/b = 2\n#endif\n",
	}, "a.dm")
	got := textOf(toks)
	for _, tx := range got {
		if tx == "a" {
			t.Fatalf("did not expect identifier 'a' from the false branch: %v", got)
		}
	}
	found := false
	for _, tx := range got {
		if tx == "b" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected identifier 'b' from the taken else branch: %v", got)
	}
}

func TestIncludeSplicing(t *testing.T) {
	files := MapFileReader{
		"a.dm": "#include \"b.dm\"\n",
		"b.dm": "/obj/foo\n",
	}
	toks := preprocess(t, files, "a.dm")
	got := textOf(toks)
	want := []string{"/", "obj", "/", "foo"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIncludeCycleDetected(t *testing.T) {
	sink := diag.NewSink(100)
	files := MapFileReader{
		"a.dm": "#include \"b.dm\"\n",
		"b.dm": "#include \"a.dm\"\n",
	}
	p := New(files, Options{NoStandard: true}, sink)
	p.Preprocess("a.dm")
	if sink.ErrorCount() == 0 {
		t.Fatalf("expected an include-cycle diagnostic")
	}
}

func TestSelfReferentialMacroTerminates(t *testing.T) {
	toks := preprocess(t, MapFileReader{
		"a.dm": "#define FOO FOO\nx = FOO\n",
	}, "a.dm")
	got := textOf(toks)
	want := []string{"x", "=", "FOO"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
