package lexer

import (
	"testing"

	"dmc/diag"
	"dmc/token"
)

func scan(t *testing.T, src string) []token.Token {
	t.Helper()
	sink := diag.NewSink(100)
	l := New("test.dm", src, false, sink)
	toks := l.Scan()
	if sink.ErrorCount() > 0 {
		for _, d := range sink.All() {
			t.Logf("diag: %s", d.Error())
		}
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestSimpleAssignment(t *testing.T) {
	toks := scan(t, "var/x = 1 + 2")
	got := kinds(toks)
	want := []token.Kind{token.KW_VAR, token.SLASH, token.IDENTIFIER, token.ASSIGN, token.INT, token.PLUS, token.INT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %v want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestOperatorLongestMatch(t *testing.T) {
	toks := scan(t, "x ||= y &&= z")
	got := kinds(toks)
	if got[1] != token.OR_OR_ASSIGN || got[3] != token.AND_AND_ASSIGN {
		t.Fatalf("expected ||= and &&=, got %v", got)
	}
}

func TestHexAndFloatLiterals(t *testing.T) {
	toks := scan(t, "0x1F 3.14 2e10")
	if toks[0].Value.Int != 31 {
		t.Fatalf("expected 0x1F == 31, got %v", toks[0].Value.Int)
	}
	if toks[1].Kind != token.FLOAT {
		t.Fatalf("expected FLOAT, got %v", toks[1].Kind)
	}
	if toks[2].Kind != token.FLOAT {
		t.Fatalf("expected scientific literal to lex as FLOAT, got %v", toks[2].Kind)
	}
}

func TestDirectiveOnlyAtLineStart(t *testing.T) {
	toks := scan(t, "#define FOO 1\nx = FOO # not a directive\n")
	if toks[0].Kind != token.DIR_DEFINE {
		t.Fatalf("expected #define to lex as a directive, got %v", toks[0].Kind)
	}
	foundHash := false
	for _, tok := range toks {
		if tok.Kind == token.HASH {
			foundHash = true
		}
	}
	if !foundHash {
		t.Fatalf("expected a bare HASH token mid-line, got %v", kinds(toks))
	}
}

func TestFormatStringDetectsSlot(t *testing.T) {
	toks := scan(t, `"hello [name]"`)
	if toks[0].Kind != token.FORMAT_STRING {
		t.Fatalf("expected FORMAT_STRING, got %v", toks[0].Kind)
	}
}

func TestUnterminatedStringReportsDiagnostic(t *testing.T) {
	sink := diag.NewSink(100)
	l := New("test.dm", `"unterminated`, false, sink)
	l.Scan()
	if sink.ErrorCount() == 0 {
		t.Fatalf("expected an unterminated-string diagnostic")
	}
}
