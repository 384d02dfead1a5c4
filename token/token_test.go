package token

import "testing"

func TestNewIntCarriesValue(t *testing.T) {
	tok := NewInt("42", 42, Location{SourceFile: "a.dm", Line: 1, Column: 1})
	if tok.Kind != INT {
		t.Fatalf("expected INT, got %s", tok.Kind)
	}
	if tok.Value.Kind != IntValue || tok.Value.Int != 42 {
		t.Fatalf("expected int value 42, got %+v", tok.Value)
	}
}

func TestKeywordsDoNotOverlapDirectives(t *testing.T) {
	// Words such as "if" and "else" are legitimately in both tables (the
	// lexer consults Directives only after a line-leading '#'), but a word
	// must never map to the same Kind in both.
	for word, kind := range Keywords {
		if dkind, ok := Directives[word]; ok && dkind == kind {
			t.Fatalf("word %q maps to the same kind %s in both Keywords and Directives", word, kind)
		}
	}
}

func TestLocationStringFormat(t *testing.T) {
	loc := Location{SourceFile: "main.dm", Line: 3, Column: 7}
	if got, want := loc.String(), "main.dm:3:7"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInternalLocationIsInternal(t *testing.T) {
	if !Internal.IsInternal() {
		t.Fatalf("Internal.IsInternal() should be true")
	}
	other := Location{SourceFile: "x.dm", Line: 1, Column: 1}
	if other.IsInternal() {
		t.Fatalf("arbitrary location should not report IsInternal")
	}
}
