package indent

import (
	"testing"

	"dmc/diag"
	"dmc/token"
)

func tok(kind token.Kind, text string) token.Token {
	return token.New(kind, text, token.Location{SourceFile: "t.dm", Line: 1})
}

func TestIndentDedentBalance(t *testing.T) {
	in := []token.Token{
		tok(token.IDENTIFIER, "a"),
		tok(token.NEWLINE, "\n"),
		tok(token.WHITESPACE, "\t"),
		tok(token.IDENTIFIER, "b"),
		tok(token.NEWLINE, "\n"),
		tok(token.IDENTIFIER, "c"),
	}
	sink := diag.NewSink(100)
	out := Apply(in, sink)

	indents, dedents := 0, 0
	for _, o := range out {
		if o.Kind == token.INDENT {
			indents++
		}
		if o.Kind == token.DEDENT {
			dedents++
		}
	}
	// one INDENT for entering "b", one DEDENT for leaving it before "c",
	// and the final EOF dedent, for a net balance of dedents == indents + 1.
	if dedents != indents+1 {
		t.Fatalf("expected dedents == indents+1 (final sink), got indents=%d dedents=%d", indents, dedents)
	}
}

func TestBracketsSuppressIndentTracking(t *testing.T) {
	in := []token.Token{
		tok(token.LPAREN, "("),
		tok(token.NEWLINE, "\n"),
		tok(token.WHITESPACE, "\t\t\t"),
		tok(token.IDENTIFIER, "a"),
		tok(token.RPAREN, ")"),
	}
	sink := diag.NewSink(100)
	out := Apply(in, sink)
	for _, o := range out {
		if o.Kind == token.INDENT || o.Kind == token.DEDENT {
			t.Fatalf("indentation should not be tracked inside brackets, got %v", o.Kind)
		}
	}
}
