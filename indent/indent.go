// Package indent wraps a token stream with synthetic INDENT/DEDENT
// markers, turning DM's whitespace-significant layout into the
// brace-equivalent structure the parser expects (spec.md §4.3).
package indent

import (
	"dmc/diag"
	"dmc/token"
)

var opening = map[token.Kind]bool{token.LPAREN: true, token.LBRACKET: true}
var closing = map[token.Kind]bool{token.RPAREN: true, token.RBRACKET: true}

// Apply consumes a raw token stream (as produced by the preprocessor,
// carrying WHITESPACE and NEWLINE tokens) and returns one with INDENT
// and DEDENT tokens injected in their place. WHITESPACE tokens never
// survive into the output; NEWLINE tokens inside bracket nesting are
// passed through unchanged and do not affect the indent stack.
func Apply(in []token.Token, sink *diag.Sink) []token.Token {
	stack := []int{0}
	bracketDepth := 0
	out := make([]token.Token, 0, len(in))

	i := 0
	for i < len(in) {
		tok := in[i]

		switch {
		case opening[tok.Kind]:
			bracketDepth++
			out = append(out, tok)
			i++
		case closing[tok.Kind]:
			if bracketDepth > 0 {
				bracketDepth--
			}
			out = append(out, tok)
			i++
		case tok.Kind == token.NEWLINE && bracketDepth == 0:
			level := 0
			loc := tok.Location
			j := i + 1
			if j < len(in) && in[j].Kind == token.WHITESPACE {
				level = len(in[j].Text)
				loc = in[j].Location
				j++
			}
			top := stack[len(stack)-1]
			switch {
			case level > top:
				stack = append(stack, level)
				out = append(out, token.New(token.INDENT, "", loc))
				out = append(out, tok)
			case level == top:
				out = append(out, tok)
			default:
				for len(stack) > 1 && stack[len(stack)-1] > level {
					stack = stack[:len(stack)-1]
					out = append(out, token.New(token.DEDENT, "", loc))
				}
				if stack[len(stack)-1] != level {
					sink.Report(diag.New(diag.CodeIndentationError, diag.Error, loc,
						"inconsistent indentation: expected one of the enclosing levels, got %d spaces", level))
					stack = append(stack, level)
				}
				out = append(out, tok)
			}
			i = j
		case tok.Kind == token.WHITESPACE:
			// Leading whitespace with no preceding newline in this
			// stream (e.g. the very first line) carries no indent
			// meaning; drop it.
			i++
		default:
			out = append(out, tok)
			i++
		}
	}

	finalLoc := token.Internal
	if len(in) > 0 {
		finalLoc = in[len(in)-1].Location
	}
	for len(stack) > 1 {
		stack = stack[:len(stack)-1]
		out = append(out, token.New(token.DEDENT, "", finalLoc))
	}
	out = append(out, token.New(token.EOF, "", finalLoc))
	return out
}
