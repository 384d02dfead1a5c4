package preprocessor

import (
	"fmt"
	"strconv"

	"dmc/token"
)

// Macro is the sum type spec.md §3 describes: text, function, and
// built-in forms. Grounded on original_source/include/DMPreprocessor.h's
// DMMacro/DMMacroText/DMMacroFunction/DMMacroLine/DMMacroFile/
// DMMacroVersion/DMMacroBuild hierarchy, collapsed into one Go interface
// with four concrete implementations instead of a virtual base class.
type Macro interface {
	// Expand substitutes a call's argument token vectors (already
	// captured, one per parameter — empty for a text macro) and
	// returns the replacement token sequence.
	Expand(args [][]token.Token, call token.Location) []token.Token
	HasParameters() bool
	Params() []string
}

// TextMacro is a simple `#define NAME tokens...` replacement.
type TextMacro struct {
	Body []token.Token
}

func (m TextMacro) Expand(args [][]token.Token, call token.Location) []token.Token {
	return cloneTokens(m.Body)
}
func (TextMacro) HasParameters() bool   { return false }
func (TextMacro) Params() []string      { return nil }

// FunctionMacro is `#define NAME(a, b) body` — positional substitution
// of per-argument token vectors, with `#param` stringify and `##`
// token-paste support.
type FunctionMacro struct {
	Parameters []string
	Body       []token.Token
}

func (m FunctionMacro) HasParameters() bool { return true }
func (m FunctionMacro) Params() []string    { return m.Parameters }

func (m FunctionMacro) Expand(args [][]token.Token, call token.Location) []token.Token {
	paramIndex := make(map[string]int, len(m.Parameters))
	for i, p := range m.Parameters {
		paramIndex[p] = i
	}

	var out []token.Token
	for i := 0; i < len(m.Body); i++ {
		tok := m.Body[i]

		if tok.Kind == token.HASH && i+1 < len(m.Body) && m.Body[i+1].Kind == token.IDENTIFIER {
			if idx, ok := paramIndex[m.Body[i+1].Text]; ok && idx < len(args) {
				out = append(out, stringifyArgument(args[idx], call))
				i++
				continue
			}
		}

		if tok.Kind == token.IDENTIFIER {
			if idx, ok := paramIndex[tok.Text]; ok && idx < len(args) {
				argTokens := cloneTokens(args[idx])
				if i+1 < len(m.Body) && m.Body[i+1].Kind == token.HASHHASH {
					out = append(out, argTokens...)
					continue
				}
				if len(out) > 0 && out[len(out)-1].Kind == token.HASHHASH {
					out = pasteTokens(out, argTokens)
					continue
				}
				out = append(out, argTokens...)
				continue
			}
		}

		if tok.Kind == token.HASHHASH {
			continue // consumed by neighbor-paste handling above/below
		}

		if len(out) > 0 && i > 0 && m.Body[i-1].Kind == token.HASHHASH {
			out = pasteTokens(out, []token.Token{tok})
			continue
		}

		out = append(out, tok)
	}
	return out
}

func stringifyArgument(arg []token.Token, loc token.Location) token.Token {
	s := ""
	for _, t := range arg {
		if s != "" {
			s += " "
		}
		s += t.Text
	}
	return token.NewString(token.STRING, s, s, loc)
}

// pasteTokens concatenates the text of the last token already emitted
// with the first token of next, producing one merged identifier or
// number token (the `##` operator, spec.md §4.1).
func pasteTokens(out []token.Token, next []token.Token) []token.Token {
	if len(out) == 0 || len(next) == 0 {
		return append(out, next...)
	}
	last := out[len(out)-1]
	merged := last.Text + next[0].Text
	kind := token.IDENTIFIER
	if v, err := strconv.ParseInt(merged, 10, 64); err == nil {
		out[len(out)-1] = token.NewInt(merged, v, last.Location)
	} else {
		out[len(out)-1] = token.New(kind, merged, last.Location)
	}
	return append(out, next[1:]...)
}

func cloneTokens(toks []token.Token) []token.Token {
	out := make([]token.Token, len(toks))
	copy(out, toks)
	return out
}

// builtinLine is __LINE__, resolved fresh at each expansion site.
type builtinLine struct{}

func (builtinLine) HasParameters() bool { return false }
func (builtinLine) Params() []string    { return nil }
func (builtinLine) Expand(args [][]token.Token, call token.Location) []token.Token {
	text := fmt.Sprintf("%d", call.Line)
	return []token.Token{token.NewInt(text, int64(call.Line), call)}
}

// builtinFile is __FILE__.
type builtinFile struct{}

func (builtinFile) HasParameters() bool { return false }
func (builtinFile) Params() []string    { return nil }
func (builtinFile) Expand(args [][]token.Token, call token.Location) []token.Token {
	return []token.Token{token.NewString(token.STRING, call.SourceFile, call.SourceFile, call)}
}

// builtinVersion/Build are DM_VERSION/DM_BUILD, resolved to constants
// fixed at compiler-build time.
type builtinVersion struct{ value int64 }

func (b builtinVersion) HasParameters() bool { return false }
func (builtinVersion) Params() []string      { return nil }
func (b builtinVersion) Expand(args [][]token.Token, call token.Location) []token.Token {
	return []token.Token{token.NewInt(strconv.FormatInt(b.value, 10), b.value, call)}
}

type builtinBuild struct{ value int64 }

func (b builtinBuild) HasParameters() bool { return false }
func (builtinBuild) Params() []string      { return nil }
func (b builtinBuild) Expand(args [][]token.Token, call token.Location) []token.Token {
	return []token.Token{token.NewInt(strconv.FormatInt(b.value, 10), b.value, call)}
}
