package token

import "fmt"

// Location is a source position: the file it came from, its 1-based
// line and column, and whether that file lives under the standard
// library search root. Every token, AST node, diagnostic, and symbol
// carries one. Locations are immutable once created.
type Location struct {
	SourceFile        string
	Line              int32
	Column            int32
	InStandardLibrary bool
}

// Internal is the explicit stand-in for the original compiler's
// process-wide `Location::Internal` singleton (see DESIGN.md, §9 of
// spec.md). It is itself an exported package-level variable; callers
// that synthesize AST nodes with no source position (desugared
// for-loops, implicit initializers) pass it explicitly, and IsInternal
// compares against it.
var Internal = Location{SourceFile: "<internal>", Line: 0, Column: 0}

func (l Location) String() string {
	if l.SourceFile == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.SourceFile, l.Line, l.Column)
}

// IsInternal reports whether this location was synthesized by the
// compiler rather than read from a source file.
func (l Location) IsInternal() bool {
	return l == Internal
}
