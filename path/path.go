// Package path implements DM's canonical type-path representation
// (spec.md §3 "Type Path") and the combine/search operations the object
// tree and parser both depend on.
package path

import "strings"

// Kind distinguishes the four syntactic forms a DM path literal can take.
type Kind int

const (
	// Absolute is a path rooted at '/', e.g. "/mob/player".
	Absolute Kind = iota
	// Relative is a bare path with no leading separator, e.g. "mob/player".
	Relative
	// Upward is a ".." path segment referring to an ancestor scope.
	Upward
	// Downward is a "." path referring to the current scope (and its
	// multi-dot variants referring to nested search).
	Downward
)

// Path is (kind, elements): an ordered sequence of identifier segments
// plus the syntactic form they were written in. Two paths compare equal
// iff kind and elements match exactly (spec.md §3).
type Path struct {
	Kind     Kind
	Elements []string
}

// Root is the absolute path with no elements: "/".
var Root = Path{Kind: Absolute, Elements: nil}

// New builds a Path from a kind and a sequence of segments.
func New(kind Kind, elements ...string) Path {
	if len(elements) == 0 {
		return Path{Kind: kind}
	}
	cp := make([]string, len(elements))
	copy(cp, elements)
	return Path{Kind: kind, Elements: cp}
}

// Equal reports whether two paths have the same kind and elements.
func Equal(a, b Path) bool {
	if a.Kind != b.Kind || len(a.Elements) != len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if a.Elements[i] != b.Elements[i] {
			return false
		}
	}
	return true
}

// Combine appends b's elements onto a, producing a new path. The result
// always takes a's kind and b's kind is ignored (so combining the
// absolute root with a relative suffix yields an absolute path, matching
// how `/mob` + `player` composes in the object tree builder).
func Combine(a, b Path) Path {
	out := make([]string, 0, len(a.Elements)+len(b.Elements))
	out = append(out, a.Elements...)
	out = append(out, b.Elements...)
	return Path{Kind: a.Kind, Elements: out}
}

// RemoveLast returns a with its final element dropped. Removing the last
// element of the root path returns the root path unchanged.
func RemoveLast(a Path) Path {
	if len(a.Elements) == 0 {
		return a
	}
	return Path{Kind: a.Kind, Elements: append([]string{}, a.Elements[:len(a.Elements)-1]...)}
}

// Last returns the final segment of the path and whether one exists.
func Last(a Path) (string, bool) {
	if len(a.Elements) == 0 {
		return "", false
	}
	return a.Elements[len(a.Elements)-1], true
}

// IsPrefixOf reports whether a's elements are a prefix of b's elements
// (used by the object tree's immediate-parent lookup: the parent of
// "/mob/player" is the longest previously-registered path that is a
// strict prefix of it).
func IsPrefixOf(a, b Path) bool {
	if len(a.Elements) >= len(b.Elements) {
		return false
	}
	for i := range a.Elements {
		if a.Elements[i] != b.Elements[i] {
			return false
		}
	}
	return true
}

// UpwardSearch walks from `from` toward the root, one segment at a time,
// looking for a sibling path ending in `target`'s final element set.
// It returns the first ancestor prefix of `from` such that appending
// target's elements to it names a path in `exists` (used to resolve
// relative references like "mob/foo" written inside "/mob/player/proc").
func UpwardSearch(from Path, target Path, exists func(Path) bool) (Path, bool) {
	cursor := from
	for {
		candidate := Combine(Path{Kind: Absolute, Elements: cursor.Elements}, target)
		if exists(candidate) {
			return candidate, true
		}
		if len(cursor.Elements) == 0 {
			return Path{}, false
		}
		cursor = RemoveLast(cursor)
	}
}

// String renders a path back to DM's slash-separated textual form. This
// is the inverse of Parse: Parse(String(p)) == p for every path kind,
// the round-trip property required by spec.md §8.
func String(p Path) string {
	switch p.Kind {
	case Absolute:
		if len(p.Elements) == 0 {
			return "/"
		}
		return "/" + strings.Join(p.Elements, "/")
	case Relative:
		return strings.Join(p.Elements, "/")
	case Upward:
		if len(p.Elements) == 0 {
			return ".."
		}
		return "../" + strings.Join(p.Elements, "/")
	case Downward:
		if len(p.Elements) == 0 {
			return "."
		}
		return "./" + strings.Join(p.Elements, "/")
	}
	return ""
}

// Parse parses a path's textual form back into a Path value. It accepts
// exactly the forms String can produce.
func Parse(s string) Path {
	switch {
	case s == "/":
		return Path{Kind: Absolute}
	case s == ".":
		return Path{Kind: Downward}
	case s == "..":
		return Path{Kind: Upward}
	case strings.HasPrefix(s, "/"):
		return splitInto(Absolute, strings.TrimPrefix(s, "/"))
	case strings.HasPrefix(s, "../"):
		return splitInto(Upward, strings.TrimPrefix(s, "../"))
	case strings.HasPrefix(s, "./"):
		return splitInto(Downward, strings.TrimPrefix(s, "./"))
	default:
		return splitInto(Relative, s)
	}
}

func splitInto(kind Kind, rest string) Path {
	if rest == "" {
		return Path{Kind: kind}
	}
	return Path{Kind: kind, Elements: strings.Split(rest, "/")}
}
