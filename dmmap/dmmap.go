// Package dmmap parses the simplified .dmm map-file dialect spec.md §6's
// "Map side-channel" describes: prefab legends (a quoted key naming a
// list of type paths) and coordinate blocks (a `(x,y,z) = {"..."}`
// rectangular grid of those keys). Full grid expansion — resolving each
// tile's key into instantiated objects — is explicitly out of scope
// (spec.md §6 Non-goals); dmmap stops at the parsed structure so the
// JSON output can carry it as a side channel (SPEC_FULL.md §4 "Maps").
//
// Grounded on vinodhalaharvi-stencil's grammar/grammar.go: a
// lexer.MustSimple hand-tuned lexer feeding a participle struct-tag
// grammar, the same shape adapted here from .lift blocks to DMM's much
// smaller legend/coordinate-block vocabulary.
package dmmap

import (
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var dmmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Block", Pattern: `\{"[\s\S]*?"\}`},
	{Name: "String", Pattern: `"[^"\n]*"`},
	{Name: "Path", Pattern: `/[A-Za-z_][A-Za-z0-9_/]*`},
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Punct", Pattern: `[(),=]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// mapFile is the participle grammar root: a flat sequence of legend
// entries and coordinate blocks, in whatever order the file wrote them
// (real .dmm files always group all legends before all blocks, but
// nothing requires it).
type mapFile struct {
	Pos     lexer.Position
	Entries []*entry `@@*`
}

type entry struct {
	Pos    lexer.Position
	Legend *legendEntry `  @@`
	Block  *coordBlock  `| @@`
}

type legendEntry struct {
	Pos   lexer.Position
	Key   string   `@String "="`
	Paths []string `"(" @Path ("," @Path)* ")"`
}

type coordBlock struct {
	Pos lexer.Position
	X   int    `"(" @Int ","`
	Y   int    `@Int ","`
	Z   int    `@Int ")" "="`
	Raw string `@Block`
}

var (
	parserOnce sync.Once
	parser     *participle.Parser[mapFile]
	parserErr  error
)

func buildParser() (*participle.Parser[mapFile], error) {
	parserOnce.Do(func() {
		parser, parserErr = participle.Build[mapFile](
			participle.Lexer(dmmLexer),
			participle.UseLookahead(2),
			participle.Elide("Comment", "Whitespace"),
			participle.Unquote("String"),
		)
	})
	return parser, parserErr
}

// Legend maps a prefab key to the type paths BYOND would stack on that
// tile (e.g. `"a"` -> `["/turf/space", "/area/space"]`), in file order.
type Legend map[string][]string

// Block is one `(x,y,z) = {"..."}` coordinate grid: Rows holds one
// string per Y line, each a run of fixed-width legend keys across X.
type Block struct {
	X, Y, Z int
	Rows    []string
}

// DreamMap is a fully-parsed .dmm file: its prefab legend plus every
// coordinate block it defines, in the order they were written.
type DreamMap struct {
	Legend Legend
	Blocks []Block
}

// KeyWidth returns the fixed tile-key width implied by the legend (the
// longest key), the value a real grid expansion would split Block.Rows
// on. Defaults to 1 for an empty legend.
func (d *DreamMap) KeyWidth() int {
	width := 1
	for k := range d.Legend {
		if len(k) > width {
			width = len(k)
		}
	}
	return width
}

// SplitTiles breaks one row into its per-tile legend keys, width
// characters at a time, without resolving them against the legend
// (that resolution is the grid-expansion step this package doesn't do).
func SplitTiles(row string, width int) []string {
	if width <= 0 {
		width = 1
	}
	var out []string
	for i := 0; i+width <= len(row); i += width {
		out = append(out, row[i:i+width])
	}
	return out
}

// Parse parses the textual contents of a .dmm file into a DreamMap.
func Parse(source string) (*DreamMap, error) {
	p, err := buildParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseString("", source)
	if err != nil {
		return nil, err
	}

	dm := &DreamMap{Legend: Legend{}}
	for _, e := range file.Entries {
		switch {
		case e.Legend != nil:
			dm.Legend[e.Legend.Key] = e.Legend.Paths
		case e.Block != nil:
			dm.Blocks = append(dm.Blocks, Block{
				X:    e.Block.X,
				Y:    e.Block.Y,
				Z:    e.Block.Z,
				Rows: decodeRows(e.Block.Raw),
			})
		}
	}
	return dm, nil
}

// decodeRows strips a coordinate block's `{"` / `"}` wrapper and splits
// the interior on newlines, dropping the leading/trailing blank line
// real .dmm files format the block with.
func decodeRows(raw string) []string {
	inner := strings.TrimPrefix(raw, `{"`)
	inner = strings.TrimSuffix(inner, `"}`)
	inner = strings.Trim(inner, "\n")
	if inner == "" {
		return nil
	}
	return strings.Split(inner, "\n")
}
