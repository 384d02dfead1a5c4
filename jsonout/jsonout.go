// Package jsonout serializes a compiled objtree.Tree into the single
// ordered JSON artifact spec.md §6 describes, the last phase of the
// pipeline.
//
// Grounded on informatter-nilan's parser.astPrinter/PrintASTJSON/
// WriteASTJSONToFile: the same "visitor/walker builds a JSON-friendly
// value, then json.MarshalIndent" shape. Top-level key order (spec.md
// §6: "Metadata, Strings, Resources, GlobalProcs, Globals, Types, Procs,
// OptionalErrors") can't be expressed with a map (encoding/json sorts
// map keys), so this package uses a field-ordered struct with json tags
// instead of astPrinter's map[string]any — everything below the top
// level still uses the teacher's map-building style.
package jsonout

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"dmc/codegen"
	"dmc/dmmap"
	"dmc/objtree"
	"dmc/path"
)

const formatVersion = "dmc-1"

// Document is the top-level JSON artifact, field order pinned by the
// struct's declaration order (spec.md §6).
type Document struct {
	Metadata       string             `json:"Metadata"`
	Strings        []string           `json:"Strings"`
	Resources      []string           `json:"Resources,omitempty"`
	GlobalProcs    []int              `json:"GlobalProcs,omitempty"`
	Globals        *GlobalsSection    `json:"Globals,omitempty"`
	Types          []TypeRecord       `json:"Types"`
	Procs          []ProcRecord       `json:"Procs"`
	Maps           []MapRecord        `json:"Maps,omitempty"`
	OptionalErrors map[string]int     `json:"OptionalErrors,omitempty"`
}

// MapRecord is one entry of the `Maps` array: a parsed .dmm side channel
// (spec.md §6's "implementation-chosen key" allowance for map data),
// one per file the preprocessor resolved a `#include "*.dmm"` to. Grid
// expansion stays out of scope (spec.md §6 Non-goals), so this is the
// parsed legend/block structure dmmap.Parse produces, not instantiated
// objects.
type MapRecord struct {
	Path   string           `json:"Path"`
	Legend map[string][]string `json:"Legend,omitempty"`
	Blocks []MapBlockRecord `json:"Blocks,omitempty"`
}

// MapBlockRecord is one coordinate block of a MapRecord.
type MapBlockRecord struct {
	X    int      `json:"X"`
	Y    int      `json:"Y"`
	Z    int      `json:"Z"`
	Rows []string `json:"Rows"`
}

// GlobalsSection is the `Globals` field: a count, a parallel name array,
// and a name -> value map.
type GlobalsSection struct {
	GlobalCount int            `json:"GlobalCount"`
	Names       []string       `json:"Names"`
	Globals     map[string]any `json:"Globals"`
}

// TypeRecord is one entry of the `Types` array.
type TypeRecord struct {
	Path           string           `json:"Path"`
	Parent         *int             `json:"Parent,omitempty"`
	InitProc       *int             `json:"InitProc,omitempty"`
	Procs          [][]int          `json:"Procs,omitempty"`
	Variables      map[string]any   `json:"Variables,omitempty"`
	ConstVariables []string         `json:"ConstVariables,omitempty"`
	TmpVariables   []string         `json:"TmpVariables,omitempty"`
}

// ProcRecord is one entry of the `Procs` array, in proc-id order.
type ProcRecord struct {
	Name         string `json:"Name"`
	Owner        int    `json:"Owner"`
	IsVerb       bool   `json:"IsVerb,omitempty"`
	Bytecode     []byte `json:"Bytecode"`
	Constants    []any  `json:"Constants,omitempty"`
	MaxStackSize int    `json:"MaxStackSize"`
}

// resourceTable interns resource-literal paths into dense ids, the same
// shape as objtree.StringTable but scoped to this one serialization pass
// since the object tree itself never needs to look a resource back up.
type resourceTable struct {
	idByPath map[string]int
	paths    []string
}

func newResourceTable() *resourceTable {
	return &resourceTable{idByPath: map[string]int{}}
}

func (r *resourceTable) intern(p string) int {
	if id, ok := r.idByPath[p]; ok {
		return id
	}
	id := len(r.paths)
	r.paths = append(r.paths, p)
	r.idByPath[p] = id
	return id
}

// MapInput pairs a parsed .dmm map with the source path it came from, so
// Build can label each Maps entry with the file it was included from.
type MapInput struct {
	Path string
	Map  *dmmap.DreamMap
}

// Build walks tree and produces the Document spec.md §6 describes.
// optionalErrors is the caller's already-filtered
// diag.Sink.OptionalErrors result (diag's codes aren't numbered in a
// reserved band, so the driver decides which codes count as optional,
// not this package). maps is the driver's already-loaded .dmm side
// channel (dmmap.Load on each of the preprocessor's resolved includes);
// pass nil when there are none.
func Build(tree *objtree.Tree, optionalErrors map[string]int, maps []MapInput) *Document {
	res := newResourceTable()

	strings := make([]string, tree.Strings.Len())
	for i := range strings {
		strings[i] = tree.Strings.Name(i)
	}
	doc := &Document{
		Metadata: formatVersion,
		Strings:  strings,
	}

	if len(tree.GlobalProcs) > 0 {
		ids := make([]int, 0, len(tree.GlobalProcs))
		for _, id := range tree.GlobalProcs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		doc.GlobalProcs = ids
	}

	if len(tree.Globals) > 0 {
		names := make([]string, 0, len(tree.Globals))
		values := map[string]any{}
		for _, g := range tree.Globals {
			names = append(names, g.Name)
			values[g.Name] = encodeVariableValue(res, &g.Variable)
		}
		doc.Globals = &GlobalsSection{GlobalCount: len(tree.Globals), Names: names, Globals: values}
	}

	doc.Types = make([]TypeRecord, len(tree.Objects))
	for i, obj := range tree.Objects {
		doc.Types[i] = buildTypeRecord(res, obj)
	}

	doc.Procs = make([]ProcRecord, len(tree.Procs))
	for i, proc := range tree.Procs {
		doc.Procs[i] = buildProcRecord(res, proc)
	}

	if len(res.paths) > 0 {
		doc.Resources = res.paths
	}

	if len(maps) > 0 {
		doc.Maps = make([]MapRecord, len(maps))
		for i, m := range maps {
			doc.Maps[i] = buildMapRecord(m)
		}
	}

	if len(optionalErrors) > 0 {
		doc.OptionalErrors = optionalErrors
	}

	return doc
}

func buildMapRecord(in MapInput) MapRecord {
	rec := MapRecord{Path: in.Path, Legend: map[string][]string(in.Map.Legend)}
	rec.Blocks = make([]MapBlockRecord, len(in.Map.Blocks))
	for i, b := range in.Map.Blocks {
		rec.Blocks[i] = MapBlockRecord{X: b.X, Y: b.Y, Z: b.Z, Rows: b.Rows}
	}
	return rec
}

func buildTypeRecord(res *resourceTable, obj *objtree.Object) TypeRecord {
	rec := TypeRecord{Path: path.String(obj.Path)}
	if obj.HasParent {
		parent := obj.Parent
		rec.Parent = &parent
	}
	if obj.HasInitProc {
		initProc := obj.InitProcID
		rec.InitProc = &initProc
	}

	if len(obj.Procs) > 0 {
		names := make([]string, 0, len(obj.Procs))
		for name := range obj.Procs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec.Procs = append(rec.Procs, append([]int{}, obj.Procs[name]...))
		}
	}

	allVars := map[string]*objtree.Variable{}
	for name, v := range obj.Variables {
		allVars[name] = v
	}
	for name, v := range obj.VariableOverrides {
		allVars[name] = v
	}
	if len(allVars) > 0 {
		rec.Variables = map[string]any{}
		for name, v := range allVars {
			rec.Variables[name] = encodeVariableValue(res, v)
		}
	}

	rec.ConstVariables = sortedKeys(obj.ConstVariableNames)
	rec.TmpVariables = sortedKeys(obj.TmpVariableNames)
	return rec
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildProcRecord(res *resourceTable, proc *objtree.Proc) ProcRecord {
	rec := ProcRecord{
		Name:         proc.Name,
		Owner:        proc.OwningTypeID,
		IsVerb:       proc.IsVerb,
		Bytecode:     append([]byte{}, proc.Bytecode...),
		MaxStackSize: proc.MaxStackSize,
	}
	if len(proc.Constants) > 0 {
		rec.Constants = make([]any, len(proc.Constants))
		for i, c := range proc.Constants {
			rec.Constants[i] = encodeValue(res, c)
		}
	}
	return rec
}

// encodeVariableValue resolves a field's deferred initializer AST, if
// any, to a JSON-ready value (spec.md §3: "evaluation is deferred to
// JSON serialization").
func encodeVariableValue(res *resourceTable, v *objtree.Variable) any {
	if v.ValueAST == nil {
		return nil
	}
	constVal, ok := v.ValueAST.TryConstJSON()
	if !ok {
		return nil
	}
	return encodeValue(res, constVal)
}

// encodeValue applies spec.md §6's literal JSON encoding rules: null,
// bool, int64, float64 (with Infinity wrappers), string, resource
// ({"type":"resource","id":N}), and path (already a string by the time
// it reaches here, per PathExpr.TryConstJSON).
func encodeValue(res *resourceTable, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case int64:
		return x
	case float64:
		switch {
		case math.IsInf(x, 1):
			return map[string]any{"type": "PositiveInfinity"}
		case math.IsInf(x, -1):
			return map[string]any{"type": "NegativeInfinity"}
		default:
			return x
		}
	case string:
		return x
	case codegen.Resource:
		return map[string]any{"type": "resource", "id": res.intern(string(x))}
	case map[string]any:
		if x["type"] == "resource" {
			return map[string]any{"type": "resource", "id": res.intern(x["path"].(string))}
		}
		return x
	default:
		return x
	}
}

// WriteFile marshals doc as indented JSON and writes it to path.
func WriteFile(doc *Document, outPath string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
