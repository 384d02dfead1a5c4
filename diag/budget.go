package diag

// PragmaTable maps diagnostic codes to an overridden level, gating
// emission per spec.md §7 ("A per-code level map... gates emission").
// A zero-value PragmaTable behaves exactly like defaultLevels.
type PragmaTable struct {
	overrides map[Code]Level
}

func NewPragmaTable() *PragmaTable {
	return &PragmaTable{overrides: make(map[Code]Level)}
}

// Set overrides the level for a code, e.g. from a `#pragma` directive
// or a future CLI flag.
func (p *PragmaTable) Set(code Code, level Level) {
	p.overrides[code] = level
}

// LevelFor resolves a code's effective level: override first, then the
// built-in default, then Error as a safe fallback for unknown codes.
func (p *PragmaTable) LevelFor(code Code) Level {
	if p != nil {
		if lvl, ok := p.overrides[code]; ok {
			return lvl
		}
	}
	if lvl, ok := defaultLevels[code]; ok {
		return lvl
	}
	return Error
}

// Sink collects diagnostics across a compilation, enforcing the error
// budget (spec.md §5: "once the accumulated error count reaches the
// configured maximum (default 100), every phase checks a flag at its
// loop boundaries and returns").
type Sink struct {
	Pragmas     *PragmaTable
	Budget      int
	diags       []Diagnostic
	errorCount  int
	onceSeen    map[Code]bool
}

// onceOnlyCodes are emitted at most once per compilation regardless of
// how many call sites trigger them (spec.md §7).
var onceOnlyCodes = map[Code]bool{
	CodeUnimplementedAccess: true,
}

func NewSink(budget int) *Sink {
	if budget <= 0 {
		budget = 100
	}
	return &Sink{Pragmas: NewPragmaTable(), Budget: budget, onceSeen: make(map[Code]bool)}
}

// Report records a diagnostic after resolving its effective level
// through the pragma table; a code resolved to Disabled is dropped
// silently. Errors (including warnings promoted to errors) count
// against the budget.
func (s *Sink) Report(d Diagnostic) {
	level := s.Pragmas.LevelFor(d.Code)
	if level == Disabled {
		return
	}
	d.Level = level
	if onceOnlyCodes[d.Code] {
		if s.onceSeen[d.Code] {
			return
		}
		s.onceSeen[d.Code] = true
	}
	s.diags = append(s.diags, d)
	if level == Error {
		s.errorCount++
	}
}

// Exceeded reports whether the error budget has been reached; phases
// check this at their loop boundaries and abort early when true.
func (s *Sink) Exceeded() bool {
	return s.errorCount >= s.Budget
}

func (s *Sink) ErrorCount() int { return s.errorCount }

func (s *Sink) All() []Diagnostic { return s.diags }

// OptionalErrors returns an entry for every code in optional, keyed by
// a stable string form of the code and valued by its current effective
// pragma level, whether or not that code was ever reported. Codes are
// small ints without a reserved 4000+ band of their own, so the driver
// passes in the subset it considers "optional" explicitly; see
// compiler.Driver.
func (s *Sink) OptionalErrors(optional map[Code]bool) map[string]int {
	out := make(map[string]int)
	for code := range optional {
		out[code.String()] = int(s.Pragmas.LevelFor(code))
	}
	return out
}
