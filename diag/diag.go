// Package diag is the compiler's unified diagnostic type: every phase
// (lexer, preprocessor, parser, folder, object-tree builder, emitter)
// reports through this package instead of ad hoc error structs, so the
// driver can apply one pragma table and one error budget across all of
// them.
//
// Grounded on informatter-nilan's SemanticError/DeveloperError
// (compiler/errors.go) and SyntaxError (parser/error.go): each was a
// small struct implementing error with an emoji-prefixed message. This
// package keeps that shape — a typed struct, not a sentinel or wrapped
// stdlib error — but folds the three into one (code, level, location,
// message) tuple per spec.md §7, so a single pragma table can gate all
// of them uniformly.
package diag

import (
	"fmt"

	"dmc/token"
)

// Level is a diagnostic's severity.
type Level int

const (
	Disabled Level = iota
	Notice
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Disabled:
		return "disabled"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Code is a closed diagnostic code. Codes are small sequential integers
// with no reserved "optional errors" band; which codes count as
// optional, and so appear in the output JSON's OptionalErrors map, is
// the set the caller passes to Sink.OptionalErrors.
type Code int

const (
	CodeUnknown Code = iota
	CodeSoftReservedKeyword
	CodeBadToken
	CodeBadExpression
	CodeBadStatement
	CodeBadDefinition
	CodeWriteToConstant
	CodeDuplicateVariable
	CodeDuplicateProc
	CodeMalformedMacro
	CodeUnknownVariable
	CodeUnsupportedTypeCheck
	CodePointlessScope
	CodeUnimplementedAccess
	CodeMissingInclude
	CodeIncludeCycle
	CodeUnbalancedConditional
	CodeMalformedDirective
	CodeDirectiveError
	CodeDirectiveWarning
	CodeUnterminatedString
	CodeIdentifierTooLong
	CodeStringTooLong
	CodeIllegalCharacter
	CodeIndentationError
	CodeNoProgress
	CodeStackOverflow
	CodeEmptyTokenStream
	CodeStackImbalance
	CodeMissingParentVariable
	CodeUnresolvedProc
	CodeDivisionByZero
	CodeMapLoadFailed
)

// defaultCodeNames backs Code.String() for diagnostic rendering.
var defaultCodeNames = map[Code]string{
	CodeUnknown:               "Unknown",
	CodeSoftReservedKeyword:   "SoftReservedKeyword",
	CodeBadToken:              "BadToken",
	CodeBadExpression:         "BadExpression",
	CodeBadStatement:          "BadStatement",
	CodeBadDefinition:         "BadDefinition",
	CodeWriteToConstant:       "WriteToConstant",
	CodeDuplicateVariable:     "DuplicateVariable",
	CodeDuplicateProc:         "DuplicateProc",
	CodeMalformedMacro:        "MalformedMacro",
	CodeUnknownVariable:       "UnknownVariable",
	CodeUnsupportedTypeCheck:  "UnsupportedTypeCheck",
	CodePointlessScope:        "PointlessScope",
	CodeUnimplementedAccess:   "UnimplementedAccess",
	CodeMissingInclude:        "MissingInclude",
	CodeIncludeCycle:          "IncludeCycle",
	CodeUnbalancedConditional: "UnbalancedConditional",
	CodeMalformedDirective:    "MalformedDirective",
	CodeDirectiveError:        "DirectiveError",
	CodeDirectiveWarning:      "DirectiveWarning",
	CodeUnterminatedString:    "UnterminatedString",
	CodeIdentifierTooLong:     "IdentifierTooLong",
	CodeStringTooLong:         "StringTooLong",
	CodeIllegalCharacter:      "IllegalCharacter",
	CodeIndentationError:      "IndentationError",
	CodeNoProgress:            "NoProgress",
	CodeStackOverflow:         "StackOverflow",
	CodeEmptyTokenStream:      "EmptyTokenStream",
	CodeStackImbalance:        "StackImbalance",
	CodeMissingParentVariable: "MissingParentVariable",
	CodeUnresolvedProc:        "UnresolvedProc",
	CodeDivisionByZero:        "DivisionByZero",
	CodeMapLoadFailed:         "MapLoadFailed",
}

func (c Code) String() string {
	if name, ok := defaultCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// defaultLevels is the built-in pragma table before any command-line or
// in-source #pragma overrides are applied.
var defaultLevels = map[Code]Level{
	CodeSoftReservedKeyword:   Notice,
	CodeBadToken:              Error,
	CodeBadExpression:         Error,
	CodeBadStatement:          Error,
	CodeBadDefinition:         Error,
	CodeWriteToConstant:       Error,
	CodeDuplicateVariable:     Error,
	CodeDuplicateProc:         Warning,
	CodeMalformedMacro:        Error,
	CodeUnknownVariable:       Error,
	CodeUnsupportedTypeCheck:  Warning,
	CodePointlessScope:        Notice,
	CodeUnimplementedAccess:   Warning,
	CodeMissingInclude:        Error,
	CodeIncludeCycle:          Error,
	CodeUnbalancedConditional: Error,
	CodeMalformedDirective:    Error,
	CodeDirectiveError:        Error,
	CodeDirectiveWarning:      Warning,
	CodeUnterminatedString:    Error,
	CodeIdentifierTooLong:     Error,
	CodeStringTooLong:         Error,
	CodeIllegalCharacter:      Error,
	CodeIndentationError:      Error,
	CodeNoProgress:            Error,
	CodeStackOverflow:         Error,
	CodeEmptyTokenStream:      Error,
	CodeStackImbalance:        Warning,
	CodeMissingParentVariable: Error,
	CodeUnresolvedProc:        Warning,
	CodeDivisionByZero:        Warning,
	CodeMapLoadFailed:         Warning,
}

// Diagnostic is the (code, level, location, message) tuple every
// compiler phase reports through.
type Diagnostic struct {
	Code     Code
	Level    Level
	Location token.Location
	Message  string
	Context  string // optional: e.g. the include chain for a cycle error
}

// Error implements the error interface so a Diagnostic can be returned
// and handled anywhere Go expects one (e.g. from a panic/recover
// boundary), echoing the teacher's emoji-tagged Error() string style.
func (d Diagnostic) Error() string {
	marker := "💥"
	if d.Level == Warning {
		marker = "⚠️"
	} else if d.Level == Notice {
		marker = "ℹ️"
	}
	if d.Context != "" {
		return fmt.Sprintf("%s %s: %s (at %s)\n  %s", marker, d.Code, d.Message, d.Location, d.Context)
	}
	return fmt.Sprintf("%s %s: %s (at %s)", marker, d.Code, d.Message, d.Location)
}

func New(code Code, level Level, loc token.Location, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Level: level, Location: loc, Message: fmt.Sprintf(format, args...)}
}
