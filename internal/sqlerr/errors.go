// Package sqlerr defines the error taxonomy shared by every stage of
// the SQL compiler (lexer, parser, validation, translation, planning)
// and by the named query engine.
//
// All compiler failures are values of *Error with a stable Code, a
// human-readable message, and an optional byte position into the source
// text. Errors are returned to the immediate caller; nothing is retried
// or downgraded, and no partial plan is ever produced alongside one.
package sqlerr

import (
	"errors"
	"fmt"
)

// Code identifies the error category. Codes are stable: callers may
// switch on them, and user-facing tooling keys help text off them.
type Code string

const (
	// Lexical errors.
	CodeUnterminatedString Code = "UNTERMINATED_STRING"
	CodeInvalidCharacter   Code = "INVALID_CHARACTER"

	// Structural grammar errors.
	CodeUnexpectedToken       Code = "UNEXPECTED_TOKEN"
	CodeMissingClosingBracket Code = "MISSING_CLOSING_BRACKET"
	CodeEmptyIndex            Code = "EMPTY_INDEX"
	CodeInvalidIndexType      Code = "INVALID_INDEX_TYPE"
	CodeInvalidSliceStep      Code = "INVALID_SLICE_STEP"
	CodeClauseOutOfOrder      Code = "CLAUSE_OUT_OF_ORDER"

	// Semantic validation errors (grammatically valid input).
	CodeUnsupportedGroupBy       Code = "UNSUPPORTED_GROUP_BY_EXPRESSION"
	CodeUnsupportedComputedIndex Code = "UNSUPPORTED_COMPUTED_INDEX"
	CodeUnsupportedFunction      Code = "UNSUPPORTED_FUNCTION"

	// Date and time literal errors.
	CodeDateParse      Code = "DATE_PARSE_ERROR"
	CodeTimeOutOfRange Code = "TIME_OUT_OF_RANGE"

	// Translation errors.
	CodeDivisionByZeroLiteral Code = "DIVISION_BY_ZERO_LITERAL"

	// Named query errors.
	CodeQueryNotFound      Code = "QUERY_NOT_FOUND"
	CodeParamCountMismatch Code = "PARAM_COUNT_MISMATCH"
)

// Error is a structured compiler error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description rendered verbatim to the
	// user by the caller.
	Message string

	// Pos is the byte offset into the source text, or -1 when the error
	// is not tied to a position (translation and named query errors).
	Pos int

	// Details carries structured context (e.g. expected/got arity).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (at offset %d)", e.Code, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the Code of err if it is (or wraps) an *Error, and ""
// otherwise.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// New creates an Error without position information.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     -1,
	}
}

// NewAt creates an Error tied to a byte offset in the source text.
func NewAt(code Code, pos int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// WithDetail attaches a structured detail and returns the same error
// for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// NewEmptyIndex reports empty array index brackets.
func NewEmptyIndex(pos int) *Error {
	return NewAt(CodeEmptyIndex, pos,
		"Empty array index. Use arr[0] for first element or arr[-1] for last element.")
}

// NewInvalidIndexType reports a non-numeric array index.
func NewInvalidIndexType(pos int, lexeme string) *Error {
	return NewAt(CodeInvalidIndexType, pos,
		"Invalid array index '%s'. Index must be a number.", lexeme).
		WithDetail("index", lexeme)
}

// NewMissingClosingBracket reports an unclosed array access.
func NewMissingClosingBracket(pos int) *Error {
	return NewAt(CodeMissingClosingBracket, pos,
		"Missing closing bracket ']' for array access.")
}

// NewTimeOutOfRange reports a time component outside its valid range.
func NewTimeOutOfRange(field string, value int) *Error {
	return New(CodeTimeOutOfRange, "%s value %d is out of range", field, value).
		WithDetail("field", field).
		WithDetail("value", fmt.Sprintf("%d", value))
}

// NewDateParse reports a date literal that matches none of the accepted
// patterns.
func NewDateParse(input string) *Error {
	return New(CodeDateParse,
		"Invalid date string '%s'. Supported formats: ISO 8601 ('2026-02-15T16:00:00Z'), date only ('2026-02-15'), space-separated ('2026-02-15 16:00:00'), slash-separated ('2026/02/15')",
		input).
		WithDetail("input", input)
}

// NewParamCountMismatch reports a named query invoked with the wrong
// number of arguments.
func NewParamCountMismatch(name string, expected, got int) *Error {
	return New(CodeParamCountMismatch,
		"named query '%s' expects %d argument(s), got %d", name, expected, got).
		WithDetail("expected", fmt.Sprintf("%d", expected)).
		WithDetail("got", fmt.Sprintf("%d", got))
}

// NewQueryNotFound reports an unknown named query.
func NewQueryNotFound(name string) *Error {
	return New(CodeQueryNotFound, "Named query '%s' not found", name)
}
