// Package ast defines the expression and statement trees produced by
// the parser and consumed by the translator and planner.
//
// Expr is a sealed interface: only types in this package implement it.
// The marker method pattern prevents external implementations and keeps
// type switches in downstream packages exhaustive — adding a node kind
// is a compile-time-visible change in every consumer.
package ast

import "time"

// Expr represents a value expression.
type Expr interface {
	exprNode() // marker method, seals the interface to this package
}

// FieldRef is a (possibly dotted) reference to a document field,
// e.g. `user.roles` is Path ["user", "roles"].
type FieldRef struct {
	Path []string
}

func (*FieldRef) exprNode() {}

// Number is a numeric literal. Whole values lower to 64-bit integers at
// translation; everything else stays a double.
type Number struct {
	Value float64
}

func (*Number) exprNode() {}

// String is a string literal.
type String struct {
	Value string
}

func (*String) exprNode() {}

// Bool is a boolean literal.
type Bool struct {
	Value bool
}

func (*Bool) exprNode() {}

// Null is the NULL literal.
type Null struct{}

func (*Null) exprNode() {}

// DateLit is a date/time literal already validated and normalized to
// UTC by the parser. ISO holds the normalized ISO-8601 form with
// milliseconds (e.g. "2024-01-15T00:00:00.000Z").
type DateLit struct {
	ISO   string
	Value time.Time
}

func (*DateLit) exprNode() {}

// CurrentTime marks a deferred "current server time" value
// (CURRENT_TIMESTAMP, CURRENT_DATE, NOW). It is deliberately NOT
// resolved at compile time: a compiled statement executed twice must
// see two different times.
type CurrentTime struct {
	Kind string // "CURRENT_TIMESTAMP" | "CURRENT_DATE" | "NOW"
}

func (*CurrentTime) exprNode() {}

// ArrayIndex accesses a single array element by literal offset.
// Negative offsets address from the end. The index is always a literal:
// computed indices are rejected at parse time.
type ArrayIndex struct {
	Base  Expr
	Index int64
}

func (*ArrayIndex) exprNode() {}

// ArraySlice accesses an array range with Python-style semantics.
// Bounds are literal when present; Step, when present, is a positive
// literal.
type ArraySlice struct {
	Base  Expr
	Start *int64
	End   *int64
	Step  *int64
}

func (*ArraySlice) exprNode() {}

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"

	OpEq BinaryOp = "="
	OpNe BinaryOp = "!="
	OpGt BinaryOp = ">"
	OpLt BinaryOp = "<"
	OpGe BinaryOp = ">="
	OpLe BinaryOp = "<="

	OpAnd BinaryOp = "AND"
	OpOr  BinaryOp = "OR"

	OpIn      BinaryOp = "IN"
	OpBetween BinaryOp = "BETWEEN"
	OpLike    BinaryOp = "LIKE"
)

// IsArithmetic reports whether the operator is +, -, *, / or %.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether the operator compares two values.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpIn, OpBetween, OpLike:
		return true
	}
	return false
}

// Binary applies a binary operator. For OpIn the right side is a *List;
// for OpBetween it is a *Range.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*Binary) exprNode() {}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "NOT"
)

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (*Unary) exprNode() {}

// List is a parenthesized value list, produced only as the right-hand
// side of IN.
type List struct {
	Items []Expr
}

func (*List) exprNode() {}

// Range is the inclusive bound pair of BETWEEN.
type Range struct {
	Low  Expr
	High Expr
}

func (*Range) exprNode() {}

// IsNull is the IS NULL / IS NOT NULL predicate.
type IsNull struct {
	Operand Expr
	Negated bool
}

func (*IsNull) exprNode() {}

// Call is a non-aggregate function call from the fixed registry
// (ROUND, ABS, CEIL, FLOOR, TRUNC, DATE, TIMESTAMP, ISODate).
type Call struct {
	Name string // upper-cased canonical name
	Args []Expr
}

func (*Call) exprNode() {}

// AggregateKind identifies an aggregate function.
type AggregateKind string

const (
	AggCount AggregateKind = "COUNT"
	AggSum   AggregateKind = "SUM"
	AggAvg   AggregateKind = "AVG"
	AggMin   AggregateKind = "MIN"
	AggMax   AggregateKind = "MAX"
)

// Aggregate is an aggregate function application. A nil Arg means the
// wildcard form COUNT(*).
type Aggregate struct {
	Kind     AggregateKind
	Arg      Expr
	Distinct bool
}

func (*Aggregate) exprNode() {}

// Wildcard is the bare `*` projection.
type Wildcard struct{}

func (*Wildcard) exprNode() {}

// Verbosity is the EXPLAIN verbosity level.
type Verbosity string

const (
	VerbosityQueryPlanner      Verbosity = "queryPlanner"
	VerbosityExecutionStats    Verbosity = "executionStats"
	VerbosityAllPlansExecution Verbosity = "allPlansExecution"
)

// Projection is one SELECT list item.
type Projection struct {
	Expr  Expr
	Alias string // "" when no AS alias was given
}

// OrderKey is one ORDER BY item.
type OrderKey struct {
	Expr Expr // FieldRef or array-access chain
	Desc bool
}

// Statement is a parsed SELECT statement, optionally wrapped in
// EXPLAIN (Explain != "").
type Statement struct {
	Projections []Projection
	Collection  string
	Filter      Expr
	GroupBy     []Expr // validated to be FieldRefs
	Having      Expr
	OrderBy     []OrderKey
	Limit       *int64
	Offset      *int64
	Explain     Verbosity
}
