// Package compiler is the front door: it runs the full lex, parse,
// validate, translate and plan sequence over one SQL statement.
package compiler

import (
	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/parser"
	"github.com/roach88/mongosql/internal/planner"
)

// CompiledQuery is the result of compiling one statement.
type CompiledQuery struct {
	// Plan is the executable form: a find() call or a pipeline.
	Plan planner.Plan

	// Explain is the requested verbosity, or "" when the statement was
	// not wrapped in EXPLAIN.
	Explain ast.Verbosity

	// Warnings lists constructs the target database can only
	// approximate. A non-empty list never prevents execution.
	Warnings []string

	// Statement is the parsed source, kept for tooling that inspects
	// the query beyond its plan.
	Statement *ast.Statement
}

// IsExplain reports whether the statement asked for a plan description
// instead of results.
func (q *CompiledQuery) IsExplain() bool { return q.Explain != "" }

// Compile runs the whole front-to-back sequence on one statement.
// Compilation is pure: no server round-trips, and compiling the same
// input twice yields identical plans.
func Compile(input string) (*CompiledQuery, error) {
	stmt, err := parser.ParseStatement(input)
	if err != nil {
		return nil, err
	}
	plan, warnings, err := planner.Build(stmt)
	if err != nil {
		return nil, err
	}
	return &CompiledQuery{
		Plan:      plan,
		Explain:   stmt.Explain,
		Warnings:  warnings,
		Statement: stmt,
	}, nil
}
