package ast

import (
	"github.com/roach88/mongosql/internal/sqlerr"
)

// Validate checks semantic rules the grammar alone cannot express.
// It runs after parsing and before translation; a statement that fails
// validation never reaches the translator.
//
// Rules:
//  1. GROUP BY entries must be plain field references — array indexing
//     or slicing in a grouping key is unsupported.
//  2. Array index/slice bases must be field chains (a field reference
//     or a nested chain of array accesses), never the result of an
//     arithmetic or function expression.
func Validate(stmt *Statement) error {
	for _, key := range stmt.GroupBy {
		if _, ok := key.(*FieldRef); !ok {
			return sqlerr.New(sqlerr.CodeUnsupportedGroupBy,
				"GROUP BY does not support array access expression '%s'; group by a plain field instead",
				Display(key))
		}
	}

	for _, e := range stmt.allExprs() {
		if err := validateIndexBases(e); err != nil {
			return err
		}
	}
	return nil
}

// validateIndexBases walks e and rejects array accesses whose base is
// not a field chain.
func validateIndexBases(e Expr) error {
	var bad Expr
	Walk(e, func(n Expr) bool {
		switch v := n.(type) {
		case *ArrayIndex:
			if !IsFieldChain(v.Base) {
				bad = n
				return false
			}
		case *ArraySlice:
			if !IsFieldChain(v.Base) {
				bad = n
				return false
			}
		}
		return true
	})
	if bad != nil {
		return sqlerr.New(sqlerr.CodeUnsupportedComputedIndex,
			"array access base in '%s' must be a field path, not a computed expression",
			Display(bad))
	}
	return nil
}

// allExprs collects every expression hanging off the statement.
func (s *Statement) allExprs() []Expr {
	var out []Expr
	for _, p := range s.Projections {
		out = append(out, p.Expr)
	}
	if s.Filter != nil {
		out = append(out, s.Filter)
	}
	out = append(out, s.GroupBy...)
	if s.Having != nil {
		out = append(out, s.Having)
	}
	for _, o := range s.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}
