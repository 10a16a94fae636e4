package planner

import (
	"github.com/roach88/mongosql/internal/ast"
)

// fastPathEligible reports whether the statement can run as a plain
// find() call: no grouping or aggregation, only plain field
// projections without aliases, a filter made of simple predicates, and
// plain-field sort keys.
func fastPathEligible(stmt *ast.Statement) bool {
	if len(stmt.GroupBy) > 0 || stmt.Having != nil {
		return false
	}
	for _, p := range stmt.Projections {
		switch p.Expr.(type) {
		case *ast.Wildcard:
		case *ast.FieldRef:
			// An alias needs a $project rename.
			if p.Alias != "" {
				return false
			}
		default:
			return false
		}
	}
	if stmt.Filter != nil && !simplePredicate(stmt.Filter) {
		return false
	}
	for _, key := range stmt.OrderBy {
		if _, ok := key.Expr.(*ast.FieldRef); !ok {
			return false
		}
	}
	return true
}

// simplePredicate reports whether e translates to a find() filter
// without computed fields: comparisons between a plain field and a
// literal (or a deferred time marker), IN/BETWEEN/LIKE/IS NULL on a
// plain field, and AND/OR/NOT combinations of those.
func simplePredicate(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Binary:
		switch n.Op {
		case ast.OpAnd, ast.OpOr:
			return simplePredicate(n.Left) && simplePredicate(n.Right)
		case ast.OpIn:
			list, ok := n.Right.(*ast.List)
			if !ok || !isPlainField(n.Left) {
				return false
			}
			for _, item := range list.Items {
				if !isLiteral(item) {
					return false
				}
			}
			return true
		case ast.OpBetween:
			rng, ok := n.Right.(*ast.Range)
			return ok && isPlainField(n.Left) && isLiteral(rng.Low) && isLiteral(rng.High)
		case ast.OpLike:
			_, ok := n.Right.(*ast.String)
			return ok && isPlainField(n.Left)
		}
		if n.Op.IsComparison() {
			if isPlainField(n.Left) {
				return isLiteral(n.Right) || isCurrentTime(n.Right)
			}
			if isPlainField(n.Right) {
				return isLiteral(n.Left) || isCurrentTime(n.Left)
			}
			return false
		}
		return false
	case *ast.Unary:
		return n.Op == ast.OpNot && simplePredicate(n.Operand)
	case *ast.IsNull:
		return isPlainField(n.Operand)
	case *ast.Bool:
		return true
	}
	return false
}

func isPlainField(e ast.Expr) bool {
	_, ok := e.(*ast.FieldRef)
	return ok
}

func isLiteral(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Number, *ast.String, *ast.Bool, *ast.Null, *ast.DateLit:
		return true
	}
	return false
}

func isCurrentTime(e ast.Expr) bool {
	_, ok := e.(*ast.CurrentTime)
	return ok
}

// hasAggregates reports whether any projection or the HAVING clause
// applies an aggregate function.
func hasAggregates(stmt *ast.Statement) bool {
	for _, p := range stmt.Projections {
		if ast.HasAggregate(p.Expr) {
			return true
		}
	}
	return stmt.Having != nil && ast.HasAggregate(stmt.Having)
}

// splitConjuncts flattens a tree of top-level ANDs into its conjuncts.
func splitConjuncts(e ast.Expr) []ast.Expr {
	if b, ok := e.(*ast.Binary); ok && b.Op == ast.OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expr{e}
}

// joinConjuncts rebuilds a left-leaning AND tree from conjuncts.
func joinConjuncts(preds []ast.Expr) ast.Expr {
	if len(preds) == 0 {
		return nil
	}
	out := preds[0]
	for _, p := range preds[1:] {
		out = &ast.Binary{Op: ast.OpAnd, Left: out, Right: p}
	}
	return out
}
