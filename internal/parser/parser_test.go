package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/sqlerr"
)

func mustParse(t *testing.T, input string) *ast.Statement {
	t.Helper()
	stmt, err := ParseStatement(input)
	require.NoError(t, err)
	return stmt
}

func TestParse_SimpleSelect(t *testing.T) {
	stmt := mustParse(t, "SELECT name, age FROM users WHERE age > 21")

	require.Len(t, stmt.Projections, 2)
	assert.Equal(t, &ast.FieldRef{Path: []string{"name"}}, stmt.Projections[0].Expr)
	assert.Equal(t, "users", stmt.Collection)

	filter, ok := stmt.Filter.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpGt, filter.Op)
}

func TestParse_Wildcard(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM users")

	require.Len(t, stmt.Projections, 1)
	assert.IsType(t, &ast.Wildcard{}, stmt.Projections[0].Expr)
}

func TestParse_MultiplicationBindsTighterThanAddition(t *testing.T) {
	stmt := mustParse(t, "SELECT a + b * c FROM t")

	outer, ok := stmt.Projections[0].Expr.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, outer.Op)
	assert.Equal(t, &ast.FieldRef{Path: []string{"a"}}, outer.Left)

	inner, ok := outer.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, inner.Op)
	assert.Equal(t, &ast.FieldRef{Path: []string{"b"}}, inner.Left)
	assert.Equal(t, &ast.FieldRef{Path: []string{"c"}}, inner.Right)
}

func TestParse_AndBindsTighterThanOr(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")

	outer, ok := stmt.Filter.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, outer.Op)

	right, ok := outer.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, right.Op)
}

func TestParse_ParenthesesOverridePrecedence(t *testing.T) {
	stmt := mustParse(t, "SELECT (a + b) * c FROM t")

	outer, ok := stmt.Projections[0].Expr.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, outer.Op)

	inner, ok := outer.Left.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, inner.Op)
}

func TestParse_DottedPath(t *testing.T) {
	stmt := mustParse(t, "SELECT user.address.city FROM events")

	ref, ok := stmt.Projections[0].Expr.(*ast.FieldRef)
	require.True(t, ok)
	assert.Equal(t, []string{"user", "address", "city"}, ref.Path)
}

func TestParse_ArrayIndex(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		index int64
	}{
		{"first element", "SELECT tags[0] FROM posts", 0},
		{"last element", "SELECT tags[-1] FROM posts", -1},
		{"deep index", "SELECT matrix[2] FROM grids", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := mustParse(t, tc.input)
			idx, ok := stmt.Projections[0].Expr.(*ast.ArrayIndex)
			require.True(t, ok)
			assert.Equal(t, tc.index, idx.Index)
		})
	}
}

func TestParse_IndexThenField(t *testing.T) {
	stmt := mustParse(t, "SELECT items[0].name FROM orders")

	idx, ok := stmt.Projections[0].Expr.(*ast.ArrayIndex)
	require.True(t, ok)
	ref, ok := idx.Base.(*ast.FieldRef)
	require.True(t, ok)
	assert.Equal(t, []string{"items", "name"}, ref.Path)
}

func TestParse_ArraySlice(t *testing.T) {
	stmt := mustParse(t, "SELECT tags[1:5] FROM posts")

	slice, ok := stmt.Projections[0].Expr.(*ast.ArraySlice)
	require.True(t, ok)
	require.NotNil(t, slice.Start)
	require.NotNil(t, slice.End)
	assert.EqualValues(t, 1, *slice.Start)
	assert.EqualValues(t, 5, *slice.End)
	assert.Nil(t, slice.Step)
}

func TestParse_SliceVariants(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		start *int64
		end   *int64
		step  *int64
	}{
		{"omitted start", "SELECT tags[:3] FROM t", nil, ptr(3), nil},
		{"omitted end", "SELECT tags[2:] FROM t", ptr(2), nil, nil},
		{"negative start", "SELECT tags[-3:] FROM t", ptr(-3), nil, nil},
		{"with step", "SELECT tags[0:10:2] FROM t", ptr(0), ptr(10), ptr(2)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := mustParse(t, tc.input)
			slice, ok := stmt.Projections[0].Expr.(*ast.ArraySlice)
			require.True(t, ok)
			assert.Equal(t, tc.start, slice.Start)
			assert.Equal(t, tc.end, slice.End)
			assert.Equal(t, tc.step, slice.Step)
		})
	}
}

func ptr(n int64) *int64 { return &n }

func TestParse_BracketErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		code  sqlerr.Code
	}{
		{"empty index", "SELECT tags[] FROM t", sqlerr.CodeEmptyIndex},
		{"identifier index", "SELECT tags[abc] FROM t", sqlerr.CodeInvalidIndexType},
		{"decimal index", "SELECT tags[1.5] FROM t", sqlerr.CodeInvalidIndexType},
		{"string index", "SELECT tags['a'] FROM t", sqlerr.CodeInvalidIndexType},
		{"missing bracket", "SELECT tags[0 FROM t", sqlerr.CodeMissingClosingBracket},
		{"missing bracket at end", "SELECT tags[0", sqlerr.CodeMissingClosingBracket},
		{"missing bracket after slice", "SELECT tags[1:5 FROM t", sqlerr.CodeMissingClosingBracket},
		{"computed index", "SELECT arr[x+1] FROM t", sqlerr.CodeUnsupportedComputedIndex},
		{"computed numeric index", "SELECT arr[1+2] FROM t", sqlerr.CodeUnsupportedComputedIndex},
		{"zero step", "SELECT tags[0:5:0] FROM t", sqlerr.CodeInvalidSliceStep},
		{"negative step", "SELECT tags[0:5:-1] FROM t", sqlerr.CodeInvalidSliceStep},
		{"identifier step", "SELECT tags[0:5:n] FROM t", sqlerr.CodeInvalidSliceStep},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStatement(tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, sqlerr.CodeOf(err))
		})
	}
}

func TestParse_EmptyIndexMessage(t *testing.T) {
	_, err := ParseStatement("SELECT tags[] FROM t")
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"Empty array index. Use arr[0] for first element or arr[-1] for last element.")
}

func TestParse_ClauseOrder(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"where after group by", "SELECT * FROM t GROUP BY a WHERE b = 1"},
		{"where after order by", "SELECT * FROM t ORDER BY a WHERE b = 1"},
		{"group by after order by", "SELECT * FROM t ORDER BY a GROUP BY b"},
		{"order by after limit", "SELECT * FROM t LIMIT 5 ORDER BY a"},
		{"limit after offset", "SELECT * FROM t OFFSET 5 LIMIT 2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStatement(tc.input)
			require.Error(t, err)
			assert.Equal(t, sqlerr.CodeClauseOutOfOrder, sqlerr.CodeOf(err))
		})
	}
}

func TestParse_ClauseOrderMessageNamesPresentClause(t *testing.T) {
	// The message must point at the clause actually in the statement,
	// not at a later clause that never appeared.
	_, err := ParseStatement("SELECT * FROM t HAVING a = 1 GROUP BY b")
	require.Error(t, err)
	assert.Equal(t, sqlerr.CodeClauseOutOfOrder, sqlerr.CodeOf(err))
	assert.Contains(t, err.Error(), "GROUP BY clause must appear before HAVING")

	_, err = ParseStatement("SELECT * FROM t LIMIT 1 WHERE a = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WHERE clause must appear before LIMIT")
}

func TestParse_FullClauseSet(t *testing.T) {
	stmt := mustParse(t, `SELECT dept, COUNT(*) AS n FROM employees
		WHERE active = TRUE GROUP BY dept HAVING COUNT(*) > 5
		ORDER BY n DESC LIMIT 10 OFFSET 20`)

	assert.Len(t, stmt.GroupBy, 1)
	assert.NotNil(t, stmt.Having)
	require.Len(t, stmt.OrderBy, 1)
	assert.True(t, stmt.OrderBy[0].Desc)
	require.NotNil(t, stmt.Limit)
	assert.EqualValues(t, 10, *stmt.Limit)
	require.NotNil(t, stmt.Offset)
	assert.EqualValues(t, 20, *stmt.Offset)
}

func TestParse_Explain(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		verbosity ast.Verbosity
	}{
		{"default", "EXPLAIN SELECT * FROM t", ast.VerbosityQueryPlanner},
		{"executionStats", "EXPLAIN executionStats SELECT * FROM t", ast.VerbosityExecutionStats},
		{"allPlansExecution", "EXPLAIN allPlansExecution SELECT * FROM t", ast.VerbosityAllPlansExecution},
		{"quoted form", "EXPLAIN 'executionStats' SELECT * FROM t", ast.VerbosityExecutionStats},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt := mustParse(t, tc.input)
			assert.Equal(t, tc.verbosity, stmt.Explain)
		})
	}
}

func TestParse_ExplainInvalidQuotedVerbosity(t *testing.T) {
	_, err := ParseStatement("EXPLAIN 'bogus' SELECT * FROM t")
	require.Error(t, err)
	assert.Equal(t, sqlerr.CodeUnexpectedToken, sqlerr.CodeOf(err))
}

func TestParse_GroupByArrayAccessRejected(t *testing.T) {
	_, err := ParseStatement("SELECT COUNT(*) FROM posts GROUP BY tags[0]")
	require.Error(t, err)
	assert.Equal(t, sqlerr.CodeUnsupportedGroupBy, sqlerr.CodeOf(err))
}

func TestParse_Predicates(t *testing.T) {
	t.Run("IN", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE status IN ('a', 'b', 'c')")
		bin := stmt.Filter.(*ast.Binary)
		assert.Equal(t, ast.OpIn, bin.Op)
		list := bin.Right.(*ast.List)
		assert.Len(t, list.Items, 3)
	})

	t.Run("BETWEEN", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE age BETWEEN 18 AND 65")
		bin := stmt.Filter.(*ast.Binary)
		assert.Equal(t, ast.OpBetween, bin.Op)
		rng := bin.Right.(*ast.Range)
		assert.Equal(t, &ast.Number{Value: 18}, rng.Low)
		assert.Equal(t, &ast.Number{Value: 65}, rng.High)
	})

	t.Run("BETWEEN then AND chains", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE age BETWEEN 18 AND 65 AND active = TRUE")
		bin := stmt.Filter.(*ast.Binary)
		assert.Equal(t, ast.OpAnd, bin.Op)
		assert.Equal(t, ast.OpBetween, bin.Left.(*ast.Binary).Op)
	})

	t.Run("LIKE", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE name LIKE 'Jo%'")
		bin := stmt.Filter.(*ast.Binary)
		assert.Equal(t, ast.OpLike, bin.Op)
	})

	t.Run("LIKE non-string pattern", func(t *testing.T) {
		_, err := ParseStatement("SELECT * FROM t WHERE name LIKE 5")
		require.Error(t, err)
		assert.Equal(t, sqlerr.CodeUnexpectedToken, sqlerr.CodeOf(err))
	})

	t.Run("IS NULL", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE deleted_at IS NULL")
		isNull := stmt.Filter.(*ast.IsNull)
		assert.False(t, isNull.Negated)
	})

	t.Run("IS NOT NULL", func(t *testing.T) {
		stmt := mustParse(t, "SELECT * FROM t WHERE deleted_at IS NOT NULL")
		isNull := stmt.Filter.(*ast.IsNull)
		assert.True(t, isNull.Negated)
	})

	t.Run("inequality spellings", func(t *testing.T) {
		a := mustParse(t, "SELECT * FROM t WHERE a != 1").Filter.(*ast.Binary)
		b := mustParse(t, "SELECT * FROM t WHERE a <> 1").Filter.(*ast.Binary)
		assert.Equal(t, a.Op, b.Op)
	})
}

func TestParse_Aggregates(t *testing.T) {
	t.Run("COUNT star", func(t *testing.T) {
		stmt := mustParse(t, "SELECT COUNT(*) FROM t")
		agg := stmt.Projections[0].Expr.(*ast.Aggregate)
		assert.Equal(t, ast.AggCount, agg.Kind)
		assert.Nil(t, agg.Arg)
		assert.False(t, agg.Distinct)
	})

	t.Run("COUNT DISTINCT", func(t *testing.T) {
		stmt := mustParse(t, "SELECT COUNT(DISTINCT email) FROM users")
		agg := stmt.Projections[0].Expr.(*ast.Aggregate)
		assert.Equal(t, ast.AggCount, agg.Kind)
		assert.True(t, agg.Distinct)
		assert.Equal(t, &ast.FieldRef{Path: []string{"email"}}, agg.Arg)
	})

	t.Run("SUM of expression", func(t *testing.T) {
		stmt := mustParse(t, "SELECT SUM(price * quantity) FROM orders")
		agg := stmt.Projections[0].Expr.(*ast.Aggregate)
		assert.Equal(t, ast.AggSum, agg.Kind)
		assert.Equal(t, ast.OpMul, agg.Arg.(*ast.Binary).Op)
	})
}

func TestParse_Functions(t *testing.T) {
	t.Run("ROUND with precision", func(t *testing.T) {
		stmt := mustParse(t, "SELECT ROUND(price, 2) FROM items")
		call := stmt.Projections[0].Expr.(*ast.Call)
		assert.Equal(t, "ROUND", call.Name)
		assert.Len(t, call.Args, 2)
	})

	t.Run("aliases map to canonical names", func(t *testing.T) {
		stmt := mustParse(t, "SELECT CEILING(a), TRUNCATE(b) FROM t")
		assert.Equal(t, "CEIL", stmt.Projections[0].Expr.(*ast.Call).Name)
		assert.Equal(t, "TRUNC", stmt.Projections[1].Expr.(*ast.Call).Name)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := ParseStatement("SELECT UPPER(name) FROM t")
		require.Error(t, err)
		assert.Equal(t, sqlerr.CodeUnsupportedFunction, sqlerr.CodeOf(err))
	})

	t.Run("NOW with and without parens", func(t *testing.T) {
		bare := mustParse(t, "SELECT * FROM t WHERE created_at < NOW")
		called := mustParse(t, "SELECT * FROM t WHERE created_at < NOW()")
		assert.Equal(t, bare.Filter, called.Filter)
	})
}

func TestParse_Aliases(t *testing.T) {
	stmt := mustParse(t, "SELECT price * quantity AS total, name AS 'full name' FROM orders")

	assert.Equal(t, "total", stmt.Projections[0].Alias)
	assert.Equal(t, "full name", stmt.Projections[1].Alias)
}

func TestParse_NegativeNumberFolds(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE delta = -5")

	bin := stmt.Filter.(*ast.Binary)
	assert.Equal(t, &ast.Number{Value: -5}, bin.Right)
}

func TestParse_TrailingTokensRejected(t *testing.T) {
	_, err := ParseStatement("SELECT * FROM t garbage")
	require.Error(t, err)
	assert.Equal(t, sqlerr.CodeUnexpectedToken, sqlerr.CodeOf(err))
}

func TestParse_TrailingSemicolonAccepted(t *testing.T) {
	_, err := ParseStatement("SELECT * FROM t;")
	assert.NoError(t, err)
}

func TestParse_DottedCollection(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM analytics.events")
	assert.Equal(t, "analytics.events", stmt.Collection)
}

func TestIsSQLStatement(t *testing.T) {
	assert.True(t, IsSQLStatement("SELECT * FROM t"))
	assert.True(t, IsSQLStatement("  explain select 1"))
	assert.False(t, IsSQLStatement("db.users.findOne({})"))
	assert.False(t, IsSQLStatement("show collections"))
}
