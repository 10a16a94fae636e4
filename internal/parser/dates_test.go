package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/sqlerr"
)

func TestParseDateLiteral_Normalization(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"date only", "2024-01-15", "2024-01-15T00:00:00.000Z"},
		{"slash separated", "2024/01/15", "2024-01-15T00:00:00.000Z"},
		{"space separated", "2024-01-15 10:30:00", "2024-01-15T10:30:00.000Z"},
		{"T separated", "2024-01-15T10:30:00", "2024-01-15T10:30:00.000Z"},
		{"with millis", "2024-01-15T10:30:00.123Z", "2024-01-15T10:30:00.123Z"},
		{"short fraction pads right", "2024-01-15T10:30:00.5Z", "2024-01-15T10:30:00.500Z"},
		{"offset converts to UTC", "2024-01-15T10:30:00+05:30", "2024-01-15T05:00:00.000Z"},
		{"negative offset", "2024-01-15T22:00:00-04:00", "2024-01-16T02:00:00.000Z"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lit, err := ParseDateLiteral(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, lit.ISO)
			assert.Equal(t, time.UTC, lit.Value.Location())
		})
	}
}

func TestParseDateLiteral_TimeOutOfRange(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		field string
	}{
		{"hour 25", "2024-01-15T25:00:00", "hour"},
		{"minute 61", "2024-01-15T10:61:00", "minute"},
		{"second 99", "2024-01-15T10:30:99", "second"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDateLiteral(tc.input)
			require.Error(t, err)
			require.Equal(t, sqlerr.CodeTimeOutOfRange, sqlerr.CodeOf(err))

			var ce *sqlerr.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Details["field"])
		})
	}
}

func TestParseDateLiteral_ParseErrors(t *testing.T) {
	testCases := []string{
		"not a date",
		"2024-1-5",          // single digit components
		"2024-01/15",        // mixed separators
		"2024-13-01",        // month out of range
		"2024-02-30",        // day not in calendar
		"15-01-2024",        // wrong field order
		"2024-01-15T10:30",  // missing seconds
		"2024-01-15X10:30:00", // bad separator
	}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDateLiteral(input)
			require.Error(t, err)
			assert.Equal(t, sqlerr.CodeDateParse, sqlerr.CodeOf(err))
		})
	}
}

func TestParse_DateAndTimestampLiteralsAgree(t *testing.T) {
	// A date-only literal means midnight UTC, so these two statements
	// must produce the same value.
	a := mustParse(t, "SELECT * FROM t WHERE d = DATE '2024-01-15'")
	b := mustParse(t, "SELECT * FROM t WHERE d = TIMESTAMP '2024-01-15T00:00:00.000Z'")

	assert.Equal(t, a.Filter, b.Filter)
}

func TestParse_DateCallForms(t *testing.T) {
	typed := mustParse(t, "SELECT * FROM t WHERE d = TIMESTAMP '2024-01-15T10:00:00Z'")
	called := mustParse(t, "SELECT * FROM t WHERE d = TIMESTAMP('2024-01-15T10:00:00Z')")
	iso := mustParse(t, "SELECT * FROM t WHERE d = ISODate('2024-01-15T10:00:00Z')")

	assert.Equal(t, typed.Filter, called.Filter)
	assert.Equal(t, typed.Filter, iso.Filter)
}

func TestParse_DateAsFieldName(t *testing.T) {
	stmt := mustParse(t, "SELECT date FROM events")
	assert.Equal(t, []string{"date"}, stmt.Projections[0].Expr.(*ast.FieldRef).Path)
}
