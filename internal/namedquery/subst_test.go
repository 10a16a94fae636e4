package namedquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamCount(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want int
	}{
		{"no params", "SELECT * FROM users", 0},
		{"single", "SELECT * FROM users WHERE id = $1", 1},
		{"highest wins", "SELECT * FROM t WHERE a = $2 AND b = $1", 2},
		{"gap counts to highest", "SELECT * FROM t WHERE a = $3", 3},
		{"repeated", "SELECT * FROM t WHERE a = $1 OR b = $1", 1},
		{"quoted form counts", "db.users.findOne({email: '$1'})", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParamCount(tc.text))
		})
	}
}

func TestSubstitute(t *testing.T) {
	testCases := []struct {
		name string
		text string
		args []string
		want string
	}{
		{
			"quoted placeholder takes argument verbatim",
			"db.users.findOne({email: '$1'})",
			[]string{"john@example.com"},
			"db.users.findOne({email: 'john@example.com'})",
		},
		{
			"bare numeric stays raw",
			"SELECT * FROM users WHERE age > $1",
			[]string{"21"},
			"SELECT * FROM users WHERE age > 21",
		},
		{
			"bare string gets quoted",
			"SELECT * FROM users WHERE name = $1",
			[]string{"alice"},
			"SELECT * FROM users WHERE name = 'alice'",
		},
		{
			"multiple placeholders",
			"SELECT * FROM t WHERE a = $1 AND b = $2",
			[]string{"x", "5"},
			"SELECT * FROM t WHERE a = 'x' AND b = 5",
		},
		{
			"repeated placeholder",
			"SELECT * FROM t WHERE a = $1 OR b = $1",
			[]string{"7"},
			"SELECT * FROM t WHERE a = 7 OR b = 7",
		},
		{
			"embedded quote doubles",
			"SELECT * FROM t WHERE name = $1",
			[]string{"O'Brien"},
			"SELECT * FROM t WHERE name = 'O''Brien'",
		},
		{
			"star expands all with per-argument formatting",
			"SELECT * FROM t WHERE a IN ($*)",
			[]string{"1", "two", "3"},
			"SELECT * FROM t WHERE a IN (1, 'two', 3)",
		},
		{
			"at expands all quoted",
			"SELECT * FROM t WHERE a IN ($@)",
			[]string{"1", "two"},
			"SELECT * FROM t WHERE a IN ('1', 'two')",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.text, tc.args))
		})
	}
}

func TestSubstitute_ArgumentsInsertedLiterally(t *testing.T) {
	// Placeholder-shaped text inside an argument must come out verbatim,
	// not get expanded against the remaining arguments.
	testCases := []struct {
		name string
		text string
		args []string
		want string
	}{
		{
			"dollar digit in a quoted argument",
			"db.users.find({a: '$1', b: $2})",
			[]string{"$2", "7"},
			"db.users.find({a: '$2', b: 7})",
		},
		{
			"variadic marker in an argument",
			"SELECT * FROM t WHERE a = $1",
			[]string{"$@"},
			"SELECT * FROM t WHERE a = '$@'",
		},
		{
			"dollar digit inside a star expansion",
			"SELECT * FROM t WHERE a IN ($*)",
			[]string{"$1", "x"},
			"SELECT * FROM t WHERE a IN ('$1', 'x')",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.text, tc.args))
		})
	}
}
