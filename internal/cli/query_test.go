package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "queries.db")
}

func TestQuerySaveAndList(t *testing.T) {
	store := tempStore(t)

	out, _, err := runCLI(t, "query", "save", "adults", "SELECT name FROM users WHERE age > $1", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 'adults' (1 parameter(s))")

	out, _, err = runCLI(t, "query", "ls", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "adults (1 param(s)): SELECT name FROM users WHERE age > $1")
}

func TestQueryRunCompilesSQL(t *testing.T) {
	store := tempStore(t)

	_, _, err := runCLI(t, "query", "save", "adults", "SELECT name FROM users WHERE age > $1", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "query", "run", "adults", "21", "--store", store)
	require.NoError(t, err)
	assert.Equal(t, "db.users.find({\"age\":{\"$gt\":21}}, {\"name\":1,\"_id\":0})\n", out)
}

func TestQueryRunPassesShellTemplatesThrough(t *testing.T) {
	store := tempStore(t)

	_, _, err := runCLI(t, "query", "save", "user-by-email", "db.users.findOne({email: '$1'})", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "query", "run", "user-by-email", "john@example.com", "--store", store)
	require.NoError(t, err)
	assert.Equal(t, "db.users.findOne({email: 'john@example.com'})\n", out)
}

func TestQueryRunArityMismatch(t *testing.T) {
	store := tempStore(t)

	_, _, err := runCLI(t, "query", "save", "adults", "SELECT * FROM users WHERE age > $1", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "query", "run", "adults", "--store", store)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [PARAM_COUNT_MISMATCH]")
}

func TestQueryRunUnknownName(t *testing.T) {
	out, _, err := runCLI(t, "query", "run", "missing", "--store", tempStore(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [QUERY_NOT_FOUND]")
}

func TestQueryRemove(t *testing.T) {
	store := tempStore(t)

	_, _, err := runCLI(t, "query", "save", "stale", "SELECT * FROM t", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "query", "rm", "stale", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 'stale'")

	out, _, err = runCLI(t, "query", "ls", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved queries.")
}

func TestQueryRemoveUnknown(t *testing.T) {
	out, _, err := runCLI(t, "query", "rm", "never-saved", "--store", tempStore(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [QUERY_NOT_FOUND]")
}

func TestQuerySaveJSON(t *testing.T) {
	store := tempStore(t)

	out, _, err := runCLI(t, "--format", "json", "query", "save", "pair", "SELECT * FROM t WHERE a = $1 AND b = $2", "--store", store)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pair", data["name"])
	assert.EqualValues(t, 2, data["params"])
}

func TestQueryRunJSON(t *testing.T) {
	store := tempStore(t)

	_, _, err := runCLI(t, "query", "save", "adults", "SELECT name FROM users WHERE age > $1", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "--format", "json", "query", "run", "adults", "21", "--store", store)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "users", data["collection"])
	assert.Equal(t, "find", data["kind"])
	assert.Contains(t, data["query"], "db.users.find(")
}

func TestQuerySaveMultiWordTemplate(t *testing.T) {
	store := tempStore(t)

	// The template may arrive as several shell words; save joins them.
	_, _, err := runCLI(t, "query", "save", "split",
		"SELECT", "*", "FROM", "users", "WHERE", "id", "=", "$1", "--store", store)
	require.NoError(t, err)

	out, _, err := runCLI(t, "query", "run", "split", "7", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "db.users.find({\"id\":7})")
}
