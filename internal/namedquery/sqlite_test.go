package namedquery

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mongosql/internal/sqlerr"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveLoadRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	saved := NamedQuery{
		Name:      "active-users",
		Text:      "SELECT * FROM users WHERE status = $1",
		Params:    1,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, saved))

	got, err := store.Load(ctx, "active-users")
	require.NoError(t, err)
	assert.Equal(t, saved.Name, got.Name)
	assert.Equal(t, saved.Text, got.Text)
	assert.Equal(t, saved.Params, got.Params)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_LoadUnknown(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, sqlerr.CodeQueryNotFound, sqlerr.CodeOf(err))
}

func TestSQLiteStore_SaveUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NamedQuery{
		Name: "q", Text: "SELECT * FROM a", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Save(ctx, NamedQuery{
		Name: "q", Text: "SELECT * FROM b WHERE x = $1", Params: 1, CreatedAt: time.Now().UTC(),
	}))

	got, err := store.Load(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM b WHERE x = $1", got.Text)
	assert.Equal(t, 1, got.Params)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_ListOrderedByName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Save(ctx, NamedQuery{
			Name: name, Text: "SELECT * FROM t", CreatedAt: time.Now().UTC(),
		}))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestSQLiteStore_DeleteCascadesExecutions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NamedQuery{
		Name: "doomed", Text: "SELECT * FROM t", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.RecordExecution(ctx, Execution{
		ID: uuid.NewString(), QueryName: "doomed", RanAt: time.Now().UTC(),
	}))

	require.NoError(t, store.Delete(ctx, "doomed"))

	_, err := store.Load(ctx, "doomed")
	assert.Equal(t, sqlerr.CodeQueryNotFound, sqlerr.CodeOf(err))

	execs, err := store.Executions(ctx, "doomed")
	require.NoError(t, err)
	assert.Empty(t, execs)
}

func TestSQLiteStore_ExecutionsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NamedQuery{
		Name: "audited", Text: "SELECT * FROM t WHERE a = $1", Params: 1, CreatedAt: time.Now().UTC(),
	}))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordExecution(ctx, Execution{
			ID:        uuid.NewString(),
			QueryName: "audited",
			Args:      []string{"x"},
			RanAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	execs, err := store.Executions(ctx, "audited")
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.True(t, execs[0].RanAt.After(execs[1].RanAt))
	assert.True(t, execs[1].RanAt.After(execs[2].RanAt))
	assert.Equal(t, []string{"x"}, execs[0].Args)
}

func TestSQLiteStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.db")
	ctx := context.Background()

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, NamedQuery{
		Name: "durable", Text: "SELECT * FROM t", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", got.Text)
}
