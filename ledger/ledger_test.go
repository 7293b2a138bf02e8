package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLedger_RoundTripsThroughDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "save", DefaultJSONFile)

	l, err := OpenJSON(path)
	require.NoError(t, err)
	ok, err := l.Contains(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, path)

	require.NoError(t, l.Add(ctx, "a@example.com"))
	require.NoError(t, l.Add(ctx, "b@example.com"))
	require.NoError(t, l.Add(ctx, "a@example.com"))

	reopened, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, reopened.IDs())
	ok, err = reopened.Contains(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"processed_ids"`)
}

func TestJSONLedger_ReadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultJSONFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"processed_ids": ["18d2f", "18d30"]}`), 0644))

	l, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"18d2f", "18d30"}, l.IDs())
}

func TestJSONLedger_DamagedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultJSONFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	l, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Empty(t, l.IDs())

	require.NoError(t, l.Add(context.Background(), "x"))
	reopened, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, reopened.IDs())
}

func TestSQLiteLedger(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer l.Close()

	l.SetRunID("run-1")
	require.NoError(t, l.Add(ctx, "a@example.com"))
	l.SetRunID("run-2")
	require.NoError(t, l.Add(ctx, "a@example.com"))
	require.NoError(t, l.Add(ctx, "b@example.com"))

	ok, err := l.Contains(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Contains(ctx, "c@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a@example.com", records[0].ID)
	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, "run-2", records[1].RunID)
}

func TestSQLiteLedger_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultSQLiteFile)

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, l.Add(ctx, "a"))
	require.NoError(t, l.Close())

	l, err = OpenSQLite(path)
	require.NoError(t, err)
	defer l.Close()

	var version int
	require.NoError(t, l.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)

	ok, err := l.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open("", "", dir)
	require.NoError(t, err)
	assert.IsType(t, &JSONLedger{}, l)
	require.NoError(t, l.Close())

	l, err = Open(BackendSQLite, "", dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, l)
	require.NoError(t, l.Close())
	assert.FileExists(t, filepath.Join(dir, DefaultSQLiteFile))

	_, err = Open("redis", "", dir)
	assert.Error(t, err)
}
