package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_outcomes_name'`).Scan(&name)
	require.NoError(t, err)
}

func TestOpen_ConfiguresConnection(t *testing.T) {
	s := openTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version 99 is newer")
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, NewRunID())
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.WriteRun(ctx, RunRecord{
		Environment:          "demo-host",
		CreatedAt:            created,
		Passes:               1,
		Fails:                1,
		Skipped:              1,
		UndefinedAliasGroups: 1,
		SuccessRate:          50,
		Outcomes: []OutcomeRecord{
			{Index: 0, Name: "cache.invalidate", Status: "passed", MissingAliases: []string{"cache_invalidate"}},
			{Index: 1, Name: "debug.getinfo", Status: "failed", Code: "CALLBACK_ERROR", Message: "boom", MissingDependencies: []string{"debug.setinfo"}},
			{Index: 2, Name: "crypt.random", Status: "skipped"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo-host", run.Environment)
	assert.True(t, created.Equal(run.CreatedAt))
	assert.Equal(t, 50, run.SuccessRate)
	require.Len(t, run.Outcomes, 3)

	assert.Equal(t, []string{"cache_invalidate"}, run.Outcomes[0].MissingAliases)
	assert.Nil(t, run.Outcomes[0].MissingDependencies)
	assert.Equal(t, "CALLBACK_ERROR", run.Outcomes[1].Code)
	assert.Equal(t, []string{"debug.setinfo"}, run.Outcomes[1].MissingDependencies)
	assert.Equal(t, "skipped", run.Outcomes[2].Status)
}

func TestWriteRun_DuplicateIDRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := RunRecord{ID: "fixed-id", Environment: "a", Outcomes: []OutcomeRecord{{Index: 0, Name: "x", Status: "passed"}}}
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	_, err = s.WriteRun(ctx, run)
	require.Error(t, err)

	outcomes, err := s.ReadOutcomes(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestReadRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, env := range []string{"first", "second", "third"} {
		// Sub-second offsets exercise the fixed-width timestamp ordering.
		_, err := s.WriteRun(ctx, RunRecord{
			Environment: env,
			CreatedAt:   base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Environment)
	assert.Equal(t, "first", runs[2].Environment)
	assert.Empty(t, runs[0].Outcomes)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
