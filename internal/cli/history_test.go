package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capprobe/internal/store"
)

type historyResponse struct {
	Status string        `json:"status"`
	Data   HistoryResult `json:"data"`
}

// seedHistory creates a database holding two runs and returns its path.
func seedHistory(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "history.db")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = st.WriteRun(context.Background(), store.RunRecord{
		ID:          "run-old",
		Environment: "old-host",
		CreatedAt:   base,
		Passes:      1,
		SuccessRate: 100,
		Outcomes: []store.OutcomeRecord{
			{Index: 0, Name: "crypt.hash", Status: "passed", Note: "sha256 only"},
		},
	})
	require.NoError(t, err)

	_, err = st.WriteRun(context.Background(), store.RunRecord{
		ID:          "run-new",
		Environment: "new-host",
		CreatedAt:   base.Add(time.Hour),
		Fails:       1,
		Outcomes: []store.OutcomeRecord{
			{Index: 0, Name: "debug.setinfo", Status: "failed", Code: "MISSING_CAPABILITY", Message: "capability not found"},
		},
	})
	require.NoError(t, err)

	return db
}

func TestHistoryCommandRequiresDB(t *testing.T) {
	_, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestHistoryCommandNonExistentDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.db")

	_, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestHistoryCommandEmptyDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", out)

	out, _, err = execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)
	var resp historyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data.Runs)
	assert.Empty(t, resp.Data.Runs)
}

func TestHistoryCommandListsNewestFirst(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var resp historyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "run-new", resp.Data.Runs[0].ID)
	assert.Equal(t, "run-old", resp.Data.Runs[1].ID)
	assert.Empty(t, resp.Data.Runs[0].Outcomes, "listing omits outcomes")
}

func TestHistoryCommandLimit(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "run-new")
	assert.NotContains(t, out, "run-old")
}

func TestHistoryCommandShowRun(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-old")
	require.NoError(t, err)
	assert.Contains(t, out, "old-host  100% (1 passed, 0 failed, 0 skipped, 0 missing aliases)")
	assert.Contains(t, out, "  [0] passed  crypt.hash • sha256 only\n")

	out, _, err = execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-new")
	require.NoError(t, err)
	assert.Contains(t, out, "  [0] failed  debug.setinfo MISSING_CAPABILITY: capability not found\n")
}

func TestHistoryCommandUnknownRun(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: nope")
}
