package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WriteRun inserts a run and all of its outcomes in one transaction.
// An empty ID is replaced by NewRunID and a zero CreatedAt by the current
// time; the stored ID is returned.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, environment, created_at, passes, fails, skipped, undefined_alias_groups, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Environment,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Passes,
		run.Fails,
		run.Skipped,
		run.UndefinedAliasGroups,
		run.SuccessRate,
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	for _, o := range run.Outcomes {
		deps, err := marshalList(o.MissingDependencies)
		if err != nil {
			return "", fmt.Errorf("write outcome %d: %w", o.Index, err)
		}
		aliases, err := marshalList(o.MissingAliases)
		if err != nil {
			return "", fmt.Errorf("write outcome %d: %w", o.Index, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes
			(run_id, idx, name, status, code, message, note, missing_dependencies, missing_aliases)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			o.Index,
			o.Name,
			o.Status,
			o.Code,
			o.Message,
			o.Note,
			deps,
			aliases,
		)
		if err != nil {
			return "", fmt.Errorf("write outcome %d: %w", o.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return run.ID, nil
}

// marshalList encodes a string list as a JSON array; nil becomes "[]".
func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
