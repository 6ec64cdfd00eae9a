package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// ListRuns returns up to limit runs, newest first, without outcomes.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, environment, created_at, passes, fails, skipped, undefined_alias_groups, success_rate
		FROM runs
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run with its outcomes in dispatch order.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, environment, created_at, passes, fails, skipped, undefined_alias_groups, success_rate
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Outcomes, err = s.ReadOutcomes(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// ReadOutcomes returns the outcomes of a run ordered by dispatch index.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, status, code, message, note, missing_dependencies, missing_aliases
		FROM outcomes
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRecord
	for rows.Next() {
		var (
			o             OutcomeRecord
			deps, aliases string
		)
		if err := rows.Scan(&o.Index, &o.Name, &o.Status, &o.Code, &o.Message, &o.Note, &deps, &aliases); err != nil {
			return nil, fmt.Errorf("read outcomes: %w", err)
		}
		if o.MissingDependencies, err = unmarshalList(deps); err != nil {
			return nil, fmt.Errorf("read outcomes: missing_dependencies: %w", err)
		}
		if o.MissingAliases, err = unmarshalList(aliases); err != nil {
			return nil, fmt.Errorf("read outcomes: missing_aliases: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	return outcomes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		run       RunRecord
		createdAt string
	)
	err := row.Scan(
		&run.ID,
		&run.Environment,
		&createdAt,
		&run.Passes,
		&run.Fails,
		&run.Skipped,
		&run.UndefinedAliasGroups,
		&run.SuccessRate,
	)
	if err != nil {
		return RunRecord{}, err
	}
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return run, nil
}

// unmarshalList decodes a JSON array column; an empty array becomes nil.
func unmarshalList(data string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
