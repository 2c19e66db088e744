package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// ScenarioRepository provides CRUD over the scenarios table.
type ScenarioRepository struct {
	db  *sql.DB
	now func() int64
}

const scenarioColumns = `id, title, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (schema.Scenario, error) {
	var (
		s                    schema.Scenario
		createdAt, updatedAt int64
	)
	if err := row.Scan(&s.ID, &s.Title, &createdAt, &updatedAt); err != nil {
		return s, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return s, nil
}

// Create inserts a scenario with the caller's id; timestamps are set to now.
func (r *ScenarioRepository) Create(ctx context.Context, in schema.NewScenario) (schema.Scenario, error) {
	if err := schema.Validate(in); err != nil {
		return schema.Scenario{}, err
	}
	now := r.now()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO scenarios (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+scenarioColumns, in.ID, in.Title, now, now)

	s, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("create scenario %s: no row returned", in.ID)
	}
	if err != nil {
		return s, conflictOr(err, "create scenario "+in.ID)
	}
	return schema.Parse[schema.Scenario](s)
}

// FindAll returns every scenario, most recently updated first.
func (r *ScenarioRepository) FindAll(ctx context.Context) ([]schema.Scenario, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scenarioColumns+` FROM scenarios
		ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	out := []schema.Scenario{}
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.Scenario](out)
}

// FindByID returns the scenario or nil when it does not exist.
func (r *ScenarioRepository) FindByID(ctx context.Context, id string) (*schema.Scenario, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = ?`, id)
	s, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	return schema.Parse[*schema.Scenario](s)
}

// Update renames a scenario. updated_at always advances, even when the
// clock has not.
func (r *ScenarioRepository) Update(ctx context.Context, id string, in schema.ScenarioUpdate) (schema.Scenario, error) {
	if err := schema.Validate(in); err != nil {
		return schema.Scenario{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE scenarios
		SET title = ?, updated_at = MAX(?, updated_at + 1)
		WHERE id = ?
		RETURNING `+scenarioColumns, in.Title, r.now(), id)

	s, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, apperr.NotFoundf("update scenario %s: no row updated", id)
	}
	if err != nil {
		return s, fmt.Errorf("update scenario %s: %w", id, err)
	}
	return schema.Parse[schema.Scenario](s)
}

// Delete removes a scenario. Deleting an absent id is not an error.
func (r *ScenarioRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete scenario %s: %w", id, err)
	}
	return nil
}

// Count returns the number of scenarios.
func (r *ScenarioRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scenarios: %w", err)
	}
	return count, nil
}

func insertScenarioTx(ctx context.Context, tx *sql.Tx, s schema.Scenario) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO scenarios (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Title, toMillis(s.CreatedAt), toMillis(s.UpdatedAt))
	if err != nil {
		return conflictOr(err, "insert scenario "+s.ID)
	}
	return nil
}
