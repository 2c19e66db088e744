package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// ScenarioRepository manages Scenario nodes.
type ScenarioRepository struct {
	e *Engine
}

// Create adds a Scenario node and returns it.
func (r *ScenarioRepository) Create(ctx context.Context, in schema.GraphScenario) (schema.GraphScenario, error) {
	if err := schema.Validate(in); err != nil {
		return schema.GraphScenario{}, err
	}
	if err := r.e.CreateNode(ctx, schema.LabelScenario, in.ID, Props{"title": in.Title}); err != nil {
		return schema.GraphScenario{}, err
	}
	return r.mustFind(ctx, in.ID)
}

// Update renames a Scenario node.
func (r *ScenarioRepository) Update(ctx context.Context, id, title string) (schema.GraphScenario, error) {
	if err := schema.Validate(schema.ScenarioUpdateRequest{ID: id, Title: title}); err != nil {
		return schema.GraphScenario{}, err
	}
	if err := r.e.SetNode(ctx, schema.LabelScenario, id, Props{"title": title}); err != nil {
		return schema.GraphScenario{}, err
	}
	return r.mustFind(ctx, id)
}

// Delete detach-deletes a Scenario node with the scenes, events and
// information items it owns. Characters are global and stay.
func (r *ScenarioRepository) Delete(ctx context.Context, id string) error {
	return r.e.Tx(ctx, func(c *Conn) error {
		scenes, err := c.Rels(ctx, schema.RelHasScene, RelMatch{From: id})
		if err != nil {
			return err
		}
		for _, s := range scenes {
			if err := deleteSceneTx(ctx, c, s.To); err != nil {
				return err
			}
		}
		items, err := c.Rels(ctx, schema.RelHasInformation, RelMatch{From: id})
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := c.DetachDelete(ctx, schema.LabelInformationItem, it.To); err != nil {
				return err
			}
		}
		if _, err := c.DeleteRels(ctx, schema.RelRelatesTo, RelMatch{Props: Props{"scenarioId": id}}); err != nil {
			return err
		}
		return c.DetachDelete(ctx, schema.LabelScenario, id)
	})
}

// Count returns the number of Scenario nodes.
func (r *ScenarioRepository) Count(ctx context.Context) (int, error) {
	return r.e.Count(ctx, schema.LabelScenario)
}

// FindAll returns every Scenario node ordered by title.
func (r *ScenarioRepository) FindAll(ctx context.Context) ([]schema.GraphScenario, error) {
	rows, err := r.e.Query(ctx, `SELECT id, title FROM "Scenario" ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("match scenarios: %w", err)
	}
	defer rows.Close()

	out := []schema.GraphScenario{}
	for rows.Next() {
		var s schema.GraphScenario
		if err := rows.Scan(&s.ID, &s.Title); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.GraphScenario](out)
}

// FindByID returns the Scenario node or nil.
func (r *ScenarioRepository) FindByID(ctx context.Context, id string) (*schema.GraphScenario, error) {
	var s schema.GraphScenario
	err := r.e.QueryRow(ctx, `SELECT id, title FROM "Scenario" WHERE id = ?`, id).Scan(&s.ID, &s.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match scenario %s: %w", id, err)
	}
	return schema.Parse[*schema.GraphScenario](s)
}

func (r *ScenarioRepository) mustFind(ctx context.Context, id string) (schema.GraphScenario, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return schema.GraphScenario{}, err
	}
	if s == nil {
		return schema.GraphScenario{}, apperr.NotFoundf("scenario %s: no row returned", id)
	}
	return *s, nil
}
