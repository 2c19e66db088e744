package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph/graphworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb/rdbworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// ScenarioService keeps a scenario's relational row and graph node in step.
// The stores never coordinate; each write here is a two-step saga with a
// compensating step on failure.
type ScenarioService struct {
	rel    *rdbworker.Client
	graph  *graphworker.Client
	newID  func() string
	logger *slog.Logger
}

// NewScenarioService returns a service over both clients.
func NewScenarioService(rel *rdbworker.Client, g *graphworker.Client, logger *slog.Logger) *ScenarioService {
	return &ScenarioService{rel: rel, graph: g, newID: uuid.NewString, logger: logging.Or(logger)}
}

// List returns the relational rows, most recently updated first.
func (s *ScenarioService) List(ctx context.Context) ([]schema.Scenario, error) {
	return s.rel.ListScenarios(ctx)
}

// Create adds the graph node, then the relational row. When the row fails
// the node is deleted again.
func (s *ScenarioService) Create(ctx context.Context, title string) (schema.Scenario, error) {
	id := s.newID()
	if _, err := s.graph.CreateScenario(ctx, schema.GraphScenario{ID: id, Title: title}); err != nil {
		return schema.Scenario{}, fmt.Errorf("create graph scenario: %w", err)
	}
	row, err := s.rel.CreateScenario(ctx, schema.NewScenario{ID: id, Title: title})
	if err != nil {
		if cerr := s.graph.DeleteScenario(ctx, id); cerr != nil {
			s.logger.Error("create compensation failed", "scenario", id, "error", cerr)
			return schema.Scenario{}, errors.Join(fmt.Errorf("create rdb scenario: %w", err), fmt.Errorf("undo graph scenario: %w", cerr))
		}
		return schema.Scenario{}, fmt.Errorf("create rdb scenario: %w", err)
	}
	s.logger.Info("scenario created", "scenario", id)
	return row, nil
}

// Rename retitles the scenario in both stores.
func (s *ScenarioService) Rename(ctx context.Context, id, title string) (schema.Scenario, error) {
	before, err := s.graph.GetScenario(ctx, id)
	if err != nil {
		return schema.Scenario{}, err
	}
	if _, err := s.graph.UpdateScenario(ctx, id, title); err != nil {
		return schema.Scenario{}, fmt.Errorf("rename graph scenario: %w", err)
	}
	row, err := s.rel.UpdateScenario(ctx, id, title)
	if err != nil {
		if before != nil {
			if _, cerr := s.graph.UpdateScenario(ctx, id, before.Title); cerr != nil {
				s.logger.Error("rename compensation failed", "scenario", id, "error", cerr)
			}
		}
		return schema.Scenario{}, fmt.Errorf("rename rdb scenario: %w", err)
	}
	return row, nil
}

// Delete removes the scenario from both stores. Deleting an absent
// scenario is not an error.
func (s *ScenarioService) Delete(ctx context.Context, id string) error {
	if err := s.graph.DeleteScenario(ctx, id); err != nil {
		return fmt.Errorf("delete graph scenario: %w", err)
	}
	if err := s.rel.DeleteScenario(ctx, id); err != nil {
		return fmt.Errorf("delete rdb scenario: %w", err)
	}
	s.logger.Info("scenario deleted", "scenario", id)
	return nil
}

// ensureSeedRow gives the graph's seed scenario a relational row on first
// run.
func (s *ScenarioService) ensureSeedRow(ctx context.Context) error {
	node, err := s.graph.GetScenario(ctx, persistence.SeedScenarioID)
	if err != nil || node == nil {
		return err
	}
	row, err := s.rel.GetScenario(ctx, persistence.SeedScenarioID)
	if err != nil || row != nil {
		return err
	}
	_, err = s.rel.CreateScenario(ctx, schema.NewScenario{ID: node.ID, Title: node.Title})
	return err
}
