package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph/graphworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb/rdbworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// Service exports and imports scenarios across both stores.
type Service struct {
	Relational *rdbworker.Client
	Graph      *graphworker.Client

	now    func() time.Time
	logger *slog.Logger
}

// NewService returns a Service over the two worker clients.
func NewService(rel *rdbworker.Client, g *graphworker.Client, logger *slog.Logger) *Service {
	return &Service{Relational: rel, Graph: g, now: time.Now, logger: logging.Or(logger)}
}

// Export snapshots a scenario: its graph subgraph, its relational row and
// every image its characters reference.
func (s *Service) Export(ctx context.Context, scenarioID string) (*Document, error) {
	sub, err := s.Graph.ExportSubgraph(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("export graph: %w", err)
	}
	rel, err := s.Relational.ExportScenario(ctx, scenarioID, ReferencedImages(sub))
	if err != nil {
		return nil, fmt.Errorf("export rdb: %w", err)
	}
	if rel.Images == nil {
		rel.Images = []schema.Image{}
	}

	doc := &Document{
		Metadata: schema.ExportMetadata{
			Version:       Version,
			ExportedAt:    s.now().UTC().Truncate(time.Millisecond),
			ScenarioID:    scenarioID,
			ScenarioTitle: rel.Scenario.Title,
		},
		GraphDB: schema.GraphSection{Nodes: sub.Nodes, Relationships: sub.Relationships},
		RDB:     schema.RDBSection{Scenario: rel.Scenario, Images: rel.Images},
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	s.logger.Info("scenario exported", "scenario", scenarioID,
		"nodes", len(sub.Nodes), "relationships", len(sub.Relationships), "images", len(rel.Images))
	return doc, nil
}

// Import writes doc into both stores: the relational transaction first,
// then the graph transaction. When the graph half fails the relational
// rows are deleted again.
func (s *Service) Import(ctx context.Context, doc *Document) error {
	if err := Validate(doc); err != nil {
		return err
	}
	rel := schema.ScenarioExport{Scenario: doc.RDB.Scenario, Images: doc.RDB.Images}
	if err := s.Relational.ImportScenario(ctx, rel); err != nil {
		return fmt.Errorf("import rdb: %w", err)
	}
	sub := schema.Subgraph{Nodes: doc.GraphDB.Nodes, Relationships: doc.GraphDB.Relationships}
	if err := s.Graph.ImportSubgraph(ctx, sub); err != nil {
		if cerr := s.Relational.RemoveImport(ctx, rel); cerr != nil {
			s.logger.Error("import compensation failed", "scenario", rel.Scenario.ID, "error", cerr)
			return errors.Join(fmt.Errorf("import graph: %w", err), fmt.Errorf("undo rdb import: %w", cerr))
		}
		return fmt.Errorf("import graph: %w", err)
	}
	s.logger.Info("scenario imported", "scenario", rel.Scenario.ID)
	return nil
}

// ExportZip exports a scenario straight to archive bytes.
func (s *Service) ExportZip(ctx context.Context, scenarioID string) ([]byte, error) {
	doc, err := s.Export(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	return ExportToZip(doc)
}

// ImportZip imports archive bytes and returns the imported document.
func (s *Service) ImportZip(ctx context.Context, data []byte) (*Document, error) {
	doc, err := ImportFromZip(data)
	if err != nil {
		return nil, err
	}
	if err := s.Import(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReferencedImages returns the image ids used by a subgraph: character
// portraits and per-scenario cast images.
func ReferencedImages(sub schema.Subgraph) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(v any) {
		if id, ok := v.(string); ok && id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, n := range sub.Nodes {
		if n.Label == schema.LabelCharacter {
			add(n.Properties["primaryImageId"])
		}
	}
	for _, r := range sub.Relationships {
		if r.Type == schema.RelAppearsIn {
			add(r.Properties["imageId"])
		}
	}
	return out
}
