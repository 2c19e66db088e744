package graph

import (
	"context"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// SubgraphRepository exports and imports everything one scenario owns.
type SubgraphRepository struct {
	e *Engine
}

// Export collects the scenario node, its scenes, events, information items
// and cast, and every relationship among them. RELATES_TO edges are
// selected by their scenarioId; characters at either end are exported even
// when they are not in the cast.
func (r *SubgraphRepository) Export(ctx context.Context, scenarioID string) (schema.Subgraph, error) {
	sub := schema.Subgraph{Nodes: []schema.NodeRecord{}, Relationships: []schema.RelRecord{}}
	err := r.e.Tx(ctx, func(c *Conn) error {
		root, err := c.NodeRecord(ctx, schema.LabelScenario, scenarioID)
		if err != nil {
			return err
		}
		if root == nil {
			return apperr.NotFoundf("export scenario %s: not found", scenarioID)
		}
		sub.Nodes = append(sub.Nodes, *root)

		ids := func(relType string, m RelMatch, to bool) ([]string, error) {
			rels, err := c.Rels(ctx, relType, m)
			if err != nil {
				return nil, err
			}
			if to {
				return relTargets(rels), nil
			}
			return relSources(rels), nil
		}
		scenes, err := ids(schema.RelHasScene, RelMatch{From: scenarioID}, true)
		if err != nil {
			return err
		}
		events, err := ids(schema.RelHasEvent, RelMatch{FromIn: scenes}, true)
		if err != nil {
			return err
		}
		items, err := ids(schema.RelHasInformation, RelMatch{From: scenarioID}, true)
		if err != nil {
			return err
		}
		cast, err := ids(schema.RelAppearsIn, RelMatch{To: scenarioID}, false)
		if err != nil {
			return err
		}
		related, err := c.Rels(ctx, schema.RelRelatesTo, RelMatch{Props: Props{"scenarioId": scenarioID}})
		if err != nil {
			return err
		}
		characters := unique(cast, relSources(related), relTargets(related))

		for _, group := range []struct {
			label string
			ids   []string
		}{
			{schema.LabelScene, scenes},
			{schema.LabelSceneEvent, events},
			{schema.LabelInformationItem, items},
			{schema.LabelCharacter, characters},
		} {
			for _, id := range group.ids {
				rec, err := c.NodeRecord(ctx, group.label, id)
				if err != nil {
					return err
				}
				if rec != nil {
					sub.Nodes = append(sub.Nodes, *rec)
				}
			}
		}

		for _, q := range []struct {
			relType string
			match   RelMatch
		}{
			{schema.RelHasScene, RelMatch{From: scenarioID}},
			{schema.RelNextScene, RelMatch{FromIn: scenes, ToIn: scenes}},
			{schema.RelHasEvent, RelMatch{FromIn: scenes}},
			{schema.RelAppearsIn, RelMatch{To: scenarioID}},
			{schema.RelRelatesTo, RelMatch{Props: Props{"scenarioId": scenarioID}}},
			{schema.RelHasInformation, RelMatch{From: scenarioID}},
			{schema.RelInformationRelatedTo, RelMatch{FromIn: items, ToIn: items}},
			{schema.RelSceneHasInfo, RelMatch{FromIn: scenes, ToIn: items}},
			{schema.RelInfoPointsToScene, RelMatch{FromIn: items, ToIn: scenes}},
			{schema.RelFeaturedIn, RelMatch{FromIn: cast, ToIn: scenes}},
		} {
			recs, err := c.RelRecords(ctx, q.relType, q.match)
			if err != nil {
				return err
			}
			sub.Relationships = append(sub.Relationships, recs...)
		}
		return nil
	})
	if err != nil {
		return schema.Subgraph{}, err
	}
	return sub, nil
}

// Import writes a subgraph in one transaction: nodes first, then
// relationships. Characters are global and merge into existing nodes;
// any other existing node makes the whole import fail.
func (r *SubgraphRepository) Import(ctx context.Context, sub schema.Subgraph) error {
	if err := schema.Validate(sub); err != nil {
		return err
	}
	return r.e.Tx(ctx, func(c *Conn) error {
		for _, n := range sub.Nodes {
			if err := c.PutNodeRecord(ctx, n, n.Label == schema.LabelCharacter); err != nil {
				return err
			}
		}
		for _, rel := range sub.Relationships {
			if err := c.PutRelRecord(ctx, rel); err != nil {
				return err
			}
		}
		return nil
	})
}

// unique concatenates id lists, keeping the first occurrence of each id.
func unique(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range lists {
		for _, id := range l {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
