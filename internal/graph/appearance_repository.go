package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/pkg/mention"
)

// AppearanceRepository manages FEATURED_IN edges: which cast members take
// part in which scene.
type AppearanceRepository struct {
	e *Engine
}

// FindBySceneID returns the characters featured in a scene.
func (r *AppearanceRepository) FindBySceneID(ctx context.Context, sceneID string) ([]schema.SceneAppearance, error) {
	rels, err := r.e.Rels(ctx, schema.RelFeaturedIn, RelMatch{To: sceneID})
	if err != nil {
		return nil, err
	}
	out := make([]schema.SceneAppearance, len(rels))
	for i, rel := range rels {
		out[i] = schema.SceneAppearance{SceneID: rel.To, CharacterID: rel.From}
	}
	return schema.Parse[[]schema.SceneAppearance](out)
}

// Add features a character in a scene. Adding twice is a no-op.
func (r *AppearanceRepository) Add(ctx context.Context, in schema.SceneAppearance) (schema.SceneAppearance, error) {
	if err := schema.Validate(in); err != nil {
		return schema.SceneAppearance{}, err
	}
	err := r.e.Tx(ctx, func(c *Conn) error {
		exists, err := c.RelExists(ctx, schema.RelFeaturedIn, RelMatch{From: in.CharacterID, To: in.SceneID})
		if err != nil || exists {
			return err
		}
		return c.CreateRel(ctx, schema.RelFeaturedIn, in.CharacterID, in.SceneID, nil)
	})
	if err != nil {
		return schema.SceneAppearance{}, err
	}
	return in, nil
}

// Remove un-features a character. Removing an absent edge is not an error.
func (r *AppearanceRepository) Remove(ctx context.Context, in schema.SceneAppearance) error {
	_, err := r.e.DeleteRels(ctx, schema.RelFeaturedIn, RelMatch{From: in.CharacterID, To: in.SceneID})
	return err
}

// SuggestForScenario scans each scene's title, description and event
// text for cast names and returns the cast members mentioned in a scene
// they are not yet featured in.
func (r *AppearanceRepository) SuggestForScenario(ctx context.Context, scenarioID string) ([]schema.AppearanceSuggestion, error) {
	conn := &r.e.Conn
	cast, err := castOf(ctx, conn, scenarioID)
	if err != nil {
		return nil, err
	}
	out := []schema.AppearanceSuggestion{}
	if len(cast) == 0 {
		return out, nil
	}

	names := make(map[string]string, len(cast))
	entries := make([]mention.Entry, len(cast))
	for i, m := range cast {
		names[m.CharacterID] = m.Name
		entries[i] = mention.Entry{ID: m.CharacterID, Name: m.Name}
	}
	dict, err := mention.Compile(entries)
	if err != nil {
		return nil, fmt.Errorf("suggest appearances: %w", err)
	}

	scenes, err := (&SceneRepository{e: r.e}).FindByScenarioID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	for _, s := range scenes {
		events, err := eventsOf(ctx, conn, s.ID)
		if err != nil {
			return nil, err
		}
		featured, err := conn.Rels(ctx, schema.RelFeaturedIn, RelMatch{To: s.ID})
		if err != nil {
			return nil, err
		}
		already := make(map[string]bool, len(featured))
		for _, f := range featured {
			already[f.From] = true
		}

		text := []string{s.Title, s.Description}
		for _, ev := range events {
			text = append(text, ev.Content)
		}
		counts := dict.Count(strings.Join(text, "\n"))
		for _, id := range mention.Ranked(counts) {
			if already[id] {
				continue
			}
			out = append(out, schema.AppearanceSuggestion{
				SceneID:       s.ID,
				CharacterID:   id,
				CharacterName: names[id],
				Mentions:      counts[id],
			})
		}
	}
	return schema.Parse[[]schema.AppearanceSuggestion](out)
}
