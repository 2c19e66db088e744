package graph

import (
	"context"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// CharacterRelationshipRepository manages directed RELATES_TO edges. Each
// edge belongs to one scenario; A->B and B->A are separate records.
type CharacterRelationshipRepository struct {
	e *Engine
}

func toRelationship(r Rel) schema.CharacterRelationship {
	s := func(k string) string {
		v, _ := r.Props[k].(string)
		return v
	}
	return schema.CharacterRelationship{
		ID:               s("id"),
		ScenarioID:       s("scenarioId"),
		FromCharacterID:  r.From,
		ToCharacterID:    r.To,
		RelationshipName: s("relationshipName"),
	}
}

func (r *CharacterRelationshipRepository) find(ctx context.Context, m RelMatch) ([]schema.CharacterRelationship, error) {
	rels, err := r.e.Rels(ctx, schema.RelRelatesTo, m)
	if err != nil {
		return nil, err
	}
	out := make([]schema.CharacterRelationship, len(rels))
	for i, rel := range rels {
		out[i] = toRelationship(rel)
	}
	return schema.Parse[[]schema.CharacterRelationship](out)
}

// FindByScenarioID returns every relationship of a scenario.
func (r *CharacterRelationshipRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.CharacterRelationship, error) {
	return r.find(ctx, RelMatch{Props: Props{"scenarioId": scenarioID}})
}

// FindByScenarioAndCharacterID returns a character's relationships in a
// scenario, split by direction.
func (r *CharacterRelationshipRepository) FindByScenarioAndCharacterID(ctx context.Context, scenarioID, characterID string) (schema.CharacterRelationships, error) {
	incoming, err := r.find(ctx, RelMatch{To: characterID, Props: Props{"scenarioId": scenarioID}})
	if err != nil {
		return schema.CharacterRelationships{}, err
	}
	outgoing, err := r.find(ctx, RelMatch{From: characterID, Props: Props{"scenarioId": scenarioID}})
	if err != nil {
		return schema.CharacterRelationships{}, err
	}
	return schema.CharacterRelationships{Incoming: incoming, Outgoing: outgoing}, nil
}

// Create adds a relationship. Both characters must exist.
func (r *CharacterRelationshipRepository) Create(ctx context.Context, in schema.CharacterRelationship) (schema.CharacterRelationship, error) {
	if err := schema.Validate(in); err != nil {
		return schema.CharacterRelationship{}, err
	}
	err := r.e.Tx(ctx, func(c *Conn) error {
		exists, err := c.RelExists(ctx, schema.RelRelatesTo, RelMatch{Props: Props{"id": in.ID}})
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(fmt.Sprintf("create relationship %s: already exists", in.ID), nil)
		}
		return c.CreateRel(ctx, schema.RelRelatesTo, in.FromCharacterID, in.ToCharacterID, Props{
			"id":               in.ID,
			"scenarioId":       in.ScenarioID,
			"relationshipName": in.RelationshipName,
		})
	})
	if err != nil {
		return schema.CharacterRelationship{}, err
	}
	return in, nil
}

// Update renames a relationship.
func (r *CharacterRelationshipRepository) Update(ctx context.Context, id, name string) (schema.CharacterRelationship, error) {
	if err := schema.Validate(schema.RelationshipRenameRequest{ID: id, RelationshipName: name}); err != nil {
		return schema.CharacterRelationship{}, err
	}
	n, err := r.e.SetRels(ctx, schema.RelRelatesTo, RelMatch{Props: Props{"id": id}}, Props{"relationshipName": name})
	if err != nil {
		return schema.CharacterRelationship{}, err
	}
	if n == 0 {
		return schema.CharacterRelationship{}, apperr.NotFoundf("update relationship %s: not found", id)
	}
	found, err := r.find(ctx, RelMatch{Props: Props{"id": id}})
	if err != nil {
		return schema.CharacterRelationship{}, err
	}
	return found[0], nil
}

// Delete removes a relationship. Deleting an absent id is not an error.
func (r *CharacterRelationshipRepository) Delete(ctx context.Context, id string) error {
	_, err := r.e.DeleteRels(ctx, schema.RelRelatesTo, RelMatch{Props: Props{"id": id}})
	return err
}
