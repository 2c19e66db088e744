package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// CharacterRepository manages global Character nodes.
type CharacterRepository struct {
	e *Engine
}

func scanCharacter(row rowScanner) (schema.Character, error) {
	var (
		ch    schema.Character
		desc  sql.NullString
		image sql.NullString
	)
	err := row.Scan(&ch.ID, &ch.Name, &desc, &image)
	ch.Description = desc.String
	if image.Valid && image.String != "" {
		ch.PrimaryImageID = &image.String
	}
	return ch, err
}

// FindAll returns every character ordered by name.
func (r *CharacterRepository) FindAll(ctx context.Context) ([]schema.Character, error) {
	rows, err := r.e.Query(ctx, `SELECT id, name, description, primaryImageId FROM "Character" ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("match characters: %w", err)
	}
	defer rows.Close()

	out := []schema.Character{}
	for rows.Next() {
		ch, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.Character](out)
}

// FindByID returns the character or nil.
func (r *CharacterRepository) FindByID(ctx context.Context, id string) (*schema.Character, error) {
	ch, err := scanCharacter(r.e.QueryRow(ctx,
		`SELECT id, name, description, primaryImageId FROM "Character" WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match character %s: %w", id, err)
	}
	return schema.Parse[*schema.Character](ch)
}

// Create adds a character.
func (r *CharacterRepository) Create(ctx context.Context, in schema.Character) (schema.Character, error) {
	in, err := schema.Parse[schema.Character](in)
	if err != nil {
		return schema.Character{}, err
	}
	if err := r.e.CreateNode(ctx, schema.LabelCharacter, in.ID, Props{
		"name":           in.Name,
		"description":    in.Description,
		"primaryImageId": in.PrimaryImageID,
	}); err != nil {
		return schema.Character{}, err
	}
	return r.mustFind(ctx, in.ID)
}

// Update sets the present fields of u. An empty PrimaryImageID clears the
// image; an empty update fails with ErrNoFieldsToUpdate.
func (r *CharacterRepository) Update(ctx context.Context, id string, u schema.CharacterUpdate) (schema.Character, error) {
	if u.IsEmpty() {
		return schema.Character{}, fmt.Errorf("update character %s: %w", id, ErrNoFieldsToUpdate)
	}
	if err := schema.Validate(u); err != nil {
		return schema.Character{}, err
	}
	props := Props{}
	if u.Name != nil {
		props["name"] = *u.Name
	}
	if u.Description != nil {
		props["description"] = *u.Description
	}
	if u.PrimaryImageID != nil {
		if *u.PrimaryImageID == "" {
			props["primaryImageId"] = nil
		} else {
			props["primaryImageId"] = *u.PrimaryImageID
		}
	}
	if err := r.e.SetNode(ctx, schema.LabelCharacter, id, props); err != nil {
		return schema.Character{}, err
	}
	return r.mustFind(ctx, id)
}

// Delete detach-deletes a character, dropping its cast memberships and
// relationships in every scenario.
func (r *CharacterRepository) Delete(ctx context.Context, id string) error {
	return r.e.DetachDelete(ctx, schema.LabelCharacter, id)
}

func (r *CharacterRepository) mustFind(ctx context.Context, id string) (schema.Character, error) {
	ch, err := r.FindByID(ctx, id)
	if err != nil {
		return schema.Character{}, err
	}
	if ch == nil {
		return schema.Character{}, apperr.NotFoundf("character %s: no row returned", id)
	}
	return *ch, nil
}

// =============================================================================
// Cast (APPEARS_IN)
// =============================================================================

// ScenarioCharacterRepository manages the cast of each scenario.
type ScenarioCharacterRepository struct {
	e *Engine
}

func castOf(ctx context.Context, c *Conn, scenarioID string) ([]schema.ScenarioCharacter, error) {
	rows, err := c.Query(ctx, `
		SELECT a.to_id, c.id, a.role, a.imageId, c.name, c.description
		FROM "Character" c JOIN "APPEARS_IN" a ON a.from_id = c.id
		WHERE a.to_id = ?
		ORDER BY c.name, c.id`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("match cast of %s: %w", scenarioID, err)
	}
	defer rows.Close()

	out := []schema.ScenarioCharacter{}
	for rows.Next() {
		var (
			sc         schema.ScenarioCharacter
			role, desc sql.NullString
			image      sql.NullString
		)
		if err := rows.Scan(&sc.ScenarioID, &sc.CharacterID, &role, &image, &sc.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan cast member: %w", err)
		}
		sc.Role = role.String
		sc.Description = desc.String
		if image.Valid && image.String != "" {
			sc.ImageID = &image.String
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// FindByScenarioID returns a scenario's cast joined with character fields.
func (r *ScenarioCharacterRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.ScenarioCharacter, error) {
	cast, err := castOf(ctx, &r.e.Conn, scenarioID)
	if err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.ScenarioCharacter](cast)
}

// Add puts a character in a scenario's cast. Adding a member twice is a
// conflict.
func (r *ScenarioCharacterRepository) Add(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
	if err := schema.Validate(in); err != nil {
		return schema.ScenarioCharacter{}, err
	}
	match := RelMatch{From: in.CharacterID, To: in.ScenarioID}
	err := r.e.Tx(ctx, func(c *Conn) error {
		exists, err := c.RelExists(ctx, schema.RelAppearsIn, match)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(fmt.Sprintf("add cast: character %s already in scenario %s", in.CharacterID, in.ScenarioID), nil)
		}
		return c.CreateRel(ctx, schema.RelAppearsIn, in.CharacterID, in.ScenarioID, castProps(in))
	})
	if err != nil {
		return schema.ScenarioCharacter{}, err
	}
	return r.member(ctx, in.ScenarioID, in.CharacterID)
}

// UpdateRole changes the role and image of a cast member.
func (r *ScenarioCharacterRepository) UpdateRole(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
	if err := schema.Validate(in); err != nil {
		return schema.ScenarioCharacter{}, err
	}
	n, err := r.e.SetRels(ctx, schema.RelAppearsIn, RelMatch{From: in.CharacterID, To: in.ScenarioID}, castProps(in))
	if err != nil {
		return schema.ScenarioCharacter{}, err
	}
	if n == 0 {
		return schema.ScenarioCharacter{}, apperr.NotFoundf("update cast: character %s not in scenario %s", in.CharacterID, in.ScenarioID)
	}
	return r.member(ctx, in.ScenarioID, in.CharacterID)
}

// Remove drops a character from a scenario's cast, along with its scene
// appearances and relationships in that scenario. Removing a non-member is
// not an error.
func (r *ScenarioCharacterRepository) Remove(ctx context.Context, scenarioID, characterID string) error {
	return r.e.Tx(ctx, func(c *Conn) error {
		if _, err := c.DeleteRels(ctx, schema.RelAppearsIn, RelMatch{From: characterID, To: scenarioID}); err != nil {
			return err
		}
		for _, m := range []RelMatch{
			{From: characterID, Props: Props{"scenarioId": scenarioID}},
			{To: characterID, Props: Props{"scenarioId": scenarioID}},
		} {
			if _, err := c.DeleteRels(ctx, schema.RelRelatesTo, m); err != nil {
				return err
			}
		}
		scenes, err := c.Rels(ctx, schema.RelHasScene, RelMatch{From: scenarioID})
		if err != nil {
			return err
		}
		_, err = c.DeleteRels(ctx, schema.RelFeaturedIn, RelMatch{From: characterID, ToIn: relTargets(scenes)})
		return err
	})
}

func (r *ScenarioCharacterRepository) member(ctx context.Context, scenarioID, characterID string) (schema.ScenarioCharacter, error) {
	cast, err := castOf(ctx, &r.e.Conn, scenarioID)
	if err != nil {
		return schema.ScenarioCharacter{}, err
	}
	for _, m := range cast {
		if m.CharacterID == characterID {
			return schema.Parse[schema.ScenarioCharacter](m)
		}
	}
	return schema.ScenarioCharacter{}, apperr.NotFoundf("cast member %s of %s: no row returned", characterID, scenarioID)
}

func castProps(in schema.CastRequest) Props {
	props := Props{"role": in.Role, "imageId": nil}
	if in.ImageID != nil && *in.ImageID != "" {
		props["imageId"] = *in.ImageID
	}
	return props
}

func relTargets(rels []Rel) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.To
	}
	return out
}

func relSources(rels []Rel) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.From
	}
	return out
}
