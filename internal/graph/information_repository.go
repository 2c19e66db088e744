package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/pkg/mention"
)

// InformationItemRepository manages the clue and fact nodes of each
// scenario.
type InformationItemRepository struct {
	e *Engine
}

const itemColumns = `i.id, i.title, i.description, h.from_id`

func scanItem(row rowScanner) (schema.InformationItem, error) {
	var (
		it   schema.InformationItem
		desc sql.NullString
	)
	err := row.Scan(&it.ID, &it.Title, &desc, &it.ScenarioID)
	it.Description = desc.String
	return it, err
}

func itemsOf(ctx context.Context, c *Conn, scenarioID string) ([]schema.InformationItem, error) {
	rows, err := c.Query(ctx, `
		SELECT `+itemColumns+`
		FROM "InformationItem" i JOIN "HAS_INFORMATION" h ON h.to_id = i.id
		WHERE h.from_id = ?
		ORDER BY i.rowid`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("match items of %s: %w", scenarioID, err)
	}
	defer rows.Close()

	out := []schema.InformationItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindByScenarioID returns a scenario's items in creation order.
func (r *InformationItemRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.InformationItem, error) {
	items, err := itemsOf(ctx, &r.e.Conn, scenarioID)
	if err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.InformationItem](items)
}

// FindByID returns the item or nil.
func (r *InformationItemRepository) FindByID(ctx context.Context, id string) (*schema.InformationItem, error) {
	it, err := scanItem(r.e.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM "InformationItem" i JOIN "HAS_INFORMATION" h ON h.to_id = i.id
		WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match item %s: %w", id, err)
	}
	return schema.Parse[*schema.InformationItem](it)
}

// Create adds an item under a scenario together with its HAS_INFORMATION
// edge.
func (r *InformationItemRepository) Create(ctx context.Context, in schema.InformationItemCreateRequest) (schema.InformationItem, error) {
	if err := schema.Validate(in); err != nil {
		return schema.InformationItem{}, err
	}
	err := r.e.Tx(ctx, func(c *Conn) error {
		ok, err := c.Exists(ctx, schema.LabelScenario, in.ScenarioID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("create item: scenario %s not found", in.ScenarioID)
		}
		if err := c.CreateNode(ctx, schema.LabelInformationItem, in.ID, Props{
			"title":       in.Title,
			"description": in.Description,
		}); err != nil {
			return err
		}
		return c.CreateRel(ctx, schema.RelHasInformation, in.ScenarioID, in.ID, nil)
	})
	if err != nil {
		return schema.InformationItem{}, err
	}
	return r.mustFind(ctx, in.ID)
}

// Update sets the present fields of u. An empty update fails with
// ErrNoFieldsToUpdate.
func (r *InformationItemRepository) Update(ctx context.Context, id string, u schema.InformationItemUpdate) (schema.InformationItem, error) {
	if u.IsEmpty() {
		return schema.InformationItem{}, fmt.Errorf("update item %s: %w", id, ErrNoFieldsToUpdate)
	}
	if err := schema.Validate(u); err != nil {
		return schema.InformationItem{}, err
	}
	props := Props{}
	if u.Title != nil {
		props["title"] = *u.Title
	}
	if u.Description != nil {
		props["description"] = *u.Description
	}
	if err := r.e.SetNode(ctx, schema.LabelInformationItem, id, props); err != nil {
		return schema.InformationItem{}, err
	}
	return r.mustFind(ctx, id)
}

// Delete detach-deletes an item and every connection touching it.
func (r *InformationItemRepository) Delete(ctx context.Context, id string) error {
	return r.e.DetachDelete(ctx, schema.LabelInformationItem, id)
}

// Search returns a scenario's items mentioning the query's keywords, best
// match first. An empty query returns every item.
func (r *InformationItemRepository) Search(ctx context.Context, scenarioID, query string) ([]schema.InformationItem, error) {
	items, err := r.FindByScenarioID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	keywords := mention.Keywords(query)
	if len(keywords) == 0 {
		return items, nil
	}

	entries := make([]mention.Entry, len(keywords))
	for i, k := range keywords {
		entries[i] = mention.Entry{ID: k, Name: k}
	}
	dict, err := mention.Compile(entries)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}

	type scored struct {
		item     schema.InformationItem
		distinct int
		hits     int
	}
	var hits []scored
	for _, it := range items {
		counts := dict.Count(it.Title + "\n" + it.Description)
		if len(counts) == 0 {
			continue
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		hits = append(hits, scored{item: it, distinct: len(counts), hits: total})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distinct != hits[j].distinct {
			return hits[i].distinct > hits[j].distinct
		}
		return hits[i].hits > hits[j].hits
	})

	out := make([]schema.InformationItem, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out, nil
}

func (r *InformationItemRepository) mustFind(ctx context.Context, id string) (schema.InformationItem, error) {
	it, err := r.FindByID(ctx, id)
	if err != nil {
		return schema.InformationItem{}, err
	}
	if it == nil {
		return schema.InformationItem{}, apperr.NotFoundf("item %s: no row returned", id)
	}
	return *it, nil
}

// =============================================================================
// Information connections
// =============================================================================

type idEdge struct {
	ID   string
	From string
	To   string
}

// listIDEdges returns the relType edges whose source node is owned by
// scenarioID through ownerRel.
func listIDEdges(ctx context.Context, c *Conn, relType, ownerRel, scenarioID string) ([]idEdge, error) {
	rows, err := c.Query(ctx, fmt.Sprintf(`
		SELECT r.id, r.from_id, r.to_id
		FROM %s r JOIN %s o ON o.to_id = r.from_id
		WHERE o.from_id = ?
		ORDER BY r.rowid`, ident(relType), ident(ownerRel)), scenarioID)
	if err != nil {
		return nil, fmt.Errorf("match %s of %s: %w", relType, scenarioID, err)
	}
	defer rows.Close()

	var out []idEdge
	for rows.Next() {
		var e idEdge
		if err := rows.Scan(&e.ID, &e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan %s: %w", relType, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func createIDEdge(ctx context.Context, e *Engine, relType, id, from, to string) error {
	return e.Tx(ctx, func(c *Conn) error {
		exists, err := c.RelExists(ctx, relType, RelMatch{Props: Props{"id": id}})
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(fmt.Sprintf("create %s %s: already exists", relType, id), nil)
		}
		return c.CreateRel(ctx, relType, from, to, Props{"id": id})
	})
}

func deleteIDEdge(ctx context.Context, e *Engine, relType, id string) error {
	_, err := e.DeleteRels(ctx, relType, RelMatch{Props: Props{"id": id}})
	return err
}

// InformationConnectionRepository manages item-to-item links.
type InformationConnectionRepository struct {
	e *Engine
}

// FindByScenarioID returns every link leaving an item of the scenario.
func (r *InformationConnectionRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.InformationItemConnection, error) {
	edges, err := listIDEdges(ctx, &r.e.Conn, schema.RelInformationRelatedTo, schema.RelHasInformation, scenarioID)
	if err != nil {
		return nil, err
	}
	out := make([]schema.InformationItemConnection, len(edges))
	for i, e := range edges {
		out[i] = schema.InformationItemConnection{ID: e.ID, Source: e.From, Target: e.To}
	}
	return schema.Parse[[]schema.InformationItemConnection](out)
}

// Create links two items.
func (r *InformationConnectionRepository) Create(ctx context.Context, in schema.InformationItemConnection) (schema.InformationItemConnection, error) {
	if err := schema.Validate(in); err != nil {
		return schema.InformationItemConnection{}, err
	}
	if err := createIDEdge(ctx, r.e, schema.RelInformationRelatedTo, in.ID, in.Source, in.Target); err != nil {
		return schema.InformationItemConnection{}, err
	}
	return in, nil
}

// Delete removes a link. Deleting an absent id is not an error.
func (r *InformationConnectionRepository) Delete(ctx context.Context, id string) error {
	return deleteIDEdge(ctx, r.e, schema.RelInformationRelatedTo, id)
}

// SceneInformationRepository manages "this scene grants this item" edges.
type SceneInformationRepository struct {
	e *Engine
}

// FindByScenarioID returns every scene-to-item edge of the scenario.
func (r *SceneInformationRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.SceneInformationConnection, error) {
	edges, err := listIDEdges(ctx, &r.e.Conn, schema.RelSceneHasInfo, schema.RelHasScene, scenarioID)
	if err != nil {
		return nil, err
	}
	out := make([]schema.SceneInformationConnection, len(edges))
	for i, e := range edges {
		out[i] = schema.SceneInformationConnection{ID: e.ID, SceneID: e.From, InformationItemID: e.To}
	}
	return schema.Parse[[]schema.SceneInformationConnection](out)
}

// Create records that a scene grants an item.
func (r *SceneInformationRepository) Create(ctx context.Context, in schema.SceneInformationConnection) (schema.SceneInformationConnection, error) {
	if err := schema.Validate(in); err != nil {
		return schema.SceneInformationConnection{}, err
	}
	if err := createIDEdge(ctx, r.e, schema.RelSceneHasInfo, in.ID, in.SceneID, in.InformationItemID); err != nil {
		return schema.SceneInformationConnection{}, err
	}
	return in, nil
}

// Delete removes the edge. Deleting an absent id is not an error.
func (r *SceneInformationRepository) Delete(ctx context.Context, id string) error {
	return deleteIDEdge(ctx, r.e, schema.RelSceneHasInfo, id)
}

// InformationToSceneRepository manages "this item points to this scene"
// edges. They are stored apart from scene-to-item edges and never merged
// with them.
type InformationToSceneRepository struct {
	e *Engine
}

// FindByScenarioID returns every item-to-scene edge of the scenario.
func (r *InformationToSceneRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.InformationToSceneConnection, error) {
	edges, err := listIDEdges(ctx, &r.e.Conn, schema.RelInfoPointsToScene, schema.RelHasInformation, scenarioID)
	if err != nil {
		return nil, err
	}
	out := make([]schema.InformationToSceneConnection, len(edges))
	for i, e := range edges {
		out[i] = schema.InformationToSceneConnection{ID: e.ID, InformationItemID: e.From, SceneID: e.To}
	}
	return schema.Parse[[]schema.InformationToSceneConnection](out)
}

// Create records that an item points to a scene.
func (r *InformationToSceneRepository) Create(ctx context.Context, in schema.InformationToSceneConnection) (schema.InformationToSceneConnection, error) {
	if err := schema.Validate(in); err != nil {
		return schema.InformationToSceneConnection{}, err
	}
	if err := createIDEdge(ctx, r.e, schema.RelInfoPointsToScene, in.ID, in.InformationItemID, in.SceneID); err != nil {
		return schema.InformationToSceneConnection{}, err
	}
	return in, nil
}

// Delete removes the edge. Deleting an absent id is not an error.
func (r *InformationToSceneRepository) Delete(ctx context.Context, id string) error {
	return deleteIDEdge(ctx, r.e, schema.RelInfoPointsToScene, id)
}
