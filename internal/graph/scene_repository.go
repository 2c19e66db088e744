package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// SceneRepository manages Scene nodes and the NEXT_SCENE graph between
// them.
type SceneRepository struct {
	e *Engine
}

const sceneColumns = `s.id, s.title, s.description, s.isMasterScene`

func scanScene(row rowScanner) (schema.Scene, error) {
	var (
		s    schema.Scene
		desc sql.NullString
	)
	err := row.Scan(&s.ID, &s.Title, &desc, &s.IsMasterScene)
	s.Description = desc.String
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// FindByScenarioID returns the scenes of a scenario in creation order.
func (r *SceneRepository) FindByScenarioID(ctx context.Context, scenarioID string) ([]schema.Scene, error) {
	rows, err := r.e.Query(ctx, `
		SELECT `+sceneColumns+`
		FROM "Scene" s JOIN "HAS_SCENE" h ON h.to_id = s.id
		WHERE h.from_id = ?
		ORDER BY s.rowid`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("match scenes of %s: %w", scenarioID, err)
	}
	defer rows.Close()

	out := []schema.Scene{}
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.Scene](out)
}

// FindByID returns the scene or nil.
func (r *SceneRepository) FindByID(ctx context.Context, id string) (*schema.Scene, error) {
	return findScene(ctx, &r.e.Conn, id)
}

func findScene(ctx context.Context, c *Conn, id string) (*schema.Scene, error) {
	s, err := scanScene(c.QueryRow(ctx, `SELECT `+sceneColumns+` FROM "Scene" s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match scene %s: %w", id, err)
	}
	return schema.Parse[*schema.Scene](s)
}

// Create adds a scene under a scenario. The node and its HAS_SCENE edge
// are written together; a missing scenario is not-found.
func (r *SceneRepository) Create(ctx context.Context, scenarioID string, in schema.Scene) (schema.Scene, error) {
	if err := schema.Validate(in); err != nil {
		return schema.Scene{}, err
	}
	var out *schema.Scene
	err := r.e.Tx(ctx, func(c *Conn) error {
		ok, err := c.Exists(ctx, schema.LabelScenario, scenarioID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("create scene: scenario %s not found", scenarioID)
		}
		if err := c.CreateNode(ctx, schema.LabelScene, in.ID, Props{
			"title":         in.Title,
			"description":   in.Description,
			"isMasterScene": in.IsMasterScene,
		}); err != nil {
			return err
		}
		if err := c.CreateRel(ctx, schema.RelHasScene, scenarioID, in.ID, nil); err != nil {
			return err
		}
		out, err = findScene(ctx, c, in.ID)
		return err
	})
	if err != nil {
		return schema.Scene{}, err
	}
	if out == nil {
		return schema.Scene{}, apperr.NotFoundf("create scene %s: no row returned", in.ID)
	}
	return *out, nil
}

// Update sets the present fields of u. An empty update fails with
// ErrNoFieldsToUpdate.
func (r *SceneRepository) Update(ctx context.Context, id string, u schema.SceneUpdate) (schema.Scene, error) {
	if u.IsEmpty() {
		return schema.Scene{}, fmt.Errorf("update scene %s: %w", id, ErrNoFieldsToUpdate)
	}
	if err := schema.Validate(u); err != nil {
		return schema.Scene{}, err
	}
	props := Props{}
	if u.Title != nil {
		props["title"] = *u.Title
	}
	if u.Description != nil {
		props["description"] = *u.Description
	}
	if u.IsMasterScene != nil {
		props["isMasterScene"] = *u.IsMasterScene
	}
	if err := r.e.SetNode(ctx, schema.LabelScene, id, props); err != nil {
		return schema.Scene{}, err
	}
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return schema.Scene{}, err
	}
	if s == nil {
		return schema.Scene{}, apperr.NotFoundf("update scene %s: no row returned", id)
	}
	return *s, nil
}

// Delete detach-deletes a scene together with its events.
func (r *SceneRepository) Delete(ctx context.Context, id string) error {
	return r.e.Tx(ctx, func(c *Conn) error {
		return deleteSceneTx(ctx, c, id)
	})
}

func deleteSceneTx(ctx context.Context, c *Conn, id string) error {
	events, err := c.Rels(ctx, schema.RelHasEvent, RelMatch{From: id})
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := c.DetachDelete(ctx, schema.LabelSceneEvent, ev.To); err != nil {
			return err
		}
	}
	return c.DetachDelete(ctx, schema.LabelScene, id)
}

// =============================================================================
// Scene connections
// =============================================================================

func sceneConnection(from, to string, order any) schema.SceneConnection {
	conn := schema.SceneConnection{ID: schema.ConnectionID(from, to), Source: from, Target: to}
	if n, ok := order.(int64); ok {
		v := int(n)
		conn.Order = &v
	}
	return conn
}

// FindConnections returns every NEXT_SCENE edge leaving a scene of the
// scenario.
func (r *SceneRepository) FindConnections(ctx context.Context, scenarioID string) ([]schema.SceneConnection, error) {
	rows, err := r.e.Query(ctx, `
		SELECT n.from_id, n.to_id, n."order"
		FROM "NEXT_SCENE" n JOIN "HAS_SCENE" h ON h.to_id = n.from_id
		WHERE h.from_id = ?
		ORDER BY n.rowid`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("match connections of %s: %w", scenarioID, err)
	}
	defer rows.Close()

	out := []schema.SceneConnection{}
	for rows.Next() {
		var (
			from, to string
			order    sql.NullInt64
		)
		if err := rows.Scan(&from, &to, &order); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		var o any
		if order.Valid {
			o = order.Int64
		}
		out = append(out, sceneConnection(from, to, o))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.SceneConnection](out)
}

// Connect creates a NEXT_SCENE edge. A second edge between the same
// ordered pair is a conflict; the reverse direction is a distinct edge.
func (r *SceneRepository) Connect(ctx context.Context, source, target string, order *int) (schema.SceneConnection, error) {
	if err := schema.Validate(schema.SceneConnectRequest{Source: source, Target: target, Order: order}); err != nil {
		return schema.SceneConnection{}, err
	}
	err := r.e.Tx(ctx, func(c *Conn) error {
		exists, err := c.RelExists(ctx, schema.RelNextScene, RelMatch{From: source, To: target})
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(fmt.Sprintf("connect %s: already connected", schema.ConnectionID(source, target)), nil)
		}
		return c.CreateRel(ctx, schema.RelNextScene, source, target, Props{"order": order})
	})
	if err != nil {
		return schema.SceneConnection{}, err
	}
	conn := schema.SceneConnection{ID: schema.ConnectionID(source, target), Source: source, Target: target, Order: order}
	return schema.Parse[schema.SceneConnection](conn)
}

// UpdateConnectionOrder sets or clears the order of a connection.
func (r *SceneRepository) UpdateConnectionOrder(ctx context.Context, connID string, order *int) (schema.SceneConnection, error) {
	source, target, err := schema.SplitConnectionID(connID)
	if err != nil {
		return schema.SceneConnection{}, err
	}
	n, err := r.e.SetRels(ctx, schema.RelNextScene, RelMatch{From: source, To: target}, Props{"order": order})
	if err != nil {
		return schema.SceneConnection{}, err
	}
	if n == 0 {
		return schema.SceneConnection{}, apperr.NotFoundf("update connection %s: not found", connID)
	}
	return schema.Parse[schema.SceneConnection](schema.SceneConnection{ID: connID, Source: source, Target: target, Order: order})
}

// Disconnect removes the connection addressed by its composite id.
// Removing an absent connection is not an error.
func (r *SceneRepository) Disconnect(ctx context.Context, connID string) error {
	source, target, err := schema.SplitConnectionID(connID)
	if err != nil {
		return err
	}
	_, err = r.e.DeleteRels(ctx, schema.RelNextScene, RelMatch{From: source, To: target})
	return err
}
