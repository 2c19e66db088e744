package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// SceneEventRepository manages the ordered events of each scene.
// Within a scene, sortOrder is always 0..n-1.
type SceneEventRepository struct {
	e *Engine
}

func scanEvent(row rowScanner) (schema.SceneEvent, error) {
	var (
		ev      schema.SceneEvent
		typ     string
		content sql.NullString
	)
	err := row.Scan(&ev.ID, &typ, &content, &ev.SortOrder)
	ev.Type = schema.SceneEventType(typ)
	ev.Content = content.String
	return ev, err
}

func eventsOf(ctx context.Context, c *Conn, sceneID string) ([]schema.SceneEvent, error) {
	rows, err := c.Query(ctx, `
		SELECT e.id, e.type, e.content, e.sortOrder
		FROM "SceneEvent" e JOIN "HAS_EVENT" h ON h.to_id = e.id
		WHERE h.from_id = ?
		ORDER BY e.sortOrder, e.rowid`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("match events of %s: %w", sceneID, err)
	}
	defer rows.Close()

	out := []schema.SceneEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func findEvent(ctx context.Context, c *Conn, id string) (*schema.SceneEvent, error) {
	ev, err := scanEvent(c.QueryRow(ctx, `SELECT id, type, content, sortOrder FROM "SceneEvent" WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match event %s: %w", id, err)
	}
	return schema.Parse[*schema.SceneEvent](ev)
}

// sceneOfEvent returns the id of the scene owning an event.
func sceneOfEvent(ctx context.Context, c *Conn, eventID string) (string, error) {
	var sceneID string
	err := c.QueryRow(ctx, `SELECT from_id FROM "HAS_EVENT" WHERE to_id = ?`, eventID).Scan(&sceneID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFoundf("event %s: not found", eventID)
	}
	if err != nil {
		return "", fmt.Errorf("match scene of event %s: %w", eventID, err)
	}
	return sceneID, nil
}

// renumber writes sortOrder 0..n-1 following ids.
func renumber(ctx context.Context, c *Conn, ids []string) error {
	for i, id := range ids {
		if err := c.SetNode(ctx, schema.LabelSceneEvent, id, Props{"sortOrder": i}); err != nil {
			return err
		}
	}
	return nil
}

func eventIDs(events []schema.SceneEvent) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

func insertAt(ids []string, pos int, id string) []string {
	if pos < 0 || pos > len(ids) {
		pos = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, id)
	return append(out, ids[pos:]...)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// FindBySceneID returns a scene's events by sortOrder.
func (r *SceneEventRepository) FindBySceneID(ctx context.Context, sceneID string) ([]schema.SceneEvent, error) {
	events, err := eventsOf(ctx, &r.e.Conn, sceneID)
	if err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.SceneEvent](events)
}

// Create inserts an event into a scene. A nil SortOrder, or one past
// the end, appends; otherwise later events shift down by one.
func (r *SceneEventRepository) Create(ctx context.Context, in schema.SceneEventCreateRequest) (schema.SceneEvent, error) {
	if err := schema.Validate(in); err != nil {
		return schema.SceneEvent{}, err
	}
	var out *schema.SceneEvent
	err := r.e.Tx(ctx, func(c *Conn) error {
		ok, err := c.Exists(ctx, schema.LabelScene, in.SceneID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("create event: scene %s not found", in.SceneID)
		}
		siblings, err := eventsOf(ctx, c, in.SceneID)
		if err != nil {
			return err
		}
		pos := len(siblings)
		if in.SortOrder != nil && *in.SortOrder < pos {
			pos = *in.SortOrder
		}
		if err := c.CreateNode(ctx, schema.LabelSceneEvent, in.ID, Props{
			"type":      string(in.Type),
			"content":   in.Content,
			"sortOrder": pos,
		}); err != nil {
			return err
		}
		if err := c.CreateRel(ctx, schema.RelHasEvent, in.SceneID, in.ID, nil); err != nil {
			return err
		}
		if err := renumber(ctx, c, insertAt(eventIDs(siblings), pos, in.ID)); err != nil {
			return err
		}
		out, err = findEvent(ctx, c, in.ID)
		return err
	})
	if err != nil {
		return schema.SceneEvent{}, err
	}
	if out == nil {
		return schema.SceneEvent{}, apperr.NotFoundf("create event %s: no row returned", in.ID)
	}
	return *out, nil
}

// Update sets the present fields of u. An empty update fails with
// ErrNoFieldsToUpdate.
func (r *SceneEventRepository) Update(ctx context.Context, id string, u schema.SceneEventUpdate) (schema.SceneEvent, error) {
	if u.IsEmpty() {
		return schema.SceneEvent{}, fmt.Errorf("update event %s: %w", id, ErrNoFieldsToUpdate)
	}
	if err := schema.Validate(u); err != nil {
		return schema.SceneEvent{}, err
	}
	props := Props{}
	if u.Type != nil {
		props["type"] = string(*u.Type)
	}
	if u.Content != nil {
		props["content"] = *u.Content
	}
	if err := r.e.SetNode(ctx, schema.LabelSceneEvent, id, props); err != nil {
		return schema.SceneEvent{}, err
	}
	ev, err := findEvent(ctx, &r.e.Conn, id)
	if err != nil {
		return schema.SceneEvent{}, err
	}
	if ev == nil {
		return schema.SceneEvent{}, apperr.NotFoundf("update event %s: no row returned", id)
	}
	return *ev, nil
}

// Delete removes an event and closes the gap in its scene's order.
// Deleting an absent event is not an error.
func (r *SceneEventRepository) Delete(ctx context.Context, id string) error {
	return r.e.Tx(ctx, func(c *Conn) error {
		sceneID, err := sceneOfEvent(ctx, c, id)
		if apperr.Is(err, apperr.KindNotFound) {
			return c.DetachDelete(ctx, schema.LabelSceneEvent, id)
		}
		if err != nil {
			return err
		}
		if err := c.DetachDelete(ctx, schema.LabelSceneEvent, id); err != nil {
			return err
		}
		rest, err := eventsOf(ctx, c, sceneID)
		if err != nil {
			return err
		}
		return renumber(ctx, c, eventIDs(rest))
	})
}

// Reorder sets the order of a scene's events to eventIDs. The ids must be
// exactly the scene's events.
func (r *SceneEventRepository) Reorder(ctx context.Context, sceneID string, ids []string) ([]schema.SceneEvent, error) {
	if err := schema.Validate(schema.SceneEventReorderRequest{SceneID: sceneID, EventIDs: ids}); err != nil {
		return nil, err
	}
	var out []schema.SceneEvent
	err := r.e.Tx(ctx, func(c *Conn) error {
		current, err := eventsOf(ctx, c, sceneID)
		if err != nil {
			return err
		}
		if !sameSet(eventIDs(current), ids) {
			return apperr.Validation(fmt.Sprintf("reorder scene %s: event ids must match the scene's %d events", sceneID, len(current)), nil)
		}
		if err := renumber(ctx, c, ids); err != nil {
			return err
		}
		out, err = eventsOf(ctx, c, sceneID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return schema.Parse[[]schema.SceneEvent](out)
}

// Move places an event at position in toSceneID, which may be its own
// scene. Both scenes are renumbered.
func (r *SceneEventRepository) Move(ctx context.Context, eventID, toSceneID string, position int) (schema.SceneEvent, error) {
	if err := schema.Validate(schema.SceneEventMoveRequest{EventID: eventID, ToSceneID: toSceneID, Position: position}); err != nil {
		return schema.SceneEvent{}, err
	}
	var out *schema.SceneEvent
	err := r.e.Tx(ctx, func(c *Conn) error {
		fromSceneID, err := sceneOfEvent(ctx, c, eventID)
		if err != nil {
			return err
		}
		ok, err := c.Exists(ctx, schema.LabelScene, toSceneID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("move event: scene %s not found", toSceneID)
		}

		if fromSceneID != toSceneID {
			if _, err := c.DeleteRels(ctx, schema.RelHasEvent, RelMatch{From: fromSceneID, To: eventID}); err != nil {
				return err
			}
			if err := c.CreateRel(ctx, schema.RelHasEvent, toSceneID, eventID, nil); err != nil {
				return err
			}
			rest, err := eventsOf(ctx, c, fromSceneID)
			if err != nil {
				return err
			}
			if err := renumber(ctx, c, eventIDs(rest)); err != nil {
				return err
			}
		}

		target, err := eventsOf(ctx, c, toSceneID)
		if err != nil {
			return err
		}
		if err := renumber(ctx, c, insertAt(without(eventIDs(target), eventID), position, eventID)); err != nil {
			return err
		}
		out, err = findEvent(ctx, c, eventID)
		return err
	})
	if err != nil {
		return schema.SceneEvent{}, err
	}
	if out == nil {
		return schema.SceneEvent{}, apperr.NotFoundf("move event %s: no row returned", eventID)
	}
	return *out, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
