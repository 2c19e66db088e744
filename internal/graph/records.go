package graph

import (
	"context"

	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// jsonProps converts stored values to their JSON-native form so records
// compare equal after an encode/decode round trip.
func jsonProps(p Props) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if n, ok := v.(int64); ok {
			out[k] = float64(n)
			continue
		}
		out[k] = v
	}
	return out
}

// NodeRecord returns the portable form of a node, or nil when absent.
func (c *Conn) NodeRecord(ctx context.Context, label, id string) (*schema.NodeRecord, error) {
	props, err := c.NodeProps(ctx, label, id)
	if err != nil || props == nil {
		return nil, err
	}
	return &schema.NodeRecord{ID: id, Label: label, Properties: jsonProps(props)}, nil
}

// RelRecords returns the portable form of every matching relationship.
func (c *Conn) RelRecords(ctx context.Context, relType string, m RelMatch) ([]schema.RelRecord, error) {
	rels, err := c.Rels(ctx, relType, m)
	if err != nil {
		return nil, err
	}
	out := make([]schema.RelRecord, len(rels))
	for i, r := range rels {
		out[i] = schema.RelRecord{Type: relType, From: r.From, To: r.To, Properties: jsonProps(r.Props)}
	}
	return out, nil
}

// PutNodeRecord writes a node record. Merge overwrites an existing node
// instead of failing.
func (c *Conn) PutNodeRecord(ctx context.Context, rec schema.NodeRecord, merge bool) error {
	if err := schema.Validate(rec); err != nil {
		return err
	}
	props := Props(rec.Properties)
	if merge {
		return c.MergeNode(ctx, rec.Label, rec.ID, props)
	}
	return c.CreateNode(ctx, rec.Label, rec.ID, props)
}

// PutRelRecord creates a relationship record; both endpoints must exist.
func (c *Conn) PutRelRecord(ctx context.Context, rec schema.RelRecord) error {
	if err := schema.Validate(rec); err != nil {
		return err
	}
	return c.CreateRel(ctx, rec.Type, rec.From, rec.To, Props(rec.Properties))
}
