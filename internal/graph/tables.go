package graph

import (
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// ColumnType is the storage type of a property column.
type ColumnType string

const (
	TypeString ColumnType = "STRING"
	TypeInt    ColumnType = "INT64"
	TypeBool   ColumnType = "BOOLEAN"
)

func (t ColumnType) sqlType() string {
	switch t {
	case TypeInt, TypeBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Column is one property of a node or relationship table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// NodeTable declares a node label. Every node table has an implicit
// primary key column "id".
type NodeTable struct {
	Label   string
	Columns []Column
}

// RelTable declares a relationship type between two node labels.
type RelTable struct {
	Type    string
	From    string
	To      string
	Columns []Column
}

// Schema is the full set of node and relationship tables.
type Schema struct {
	Nodes []NodeTable
	Rels  []RelTable
}

// Node returns the node table for label.
func (s Schema) Node(label string) (NodeTable, bool) {
	for _, n := range s.Nodes {
		if n.Label == label {
			return n, true
		}
	}
	return NodeTable{}, false
}

// Rel returns the relationship table for relType.
func (s Schema) Rel(relType string) (RelTable, bool) {
	for _, r := range s.Rels {
		if r.Type == relType {
			return r, true
		}
	}
	return RelTable{}, false
}

// NodeLabels returns every node label in declaration order.
func (s Schema) NodeLabels() []string {
	out := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n.Label
	}
	return out
}

// RelTypes returns every relationship type in declaration order.
func (s Schema) RelTypes() []string {
	out := make([]string, len(s.Rels))
	for i, r := range s.Rels {
		out[i] = r.Type
	}
	return out
}

// Touching returns the relationship tables with label on either end.
func (s Schema) Touching(label string) []RelTable {
	var out []RelTable
	for _, r := range s.Rels {
		if r.From == label || r.To == label {
			out = append(out, r)
		}
	}
	return out
}

func str(name string) Column { return Column{Name: name, Type: TypeString} }
func optStr(name string) Column { return Column{Name: name, Type: TypeString, Nullable: true} }
func integer(name string) Column { return Column{Name: name, Type: TypeInt} }
func optInteger(name string) Column { return Column{Name: name, Type: TypeInt, Nullable: true} }
func boolean(name string) Column { return Column{Name: name, Type: TypeBool} }

// DefaultSchema declares the scenario graph.
func DefaultSchema() Schema {
	return Schema{
		Nodes: []NodeTable{
			{Label: schema.LabelScenario, Columns: []Column{str("title")}},
			{Label: schema.LabelScene, Columns: []Column{str("title"), str("description"), boolean("isMasterScene")}},
			{Label: schema.LabelSceneEvent, Columns: []Column{str("type"), str("content"), integer("sortOrder")}},
			{Label: schema.LabelCharacter, Columns: []Column{str("name"), str("description"), optStr("primaryImageId")}},
			{Label: schema.LabelInformationItem, Columns: []Column{str("title"), str("description")}},
		},
		Rels: []RelTable{
			{Type: schema.RelHasScene, From: schema.LabelScenario, To: schema.LabelScene},
			{Type: schema.RelNextScene, From: schema.LabelScene, To: schema.LabelScene, Columns: []Column{optInteger("order")}},
			{Type: schema.RelHasEvent, From: schema.LabelScene, To: schema.LabelSceneEvent},
			{Type: schema.RelAppearsIn, From: schema.LabelCharacter, To: schema.LabelScenario, Columns: []Column{str("role"), optStr("imageId")}},
			{Type: schema.RelRelatesTo, From: schema.LabelCharacter, To: schema.LabelCharacter, Columns: []Column{str("id"), str("scenarioId"), str("relationshipName")}},
			{Type: schema.RelHasInformation, From: schema.LabelScenario, To: schema.LabelInformationItem},
			{Type: schema.RelInformationRelatedTo, From: schema.LabelInformationItem, To: schema.LabelInformationItem, Columns: []Column{str("id")}},
			{Type: schema.RelSceneHasInfo, From: schema.LabelScene, To: schema.LabelInformationItem, Columns: []Column{str("id")}},
			{Type: schema.RelInfoPointsToScene, From: schema.LabelInformationItem, To: schema.LabelScene, Columns: []Column{str("id")}},
			{Type: schema.RelFeaturedIn, From: schema.LabelCharacter, To: schema.LabelScene},
		},
	}
}
