package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Node labels of the graph store.
const (
	LabelScenario        = "Scenario"
	LabelScene           = "Scene"
	LabelSceneEvent      = "SceneEvent"
	LabelCharacter       = "Character"
	LabelInformationItem = "InformationItem"
)

// Relationship types of the graph store.
const (
	RelHasScene             = "HAS_SCENE"              // Scenario -> Scene
	RelNextScene            = "NEXT_SCENE"             // Scene -> Scene
	RelHasEvent             = "HAS_EVENT"              // Scene -> SceneEvent
	RelAppearsIn            = "APPEARS_IN"             // Character -> Scenario
	RelRelatesTo            = "RELATES_TO"             // Character -> Character
	RelHasInformation       = "HAS_INFORMATION"        // Scenario -> InformationItem
	RelInformationRelatedTo = "INFORMATION_RELATED_TO" // InformationItem -> InformationItem
	RelSceneHasInfo         = "SCENE_HAS_INFO"         // Scene -> InformationItem
	RelInfoPointsToScene    = "INFO_POINTS_TO_SCENE"   // InformationItem -> Scene
	RelFeaturedIn           = "FEATURED_IN"            // Character -> Scene
)

// NodeLabels lists every node label.
var NodeLabels = []string{
	LabelScenario, LabelScene, LabelSceneEvent, LabelCharacter, LabelInformationItem,
}

// RelTypes lists every relationship type.
var RelTypes = []string{
	RelHasScene, RelNextScene, RelHasEvent, RelAppearsIn, RelRelatesTo,
	RelHasInformation, RelInformationRelatedTo, RelSceneHasInfo,
	RelInfoPointsToScene, RelFeaturedIn,
}

// IsNodeLabel reports whether s is a known node label.
func IsNodeLabel(s string) bool {
	for _, l := range NodeLabels {
		if l == s {
			return true
		}
	}
	return false
}

// IsRelType reports whether s is a known relationship type.
func IsRelType(s string) bool {
	for _, r := range RelTypes {
		if r == s {
			return true
		}
	}
	return false
}

// NodeRecord is the portable form of a graph node. Property values are
// JSON-native: string, float64, bool or nil.
type NodeRecord struct {
	ID         string         `json:"id" validate:"required"`
	Label      string         `json:"label" validate:"required,nodelabel"`
	Properties map[string]any `json:"properties"`
}

// RelRecord is the portable form of a graph relationship.
type RelRecord struct {
	Type       string         `json:"type" validate:"required,reltype"`
	From       string         `json:"from" validate:"required"`
	To         string         `json:"to" validate:"required"`
	Properties map[string]any `json:"properties"`
}

// Subgraph is every node and relationship reachable from one scenario.
type Subgraph struct {
	Nodes         []NodeRecord `json:"nodes" validate:"dive"`
	Relationships []RelRecord  `json:"relationships" validate:"dive"`
}

// =============================================================================
// Composite connection ids
// =============================================================================

// ConnectionID builds the composite id of a scene connection.
func ConnectionID(source, target string) string {
	return source + "-" + target
}

// SplitConnectionID reverses ConnectionID. Two UUIDs joined by "-" split
// at the UUID boundary; other ids must contain exactly one "-".
func SplitConnectionID(id string) (source, target string, err error) {
	const uuidLen = 36
	if len(id) == 2*uuidLen+1 && id[uuidLen] == '-' {
		left, right := id[:uuidLen], id[uuidLen+1:]
		if uuid.Validate(left) == nil && uuid.Validate(right) == nil {
			return left, right, nil
		}
	}
	if strings.Count(id, "-") == 1 {
		parts := strings.SplitN(id, "-", 2)
		if parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", &ValidationError{
		Type:   "SceneConnection",
		Issues: []Issue{{Field: "id", Rule: "connection", Message: fmt.Sprintf("cannot split connection id %q", id)}},
	}
}
