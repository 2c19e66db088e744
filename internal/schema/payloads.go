package schema

// Worker request and response payloads. Each worker message type maps to
// exactly one request struct and one response struct; the mapping lives in
// the worker routers and typed clients.

// Empty is the payload of messages that carry no data.
type Empty struct{}

// Ack is the response of messages that return no data.
type Ack struct {
	OK bool `json:"ok"`
}

// IDRequest addresses one entity.
type IDRequest struct {
	ID string `json:"id" validate:"required"`
}

// IDsRequest addresses several entities.
type IDsRequest struct {
	IDs []string `json:"ids" validate:"dive,required"`
}

// ScenarioIDRequest scopes a query to one scenario.
type ScenarioIDRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

// SceneIDRequest scopes a query to one scene.
type SceneIDRequest struct {
	SceneID string `json:"sceneId" validate:"required"`
}

// CountResult carries a row count.
type CountResult struct {
	Count int `json:"count" validate:"gte=0"`
}

// MigrateResult reports the schema version after migrations.
type MigrateResult struct {
	Version int `json:"version" validate:"gte=0"`
}

// DumpData carries a whole-database snapshot.
type DumpData struct {
	Data []byte `json:"data" validate:"required"`
}

// =============================================================================
// Relational worker
// =============================================================================

// ScenarioUpdateRequest renames a scenario.
type ScenarioUpdateRequest struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
}

// ImageCreateRequest stores a new image.
type ImageCreateRequest struct {
	DataURL string `json:"dataUrl" validate:"required,dataurl"`
}

// ScenarioExportRequest selects the rows of one export.
type ScenarioExportRequest struct {
	ScenarioID string   `json:"scenarioId" validate:"required"`
	ImageIDs   []string `json:"imageIds" validate:"dive,required"`
}

// =============================================================================
// Graph worker
// =============================================================================

// SceneCreateRequest creates a scene under a scenario.
type SceneCreateRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
	Scene      Scene  `json:"scene"`
}

// SceneUpdateRequest changes a scene.
type SceneUpdateRequest struct {
	ID     string      `json:"id" validate:"required"`
	Update SceneUpdate `json:"update"`
}

// SceneConnectRequest creates a NEXT_SCENE edge.
type SceneConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Order  *int   `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// SceneConnectionOrderRequest changes the order of a NEXT_SCENE edge.
type SceneConnectionOrderRequest struct {
	ID    string `json:"id" validate:"required"`
	Order *int   `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// SceneEventCreateRequest appends or inserts an event. A nil SortOrder
// appends at the end.
type SceneEventCreateRequest struct {
	SceneID   string         `json:"sceneId" validate:"required"`
	ID        string         `json:"id" validate:"required"`
	Type      SceneEventType `json:"type" validate:"required,oneof=start conversation choice battle treasure trap puzzle rest ending"`
	Content   string         `json:"content"`
	SortOrder *int           `json:"sortOrder,omitempty" validate:"omitempty,gte=0"`
}

// SceneEventUpdateRequest changes an event.
type SceneEventUpdateRequest struct {
	ID     string           `json:"id" validate:"required"`
	Update SceneEventUpdate `json:"update"`
}

// SceneEventReorderRequest sets the full order of a scene's events.
type SceneEventReorderRequest struct {
	SceneID  string   `json:"sceneId" validate:"required"`
	EventIDs []string `json:"eventIds" validate:"dive,required"`
}

// SceneEventMoveRequest moves an event to a position in another (or the
// same) scene.
type SceneEventMoveRequest struct {
	EventID   string `json:"eventId" validate:"required"`
	ToSceneID string `json:"toSceneId" validate:"required"`
	Position  int    `json:"position" validate:"gte=0"`
}

// CharacterUpdateRequest changes a character.
type CharacterUpdateRequest struct {
	ID     string          `json:"id" validate:"required"`
	Update CharacterUpdate `json:"update"`
}

// CastRequest adds a character to, or updates it within, a scenario cast.
type CastRequest struct {
	ScenarioID  string  `json:"scenarioId" validate:"required"`
	CharacterID string  `json:"characterId" validate:"required"`
	Role        string  `json:"role"`
	ImageID     *string `json:"imageId,omitempty"`
}

// CastMemberRequest addresses one cast membership.
type CastMemberRequest struct {
	ScenarioID  string `json:"scenarioId" validate:"required"`
	CharacterID string `json:"characterId" validate:"required"`
}

// RelationshipRenameRequest renames a character relationship.
type RelationshipRenameRequest struct {
	ID               string `json:"id" validate:"required"`
	RelationshipName string `json:"relationshipName" validate:"required"`
}

// InformationItemCreateRequest creates an item under a scenario.
type InformationItemCreateRequest struct {
	ScenarioID  string `json:"scenarioId" validate:"required"`
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// InformationItemUpdateRequest changes an item.
type InformationItemUpdateRequest struct {
	ID     string                `json:"id" validate:"required"`
	Update InformationItemUpdate `json:"update"`
}

// InformationSearchRequest searches a scenario's items by keywords.
type InformationSearchRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
	Query      string `json:"query"`
}
