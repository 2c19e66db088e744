package schema

import (
	"time"
)

// =============================================================================
// Relational entities
// =============================================================================

// Scenario is the canonical scenario row of the relational store.
type Scenario struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

// NewScenario is the input of a scenario insert. Timestamps are set by
// the store.
type NewScenario struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
}

// ScenarioUpdate carries the mutable scenario fields.
type ScenarioUpdate struct {
	Title string `json:"title" validate:"required"`
}

// Image is a stored image blob encoded as a data URL.
type Image struct {
	ID        string    `json:"id" validate:"required"`
	DataURL   string    `json:"dataUrl" validate:"required,dataurl"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// ScenarioExport is the relational half of an export: one scenario row
// and the images it references.
type ScenarioExport struct {
	Scenario Scenario `json:"scenario"`
	Images   []Image  `json:"images" validate:"dive"`
}

// =============================================================================
// Graph entities
// =============================================================================

// GraphScenario mirrors a Scenario as a graph node.
type GraphScenario struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
}

// Scene is a narrative unit of a scenario.
type Scene struct {
	ID            string `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	IsMasterScene bool   `json:"isMasterScene"`
}

// SceneUpdate holds the scene fields to change; nil fields are untouched.
type SceneUpdate struct {
	Title         *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Description   *string `json:"description,omitempty"`
	IsMasterScene *bool   `json:"isMasterScene,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u SceneUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.IsMasterScene == nil
}

// SceneConnection is a NEXT_SCENE edge. ID is ConnectionID(Source, Target).
type SceneConnection struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Order  *int   `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// SceneEventType enumerates the kinds of scene events.
type SceneEventType string

const (
	EventStart        SceneEventType = "start"
	EventConversation SceneEventType = "conversation"
	EventChoice       SceneEventType = "choice"
	EventBattle       SceneEventType = "battle"
	EventTreasure     SceneEventType = "treasure"
	EventTrap         SceneEventType = "trap"
	EventPuzzle       SceneEventType = "puzzle"
	EventRest         SceneEventType = "rest"
	EventEnding       SceneEventType = "ending"
)

// SceneEventTypes lists every event type in display order.
var SceneEventTypes = []SceneEventType{
	EventStart, EventConversation, EventChoice, EventBattle, EventTreasure,
	EventTrap, EventPuzzle, EventRest, EventEnding,
}

// SceneEvent is an ordered child of a scene.
type SceneEvent struct {
	ID        string         `json:"id" validate:"required"`
	Type      SceneEventType `json:"type" validate:"required,oneof=start conversation choice battle treasure trap puzzle rest ending"`
	Content   string         `json:"content"`
	SortOrder int            `json:"sortOrder" validate:"gte=0"`
}

// SceneEventUpdate holds the event fields to change.
type SceneEventUpdate struct {
	Type    *SceneEventType `json:"type,omitempty" validate:"omitempty,oneof=start conversation choice battle treasure trap puzzle rest ending"`
	Content *string         `json:"content,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u SceneEventUpdate) IsEmpty() bool {
	return u.Type == nil && u.Content == nil
}

// Character is a globally scoped cast member.
type Character struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	PrimaryImageID *string `json:"primaryImageId,omitempty"`
}

func (c *Character) normalize() {
	if c.PrimaryImageID != nil && *c.PrimaryImageID == "" {
		c.PrimaryImageID = nil
	}
}

// CharacterUpdate holds the character fields to change. An empty
// PrimaryImageID clears the image.
type CharacterUpdate struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Description    *string `json:"description,omitempty"`
	PrimaryImageID *string `json:"primaryImageId,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u CharacterUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.PrimaryImageID == nil
}

// ScenarioCharacter binds a character to a scenario's cast.
type ScenarioCharacter struct {
	ScenarioID  string  `json:"scenarioId" validate:"required"`
	CharacterID string  `json:"characterId" validate:"required"`
	Role        string  `json:"role"`
	ImageID     *string `json:"imageId,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

func (c *ScenarioCharacter) normalize() {
	if c.ImageID != nil && *c.ImageID == "" {
		c.ImageID = nil
	}
}

// CharacterRelationship is a directed, per-scenario edge between two
// characters.
type CharacterRelationship struct {
	ID               string `json:"id" validate:"required"`
	ScenarioID       string `json:"scenarioId" validate:"required"`
	FromCharacterID  string `json:"fromCharacterId" validate:"required"`
	ToCharacterID    string `json:"toCharacterId" validate:"required"`
	RelationshipName string `json:"relationshipName" validate:"required"`
}

// CharacterRelationships splits a character's edges by direction.
type CharacterRelationships struct {
	Incoming []CharacterRelationship `json:"incoming" validate:"dive"`
	Outgoing []CharacterRelationship `json:"outgoing" validate:"dive"`
}

// InformationItem is a clue or fact node of a scenario.
type InformationItem struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	ScenarioID  string `json:"scenarioId" validate:"required"`
}

// InformationItemUpdate holds the item fields to change.
type InformationItemUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u InformationItemUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil
}

// InformationItemConnection links two information items.
type InformationItemConnection struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// SceneInformationConnection records that a scene grants an item.
type SceneInformationConnection struct {
	ID                string `json:"id" validate:"required"`
	SceneID           string `json:"sceneId" validate:"required"`
	InformationItemID string `json:"informationItemId" validate:"required"`
}

// InformationToSceneConnection records that an item points to a scene.
type InformationToSceneConnection struct {
	ID                string `json:"id" validate:"required"`
	InformationItemID string `json:"informationItemId" validate:"required"`
	SceneID           string `json:"sceneId" validate:"required"`
}

// SceneAppearance records that a character is featured in a scene.
type SceneAppearance struct {
	SceneID     string `json:"sceneId" validate:"required"`
	CharacterID string `json:"characterId" validate:"required"`
}

// AppearanceSuggestion is a cast member mentioned in a scene's text but not
// yet featured in it.
type AppearanceSuggestion struct {
	SceneID       string `json:"sceneId" validate:"required"`
	CharacterID   string `json:"characterId" validate:"required"`
	CharacterName string `json:"characterName"`
	Mentions      int    `json:"mentions" validate:"gte=1"`
}
