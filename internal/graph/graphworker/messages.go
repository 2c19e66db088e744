// Package graphworker hosts the graph store behind the worker bus. The
// worker owns the engine, boots it from its label dumps and saves after
// mutations; the Client is the typed API the application calls.
package graphworker

// Message types understood by the graph worker.
const (
	TypeBoot = "graph:boot"
	TypeSave = "persistence:save"

	TypeScenarioList   = "graph:scenario:list"
	TypeScenarioGet    = "graph:scenario:get"
	TypeScenarioCreate = "graph:scenario:create"
	TypeScenarioUpdate = "graph:scenario:update"
	TypeScenarioDelete = "graph:scenario:delete"
	TypeScenarioCount  = "graph:scenario:count"

	TypeSceneList             = "graph:scene:list"
	TypeSceneGet              = "graph:scene:get"
	TypeSceneCreate           = "graph:scene:create"
	TypeSceneUpdate           = "graph:scene:update"
	TypeSceneDelete           = "graph:scene:delete"
	TypeSceneConnections      = "graph:scene:connections"
	TypeSceneConnect          = "graph:scene:connect"
	TypeSceneConnectionUpdate = "graph:scene:connection:update"
	TypeSceneDisconnect       = "graph:scene:disconnect"

	TypeEventList    = "graph:event:list"
	TypeEventCreate  = "graph:event:create"
	TypeEventUpdate  = "graph:event:update"
	TypeEventDelete  = "graph:event:delete"
	TypeEventReorder = "graph:event:reorder"
	TypeEventMove    = "graph:event:move"

	TypeCharacterList   = "graph:character:list"
	TypeCharacterGet    = "graph:character:get"
	TypeCharacterCreate = "graph:character:create"
	TypeCharacterUpdate = "graph:character:update"
	TypeCharacterDelete = "graph:character:delete"

	TypeCastList   = "graph:cast:list"
	TypeCastAdd    = "graph:cast:add"
	TypeCastUpdate = "graph:cast:update"
	TypeCastRemove = "graph:cast:remove"

	TypeRelationshipList         = "graph:relationship:list"
	TypeRelationshipForCharacter = "graph:relationship:forCharacter"
	TypeRelationshipCreate       = "graph:relationship:create"
	TypeRelationshipUpdate       = "graph:relationship:update"
	TypeRelationshipDelete       = "graph:relationship:delete"

	TypeInfoList   = "graph:info:list"
	TypeInfoGet    = "graph:info:get"
	TypeInfoCreate = "graph:info:create"
	TypeInfoUpdate = "graph:info:update"
	TypeInfoDelete = "graph:info:delete"
	TypeInfoSearch = "graph:info:search"

	TypeInfoLinkList   = "graph:infoLink:list"
	TypeInfoLinkCreate = "graph:infoLink:create"
	TypeInfoLinkDelete = "graph:infoLink:delete"

	TypeSceneInfoList   = "graph:sceneInfo:list"
	TypeSceneInfoCreate = "graph:sceneInfo:create"
	TypeSceneInfoDelete = "graph:sceneInfo:delete"

	TypeInfoSceneList   = "graph:infoScene:list"
	TypeInfoSceneCreate = "graph:infoScene:create"
	TypeInfoSceneDelete = "graph:infoScene:delete"

	TypeAppearanceList    = "graph:appearance:list"
	TypeAppearanceAdd     = "graph:appearance:add"
	TypeAppearanceRemove  = "graph:appearance:remove"
	TypeAppearanceSuggest = "graph:appearance:suggest"

	TypeSubgraphExport = "graph:subgraph:export"
	TypeSubgraphImport = "graph:subgraph:import"
)
