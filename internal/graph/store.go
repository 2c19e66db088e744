package graph

// Store groups the repositories over one engine.
type Store struct {
	Engine *Engine

	Scenarios         *ScenarioRepository
	Scenes            *SceneRepository
	Events            *SceneEventRepository
	Characters        *CharacterRepository
	Cast              *ScenarioCharacterRepository
	Relationships     *CharacterRelationshipRepository
	Information       *InformationItemRepository
	InformationLinks  *InformationConnectionRepository
	SceneInformation  *SceneInformationRepository
	InformationScenes *InformationToSceneRepository
	Appearances       *AppearanceRepository
	Subgraphs         *SubgraphRepository
}

// NewStore wires every repository to e.
func NewStore(e *Engine) *Store {
	return &Store{
		Engine:            e,
		Scenarios:         &ScenarioRepository{e: e},
		Scenes:            &SceneRepository{e: e},
		Events:            &SceneEventRepository{e: e},
		Characters:        &CharacterRepository{e: e},
		Cast:              &ScenarioCharacterRepository{e: e},
		Relationships:     &CharacterRelationshipRepository{e: e},
		Information:       &InformationItemRepository{e: e},
		InformationLinks:  &InformationConnectionRepository{e: e},
		SceneInformation:  &SceneInformationRepository{e: e},
		InformationScenes: &InformationToSceneRepository{e: e},
		Appearances:       &AppearanceRepository{e: e},
		Subgraphs:         &SubgraphRepository{e: e},
	}
}
