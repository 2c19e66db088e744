package graphworker

import (
	"context"
	"log/slog"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

var ok = schema.Ack{OK: true}

// host is the worker-side state: the store, its dumps and the save policy.
type host struct {
	store    *graph.Store
	syncer   *persistence.Syncer
	autoSave bool
	logger   *slog.Logger
}

// mutating wraps a handler that changes the graph so a successful call is
// followed by a save when auto-save is on. A failed save is logged; the
// mutation itself has already committed.
func mutating[P, R any](h *host, fn func(context.Context, P) (R, error)) func(context.Context, P) (R, error) {
	return func(ctx context.Context, in P) (R, error) {
		out, err := fn(ctx, in)
		if err == nil && h.autoSave {
			if serr := h.syncer.Save(ctx); serr != nil {
				h.logger.Error("auto-save failed", "error", serr)
			}
		}
		return out, err
	}
}

// NewRouter registers every graph message against store.
func NewRouter(store *graph.Store, syncer *persistence.Syncer, autoSave bool, logger *slog.Logger) *worker.Router {
	h := &host{store: store, syncer: syncer, autoSave: autoSave, logger: logging.Or(logger)}
	r := worker.NewRouter(logger)
	s := store

	worker.Handle(r, TypeBoot, func(ctx context.Context, _ schema.Empty) (schema.CountResult, error) {
		if err := h.syncer.Boot(ctx); err != nil {
			return schema.CountResult{}, err
		}
		n, err := s.Scenarios.Count(ctx)
		return schema.CountResult{Count: n}, err
	})
	worker.Handle(r, TypeSave, func(ctx context.Context, _ schema.Empty) (schema.Ack, error) {
		return ok, h.syncer.Save(ctx)
	})

	// Scenarios
	worker.Handle(r, TypeScenarioList, func(ctx context.Context, _ schema.Empty) ([]schema.GraphScenario, error) {
		return s.Scenarios.FindAll(ctx)
	})
	worker.Handle(r, TypeScenarioGet, func(ctx context.Context, in schema.IDRequest) (*schema.GraphScenario, error) {
		return s.Scenarios.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeScenarioCreate, mutating(h, func(ctx context.Context, in schema.GraphScenario) (schema.GraphScenario, error) {
		return s.Scenarios.Create(ctx, in)
	}))
	worker.Handle(r, TypeScenarioUpdate, mutating(h, func(ctx context.Context, in schema.ScenarioUpdateRequest) (schema.GraphScenario, error) {
		return s.Scenarios.Update(ctx, in.ID, in.Title)
	}))
	worker.Handle(r, TypeScenarioDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Scenarios.Delete(ctx, in.ID)
	}))
	worker.Handle(r, TypeScenarioCount, func(ctx context.Context, _ schema.Empty) (schema.CountResult, error) {
		n, err := s.Scenarios.Count(ctx)
		return schema.CountResult{Count: n}, err
	})

	// Scenes and their connections
	worker.Handle(r, TypeSceneList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.Scene, error) {
		return s.Scenes.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeSceneGet, func(ctx context.Context, in schema.IDRequest) (*schema.Scene, error) {
		return s.Scenes.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeSceneCreate, mutating(h, func(ctx context.Context, in schema.SceneCreateRequest) (schema.Scene, error) {
		return s.Scenes.Create(ctx, in.ScenarioID, in.Scene)
	}))
	worker.Handle(r, TypeSceneUpdate, mutating(h, func(ctx context.Context, in schema.SceneUpdateRequest) (schema.Scene, error) {
		return s.Scenes.Update(ctx, in.ID, in.Update)
	}))
	worker.Handle(r, TypeSceneDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Scenes.Delete(ctx, in.ID)
	}))
	worker.Handle(r, TypeSceneConnections, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.SceneConnection, error) {
		return s.Scenes.FindConnections(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeSceneConnect, mutating(h, func(ctx context.Context, in schema.SceneConnectRequest) (schema.SceneConnection, error) {
		return s.Scenes.Connect(ctx, in.Source, in.Target, in.Order)
	}))
	worker.Handle(r, TypeSceneConnectionUpdate, mutating(h, func(ctx context.Context, in schema.SceneConnectionOrderRequest) (schema.SceneConnection, error) {
		return s.Scenes.UpdateConnectionOrder(ctx, in.ID, in.Order)
	}))
	worker.Handle(r, TypeSceneDisconnect, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Scenes.Disconnect(ctx, in.ID)
	}))

	// Scene events
	worker.Handle(r, TypeEventList, func(ctx context.Context, in schema.SceneIDRequest) ([]schema.SceneEvent, error) {
		return s.Events.FindBySceneID(ctx, in.SceneID)
	})
	worker.Handle(r, TypeEventCreate, mutating(h, func(ctx context.Context, in schema.SceneEventCreateRequest) (schema.SceneEvent, error) {
		return s.Events.Create(ctx, in)
	}))
	worker.Handle(r, TypeEventUpdate, mutating(h, func(ctx context.Context, in schema.SceneEventUpdateRequest) (schema.SceneEvent, error) {
		return s.Events.Update(ctx, in.ID, in.Update)
	}))
	worker.Handle(r, TypeEventDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Events.Delete(ctx, in.ID)
	}))
	worker.Handle(r, TypeEventReorder, mutating(h, func(ctx context.Context, in schema.SceneEventReorderRequest) ([]schema.SceneEvent, error) {
		return s.Events.Reorder(ctx, in.SceneID, in.EventIDs)
	}))
	worker.Handle(r, TypeEventMove, mutating(h, func(ctx context.Context, in schema.SceneEventMoveRequest) (schema.SceneEvent, error) {
		return s.Events.Move(ctx, in.EventID, in.ToSceneID, in.Position)
	}))

	// Characters and cast
	worker.Handle(r, TypeCharacterList, func(ctx context.Context, _ schema.Empty) ([]schema.Character, error) {
		return s.Characters.FindAll(ctx)
	})
	worker.Handle(r, TypeCharacterGet, func(ctx context.Context, in schema.IDRequest) (*schema.Character, error) {
		return s.Characters.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeCharacterCreate, mutating(h, func(ctx context.Context, in schema.Character) (schema.Character, error) {
		return s.Characters.Create(ctx, in)
	}))
	worker.Handle(r, TypeCharacterUpdate, mutating(h, func(ctx context.Context, in schema.CharacterUpdateRequest) (schema.Character, error) {
		return s.Characters.Update(ctx, in.ID, in.Update)
	}))
	worker.Handle(r, TypeCharacterDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Characters.Delete(ctx, in.ID)
	}))
	worker.Handle(r, TypeCastList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.ScenarioCharacter, error) {
		return s.Cast.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeCastAdd, mutating(h, func(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
		return s.Cast.Add(ctx, in)
	}))
	worker.Handle(r, TypeCastUpdate, mutating(h, func(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
		return s.Cast.UpdateRole(ctx, in)
	}))
	worker.Handle(r, TypeCastRemove, mutating(h, func(ctx context.Context, in schema.CastMemberRequest) (schema.Ack, error) {
		return ok, s.Cast.Remove(ctx, in.ScenarioID, in.CharacterID)
	}))

	// Character relationships
	worker.Handle(r, TypeRelationshipList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.CharacterRelationship, error) {
		return s.Relationships.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeRelationshipForCharacter, func(ctx context.Context, in schema.CastMemberRequest) (schema.CharacterRelationships, error) {
		return s.Relationships.FindByScenarioAndCharacterID(ctx, in.ScenarioID, in.CharacterID)
	})
	worker.Handle(r, TypeRelationshipCreate, mutating(h, func(ctx context.Context, in schema.CharacterRelationship) (schema.CharacterRelationship, error) {
		return s.Relationships.Create(ctx, in)
	}))
	worker.Handle(r, TypeRelationshipUpdate, mutating(h, func(ctx context.Context, in schema.RelationshipRenameRequest) (schema.CharacterRelationship, error) {
		return s.Relationships.Update(ctx, in.ID, in.RelationshipName)
	}))
	worker.Handle(r, TypeRelationshipDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Relationships.Delete(ctx, in.ID)
	}))

	// Information items and their three connection kinds
	worker.Handle(r, TypeInfoList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.InformationItem, error) {
		return s.Information.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeInfoGet, func(ctx context.Context, in schema.IDRequest) (*schema.InformationItem, error) {
		return s.Information.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeInfoCreate, mutating(h, func(ctx context.Context, in schema.InformationItemCreateRequest) (schema.InformationItem, error) {
		return s.Information.Create(ctx, in)
	}))
	worker.Handle(r, TypeInfoUpdate, mutating(h, func(ctx context.Context, in schema.InformationItemUpdateRequest) (schema.InformationItem, error) {
		return s.Information.Update(ctx, in.ID, in.Update)
	}))
	worker.Handle(r, TypeInfoDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Information.Delete(ctx, in.ID)
	}))
	worker.Handle(r, TypeInfoSearch, func(ctx context.Context, in schema.InformationSearchRequest) ([]schema.InformationItem, error) {
		return s.Information.Search(ctx, in.ScenarioID, in.Query)
	})

	worker.Handle(r, TypeInfoLinkList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.InformationItemConnection, error) {
		return s.InformationLinks.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeInfoLinkCreate, mutating(h, func(ctx context.Context, in schema.InformationItemConnection) (schema.InformationItemConnection, error) {
		return s.InformationLinks.Create(ctx, in)
	}))
	worker.Handle(r, TypeInfoLinkDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.InformationLinks.Delete(ctx, in.ID)
	}))

	worker.Handle(r, TypeSceneInfoList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.SceneInformationConnection, error) {
		return s.SceneInformation.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeSceneInfoCreate, mutating(h, func(ctx context.Context, in schema.SceneInformationConnection) (schema.SceneInformationConnection, error) {
		return s.SceneInformation.Create(ctx, in)
	}))
	worker.Handle(r, TypeSceneInfoDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.SceneInformation.Delete(ctx, in.ID)
	}))

	worker.Handle(r, TypeInfoSceneList, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.InformationToSceneConnection, error) {
		return s.InformationScenes.FindByScenarioID(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeInfoSceneCreate, mutating(h, func(ctx context.Context, in schema.InformationToSceneConnection) (schema.InformationToSceneConnection, error) {
		return s.InformationScenes.Create(ctx, in)
	}))
	worker.Handle(r, TypeInfoSceneDelete, mutating(h, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.InformationScenes.Delete(ctx, in.ID)
	}))

	// Scene appearances
	worker.Handle(r, TypeAppearanceList, func(ctx context.Context, in schema.SceneIDRequest) ([]schema.SceneAppearance, error) {
		return s.Appearances.FindBySceneID(ctx, in.SceneID)
	})
	worker.Handle(r, TypeAppearanceAdd, mutating(h, func(ctx context.Context, in schema.SceneAppearance) (schema.SceneAppearance, error) {
		return s.Appearances.Add(ctx, in)
	}))
	worker.Handle(r, TypeAppearanceRemove, mutating(h, func(ctx context.Context, in schema.SceneAppearance) (schema.Ack, error) {
		return ok, s.Appearances.Remove(ctx, in)
	}))
	worker.Handle(r, TypeAppearanceSuggest, func(ctx context.Context, in schema.ScenarioIDRequest) ([]schema.AppearanceSuggestion, error) {
		return s.Appearances.SuggestForScenario(ctx, in.ScenarioID)
	})

	// Subgraphs
	worker.Handle(r, TypeSubgraphExport, func(ctx context.Context, in schema.ScenarioIDRequest) (schema.Subgraph, error) {
		return s.Subgraphs.Export(ctx, in.ScenarioID)
	})
	worker.Handle(r, TypeSubgraphImport, mutating(h, func(ctx context.Context, in schema.Subgraph) (schema.Ack, error) {
		return ok, s.Subgraphs.Import(ctx, in)
	}))

	return r
}
