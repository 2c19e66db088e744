package graphworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

// Options configures the graph worker.
type Options struct {
	// Open creates the engine the worker owns.
	Open func() (*graph.Engine, error)
	// FS holds the label dumps.
	FS        persistence.VFS
	SeedTitle string
	AutoSave  bool
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewBus returns an uninitialized bus for the graph worker. Its ready hook
// boots the engine: schema, dumps, then seed data.
func NewBus(opts Options) *worker.Bus {
	logger := logging.Or(opts.Logger)
	return worker.New(worker.Options{
		Name: "graph",
		Spawn: func(ctx context.Context) (worker.Port, error) {
			e, err := opts.Open()
			if err != nil {
				return nil, err
			}
			syncer := persistence.NewSyncer(e, opts.FS, logger, persistence.WithSeedTitle(opts.SeedTitle))
			r := NewRouter(graph.NewStore(e), syncer, opts.AutoSave, logger)
			return worker.Owned(worker.Spawn(ctx, r, logger), e), nil
		},
		OnReady: func(ctx context.Context, b *worker.Bus) error {
			n, err := NewClient(b).Boot(ctx)
			if err != nil {
				return err
			}
			logger.Info("graph booted", "scenarios", n)
			return nil
		},
		Timeout: opts.Timeout,
		Logger:  logger,
	})
}

// Client is the typed API of the graph worker.
type Client struct {
	bus *worker.Bus
}

// NewClient wraps b.
func NewClient(b *worker.Bus) *Client {
	return &Client{bus: b}
}

// Bus returns the underlying bus.
func (c *Client) Bus() *worker.Bus { return c.bus }

func (c *Client) ack(ctx context.Context, msgType string, payload any) error {
	_, err := c.bus.Request(ctx, msgType, payload)
	return err
}

// Boot prepares the engine and returns the number of scenarios.
func (c *Client) Boot(ctx context.Context) (int, error) {
	res, err := worker.RequestInto[schema.CountResult](ctx, c.bus, TypeBoot, schema.Empty{})
	return res.Count, err
}

// Save writes every label dump.
func (c *Client) Save(ctx context.Context) error {
	return c.ack(ctx, TypeSave, schema.Empty{})
}

// =============================================================================
// Scenarios
// =============================================================================

func (c *Client) ListScenarios(ctx context.Context) ([]schema.GraphScenario, error) {
	return worker.RequestInto[[]schema.GraphScenario](ctx, c.bus, TypeScenarioList, schema.Empty{})
}

func (c *Client) GetScenario(ctx context.Context, id string) (*schema.GraphScenario, error) {
	return worker.RequestInto[*schema.GraphScenario](ctx, c.bus, TypeScenarioGet, schema.IDRequest{ID: id})
}

func (c *Client) CreateScenario(ctx context.Context, in schema.GraphScenario) (schema.GraphScenario, error) {
	return worker.RequestInto[schema.GraphScenario](ctx, c.bus, TypeScenarioCreate, in)
}

func (c *Client) UpdateScenario(ctx context.Context, id, title string) (schema.GraphScenario, error) {
	return worker.RequestInto[schema.GraphScenario](ctx, c.bus, TypeScenarioUpdate, schema.ScenarioUpdateRequest{ID: id, Title: title})
}

func (c *Client) DeleteScenario(ctx context.Context, id string) error {
	return c.ack(ctx, TypeScenarioDelete, schema.IDRequest{ID: id})
}

func (c *Client) CountScenarios(ctx context.Context) (int, error) {
	res, err := worker.RequestInto[schema.CountResult](ctx, c.bus, TypeScenarioCount, schema.Empty{})
	return res.Count, err
}

// =============================================================================
// Scenes
// =============================================================================

func (c *Client) ListScenes(ctx context.Context, scenarioID string) ([]schema.Scene, error) {
	return worker.RequestInto[[]schema.Scene](ctx, c.bus, TypeSceneList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) GetScene(ctx context.Context, id string) (*schema.Scene, error) {
	return worker.RequestInto[*schema.Scene](ctx, c.bus, TypeSceneGet, schema.IDRequest{ID: id})
}

func (c *Client) CreateScene(ctx context.Context, scenarioID string, scene schema.Scene) (schema.Scene, error) {
	return worker.RequestInto[schema.Scene](ctx, c.bus, TypeSceneCreate, schema.SceneCreateRequest{ScenarioID: scenarioID, Scene: scene})
}

func (c *Client) UpdateScene(ctx context.Context, id string, u schema.SceneUpdate) (schema.Scene, error) {
	return worker.RequestInto[schema.Scene](ctx, c.bus, TypeSceneUpdate, schema.SceneUpdateRequest{ID: id, Update: u})
}

func (c *Client) DeleteScene(ctx context.Context, id string) error {
	return c.ack(ctx, TypeSceneDelete, schema.IDRequest{ID: id})
}

func (c *Client) ListConnections(ctx context.Context, scenarioID string) ([]schema.SceneConnection, error) {
	return worker.RequestInto[[]schema.SceneConnection](ctx, c.bus, TypeSceneConnections, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) Connect(ctx context.Context, source, target string, order *int) (schema.SceneConnection, error) {
	return worker.RequestInto[schema.SceneConnection](ctx, c.bus, TypeSceneConnect, schema.SceneConnectRequest{Source: source, Target: target, Order: order})
}

func (c *Client) UpdateConnectionOrder(ctx context.Context, connID string, order *int) (schema.SceneConnection, error) {
	return worker.RequestInto[schema.SceneConnection](ctx, c.bus, TypeSceneConnectionUpdate, schema.SceneConnectionOrderRequest{ID: connID, Order: order})
}

func (c *Client) Disconnect(ctx context.Context, connID string) error {
	return c.ack(ctx, TypeSceneDisconnect, schema.IDRequest{ID: connID})
}

// =============================================================================
// Scene events
// =============================================================================

func (c *Client) ListEvents(ctx context.Context, sceneID string) ([]schema.SceneEvent, error) {
	return worker.RequestInto[[]schema.SceneEvent](ctx, c.bus, TypeEventList, schema.SceneIDRequest{SceneID: sceneID})
}

func (c *Client) CreateEvent(ctx context.Context, in schema.SceneEventCreateRequest) (schema.SceneEvent, error) {
	return worker.RequestInto[schema.SceneEvent](ctx, c.bus, TypeEventCreate, in)
}

func (c *Client) UpdateEvent(ctx context.Context, id string, u schema.SceneEventUpdate) (schema.SceneEvent, error) {
	return worker.RequestInto[schema.SceneEvent](ctx, c.bus, TypeEventUpdate, schema.SceneEventUpdateRequest{ID: id, Update: u})
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.ack(ctx, TypeEventDelete, schema.IDRequest{ID: id})
}

func (c *Client) ReorderEvents(ctx context.Context, sceneID string, ids []string) ([]schema.SceneEvent, error) {
	return worker.RequestInto[[]schema.SceneEvent](ctx, c.bus, TypeEventReorder, schema.SceneEventReorderRequest{SceneID: sceneID, EventIDs: ids})
}

func (c *Client) MoveEvent(ctx context.Context, eventID, toSceneID string, position int) (schema.SceneEvent, error) {
	return worker.RequestInto[schema.SceneEvent](ctx, c.bus, TypeEventMove, schema.SceneEventMoveRequest{EventID: eventID, ToSceneID: toSceneID, Position: position})
}

// =============================================================================
// Characters, cast and relationships
// =============================================================================

func (c *Client) ListCharacters(ctx context.Context) ([]schema.Character, error) {
	return worker.RequestInto[[]schema.Character](ctx, c.bus, TypeCharacterList, schema.Empty{})
}

func (c *Client) GetCharacter(ctx context.Context, id string) (*schema.Character, error) {
	return worker.RequestInto[*schema.Character](ctx, c.bus, TypeCharacterGet, schema.IDRequest{ID: id})
}

func (c *Client) CreateCharacter(ctx context.Context, in schema.Character) (schema.Character, error) {
	return worker.RequestInto[schema.Character](ctx, c.bus, TypeCharacterCreate, in)
}

func (c *Client) UpdateCharacter(ctx context.Context, id string, u schema.CharacterUpdate) (schema.Character, error) {
	return worker.RequestInto[schema.Character](ctx, c.bus, TypeCharacterUpdate, schema.CharacterUpdateRequest{ID: id, Update: u})
}

func (c *Client) DeleteCharacter(ctx context.Context, id string) error {
	return c.ack(ctx, TypeCharacterDelete, schema.IDRequest{ID: id})
}

func (c *Client) ListCast(ctx context.Context, scenarioID string) ([]schema.ScenarioCharacter, error) {
	return worker.RequestInto[[]schema.ScenarioCharacter](ctx, c.bus, TypeCastList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) AddCast(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
	return worker.RequestInto[schema.ScenarioCharacter](ctx, c.bus, TypeCastAdd, in)
}

func (c *Client) UpdateCast(ctx context.Context, in schema.CastRequest) (schema.ScenarioCharacter, error) {
	return worker.RequestInto[schema.ScenarioCharacter](ctx, c.bus, TypeCastUpdate, in)
}

func (c *Client) RemoveCast(ctx context.Context, scenarioID, characterID string) error {
	return c.ack(ctx, TypeCastRemove, schema.CastMemberRequest{ScenarioID: scenarioID, CharacterID: characterID})
}

func (c *Client) ListRelationships(ctx context.Context, scenarioID string) ([]schema.CharacterRelationship, error) {
	return worker.RequestInto[[]schema.CharacterRelationship](ctx, c.bus, TypeRelationshipList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

// CharacterRelationships splits a character's relationships in a scenario
// by direction.
func (c *Client) CharacterRelationships(ctx context.Context, scenarioID, characterID string) (schema.CharacterRelationships, error) {
	return worker.RequestInto[schema.CharacterRelationships](ctx, c.bus, TypeRelationshipForCharacter,
		schema.CastMemberRequest{ScenarioID: scenarioID, CharacterID: characterID})
}

func (c *Client) CreateRelationship(ctx context.Context, in schema.CharacterRelationship) (schema.CharacterRelationship, error) {
	return worker.RequestInto[schema.CharacterRelationship](ctx, c.bus, TypeRelationshipCreate, in)
}

func (c *Client) RenameRelationship(ctx context.Context, id, name string) (schema.CharacterRelationship, error) {
	return worker.RequestInto[schema.CharacterRelationship](ctx, c.bus, TypeRelationshipUpdate, schema.RelationshipRenameRequest{ID: id, RelationshipName: name})
}

func (c *Client) DeleteRelationship(ctx context.Context, id string) error {
	return c.ack(ctx, TypeRelationshipDelete, schema.IDRequest{ID: id})
}

// =============================================================================
// Information items
// =============================================================================

func (c *Client) ListInformation(ctx context.Context, scenarioID string) ([]schema.InformationItem, error) {
	return worker.RequestInto[[]schema.InformationItem](ctx, c.bus, TypeInfoList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) GetInformation(ctx context.Context, id string) (*schema.InformationItem, error) {
	return worker.RequestInto[*schema.InformationItem](ctx, c.bus, TypeInfoGet, schema.IDRequest{ID: id})
}

func (c *Client) CreateInformation(ctx context.Context, in schema.InformationItemCreateRequest) (schema.InformationItem, error) {
	return worker.RequestInto[schema.InformationItem](ctx, c.bus, TypeInfoCreate, in)
}

func (c *Client) UpdateInformation(ctx context.Context, id string, u schema.InformationItemUpdate) (schema.InformationItem, error) {
	return worker.RequestInto[schema.InformationItem](ctx, c.bus, TypeInfoUpdate, schema.InformationItemUpdateRequest{ID: id, Update: u})
}

func (c *Client) DeleteInformation(ctx context.Context, id string) error {
	return c.ack(ctx, TypeInfoDelete, schema.IDRequest{ID: id})
}

func (c *Client) SearchInformation(ctx context.Context, scenarioID, query string) ([]schema.InformationItem, error) {
	return worker.RequestInto[[]schema.InformationItem](ctx, c.bus, TypeInfoSearch, schema.InformationSearchRequest{ScenarioID: scenarioID, Query: query})
}

func (c *Client) ListInformationLinks(ctx context.Context, scenarioID string) ([]schema.InformationItemConnection, error) {
	return worker.RequestInto[[]schema.InformationItemConnection](ctx, c.bus, TypeInfoLinkList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) CreateInformationLink(ctx context.Context, in schema.InformationItemConnection) (schema.InformationItemConnection, error) {
	return worker.RequestInto[schema.InformationItemConnection](ctx, c.bus, TypeInfoLinkCreate, in)
}

func (c *Client) DeleteInformationLink(ctx context.Context, id string) error {
	return c.ack(ctx, TypeInfoLinkDelete, schema.IDRequest{ID: id})
}

func (c *Client) ListSceneInformation(ctx context.Context, scenarioID string) ([]schema.SceneInformationConnection, error) {
	return worker.RequestInto[[]schema.SceneInformationConnection](ctx, c.bus, TypeSceneInfoList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) CreateSceneInformation(ctx context.Context, in schema.SceneInformationConnection) (schema.SceneInformationConnection, error) {
	return worker.RequestInto[schema.SceneInformationConnection](ctx, c.bus, TypeSceneInfoCreate, in)
}

func (c *Client) DeleteSceneInformation(ctx context.Context, id string) error {
	return c.ack(ctx, TypeSceneInfoDelete, schema.IDRequest{ID: id})
}

func (c *Client) ListInformationScenes(ctx context.Context, scenarioID string) ([]schema.InformationToSceneConnection, error) {
	return worker.RequestInto[[]schema.InformationToSceneConnection](ctx, c.bus, TypeInfoSceneList, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) CreateInformationScene(ctx context.Context, in schema.InformationToSceneConnection) (schema.InformationToSceneConnection, error) {
	return worker.RequestInto[schema.InformationToSceneConnection](ctx, c.bus, TypeInfoSceneCreate, in)
}

func (c *Client) DeleteInformationScene(ctx context.Context, id string) error {
	return c.ack(ctx, TypeInfoSceneDelete, schema.IDRequest{ID: id})
}

// =============================================================================
// Appearances and subgraphs
// =============================================================================

func (c *Client) ListAppearances(ctx context.Context, sceneID string) ([]schema.SceneAppearance, error) {
	return worker.RequestInto[[]schema.SceneAppearance](ctx, c.bus, TypeAppearanceList, schema.SceneIDRequest{SceneID: sceneID})
}

func (c *Client) AddAppearance(ctx context.Context, in schema.SceneAppearance) (schema.SceneAppearance, error) {
	return worker.RequestInto[schema.SceneAppearance](ctx, c.bus, TypeAppearanceAdd, in)
}

func (c *Client) RemoveAppearance(ctx context.Context, in schema.SceneAppearance) error {
	return c.ack(ctx, TypeAppearanceRemove, in)
}

// SuggestAppearances lists cast members mentioned in scenes they are not
// featured in.
func (c *Client) SuggestAppearances(ctx context.Context, scenarioID string) ([]schema.AppearanceSuggestion, error) {
	return worker.RequestInto[[]schema.AppearanceSuggestion](ctx, c.bus, TypeAppearanceSuggest, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) ExportSubgraph(ctx context.Context, scenarioID string) (schema.Subgraph, error) {
	return worker.RequestInto[schema.Subgraph](ctx, c.bus, TypeSubgraphExport, schema.ScenarioIDRequest{ScenarioID: scenarioID})
}

func (c *Client) ImportSubgraph(ctx context.Context, sub schema.Subgraph) error {
	return c.ack(ctx, TypeSubgraphImport, sub)
}
