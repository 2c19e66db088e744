package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(setupEngine(t))
}

// seedScenario creates a scenario with two scenes.
func seedScenario(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Scenarios.Create(ctx, schema.GraphScenario{ID: "s1", Title: "Haunted Manor"})
	require.NoError(t, err)
	_, err = s.Scenes.Create(ctx, "s1", schema.Scene{ID: "A", Title: "Gate", Description: "花子 waits at the gate."})
	require.NoError(t, err)
	_, err = s.Scenes.Create(ctx, "s1", schema.Scene{ID: "B", Title: "Hall"})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestSceneCreateRequiresScenario(t *testing.T) {
	s := setupStore(t)
	_, err := s.Scenes.Create(context.Background(), "missing", schema.Scene{ID: "A", Title: "Gate"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	n, err := s.Engine.Count(context.Background(), schema.LabelScene)
	require.NoError(t, err)
	assert.Zero(t, n, "no orphan scene")
}

func TestSceneUpdate(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)

	updated, err := s.Scenes.Update(ctx, "A", schema.SceneUpdate{IsMasterScene: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsMasterScene)
	assert.Equal(t, "Gate", updated.Title)

	_, err = s.Scenes.Update(ctx, "A", schema.SceneUpdate{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFieldsToUpdate))
	assert.Contains(t, err.Error(), "no fields to update")

	_, err = s.Scenes.Update(ctx, "missing", schema.SceneUpdate{Title: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSceneConnections(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)

	conn, err := s.Scenes.Connect(ctx, "A", "B", ptr(1))
	require.NoError(t, err)
	assert.Equal(t, "A-B", conn.ID)
	_, err = s.Scenes.Connect(ctx, "B", "A", nil)
	require.NoError(t, err)
	_, err = s.Scenes.Connect(ctx, "A", "B", nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	conns, err := s.Scenes.FindConnections(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, 1, *conns[0].Order)
	assert.Nil(t, conns[1].Order)

	updated, err := s.Scenes.UpdateConnectionOrder(ctx, "B-A", ptr(2))
	require.NoError(t, err)
	assert.Equal(t, 2, *updated.Order)

	require.NoError(t, s.Scenes.Disconnect(ctx, "A-B"))
	require.NoError(t, s.Scenes.Disconnect(ctx, "A-B"))
	conns, err = s.Scenes.FindConnections(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "B-A", conns[0].ID)

	assert.Error(t, s.Scenes.Disconnect(ctx, "no-dash-here"))
}

func TestSceneConnectionsWithUUIDs(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	const a, b = "0c9f5a61-6f0e-4a51-9a4b-1f0a4c3d2e11", "7d3c2b1a-0a9b-4c8d-8e7f-6a5b4c3d2e1f"
	_, err := s.Scenarios.Create(ctx, schema.GraphScenario{ID: "s1", Title: "T"})
	require.NoError(t, err)
	for _, id := range []string{a, b} {
		_, err := s.Scenes.Create(ctx, "s1", schema.Scene{ID: id, Title: id})
		require.NoError(t, err)
	}
	conn, err := s.Scenes.Connect(ctx, a, b, nil)
	require.NoError(t, err)
	require.NoError(t, s.Scenes.Disconnect(ctx, conn.ID))

	conns, err := s.Scenes.FindConnections(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestSceneDeleteRemovesEventsAndEdges(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	_, err := s.Events.Create(ctx, schema.SceneEventCreateRequest{SceneID: "A", ID: "e1", Type: schema.EventStart})
	require.NoError(t, err)
	_, err = s.Scenes.Connect(ctx, "A", "B", nil)
	require.NoError(t, err)

	require.NoError(t, s.Scenes.Delete(ctx, "A"))
	require.NoError(t, s.Scenes.Delete(ctx, "A"))

	n, err := s.Engine.Count(ctx, schema.LabelSceneEvent)
	require.NoError(t, err)
	assert.Zero(t, n)
	conns, err := s.Scenes.FindConnections(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestSceneEventOrdering(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)

	create := func(scene, id string, pos *int) {
		t.Helper()
		_, err := s.Events.Create(ctx, schema.SceneEventCreateRequest{SceneID: scene, ID: id, Type: schema.EventConversation, SortOrder: pos})
		require.NoError(t, err)
	}
	order := func(scene string) []string {
		t.Helper()
		events, err := s.Events.FindBySceneID(ctx, scene)
		require.NoError(t, err)
		ids := make([]string, len(events))
		for i, ev := range events {
			assert.Equal(t, i, ev.SortOrder)
			ids[i] = ev.ID
		}
		return ids
	}

	create("A", "e1", nil)
	create("A", "e2", nil)
	create("A", "e0", ptr(0))
	assert.Equal(t, []string{"e0", "e1", "e2"}, order("A"))

	_, err := s.Events.Reorder(ctx, "A", []string{"e2", "e0", "e1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e0", "e1"}, order("A"))

	_, err = s.Events.Reorder(ctx, "A", []string{"e2", "e0"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.Events.Move(ctx, "e0", "B", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e1"}, order("A"))
	assert.Equal(t, []string{"e0"}, order("B"))

	_, err = s.Events.Move(ctx, "e2", "A", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, order("A"))

	require.NoError(t, s.Events.Delete(ctx, "e1"))
	require.NoError(t, s.Events.Delete(ctx, "e1"))
	assert.Equal(t, []string{"e2"}, order("A"))

	_, err = s.Events.Update(ctx, "e2", schema.SceneEventUpdate{})
	assert.True(t, errors.Is(err, ErrNoFieldsToUpdate))
	ev, err := s.Events.Update(ctx, "e2", schema.SceneEventUpdate{Type: ptr(schema.EventBattle)})
	require.NoError(t, err)
	assert.Equal(t, schema.EventBattle, ev.Type)
}

func TestCastAndRelationships(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	for _, ch := range []schema.Character{{ID: "c1", Name: "花子"}, {ID: "c2", Name: "太郎"}} {
		_, err := s.Characters.Create(ctx, ch)
		require.NoError(t, err)
	}

	member, err := s.Cast.Add(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1", Role: "detective", ImageID: ptr("img1")})
	require.NoError(t, err)
	assert.Equal(t, "花子", member.Name)
	assert.Equal(t, "img1", *member.ImageID)
	_, err = s.Cast.Add(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	member, err = s.Cast.UpdateRole(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1", Role: "culprit"})
	require.NoError(t, err)
	assert.Equal(t, "culprit", member.Role)
	assert.Nil(t, member.ImageID)

	forward := schema.CharacterRelationship{ID: "r1", ScenarioID: "s1", FromCharacterID: "c1", ToCharacterID: "c2", RelationshipName: "trusts"}
	backward := schema.CharacterRelationship{ID: "r2", ScenarioID: "s1", FromCharacterID: "c2", ToCharacterID: "c1", RelationshipName: "suspects"}
	_, err = s.Relationships.Create(ctx, forward)
	require.NoError(t, err)
	_, err = s.Relationships.Create(ctx, backward)
	require.NoError(t, err)

	rels, err := s.Relationships.FindByScenarioAndCharacterID(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []schema.CharacterRelationship{backward}, rels.Incoming)
	assert.Equal(t, []schema.CharacterRelationship{forward}, rels.Outgoing)

	renamed, err := s.Relationships.Update(ctx, "r1", "loves")
	require.NoError(t, err)
	assert.Equal(t, "loves", renamed.RelationshipName)

	require.NoError(t, s.Relationships.Delete(ctx, "r1"))
	require.NoError(t, s.Relationships.Delete(ctx, "r1"))
	all, err := s.Relationships.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []schema.CharacterRelationship{backward}, all)

	require.NoError(t, s.Cast.Remove(ctx, "s1", "c1"))
	require.NoError(t, s.Cast.Remove(ctx, "s1", "c1"))
	cast, err := s.Cast.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cast)
	all, err = s.Relationships.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, all, "leaving the cast drops the character's relationships")
}

func TestDirectionalInformationConnectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	_, err := s.Information.Create(ctx, schema.InformationItemCreateRequest{ScenarioID: "s1", ID: "i1", Title: "Key"})
	require.NoError(t, err)

	_, err = s.SceneInformation.Create(ctx, schema.SceneInformationConnection{ID: "x1", SceneID: "A", InformationItemID: "i1"})
	require.NoError(t, err)
	_, err = s.InformationScenes.Create(ctx, schema.InformationToSceneConnection{ID: "x2", InformationItemID: "i1", SceneID: "A"})
	require.NoError(t, err)

	require.NoError(t, s.SceneInformation.Delete(ctx, "x1"))

	grants, err := s.SceneInformation.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, grants)
	points, err := s.InformationScenes.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []schema.InformationToSceneConnection{{ID: "x2", InformationItemID: "i1", SceneID: "A"}}, points)

	require.NoError(t, s.InformationScenes.Delete(ctx, "missing"))
}

func TestInformationItems(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	for _, in := range []schema.InformationItemCreateRequest{
		{ScenarioID: "s1", ID: "i1", Title: "Brass key", Description: "Opens the library."},
		{ScenarioID: "s1", ID: "i2", Title: "Library ledger", Description: "Mentions a hidden key in the library."},
		{ScenarioID: "s1", ID: "i3", Title: "Diary"},
	} {
		_, err := s.Information.Create(ctx, in)
		require.NoError(t, err)
	}

	_, err := s.Information.Update(ctx, "i3", schema.InformationItemUpdate{})
	assert.True(t, errors.Is(err, ErrNoFieldsToUpdate))

	found, err := s.Information.Search(ctx, "s1", "the library key")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "i2", found[0].ID)

	link, err := s.InformationLinks.Create(ctx, schema.InformationItemConnection{ID: "l1", Source: "i1", Target: "i2"})
	require.NoError(t, err)
	links, err := s.InformationLinks.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []schema.InformationItemConnection{link}, links)

	require.NoError(t, s.Information.Delete(ctx, "i2"))
	links, err = s.InformationLinks.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestAppearanceSuggestions(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	_, err := s.Characters.Create(ctx, schema.Character{ID: "c1", Name: "花子"})
	require.NoError(t, err)
	_, err = s.Cast.Add(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1"})
	require.NoError(t, err)

	suggestions, err := s.Appearances.SuggestForScenario(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "A", suggestions[0].SceneID)
	assert.Equal(t, 1, suggestions[0].Mentions)

	_, err = s.Appearances.Add(ctx, schema.SceneAppearance{SceneID: "A", CharacterID: "c1"})
	require.NoError(t, err)
	suggestions, err = s.Appearances.SuggestForScenario(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	featured, err := s.Appearances.FindBySceneID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []schema.SceneAppearance{{SceneID: "A", CharacterID: "c1"}}, featured)
}

func TestSubgraphExportImport(t *testing.T) {
	ctx := context.Background()
	src := setupStore(t)
	seedScenario(t, src)
	_, err := src.Scenes.Connect(ctx, "A", "B", ptr(0))
	require.NoError(t, err)
	_, err = src.Events.Create(ctx, schema.SceneEventCreateRequest{SceneID: "A", ID: "e1", Type: schema.EventStart, Content: "Rain."})
	require.NoError(t, err)
	_, err = src.Characters.Create(ctx, schema.Character{ID: "c1", Name: "花子", PrimaryImageID: ptr("img1")})
	require.NoError(t, err)
	_, err = src.Cast.Add(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1", Role: "lead"})
	require.NoError(t, err)
	_, err = src.Information.Create(ctx, schema.InformationItemCreateRequest{ScenarioID: "s1", ID: "i1", Title: "Key"})
	require.NoError(t, err)
	_, err = src.SceneInformation.Create(ctx, schema.SceneInformationConnection{ID: "x1", SceneID: "A", InformationItemID: "i1"})
	require.NoError(t, err)

	sub, err := src.Subgraphs.Export(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, schema.Validate(sub))
	assert.Len(t, sub.Nodes, 6)

	dst := setupStore(t)
	require.NoError(t, dst.Subgraphs.Import(ctx, sub))
	again, err := dst.Subgraphs.Export(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sub, again)

	err = dst.Subgraphs.Import(ctx, sub)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = src.Subgraphs.Export(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubgraphExportIncludesRelationshipEndsOutsideCast(t *testing.T) {
	ctx := context.Background()
	src := setupStore(t)
	seedScenario(t, src)
	for _, ch := range []schema.Character{{ID: "c1", Name: "花子"}, {ID: "c2", Name: "太郎", PrimaryImageID: ptr("img2")}} {
		_, err := src.Characters.Create(ctx, ch)
		require.NoError(t, err)
	}
	rel := schema.CharacterRelationship{ID: "r1", ScenarioID: "s1", FromCharacterID: "c1", ToCharacterID: "c2", RelationshipName: "rivals"}
	_, err := src.Relationships.Create(ctx, rel)
	require.NoError(t, err)

	sub, err := src.Subgraphs.Export(ctx, "s1")
	require.NoError(t, err)
	var characters []string
	for _, n := range sub.Nodes {
		if n.Label == schema.LabelCharacter {
			characters = append(characters, n.ID)
		}
	}
	assert.ElementsMatch(t, []string{"c1", "c2"}, characters)

	dst := setupStore(t)
	require.NoError(t, dst.Subgraphs.Import(ctx, sub))
	rels, err := dst.Relationships.FindByScenarioID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []schema.CharacterRelationship{rel}, rels)
}

func TestScenarioDeleteCascadesOwnedNodes(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedScenario(t, s)
	_, err := s.Characters.Create(ctx, schema.Character{ID: "c1", Name: "Holmes"})
	require.NoError(t, err)
	_, err = s.Cast.Add(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1"})
	require.NoError(t, err)

	require.NoError(t, s.Scenarios.Delete(ctx, "s1"))
	require.NoError(t, s.Scenarios.Delete(ctx, "s1"))

	n, err := s.Scenarios.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Engine.Count(ctx, schema.LabelScene)
	require.NoError(t, err)
	assert.Zero(t, n)
	ch, err := s.Characters.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, ch, "characters are global")
}
