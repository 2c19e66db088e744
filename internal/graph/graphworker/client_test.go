package graphworker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

func startClient(t *testing.T, fsys persistence.VFS, autoSave bool) *Client {
	t.Helper()
	b := NewBus(Options{
		Open:      func() (*graph.Engine, error) { return graph.OpenMemory(logging.Discard()) },
		FS:        fsys,
		SeedTitle: "Seed",
		AutoSave:  autoSave,
		Timeout:   5 * time.Second,
		Logger:    logging.Discard(),
	})
	require.NoError(t, b.Initialize(context.Background()))
	t.Cleanup(b.Terminate)
	return NewClient(b)
}

func TestBootSeedsScenario(t *testing.T) {
	c := startClient(t, persistence.NewMemFS(), true)
	assert.Equal(t, worker.StateReady, c.Bus().State())

	list, err := c.ListScenarios(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, persistence.SeedScenarioID, list[0].ID)
	assert.Equal(t, "Seed", list[0].Title)
}

func TestAutoSaveSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	fsys := persistence.NewMemFS()

	first := startClient(t, fsys, true)
	_, err := first.CreateScene(ctx, persistence.SeedScenarioID, schema.Scene{ID: "a", Title: "Opening"})
	require.NoError(t, err)
	first.Bus().Terminate()

	second := startClient(t, fsys, true)
	scenes, err := second.ListScenes(ctx, persistence.SeedScenarioID)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Opening", scenes[0].Title)
}

func TestExplicitSaveWithoutAutoSave(t *testing.T) {
	ctx := context.Background()
	fsys := persistence.NewMemFS()

	first := startClient(t, fsys, false)
	_, err := first.CreateScene(ctx, persistence.SeedScenarioID, schema.Scene{ID: "a", Title: "Opening"})
	require.NoError(t, err)

	unsaved := startClient(t, fsys, false)
	scenes, err := unsaved.ListScenes(ctx, persistence.SeedScenarioID)
	require.NoError(t, err)
	assert.Empty(t, scenes)

	require.NoError(t, first.Save(ctx))
	saved := startClient(t, fsys, false)
	scenes, err = saved.ListScenes(ctx, persistence.SeedScenarioID)
	require.NoError(t, err)
	assert.Len(t, scenes, 1)
}

func TestErrorsCrossTheBoundary(t *testing.T) {
	ctx := context.Background()
	c := startClient(t, persistence.NewMemFS(), false)

	_, err := c.CreateScene(ctx, persistence.SeedScenarioID, schema.Scene{ID: "a", Title: "Opening"})
	require.NoError(t, err)

	_, err = c.UpdateScene(ctx, "a", schema.SceneUpdate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields to update")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = c.CreateScene(ctx, "missing", schema.Scene{ID: "b", Title: "Orphan"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = c.CreateEvent(ctx, schema.SceneEventCreateRequest{SceneID: "a", ID: "e1", Type: "dance"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSubgraphMessages(t *testing.T) {
	ctx := context.Background()
	src := startClient(t, persistence.NewMemFS(), false)

	_, err := src.CreateScene(ctx, persistence.SeedScenarioID, schema.Scene{ID: "a", Title: "Opening"})
	require.NoError(t, err)
	_, err = src.CreateEvent(ctx, schema.SceneEventCreateRequest{SceneID: "a", ID: "e1", Type: schema.EventStart})
	require.NoError(t, err)
	sub, err := src.ExportSubgraph(ctx, persistence.SeedScenarioID)
	require.NoError(t, err)

	dst := startClient(t, persistence.NewMemFS(), false)
	require.NoError(t, dst.DeleteScenario(ctx, persistence.SeedScenarioID))
	require.NoError(t, dst.ImportSubgraph(ctx, sub))
	events, err := dst.ListEvents(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventStart, events[0].Type)
}
