package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/config"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Worker.RequestTimeout = config.Duration(5 * time.Second)
	return cfg
}

func start(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestFirstRunHasSeedInBothStores(t *testing.T) {
	ctx := context.Background()
	a := start(t, testConfig(t))

	list, err := a.Scenarios.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, persistence.SeedScenarioID, list[0].ID)
	assert.Equal(t, config.Default().Seed.Title, list[0].Title)
}

func TestWorkersOutliveStartupContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a, err := New(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	cancel()

	list, err := a.Scenarios.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = a.Scenarios.Create(context.Background(), "After startup")
	require.NoError(t, err)
}

func TestScenarioLifecycleSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a := start(t, cfg)
	created, err := a.Scenarios.Create(ctx, "Haunted Manor")
	require.NoError(t, err)
	renamed, err := a.Scenarios.Rename(ctx, created.ID, "Haunted Manor II")
	require.NoError(t, err)
	assert.Equal(t, "Haunted Manor II", renamed.Title)
	a.Close()

	b := start(t, cfg)
	list, err := b.Scenarios.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID, "most recently updated first")

	node, err := b.Graph.GetScenario(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Haunted Manor II", node.Title)

	require.NoError(t, b.Scenarios.Delete(ctx, created.ID))
	require.NoError(t, b.Scenarios.Delete(ctx, created.ID))
	_, err = b.Scenario(ctx, created.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	node, err = b.Graph.GetScenario(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestCreateCompensatesWhenRowFails(t *testing.T) {
	ctx := context.Background()
	a := start(t, testConfig(t))

	_, err := a.Relational.CreateScenario(ctx, schema.NewScenario{ID: "dup", Title: "Existing"})
	require.NoError(t, err)
	a.Scenarios.newID = func() string { return "dup" }

	_, err = a.Scenarios.Create(ctx, "Clash")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	node, err := a.Graph.GetScenario(ctx, "dup")
	require.NoError(t, err)
	assert.Nil(t, node, "graph node is removed again")
}

func TestExportDeleteImport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Relational.DSN = ":memory:"
	cfg.Graph.Memory = true
	a := start(t, cfg)

	created, err := a.Scenarios.Create(ctx, "Portable")
	require.NoError(t, err)
	_, err = a.Graph.CreateScene(ctx, created.ID, schema.Scene{ID: "a", Title: "Start"})
	require.NoError(t, err)

	data, err := a.Exchange.ExportZip(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, a.Scenarios.Delete(ctx, created.ID))

	doc, err := a.Exchange.ImportZip(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, created.ID, doc.Metadata.ScenarioID)

	row, err := a.Scenario(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, row, "timestamps are preserved")
	scenes, err := a.Graph.ListScenes(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, scenes, 1)
}
