package persistence

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

func openEngine(t *testing.T) *graph.Engine {
	t.Helper()
	e, err := graph.OpenMemory(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestBootSeedsOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	fsys := NewMemFS()

	first := openEngine(t)
	require.NoError(t, NewSyncer(first, fsys, logging.Discard(), WithSeedTitle("Seed")).Boot(ctx))

	store := graph.NewStore(first)
	seed, err := store.Scenarios.FindByID(ctx, SeedScenarioID)
	require.NoError(t, err)
	require.NotNil(t, seed)
	assert.Equal(t, "Seed", seed.Title)
	assert.Contains(t, fsys.Names(), DumpPath(schema.LabelScenario))

	second := openEngine(t)
	syncer := NewSyncer(second, fsys, logging.Discard())
	require.NoError(t, syncer.Boot(ctx))
	n, err := second.Count(ctx, schema.LabelScenario)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "seed is not created twice")

	seeded, err := syncer.EnsureInitialData(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := NewMemFS()

	src := openEngine(t)
	require.NoError(t, NewSyncer(src, fsys, logging.Discard()).Boot(ctx))
	store := graph.NewStore(src)
	_, err := store.Scenes.Create(ctx, SeedScenarioID, schema.Scene{ID: "a", Title: "Opening, part 1", Description: "It rains.\r\nHard."})
	require.NoError(t, err)
	_, err = store.Scenes.Create(ctx, SeedScenarioID, schema.Scene{ID: "b", Title: "Finale", IsMasterScene: true})
	require.NoError(t, err)
	order := 2
	_, err = store.Scenes.Connect(ctx, "a", "b", &order)
	require.NoError(t, err)
	require.NoError(t, NewSyncer(src, fsys, logging.Discard()).Save(ctx))

	dst := openEngine(t)
	require.NoError(t, NewSyncer(dst, fsys, logging.Discard()).Boot(ctx))

	want, err := store.Subgraphs.Export(ctx, SeedScenarioID)
	require.NoError(t, err)
	got, err := graph.NewStore(dst).Subgraphs.Export(ctx, SeedScenarioID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	scene, err := graph.NewStore(dst).Scenes.FindByID(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, scene)
	assert.Equal(t, "It rains.\r\nHard.", scene.Description)
}

func TestLoadSkipsMissingDumps(t *testing.T) {
	e := openEngine(t)
	require.NoError(t, e.CreateSchema(context.Background()))
	require.NoError(t, NewSyncer(e, NewMemFS(), logging.Discard()).Load(context.Background()))
}

func TestLoadRejectsCorruptDump(t *testing.T) {
	ctx := context.Background()
	fsys := NewMemFS()
	require.NoError(t, fsys.WriteFile(DumpPath(schema.LabelScene), []byte("only-one-field\n")))

	err := NewSyncer(openEngine(t), fsys, logging.Discard()).Boot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load graph")
}

func TestDirFS(t *testing.T) {
	d := DirFS{Root: t.TempDir()}
	_, err := d.ReadFile("/Scene.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, d.WriteFile("/Scene.csv", []byte("a,b")))
	require.NoError(t, d.WriteFile("/Scene.csv", []byte("c,d")))
	data, err := d.ReadFile("/Scene.csv")
	require.NoError(t, err)
	assert.Equal(t, "c,d", string(data))
}

func TestMemFSCopiesData(t *testing.T) {
	m := NewMemFS()
	buf := []byte("abc")
	require.NoError(t, m.WriteFile("/x", buf))
	buf[0] = 'z'
	data, err := m.ReadFile("/x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	_, err = m.ReadFile("/missing")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestPooledBuffersComeBackEmpty(t *testing.T) {
	buf := getBuffer()
	buf.WriteString("stale")
	putBuffer(buf)
	assert.Zero(t, getBuffer().Len())
}
