package exchange

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph/graphworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb/rdbworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

func sampleDocument() *Document {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	return &Document{
		Metadata: schema.ExportMetadata{Version: Version, ExportedAt: ts, ScenarioID: "s1", ScenarioTitle: "Manor"},
		GraphDB: schema.GraphSection{
			Nodes: []schema.NodeRecord{
				{ID: "s1", Label: schema.LabelScenario, Properties: map[string]any{"title": "Manor"}},
				{ID: "a", Label: schema.LabelScene, Properties: map[string]any{"title": "Gate", "description": "", "isMasterScene": false}},
				{ID: "e1", Label: schema.LabelSceneEvent, Properties: map[string]any{"type": "start", "content": "", "sortOrder": float64(0)}},
			},
			Relationships: []schema.RelRecord{
				{Type: schema.RelHasScene, From: "s1", To: "a", Properties: map[string]any{}},
				{Type: schema.RelHasEvent, From: "a", To: "e1", Properties: map[string]any{}},
			},
		},
		RDB: schema.RDBSection{
			Scenario: schema.Scenario{ID: "s1", Title: "Manor", CreatedAt: ts, UpdatedAt: ts},
			Images:   []schema.Image{{ID: "img1", DataURL: "data:image/png;base64,AAAA", CreatedAt: ts}},
		},
	}
}

func TestZipRoundTrip(t *testing.T) {
	doc := sampleDocument()
	data, err := ExportToZip(doc)
	require.NoError(t, err)

	got, err := ImportFromZip(data)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestZipHasFiveEntries(t *testing.T) {
	data, err := ExportToZip(sampleDocument())
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{EntryMetadata, EntryNodes, EntryRelationships, EntryScenario, EntryImages}, names)
}

func TestImportFromZipMissingEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(EntryMetadata)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ImportFromZip(buf.Bytes())
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.EqualError(t, err, "Invalid ZIP structure: missing required files")

	_, err = ImportFromZip([]byte("not a zip"))
	assert.True(t, apperr.Is(err, apperr.KindStructural))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sampleDocument()))

	doc := sampleDocument()
	doc.RDB.Scenario.ID = "other"
	assert.True(t, apperr.Is(Validate(doc), apperr.KindValidation))

	doc = sampleDocument()
	doc.GraphDB.Nodes[1].Label = "Monster"
	assert.True(t, apperr.Is(Validate(doc), apperr.KindValidation))

	doc = sampleDocument()
	doc.Metadata.Version = "2.0.0"
	assert.Error(t, Validate(doc))

	doc = sampleDocument()
	doc.GraphDB.Nodes = doc.GraphDB.Nodes[1:]
	assert.Error(t, Validate(doc), "scenario node is required")
}

func TestReferencedImages(t *testing.T) {
	sub := schema.Subgraph{
		Nodes: []schema.NodeRecord{
			{ID: "c1", Label: schema.LabelCharacter, Properties: map[string]any{"primaryImageId": "img1"}},
			{ID: "c2", Label: schema.LabelCharacter, Properties: map[string]any{"primaryImageId": nil}},
		},
		Relationships: []schema.RelRecord{
			{Type: schema.RelAppearsIn, From: "c1", To: "s1", Properties: map[string]any{"imageId": "img2"}},
			{Type: schema.RelAppearsIn, From: "c2", To: "s1", Properties: map[string]any{"imageId": "img1"}},
		},
	}
	assert.Equal(t, []string{"img1", "img2"}, ReferencedImages(sub))
}

// stores starts both workers over fresh in-memory databases.
func stores(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	rb := rdbworker.NewBus(func() (*rdb.Store, error) { return rdb.OpenMemory() }, 5*time.Second, logging.Discard())
	require.NoError(t, rb.Initialize(ctx))
	t.Cleanup(rb.Terminate)
	gb := graphworker.NewBus(graphworker.Options{
		Open:    func() (*graph.Engine, error) { return graph.OpenMemory(logging.Discard()) },
		FS:      persistence.NewMemFS(),
		Timeout: 5 * time.Second,
		Logger:  logging.Discard(),
	})
	require.NoError(t, gb.Initialize(ctx))
	t.Cleanup(gb.Terminate)
	return NewService(rdbworker.NewClient(rb), graphworker.NewClient(gb), logging.Discard())
}

func seed(t *testing.T, s *Service) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Relational.CreateScenario(ctx, schema.NewScenario{ID: "s1", Title: "Manor"})
	require.NoError(t, err)
	_, err = s.Graph.CreateScenario(ctx, schema.GraphScenario{ID: "s1", Title: "Manor"})
	require.NoError(t, err)
	_, err = s.Graph.CreateScene(ctx, "s1", schema.Scene{ID: "a", Title: "Gate"})
	require.NoError(t, err)
	img, err := s.Relational.CreateImage(ctx, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	_, err = s.Relational.CreateImage(ctx, "data:image/png;base64,BBBB")
	require.NoError(t, err)
	_, err = s.Graph.CreateCharacter(ctx, schema.Character{ID: "c1", Name: "Holmes", PrimaryImageID: &img.ID})
	require.NoError(t, err)
	_, err = s.Graph.AddCast(ctx, schema.CastRequest{ScenarioID: "s1", CharacterID: "c1", Role: "detective"})
	require.NoError(t, err)
}

func TestServiceExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := stores(t)
	seed(t, src)

	data, err := src.ExportZip(ctx, "s1")
	require.NoError(t, err)
	doc, err := ImportFromZip(data)
	require.NoError(t, err)
	assert.Len(t, doc.RDB.Images, 1, "only referenced images are exported")
	assert.Equal(t, "Manor", doc.Metadata.ScenarioTitle)

	dst := stores(t)
	_, err = dst.ImportZip(ctx, data)
	require.NoError(t, err)

	again, err := dst.Export(ctx, "s1")
	require.NoError(t, err)
	again.Metadata.ExportedAt = doc.Metadata.ExportedAt
	assert.Equal(t, doc, again)
}

func TestServiceExportCarriesRelationshipEndsOutsideCast(t *testing.T) {
	ctx := context.Background()
	src := stores(t)
	seed(t, src)
	img, err := src.Relational.CreateImage(ctx, "data:image/png;base64,CCCC")
	require.NoError(t, err)
	_, err = src.Graph.CreateCharacter(ctx, schema.Character{ID: "c2", Name: "Moriarty", PrimaryImageID: &img.ID})
	require.NoError(t, err)
	rel := schema.CharacterRelationship{ID: "r1", ScenarioID: "s1", FromCharacterID: "c1", ToCharacterID: "c2", RelationshipName: "nemesis"}
	_, err = src.Graph.CreateRelationship(ctx, rel)
	require.NoError(t, err)

	data, err := src.ExportZip(ctx, "s1")
	require.NoError(t, err)

	dst := stores(t)
	doc, err := dst.ImportZip(ctx, data)
	require.NoError(t, err)
	assert.Len(t, doc.RDB.Images, 2, "the related character's image travels too")

	rels, err := dst.Graph.ListRelationships(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []schema.CharacterRelationship{rel}, rels)
	got, err := dst.Relational.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestServiceImportCompensatesOnGraphFailure(t *testing.T) {
	ctx := context.Background()
	src := stores(t)
	seed(t, src)
	doc, err := src.Export(ctx, "s1")
	require.NoError(t, err)

	dst := stores(t)
	// A scene with the same id makes the graph transaction fail.
	_, err = dst.Graph.CreateScene(ctx, persistence.SeedScenarioID, schema.Scene{ID: "a", Title: "Taken"})
	require.NoError(t, err)

	err = dst.Import(ctx, doc)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	row, err := dst.Relational.GetScenario(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, row, "relational rows are removed again")
	images, err := dst.Relational.GetImages(ctx, []string{doc.RDB.Images[0].ID})
	require.NoError(t, err)
	assert.Empty(t, images)
	g, err := dst.Graph.GetScenario(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestServiceImportRejectsExisting(t *testing.T) {
	ctx := context.Background()
	s := stores(t)
	seed(t, s)
	doc, err := s.Export(ctx, "s1")
	require.NoError(t, err)

	err = s.Import(ctx, doc)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	n, err := s.Graph.CountScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "seed plus the original")
}
