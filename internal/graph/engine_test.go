package graph

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := OpenMemory(logging.Discard())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	if err := e.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	return e
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	e := setupEngine(t)
	require.NoError(t, e.CreateSchema(context.Background()))
}

func TestNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)

	require.NoError(t, e.CreateNode(ctx, schema.LabelScene, "a", Props{"title": "A", "description": "", "isMasterScene": true}))

	props, err := e.NodeProps(ctx, schema.LabelScene, "a")
	require.NoError(t, err)
	assert.Equal(t, Props{"title": "A", "description": "", "isMasterScene": true}, props)

	err = e.CreateNode(ctx, schema.LabelScene, "a", Props{"title": "again"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, e.SetNode(ctx, schema.LabelScene, "a", Props{"title": "A2"}))
	props, err = e.NodeProps(ctx, schema.LabelScene, "a")
	require.NoError(t, err)
	assert.Equal(t, "A2", props["title"])

	err = e.SetNode(ctx, schema.LabelScene, "missing", Props{"title": "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = e.SetNode(ctx, schema.LabelScene, "a", Props{})
	assert.True(t, errors.Is(err, ErrNoFieldsToUpdate))

	err = e.SetNode(ctx, schema.LabelScene, "a", Props{"bogus": 1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, e.DetachDelete(ctx, schema.LabelScene, "a"))
	require.NoError(t, e.DetachDelete(ctx, schema.LabelScene, "a"))
	props, err = e.NodeProps(ctx, schema.LabelScene, "a")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestCreateRelRequiresEndpoints(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)
	require.NoError(t, e.CreateNode(ctx, schema.LabelScene, "a", Props{"title": "A"}))

	err := e.CreateRel(ctx, schema.RelNextScene, "a", "missing", nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = e.CreateRel(ctx, "NOPE", "a", "a", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDetachDeleteRemovesIncidentEdges(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, e.CreateNode(ctx, schema.LabelScene, id, Props{"title": id}))
	}
	require.NoError(t, e.CreateRel(ctx, schema.RelNextScene, "a", "b", nil))
	require.NoError(t, e.CreateRel(ctx, schema.RelNextScene, "b", "c", nil))
	require.NoError(t, e.CreateRel(ctx, schema.RelNextScene, "c", "a", nil))

	require.NoError(t, e.DetachDelete(ctx, schema.LabelScene, "b"))

	rels, err := e.Rels(ctx, schema.RelNextScene, RelMatch{})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "c", rels[0].From)
	assert.Equal(t, "a", rels[0].To)
}

func TestRelMatchEmptySetMatchesNothing(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t)
	require.NoError(t, e.CreateNode(ctx, schema.LabelScene, "a", Props{"title": "A"}))
	require.NoError(t, e.CreateRel(ctx, schema.RelNextScene, "a", "a", Props{"order": 1}))

	rels, err := e.Rels(ctx, schema.RelNextScene, RelMatch{FromIn: []string{}})
	require.NoError(t, err)
	assert.Empty(t, rels)

	rels, err = e.Rels(ctx, schema.RelNextScene, RelMatch{FromIn: []string{"a"}})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, int64(1), rels[0].Props["order"])
}

func TestCopyToCopyFromRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupEngine(t)
	require.NoError(t, src.CreateNode(ctx, schema.LabelCharacter, "c1", Props{"name": "Holmes, Sherlock", "description": "line1\nline2\r\nline3 C:\\r\\n"}))
	require.NoError(t, src.CreateNode(ctx, schema.LabelCharacter, "c2", Props{"name": "Watson", "primaryImageId": "img"}))
	require.NoError(t, src.CreateRel(ctx, schema.RelRelatesTo, "c1", "c2", Props{"id": "r1", "scenarioId": "s", "relationshipName": "friend|partner"}))

	var nodes, rels bytes.Buffer
	n, err := src.CopyTo(ctx, schema.LabelCharacter, &nodes)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = src.CopyTo(ctx, schema.RelRelatesTo, &rels)
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(nodes.String(), "id"), "no header row")
	assert.Contains(t, rels.String(), "c1|c2|")

	dst := setupEngine(t)
	// Relationships first: endpoints are not checked on bulk load.
	_, err = dst.CopyFrom(ctx, schema.RelRelatesTo, strings.NewReader(rels.String()))
	require.NoError(t, err)
	_, err = dst.CopyFrom(ctx, schema.LabelCharacter, strings.NewReader(nodes.String()))
	require.NoError(t, err)

	for _, id := range []string{"c1", "c2"} {
		want, err := src.NodeProps(ctx, schema.LabelCharacter, id)
		require.NoError(t, err)
		got, err := dst.NodeProps(ctx, schema.LabelCharacter, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	wantRels, err := src.Rels(ctx, schema.RelRelatesTo, RelMatch{})
	require.NoError(t, err)
	gotRels, err := dst.Rels(ctx, schema.RelRelatesTo, RelMatch{})
	require.NoError(t, err)
	assert.Equal(t, wantRels, gotRels)

	got, err := dst.NodeProps(ctx, schema.LabelCharacter, "c1")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\r\nline3 C:\\r\\n", got["description"], "CR and backslashes survive")
}

func TestCellEscaping(t *testing.T) {
	for _, s := range []string{"", "plain", "a\r\nb", `C:\new\r`, `trailing\`, "\r\r"} {
		assert.Equal(t, s, unescapeCell(escapeCell(s)), "%q", s)
	}
	assert.NotContains(t, escapeCell("a\r\nb"), "\r")
}

func TestCopyFromRejectsMalformedRows(t *testing.T) {
	e := setupEngine(t)
	_, err := e.CopyFrom(context.Background(), schema.LabelScene, strings.NewReader("a,A\n"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	n, err := e.Count(context.Background(), schema.LabelScene)
	require.NoError(t, err)
	assert.Zero(t, n)
}
