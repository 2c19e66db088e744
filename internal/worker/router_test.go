package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
)

func TestDispatchJSON(t *testing.T) {
	r := NewRouter(logging.Discard())
	r.HandleRaw("echo", func(_ context.Context, p json.RawMessage) (json.RawMessage, error) {
		return p, nil
	})
	ctx := context.Background()

	var resp Response
	require.NoError(t, json.Unmarshal(r.DispatchJSON(ctx, []byte(`{"id":7,"type":"echo","payload":{"a":1}}`)), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.ID)
	assert.JSONEq(t, `{"a":1}`, string(resp.Data))

	resp = Response{}
	require.NoError(t, json.Unmarshal(r.DispatchJSON(ctx, []byte(`{not json`)), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "error:structural", resp.Type)
	assert.Contains(t, resp.Error, "invalid request envelope")
}

func TestRegisteredTypesAreSorted(t *testing.T) {
	r := NewRouter(nil)
	noop := func(context.Context, json.RawMessage) (json.RawMessage, error) { return nil, nil }
	r.HandleRaw("b", noop)
	r.HandleRaw("a", noop)
	assert.Equal(t, []string{"a", "b"}, r.Types())
	assert.Panics(t, func() { r.HandleRaw("a", noop) })
}
