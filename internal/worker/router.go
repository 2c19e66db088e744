package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// HandlerFunc handles one raw payload and returns the encoded result.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Router maps message types to handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{handlers: make(map[string]HandlerFunc), logger: logging.Or(logger)}
}

// Handle registers fn for msgType. The payload is parsed into P and the
// result validated before it is encoded, so nothing crosses the boundary
// unchecked.
func Handle[P, R any](r *Router, msgType string, fn func(ctx context.Context, in P) (R, error)) {
	r.HandleRaw(msgType, func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		in, err := schema.Parse[P](payload)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		if err := schema.Validate(out); err != nil {
			return nil, fmt.Errorf("%s: invalid result: %w", msgType, err)
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, apperr.Structural(msgType+": encode result", err)
		}
		return data, nil
	})
}

// HandleRaw registers an untyped handler.
func (r *Router) HandleRaw(msgType string, fn HandlerFunc) {
	if _, dup := r.handlers[msgType]; dup {
		panic("worker: duplicate handler for " + msgType)
	}
	r.handlers[msgType] = fn
}

// Types lists the registered message types.
func (r *Router) Types() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for req. Handler errors and panics become
// error responses.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panic", "type", req.Type, "id", req.ID, "panic", p, "stack", string(debug.Stack()))
			resp = errorResponse(req, apperr.New(apperr.KindInternal, fmt.Sprintf("%s: panic: %v", req.Type, p), nil))
		}
	}()

	h, ok := r.handlers[req.Type]
	if !ok {
		return errorResponse(req, apperr.Validation("unknown message type: "+req.Type, nil))
	}
	data, err := h(ctx, req.Payload)
	if err != nil {
		r.logger.Debug("handler failed", "type", req.Type, "id", req.ID, "error", err)
		return errorResponse(req, err)
	}
	return successResponse(req, data)
}

// DispatchJSON decodes one request envelope, dispatches it and encodes the
// response. An undecodable envelope yields a structural error response
// with ID 0.
func (r *Router) DispatchJSON(ctx context.Context, data []byte) []byte {
	var req Request
	var resp Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = errorResponse(req, apperr.Structural("invalid request envelope", err))
	} else {
		resp = r.Dispatch(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(errorResponse(req, apperr.Structural("encode response", err)))
	}
	return out
}
