// Package worker is the message bus between the application and the two
// store workers. A worker owns one store and handles one envelope at a
// time; the client-side Bus correlates responses with requests.
package worker

import (
	"encoding/json"
	"strings"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
)

// Request is the envelope sent to a worker.
type Request struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope a worker sends back. A non-empty Error marks a
// failure whatever the Type.
type Response struct {
	ID           int64           `json:"id"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data,omitempty"`
	Success      bool            `json:"success,omitempty"`
	Error        string          `json:"error,omitempty"`
	OriginalType string          `json:"originalType,omitempty"`
}

const errorTypePrefix = "error:"

func successResponse(req Request, data json.RawMessage) Response {
	return Response{ID: req.ID, Type: req.Type, Data: data, Success: true}
}

// errorResponse carries the error kind in Type so the client can restore
// it.
func errorResponse(req Request, err error) Response {
	return Response{
		ID:           req.ID,
		Type:         errorTypePrefix + string(apperr.KindOf(err)),
		Error:        err.Error(),
		OriginalType: req.Type,
	}
}

// RemoteError is a failure reported by a worker.
type RemoteError struct {
	Type         string
	OriginalType string
	Message      string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Kind returns the error kind carried in Type.
func (e *RemoteError) Kind() apperr.Kind {
	return apperr.ParseKind(strings.TrimPrefix(e.Type, errorTypePrefix))
}

// Unwrap lets apperr.Is classify remote errors.
func (e *RemoteError) Unwrap() error {
	return apperr.New(e.Kind(), e.Message, nil)
}
