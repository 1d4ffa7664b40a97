// Package agent implements the stdio request/response runtime shared by all
// capability agents: a line-oriented NDJSON protocol loop, method dispatch,
// parameter normalization, and an error boundary that turns handler failures
// into structured error responses.
package agent

import (
	"context"
	"encoding/json"
)

// Method names recognized by the runtime.
const (
	MethodInitialize = "initialize"
	MethodCompute    = "compute"
)

// ErrMethodNotFound is the wire message for an unrecognized method.
const ErrMethodNotFound = "Method not found"

// ServiceCard is the static self-description of an agent capability.
// It is created once at handler construction time and never mutated by
// request handling.
type ServiceCard struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Inputs      []string  `json:"inputs"`
	CostPerOp   float64   `json:"cost_per_op"`
	Version     string    `json:"version"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Request is one decoded input line. ID is kept raw so that any JSON value
// (number, string, null, array) round-trips to the response unchanged.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     json.RawMessage `json:"id"`
}

// Response is one encoded output line. Result and Error are both always
// serialized; exactly one of them is non-null except for the initialize
// method, which always sets Result.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result"`
	Error  *string         `json:"error"`
}

// NewResultResponse builds a success response correlated to the request.
func NewResultResponse(id json.RawMessage, result any) *Response {
	return &Response{ID: id, Result: result}
}

// NewErrorResponse builds a failure response correlated to the request.
func NewErrorResponse(id json.RawMessage, msg string) *Response {
	return &Response{ID: id, Error: &msg}
}

// Handler is the capability installed into the runtime. Describe returns the
// precomputed ServiceCard and must never fail. Spec declares the positional
// parameter order and defaults used to normalize list-shaped params.
// Compute performs the single externally-facing action of the agent; every
// failure must be returned as an error, which the runtime converts into a
// Response.Error string.
type Handler interface {
	Describe() *ServiceCard
	Spec() ParamSpec
	Compute(ctx context.Context, params Values) (any, error)
}
