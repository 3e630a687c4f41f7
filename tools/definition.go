package tools

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ToolDefinition is one tool advertised to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// GenerateSchema reflects T into the input schema format the Messages API expects.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

const (
	ErrCodeInvalidInput      = "ERR_INVALID_INPUT"
	ErrCodeUpstream          = "ERR_UPSTREAM"
	ErrCodeUpstreamMalformed = "ERR_UPSTREAM_MALFORMED"
	ErrCodeNotFound          = "ERR_NOT_FOUND"
	ErrCodeJobRejected       = "ERR_JOB_REJECTED"
)

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func (e ToolError) Unwrap() error { return e.Err }

// LoopControl is handed to tools through the context for one model step.
// StopSuccess tells the hosting loop the turn is complete and the model need
// not be called again with this step's tool results.
type LoopControl struct {
	stopped atomic.Bool
}

func (l *LoopControl) StopSuccess() { l.stopped.Store(true) }

func (l *LoopControl) Stopped() bool { return l.stopped.Load() }

type loopControlKey struct{}

// WithLoopControl returns a child context carrying l.
func WithLoopControl(ctx context.Context, l *LoopControl) context.Context {
	return context.WithValue(ctx, loopControlKey{}, l)
}

// LoopControlFromContext returns the LoopControl for the current step, if any.
func LoopControlFromContext(ctx context.Context) (*LoopControl, bool) {
	l, ok := ctx.Value(loopControlKey{}).(*LoopControl)
	return l, ok && l != nil
}
