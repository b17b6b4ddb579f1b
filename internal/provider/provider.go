package provider

import (
	"context"
	"errors"

	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

// ErrEmptyResponse is returned when the model replied without any usable
// content: no candidate, no content or no parts.
var ErrEmptyResponse = errors.New("provider: empty model response")

// Request is one model call: the full transcript plus the advertised tools.
type Request struct {
	Model    string
	System   string
	Messages []memory.Message
	Tools    []tools.Descriptor
}

// Response is the model's reply. Usage is nil when the provider reported
// no token counts.
type Response struct {
	Message memory.Message
	Usage   *usage.Raw
}

// Model performs a single, non-streaming model call.
type Model interface {
	CallModel(ctx context.Context, req Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (*Response, error)

func (f ModelFunc) CallModel(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
