package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/snapbooks/internal/provider"
	"github.com/petasbytes/snapbooks/internal/telemetry"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

// DefaultMaxCalls bounds the model calls of one run.
const DefaultMaxCalls = 10

const (
	// BudgetNotice is appended when a run hits MaxCalls.
	BudgetNotice = "Maximum processing steps reached. Please try again."
	// FailureNotice is appended when the model call fails or replies with nothing usable.
	FailureNotice = "Could not process that. Please try with a clearer photo."
)

// Loop drives the model until it answers without tool calls or a bound is hit.
type Loop struct {
	Model   provider.Model
	ModelID string
	System  string

	Registry   *tools.Registry
	Dispatcher *Dispatcher

	// Accountant is optional; without it no usage is recorded.
	Accountant *usage.Accountant

	// MaxCalls below 1 means DefaultMaxCalls.
	MaxCalls int

	Logger *slog.Logger
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loop) maxCalls() int {
	if l.MaxCalls < 1 {
		return DefaultMaxCalls
	}
	return l.MaxCalls
}

func (l *Loop) dispatcher() *Dispatcher {
	if l.Dispatcher != nil {
		return l.Dispatcher
	}
	return &Dispatcher{Registry: l.Registry, Logger: l.Logger}
}

// Run advances conv until it settles, the call budget runs out or the model
// fails. Every outcome is reported through the returned Outcome and the
// messages appended to conv; Run never returns an error.
func (l *Loop) Run(ctx context.Context, conv *memory.Conversation) Outcome {
	ctx = telemetry.WithConversation(ctx, conv.ID)
	startCost := conv.Cost
	out := Outcome{State: AwaitingModel}
	finish := func(s State) Outcome {
		out.State = s
		out.Cost = conv.Cost - startCost
		telemetry.EmitContext(ctx, "loop_end", map[string]any{
			"state": s.String(),
			"calls": out.Calls,
			"cost":  out.Cost,
		})
		l.logger().Debug("loop_end", "conversation_id", conv.ID, "state", s.String(), "calls", out.Calls)
		return out
	}

	var descriptors []tools.Descriptor
	if l.Registry != nil {
		descriptors = l.Registry.Descriptors()
	}

	for {
		last, ok := conv.Last()
		if ok && last.Role == memory.RoleModel {
			if last.HasToolCalls() {
				return finish(RespondedWithTools)
			}
			return finish(RespondedFinal)
		}

		if out.Calls >= l.maxCalls() {
			conv.Append(memory.NewModelText(BudgetNotice))
			l.logger().Warn("loop_budget_exhausted", "conversation_id", conv.ID, "calls", out.Calls)
			return finish(BudgetExhausted)
		}

		turnCtx := telemetry.WithTurnID(ctx, "turn-"+uuid.NewString())
		out.Calls++
		resp, err := l.call(turnCtx, conv, descriptors)
		if err != nil {
			if errors.Is(err, provider.ErrEmptyResponse) {
				l.logger().Warn("model_empty_response", "conversation_id", conv.ID, "call", out.Calls)
			} else {
				l.logger().Error("model_call_failed", "conversation_id", conv.ID, "call", out.Calls, "error", err)
			}
			conv.Append(memory.NewModelText(FailureNotice))
			return finish(ModelCallFailed)
		}

		if resp.Usage != nil && l.Accountant != nil {
			l.Accountant.Record(turnCtx, conv, l.ModelID, *resp.Usage)
		}

		reply := resp.Message
		reply.Role = memory.RoleModel
		conv.Append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			continue
		}
		results := l.dispatcher().Dispatch(turnCtx, calls)
		parts := make([]memory.Part, len(results))
		for i, r := range results {
			parts[i] = memory.ToolResultPart(r)
		}
		conv.Append(memory.Message{Role: memory.RoleUser, Parts: parts})
	}
}

func (l *Loop) call(ctx context.Context, conv *memory.Conversation, descriptors []tools.Descriptor) (*provider.Response, error) {
	start := time.Now()
	resp, err := l.Model.CallModel(ctx, provider.Request{
		Model:    l.ModelID,
		System:   l.System,
		Messages: conv.Messages,
		Tools:    descriptors,
	})

	fields := map[string]any{
		"model":       l.ModelID,
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = errorClass(err)
	} else if resp != nil && resp.Usage != nil {
		fields["input_tokens"] = resp.Usage.Prompt
		fields["output_tokens"] = resp.Usage.Candidates
	}
	telemetry.EmitContext(ctx, "model_call", fields)

	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	if resp == nil || len(resp.Message.Parts) == 0 {
		return nil, fmt.Errorf("model call: %w", provider.ErrEmptyResponse)
	}
	return resp, nil
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, provider.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "transport"
	}
}
