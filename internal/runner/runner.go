package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/snapbooks/internal/telemetry"
	"github.com/petasbytes/snapbooks/memory"
)

// Runner binds the loop to a conversation store: one Handle call is one
// inbound message processed to completion.
type Runner struct {
	Store  memory.Store
	Loop   *Loop
	Logger *slog.Logger
}

func New(store memory.Store, loop *Loop, logger *slog.Logger) *Runner {
	return &Runner{Store: store, Loop: loop, Logger: logger}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Handle loads conversation convID (creating it when missing), appends msg,
// runs the loop and saves the result. Callers serialise Handle per convID.
// The returned error is only ever a storage failure; model and tool failures
// are reported in the Outcome and the transcript.
func (r *Runner) Handle(ctx context.Context, convID string, msg memory.Message) (*memory.Conversation, Outcome, error) {
	start := time.Now()
	conv, err := r.Store.Load(ctx, convID)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("load conversation %s: %w", convID, err)
	}
	if conv == nil {
		conv = memory.NewConversation(convID)
		r.logger().Info("conversation_created", "conversation_id", convID)
	}

	ctx = telemetry.WithConversation(ctx, conv.ID)
	msg.Role = memory.RoleUser
	conv.Append(msg)
	telemetry.EmitInboundFeatures(ctx, msg)

	out := r.Loop.Run(ctx, conv)

	if err := r.Store.Save(ctx, conv); err != nil {
		return conv, out, fmt.Errorf("save conversation %s: %w", convID, err)
	}
	r.logger().Info("agent_complete",
		"conversation_id", conv.ID,
		"state", out.State.String(),
		"api_calls", out.Calls,
		"cost", out.Cost,
		"total_cost", conv.Cost,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return conv, out, nil
}
