package telemetry

import "context"

// Trace correlates the events of one conversation run. TurnID changes with
// every model call; ConversationID is fixed for the run.
type Trace struct {
	ConversationID string
	TurnID         string
}

type traceKey struct{}

// TraceFrom returns the trace carried by ctx, or the zero Trace.
func TraceFrom(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

func withTrace(ctx context.Context, t Trace) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey{}, t)
}

// WithConversation returns a child context whose trace names conversation id.
func WithConversation(ctx context.Context, id string) context.Context {
	t := TraceFrom(ctx)
	t.ConversationID = id
	return withTrace(ctx, t)
}

// WithTurnID returns a child context whose trace carries turn id, keeping
// any conversation id already present.
func WithTurnID(ctx context.Context, id string) context.Context {
	t := TraceFrom(ctx)
	t.TurnID = id
	return withTrace(ctx, t)
}

// TurnIDFromContext returns the turn ID from ctx, if present and non-empty.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	id := TraceFrom(ctx).TurnID
	return id, id != ""
}

// fill sets turn_id and conversation_id in m unless the caller set them.
func (t Trace) fill(m map[string]any) {
	if _, ok := m["turn_id"]; !ok && t.TurnID != "" {
		m["turn_id"] = t.TurnID
	}
	if _, ok := m["conversation_id"]; !ok && t.ConversationID != "" {
		m["conversation_id"] = t.ConversationID
	}
}
