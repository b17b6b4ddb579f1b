package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/snapbooks/internal/telemetry"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs the tool calls of one model turn.
type Dispatcher struct {
	Registry *tools.Registry

	// MaxParallel caps simultaneously running handlers; 0 means no cap.
	MaxParallel int

	Logger *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Dispatch runs every call concurrently and waits for all of them. Result i
// answers calls[i]. Failures of any kind become error results; Dispatch
// itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []memory.ToolCall) []memory.ToolResult {
	results := make([]memory.ToolResult, len(calls))
	var g errgroup.Group
	if d.MaxParallel > 0 {
		g.SetLimit(d.MaxParallel)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.execTool(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) execTool(ctx context.Context, call memory.ToolCall) (res memory.ToolResult) {
	res = memory.ToolResult{ID: call.ID, Name: call.Name}
	turnID, _ := telemetry.TurnIDFromContext(ctx)

	emit := func(durationMs int64, inputSize int, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   call.Name,
			"duration_ms": durationMs,
			"input_size":  inputSize,
			"output_size": outputSize,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		telemetry.EmitContext(ctx, "tool_exec", fields)
	}

	start := time.Now()
	input, err := encodeArgs(call.Args)
	if err != nil {
		res.Status, res.Response = memory.StatusError, fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err)
		emit(time.Since(start).Milliseconds(), 0, 0, "invalid arguments")
		return res
	}
	inSize := len(input)

	def, ok := d.Registry.Lookup(call.Name)
	if !ok {
		res.Status, res.Response = memory.StatusError, fmt.Sprintf("Tool '%s' not found.", call.Name)
		d.logger().Warn("tool_not_found", "tool", call.Name, "turn_id", turnID)
		emit(time.Since(start).Milliseconds(), inSize, 0, "tool not found")
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Status, res.Response = memory.StatusError, fmt.Sprintf("Error in %s: panic: %v", call.Name, p)
			d.logger().Error("tool_panic", "tool", call.Name, "turn_id", turnID, "panic", p)
			emit(time.Since(start).Milliseconds(), inSize, 0, "panic")
		}
	}()

	out, err := def.Function(ctx, input)
	if err != nil {
		var argErr *tools.ArgumentError
		if errors.As(err, &argErr) {
			res.Status, res.Response = memory.StatusError, fmt.Sprintf("Invalid arguments for %s: %v", call.Name, argErr.Err)
			emit(time.Since(start).Milliseconds(), inSize, 0, "invalid arguments")
		} else {
			res.Status, res.Response = memory.StatusError, fmt.Sprintf("Error in %s: %v", call.Name, err)
			// Generic error string keeps raw payloads out of telemetry.
			emit(time.Since(start).Milliseconds(), inSize, 0, "tool error")
		}
		d.logger().Warn("tool_failed", "tool", call.Name, "turn_id", turnID, "error", err)
		return res
	}
	res.Status, res.Response = memory.StatusSuccess, out
	emit(time.Since(start).Milliseconds(), inSize, len(out), "")
	d.logger().Debug("tool_executed", "tool", call.Name, "turn_id", turnID, "output_size", len(out))
	return res
}

func encodeArgs(args map[string]any) (json.RawMessage, error) {
	if args == nil {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(args)
}
