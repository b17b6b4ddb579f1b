package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/petasbytes/snapbooks/internal/telemetry"
	"github.com/petasbytes/snapbooks/memory"
)

// Ledger receives every record the Accountant produces.
type Ledger interface {
	Record(ctx context.Context, conversationID string, rec memory.UsageRecord) error
}

// Accountant charges model calls against a conversation.
type Accountant struct {
	Pricing Pricing
	Ledger  Ledger // optional
	Logger  *slog.Logger
	Now     func() time.Time
}

func (a *Accountant) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Record computes the usage of one model call, appends it to conv.Usage
// and adds its cost to conv.Cost. The returned record is the one appended.
// Ledger failures are logged and otherwise ignored.
func (a *Accountant) Record(ctx context.Context, conv *memory.Conversation, model string, raw Raw) memory.UsageRecord {
	log := a.logger()

	rates, ok := a.Pricing.Lookup(model)
	if !ok {
		log.Warn("usage_unpriced_model", "model", model, "conversation_id", conv.ID)
	}
	rec := Compute(raw, rates)
	rec.Call = len(conv.Usage) + 1
	rec.Model = model
	rec.At = time.Now().UTC()
	if a.Now != nil {
		rec.At = a.Now().UTC()
	}

	conv.Usage = append(conv.Usage, rec)
	conv.Cost += rec.Cost

	if rec.ThinkingClamped {
		log.Warn("usage_anomaly",
			"conversation_id", conv.ID,
			"model", model,
			"call", rec.Call,
			"prompt", raw.Prompt,
			"candidates", raw.Candidates,
			"total", raw.Total,
		)
		telemetry.EmitContext(ctx, "usage_anomaly", map[string]any{
			"conversation_id": conv.ID,
			"model":           model,
			"call":            rec.Call,
			"prompt":          raw.Prompt,
			"candidates":      raw.Candidates,
			"total":           raw.Total,
		})
	}

	if a.Ledger != nil {
		if err := a.Ledger.Record(ctx, conv.ID, rec); err != nil {
			log.Warn("usage_ledger_write_failed", "conversation_id", conv.ID, "call", rec.Call, "error", err)
		}
	}

	log.Debug("usage_recorded",
		"conversation_id", conv.ID,
		"model", model,
		"call", rec.Call,
		"input_tokens", rec.InputTokens,
		"output_tokens", rec.OutputTokens,
		"thinking_tokens", rec.ThinkingTokens,
		"cost", rec.Cost,
	)
	return rec
}
