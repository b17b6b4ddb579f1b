package telemetry

import (
	"context"

	"github.com/petasbytes/snapbooks/internal/metrics"
	"github.com/petasbytes/snapbooks/memory"
)

// EmitInboundFeatures records the shape of an inbound message: counts and
// sizes only, never its text or attachment bytes.
func EmitInboundFeatures(ctx context.Context, msg memory.Message) {
	if !ObserveEnabled() {
		return
	}
	f := metrics.CountMessage(msg)
	EmitContext(ctx, "inbound_features", map[string]any{
		"features_version": "2",
		"text": map[string]any{
			"bytes": f.Text.Bytes,
			"runes": f.Text.Runes,
			"words": f.Text.Words,
			"lines": f.Text.Lines,
		},
		"attachments": map[string]any{
			"count":      f.Attachments,
			"bytes":      f.AttachmentBytes,
			"mime_types": f.MIMETypes,
		},
	})
}
