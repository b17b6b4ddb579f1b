// Package usage turns provider token counts into per-call usage records
// and running conversation cost, and keeps an append-only SQLite ledger
// of those records for reporting.
package usage

import (
	"sort"
	"strings"

	"github.com/petasbytes/snapbooks/memory"
)

// Raw is the token accounting a provider reported for one model call.
// Total includes any reasoning tokens the provider does not count as
// candidates.
type Raw struct {
	Prompt     int64
	Candidates int64
	Total      int64
	Cached     int64
}

// Rates is the USD price per million tokens for one model.
type Rates struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// Pricing maps model ids, or model id prefixes, to rates.
type Pricing map[string]Rates

// DefaultPricing covers the models the assistant ships configured for.
func DefaultPricing() Pricing {
	return Pricing{
		"gemini-3-flash-preview": {InputPerMillion: 0.50, OutputPerMillion: 3.00},
		"gemini-2.5-flash":       {InputPerMillion: 0.30, OutputPerMillion: 2.50},
		"gemini-2.5-pro":         {InputPerMillion: 1.25, OutputPerMillion: 10.00},
		"claude-sonnet-4":        {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-haiku-4":         {InputPerMillion: 1.00, OutputPerMillion: 5.00},
		"gpt-4.1":                {InputPerMillion: 2.00, OutputPerMillion: 8.00},
		"gpt-4.1-mini":           {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	}
}

// Lookup returns the rates for model: an exact entry first, then the
// longest entry that is a prefix of model.
func (p Pricing) Lookup(model string) (Rates, bool) {
	if r, ok := p[model]; ok {
		return r, true
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		if k != "" && strings.HasPrefix(model, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Rates{}, false
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return p[keys[0]], true
}

// Compute derives the usage record for one call. Thinking tokens are
// whatever the total holds beyond prompt and candidates, floored at zero;
// ThinkingClamped marks a floored figure. Call, Model and At are left for
// the caller.
func Compute(raw Raw, rates Rates) memory.UsageRecord {
	thinking := raw.Total - raw.Prompt - raw.Candidates
	clamped := thinking < 0
	if clamped {
		thinking = 0
	}
	charged := raw.Candidates + thinking
	billable := max(0, raw.Prompt-raw.Cached)

	cost := float64(billable)/1_000_000.0*rates.InputPerMillion +
		float64(charged)/1_000_000.0*rates.OutputPerMillion

	return memory.UsageRecord{
		InputTokens:     raw.Prompt,
		CachedTokens:    raw.Cached,
		ThinkingTokens:  thinking,
		OutputTokens:    raw.Candidates,
		Cost:            cost,
		ThinkingClamped: clamped,
	}
}
