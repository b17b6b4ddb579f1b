// Package provider adapts generative model SDKs to a single call shape.
//
// Each provider maps the provider-neutral transcript (memory.Message) and the
// resolved tool descriptors onto its SDK, and maps the reply and its token
// usage back. Providers:
//   - Gemini (google.golang.org/genai), the default.
//   - Anthropic (anthropic-sdk-go).
//   - OpenAI Chat Completions (openai-go).
//
// Router picks a provider by model-id prefix and WithRetry adds bounded
// exponential backoff around any Model.
package provider
