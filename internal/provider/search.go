package provider

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const searchSystemPrompt = "You are a search assistant for an Indian accounting/invoicing app. " +
	"Search for the requested information and return a concise, factual answer. " +
	"Focus on current market rates, GST rates, HSN codes, and business information relevant to Indian SMBs."

// GeminiSearcher answers web_search queries with a grounded Gemini call.
type GeminiSearcher struct {
	Gemini *Gemini
	Model  string
	Logger *slog.Logger
}

func (s *GeminiSearcher) Search(ctx context.Context, query string) (string, error) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	model := s.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	log.Info("web_search_start", "query", query)

	resp, err := s.Gemini.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(query, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(searchSystemPrompt, genai.RoleUser),
			Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		},
	)
	if err != nil {
		log.Warn("web_search_error", "query", query, "error", err)
		return "", fmt.Errorf("search failed: %w", err)
	}
	text := resp.Text()
	log.Info("web_search_complete", "query", query, "response_length", len(text))
	return text, nil
}
