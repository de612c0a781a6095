package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/nomadlaws/legalbot/internal/port"
)

// maxEmbedBytes is the upstream payload budget for a single embedding
// request. Longer inputs are truncated at a rune boundary before
// submission.
const maxEmbedBytes = 8000

// GeminiEndpointConfig holds the configuration for the Generative
// Language API.
type GeminiEndpointConfig struct {
	BaseURL    string // e.g. https://generativelanguage.googleapis.com/v1beta
	EmbedModel string // e.g. text-multilingual-embedding-002
	ChatModel  string // e.g. gemini-1.5-pro
	APIKey     string
}

// GeminiProvider implements port.Embedder and port.Generator using the
// Google Generative Language REST API.
type GeminiProvider struct {
	cfg        GeminiEndpointConfig
	httpClient *http.Client
}

// NewGeminiProvider creates a Gemini-backed embedding and generation
// provider.
func NewGeminiProvider(cfg GeminiEndpointConfig) *GeminiProvider {
	return &GeminiProvider{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ModelName returns the embedding model identifier.
func (g *GeminiProvider) ModelName() string {
	return g.cfg.EmbedModel
}

// Embed generates a vector embedding for the given text. The title is
// attached only for document-intent requests; query embeddings are
// unconditioned.
func (g *GeminiProvider) Embed(ctx context.Context, text string, intent port.EmbedIntent, title string) ([]float32, error) {
	payload := map[string]interface{}{
		"model": "models/" + g.cfg.EmbedModel,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": truncateBytes(text, maxEmbedBytes)}},
		},
		"taskType": string(intent),
	}
	if intent == port.IntentDocument && title != "" {
		payload["title"] = title
	}

	body, err := g.post(ctx, fmt.Sprintf("/models/%s:embedContent", g.cfg.EmbedModel), payload)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	var resp struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gemini embed decode: %w", err)
	}

	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: %w", port.ErrEmptyEmbedding)
	}

	return resp.Embedding.Values, nil
}

// Generate sends a complete prompt and returns the first candidate's text.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, err := g.post(ctx, fmt.Sprintf("/models/%s:generateContent", g.cfg.ChatModel), payload)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gemini generate decode: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate: empty response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// post is a helper for POST requests to the Generative Language API.
func (g *GeminiProvider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// truncateBytes cuts s to at most max bytes without splitting a UTF-8
// rune, so truncated multi-byte text stays valid.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
