package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Update is an inbound Telegram webhook payload, reduced to the fields
// the bot consumes.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// WebhookInfo describes the currently registered webhook.
type WebhookInfo struct {
	URL              string `json:"url"`
	PendingUpdates   int    `json:"pending_update_count"`
	LastErrorDate    int64  `json:"last_error_date,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Bot is a minimal Telegram Bot API client.
type Bot struct {
	baseURL    string // e.g. https://api.telegram.org
	token      string
	httpClient *http.Client
}

// NewBot creates a Telegram Bot API client.
func NewBot(baseURL, token string) *Bot {
	return &Bot{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// SendMessage sends a text reply to the given chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if _, err := b.post(ctx, "sendMessage", payload); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	return nil
}

// SetWebhook registers the given URL for update delivery.
func (b *Bot) SetWebhook(ctx context.Context, url string) error {
	payload := map[string]interface{}{"url": url}
	if _, err := b.post(ctx, "setWebhook", payload); err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	return nil
}

// GetWebhookInfo returns the registered webhook state for health reporting.
func (b *Bot) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	body, err := b.post(ctx, "getWebhookInfo", map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("telegram webhook info: %w", err)
	}

	var resp struct {
		OK     bool        `json:"ok"`
		Result WebhookInfo `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("telegram webhook info decode: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram webhook info: not ok")
	}
	return &resp.Result, nil
}

// post is a helper for Bot API method calls (token is part of the path).
func (b *Bot) post(ctx context.Context, method string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bot API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
