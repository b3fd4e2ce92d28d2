// Package telegram provides a simple client for sending alerts via the
// Telegram Bot API. It is used as the chat channel of the notification
// gateway.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Client represents a Telegram client used to send alerts.
type Client struct {
	token   string       // bot token for authentication
	apiBase string       // overridable for tests
	client  *http.Client // HTTP client used to make requests
}

// NewClient creates a new Telegram Client instance with the given bot token.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBase creates a client pointed at a custom API base URL.
func NewClientWithBase(token, apiBase string) *Client {
	c := NewClient(token)
	c.apiBase = apiBase

	return c
}

// sendMessageRequest represents the payload for the Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID string `json:"chat_id"` // chat id to send message to
	Text   string `json:"text"`    // message text
}

// Send posts an alert to the given chat id. The subject, when present, is
// prepended to the message body since Telegram has no subject field.
func (c *Client) Send(to, subject, msg string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)

	text := msg
	if subject != "" {
		text = subject + "\n\n" + msg
	}

	reqBody := sendMessageRequest{
		ChatID: to,
		Text:   text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
