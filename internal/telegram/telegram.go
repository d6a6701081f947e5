// Package telegram holds the inbound webhook payload types and the
// outbound Bot API client.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Update is the subset of a Bot API webhook payload the assistant reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Sender delivers a reply to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Client sends messages through the Telegram Bot API.
type Client struct {
	http  *resty.Client
	token string
}

// NewClient builds a Bot API client for the given bot token.
func NewClient(token string) *Client {
	http := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(10 * time.Second).
		SetRetryCount(1)
	return &Client{http: http, token: token}
}

// Send posts text to chatID via sendMessage.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"chat_id": chatID, "text": text}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", c.token))
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), result.Description)
	}
	return nil
}

var _ Sender = (*Client)(nil)
