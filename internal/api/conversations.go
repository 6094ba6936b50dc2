package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulologeh/pychat/internal/chat"
)

// AllConversations fetches every conversation visible to the current user,
// each with its most recent page of messages.
func (c *Client) AllConversations(ctx context.Context) ([]*chat.Conversation, error) {
	var convs []*chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Conversation fetches a single conversation. limit caps the number of
// messages; before restricts to messages strictly older than the given
// instant. Zero values mean unbounded. Returns (nil, nil) when the server
// responds with an empty body, e.g. when visibility was revoked between a
// push and this fetch.
func (c *Client) Conversation(ctx context.Context, id string, limit int, before time.Time) (*chat.Conversation, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if !before.IsZero() {
		query.Set("timestamp", before.UTC().Format(time.RFC3339Nano))
	}

	var conv chat.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), query, nil, &conv); err != nil {
		return nil, err
	}
	if !conv.Persisted() && len(conv.Messages) == 0 {
		return nil, nil
	}
	return &conv, nil
}

// SendMessage posts a message to an existing conversation and returns the
// persisted message with its server-assigned ID.
func (c *Client) SendMessage(ctx context.Context, conversationID, body string) (*chat.Message, error) {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	var msg chat.Message
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(conversationID), nil, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateConversation opens a conversation with recipientID by sending its
// first message, returning the persisted conversation.
func (c *Client) CreateConversation(ctx context.Context, recipientID int, messageBody string) (*chat.Conversation, error) {
	payload := struct {
		RecipientID int    `json:"recipientId"`
		MessageBody string `json:"messageBody"`
	}{RecipientID: recipientID, MessageBody: messageBody}

	var conv chat.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", nil, payload, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation on the server.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil, nil)
}

// ReadMessages acknowledges the given message IDs as read.
func (c *Client) ReadMessages(ctx context.Context, messageIDs []string) error {
	payload := struct {
		IDs []string `json:"ids"`
	}{IDs: messageIDs}
	return c.do(ctx, http.MethodPost, "/api/conversations/messages/read", nil, payload, nil)
}
