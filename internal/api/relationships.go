package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/paulologeh/pychat/internal/chat"
)

// Friends fetches the relationship summary: accepted friends, pending
// requests, and other known users.
func (c *Client) Friends(ctx context.Context) (chat.Relationships, error) {
	var rels chat.Relationships
	if err := c.do(ctx, http.MethodGet, "/api/relationships/friends", nil, nil, &rels); err != nil {
		return chat.Relationships{}, err
	}
	return rels, nil
}

// AddFriend sends (or accepts) a friend request for username.
func (c *Client) AddFriend(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "/api/relationships/add/"+url.PathEscape(username), nil, nil, nil)
}

// RemoveFriend removes username from the friend list.
func (c *Client) RemoveFriend(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/api/relationships/delete/"+url.PathEscape(username), nil, nil, nil)
}

// BlockUser blocks username. Blocking hides the shared conversation, so the
// caller is expected to refresh afterwards.
func (c *Client) BlockUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "/api/relationships/block/"+url.PathEscape(username), nil, nil, nil)
}

// UnblockUser lifts a block on username.
func (c *Client) UnblockUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "/api/relationships/unblock/"+url.PathEscape(username), nil, nil, nil)
}
