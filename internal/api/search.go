package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/paulologeh/pychat/internal/chat"
)

// SearchUsers returns users matching term.
func (c *Client) SearchUsers(ctx context.Context, term string) ([]chat.User, error) {
	query := url.Values{}
	query.Set("term", term)

	var result struct {
		Users struct {
			Results []chat.User `json:"results"`
		} `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/search", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Users.Results, nil
}

// SearchUser fetches the full profile for username.
func (c *Client) SearchUser(ctx context.Context, username string) (*chat.Profile, error) {
	var profile chat.Profile
	if err := c.do(ctx, http.MethodGet, "/api/search/user/"+url.PathEscape(username), nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
