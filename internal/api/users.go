package api

import (
	"context"
	"net/http"
)

// Identity is the logged-in user as reported by the server. The rest of the
// engine uses the ID to determine message directionality.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Gravatar string `json:"gravatar"`
}

// Whoami returns the identity attached to the current session cookie.
func (c *Client) Whoami(ctx context.Context) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/api/users/whoami", nil, nil, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}
