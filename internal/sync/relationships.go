package sync

import (
	"context"
	"fmt"

	"github.com/paulologeh/pychat/internal/chat"
)

// AddFriend sends or accepts a friend request. The server pushes a
// relationship event to both parties, which refreshes the local summary.
func (e *Engine) AddFriend(ctx context.Context, username string) error {
	if err := e.fetcher.AddFriend(ctx, username); err != nil {
		e.surface("toast", err)
		return fmt.Errorf("add friend: %w", err)
	}
	return nil
}

// RemoveFriend removes username from the friend list.
func (e *Engine) RemoveFriend(ctx context.Context, username string) error {
	if err := e.fetcher.RemoveFriend(ctx, username); err != nil {
		e.surface("toast", err)
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

// BlockUser blocks username. Blocking changes conversation visibility, so
// the whole collection is silently refetched afterwards rather than patched
// locally.
func (e *Engine) BlockUser(ctx context.Context, username string) error {
	if err := e.fetcher.BlockUser(ctx, username); err != nil {
		e.surface("toast", err)
		return fmt.Errorf("block user: %w", err)
	}
	e.RefreshSilently(ctx)
	return nil
}

// UnblockUser lifts a block on username.
func (e *Engine) UnblockUser(ctx context.Context, username string) error {
	if err := e.fetcher.UnblockUser(ctx, username); err != nil {
		e.surface("toast", err)
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}

// FetchProfile loads the full profile for username through the foreground
// error path: a failure is surfaced as a blocking error.
func (e *Engine) FetchProfile(ctx context.Context, username string) (*chat.Profile, error) {
	profile, err := e.fetcher.SearchUser(ctx, username)
	if err != nil {
		e.surface("modal", err)
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return profile, nil
}
