package nutrition

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("nutrition profile not found")
	ErrInvalid  = errors.New("invalid nutrition profile")
)

type Store interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	// UpsertProfile creates or updates the single profile of userID.
	UpsertProfile(ctx context.Context, userID string, in ProfileInput) (Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
}
