package core

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by a Store when a key holds no value.
var ErrKeyNotFound = errors.New("key not found")

// Durable client storage keys
const (
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyProfile        = "profile"
	KeySurveyProgress = "survey_progress"
)

// Store is a durable key-value store for client state (tokens, profile, resumable snapshots).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
