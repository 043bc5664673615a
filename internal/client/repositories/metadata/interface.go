// Package metadata stores small key/value settings of the local database:
// the last full-sync time, the session token and the unlocked group.
package metadata

import (
	"context"
	"time"
)

const (
	KeyLastSyncAt    = "last_sync_at"
	KeyAccessToken   = "access_token"
	KeyUsername      = "username"
	KeyUnlockedGroup = "unlocked_group"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
