package storage

import "context"

// Keys persisted across reloads.
const (
	KeyUserID = "userId"
	KeyRole   = "role"
)

// Store is the persistent local key-value storage. Get returns
// domain.ErrNotFound for missing keys; Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
