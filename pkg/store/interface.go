package store

import (
	"context"
)

// Store is the scoped, string-keyed storage orchestrator snapshots are
// persisted to. Absence is reported via the bool, never as an error.
//
// Writes are last-write-wins; only one session is assumed active per scope.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	Close() error
}
