package storage

import "context"

// Storage is the durable key-value adapter for the persisted session
// snapshot. The snapshot lives under a single namespaced record; absence of
// the record is the normal logged-out state, not an error condition at the
// call sites (they receive models.ErrSnapshotNotFound and fall back to
// defaults).
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}
