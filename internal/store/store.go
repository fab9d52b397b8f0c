package store

import (
	"context"
	"errors"

	"github.com/me/clustersim/pkg/model"
)

// ErrNotFound is returned by mutations that name a missing snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Store defines the persistence layer for engine snapshots.
type Store interface {
	// SaveSnapshot assigns snap an ID and creation time when unset and
	// persists it atomically.
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	// GetSnapshot returns nil, nil when no snapshot has the id.
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	// LatestSnapshot returns nil, nil when the store is empty.
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, opts model.ListOptions) ([]model.SnapshotInfo, int, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
