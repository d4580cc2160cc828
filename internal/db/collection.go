package db

import (
	"context"

	"github.com/ukydev/fleet-tracking/internal/models"
)

// SnapshotStore defines the interface for report snapshot persistence.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error
	ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error)
}

// SnapshotCursor defines the interface for snapshot cursor operations.
type SnapshotCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

var _ SnapshotStore = (*MongoSnapshotCollection)(nil)
