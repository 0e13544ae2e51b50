// Package history persists finished scan sessions so the dashboard can
// list, inspect, export, and delete them after the fact.
package history

import (
	"context"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// Store persists and retrieves recorded scans.
type Store interface {
	// Record upserts a finished session together with its results.
	Record(ctx context.Context, session model.ScanSession, results []model.ScanResult) error

	// List returns the recorded scans, newest first.
	List(ctx context.Context) ([]model.HistoryItem, error)

	// Get returns the full detail for one scan, or (nil, nil) when the id
	// is unknown.
	Get(ctx context.Context, id string) (*model.HistoryDetail, error)

	// Delete removes a recorded scan. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	Close() error
}
