package ports

import (
	"context"

	"cargo-insurance-service/internal/domain"
)

// Port: last-known-good policy projections, recorded after successful live
// reads and consulted only to annotate degraded listings when individual
// per-policy reads fail. Never a source for authoritative amounts.
type SnapshotStore interface {
	// Fetch snapshots for the given policy ids. Missing ids are absent
	// from the returned map.
	GetMany(ctx context.Context, ids []uint64) (map[uint64]domain.PolicyView, error)
	// Store or refresh snapshots for successfully read policies.
	PutMany(ctx context.Context, views []domain.PolicyView) error
}
