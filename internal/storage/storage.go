package storage

import (
	"context"

	"github.com/mselser95/triarb/pkg/types"
)

// Storage is the audit-trail sink for the pipeline: every detected chance
// and every dispatched order is recorded here, by a relay between pipeline
// stages, so a run can be reconstructed after the fact. Storage failures
// are logged by the caller and never stop an event from being forwarded.
type Storage interface {
	// StoreChance records a detected arbitrage chance.
	StoreChance(ctx context.Context, ev types.ChanceEvent) error

	// StoreOrder records an admitted order placement.
	StoreOrder(ctx context.Context, ev types.OrderEvent) error

	// Close releases any underlying resource.
	Close() error
}
