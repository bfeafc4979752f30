package synthetic

import (
	"context"
	"sync/atomic"
	"time"

	"bizpulse/internal/dataprocessing"
	"bizpulse/pkg/contracts/domain"
)

// OrderRepository is an in-memory paginated order store that stands in for a
// remote repository when streaming order history.
type OrderRepository struct {
	orders  []domain.Order
	latency time.Duration
	fetches atomic.Int64
}

// NewOrderRepository serves orders page by page. A non-zero latency is slept
// on every fetch to mimic a remote call.
func NewOrderRepository(orders []domain.Order, latency time.Duration) *OrderRepository {
	return &OrderRepository{orders: orders, latency: latency}
}

// Fetch returns up to limit orders starting at offset
func (r *OrderRepository) Fetch(ctx context.Context, offset, limit int) (dataprocessing.StreamBatch[domain.Order], error) {
	r.fetches.Add(1)
	if r.latency > 0 {
		timer := time.NewTimer(r.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return dataprocessing.StreamBatch[domain.Order]{}, ctx.Err()
		case <-timer.C:
		}
	}
	return dataprocessing.FetchFromSlice(r.orders)(ctx, offset, limit)
}

// Len is the number of stored orders
func (r *OrderRepository) Len() int {
	return len(r.orders)
}

// Fetches is the number of Fetch calls served so far
func (r *OrderRepository) Fetches() int {
	return int(r.fetches.Load())
}
