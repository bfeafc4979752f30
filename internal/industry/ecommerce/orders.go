package ecommerce

import (
	"context"
	"fmt"
	"log/slog"

	"bizpulse/internal/dataprocessing"
	"bizpulse/pkg/contracts/domain"
)

// OrderSink consumes one streamed batch of orders
type OrderSink func(ctx context.Context, orders []domain.Order) error

// OrderHistoryOptions configures ProcessOrderHistory
type OrderHistoryOptions struct {
	Stream dataprocessing.StreamOptions

	// Sink receives every batch before it is counted
	Sink OrderSink

	// ExpectedTotal enables percentage progress when the order count is known
	ExpectedTotal int
	OnProgress    func(percent int)

	Logger *slog.Logger
}

// OrderTotals are the running totals over a whole order stream
type OrderTotals struct {
	TotalOrders  int                        `json:"total_orders"`
	TotalRevenue float64                    `json:"total_revenue"`
	Batches      int                        `json:"batches"`
	ByStatus     map[domain.OrderStatus]int `json:"by_status"`
}

// ProcessOrderHistory streams orders from fetch and accumulates totals. Each
// order is counted exactly once because the stream never revisits an offset.
// Totals for batches consumed before a failure are returned with the error.
func ProcessOrderHistory(ctx context.Context, fetch dataprocessing.FetchFunc[domain.Order], opts OrderHistoryOptions) (*OrderTotals, error) {
	if opts.Stream.BatchSize <= 0 {
		opts.Stream.BatchSize = dataprocessing.DefaultStreamBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	totals := &OrderTotals{ByStatus: make(map[domain.OrderStatus]int)}
	lastPercent := -1

	for batch, err := range dataprocessing.StreamBatches(ctx, fetch, opts.Stream) {
		if err != nil {
			return totals, fmt.Errorf("order history: %w", err)
		}

		if opts.Sink != nil {
			if err := opts.Sink(ctx, batch); err != nil {
				return totals, fmt.Errorf("order history: batch %d: %w", totals.Batches, err)
			}
		}

		totals.Batches++
		for _, order := range batch {
			totals.TotalOrders++
			totals.TotalRevenue += order.Total
			totals.ByStatus[order.Status]++
		}

		logger.DebugContext(ctx, "order batch processed",
			slog.Int("batch", totals.Batches),
			slog.Int("batch_size", len(batch)),
			slog.Int("total_orders", totals.TotalOrders))

		if opts.OnProgress != nil && opts.ExpectedTotal > 0 {
			percent := dataprocessing.Percent(totals.TotalOrders, opts.ExpectedTotal)
			if percent > lastPercent {
				opts.OnProgress(percent)
				lastPercent = percent
			}
		}
	}

	return totals, nil
}
