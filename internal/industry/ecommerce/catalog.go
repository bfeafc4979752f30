package ecommerce

import (
	"context"
	"fmt"
	"sync"

	"bizpulse/internal/dataprocessing"
	"bizpulse/internal/industry"
	"bizpulse/pkg/contracts/domain"
)

// DefaultCatalogChunkSize is larger than other handlers since catalog records are light
const DefaultCatalogChunkSize = 1000

var validate = industry.NewValidator()

// ProductSink persists or otherwise consumes a processed chunk of products
type ProductSink func(ctx context.Context, products []domain.Product) error

// CatalogSummary aggregates what a catalog run processed
type CatalogSummary struct {
	TotalProducts    int   `json:"total_products"`
	TotalVariants    int   `json:"total_variants"`
	VariantsPerChunk []int `json:"variants_per_chunk"`

	mu sync.Mutex
}

func (s *CatalogSummary) record(chunk dataprocessing.Chunk[domain.Product]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.VariantsPerChunk == nil {
		s.VariantsPerChunk = make([]int, chunk.TotalChunks)
	}
	variants := CountVariants(chunk.Items)
	s.VariantsPerChunk[chunk.Index] = variants
	s.TotalVariants += variants
	s.TotalProducts += len(chunk.Items)
}

// CountVariants returns the number of variants across products
func CountVariants(products []domain.Product) int {
	total := 0
	for _, p := range products {
		total += len(p.Variants)
	}
	return total
}

// ValidateProducts checks ids, names and non-negative prices and inventories,
// including every variant.
func ValidateProducts(products []domain.Product) dataprocessing.ValidationResult {
	var errors []string
	for i, p := range products {
		label := industry.RecordLabel("product", p.ID, i)
		errors = append(errors, industry.Violations(validate, label, p)...)
	}
	return dataprocessing.NewValidationResult(errors)
}

// ProcessProductCatalog validates the catalog and hands it to sink in chunks of
// DefaultCatalogChunkSize, counting variants per chunk along the way.
func ProcessProductCatalog(
	ctx context.Context,
	src dataprocessing.Source[domain.Product],
	sink ProductSink,
	onProgress func(percent int),
	opts ...industry.Option,
) (*CatalogSummary, error) {
	settings := industry.Apply(DefaultCatalogChunkSize, opts...)
	summary := &CatalogSummary{}

	err := dataprocessing.ProcessInChunks(ctx, src,
		func(ctx context.Context, chunk []domain.Product) error {
			if sink == nil {
				return nil
			}
			return sink(ctx, chunk)
		},
		dataprocessing.Options[domain.Product]{
			ChunkSize:        settings.ChunkSize,
			OnProgress:       onProgress,
			OnChunkProcessed: industry.ChunkHook(settings, summary.record),
			Validate:         ValidateProducts,
			Workers:          settings.Workers,
			Logger:           settings.Logger,
		})
	if err != nil {
		return summary, fmt.Errorf("catalog: %w", err)
	}
	return summary, nil
}
