// Package banking processes banking transactions: validation, chunked
// persistence and display masking of account identifiers.
package banking

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"bizpulse/internal/dataprocessing"
	"bizpulse/internal/industry"
	"bizpulse/pkg/contracts/domain"
)

// DefaultChunkSize is kept small because transaction data is sensitive
const DefaultChunkSize = 500

// DefaultMaskedFields are masked when MaskSensitiveData receives no field list
var DefaultMaskedFields = []string{"accountNumber", "ssn", "taxId"}

var validate = industry.NewValidator()

// Sink persists or otherwise consumes a processed chunk of transactions
type Sink func(ctx context.Context, transactions []domain.BankingTransaction) error

// Summary aggregates what a run processed
type Summary struct {
	TotalTransactions int                            `json:"total_transactions"`
	TotalAmount       float64                        `json:"total_amount"`
	ByType            map[domain.TransactionType]int `json:"by_type"`
	ChunksProcessed   int                            `json:"chunks_processed"`

	mu sync.Mutex
}

func newSummary() *Summary {
	return &Summary{ByType: make(map[domain.TransactionType]int)}
}

func (s *Summary) add(chunk []domain.BankingTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ChunksProcessed++
	s.TotalTransactions += len(chunk)
	for _, tx := range chunk {
		s.TotalAmount += tx.Amount
		s.ByType[tx.Type]++
	}
}

// ValidateTransactions checks every transaction and collects all violations:
// a non-empty id, a finite amount and a known transaction type.
func ValidateTransactions(transactions []domain.BankingTransaction) dataprocessing.ValidationResult {
	var errors []string
	for i, tx := range transactions {
		label := industry.RecordLabel("transaction", tx.ID, i)
		errors = append(errors, industry.Violations(validate, label, tx)...)
	}
	return dataprocessing.NewValidationResult(errors)
}

// ProcessTransactions validates src as a whole, then hands it to sink in chunks
// of DefaultChunkSize (unless overridden). On failure the summary still reflects
// the chunks that were applied before the error.
func ProcessTransactions(
	ctx context.Context,
	src dataprocessing.Source[domain.BankingTransaction],
	sink Sink,
	onProgress func(percent int),
	opts ...industry.Option,
) (*Summary, error) {
	settings := industry.Apply(DefaultChunkSize, opts...)
	summary := newSummary()

	err := dataprocessing.ProcessInChunks(ctx, src,
		func(ctx context.Context, chunk []domain.BankingTransaction) error {
			if sink != nil {
				if err := sink(ctx, chunk); err != nil {
					return err
				}
			}
			summary.add(chunk)
			return nil
		},
		dataprocessing.Options[domain.BankingTransaction]{
			ChunkSize:        settings.ChunkSize,
			OnProgress:       onProgress,
			OnChunkProcessed: industry.ChunkHook[domain.BankingTransaction](settings, nil),
			Validate:         ValidateTransactions,
			Workers:          settings.Workers,
			Logger:           settings.Logger,
		})
	if err != nil {
		return summary, fmt.Errorf("banking: %w", err)
	}
	return summary, nil
}

// MaskSensitiveData returns copies of records with the named fields masked for
// display. Without fields, DefaultMaskedFields are used. Missing and nil fields
// are left alone; non-string values are masked in their fmt.Sprint form.
func MaskSensitiveData(records []map[string]interface{}, fields ...string) []map[string]interface{} {
	if len(fields) == 0 {
		fields = DefaultMaskedFields
	}

	masked := make([]map[string]interface{}, len(records))
	for i, record := range records {
		if record == nil {
			continue
		}
		out := make(map[string]interface{}, len(record))
		maps.Copy(out, record)

		for _, field := range fields {
			value, ok := record[field]
			if !ok || value == nil {
				continue
			}
			s, isString := value.(string)
			if !isString {
				s = fmt.Sprint(value)
			}
			out[field] = MaskValue(s)
		}
		masked[i] = out
	}
	return masked
}

// MaskValue hides all but the outer characters of s:
// longer than 6 keeps 2+2, 3 to 6 keeps 1+1, 1 or 2 becomes "**".
// The empty string is returned as is.
func MaskValue(s string) string {
	runes := []rune(s)
	n := len(runes)

	var keep int
	switch {
	case n == 0:
		return s
	case n <= 2:
		return "**"
	case n <= 6:
		keep = 1
	default:
		keep = 2
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(string(runes[:keep]))
	b.WriteString(strings.Repeat("*", n-2*keep))
	b.WriteString(string(runes[n-keep:]))
	return b.String()
}
