package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizpulse/internal/config"
	"bizpulse/internal/dataprocessing"
	"bizpulse/internal/synthetic"
	"bizpulse/pkg/contracts/domain"
)

func testProcessingConfig() config.ProcessingConfig {
	cfg := config.Default().Processing
	cfg.StreamDelay = 0
	return cfg
}

type progressLog struct {
	mu      sync.Mutex
	percent []int
	chunks  []int
}

func (p *progressLog) onProgress(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = append(p.percent, percent)
}

func (p *progressLog) onChunk(index, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, index)
}

func assertMonotonic(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress went backwards at %d: %v", i, values)
	}
}

func TestSyntheticTransactionsEndToEnd(t *testing.T) {
	transactions := synthetic.New(7).Transactions(10000)

	var chunks, last int
	err := dataprocessing.ProcessInChunks(context.Background(),
		dataprocessing.FromSlice(transactions),
		func(context.Context, []domain.BankingTransaction) error { return nil },
		dataprocessing.Options[domain.BankingTransaction]{
			ChunkSize:        500,
			OnProgress:       func(p int) { last = p },
			OnChunkProcessed: func(dataprocessing.Chunk[domain.BankingTransaction]) { chunks++ },
		})

	require.NoError(t, err)
	assert.Equal(t, 20, chunks)
	assert.Equal(t, 100, last)
}

func TestOrchestratorBankingRun(t *testing.T) {
	orch := NewOrchestrator(testProcessingConfig())
	progress := &progressLog{}

	result := orch.Run(context.Background(), RunRequest{
		Industry:    domain.IndustryBanking,
		RecordCount: 10000,
		ChunkSize:   500,
		Seed:        42,
		OnProgress:  progress.onProgress,
		OnChunk:     progress.onChunk,
	})

	require.NotNil(t, result)
	assert.Equal(t, domain.RunStatusCompleted, result.Status, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 10000, result.ProcessedRecordCount)
	assert.GreaterOrEqual(t, result.ElapsedMs, int64(0))
	assert.Equal(t, 20, result.Metrics["chunks_processed"])

	assert.Len(t, progress.chunks, 20)
	require.Len(t, progress.percent, 20)
	assert.Equal(t, 100, progress.percent[19])
	assertMonotonic(t, progress.percent)
}

func TestOrchestratorSeedIsDeterministic(t *testing.T) {
	orch := NewOrchestrator(testProcessingConfig())
	req := RunRequest{Industry: domain.IndustryBanking, RecordCount: 300, Seed: 9}

	first := orch.Run(context.Background(), req)
	second := orch.Run(context.Background(), req)

	require.True(t, first.Succeeded())
	require.True(t, second.Succeeded())
	assert.Equal(t, first.Metrics["total_amount"], second.Metrics["total_amount"])
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestOrchestratorEcommerceWithOrderHistory(t *testing.T) {
	var batches int
	orch := NewOrchestrator(testProcessingConfig(),
		WithOrderSink(func(context.Context, []domain.Order) error {
			batches++
			return nil
		}))
	progress := &progressLog{}

	result := orch.Run(context.Background(), RunRequest{
		Industry:    domain.IndustryEcommerce,
		RecordCount: 50,
		OrderCount:  250,
		Seed:        3,
		OnProgress:  progress.onProgress,
	})

	require.True(t, result.Succeeded(), "errors: %v", result.Errors)
	assert.Equal(t, 300, result.ProcessedRecordCount)
	assert.Equal(t, 50, result.Metrics["total_products"])
	assert.Equal(t, 250, result.Metrics["total_orders"])
	assert.Equal(t, 3, result.Metrics["order_batches"])
	assert.Equal(t, 3, batches)
	assert.Contains(t, result.Metrics, "out_of_stock")
	assert.Contains(t, result.Metrics, "low_stock")

	// one catalog chunk maps to 50%, the three order batches fill the rest
	assert.Equal(t, []int{50, 70, 90, 100}, progress.percent)
}

func TestOrchestratorEcommerceInventoryAlerts(t *testing.T) {
	orch := NewOrchestrator(testProcessingConfig())

	result := orch.Run(context.Background(), RunRequest{
		Industry: domain.IndustryEcommerce,
		Products: []domain.Product{
			{ID: "A", Name: "Anvil", Price: 10, Inventory: 0},
			{ID: "B", Name: "Bolt", Price: 1, Inventory: 5},
			{ID: "C", Name: "Crate", Price: 4, Inventory: 50},
		},
	})

	require.True(t, result.Succeeded(), "errors: %v", result.Errors)
	assert.Equal(t, 3, result.ProcessedRecordCount)
	assert.Equal(t, 1, result.Metrics["out_of_stock"])
	assert.Equal(t, 1, result.Metrics["low_stock"])
	assert.NotContains(t, result.Metrics, "total_orders")
}

func TestOrchestratorHealthcareRedactsBeforeSink(t *testing.T) {
	var seen []string
	orch := NewOrchestrator(testProcessingConfig(),
		WithMedicalRecordSink(func(_ context.Context, records []domain.MedicalRecord) error {
			for _, r := range records {
				seen = append(seen, r.Notes)
			}
			return nil
		}))

	records := []domain.MedicalRecord{
		{
			ID: "mr-1", PatientID: "pt-1", ProviderID: "prov-1",
			Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Diagnoses: []string{"asthma"},
			Notes:     "Call 555-123-4567 before refill",
		},
		{
			ID: "mr-2", PatientID: "pt-2", ProviderID: "prov-1",
			Date:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Diagnoses: []string{"asthma", "migraine"},
			Notes:     "stable",
		},
	}

	result := orch.Run(context.Background(), RunRequest{
		Industry:       domain.IndustryHealthcare,
		MedicalRecords: records,
	})

	require.True(t, result.Succeeded(), "errors: %v", result.Errors)
	assert.Equal(t, 2, result.ProcessedRecordCount)
	assert.Equal(t, 1, result.Metrics["redacted_notes"])
	assert.Equal(t, []string{"Call [REDACTED] before refill", "stable"}, seen)
	assert.Equal(t, "Call 555-123-4567 before refill", records[0].Notes)
}

func TestOrchestratorFailures(t *testing.T) {
	validTx := func(id string) domain.BankingTransaction {
		return domain.BankingTransaction{
			ID:        id,
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Amount:    12.5,
			AccountID: "acc-1",
			Type:      domain.TransactionTypeDeposit,
			Status:    domain.TransactionStatusCompleted,
		}
	}

	tests := []struct {
		name          string
		opts          []OrchestratorOption
		cfg           func(*config.ProcessingConfig)
		ctx           func() context.Context
		req           RunRequest
		wantType      ErrorType
		wantMessage   string
		wantErrors    int
		wantProcessed int
	}{
		{
			name:        "unsupported industry",
			req:         RunRequest{Industry: "retail"},
			wantType:    ErrorTypeUnsupported,
			wantMessage: `unsupported industry "retail"`,
			wantErrors:  1,
		},
		{
			name: "validation lists every violation",
			req: RunRequest{
				Industry: domain.IndustryBanking,
				Transactions: []domain.BankingTransaction{
					validTx("tx-1"),
					validTx(""),
					func() domain.BankingTransaction { tx := validTx("tx-3"); tx.Type = "refund"; return tx }(),
				},
			},
			wantType:    ErrorTypeValidation,
			wantMessage: "validation failed with 2 errors",
			wantErrors:  3,
		},
		{
			name: "sink failure keeps partial count",
			opts: []OrchestratorOption{
				WithTransactionSink(func(_ context.Context, txs []domain.BankingTransaction) error {
					if txs[0].ID == "tx-2" {
						return errors.New("ledger unavailable")
					}
					return nil
				}),
			},
			req: RunRequest{
				Industry:     domain.IndustryBanking,
				ChunkSize:    2,
				Transactions: []domain.BankingTransaction{validTx("tx-0"), validTx("tx-1"), validTx("tx-2"), validTx("tx-3")},
			},
			wantType:      ErrorTypeExecution,
			wantMessage:   "ledger unavailable",
			wantErrors:    1,
			wantProcessed: 2,
		},
		{
			name: "sink panic",
			opts: []OrchestratorOption{
				WithTransactionSink(func(context.Context, []domain.BankingTransaction) error {
					panic("nil ledger")
				}),
			},
			req:         RunRequest{Industry: domain.IndustryBanking, Transactions: []domain.BankingTransaction{validTx("tx-0")}},
			wantType:    ErrorTypeExecution,
			wantMessage: "chunk 0 failed: panic: nil ledger",
			wantErrors:  1,
		},
		{
			name: "sink panic on a chunk worker",
			opts: []OrchestratorOption{
				WithTransactionSink(func(context.Context, []domain.BankingTransaction) error {
					panic("nil ledger")
				}),
			},
			req: RunRequest{
				Industry:     domain.IndustryBanking,
				Workers:      4,
				Transactions: []domain.BankingTransaction{validTx("tx-0")},
			},
			wantType:    ErrorTypeExecution,
			wantMessage: "chunk 0 failed: panic: nil ledger",
			wantErrors:  1,
		},
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			req:         RunRequest{Industry: domain.IndustryHealthcare, RecordCount: 500, Seed: 1},
			wantType:    ErrorTypeCancellation,
			wantMessage: "run was cancelled",
			wantErrors:  1,
		},
		{
			name:        "record count above limit",
			cfg:         func(c *config.ProcessingConfig) { c.MaxRecordCount = 100 },
			req:         RunRequest{Industry: domain.IndustryBanking, RecordCount: 101},
			wantType:    ErrorTypeValidation,
			wantMessage: "exceeds the limit of 100",
			wantErrors:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testProcessingConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			result := NewOrchestrator(cfg, tt.opts...).Run(ctx, tt.req)

			require.NotNil(t, result)
			assert.Equal(t, domain.RunStatusFailed, result.Status)
			require.Len(t, result.Errors, tt.wantErrors, "errors: %v", result.Errors)
			assert.Contains(t, result.Errors[0], fmt.Sprintf("[%s]", tt.wantType))
			assert.Contains(t, result.Errors[0], tt.wantMessage)
			assert.NotContains(t, strings.Join(result.Errors, "\n"), "goroutine")
			assert.Equal(t, tt.wantProcessed, result.ProcessedRecordCount)
		})
	}
}

func TestOrchestratorEmptyDataIsNotAFailure(t *testing.T) {
	var progressCalls int
	result := NewOrchestrator(testProcessingConfig()).Run(context.Background(), RunRequest{
		Industry:     domain.IndustryBanking,
		Transactions: []domain.BankingTransaction{},
		OnProgress:   func(int) { progressCalls++ },
	})

	assert.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Empty(t, result.Errors)
	assert.Zero(t, result.ProcessedRecordCount)
	assert.Zero(t, progressCalls)
}

func TestOrchestratorParallelWorkers(t *testing.T) {
	progress := &progressLog{}
	result := NewOrchestrator(testProcessingConfig()).Run(context.Background(), RunRequest{
		Industry:    domain.IndustryHealthcare,
		RecordCount: 1000,
		ChunkSize:   100,
		Workers:     4,
		Seed:        5,
		OnProgress:  progress.onProgress,
		OnChunk:     progress.onChunk,
	})

	require.True(t, result.Succeeded(), "errors: %v", result.Errors)
	assert.Equal(t, 1000, result.ProcessedRecordCount)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, progress.chunks)
	assertMonotonic(t, progress.percent)
	assert.Equal(t, 100, progress.percent[len(progress.percent)-1])
}

func TestScaleProgress(t *testing.T) {
	var got []int
	fn := scaleProgress(func(p int) { got = append(got, p) }, 50, 100)
	for _, p := range []int{0, 40, 80, 100} {
		fn(p)
	}
	assert.Equal(t, []int{50, 70, 90, 100}, got)
}
