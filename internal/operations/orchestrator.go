package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bizpulse/internal/config"
	"bizpulse/internal/dataprocessing"
	"bizpulse/internal/industry"
	"bizpulse/internal/industry/banking"
	"bizpulse/internal/industry/ecommerce"
	"bizpulse/internal/industry/healthcare"
	"bizpulse/internal/synthetic"
	"bizpulse/pkg/contracts/domain"
)

// RunRequest describes one processing run. When the record slice matching the
// industry is nil, RecordCount synthetic records are generated instead; an
// empty non-nil slice is processed as an empty data set.
type RunRequest struct {
	RunID       string          `json:"run_id,omitempty" validate:"omitempty,max=64"`
	Industry    domain.Industry `json:"industry" validate:"required"`
	RecordCount int             `json:"record_count,omitempty" validate:"gte=0"`
	ChunkSize   int             `json:"chunk_size,omitempty" validate:"gte=0"`
	Workers     int             `json:"workers,omitempty" validate:"gte=0,lte=64"`
	Seed        uint64          `json:"seed,omitempty"`

	// OrderCount adds a streamed order history pass to e-commerce runs
	OrderCount int `json:"order_count,omitempty" validate:"gte=0"`

	Transactions   []domain.BankingTransaction `json:"transactions,omitempty"`
	Products       []domain.Product            `json:"products,omitempty"`
	Orders         []domain.Order              `json:"orders,omitempty"`
	MedicalRecords []domain.MedicalRecord      `json:"medical_records,omitempty"`

	OnProgress func(percent int)      `json:"-"`
	OnChunk    func(index, total int) `json:"-"`
}

// Orchestrator picks the handler for a run request, supplies its data and
// turns the outcome into a RunResult
type Orchestrator struct {
	cfg       config.ProcessingConfig
	logger    *slog.Logger
	tracer    *RunTracer
	generator *synthetic.Generator

	transactionSink banking.Sink
	productSink     ecommerce.ProductSink
	orderSink       ecommerce.OrderSink
	recordSink      healthcare.Sink
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer instruments runs with t
func WithTracer(t *RunTracer) OrchestratorOption {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithGenerator supplies synthetic data for requests without a seed
func WithGenerator(g *synthetic.Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		if g != nil {
			o.generator = g
		}
	}
}

// WithTransactionSink persists processed banking chunks
func WithTransactionSink(sink banking.Sink) OrchestratorOption {
	return func(o *Orchestrator) { o.transactionSink = sink }
}

// WithProductSink persists processed catalog chunks
func WithProductSink(sink ecommerce.ProductSink) OrchestratorOption {
	return func(o *Orchestrator) { o.productSink = sink }
}

// WithOrderSink consumes streamed order batches
func WithOrderSink(sink ecommerce.OrderSink) OrchestratorOption {
	return func(o *Orchestrator) { o.orderSink = sink }
}

// WithMedicalRecordSink persists redacted medical record chunks
func WithMedicalRecordSink(sink healthcare.Sink) OrchestratorOption {
	return func(o *Orchestrator) { o.recordSink = sink }
}

// NewOrchestrator creates an orchestrator for the given processing settings
func NewOrchestrator(cfg config.ProcessingConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = NoopRunTracer()
	}
	if o.generator == nil {
		o.generator = synthetic.NewRandom()
	}
	o.logger = o.logger.With(slog.String("component", "orchestrator"))
	return o
}

// Run executes req and always returns a result. Failures, including panics
// inside sinks, are reported as a failed result carrying the error messages.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (result *domain.RunResult) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	result = &domain.RunResult{
		RunID:    req.RunID,
		Industry: req.Industry,
		Status:   domain.RunStatusCompleted,
		Metrics:  map[string]interface{}{},
	}

	start := time.Now()
	ctx, span := o.tracer.StartRun(ctx, req.RunID, req.Industry)
	defer span.End()
	o.logRunStart(ctx, req)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = NewFatalError(fmt.Sprintf("run panicked: %v", r), nil)
		}
		result.ElapsedMs = time.Since(start).Milliseconds()
		if err != nil {
			result.Status = domain.RunStatusFailed
			result.Errors = ErrorMessages(err)
			o.logRunError(ctx, result, err)
		} else {
			o.logRunComplete(ctx, result)
		}
		o.tracer.FinishRun(ctx, span, result, err)
	}()

	runCtx := ctx
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	err = o.dispatch(runCtx, req, result)
	return result
}

func (o *Orchestrator) dispatch(ctx context.Context, req RunRequest, result *domain.RunResult) error {
	if !req.Industry.Valid() {
		return NewUnsupportedIndustryError(string(req.Industry))
	}

	count, err := o.recordCount(req)
	if err != nil {
		return err
	}
	gen := o.generator
	if req.Seed != 0 {
		gen = synthetic.New(req.Seed)
	}

	progress := func(percent int) {
		o.tracer.RecordProgress(ctx, percent)
		if req.OnProgress != nil {
			req.OnProgress(percent)
		}
	}

	switch req.Industry {
	case domain.IndustryBanking:
		return o.runBanking(ctx, req, gen, count, progress, result)
	case domain.IndustryEcommerce:
		return o.runEcommerce(ctx, req, gen, count, progress, result)
	default:
		return o.runHealthcare(ctx, req, gen, count, progress, result)
	}
}

// recordCount resolves how many synthetic records a request asks for
func (o *Orchestrator) recordCount(req RunRequest) (int, error) {
	count := req.RecordCount
	if count == 0 {
		count = o.cfg.DefaultRecordCount
	}
	if count < 0 {
		return 0, NewValidationError("request", fmt.Sprintf("record_count must not be negative, got %d", count))
	}
	if o.cfg.MaxRecordCount > 0 && count > o.cfg.MaxRecordCount {
		return 0, NewValidationError("request",
			fmt.Sprintf("record_count %d exceeds the limit of %d", count, o.cfg.MaxRecordCount))
	}
	return count, nil
}

func (o *Orchestrator) handlerOptions(ctx context.Context, req RunRequest, defaultChunkSize int) []industry.Option {
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	workers := req.Workers
	if workers <= 0 {
		workers = o.cfg.Workers
	}

	return []industry.Option{
		industry.WithChunkSize(chunkSize),
		industry.WithWorkers(workers),
		industry.WithLogger(o.logger.With(slog.String("run_id", req.RunID))),
		industry.WithChunkObserver(func(index, total int) {
			o.tracer.RecordChunk(ctx, req.Industry, index, total)
			if req.OnChunk != nil {
				req.OnChunk(index, total)
			}
		}),
	}
}

func (o *Orchestrator) runBanking(ctx context.Context, req RunRequest, gen *synthetic.Generator, count int, progress func(int), result *domain.RunResult) error {
	var src dataprocessing.Source[domain.BankingTransaction] = dataprocessing.FromSlice(req.Transactions)
	if req.Transactions == nil {
		src = dataprocessing.SourceFunc[domain.BankingTransaction](func(context.Context) ([]domain.BankingTransaction, error) {
			return gen.Transactions(count), nil
		})
	}

	summary, err := banking.ProcessTransactions(ctx, src, o.transactionSink, progress,
		o.handlerOptions(ctx, req, o.cfg.BankingChunkSize)...)

	result.ProcessedRecordCount = summary.TotalTransactions
	result.Metrics["total_amount"] = summary.TotalAmount
	result.Metrics["by_type"] = summary.ByType
	result.Metrics["chunks_processed"] = summary.ChunksProcessed

	if err != nil {
		return classify(string(domain.IndustryBanking), err, o.cfg.RunTimeout)
	}
	return nil
}

func (o *Orchestrator) runEcommerce(ctx context.Context, req RunRequest, gen *synthetic.Generator, count int, progress func(int), result *domain.RunResult) error {
	products := req.Products
	if products == nil {
		products = gen.Products(count)
	}
	orders := req.Orders
	if orders == nil && req.OrderCount > 0 {
		orders = gen.Orders(req.OrderCount)
	}

	catalogProgress := progress
	if len(orders) > 0 {
		catalogProgress = scaleProgress(progress, 0, 50)
	}

	catalog, err := ecommerce.ProcessProductCatalog(ctx, dataprocessing.FromSlice(products), o.productSink, catalogProgress,
		o.handlerOptions(ctx, req, o.cfg.CatalogChunkSize)...)

	result.ProcessedRecordCount = catalog.TotalProducts
	result.Metrics["total_products"] = catalog.TotalProducts
	result.Metrics["total_variants"] = catalog.TotalVariants
	result.Metrics["variants_per_chunk"] = catalog.VariantsPerChunk
	if err != nil {
		return classify("catalog", err, o.cfg.RunTimeout)
	}

	alerts := ecommerce.GenerateInventoryAlerts(products)
	result.Metrics["out_of_stock"] = len(alerts.OutOfStock)
	result.Metrics["low_stock"] = len(alerts.LowStock)

	if len(orders) == 0 {
		return nil
	}

	repo := synthetic.NewOrderRepository(orders, 0)
	totals, err := ecommerce.ProcessOrderHistory(ctx, repo.Fetch, ecommerce.OrderHistoryOptions{
		Stream: dataprocessing.StreamOptions{
			BatchSize: o.cfg.StreamBatchSize,
			Delay:     o.cfg.StreamDelay,
		},
		Sink:          o.orderSink,
		ExpectedTotal: len(orders),
		OnProgress:    scaleProgress(progress, 50, 100),
		Logger:        o.logger,
	})

	result.ProcessedRecordCount += totals.TotalOrders
	result.Metrics["total_orders"] = totals.TotalOrders
	result.Metrics["total_revenue"] = totals.TotalRevenue
	result.Metrics["order_batches"] = totals.Batches
	result.Metrics["orders_by_status"] = totals.ByStatus
	if err != nil {
		return classify("orders", err, o.cfg.RunTimeout)
	}
	return nil
}

func (o *Orchestrator) runHealthcare(ctx context.Context, req RunRequest, gen *synthetic.Generator, count int, progress func(int), result *domain.RunResult) error {
	var src dataprocessing.Source[domain.MedicalRecord] = dataprocessing.FromSlice(req.MedicalRecords)
	if req.MedicalRecords == nil {
		src = dataprocessing.SourceFunc[domain.MedicalRecord](func(context.Context) ([]domain.MedicalRecord, error) {
			return gen.MedicalRecords(count), nil
		})
	}

	summary, err := healthcare.ProcessMedicalRecords(ctx, src, o.recordSink, progress,
		o.handlerOptions(ctx, req, o.cfg.HealthcareChunkSize)...)

	result.ProcessedRecordCount = summary.TotalRecords
	result.Metrics["redacted_notes"] = summary.RedactedNotes
	result.Metrics["top_diagnoses"] = summary.TopDiagnoses(5)

	if err != nil {
		return classify(string(domain.IndustryHealthcare), err, o.cfg.RunTimeout)
	}
	return nil
}

// scaleProgress maps a 0-100 phase onto the [lo, hi] slice of the run
func scaleProgress(fn func(int), lo, hi int) func(int) {
	return func(percent int) {
		fn(lo + percent*(hi-lo)/100)
	}
}
