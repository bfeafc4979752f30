package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"bizpulse/internal/industry/banking"
	"bizpulse/internal/industry/ecommerce"
	"bizpulse/internal/industry/healthcare"
	"bizpulse/pkg/contracts/domain"
)

// File names written by RecordExporter
const (
	TransactionsFile   = "transactions.csv"
	ProductsFile       = "products.csv"
	OrdersFile         = "orders.csv"
	MedicalRecordsFile = "medical_records.csv"
)

var (
	transactionHeaders   = []string{"id", "timestamp", "amount", "account_id", "type", "status"}
	productHeaders       = []string{"id", "name", "price", "inventory", "category", "variant_of"}
	orderHeaders         = []string{"id", "customer_id", "order_date", "status", "items", "total", "payment_method"}
	medicalRecordHeaders = []string{"id", "patient_id", "date", "provider_id", "diagnoses", "procedures", "medications", "notes"}
)

// ErrExporterClosed is returned by sinks after Close
var ErrExporterClosed = errors.New("exporter closed")

// RecordExporter appends processed chunks to one CSV file per record kind.
// Sinks may be called from concurrent chunk workers.
type RecordExporter struct {
	writer *CSVWriter
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]*StreamWriter
	rows    map[string]int
	closed  bool
}

// NewRecordExporter creates an exporter writing into dir
func NewRecordExporter(dir string, logger *slog.Logger) *RecordExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordExporter{
		writer:  NewCSVWriter(dir),
		logger:  logger.With(slog.String("component", "exporter")),
		streams: make(map[string]*StreamWriter),
		rows:    make(map[string]int),
	}
}

// TransactionSink writes validated banking chunks
func (e *RecordExporter) TransactionSink() banking.Sink {
	return func(ctx context.Context, txs []domain.BankingTransaction) error {
		records := make([][]string, len(txs))
		for i, tx := range txs {
			records[i] = []string{
				tx.ID,
				formatTime(tx.Timestamp),
				formatFloat(tx.Amount),
				tx.AccountID,
				string(tx.Type),
				string(tx.Status),
			}
		}
		return e.write(ctx, TransactionsFile, transactionHeaders, records)
	}
}

// ProductSink writes catalog chunks; each variant gets its own row
func (e *RecordExporter) ProductSink() ecommerce.ProductSink {
	return func(ctx context.Context, products []domain.Product) error {
		var records [][]string
		for _, p := range products {
			records = append(records, []string{
				p.ID, p.Name, formatFloat(p.Price), formatInt(p.Inventory), p.Category, "",
			})
			for _, v := range p.Variants {
				records = append(records, []string{
					v.ID, variantName(p.Name, v.Attributes), formatFloat(p.Price), formatInt(v.Inventory), p.Category, p.ID,
				})
			}
		}
		return e.write(ctx, ProductsFile, productHeaders, records)
	}
}

// OrderSink writes streamed order batches
func (e *RecordExporter) OrderSink() ecommerce.OrderSink {
	return func(ctx context.Context, orders []domain.Order) error {
		records := make([][]string, len(orders))
		for i, o := range orders {
			records[i] = []string{
				o.ID,
				o.CustomerID,
				formatTime(o.OrderDate),
				string(o.Status),
				formatInt(len(o.Items)),
				formatFloat(o.Total),
				o.PaymentMethod,
			}
		}
		return e.write(ctx, OrdersFile, orderHeaders, records)
	}
}

// MedicalRecordSink writes redacted medical record chunks
func (e *RecordExporter) MedicalRecordSink() healthcare.Sink {
	return func(ctx context.Context, recs []domain.MedicalRecord) error {
		records := make([][]string, len(recs))
		for i, r := range recs {
			medications := make([]string, len(r.Medications))
			for j, m := range r.Medications {
				medications[j] = m.Name
			}
			records[i] = []string{
				r.ID,
				r.PatientID,
				formatTime(r.Date),
				r.ProviderID,
				formatList(r.Diagnoses),
				formatList(r.Procedures),
				formatList(medications),
				r.Notes,
			}
		}
		return e.write(ctx, MedicalRecordsFile, medicalRecordHeaders, records)
	}
}

func (e *RecordExporter) write(ctx context.Context, name string, headers []string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrExporterClosed
	}

	stream, ok := e.streams[name]
	if !ok {
		var err error
		stream, err = e.writer.CreateStreamWriter(name, headers)
		if err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		e.streams[name] = stream
		e.logger.Debug("export file created", slog.String("path", stream.Path()))
	}

	if err := stream.WriteRecords(records); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	e.rows[name] += len(records)
	return nil
}

// Rows returns the number of data rows written per file name
func (e *RecordExporter) Rows() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := make(map[string]int, len(e.rows))
	for name, n := range e.rows {
		rows[name] = n
	}
	return rows
}

// Close flushes and closes every file. It is safe to call more than once.
func (e *RecordExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for name, stream := range e.streams {
		if err := stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			continue
		}
		e.logger.Info("export written",
			slog.String("path", stream.Path()),
			slog.Int("rows", e.rows[name]))
	}
	return errors.Join(errs...)
}

// variantName renders attributes in key order, e.g. "Shirt (color=blue, size=M)"
func variantName(base string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return base
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(parts, ", "))
}
