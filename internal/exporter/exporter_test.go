package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizpulse/pkg/contracts/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "file should start with a BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	err := writer.WriteCSV("reports/out.csv", WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"1", "2"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	err = writer.WriteCSV("reports/out.csv", WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"3", "4, with comma"}},
		Append:    true,
		BOMPrefix: true,
	})
	require.NoError(t, err)

	records := readCSV(t, filepath.Join(dir, "reports", "out.csv"))
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4, with comma"}}, records)
}

func TestCSVWriter_AppendCreatesFile(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	require.NoError(t, writer.WriteCSV("new.csv", WriteOptions{
		Headers:   []string{"id"},
		Records:   [][]string{{"x"}},
		Append:    true,
		BOMPrefix: true,
	}))

	assert.Equal(t, [][]string{{"id"}, {"x"}}, readCSV(t, filepath.Join(dir, "new.csv")))
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abs.csv")
	writer := NewCSVWriter("/does/not/matter")

	stream, err := writer.CreateStreamWriter(path, []string{"h"})
	require.NoError(t, err)
	assert.Equal(t, path, stream.Path())
	require.NoError(t, stream.WriteRecords([][]string{{"v"}}))
	require.NoError(t, stream.Close())

	assert.Equal(t, [][]string{{"h"}, {"v"}}, readCSV(t, path))
}

func TestRecordExporter_Transactions(t *testing.T) {
	dir := t.TempDir()
	exp := NewRecordExporter(dir, nil)
	sink := exp.TransactionSink()
	ctx := context.Background()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sink(ctx, []domain.BankingTransaction{
		{ID: "tx-1", Timestamp: ts, Amount: 10, AccountID: "acc-1", Type: domain.TransactionTypeDeposit, Status: domain.TransactionStatusCompleted},
	}))
	require.NoError(t, sink(ctx, []domain.BankingTransaction{
		{ID: "tx-2", Amount: 13.4, Type: domain.TransactionTypeWithdrawal, Status: domain.TransactionStatusPending},
	}))
	require.NoError(t, exp.Close())

	records := readCSV(t, filepath.Join(dir, TransactionsFile))
	assert.Equal(t, [][]string{
		transactionHeaders,
		{"tx-1", "2024-03-01T12:00:00Z", "10.00", "acc-1", "deposit", "completed"},
		{"tx-2", "", "13.40", "", "withdrawal", "pending"},
	}, records)
	assert.Equal(t, map[string]int{TransactionsFile: 2}, exp.Rows())
}

func TestRecordExporter_ProductsWithVariants(t *testing.T) {
	dir := t.TempDir()
	exp := NewRecordExporter(dir, nil)

	err := exp.ProductSink()(context.Background(), []domain.Product{{
		ID: "P-1", Name: "Shirt", Price: 20, Inventory: 5, Category: "apparel",
		Variants: []domain.ProductVariant{
			{ID: "P-1-a", Attributes: map[string]string{"size": "M", "color": "blue"}, Inventory: 2},
		},
	}})
	require.NoError(t, err)
	require.NoError(t, exp.Close())

	records := readCSV(t, filepath.Join(dir, ProductsFile))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"P-1", "Shirt", "20.00", "5", "apparel", ""}, records[1])
	assert.Equal(t, []string{"P-1-a", "Shirt (color=blue, size=M)", "20.00", "2", "apparel", "P-1"}, records[2])
}

func TestRecordExporter_OrdersAndMedicalRecords(t *testing.T) {
	dir := t.TempDir()
	exp := NewRecordExporter(dir, nil)
	ctx := context.Background()

	require.NoError(t, exp.OrderSink()(ctx, []domain.Order{{
		ID: "O-1", CustomerID: "C-1", Status: domain.OrderStatusShipped,
		Items: []domain.OrderItem{{ProductID: "P-1", Quantity: 2}}, Total: 40, PaymentMethod: "card",
	}}))
	require.NoError(t, exp.MedicalRecordSink()(ctx, []domain.MedicalRecord{{
		ID: "MR-1", PatientID: "PT-1", ProviderID: "DR-1",
		Diagnoses:   []string{"J01", "R05"},
		Medications: []domain.MedicationPrescription{{Name: "amoxicillin"}},
		Notes:       "[REDACTED] reports cough",
	}}))
	require.NoError(t, exp.Close())

	orders := readCSV(t, filepath.Join(dir, OrdersFile))
	assert.Equal(t, []string{"O-1", "C-1", "", "shipped", "1", "40.00", "card"}, orders[1])

	medical := readCSV(t, filepath.Join(dir, MedicalRecordsFile))
	assert.Equal(t, []string{"MR-1", "PT-1", "", "DR-1", "J01; R05", "", "amoxicillin", "[REDACTED] reports cough"}, medical[1])
}

func TestRecordExporter_ConcurrentSinks(t *testing.T) {
	dir := t.TempDir()
	exp := NewRecordExporter(dir, nil)
	sink := exp.TransactionSink()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]domain.BankingTransaction, 25)
			for j := range batch {
				batch[j] = domain.BankingTransaction{ID: "tx", Type: domain.TransactionTypeDeposit}
			}
			assert.NoError(t, sink(context.Background(), batch))
		}()
	}
	wg.Wait()
	require.NoError(t, exp.Close())

	records := readCSV(t, filepath.Join(dir, TransactionsFile))
	assert.Len(t, records, 1+8*25)
}

func TestRecordExporter_ClosedAndCancelled(t *testing.T) {
	exp := NewRecordExporter(t.TempDir(), nil)
	require.NoError(t, exp.Close())
	require.NoError(t, exp.Close())

	err := exp.TransactionSink()(context.Background(), nil)
	assert.ErrorIs(t, err, ErrExporterClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	live := NewRecordExporter(t.TempDir(), nil)
	assert.ErrorIs(t, live.OrderSink()(ctx, nil), context.Canceled)
	assert.Empty(t, live.Rows())
}
