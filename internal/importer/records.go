package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bizpulse/internal/dataprocessing"
	"bizpulse/pkg/contracts/domain"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

var errEmpty = errors.New("value is empty")

func parseNumber(raw string) (float64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, errEmpty
	}
	return strconv.ParseFloat(raw, 64)
}

func parseInt(raw string) (int, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, errEmpty
	}
	return strconv.Atoi(raw)
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Transactions reads banking transactions. Required columns: id, amount, type.
// Optional: timestamp, account_id, status. A file without data rows yields an
// empty, non-nil slice.
func Transactions(path string) ([]domain.BankingTransaction, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require(map[string][]string{
		"id":     {"id", "transaction_id"},
		"amount": {"amount", "value"},
		"type":   {"type", "transaction_type"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tsCol, _ := t.column("timestamp", "date", "created_at")
	accountCol, _ := t.column("account_id", "account")
	statusCol, _ := t.column("status")

	out := []domain.BankingTransaction{}
	var rowErrs []RowError
	t.each(func(rowNum int, cell func(int) string) {
		amount, err := parseNumber(cell(cols["amount"]))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Column: "amount", Err: err})
			return
		}
		tx := domain.BankingTransaction{
			ID:        cell(cols["id"]),
			Amount:    amount,
			AccountID: cell(accountCol),
			Type:      domain.TransactionType(strings.ToLower(cell(cols["type"]))),
			Status:    domain.TransactionStatus(strings.ToLower(cell(statusCol))),
		}
		if raw := cell(tsCol); raw != "" {
			ts, err := parseTimestamp(raw)
			if err != nil {
				rowErrs = append(rowErrs, RowError{Row: rowNum, Column: "timestamp", Err: err})
				return
			}
			tx.Timestamp = ts
		}
		if tx.Status == "" {
			tx.Status = domain.TransactionStatusCompleted
		}
		out = append(out, tx)
	})

	if len(rowErrs) > 0 {
		return out, &ImportError{Path: path, Rows: rowErrs}
	}
	return out, nil
}

// Products reads a catalog. Required columns: id, name, price, inventory.
// A row with a non-empty variant_of column becomes a variant of that product;
// its parent must appear earlier in the file.
func Products(path string) ([]domain.Product, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cols, err := t.require(map[string][]string{
		"id":        {"id", "sku", "product_id"},
		"name":      {"name", "title"},
		"price":     {"price"},
		"inventory": {"inventory", "stock", "quantity"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	categoryCol, _ := t.column("category")
	parentCol, _ := t.column("variant_of", "parent_id")

	out := []domain.Product{}
	index := make(map[string]int)
	var rowErrs []RowError
	t.each(func(rowNum int, cell func(int) string) {
		inventory, err := parseInt(cell(cols["inventory"]))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Column: "inventory", Err: err})
			return
		}
		id := cell(cols["id"])

		if parent := cell(parentCol); parent != "" {
			i, ok := index[parent]
			if !ok {
				rowErrs = append(rowErrs, RowError{Row: rowNum, Column: "variant_of", Err: fmt.Errorf("unknown product %q", parent)})
				return
			}
			variant := domain.ProductVariant{ID: id, Inventory: inventory}
			if name := cell(cols["name"]); name != "" {
				variant.Attributes = map[string]string{"name": name}
			}
			out[i].Variants = append(out[i].Variants, variant)
			return
		}

		price, err := parseNumber(cell(cols["price"]))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Column: "price", Err: err})
			return
		}
		index[id] = len(out)
		out = append(out, domain.Product{
			ID:        id,
			Name:      cell(cols["name"]),
			Price:     price,
			Inventory: inventory,
			Category:  cell(categoryCol),
		})
	})

	if len(rowErrs) > 0 {
		return out, &ImportError{Path: path, Rows: rowErrs}
	}
	return out, nil
}

// TransactionSource defers reading path until the chunk engine resolves it
func TransactionSource(path string) dataprocessing.Source[domain.BankingTransaction] {
	return dataprocessing.SourceFunc[domain.BankingTransaction](func(context.Context) ([]domain.BankingTransaction, error) {
		return Transactions(path)
	})
}

// ProductSource defers reading path until the chunk engine resolves it
func ProductSource(path string) dataprocessing.Source[domain.Product] {
	return dataprocessing.SourceFunc[domain.Product](func(context.Context) ([]domain.Product, error) {
		return Products(path)
	})
}
