package ecommerce

import (
	"bizpulse/pkg/contracts/domain"
)

// LowStockThreshold is the exclusive upper bound of the low-stock band
const LowStockThreshold = 10

// InventoryAlerts lists product ids needing attention. The lists never overlap.
type InventoryAlerts struct {
	OutOfStock []string `json:"out_of_stock"`
	LowStock   []string `json:"low_stock"`
}

type stockLevel int

const (
	stockHealthy stockLevel = iota
	stockLow
	stockOut
)

func levelOf(inventory int) stockLevel {
	switch {
	case inventory <= 0:
		return stockOut
	case inventory < LowStockThreshold:
		return stockLow
	}
	return stockHealthy
}

// productLevel is the worst level of the product and its variants
func productLevel(p domain.Product) stockLevel {
	level := levelOf(p.Inventory)
	for _, v := range p.Variants {
		level = max(level, levelOf(v.Inventory))
	}
	return level
}

// GenerateInventoryAlerts classifies products by their worst stock level.
// A product with any out-of-stock variant is out of stock even when the parent
// inventory is healthy. Ids are deduplicated, keep first-seen order and are
// reported under the worst level observed for them.
func GenerateInventoryAlerts(products []domain.Product) InventoryAlerts {
	levels := make(map[string]stockLevel, len(products))
	order := make([]string, 0, len(products))

	for _, p := range products {
		level := productLevel(p)
		current, seen := levels[p.ID]
		if !seen {
			order = append(order, p.ID)
		}
		levels[p.ID] = max(current, level)
	}

	alerts := InventoryAlerts{
		OutOfStock: []string{},
		LowStock:   []string{},
	}
	for _, id := range order {
		switch levels[id] {
		case stockOut:
			alerts.OutOfStock = append(alerts.OutOfStock, id)
		case stockLow:
			alerts.LowStock = append(alerts.LowStock, id)
		}
	}
	return alerts
}
