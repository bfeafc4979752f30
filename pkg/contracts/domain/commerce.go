package domain

import (
	"time"
)

// Product represents a catalog entry
type Product struct {
	ID        string           `json:"id" validate:"required"`
	Name      string           `json:"name" validate:"required"`
	Price     float64          `json:"price" validate:"min=0"`
	Inventory int              `json:"inventory" validate:"min=0"`
	Category  string           `json:"category"`
	Variants  []ProductVariant `json:"variants,omitempty" validate:"dive"`
}

// ProductVariant represents a purchasable variation of a product (size, colour...)
type ProductVariant struct {
	ID         string            `json:"id" validate:"required"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Inventory  int               `json:"inventory" validate:"min=0"`
}

// Order represents a customer order
type Order struct {
	ID              string      `json:"id" validate:"required"`
	CustomerID      string      `json:"customer_id" validate:"required"`
	OrderDate       time.Time   `json:"order_date"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	ShippingAddress Address     `json:"shipping_address"`
	BillingAddress  Address     `json:"billing_address"`
	PaymentMethod   string      `json:"payment_method"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Address is a postal address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}
