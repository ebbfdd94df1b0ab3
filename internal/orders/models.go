package orders

import (
	"fmt"
	"math"
	"time"
)

type Product struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	// StockVersion grows by one with every ledger adjustment.
	StockVersion int64     `json:"stock_version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is embedded in an Order. PriceCents is captured when the item is
// set and does not follow later product price changes.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

type Order struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id,omitempty"`
	SupplierID string      `json:"supplier_id"`
	Items      []OrderItem `json:"items"`
	Status     Status      `json:"status"` // lihat status.go
	TotalCents int64       `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// HoldsStock reports whether the order's items are currently deducted from
// product stock.
func (o Order) HoldsStock() bool { return o.Status != StatusCancelled }

// SetItems replaces the items and recomputes the total. On error the order
// is left unchanged.
func (o *Order) SetItems(items []OrderItem) error {
	total, err := Total(items)
	if err != nil {
		return err
	}
	o.Items = append([]OrderItem(nil), items...)
	o.TotalCents = total
	return nil
}

func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}

// MaxQty is the largest quantity or stock level a product can carry; it
// matches the INTEGER columns in Postgres.
const MaxQty = math.MaxInt32

// Total returns the sum of qty x price. It fails with a ValidationError
// instead of wrapping around.
func Total(items []OrderItem) (int64, error) {
	var total int64
	for i, it := range items {
		if it.Qty < 0 || it.PriceCents < 0 {
			return 0, invalid(fmt.Sprintf("items[%d]", i), "quantity and price cannot be negative")
		}
		if it.Qty > 0 && it.PriceCents > math.MaxInt64/int64(it.Qty) {
			return 0, invalid(fmt.Sprintf("items[%d]", i), "line amount is too large")
		}
		line := int64(it.Qty) * it.PriceCents
		if total > math.MaxInt64-line {
			return 0, invalid("items", "order total is too large")
		}
		total += line
	}
	return total, nil
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CreateOrderInput struct {
	ExternalID string      `json:"external_id,omitempty"`
	SupplierID string      `json:"supplier_id"`
	Items      []ItemInput `json:"items"`
	Status     Status      `json:"status,omitempty"`
}

// UpdateOrderInput carries the fields to change; nil fields are left as is.
type UpdateOrderInput struct {
	Status     *Status     `json:"status,omitempty"`
	SupplierID *string     `json:"supplier_id,omitempty"`
	Items      []ItemInput `json:"items,omitempty"`
}

type OrderFilter struct {
	Status Status
	Page   int
	Limit  int
}

type ProductFilter struct {
	SKU   string
	Name  string
	Page  int
	Limit int
}

type SupplierFilter struct {
	Name  string
	Page  int
	Limit int
}

type Page[T any] struct {
	Items      []T `json:"data"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
}

func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.TotalCount + p.Limit - 1) / p.Limit
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize applies default paging and returns the row offset.
func Normalize(page, limit int) (int, int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, (page - 1) * limit
}
