package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
)

type ProductInput struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type SupplierInput struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// ProductUpdate changes catalog fields only; nil fields are left as is.
// Stock is rejected: it moves through AdjustProductStock.
type ProductUpdate struct {
	SKU        *string `json:"sku,omitempty"`
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
}

type SupplierUpdate struct {
	Name    *string `json:"name,omitempty"`
	Contact *string `json:"contact,omitempty"`
}

// Catalog manages products and suppliers. Product stock is never written
// directly: AdjustProductStock goes through the ledger like order operations.
type Catalog struct {
	Store       Store
	Publisher   Publisher // optional
	ServiceName string
	MaxRetries  int
	Now         func() time.Time
}

func (c *Catalog) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.SKU == "":
		return Product{}, invalid("sku", "SKU (Stock Keeping Unit) is required")
	case in.Name == "":
		return Product{}, invalid("name", "product name is required")
	case in.PriceCents < 0:
		return Product{}, invalid("price_cents", "price must be a positive number")
	case in.Stock < 0 || in.Stock > MaxQty:
		return Product{}, invalid("stock", fmt.Sprintf("stock must be between 0 and %d", MaxQty))
	}
	now := c.now()
	p := Product{
		ID:         uuid.NewString(),
		SKU:        in.SKU,
		Name:       in.Name,
		PriceCents: in.PriceCents,
		Stock:      in.Stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.Store.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (Product, error) {
	return c.Store.GetProduct(ctx, id)
}

func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) (Page[Product], error) {
	f.Page, f.Limit, _ = Normalize(f.Page, f.Limit)
	items, total, err := c.Store.ListProducts(ctx, f)
	if err != nil {
		return Page[Product]{}, err
	}
	return Page[Product]{Items: items, Page: f.Page, Limit: f.Limit, TotalCount: total}, nil
}

// AdjustProductStock applies a manual ledger entry, e.g. a supplier delivery
// (delta > 0) or a write-off (delta < 0).
func (c *Catalog) AdjustProductStock(ctx context.Context, id string, delta int) (Product, error) {
	if delta == 0 || delta > MaxQty || delta < -MaxQty {
		return Product{}, invalid("delta", fmt.Sprintf("delta must be non-zero and within %d", MaxQty))
	}
	var out Product
	err := runTx(ctx, c.Store, "adjust_stock", c.MaxRetries, func(ctx context.Context, tx Tx) error {
		p, err := tx.AdjustStock(ctx, id, delta)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	changes := []StockChange{{ProductID: id, Delta: delta, Stock: out.Stock, Version: out.StockVersion}}
	recordChanges(ReasonManual, changes)
	emitter{pub: c.Publisher, producer: c.ServiceName}.stock(ctx, "", ReasonManual, changes)
	logger.FromContext(ctx).Info("stock adjusted",
		zap.String("product_id", id), zap.Int("delta", delta), zap.Int("stock", out.Stock))
	return out, nil
}

// UpdateProduct changes SKU, name or price. Orders keep the price captured
// when their items were set.
func (c *Catalog) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (Product, error) {
	if in.Stock != nil {
		return Product{}, invalid("stock", "stock cannot be set directly, post an adjustment to /products/{id}/stock")
	}
	p, err := c.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if in.SKU != nil {
		if p.SKU = strings.TrimSpace(*in.SKU); p.SKU == "" {
			return Product{}, invalid("sku", "SKU (Stock Keeping Unit) is required")
		}
	}
	if in.Name != nil {
		if p.Name = strings.TrimSpace(*in.Name); p.Name == "" {
			return Product{}, invalid("name", "product name is required")
		}
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return Product{}, invalid("price_cents", "price must be a positive number")
		}
		p.PriceCents = *in.PriceCents
	}
	p.UpdatedAt = c.now()
	out, err := c.Store.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	logger.FromContext(ctx).Info("product updated", zap.String("product_id", id), zap.Int64("price_cents", out.PriceCents))
	return out, nil
}

// DeleteProduct fails with ErrReferenced while any order still lists the
// product, so no order can lose the product it has to restock.
func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	if err := c.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("product deleted", zap.String("product_id", id))
	return nil
}

func (c *Catalog) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return Supplier{}, invalid("name", "supplier name is required")
	case strings.TrimSpace(in.Contact) == "":
		return Supplier{}, invalid("contact", "contact information is required")
	}
	now := c.now()
	s := Supplier{ID: uuid.NewString(), Name: in.Name, Contact: in.Contact, CreatedAt: now, UpdatedAt: now}
	if err := c.Store.CreateSupplier(ctx, s); err != nil {
		return Supplier{}, fmt.Errorf("supplier %q: %w", in.Name, err)
	}
	return s, nil
}

func (c *Catalog) GetSupplier(ctx context.Context, id string) (Supplier, error) {
	return c.Store.GetSupplier(ctx, id)
}

func (c *Catalog) UpdateSupplier(ctx context.Context, id string, in SupplierUpdate) (Supplier, error) {
	sup, err := c.Store.GetSupplier(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	if in.Name != nil {
		if sup.Name = strings.TrimSpace(*in.Name); sup.Name == "" {
			return Supplier{}, invalid("name", "supplier name is required")
		}
	}
	if in.Contact != nil {
		if strings.TrimSpace(*in.Contact) == "" {
			return Supplier{}, invalid("contact", "contact information is required")
		}
		sup.Contact = *in.Contact
	}
	sup.UpdatedAt = c.now()
	out, err := c.Store.UpdateSupplier(ctx, sup)
	if err != nil {
		return Supplier{}, fmt.Errorf("supplier %s: %w", id, err)
	}
	return out, nil
}

// DeleteSupplier fails with ErrReferenced while orders point at the supplier.
func (c *Catalog) DeleteSupplier(ctx context.Context, id string) error {
	return c.Store.DeleteSupplier(ctx, id)
}

func (c *Catalog) ListSuppliers(ctx context.Context, f SupplierFilter) (Page[Supplier], error) {
	f.Page, f.Limit, _ = Normalize(f.Page, f.Limit)
	items, total, err := c.Store.ListSuppliers(ctx, f)
	if err != nil {
		return Page[Supplier]{}, err
	}
	return Page[Supplier]{Items: items, Page: f.Page, Limit: f.Limit, TotalCount: total}, nil
}
