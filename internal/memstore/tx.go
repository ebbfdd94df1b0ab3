package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

// tx writes straight into the staged state owned by one InTx call.
type tx struct{ st state }

func (t *tx) GetSupplier(_ context.Context, id string) (orders.Supplier, error) {
	return t.st.supplier(id)
}

func (t *tx) GetProduct(_ context.Context, id string) (orders.Product, error) {
	return t.st.product(id)
}

func (t *tx) AdjustStock(_ context.Context, productID string, delta int) (orders.Product, error) {
	p, err := t.st.product(productID)
	if err != nil {
		return orders.Product{}, err
	}
	next := int64(p.Stock) + int64(delta)
	if next < 0 {
		return orders.Product{}, &orders.StockError{
			ProductID: p.ID, Name: p.Name, Requested: -delta, Available: p.Stock,
		}
	}
	if next > orders.MaxQty {
		return orders.Product{}, &orders.ValidationError{Field: "stock", Msg: fmt.Sprintf("stock of %s would exceed %d", p.ID, orders.MaxQty)}
	}
	p.Stock = int(next)
	p.StockVersion++
	p.UpdatedAt = time.Now().UTC()
	t.st.products[p.ID] = p
	return p, nil
}

func (t *tx) GetOrderForUpdate(_ context.Context, id string) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.NotFound(orders.ResourceOrder, id)
	}
	return o.Clone(), nil
}

func (t *tx) FindOrderByExternalID(_ context.Context, externalID string) (orders.Order, error) {
	for _, o := range t.st.orders {
		if o.ExternalID != "" && o.ExternalID == externalID {
			return o.Clone(), nil
		}
	}
	return orders.Order{}, orders.NotFound(orders.ResourceOrder, externalID)
}

func (t *tx) InsertOrder(_ context.Context, o orders.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, orders.ErrDuplicate)
	}
	if o.ExternalID != "" {
		if _, err := t.FindOrderByExternalID(context.Background(), o.ExternalID); err == nil {
			return fmt.Errorf("order external_id %s: %w", o.ExternalID, orders.ErrDuplicate)
		}
	}
	t.st.orders[o.ID] = o.Clone()
	return nil
}

func (t *tx) UpdateOrder(_ context.Context, o orders.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return orders.NotFound(orders.ResourceOrder, o.ID)
	}
	t.st.orders[o.ID] = o.Clone()
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := t.st.orders[id]; !ok {
		return orders.NotFound(orders.ResourceOrder, id)
	}
	delete(t.st.orders, id)
	return nil
}
