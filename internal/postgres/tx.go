package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

type txn struct{ q querier }

func (t *txn) GetSupplier(ctx context.Context, id string) (orders.Supplier, error) {
	sup, err := scanSupplier(t.q.QueryRow(ctx, `SELECT `+supplierCol+` FROM suppliers WHERE id = $1`, id))
	return sup, notFound(err, orders.ResourceSupplier, id)
}

func (t *txn) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	return p, notFound(err, orders.ResourceProduct, id)
}

// AdjustStock: the row lock taken by UPDATE serializes concurrent callers and
// the predicate is re-checked against the latest row version after the wait,
// so stock never drops below zero.
func (t *txn) AdjustStock(ctx context.Context, productID string, delta int) (orders.Product, error) {
	p, err := scanProduct(t.q.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, stock_version = stock_version + 1, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productCols, productID, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, err
	}

	var name string
	var stock int
	err = t.q.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, productID).Scan(&name, &stock)
	if err != nil {
		return orders.Product{}, notFound(err, orders.ResourceProduct, productID)
	}
	return orders.Product{}, &orders.StockError{ProductID: productID, Name: name, Requested: -delta, Available: stock}
}

func (t *txn) GetOrderForUpdate(ctx context.Context, id string) (orders.Order, error) {
	return getOrder(ctx, t.q, id, true)
}

func (t *txn) FindOrderByExternalID(ctx context.Context, externalID string) (orders.Order, error) {
	var id string
	err := t.q.QueryRow(ctx, `SELECT id FROM orders WHERE external_id = $1`, externalID).Scan(&id)
	if err != nil {
		return orders.Order{}, notFound(err, orders.ResourceOrder, externalID)
	}
	return getOrder(ctx, t.q, id, false)
}

func (t *txn) InsertOrder(ctx context.Context, o orders.Order) error {
	if _, err := t.q.Exec(ctx, `
		INSERT INTO orders(id, external_id, supplier_id, status, total_cents, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`,
		o.ID, o.ExternalID, o.SupplierID, string(o.Status), o.TotalCents, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return err
	}
	return t.insertItems(ctx, o)
}

func (t *txn) insertItems(ctx context.Context, o orders.Order) error {
	for i, it := range o.Items {
		if _, err := t.q.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Qty, it.PriceCents,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) UpdateOrder(ctx context.Context, o orders.Order) error {
	ct, err := t.q.Exec(ctx, `
		UPDATE orders SET supplier_id = $2, status = $3, total_cents = $4, updated_at = $5
		WHERE id = $1`,
		o.ID, o.SupplierID, string(o.Status), o.TotalCents, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.NotFound(orders.ResourceOrder, o.ID)
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	return t.insertItems(ctx, o)
}

func (t *txn) DeleteOrder(ctx context.Context, id string) error {
	ct, err := t.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.NotFound(orders.ResourceOrder, id)
	}
	return nil
}
