package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

// Store implements orders.Store on Postgres. Transactions run at READ
// COMMITTED; stock and order rows are protected by row locks.
type Store struct{ DB *pgxpool.Pool }

var _ orders.Store = (*Store)(nil)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	defer metrics.TrackDBOperation("tx")(time.Now())

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txn{q: tx}); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

const (
	orderCols   = `id, COALESCE(external_id, ''), supplier_id, status, total_cents, created_at, updated_at`
	productCols = `id, sku, name, price_cents, stock, stock_version, created_at, updated_at`
	supplierCol = `id, name, contact, created_at, updated_at`
)

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var status string
	err := row.Scan(&o.ID, &o.ExternalID, &o.SupplierID, &status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	o.Status = orders.Status(status)
	return o, err
}

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.StockVersion, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanSupplier(row pgx.Row) (orders.Supplier, error) {
	var s orders.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// notFound maps pgx.ErrNoRows to the resource's NotFoundError.
func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.NotFound(resource, id)
	}
	return err
}

func getOrder(ctx context.Context, q querier, id string, lock bool) (orders.Order, error) {
	sql := `SELECT ` + orderCols + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if err != nil {
		return orders.Order{}, notFound(err, orders.ResourceOrder, id)
	}
	items, err := loadItems(ctx, q, []string{o.ID})
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]orders.OrderItem, error) {
	out := make(map[string][]orders.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var oid string
		var it orders.OrderItem
		if err := rows.Scan(&oid, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out[oid] = append(out[oid], it)
	}
	return out, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	defer metrics.TrackDBOperation("get_order")(time.Now())
	return getOrder(ctx, s.DB, id, false)
}

func (s *Store) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, int, error) {
	defer metrics.TrackDBOperation("list_orders")(time.Now())
	_, limit, offset := orders.Normalize(f.Page, f.Limit)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE ($1::text = '' OR status = $1::text)`, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `SELECT `+orderCols+` FROM orders
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at, id LIMIT $2 OFFSET $3`, string(f.Status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []orders.Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	items, err := loadItems(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (s *Store) CreateProduct(ctx context.Context, p orders.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, sku, name, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SKU, p.Name, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("product with SKU %s: %w", p.SKU, mapErr(err))
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	return p, notFound(err, orders.ResourceProduct, id)
}

// UpdateProduct never touches stock; that column only moves through
// Tx.AdjustStock.
func (s *Store) UpdateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	out, err := scanProduct(s.DB.QueryRow(ctx, `
		UPDATE products SET sku = $2, name = $3, price_cents = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+productCols, p.ID, p.SKU, p.Name, p.PriceCents, p.UpdatedAt))
	if err != nil {
		return orders.Product{}, notFound(mapErr(err), orders.ResourceProduct, p.ID)
	}
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	defer metrics.TrackDBOperation("delete_product")(time.Now())
	tag, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return referenced(err, orders.ResourceProduct, id)
	}
	if tag.RowsAffected() == 0 {
		return orders.NotFound(orders.ResourceProduct, id)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, f orders.ProductFilter) ([]orders.Product, int, error) {
	defer metrics.TrackDBOperation("list_products")(time.Now())
	_, limit, offset := orders.Normalize(f.Page, f.Limit)
	const where = ` WHERE ($1::text = '' OR sku = $1::text) AND ($2::text = '' OR name ILIKE '%' || $2::text || '%')`

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, f.SKU, f.Name).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products`+where+
		` ORDER BY sku LIMIT $3 OFFSET $4`, f.SKU, f.Name, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []orders.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, sup orders.Supplier) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO suppliers(id, name, contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sup.ID, sup.Name, sup.Contact, sup.CreatedAt, sup.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetSupplier(ctx context.Context, id string) (orders.Supplier, error) {
	sup, err := scanSupplier(s.DB.QueryRow(ctx, `SELECT `+supplierCol+` FROM suppliers WHERE id = $1`, id))
	return sup, notFound(err, orders.ResourceSupplier, id)
}

func (s *Store) UpdateSupplier(ctx context.Context, sup orders.Supplier) (orders.Supplier, error) {
	out, err := scanSupplier(s.DB.QueryRow(ctx, `
		UPDATE suppliers SET name = $2, contact = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+supplierCol, sup.ID, sup.Name, sup.Contact, sup.UpdatedAt))
	if err != nil {
		return orders.Supplier{}, notFound(mapErr(err), orders.ResourceSupplier, sup.ID)
	}
	return out, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return referenced(err, orders.ResourceSupplier, id)
	}
	if tag.RowsAffected() == 0 {
		return orders.NotFound(orders.ResourceSupplier, id)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.Ping(ctx) }

func (s *Store) ListSuppliers(ctx context.Context, f orders.SupplierFilter) ([]orders.Supplier, int, error) {
	_, limit, offset := orders.Normalize(f.Page, f.Limit)
	const where = ` WHERE ($1::text = '' OR name ILIKE '%' || $1::text || '%')`

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, f.Name).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, `SELECT `+supplierCol+` FROM suppliers`+where+
		` ORDER BY name LIMIT $2 OFFSET $3`, f.Name, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []orders.Supplier{}
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sup)
	}
	return out, total, rows.Err()
}
