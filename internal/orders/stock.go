package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// StockChange is one applied ledger adjustment.
type StockChange struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`
	// Version is the product's StockVersion after this change; consumers
	// use it to drop levels older than one already applied.
	Version int64 `json:"version"`
}

type adjustment struct {
	productID string
	delta     int
}

// plan folds items into one adjustment per product, sorted by product id so
// concurrent transactions lock rows in the same order. The quantity summed
// per product within one set may not exceed MaxQty.
func plan(sets ...signed) ([]adjustment, error) {
	net := map[string]int64{}
	for _, s := range sets {
		sum := map[string]int64{}
		for _, it := range s.items {
			if it.Qty < 0 || it.Qty > MaxQty {
				return nil, invalid("items", fmt.Sprintf("quantity for product %s must be between 0 and %d", it.ProductID, MaxQty))
			}
			sum[it.ProductID] += int64(it.Qty)
			if sum[it.ProductID] > MaxQty {
				return nil, invalid("items", fmt.Sprintf("total quantity for product %s exceeds %d", it.ProductID, MaxQty))
			}
		}
		for id, q := range sum {
			net[id] += int64(s.sign) * q
		}
	}
	out := make([]adjustment, 0, len(net))
	for id, d := range net {
		if d == 0 {
			continue
		}
		out = append(out, adjustment{productID: id, delta: int(d)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out, nil
}

type signed struct {
	sign  int
	items []OrderItem
}

func apply(ctx context.Context, tx Tx, adj []adjustment) ([]StockChange, error) {
	changes := make([]StockChange, 0, len(adj))
	for _, a := range adj {
		p, err := tx.AdjustStock(ctx, a.productID, a.delta)
		if err != nil {
			return nil, err
		}
		changes = append(changes, StockChange{ProductID: a.productID, Delta: a.delta, Stock: p.Stock, Version: p.StockVersion})
	}
	return changes, nil
}

// deduct takes every item's quantity out of stock. The caller's transaction
// must be aborted on error; earlier adjustments are only undone by rollback.
func deduct(ctx context.Context, tx Tx, items []OrderItem) ([]StockChange, error) {
	adj, err := plan(signed{-1, items})
	if err != nil {
		return nil, err
	}
	return apply(ctx, tx, adj)
}

// restock returns every item's quantity to stock. A product that no longer
// exists means the order cannot be reversed; the whole reversal fails.
func restock(ctx context.Context, tx Tx, orderID string, items []OrderItem) ([]StockChange, error) {
	adj, err := plan(signed{+1, items})
	if err != nil {
		return nil, err
	}
	changes, err := apply(ctx, tx, adj)
	return changes, integrity(orderID, err)
}

// reconcile swaps the held quantities of old for those of next in one pass.
func reconcile(ctx context.Context, tx Tx, orderID string, old, next []OrderItem) ([]StockChange, error) {
	adj, err := plan(signed{+1, old}, signed{-1, next})
	if err != nil {
		return nil, err
	}
	changes, err := apply(ctx, tx, adj)
	return changes, integrity(orderID, err)
}

func integrity(orderID string, err error) error {
	if err != nil && errors.Is(err, ErrProductNotFound) {
		return &IntegrityError{OrderID: orderID, Err: err}
	}
	return err
}

// priceItems resolves every requested product and captures its current price.
func priceItems(ctx context.Context, tx Tx, in []ItemInput) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(in))
	for _, it := range in {
		p, err := tx.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, OrderItem{ProductID: p.ID, Qty: it.Qty, PriceCents: p.PriceCents})
	}
	return items, nil
}
