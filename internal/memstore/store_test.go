package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

func seedProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	require.NoError(t, s.CreateProduct(context.Background(), orders.Product{ID: id, SKU: "SKU-" + id, Name: "Product " + id, PriceCents: 100, Stock: stock}))
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestAdjustStock_FloorAtZero(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", 3)

	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.AdjustStock(ctx, "p1", -4)
		return err
	})

	var se *orders.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Available)
	assert.Equal(t, 4, se.Requested)
	assert.Equal(t, 3, stockOf(t, s, "p1"))
}

func TestAdjustStock_UnknownProduct(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.AdjustStock(ctx, "nope", 1)
		return err
	})
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestInTx_RollsBackEveryWriteOnError(t *testing.T) {
	s := New()
	seedProduct(t, s, "a", 5)
	seedProduct(t, s, "b", 5)
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		if _, err := tx.AdjustStock(ctx, "a", -2); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, orders.Order{ID: "o1", SupplierID: "s"}); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, stockOf(t, s, "a"))
	_, err = s.GetOrder(context.Background(), "o1")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestInTx_CanceledContextAbortsBeforeCommit(t *testing.T) {
	s := New()
	seedProduct(t, s, "a", 5)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.AdjustStock(ctx, "a", -1)
		cancel()
		return err
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, stockOf(t, s, "a"))
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	s := New()
	seedProduct(t, s, "a", 1)
	err := s.CreateProduct(context.Background(), orders.Product{ID: "b", SKU: "SKU-a", Name: "dup"})
	assert.ErrorIs(t, err, orders.ErrDuplicate)
}

func TestListProducts_FilterAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		seedProduct(t, s, id, 1)
	}
	require.NoError(t, s.CreateProduct(ctx, orders.Product{ID: "w", SKU: "W-1", Name: "Blue Widget"}))

	items, total, err := s.ListProducts(ctx, orders.ProductFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "SKU-a", items[0].SKU)

	items, total, err = s.ListProducts(ctx, orders.ProductFilter{Name: "widget"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "w", items[0].ID)

	items, _, err = s.ListProducts(ctx, orders.ProductFilter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdjustStock_CeilingAndVersion(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", orders.MaxQty-1)

	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, err := tx.AdjustStock(ctx, "p1", 2)
		return err
	})
	assert.ErrorIs(t, err, orders.ErrValidation)
	assert.Equal(t, orders.MaxQty-1, stockOf(t, s, "p1"))

	var got orders.Product
	err = s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		if _, err := tx.AdjustStock(ctx, "p1", -5); err != nil {
			return err
		}
		got, err = tx.AdjustStock(ctx, "p1", 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.StockVersion)
}

func TestUpdateProduct_KeepsStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 7)
	seedProduct(t, s, "b", 1)

	p, err := s.UpdateProduct(ctx, orders.Product{ID: "a", SKU: "SKU-a", Name: "renamed", PriceCents: 900, Stock: 9999})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
	assert.Equal(t, int64(900), p.PriceCents)

	_, err = s.UpdateProduct(ctx, orders.Product{ID: "a", SKU: "SKU-b", Name: "x"})
	assert.ErrorIs(t, err, orders.ErrDuplicate)
	_, err = s.UpdateProduct(ctx, orders.Product{ID: "zz", SKU: "SKU-zz"})
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestDelete_ReferencedRowsStay(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "a", 5)
	require.NoError(t, s.CreateSupplier(ctx, orders.Supplier{ID: "s1", Name: "Acme", Contact: "c"}))
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.InsertOrder(ctx, orders.Order{ID: "o1", SupplierID: "s1", Items: []orders.OrderItem{{ProductID: "a", Qty: 1}}})
	}))

	assert.ErrorIs(t, s.DeleteProduct(ctx, "a"), orders.ErrReferenced)
	assert.ErrorIs(t, s.DeleteSupplier(ctx, "s1"), orders.ErrReferenced)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.DeleteOrder(ctx, "o1")
	}))
	require.NoError(t, s.DeleteProduct(ctx, "a"))
	require.NoError(t, s.DeleteSupplier(ctx, "s1"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "a"), orders.ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteSupplier(ctx, "s1"), orders.ErrSupplierNotFound)
}
