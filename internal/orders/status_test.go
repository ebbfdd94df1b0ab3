package orders

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	active := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}
	for _, from := range active {
		for _, to := range append(active, StatusCancelled) {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
		assert.False(t, CanTransition(StatusCancelled, from), "Cancelled -> %s", from)
	}
	assert.True(t, CanTransition(StatusCancelled, StatusCancelled))
	assert.False(t, CanTransition(StatusPending, "Lost"))
}

func TestPlan_AggregatesAndSorts(t *testing.T) {
	adj, err := plan(
		signed{+1, []OrderItem{{ProductID: "b", Qty: 2}, {ProductID: "a", Qty: 1}}},
		signed{-1, []OrderItem{{ProductID: "b", Qty: 2}, {ProductID: "c", Qty: 5}, {ProductID: "a", Qty: 3}}},
	)
	require.NoError(t, err)
	assert.Equal(t, []adjustment{{productID: "a", delta: -2}, {productID: "c", delta: -5}}, adj)
}

func TestPlan_RejectsQuantityOverflow(t *testing.T) {
	huge := OrderItem{ProductID: "p", Qty: 1 << 62}
	_, err := plan(signed{-1, []OrderItem{huge, huge, huge}})
	assert.ErrorIs(t, err, ErrValidation)

	// every line fits, their sum for one product does not
	full := OrderItem{ProductID: "p", Qty: MaxQty}
	_, err = plan(signed{-1, []OrderItem{full, full}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = plan(signed{+1, []OrderItem{{ProductID: "p", Qty: -1}}})
	assert.ErrorIs(t, err, ErrValidation)

	// a swap nets out before any bound on the delta applies
	adj, err := plan(signed{+1, []OrderItem{full}}, signed{-1, []OrderItem{full}})
	require.NoError(t, err)
	assert.Empty(t, adj)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "not_found", Outcome(NotFound(ResourceOrder, "x")))
	assert.Equal(t, "insufficient_stock", Outcome(&StockError{ProductID: "p"}))
	assert.Equal(t, "data_integrity", Outcome(&IntegrityError{OrderID: "o", Err: NotFound(ResourceProduct, "p")}))
	assert.Equal(t, "validation", Outcome(invalid("items", "empty")))
	assert.Equal(t, "referenced", Outcome(ErrReferenced))
}

func TestStockErrorMessageNamesProductAndAvailable(t *testing.T) {
	err := &StockError{ProductID: "p1", Name: "Widget", Requested: 6, Available: 4}
	assert.Contains(t, err.Error(), "Widget")
	assert.Contains(t, err.Error(), "Available: 4")
}

func TestTotal(t *testing.T) {
	var o Order
	require.NoError(t, o.SetItems([]OrderItem{{ProductID: "a", Qty: 3, PriceCents: 150}, {ProductID: "b", Qty: 1, PriceCents: 20}}))
	assert.Equal(t, int64(470), o.TotalCents)
}

func TestTotal_Overflow(t *testing.T) {
	_, err := Total([]OrderItem{{ProductID: "a", Qty: 3, PriceCents: math.MaxInt64 / 2}})
	assert.ErrorIs(t, err, ErrValidation)

	half := OrderItem{ProductID: "a", Qty: 1, PriceCents: math.MaxInt64/2 + 1}
	_, err = Total([]OrderItem{half, half})
	assert.ErrorIs(t, err, ErrValidation)

	var o Order
	require.NoError(t, o.SetItems([]OrderItem{{ProductID: "a", Qty: 1, PriceCents: 5}}))
	assert.Error(t, o.SetItems([]OrderItem{half, half}))
	assert.Equal(t, int64(5), o.TotalCents)
	assert.Len(t, o.Items, 1)
}
