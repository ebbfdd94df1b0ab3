package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-inventory-orders/internal/orders")

// Service manages the order lifecycle. Create, Update and Delete each run as
// one transaction covering the order write and every stock adjustment.
type Service struct {
	Store       Store
	Publisher   Publisher // optional
	ServiceName string
	MaxRetries  int
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) events() emitter { return emitter{pub: s.Publisher, producer: s.ServiceName} }

func (s *Service) tx(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	return runTx(ctx, s.Store, op, s.MaxRetries, fn)
}

// finish records the outcome of op on span, metrics and log.
func finish(ctx context.Context, span trace.Span, op string, err error) {
	outcome := Outcome(err)
	metrics.RecordOrderOperation(op, outcome)
	span.SetAttributes(attribute.String("order.outcome", outcome))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if outcome == "data_integrity" || outcome == "error" {
		logger.FromContext(ctx).Error("order operation failed", zap.String("operation", op), zap.Error(err))
	}
}

func recordChanges(reason string, changes []StockChange) {
	for _, c := range changes {
		metrics.RecordStockChange(reason, c.Delta)
	}
}

// CreateOrder validates the supplier and products, deducts stock for every
// item and stores the order. Status defaults to Pending; asking for Cancelled
// fails with a ValidationError since such an order would hold stock nothing
// gives back. With a non-empty ExternalID a repeated call returns the stored
// order and existed=true without touching stock.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (out Order, existed bool, err error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder",
		trace.WithAttributes(attribute.String("supplier.id", in.SupplierID), attribute.Int("order.items", len(in.Items))))
	defer func() { finish(ctx, span, "create", err); span.End() }()

	if err = validateCreate(in); err != nil {
		return Order{}, false, err
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}

	var changes []StockChange
	err = s.tx(ctx, "create", func(ctx context.Context, tx Tx) error {
		existed, changes = false, nil
		if in.ExternalID != "" {
			prev, err := tx.FindOrderByExternalID(ctx, in.ExternalID)
			if err == nil {
				out, existed = prev, true
				return nil
			}
			if !errors.Is(err, ErrOrderNotFound) {
				return err
			}
		}
		if _, err := tx.GetSupplier(ctx, in.SupplierID); err != nil {
			return err
		}
		items, err := priceItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		now := s.now()
		o := Order{
			ID:         uuid.NewString(),
			ExternalID: in.ExternalID,
			SupplierID: in.SupplierID,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := o.SetItems(items); err != nil {
			return err
		}
		if changes, err = deduct(ctx, tx, items); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Order{}, false, err
	}
	span.SetAttributes(attribute.String("order.id", out.ID), attribute.Bool("order.existed", existed))
	if existed {
		return out, true, nil
	}

	recordChanges(ReasonOrderCreated, changes)
	ev := s.events()
	ev.order(ctx, EventOrderCreated, out, "")
	ev.stock(ctx, out.ID, ReasonOrderCreated, changes)
	logger.FromContext(ctx).Info("order created",
		zap.String("order_id", out.ID), zap.Int64("total_cents", out.TotalCents), zap.Int("items", len(out.Items)))
	return out, false, nil
}

// UpdateOrder applies in to the stored order. Cancelling restocks the
// order's items; a cancelled order cannot be moved to any other status.
func (s *Service) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (out Order, err error) {
	ctx, span := tracer.Start(ctx, "orders.UpdateOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { finish(ctx, span, "update", err); span.End() }()

	if err = validateUpdate(in); err != nil {
		return Order{}, err
	}

	var (
		prev    Status
		changes []StockChange
		reason  string
	)
	err = s.tx(ctx, "update", func(ctx context.Context, tx Tx) error {
		changes, reason = nil, ""
		cur, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prev = cur.Status
		next := cur.Clone()

		if in.Status != nil {
			if !CanTransition(cur.Status, *in.Status) {
				return fmt.Errorf("%w: cannot reactivate a cancelled order, create a new one", ErrInvalidTransition)
			}
			next.Status = *in.Status
		}
		if in.Items != nil && !cur.HoldsStock() {
			return fmt.Errorf("%w: cannot change items of a cancelled order", ErrInvalidTransition)
		}
		if in.SupplierID != nil && *in.SupplierID != cur.SupplierID {
			if _, err := tx.GetSupplier(ctx, *in.SupplierID); err != nil {
				return err
			}
			next.SupplierID = *in.SupplierID
		}

		switch {
		case cur.HoldsStock() && !next.HoldsStock():
			reason = ReasonOrderCancelled
			if changes, err = restock(ctx, tx, cur.ID, cur.Items); err != nil {
				return err
			}
		case in.Items != nil:
			reason = ReasonItemsChanged
			items, err := priceItems(ctx, tx, in.Items)
			if err != nil {
				return err
			}
			if err := next.SetItems(items); err != nil {
				return err
			}
			if changes, err = reconcile(ctx, tx, cur.ID, cur.Items, items); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now()
		if err := tx.UpdateOrder(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	recordChanges(reason, changes)
	ev := s.events()
	eventType := EventOrderUpdated
	if prev != StatusCancelled && out.Status == StatusCancelled {
		eventType = EventOrderCancelled
	}
	ev.order(ctx, eventType, out, prev)
	ev.stock(ctx, out.ID, reason, changes)
	logger.FromContext(ctx).Info("order updated",
		zap.String("order_id", out.ID), zap.String("from", string(prev)), zap.String("to", string(out.Status)))
	return out, nil
}

// DeleteOrder removes the order, restocking its items first unless it was
// already cancelled. It returns the deleted snapshot.
func (s *Service) DeleteOrder(ctx context.Context, id string) (out Order, err error) {
	ctx, span := tracer.Start(ctx, "orders.DeleteOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer func() { finish(ctx, span, "delete", err); span.End() }()

	var changes []StockChange
	err = s.tx(ctx, "delete", func(ctx context.Context, tx Tx) error {
		changes = nil
		cur, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.HoldsStock() {
			if changes, err = restock(ctx, tx, cur.ID, cur.Items); err != nil {
				return err
			}
		}
		if err := tx.DeleteOrder(ctx, cur.ID); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	recordChanges(ReasonOrderDeleted, changes)
	ev := s.events()
	ev.order(ctx, EventOrderDeleted, out, out.Status)
	ev.stock(ctx, out.ID, ReasonOrderDeleted, changes)
	logger.FromContext(ctx).Info("order deleted", zap.String("order_id", out.ID), zap.Int("restocked", len(changes)))
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f OrderFilter) (Page[Order], error) {
	if f.Status != "" && !f.Status.Valid() {
		return Page[Order]{}, invalid("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	f.Page, f.Limit, _ = Normalize(f.Page, f.Limit)
	items, total, err := s.Store.ListOrders(ctx, f)
	if err != nil {
		return Page[Order]{}, err
	}
	return Page[Order]{Items: items, Page: f.Page, Limit: f.Limit, TotalCount: total}, nil
}

func validateCreate(in CreateOrderInput) error {
	if in.SupplierID == "" {
		return invalid("supplier_id", "supplier ID is required for the order")
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return invalid("status", fmt.Sprintf("unknown status %q", in.Status))
		}
		if in.Status == StatusCancelled {
			return invalid("status", "an order cannot be created cancelled")
		}
	}
	return validateItems(in.Items)
}

func validateUpdate(in UpdateOrderInput) error {
	if in.Status != nil && !in.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", *in.Status))
	}
	if in.SupplierID != nil && *in.SupplierID == "" {
		return invalid("supplier_id", "supplier ID cannot be empty")
	}
	if in.Items != nil {
		if in.Status != nil && *in.Status == StatusCancelled {
			return invalid("items", "items cannot be changed while cancelling")
		}
		return validateItems(in.Items)
	}
	return nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return invalid("items", "order must contain at least one item")
	}
	for i, it := range items {
		if it.ProductID == "" {
			return invalid(fmt.Sprintf("items[%d].product_id", i), "product ID is required")
		}
		if it.Qty < 1 || it.Qty > MaxQty {
			return invalid(fmt.Sprintf("items[%d].qty", i), fmt.Sprintf("quantity must be between 1 and %d", MaxQty))
		}
	}
	return nil
}
