package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
)

const headerIdempotencyKey = "Idempotency-Key"

type OrdersHandler struct {
	Service *orders.Service
	Cache   *redisx.OrderCache // optional
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.ExternalID == "" {
		req.ExternalID = r.Header.Get(headerIdempotencyKey)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Service.CreateOrder(ctx, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceOrder)
		return
	}
	h.cacheSet(ctx, o)

	if existed {
		writeJSON(w, http.StatusOK, map[string]any{"data": o, "idempotent": true})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": o})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.OrderFilter{Status: orders.Status(r.URL.Query().Get("status"))}
	if f.Status != "" && !f.Status.Valid() {
		badRequest(w, "invalid status filter")
		return
	}
	f.Page, f.Limit = paging(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Service.ListOrders(ctx, f)
	if err != nil {
		writeError(w, r, err, orders.ResourceOrder)
		return
	}
	writeJSON(w, http.StatusOK, list(p))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "order") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Cache != nil {
		o, ok, err := h.Cache.Get(ctx, id)
		if err != nil {
			logger.FromContext(ctx).Warn("order cache read", zap.String("order_id", id), zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, map[string]any{"data": o})
			return
		}
	}

	// 2) fallback store
	o, err := h.Service.GetOrder(ctx, id)
	if err != nil {
		writeError(w, r, err, orders.ResourceOrder)
		return
	}
	h.cacheSet(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "order") {
		return
	}
	var req orders.UpdateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.UpdateOrder(ctx, id, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceOrder)
		return
	}
	h.cacheSet(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "order") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.DeleteOrder(ctx, id)
	if err != nil {
		writeError(w, r, err, orders.ResourceOrder)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Tombstone(ctx, o); err != nil {
			logger.FromContext(ctx).Warn("order cache tombstone", zap.String("order_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Order " + id + " successfully deleted.",
		"deletedOrder": o,
	})
}

// cache cuma optimisasi, error-nya di-log saja. Snapshot yang lebih lama
// dari isi cache (atau tombstone) tidak ditulis.
func (h *OrdersHandler) cacheSet(ctx context.Context, o orders.Order) {
	if h.Cache == nil {
		return
	}
	if _, err := h.Cache.Set(ctx, o); err != nil {
		logger.FromContext(ctx).Warn("order cache write", zap.String("order_id", o.ID), zap.Error(err))
	}
}
