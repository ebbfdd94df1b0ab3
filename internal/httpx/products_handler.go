package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
)

type ProductsHandler struct {
	Catalog *orders.Catalog
	Redis   redis.Cmdable // optional, backs /products/low-stock
}

type adjustStockReq struct {
	Delta int `json:"delta"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/low-stock", h.lowStock)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
	r.Post("/products/{id}/stock", h.adjustStock)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req orders.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ProductFilter{SKU: q.Get("sku"), Name: q.Get("name")}
	f.Page, f.Limit = paging(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.ListProducts(ctx, f)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusOK, list(p))
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "product") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "product") {
		return
	}
	var req orders.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.UpdateProduct(ctx, id, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "product") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	if h.Redis != nil {
		if err := redisx.ForgetStock(ctx, h.Redis, id); err != nil {
			logger.FromContext(ctx).Warn("forget stock snapshot", zap.String("product_id", id), zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "product") {
		return
	}
	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Catalog.AdjustProductStock(ctx, id, req.Delta)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

// lowStock serves the snapshot kept by the stockwatch consumer, so it lags
// the ledger by the event pipeline.
func (h *ProductsHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	if h.Redis == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "low-stock view unavailable"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	levels, err := redisx.LowStock(ctx, h.Redis)
	if err != nil {
		writeError(w, r, err, orders.ResourceProduct)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(levels), "data": levels})
}
