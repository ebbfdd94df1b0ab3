package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

type SuppliersHandler struct {
	Catalog *orders.Catalog
}

func (h *SuppliersHandler) Register(r chi.Router) {
	r.Post("/suppliers", h.createSupplier)
	r.Get("/suppliers", h.listSuppliers)
	r.Get("/suppliers/{id}", h.getSupplier)
	r.Put("/suppliers/{id}", h.updateSupplier)
	r.Delete("/suppliers/{id}", h.deleteSupplier)
}

func (h *SuppliersHandler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req orders.SupplierInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Catalog.CreateSupplier(ctx, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceSupplier)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": s})
}

func (h *SuppliersHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	f := orders.SupplierFilter{Name: r.URL.Query().Get("name")}
	f.Page, f.Limit = paging(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.ListSuppliers(ctx, f)
	if err != nil {
		writeError(w, r, err, orders.ResourceSupplier)
		return
	}
	writeJSON(w, http.StatusOK, list(p))
}

func (h *SuppliersHandler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "supplier") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Catalog.GetSupplier(ctx, id)
	if err != nil {
		writeError(w, r, err, orders.ResourceSupplier)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s})
}

func (h *SuppliersHandler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "supplier") {
		return
	}
	var req orders.SupplierUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Catalog.UpdateSupplier(ctx, id, req)
	if err != nil {
		writeError(w, r, err, orders.ResourceSupplier)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s})
}

func (h *SuppliersHandler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id, "supplier") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Catalog.DeleteSupplier(ctx, id); err != nil {
		writeError(w, r, err, orders.ResourceSupplier)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
