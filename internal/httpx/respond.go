package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-inventory-orders/internal/logger"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps a domain error to a status code. target is the resource
// named by the URL: a missing target is 404, a missing reference inside the
// request body is 400.
func writeError(w http.ResponseWriter, r *http.Request, err error, target string) {
	code, body := errorResponse(err, target)
	if code >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, code, body)
}

func errorResponse(err error, target string) (int, map[string]any) {
	var (
		nf *orders.NotFoundError
		se *orders.StockError
	)
	switch {
	case errors.Is(err, orders.ErrDataIntegrity):
		return http.StatusInternalServerError, map[string]any{"error": "data integrity fault"}
	case errors.As(err, &nf):
		if nf.Resource == target {
			return http.StatusNotFound, map[string]any{"error": err.Error()}
		}
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	case errors.As(err, &se):
		return http.StatusConflict, map[string]any{
			"error":      se.Error(),
			"product_id": se.ProductID,
			"available":  se.Available,
			"requested":  se.Requested,
		}
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest, map[string]any{"error": err.Error()}
	case errors.Is(err, orders.ErrReferenced):
		return http.StatusConflict, map[string]any{"error": err.Error()}
	case errors.Is(err, orders.ErrDuplicate):
		return http.StatusConflict, map[string]any{"error": err.Error()}
	case errors.Is(err, orders.ErrTxConflict):
		return http.StatusConflict, map[string]any{"error": "concurrent update, retry the request"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, map[string]any{"error": "request timed out"}
	}
	return http.StatusInternalServerError, map[string]any{"error": "internal server error"}
}

// validID writes a 400 and returns false when id is not a uuid.
func validID(w http.ResponseWriter, id, resource string) bool {
	if _, err := uuid.Parse(id); err != nil {
		badRequest(w, "invalid "+resource+" ID format")
		return false
	}
	return true
}

func paging(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	return page, limit
}

type listResponse[T any] struct {
	Count      int `json:"count"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
	Data       []T `json:"data"`
}

func list[T any](p orders.Page[T]) listResponse[T] {
	data := p.Items
	if data == nil {
		data = []T{}
	}
	return listResponse[T]{
		Count:      len(data),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(),
		TotalCount: p.TotalCount,
		Data:       data,
	}
}
