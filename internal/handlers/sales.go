// internal/handlers/sales.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	service ports.SaleService
	cache   ports.LedgerCache
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale handler. cache may be nil.
func NewSaleHandler(service ports.SaleService, cache ports.LedgerCache, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSaleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "create sale", err)
		return
	}

	sale, err := h.service.Create(ctx, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "create sale", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "sale created",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)))

	respondJSON(w, h.logger, http.StatusCreated, newSaleView(sale))
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "get sale", err)
		return
	}

	view, err := cachedRead(ctx, h.cache, redis_a.BuildKey(redis_a.PrefixSale, id.String()),
		func(ctx context.Context) (SaleView, error) {
			s, err := h.service.Get(ctx, id)
			if err != nil {
				return SaleView{}, err
			}
			return newSaleView(s), nil
		})
	if err != nil {
		handleError(w, r, h.logger, "get sale", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

// ListSales handles GET /api/v1/sales
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseTransactionParams(r)
	if err != nil {
		handleError(w, r, h.logger, "list sales", err)
		return
	}

	result, err := h.service.List(ctx, params)
	if err != nil {
		handleError(w, r, h.logger, "list sales", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, newListView(result, func(s *domain.Sale) SaleView {
		return newSaleView(s)
	}))
}

// UpdateSale handles PUT /api/v1/sales/{id}
func (h *SaleHandler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "update sale", err)
		return
	}

	var req UpdateSaleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "update sale", err)
		return
	}

	sale, err := h.service.Update(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "update sale", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "sale updated",
		slog.String("sale_id", id.String()))

	respondJSON(w, h.logger, http.StatusOK, newSaleView(sale))
}

// DeleteSale handles DELETE /api/v1/sales/{id}
func (h *SaleHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "delete sale", err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		handleError(w, r, h.logger, "delete sale", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "sale deleted",
		slog.String("sale_id", id.String()))

	w.WriteHeader(http.StatusNoContent)
}

// AddPayment handles POST /api/v1/sales/{id}/payments
func (h *SaleHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "record sale payment", err)
		return
	}

	var req PaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "record sale payment", err)
		return
	}

	sale, err := h.service.AddPayment(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "record sale payment", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "sale payment recorded",
		slog.String("sale_id", id.String()),
		slog.String("amount", money(req.Amount)),
		slog.String("remaining", money(sale.Remaining)))

	respondJSON(w, h.logger, http.StatusCreated, newSaleView(sale))
}

// ListActivities handles GET /api/v1/sales/{id}/activities
func (h *SaleHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "list sale activities", err)
		return
	}

	activities, err := h.service.ListActivities(ctx, id)
	if err != nil {
		handleError(w, r, h.logger, "list sale activities", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"sale_id": id,
		"activities":  newActivityViews(activities),
	})
}
