// internal/handlers/purchases.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// PurchaseHandler handles purchase-related HTTP requests
type PurchaseHandler struct {
	service ports.PurchaseService
	cache   ports.LedgerCache
	logger  *slog.Logger
}

// NewPurchaseHandler creates a new purchase handler. cache may be nil.
func NewPurchaseHandler(service ports.PurchaseService, cache ports.LedgerCache, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "purchases")),
	}
}

// CreatePurchase handles POST /api/v1/purchases
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreatePurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "create purchase", err)
		return
	}

	purchase, err := h.service.Create(ctx, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "create purchase", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "purchase created",
		slog.String("purchase_id", purchase.ID.String()),
		slog.Int("items", len(purchase.Items)))

	respondJSON(w, h.logger, http.StatusCreated, newPurchaseView(purchase))
}

// GetPurchase handles GET /api/v1/purchases/{id}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "get purchase", err)
		return
	}

	view, err := cachedRead(ctx, h.cache, redis_a.BuildKey(redis_a.PrefixPurchase, id.String()),
		func(ctx context.Context) (PurchaseView, error) {
			p, err := h.service.Get(ctx, id)
			if err != nil {
				return PurchaseView{}, err
			}
			return newPurchaseView(p), nil
		})
	if err != nil {
		handleError(w, r, h.logger, "get purchase", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

// ListPurchases handles GET /api/v1/purchases
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseTransactionParams(r)
	if err != nil {
		handleError(w, r, h.logger, "list purchases", err)
		return
	}

	result, err := h.service.List(ctx, params)
	if err != nil {
		handleError(w, r, h.logger, "list purchases", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, newListView(result, func(p *domain.Purchase) PurchaseView {
		return newPurchaseView(p)
	}))
}

// UpdatePurchase handles PUT /api/v1/purchases/{id}
func (h *PurchaseHandler) UpdatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "update purchase", err)
		return
	}

	var req UpdatePurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "update purchase", err)
		return
	}

	purchase, err := h.service.Update(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "update purchase", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "purchase updated",
		slog.String("purchase_id", id.String()))

	respondJSON(w, h.logger, http.StatusOK, newPurchaseView(purchase))
}

// DeletePurchase handles DELETE /api/v1/purchases/{id}
func (h *PurchaseHandler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "delete purchase", err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		handleError(w, r, h.logger, "delete purchase", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "purchase deleted",
		slog.String("purchase_id", id.String()))

	w.WriteHeader(http.StatusNoContent)
}

// AddPayment handles POST /api/v1/purchases/{id}/payments
func (h *PurchaseHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "record purchase payment", err)
		return
	}

	var req PaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "record purchase payment", err)
		return
	}

	purchase, err := h.service.AddPayment(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "record purchase payment", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "purchase payment recorded",
		slog.String("purchase_id", id.String()),
		slog.String("amount", money(req.Amount)),
		slog.String("remaining", money(purchase.Remaining)))

	respondJSON(w, h.logger, http.StatusCreated, newPurchaseView(purchase))
}

// ListActivities handles GET /api/v1/purchases/{id}/activities
func (h *PurchaseHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "list purchase activities", err)
		return
	}

	activities, err := h.service.ListActivities(ctx, id)
	if err != nil {
		handleError(w, r, h.logger, "list purchase activities", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"purchase_id": id,
		"activities":  newActivityViews(activities),
	})
}

// parseTransactionParams reads the filters shared by purchase and sale lists.
func parseTransactionParams(r *http.Request) (ports.TransactionListParams, error) {
	params := ports.TransactionListParams{
		Page:        parsePage(r),
		PaymentType: domain.PaymentType(r.URL.Query().Get("payment_type")),
	}
	if params.PaymentType != "" && !params.PaymentType.Valid() {
		return params, badRequest("Invalid payment_type")
	}

	var err error
	if params.CustomerID, err = queryUUID(r, "customer_id"); err != nil {
		return params, err
	}
	if params.From, err = queryTime(r, "from"); err != nil {
		return params, err
	}
	if params.To, err = queryTime(r, "to"); err != nil {
		return params, err
	}
	if params.HasRemaining, err = queryBool(r, "has_remaining"); err != nil {
		return params, err
	}
	return params, nil
}

