// internal/handlers/inventory.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// InventoryHandler serves read access to the item registry. Items are
// created by purchases and moved by sales and repairs, never directly.
type InventoryHandler struct {
	service ports.InventoryService
	cache   ports.LedgerCache
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service ports.InventoryService, cache ports.LedgerCache, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "inventory")),
	}
}

// GetItem handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "get inventory item", err)
		return
	}

	view, err := cachedRead(ctx, h.cache, redis_a.BuildKey(redis_a.PrefixItem, id.String()),
		func(ctx context.Context) (ItemView, error) {
			item, err := h.service.Get(ctx, id)
			if err != nil {
				return ItemView{}, err
			}
			return newItemView(item), nil
		})
	if err != nil {
		handleError(w, r, h.logger, "get inventory item", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

// GetItemByIMEI handles GET /api/v1/inventory/imei/{imei}
func (h *InventoryHandler) GetItemByIMEI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	imei := strings.TrimSpace(r.PathValue("imei"))
	if imei == "" {
		handleError(w, r, h.logger, "find inventory item", badRequest("imei is required"))
		return
	}

	view, err := cachedRead(ctx, h.cache, redis_a.BuildKey(redis_a.PrefixItem, "imei", imei),
		func(ctx context.Context) (ItemView, error) {
			item, err := h.service.GetByIMEI(ctx, imei)
			if err != nil {
				return ItemView{}, err
			}
			return newItemView(item), nil
		})
	if err != nil {
		handleError(w, r, h.logger, "find inventory item", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

// ListItems handles GET /api/v1/inventory
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	params := ports.ItemListParams{
		Page:      parsePage(r),
		Search:    q.Get("search"),
		Brand:     q.Get("brand"),
		Status:    domain.ItemStatus(q.Get("status")),
		Condition: domain.ItemCondition(q.Get("condition")),
	}
	var err error
	if params.PurchaseID, err = queryUUID(r, "purchase_id"); err != nil {
		handleError(w, r, h.logger, "list inventory", err)
		return
	}
	if params.SaleID, err = queryUUID(r, "sale_id"); err != nil {
		handleError(w, r, h.logger, "list inventory", err)
		return
	}

	result, err := h.service.List(ctx, params)
	if err != nil {
		handleError(w, r, h.logger, "list inventory", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, newListView(result, newItemView))
}
