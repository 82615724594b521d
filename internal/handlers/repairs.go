// internal/handlers/repairs.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// RepairHandler handles repair work orders
type RepairHandler struct {
	service ports.RepairService
	cache   ports.LedgerCache
	logger  *slog.Logger
}

func NewRepairHandler(service ports.RepairService, cache ports.LedgerCache, logger *slog.Logger) *RepairHandler {
	return &RepairHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "repairs")),
	}
}

// CreateRepair handles POST /api/v1/repairs
func (h *RepairHandler) CreateRepair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRepairRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "create repair", err)
		return
	}

	repair, err := h.service.CreateCase(ctx, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "create repair", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "repair opened",
		slog.String("repair_id", repair.ID.String()),
		slog.String("item_id", repair.ItemID.String()))

	respondJSON(w, h.logger, http.StatusCreated, newRepairView(repair))
}

// GetRepair handles GET /api/v1/repairs/{id}
func (h *RepairHandler) GetRepair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "get repair", err)
		return
	}

	view, err := cachedRead(ctx, h.cache, redis_a.BuildKey(redis_a.PrefixRepair, id.String()),
		func(ctx context.Context) (RepairView, error) {
			repair, err := h.service.Get(ctx, id)
			if err != nil {
				return RepairView{}, err
			}
			return newRepairView(repair), nil
		})
	if err != nil {
		handleError(w, r, h.logger, "get repair", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

// ListRepairs handles GET /api/v1/repairs
func (h *RepairHandler) ListRepairs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := ports.RepairListParams{
		Page:   parsePage(r),
		Status: domain.RepairStatus(r.URL.Query().Get("status")),
	}
	var err error
	if params.ItemID, err = queryUUID(r, "item_id"); err != nil {
		handleError(w, r, h.logger, "list repairs", err)
		return
	}
	if params.TechnicianID, err = queryUUID(r, "technician_id"); err != nil {
		handleError(w, r, h.logger, "list repairs", err)
		return
	}

	result, err := h.service.List(ctx, params)
	if err != nil {
		handleError(w, r, h.logger, "list repairs", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, newListView(result, newRepairView))
}

// UpdateRepair handles PUT /api/v1/repairs/{id}
func (h *RepairHandler) UpdateRepair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "update repair", err)
		return
	}

	var req UpdateRepairRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "update repair", err)
		return
	}

	repair, err := h.service.UpdateCase(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "update repair", err)
		return
	}
	invalidate(ctx, h.cache)

	h.logger.InfoContext(ctx, "repair updated",
		slog.String("repair_id", id.String()),
		slog.String("status", string(repair.Status)))

	respondJSON(w, h.logger, http.StatusOK, newRepairView(repair))
}

// AddEntry handles POST /api/v1/repairs/{id}/entries
func (h *RepairHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "add repair entry", err)
		return
	}

	var req RepairEntryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "add repair entry", err)
		return
	}

	repair, err := h.service.AddEntry(ctx, id, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "add repair entry", err)
		return
	}
	invalidate(ctx, h.cache)

	respondJSON(w, h.logger, http.StatusCreated, newRepairView(repair))
}

// UpdateEntry handles PUT /api/v1/repairs/{id}/entries/{entryId}
func (h *RepairHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, "update repair entry", err)
		return
	}
	entryID, err := pathUUID(r, "entryId")
	if err != nil {
		handleError(w, r, h.logger, "update repair entry", err)
		return
	}

	var req RepairEntryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleError(w, r, h.logger, "update repair entry", err)
		return
	}

	repair, err := h.service.UpdateEntry(ctx, id, entryID, req.toInput())
	if err != nil {
		handleError(w, r, h.logger, "update repair entry", err)
		return
	}
	invalidate(ctx, h.cache)

	respondJSON(w, h.logger, http.StatusOK, newRepairView(repair))
}
