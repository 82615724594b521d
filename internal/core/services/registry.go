// internal/core/services/registry.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// InventoryService exposes read access to the item registry.
type InventoryService struct {
	scope  ports.TransactionScope
	logger *slog.Logger
}

var _ ports.InventoryService = (*InventoryService)(nil)

// NewInventoryService creates a new inventory service
func NewInventoryService(scope ports.TransactionScope, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		scope:  scope,
		logger: logger.With(slog.String("service", "inventory")),
	}
}

func (s *InventoryService) Get(ctx context.Context, id uuid.UUID) (*domain.InventoryItem, error) {
	var item *domain.InventoryItem
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		item, err = loadItem(ctx, repos.Items(), "inventory.get", id)
		return err
	})
	return item, err
}

func (s *InventoryService) GetByIMEI(ctx context.Context, imei string) (*domain.InventoryItem, error) {
	var item *domain.InventoryItem
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		item, err = resolveByIDOrIMEI(ctx, repos.Items(), "inventory.get_by_imei", nil, &imei)
		return err
	})
	return item, err
}

func (s *InventoryService) List(ctx context.Context, params ports.ItemListParams) (*ports.ListResult[*domain.InventoryItem], error) {
	params.Normalize()
	if params.Status != "" && !params.Status.Valid() {
		return nil, domain.Validation("inventory.list", "invalid status %q", params.Status)
	}

	var (
		items []*domain.InventoryItem
		total int64
	)
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		items, total, err = repos.Items().List(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return ports.NewListResult(items, params.Page, total), nil
}

// ensureImeiUnique fails with Conflict if an active item already holds imei.
func ensureImeiUnique(ctx context.Context, items ports.ItemRepository, op, imei string) error {
	exists, err := items.ExistsActiveIMEI(ctx, imei)
	if err != nil {
		return fmt.Errorf("failed to check imei: %w", err)
	}
	if exists {
		return domain.Conflict(op, "imei %s is already registered", imei)
	}
	return nil
}

// resolveByIDOrIMEI loads an item by id, by imei, or by both when they agree.
func resolveByIDOrIMEI(ctx context.Context, items ports.ItemRepository, op string, id *uuid.UUID, imei *string) (*domain.InventoryItem, error) {
	var trimmed string
	if imei != nil {
		trimmed = strings.TrimSpace(*imei)
	}
	if id == nil && trimmed == "" {
		return nil, domain.Validation(op, "item id or imei is required")
	}

	if id != nil {
		item, err := loadItem(ctx, items, op, *id)
		if err != nil {
			return nil, err
		}
		if trimmed != "" && item.IMEI != trimmed {
			return nil, domain.Validation(op, "item %s does not have imei %s", id, trimmed)
		}
		return item, nil
	}

	item, err := items.GetByIMEI(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to find item by imei: %w", err)
	}
	if item == nil {
		return nil, domain.NotFound(op, "item with imei %s not found", trimmed)
	}
	return item, nil
}

func loadItem(ctx context.Context, items ports.ItemRepository, op string, id uuid.UUID) (*domain.InventoryItem, error) {
	item, err := items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, domain.NotFound(op, "item %s not found", id)
	}
	return item, nil
}
