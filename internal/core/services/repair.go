// internal/core/services/repair.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// RepairService manages repair work orders and their cost entries.
type RepairService struct {
	scope  ports.TransactionScope
	logger *slog.Logger
}

var _ ports.RepairService = (*RepairService)(nil)

// NewRepairService creates a new repair service
func NewRepairService(scope ports.TransactionScope, logger *slog.Logger) *RepairService {
	return &RepairService{
		scope:  scope,
		logger: logger.With(slog.String("service", "repair")),
	}
}

// CreateCase opens a repair on a repairable item and locks it IN_REPAIR.
func (s *RepairService) CreateCase(ctx context.Context, in ports.CreateRepairInput) (*domain.Repair, error) {
	const op = "repair.create"

	if in.InitialEntry != nil {
		if err := validateEntryInput(op, *in.InitialEntry); err != nil {
			return nil, err
		}
	}

	var repair *domain.Repair
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		item, err := resolveByIDOrIMEI(ctx, repos.Items(), op, in.ItemID, in.IMEI)
		if err != nil {
			return err
		}
		if err := domain.AssertRepairable(item); err != nil {
			return err
		}
		if err := assertNoOpenRepair(ctx, repos, op, item); err != nil {
			return err
		}
		if in.TechnicianID != nil {
			if _, err := repos.Users().GetActiveUserByID(ctx, *in.TechnicianID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		description := strings.TrimSpace(in.Description)
		if description == "" {
			description = domain.DefaultRepairDescription(item)
		}
		r := &domain.Repair{
			ID:           uuid.New(),
			ItemID:       item.ID,
			TechnicianID: in.TechnicianID,
			Description:  description,
			Status:       domain.RepairPending,
			StartedAt:    now,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		var entries []*domain.RepairEntry
		if in.InitialEntry != nil {
			e, err := newEntry(r.ID, *in.InitialEntry, now)
			if err != nil {
				return err
			}
			entries = append(entries, e)
			r.RecalculateCosts(entries)
		}

		if err := repos.Repairs().Create(ctx, r); err != nil {
			return fmt.Errorf("failed to create repair: %w", err)
		}
		for _, e := range entries {
			if err := repos.Repairs().CreateEntry(ctx, e); err != nil {
				return fmt.Errorf("failed to create repair entry: %w", err)
			}
		}

		if err := item.TransitionTo(domain.StatusInRepair); err != nil {
			return err
		}
		item.UpdatedAt = now
		if err := repos.Items().Update(ctx, item); err != nil {
			return fmt.Errorf("failed to lock item for repair: %w", err)
		}

		r.Entries = entries
		repair = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "repair opened",
		slog.String("repair_id", repair.ID.String()),
		slog.String("item_id", repair.ItemID.String()))

	return repair, nil
}

// UpdateCase edits the case. Moving PENDING to DONE releases the item for
// sale and posts the repair cost to the originating purchase. The posting is
// informational: the purchase balance is left untouched.
func (s *RepairService) UpdateCase(ctx context.Context, id uuid.UUID, in ports.UpdateRepairInput) (*domain.Repair, error) {
	const op = "repair.update"

	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.Validation(op, "invalid repair status %q", *in.Status)
	}

	var (
		repair    *domain.Repair
		completed bool
	)
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		r, err := loadRepair(ctx, repos, op, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if in.TechnicianID != nil {
			if _, err := repos.Users().GetActiveUserByID(ctx, *in.TechnicianID); err != nil {
				return err
			}
			r.TechnicianID = in.TechnicianID
		}
		if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
			r.Description = strings.TrimSpace(*in.Description)
		}

		if in.Status != nil && *in.Status != r.Status {
			item, err := loadItem(ctx, repos.Items(), op, r.ItemID)
			if err != nil {
				return err
			}

			switch *in.Status {
			case domain.RepairDone:
				if err := completeRepair(ctx, repos, r, item, now); err != nil {
					return err
				}
				completed = true
			case domain.RepairPending:
				if err := assertNoOpenRepair(ctx, repos, op, item); err != nil {
					return err
				}
				r.Status = domain.RepairPending
				r.CompletedAt = nil
				if item.Status != domain.StatusSold && item.Status != domain.StatusInRepair {
					if err := item.TransitionTo(domain.StatusInRepair); err != nil {
						return err
					}
					item.UpdatedAt = now
					if err := repos.Items().Update(ctx, item); err != nil {
						return fmt.Errorf("failed to relock item: %w", err)
					}
				}
			}
		}

		r.UpdatedAt = now
		if err := repos.Repairs().Update(ctx, r); err != nil {
			return fmt.Errorf("failed to update repair: %w", err)
		}
		if r.Entries, err = repos.Repairs().ListEntries(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to list repair entries: %w", err)
		}
		repair = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "repair updated",
		slog.String("repair_id", id.String()),
		slog.String("status", string(repair.Status)),
		slog.Bool("completed", completed))

	return repair, nil
}

func completeRepair(ctx context.Context, repos ports.Repositories, r *domain.Repair, item *domain.InventoryItem, now time.Time) error {
	if item.Status != domain.StatusSold {
		if err := item.TransitionTo(domain.StatusReadyForSale); err != nil {
			return err
		}
		item.UpdatedAt = now
		if err := repos.Items().Update(ctx, item); err != nil {
			return fmt.Errorf("failed to release item: %w", err)
		}
	}
	return settleRepair(ctx, repos, r, item.ID, now)
}

// settleRepair marks r done and posts its cost against the purchase the item
// came from. The item itself is left alone.
func settleRepair(ctx context.Context, repos ports.Repositories, r *domain.Repair, itemID uuid.UUID, now time.Time) error {
	r.Status = domain.RepairDone
	r.CompletedAt = &now

	link, err := repos.Purchases().FindItemLink(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to find purchase link: %w", err)
	}
	if link == nil {
		return nil
	}

	act, err := domain.NewActivity(
		domain.PurchaseTarget(link.PurchaseID),
		domain.ActivityRepairCost,
		r.TotalCost(),
		now,
		fmt.Sprintf(domain.NoteRepairCostTemplate, r.Description),
	)
	if err != nil {
		return err
	}
	if err := repos.Activities().Append(ctx, act); err != nil {
		return fmt.Errorf("failed to post repair cost: %w", err)
	}
	return nil
}

// closeOpenRepairs settles the item's pending repairs. Used when a purchase
// edit moves the item out of IN_REPAIR.
func closeOpenRepairs(ctx context.Context, repos ports.Repositories, itemID uuid.UUID, now time.Time) error {
	open, err := repos.Repairs().OpenForItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to list open repairs: %w", err)
	}
	for _, r := range open {
		if err := settleRepair(ctx, repos, r, itemID, now); err != nil {
			return err
		}
		r.UpdatedAt = now
		if err := repos.Repairs().Update(ctx, r); err != nil {
			return fmt.Errorf("failed to close repair: %w", err)
		}
	}
	return nil
}

// assertNoOpenRepair keeps an item to one pending repair at a time.
func assertNoOpenRepair(ctx context.Context, repos ports.Repositories, op string, item *domain.InventoryItem) error {
	open, err := repos.Repairs().OpenForItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to list open repairs: %w", err)
	}
	if len(open) > 0 {
		return domain.Conflict(op, "item %s already has an open repair", item.IMEI)
	}
	return nil
}

// AddEntry appends a cost entry and recomputes the case totals.
func (s *RepairService) AddEntry(ctx context.Context, repairID uuid.UUID, in ports.RepairEntryInput) (*domain.Repair, error) {
	const op = "repair.add_entry"

	if err := validateEntryInput(op, in); err != nil {
		return nil, err
	}

	var repair *domain.Repair
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		r, err := loadRepair(ctx, repos, op, repairID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		e, err := newEntry(r.ID, in, now)
		if err != nil {
			return err
		}
		if err := repos.Repairs().CreateEntry(ctx, e); err != nil {
			return fmt.Errorf("failed to create repair entry: %w", err)
		}

		repair, err = recalculate(ctx, repos, r, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "repair entry added",
		slog.String("repair_id", repairID.String()),
		slog.String("cost_total", repair.TotalCost().StringFixed(domain.MoneyScale)))

	return repair, nil
}

// UpdateEntry edits one entry and recomputes the case totals.
func (s *RepairService) UpdateEntry(ctx context.Context, repairID, entryID uuid.UUID, in ports.RepairEntryInput) (*domain.Repair, error) {
	const op = "repair.update_entry"

	if err := validateEntryCosts(op, in); err != nil {
		return nil, err
	}

	var repair *domain.Repair
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		r, err := loadRepair(ctx, repos, op, repairID)
		if err != nil {
			return err
		}
		e, err := repos.Repairs().GetEntry(ctx, entryID)
		if err != nil {
			return fmt.Errorf("failed to get repair entry: %w", err)
		}
		if e == nil || e.RepairID != r.ID {
			return domain.NotFound(op, "repair entry %s not found", entryID)
		}

		now := time.Now().UTC()
		if d := strings.TrimSpace(in.Description); d != "" {
			e.Description = d
		}
		if in.PartsCost != nil || in.LaborCost != nil {
			if in.PartsCost != nil {
				e.PartsCost = in.PartsCost
			}
			if in.LaborCost != nil {
				e.LaborCost = in.LaborCost
			}
			e.CostTotal = nil
		}
		if in.CostTotal != nil {
			e.CostTotal = in.CostTotal
		}
		if in.PerformedAt != nil {
			e.PerformedAt = in.PerformedAt.UTC()
		}
		if err := e.Normalize(); err != nil {
			return err
		}
		e.UpdatedAt = now
		if err := repos.Repairs().UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("failed to update repair entry: %w", err)
		}

		repair, err = recalculate(ctx, repos, r, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "repair entry updated",
		slog.String("repair_id", repairID.String()),
		slog.String("entry_id", entryID.String()))

	return repair, nil
}

func (s *RepairService) Get(ctx context.Context, id uuid.UUID) (*domain.Repair, error) {
	var repair *domain.Repair
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		r, err := loadRepair(ctx, repos, "repair.get", id)
		if err != nil {
			return err
		}
		if r.Entries, err = repos.Repairs().ListEntries(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to list repair entries: %w", err)
		}
		repair = r
		return nil
	})
	return repair, err
}

func (s *RepairService) List(ctx context.Context, params ports.RepairListParams) (*ports.ListResult[*domain.Repair], error) {
	params.Normalize()
	if params.Status != "" && !params.Status.Valid() {
		return nil, domain.Validation("repair.list", "invalid repair status %q", params.Status)
	}

	var (
		repairs []*domain.Repair
		total   int64
	)
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		repairs, total, err = repos.Repairs().List(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repairs: %w", err)
	}
	return ports.NewListResult(repairs, params.Page, total), nil
}

func recalculate(ctx context.Context, repos ports.Repositories, r *domain.Repair, now time.Time) (*domain.Repair, error) {
	entries, err := repos.Repairs().ListEntries(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repair entries: %w", err)
	}
	r.RecalculateCosts(entries)
	r.UpdatedAt = now
	if err := repos.Repairs().Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update repair costs: %w", err)
	}
	r.Entries = entries
	return r, nil
}

func newEntry(repairID uuid.UUID, in ports.RepairEntryInput, now time.Time) (*domain.RepairEntry, error) {
	e := &domain.RepairEntry{
		ID:          uuid.New(),
		RepairID:    repairID,
		Description: strings.TrimSpace(in.Description),
		PartsCost:   in.PartsCost,
		LaborCost:   in.LaborCost,
		CostTotal:   in.CostTotal,
		PerformedAt: timeOrNow(in.PerformedAt),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Normalize(); err != nil {
		return nil, err
	}
	return e, nil
}

func validateEntryInput(op string, in ports.RepairEntryInput) error {
	if strings.TrimSpace(in.Description) == "" {
		return domain.Validation(op, "entry description is required")
	}
	return validateEntryCosts(op, in)
}

func validateEntryCosts(op string, in ports.RepairEntryInput) error {
	if in.PartsCost != nil {
		if err := validateMoney(op, "parts_cost", *in.PartsCost); err != nil {
			return err
		}
	}
	if in.LaborCost != nil {
		if err := validateMoney(op, "labor_cost", *in.LaborCost); err != nil {
			return err
		}
	}
	if in.CostTotal != nil {
		if err := validateMoney(op, "cost_total", *in.CostTotal); err != nil {
			return err
		}
	}
	return nil
}

func loadRepair(ctx context.Context, repos ports.Repositories, op string, id uuid.UUID) (*domain.Repair, error) {
	r, err := repos.Repairs().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get repair: %w", err)
	}
	if r == nil {
		return nil, domain.NotFound(op, "repair %s not found", id)
	}
	return r, nil
}
