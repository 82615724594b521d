package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

func intakeRepair(t *testing.T, l *ledger, itemID uuid.UUID) *domain.Repair {
	t.Helper()
	list, err := l.repairs.List(context.Background(), ports.RepairListParams{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	return list.Items[0]
}

func TestRepairService_IntakeRepair(t *testing.T) {
	l := newLedger(t)
	_, item := l.stock(t, func(pl *ports.PurchaseLine) {
		pl.Condition = domain.ConditionBroken
		pl.KnownIssues = "no power"
	})

	r := intakeRepair(t, l, item.ID)
	assert.Equal(t, domain.RepairPending, r.Status)
	assert.Equal(t, "no power", r.Description)
	assert.True(t, r.TotalCost().IsZero())
}

func TestRepairService_CompletePostsCostOnce(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	p, item := l.stock(t, func(pl *ports.PurchaseLine) { pl.Condition = domain.ConditionBroken })
	r := intakeRepair(t, l, item.ID)

	r, err := l.repairs.AddEntry(ctx, r.ID, ports.RepairEntryInput{
		Description: "replace battery",
		PartsCost:   helpers.DecPtr("30"),
		LaborCost:   helpers.DecPtr("20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", r.TotalCost().StringFixed(2))

	done := domain.RepairDone
	r, err = l.repairs.UpdateCase(ctx, r.ID, ports.UpdateRepairInput{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.RepairDone, r.Status)
	assert.NotNil(t, r.CompletedAt)

	_, err = l.repairs.UpdateCase(ctx, r.ID, ports.UpdateRepairInput{Status: &done})
	require.NoError(t, err)

	released, err := l.inventory.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForSale, released.Status)

	activities, err := l.purchases.ListActivities(ctx, p.ID)
	require.NoError(t, err)
	var costs []*domain.Activity
	for _, a := range activities {
		if a.Kind == domain.ActivityRepairCost {
			costs = append(costs, a)
		}
	}
	require.Len(t, costs, 1)
	assert.Equal(t, "50.00", costs[0].Amount.StringFixed(2))

	purchase, err := l.purchases.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.Remaining.Equal(purchase.Remaining), "repair cost leaves the balance alone")

	report, err := l.auditor.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Zero(t, report.WarningCount)
}

func TestRepairService_CreateCase(t *testing.T) {
	ctx := context.Background()
	technician := domain.User{ID: uuid.New(), FullName: "Sam Tech", Role: "technician", IsActive: true}
	retired := domain.User{ID: uuid.New(), FullName: "Old Tech", Role: "technician", IsActive: false}

	tests := []struct {
		name         string
		prepare      func(t *testing.T, l *ledger) ports.CreateRepairInput
		expectedKind domain.ErrorKind
		check        func(t *testing.T, l *ledger, r *domain.Repair)
	}{
		{
			name: "locks_item_in_repair",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				_, item := l.stock(t)
				return ports.CreateRepairInput{
					IMEI:         helpers.Ptr(item.IMEI),
					TechnicianID: &technician.ID,
					Description:  "screen swap",
					InitialEntry: &ports.RepairEntryInput{Description: "screen", CostTotal: helpers.DecPtr("45.5")},
				}
			},
			check: func(t *testing.T, l *ledger, r *domain.Repair) {
				assert.Equal(t, "45.50", r.TotalCost().StringFixed(2))
				require.Len(t, r.Entries, 1)
				item, err := l.inventory.Get(context.Background(), r.ItemID)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusInRepair, item.Status)
			},
		},
		{
			name: "open_repair_conflicts",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				_, item := l.stock(t, func(pl *ports.PurchaseLine) { pl.Condition = domain.ConditionBroken })
				return ports.CreateRepairInput{ItemID: &item.ID}
			},
			expectedKind: domain.KindConflict,
		},
		{
			name: "sold_item_conflicts",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				_, item := l.stock(t)
				l.sell(t, item.ID, "100")
				return ports.CreateRepairInput{ItemID: &item.ID}
			},
			expectedKind: domain.KindConflict,
		},
		{
			name: "inactive_technician_not_found",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				_, item := l.stock(t)
				return ports.CreateRepairInput{ItemID: &item.ID, TechnicianID: &retired.ID}
			},
			expectedKind: domain.KindNotFound,
		},
		{
			name: "entry_without_description_rejected",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				_, item := l.stock(t)
				return ports.CreateRepairInput{ItemID: &item.ID, InitialEntry: &ports.RepairEntryInput{CostTotal: helpers.DecPtr("1")}}
			},
			expectedKind: domain.KindValidation,
		},
		{
			name: "item_reference_required",
			prepare: func(t *testing.T, l *ledger) ports.CreateRepairInput {
				return ports.CreateRepairInput{}
			},
			expectedKind: domain.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			l.store.AddUser(technician)
			l.store.AddUser(retired)

			r, err := l.repairs.CreateCase(ctx, tt.prepare(t, l))

			if tt.expectedKind != "" {
				requireKind(t, err, tt.expectedKind)
				return
			}
			require.NoError(t, err)
			tt.check(t, l, r)
		})
	}
}

func TestRepairService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	_, item := l.stock(t)

	r, err := l.repairs.CreateCase(ctx, ports.CreateRepairInput{
		ItemID:       &item.ID,
		InitialEntry: &ports.RepairEntryInput{Description: "diagnostics", LaborCost: helpers.DecPtr("15")},
	})
	require.NoError(t, err)
	r, err = l.repairs.AddEntry(ctx, r.ID, ports.RepairEntryInput{Description: "charging port", PartsCost: helpers.DecPtr("12.25")})
	require.NoError(t, err)
	assert.Equal(t, "27.25", r.TotalCost().StringFixed(2))

	entryID := r.Entries[0].ID
	r, err = l.repairs.UpdateEntry(ctx, r.ID, entryID, ports.RepairEntryInput{LaborCost: helpers.DecPtr("25")})
	require.NoError(t, err)
	assert.Equal(t, "37.25", r.TotalCost().StringFixed(2))
	assert.Equal(t, "12.25", r.PartsCost.StringFixed(2))
	assert.Equal(t, "25.00", r.LaborCost.StringFixed(2))

	_, err = l.repairs.UpdateEntry(ctx, r.ID, uuid.New(), ports.RepairEntryInput{LaborCost: helpers.DecPtr("1")})
	requireKind(t, err, domain.KindNotFound)

	_, err = l.repairs.UpdateEntry(ctx, r.ID, entryID, ports.RepairEntryInput{CostTotal: helpers.DecPtr("-1")})
	requireKind(t, err, domain.KindValidation)
}

func TestRepairService_ReopenRelocksItem(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	_, item := l.stock(t, func(pl *ports.PurchaseLine) { pl.Condition = domain.ConditionBroken })
	r := intakeRepair(t, l, item.ID)

	done, pending := domain.RepairDone, domain.RepairPending
	_, err := l.repairs.UpdateCase(ctx, r.ID, ports.UpdateRepairInput{Status: &done})
	require.NoError(t, err)
	r, err = l.repairs.UpdateCase(ctx, r.ID, ports.UpdateRepairInput{Status: &pending})
	require.NoError(t, err)
	assert.Nil(t, r.CompletedAt)

	got, err := l.inventory.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInRepair, got.Status)

	pendingList, err := l.repairs.List(ctx, ports.RepairListParams{Status: domain.RepairPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pendingList.TotalCount)

	_, err = l.repairs.List(ctx, ports.RepairListParams{Status: "BROKEN"})
	requireKind(t, err, domain.KindValidation)
}

func TestRepairService_PurchaseEditClosesIntakeRepair(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	p, item := l.stock(t, func(pl *ports.PurchaseLine) { pl.Condition = domain.ConditionBroken })
	intake := intakeRepair(t, l, item.ID)

	ready := domain.StatusReadyForSale
	line := helpers.NewPurchaseLine(func(pl *ports.PurchaseLine) {
		pl.ItemID = &item.ID
		pl.IMEI = item.IMEI
		pl.Condition = domain.ConditionBroken
		pl.InitialStatus = &ready
	})
	_, err := l.purchases.Update(ctx, p.ID, ports.UpdatePurchaseInput{Items: []ports.PurchaseLine{line}})
	require.NoError(t, err)

	closed, err := l.repairs.Get(ctx, intake.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairDone, closed.Status)
	assert.NotNil(t, closed.CompletedAt)

	got, err := l.inventory.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForSale, got.Status)

	_, err = l.repairs.CreateCase(ctx, ports.CreateRepairInput{ItemID: &item.ID, Description: "battery swap"})
	require.NoError(t, err)
	_, err = l.repairs.CreateCase(ctx, ports.CreateRepairInput{ItemID: &item.ID, Description: "second booking"})
	requireKind(t, err, domain.KindConflict)

	pending, err := l.repairs.List(ctx, ports.RepairListParams{ItemID: &item.ID, Status: domain.RepairPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.TotalCount)
}

func TestRepairService_ReopenWhileAnotherIsOpen(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	_, item := l.stock(t, func(pl *ports.PurchaseLine) { pl.Condition = domain.ConditionBroken })
	first := intakeRepair(t, l, item.ID)

	done, pending := domain.RepairDone, domain.RepairPending
	_, err := l.repairs.UpdateCase(ctx, first.ID, ports.UpdateRepairInput{Status: &done})
	require.NoError(t, err)
	_, err = l.repairs.CreateCase(ctx, ports.CreateRepairInput{ItemID: &item.ID, Description: "speaker"})
	require.NoError(t, err)

	_, err = l.repairs.UpdateCase(ctx, first.ID, ports.UpdateRepairInput{Status: &pending})
	requireKind(t, err, domain.KindConflict)
	assert.Contains(t, err.Error(), "already has an open repair")
}
