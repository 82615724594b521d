package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.ItemStatus
		want     bool
	}{
		{domain.StatusInStock, domain.StatusInRepair, true},
		{domain.StatusReadyForSale, domain.StatusInRepair, true},
		{domain.StatusInRepair, domain.StatusReadyForSale, true},
		{domain.StatusInStock, domain.StatusSold, true},
		{domain.StatusReadyForSale, domain.StatusSold, true},
		{domain.StatusSold, domain.StatusReadyForSale, true},
		{domain.StatusSold, domain.StatusInStock, false},
		{domain.StatusInRepair, domain.StatusSold, false},
		{domain.StatusSold, domain.StatusInRepair, false},
		{domain.StatusInStock, domain.StatusInStock, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}

func TestInitialStatus(t *testing.T) {
	repair := domain.StatusInRepair
	ready := domain.StatusReadyForSale

	assert.Equal(t, domain.StatusInStock, domain.InitialStatus(domain.ConditionGood, nil))
	assert.Equal(t, domain.StatusInRepair, domain.InitialStatus(domain.ConditionBroken, nil))
	assert.Equal(t, domain.StatusReadyForSale, domain.InitialStatus(domain.ConditionBroken, &ready))
	assert.Equal(t, domain.StatusInRepair, domain.InitialStatus(domain.ConditionGood, &repair))
}

func TestInventoryItem_SaleLifecycle(t *testing.T) {
	item := &domain.InventoryItem{IMEI: "356938035643809", Status: domain.StatusInStock}
	saleID := uuid.New()

	require.NoError(t, item.MarkSold(saleID))
	assert.Equal(t, domain.StatusSold, item.Status)
	require.NotNil(t, item.SaleID)

	err := item.MarkSold(uuid.New())
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, item.ReleaseFromSale())
	assert.Equal(t, domain.StatusReadyForSale, item.Status)
	assert.Nil(t, item.SaleID)
	assert.NoError(t, domain.AssertSellable(item))
}

func TestAssertRepairable(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.ItemStatus
		wantErr bool
	}{
		{"in_stock", domain.StatusInStock, false},
		{"ready_for_sale", domain.StatusReadyForSale, false},
		{"returned", domain.StatusReturned, false},
		{"sold", domain.StatusSold, true},
		{"in_repair", domain.StatusInRepair, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.AssertRepairable(&domain.InventoryItem{IMEI: "1", Status: tt.status})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConflict)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInventoryItem_Validate(t *testing.T) {
	item := &domain.InventoryItem{
		IMEI:      " 490154203237518 ",
		Brand:     "Apple",
		Model:     "iPhone 12",
		Condition: domain.ConditionUsed,
		Status:    domain.StatusInStock,
	}
	require.NoError(t, item.Validate())
	assert.Equal(t, "490154203237518", item.IMEI)

	item.Condition = "MINT"
	assert.ErrorIs(t, item.Validate(), domain.ErrValidation)
}
