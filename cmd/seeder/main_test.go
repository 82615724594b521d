package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/phoneshop-be/internal/adapters/memory"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

func TestConditionClassifier_Classify(t *testing.T) {
	c := NewConditionClassifier()

	tests := []struct {
		name     string
		notes    string
		expected domain.ItemCondition
	}{
		{name: "empty_is_good", notes: "", expected: domain.ConditionGood},
		{name: "mint", notes: "Mint, boxed", expected: domain.ConditionGood},
		{name: "scratched", notes: "Light scratches on frame", expected: domain.ConditionUsed},
		{name: "cracked", notes: "CRACKED back glass", expected: domain.ConditionBroken},
		{name: "broken_beats_used", notes: "scuffed and no power", expected: domain.ConditionBroken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.notes))
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Intake")
	require.NoError(t, err)
	for _, values := range [][]string{
		{"IMEI", "Brand", "Model", "Storage", "Color", "Notes", "Purchase Price", "Sale Price", "Seller Phone", "Seller Name"},
		{"356938035643809", "Apple", "iPhone 13", "128GB", "Blue", "cracked screen", "$1,200.50", "", "+1 415 555 0101", "Ana"},
		{"", "skipped", "", "", "", "", "", "", "", ""},
		{"356938035643810", "Google", "Pixel 7", "128GB", "Snow", "", "240", "299.99", "+1 415 555 0101", ""},
	} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, file.Save(path))

	rows, err := LoadCatalog(path, NewConditionClassifier())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.ConditionBroken, rows[0].Condition)
	assert.Equal(t, "1200.50", rows[0].PurchasePrice.StringFixed(2))
	assert.Nil(t, rows[0].SalePrice)
	assert.Equal(t, "Ana", rows[0].SellerName)

	assert.Equal(t, domain.ConditionGood, rows[1].Condition)
	require.NotNil(t, rows[1].SalePrice)
	assert.Equal(t, "299.99", rows[1].SalePrice.StringFixed(2))
}

func TestLoadCatalog_BadPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.xlsx")

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Intake")
	require.NoError(t, err)
	sheet.AddRow().AddCell().SetString("IMEI")
	row := sheet.AddRow()
	for _, v := range []string{"356938035643809", "Apple", "iPhone 13", "", "", "", "free"} {
		row.AddCell().SetString(v)
	}
	require.NoError(t, file.Save(path))

	_, err = LoadCatalog(path, NewConditionClassifier())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestSeeder_Run_InMemory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddUser(domain.User{ID: technicianID, FullName: "Seed Technician", Role: "technician", IsActive: true})

	seeder := NewSeeder(store, "US", helpers.TestLogger())
	summary, err := seeder.Run(ctx, DemoCatalog(21, NewConditionClassifier()))
	require.NoError(t, err)

	assert.Empty(t, summary.Failed)
	assert.Equal(t, 21, summary.Purchases)
	assert.Equal(t, 21, summary.Items)
	// every third phone is priced for sale, minus the two broken ones
	assert.Equal(t, 5, summary.Sales)
	assert.Equal(t, 3, summary.RepairsClosed)
	assert.Equal(t, 3, summary.RepairsPending)

	open, err := seeder.repairs.List(ctx, ports.RepairListParams{Status: domain.RepairPending})
	require.NoError(t, err)
	assert.Equal(t, int64(3), open.TotalCount)

	report, err := seeder.auditor.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "violations: %+v", report.Violations)
}
