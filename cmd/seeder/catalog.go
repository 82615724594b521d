package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

// CatalogRow is one phone bought from a walk-in seller.
type CatalogRow struct {
	IMEI          string
	Brand         string
	Model         string
	Storage       string
	Color         string
	Notes         string
	Condition     domain.ItemCondition
	PurchasePrice decimal.Decimal
	SalePrice     *decimal.Decimal
	SellerPhone   string
	SellerName    string
}

// ConditionClassifier guesses an intake condition from free-text notes.
type ConditionClassifier struct {
	conditionKeywords map[domain.ItemCondition][]string
}

func NewConditionClassifier() *ConditionClassifier {
	return &ConditionClassifier{
		conditionKeywords: map[domain.ItemCondition][]string{
			domain.ConditionBroken: {"broken", "cracked", "no power", "dead", "water damage",
				"not charging", "shattered", "bootloop", "faulty"},
			domain.ConditionUsed: {"scratch", "scuff", "worn", "used", "dent",
				"battery 7", "battery 8"},
			domain.ConditionGood: {"mint", "sealed", "like new", "excellent", "pristine"},
		},
	}
}

// Classify prefers the most severe matching condition and falls back to GOOD.
func (c *ConditionClassifier) Classify(text string) domain.ItemCondition {
	textLower := strings.ToLower(text)
	for _, cond := range []domain.ItemCondition{domain.ConditionBroken, domain.ConditionUsed, domain.ConditionGood} {
		for _, kw := range c.conditionKeywords[cond] {
			if strings.Contains(textLower, kw) {
				return cond
			}
		}
	}
	return domain.ConditionGood
}

// LoadCatalog reads the first sheet of an intake workbook. Columns:
// IMEI, Brand, Model, Storage, Color, Notes, Purchase Price, Sale Price,
// Seller Phone, Seller Name. Rows without an IMEI are skipped.
func LoadCatalog(path string, classifier *ConditionClassifier) ([]CatalogRow, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in catalog")
	}

	var rows []CatalogRow
	rowIdx := 0
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		rowIdx++
		// Skip header
		if rowIdx == 1 {
			return nil
		}

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		imei := get(0)
		if imei == "" {
			return nil
		}

		price, err := parseCurrency(get(6))
		if err != nil {
			return fmt.Errorf("row %d: purchase price: %w", rowIdx, err)
		}

		row := CatalogRow{
			IMEI:          imei,
			Brand:         get(1),
			Model:         get(2),
			Storage:       get(3),
			Color:         get(4),
			Notes:         get(5),
			PurchasePrice: price,
			SellerPhone:   get(8),
			SellerName:    get(9),
		}
		row.Condition = classifier.Classify(row.Notes)

		if raw := get(7); raw != "" {
			sale, err := parseCurrency(raw)
			if err != nil {
				return fmt.Errorf("row %d: sale price: %w", rowIdx, err)
			}
			row.SalePrice = &sale
		}

		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return rows, nil
}

func parseCurrency(val string) (decimal.Decimal, error) {
	val = strings.TrimSpace(val)
	val = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(val)
	return decimal.NewFromString(val)
}

var demoModels = []struct {
	brand, model, storage, color string
	price                        int64
}{
	{"Apple", "iPhone 13", "128GB", "Midnight", 320},
	{"Apple", "iPhone 14 Pro", "256GB", "Deep Purple", 610},
	{"Apple", "iPhone 12 mini", "64GB", "Blue", 180},
	{"Samsung", "Galaxy S22", "128GB", "Phantom Black", 290},
	{"Samsung", "Galaxy A52", "128GB", "Awesome White", 120},
	{"Google", "Pixel 7", "128GB", "Obsidian", 240},
	{"Xiaomi", "Redmi Note 12", "128GB", "Onyx Gray", 95},
}

var demoNotes = []string{
	"like new, boxed",
	"light scratches on frame",
	"cracked screen",
	"",
	"battery 81%, scuffed corners",
	"no power",
	"mint",
}

// DemoCatalog produces n deterministic rows. Every third phone gets a sale
// price at a 35% markup.
func DemoCatalog(n int, classifier *ConditionClassifier) []CatalogRow {
	rows := make([]CatalogRow, 0, n)
	for i := 0; i < n; i++ {
		m := demoModels[i%len(demoModels)]
		notes := demoNotes[i%len(demoNotes)]
		row := CatalogRow{
			IMEI:          fmt.Sprintf("35%013d", 4200000+i),
			Brand:         m.brand,
			Model:         m.model,
			Storage:       m.storage,
			Color:         m.color,
			Notes:         notes,
			Condition:     classifier.Classify(notes),
			PurchasePrice: decimal.NewFromInt(m.price),
			SellerPhone:   fmt.Sprintf("+1 415 555 %04d", 100+i%40),
		}
		if i%3 == 0 && row.Condition != domain.ConditionBroken {
			sale := row.PurchasePrice.Mul(decimal.RequireFromString("1.35")).Round(2)
			row.SalePrice = &sale
		}
		rows = append(rows, row)
	}
	return rows
}
