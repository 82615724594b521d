package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/adapters/db"
	"github.com/ammerola/phoneshop-be/internal/adapters/memory"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/core/services"
	"github.com/ammerola/phoneshop-be/internal/pkg/logger"
)

// technicianID is stable so repeated runs upsert the same staff row.
var technicianID = uuid.MustParse("6f1c2a0e-5b7d-4c1e-9a2f-3d8e4b6c7a10")

// Seeder replays a catalog through the ledger services.
type Seeder struct {
	purchases *services.PurchaseService
	sales     *services.SaleService
	repairs   *services.RepairService
	auditor   *services.LedgerAuditor
	logger    *slog.Logger
}

// SeedSummary counts what a run created.
type SeedSummary struct {
	Purchases      int
	Items          int
	Sales          int
	RepairsClosed  int
	RepairsPending int
	Failed         []string
}

func NewSeeder(scope ports.TransactionScope, region string, logger *slog.Logger) *Seeder {
	customers := services.NewCustomerResolver(region, logger)
	return &Seeder{
		purchases: services.NewPurchaseService(scope, customers, logger),
		sales:     services.NewSaleService(scope, customers, logger),
		repairs:   services.NewRepairService(scope, logger),
		auditor:   services.NewLedgerAuditor(scope, logger),
		logger:    logger,
	}
}

// Run books one purchase per seller, sells priced rows, and works the
// repair queue. Every second repair is closed out.
func (s *Seeder) Run(ctx context.Context, rows []CatalogRow) (*SeedSummary, error) {
	summary := &SeedSummary{}

	order, bySeller := groupBySeller(rows)
	for i, phone := range order {
		batch := bySeller[phone]
		fmt.Printf("PROGRESS: Processing seller %d/%d: %s\n", i+1, len(order), phone)

		purchase, err := s.purchases.Create(ctx, purchaseInput(i, phone, batch))
		if err != nil {
			s.logger.Error("Failed to book purchase",
				slog.String("seller", phone),
				slog.String("error", err.Error()))
			summary.Failed = append(summary.Failed, fmt.Sprintf("purchase %s: %v", phone, err))
			continue
		}
		summary.Purchases++
		summary.Items += len(purchase.Items)

		// Settle the open balance on every other credit purchase.
		if purchase.Remaining.IsPositive() && i%2 == 0 {
			if _, err := s.purchases.AddPayment(ctx, purchase.ID, ports.PaymentInput{Amount: purchase.Remaining}); err != nil {
				summary.Failed = append(summary.Failed, fmt.Sprintf("payment %s: %v", purchase.ID, err))
			}
		}

		for _, row := range batch {
			if row.SalePrice == nil {
				continue
			}
			imei := row.IMEI
			_, err := s.sales.Create(ctx, ports.CreateSaleInput{
				Customer:      ports.CustomerRef{Inline: &domain.CustomerInput{PhoneNumber: buyerPhone(summary.Sales)}},
				PaymentMethod: "card",
				PaymentType:   domain.PaymentPaidNow,
				Items:         []ports.SaleLine{{IMEI: &imei, SalePrice: *row.SalePrice}},
			})
			if err != nil {
				s.logger.Warn("Failed to record sale",
					slog.String("imei", row.IMEI),
					slog.String("error", err.Error()))
				summary.Failed = append(summary.Failed, fmt.Sprintf("sale %s: %v", row.IMEI, err))
				continue
			}
			summary.Sales++
		}
	}

	if err := s.workRepairs(ctx, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Seeder) workRepairs(ctx context.Context, summary *SeedSummary) error {
	pending, err := s.repairs.List(ctx, ports.RepairListParams{
		Page:   ports.Page{Page: 1, PageSize: ports.MaxPageSize},
		Status: domain.RepairPending,
	})
	if err != nil {
		return fmt.Errorf("failed to list open repairs: %w", err)
	}

	done := domain.RepairDone
	for i, open := range pending.Items {
		r, err := s.repairs.AddEntry(ctx, open.ID, ports.RepairEntryInput{
			Description: "diagnostics and parts",
			PartsCost:   decimalPtr(decimal.NewFromInt(int64(20 + 5*i))),
			LaborCost:   decimalPtr(decimal.NewFromInt(15)),
		})
		if err != nil {
			summary.Failed = append(summary.Failed, fmt.Sprintf("repair entry %s: %v", open.ID, err))
			continue
		}
		if i%2 == 1 {
			summary.RepairsPending++
			continue
		}
		if _, err := s.repairs.UpdateCase(ctx, r.ID, ports.UpdateRepairInput{
			Status:       &done,
			TechnicianID: &technicianID,
		}); err != nil {
			summary.Failed = append(summary.Failed, fmt.Sprintf("repair close %s: %v", r.ID, err))
			continue
		}
		summary.RepairsClosed++
	}
	return nil
}

func purchaseInput(i int, phone string, batch []CatalogRow) ports.CreatePurchaseInput {
	in := ports.CreatePurchaseInput{
		Customer:      ports.CustomerRef{Inline: &domain.CustomerInput{PhoneNumber: phone}},
		PaymentMethod: "cash",
		PaymentType:   domain.PaymentPaidNow,
		Notes:         "seeded",
	}
	if name := batch[0].SellerName; name != "" {
		in.Customer.Inline.FullName = &name
	}

	total := decimal.Zero
	for _, row := range batch {
		total = total.Add(row.PurchasePrice)
		in.Items = append(in.Items, ports.PurchaseLine{
			IMEI:          row.IMEI,
			Brand:         row.Brand,
			Model:         row.Model,
			Storage:       row.Storage,
			Color:         row.Color,
			Condition:     row.Condition,
			KnownIssues:   knownIssues(row),
			PurchasePrice: row.PurchasePrice,
		})
	}

	// Every third seller is paid half up front.
	if i%3 == 2 {
		in.PaymentType = domain.PaymentPayLater
		in.PaidNow = decimalPtr(total.Div(decimal.NewFromInt(2)).Round(2))
	}
	return in
}

func knownIssues(row CatalogRow) string {
	if row.Condition == domain.ConditionGood {
		return ""
	}
	return row.Notes
}

// groupBySeller keeps first-seen seller order.
func groupBySeller(rows []CatalogRow) ([]string, map[string][]CatalogRow) {
	var order []string
	bySeller := make(map[string][]CatalogRow)
	for _, row := range rows {
		phone := row.SellerPhone
		if phone == "" {
			phone = "+1 415 555 0100"
		}
		if _, ok := bySeller[phone]; !ok {
			order = append(order, phone)
		}
		bySeller[phone] = append(bySeller[phone], row)
	}
	return order, bySeller
}

func buyerPhone(n int) string {
	return fmt.Sprintf("+1 628 555 %04d", 100+n%60)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func main() {
	// Parse flags
	var (
		catalogFile = flag.String("catalog", "", "Excel intake workbook; demo data is generated when empty")
		count       = flag.Int("count", 21, "Number of demo phones to generate")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun      = flag.Bool("dry-run", false, "Run against an in-memory ledger without touching the database")
	)
	flag.Parse()

	slogger := logger.SetupLogger(*logLevel, "json")
	slog.SetDefault(slogger)

	ctx := context.Background()
	classifier := NewConditionClassifier()

	var rows []CatalogRow
	if *catalogFile != "" {
		loaded, err := LoadCatalog(*catalogFile, classifier)
		if err != nil {
			slogger.Error("Failed to load catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		rows = loaded
	} else {
		rows = DemoCatalog(*count, classifier)
	}
	slogger.Info("Catalog ready", slog.Int("rows", len(rows)))

	technician := domain.User{ID: technicianID, FullName: "Seed Technician", Role: "technician", IsActive: true}

	var scope ports.TransactionScope
	if *dryRun {
		store := memory.NewStore()
		store.AddUser(technician)
		scope = store
	} else {
		database, err := db.NewDatabase(ctx, &db.Config{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "phoneshop"),
			Password:       getEnv("DB_PASSWORD", "phoneshop_dev"),
			Database:       getEnv("DB_NAME", "phoneshop_ledger"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxConnections: 4,
			MinConnections: 1,
			ConnectTimeout: 10 * time.Second,
		}, slogger)
		if err != nil {
			slogger.Error("Failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.Close()

		if err := database.UpsertUser(ctx, &technician); err != nil {
			slogger.Error("Failed to register technician", slog.String("error", err.Error()))
			os.Exit(1)
		}
		scope = db.NewTransactionScope(database, slogger)
	}

	seeder := NewSeeder(scope, getEnv("LEDGER_PHONE_REGION", "US"), slogger)
	summary, err := seeder.Run(ctx, rows)
	if err != nil {
		slogger.Error("Seed run aborted", slog.String("error", err.Error()))
	}

	report, auditErr := seeder.auditor.Reconcile(ctx)

	// Summary
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING OPERATION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Purchases booked: %d (%d items)\n", summary.Purchases, summary.Items)
	fmt.Printf("Sales recorded:   %d\n", summary.Sales)
	fmt.Printf("Repairs closed:   %d, still open: %d\n", summary.RepairsClosed, summary.RepairsPending)

	if len(summary.Failed) > 0 {
		fmt.Printf("\nFailures (%d):\n", len(summary.Failed))
		for _, f := range summary.Failed {
			fmt.Printf("  - %s\n", f)
		}
	}

	switch {
	case auditErr != nil:
		fmt.Printf("\nLedger audit failed: %v\n", auditErr)
	case report.Clean():
		fmt.Println("\nLedger audit: clean")
	default:
		fmt.Printf("\nLedger audit: %d errors, %d warnings\n", report.ErrorCount, report.WarningCount)
		for _, v := range report.Violations {
			fmt.Printf("  - [%s] %s %s: %s\n", v.Severity, v.Rule, v.EntityID, v.Detail)
		}
	}

	slogger.Info("Seed operation completed",
		slog.Int("purchases", summary.Purchases),
		slog.Int("sales", summary.Sales),
		slog.Int("failures", len(summary.Failed)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the database")
	}
	if err != nil || auditErr != nil {
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
