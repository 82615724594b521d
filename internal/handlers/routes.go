// internal/handlers/routes.go
package handlers

import "net/http"

const apiV1 = "/api/v1"

// Routes groups the handlers served by the API process. Health may be nil.
type Routes struct {
	Purchases *PurchaseHandler
	Sales     *SaleHandler
	Repairs   *RepairHandler
	Inventory *InventoryHandler
	Ledger    *LedgerHandler
	Health    *HealthHandler
}

// Register mounts every route on mux using method-qualified patterns.
func (rt *Routes) Register(mux *http.ServeMux) {
	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Health)
		mux.HandleFunc("GET /ready", rt.Health.Readiness)
		mux.HandleFunc("GET "+apiV1+"/health", rt.Health.Health)
	}

	mux.HandleFunc("POST "+apiV1+"/purchases", rt.Purchases.CreatePurchase)
	mux.HandleFunc("GET "+apiV1+"/purchases", rt.Purchases.ListPurchases)
	mux.HandleFunc("GET "+apiV1+"/purchases/{id}", rt.Purchases.GetPurchase)
	mux.HandleFunc("PUT "+apiV1+"/purchases/{id}", rt.Purchases.UpdatePurchase)
	mux.HandleFunc("DELETE "+apiV1+"/purchases/{id}", rt.Purchases.DeletePurchase)
	mux.HandleFunc("POST "+apiV1+"/purchases/{id}/payments", rt.Purchases.AddPayment)
	mux.HandleFunc("GET "+apiV1+"/purchases/{id}/activities", rt.Purchases.ListActivities)

	mux.HandleFunc("POST "+apiV1+"/sales", rt.Sales.CreateSale)
	mux.HandleFunc("GET "+apiV1+"/sales", rt.Sales.ListSales)
	mux.HandleFunc("GET "+apiV1+"/sales/{id}", rt.Sales.GetSale)
	mux.HandleFunc("PUT "+apiV1+"/sales/{id}", rt.Sales.UpdateSale)
	mux.HandleFunc("DELETE "+apiV1+"/sales/{id}", rt.Sales.DeleteSale)
	mux.HandleFunc("POST "+apiV1+"/sales/{id}/payments", rt.Sales.AddPayment)
	mux.HandleFunc("GET "+apiV1+"/sales/{id}/activities", rt.Sales.ListActivities)

	mux.HandleFunc("POST "+apiV1+"/repairs", rt.Repairs.CreateRepair)
	mux.HandleFunc("GET "+apiV1+"/repairs", rt.Repairs.ListRepairs)
	mux.HandleFunc("GET "+apiV1+"/repairs/{id}", rt.Repairs.GetRepair)
	mux.HandleFunc("PUT "+apiV1+"/repairs/{id}", rt.Repairs.UpdateRepair)
	mux.HandleFunc("POST "+apiV1+"/repairs/{id}/entries", rt.Repairs.AddEntry)
	mux.HandleFunc("PUT "+apiV1+"/repairs/{id}/entries/{entryId}", rt.Repairs.UpdateEntry)

	mux.HandleFunc("GET "+apiV1+"/inventory", rt.Inventory.ListItems)
	mux.HandleFunc("GET "+apiV1+"/inventory/{id}", rt.Inventory.GetItem)
	mux.HandleFunc("GET "+apiV1+"/inventory/imei/{imei}", rt.Inventory.GetItemByIMEI)

	mux.HandleFunc("POST "+apiV1+"/ledger/reconcile", rt.Ledger.Reconcile)
	mux.HandleFunc("POST "+apiV1+"/ledger/exports", rt.Ledger.Export)
}
