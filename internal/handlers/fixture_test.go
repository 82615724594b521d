package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/phoneshop-be/internal/handlers"
	"github.com/ammerola/phoneshop-be/test/helpers"
	"github.com/ammerola/phoneshop-be/test/mocks"
)

// fixture wires every API handler onto one mux backed by mocks.
type fixture struct {
	purchases *mocks.MockPurchaseService
	sales     *mocks.MockSaleService
	repairs   *mocks.MockRepairService
	inventory *mocks.MockInventoryService
	auditor   *mocks.MockLedgerAuditor
	exporter  *mocks.MockLedgerExporter
	queue     *mocks.MockTaskQueue
	cache     *mocks.MockLedgerCache
	mux       *http.ServeMux
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		purchases: mocks.NewMockPurchaseService(ctrl),
		sales:     mocks.NewMockSaleService(ctrl),
		repairs:   mocks.NewMockRepairService(ctrl),
		inventory: mocks.NewMockInventoryService(ctrl),
		auditor:   mocks.NewMockLedgerAuditor(ctrl),
		exporter:  mocks.NewMockLedgerExporter(ctrl),
		queue:     mocks.NewMockTaskQueue(ctrl),
		cache:     mocks.NewMockLedgerCache(ctrl),
		mux:       http.NewServeMux(),
	}

	log := helpers.TestLogger()
	routes := &handlers.Routes{
		Purchases: handlers.NewPurchaseHandler(f.purchases, f.cache, log),
		Sales:     handlers.NewSaleHandler(f.sales, f.cache, log),
		Repairs:   handlers.NewRepairHandler(f.repairs, f.cache, log),
		Inventory: handlers.NewInventoryHandler(f.inventory, f.cache, log),
		Ledger:    handlers.NewLedgerHandler(f.auditor, f.exporter, f.queue, log),
	}
	routes.Register(f.mux)
	return f
}

func serve(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
