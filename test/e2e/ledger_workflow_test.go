//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/phoneshop-be/internal/adapters/memory"
	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/adapters/storage"
	"github.com/ammerola/phoneshop-be/internal/core/services"
	"github.com/ammerola/phoneshop-be/internal/handlers"
	"github.com/ammerola/phoneshop-be/internal/handlers/middleware"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

type LedgerE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testRedis *helpers.TestRedis
	cancel    context.CancelFunc
}

func (s *LedgerE2ESuite) SetupSuite() {
	s.testRedis = helpers.SetupTestRedis(s.T())
	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *LedgerE2ESuite) TearDownSuite() {
	s.server.Close()
	s.cancel()
}

func (s *LedgerE2ESuite) TestPurchaseRepairSaleWorkflow() {
	// 1. Buy two phones on credit, one of them broken
	resp := s.makeRequest("POST", "/purchases", map[string]interface{}{
		"customer":       map[string]interface{}{"phone_number": "+1 415 555 0142", "full_name": "Walk-in Seller"},
		"payment_type":   "PAY_LATER",
		"payment_method": "cash",
		"paid_now":       "100",
		"items": []map[string]interface{}{
			{"imei": "356938035640001", "brand": "Apple", "model": "iPhone 13", "condition": "GOOD", "purchase_price": "300"},
			{"imei": "356938035640002", "brand": "Samsung", "model": "Galaxy S22", "condition": "BROKEN", "known_issues": "no power", "purchase_price": "120"},
		},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var purchase map[string]interface{}
	s.decodeResponse(resp, &purchase)
	purchaseID := purchase["id"].(string)
	s.Equal("420.00", purchase["total_price"])
	s.Equal("100.00", purchase["paid_now"])
	s.Equal("320.00", purchase["remaining"])

	// 2. The broken phone is already in repair
	resp = s.makeRequest("GET", "/inventory/imei/356938035640002", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var broken map[string]interface{}
	s.decodeResponse(resp, &broken)
	s.Equal("IN_REPAIR", broken["status"])

	resp = s.makeRequest("GET", "/repairs?status=PENDING", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var repairs map[string]interface{}
	s.decodeResponse(resp, &repairs)
	s.Require().Len(repairs["items"], 1)
	repairID := repairs["items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// 3. Work the repair and close it
	resp = s.makeRequest("POST", fmt.Sprintf("/repairs/%s/entries", repairID), map[string]interface{}{
		"description": "battery and charge port",
		"parts_cost":  "35",
		"labor_cost":  "20",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("PUT", fmt.Sprintf("/repairs/%s", repairID), map[string]interface{}{"status": "DONE"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var repair map[string]interface{}
	s.decodeResponse(resp, &repair)
	s.Equal("DONE", repair["status"])
	s.Equal("55.00", repair["total_cost"])

	// 4. Sell the repaired phone by IMEI with a partial payment
	resp = s.makeRequest("POST", "/sales", map[string]interface{}{
		"customer":     map[string]interface{}{"phone_number": "+1 628 555 0177"},
		"payment_type": "PAY_LATER",
		"paid_now":     "150",
		"items":        []map[string]interface{}{{"imei": "356938035640002", "sale_price": "260"}},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var sale map[string]interface{}
	s.decodeResponse(resp, &sale)
	saleID := sale["id"].(string)
	s.Equal("110.00", sale["remaining"])

	// 5. Settle both balances
	resp = s.makeRequest("POST", fmt.Sprintf("/sales/%s/payments", saleID), map[string]interface{}{"amount": "110"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var settled map[string]interface{}
	s.decodeResponse(resp, &settled)
	s.Equal("0.00", settled["remaining"])
	s.Equal("PAID_NOW", settled["payment_type"])

	resp = s.makeRequest("POST", fmt.Sprintf("/purchases/%s/payments", purchaseID), map[string]interface{}{"amount": "500"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("POST", fmt.Sprintf("/purchases/%s/payments", purchaseID), map[string]interface{}{"amount": "320"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("GET", fmt.Sprintf("/purchases/%s/activities", purchaseID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var activities map[string]interface{}
	s.decodeResponse(resp, &activities)
	s.NotEmpty(activities["activities"])

	// 6. The cached read reflects the payment
	resp = s.makeRequest("GET", fmt.Sprintf("/purchases/%s", purchaseID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var reread map[string]interface{}
	s.decodeResponse(resp, &reread)
	s.Equal("0.00", reread["remaining"])

	// 7. The ledger audits clean and exports
	resp = s.makeRequest("POST", "/ledger/reconcile", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var report map[string]interface{}
	s.decodeResponse(resp, &report)
	s.Empty(report["violations"])

	resp = s.makeRequest("POST", "/ledger/exports", nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var export map[string]interface{}
	s.decodeResponse(resp, &export)
	s.NotEmpty(export["key"])
	s.NotEmpty(export["url"])

	// 8. Deleting the sale puts the phone back on the shelf
	resp = s.makeRequest("DELETE", fmt.Sprintf("/sales/%s", saleID), nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("GET", "/inventory/imei/356938035640002", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var released map[string]interface{}
	s.decodeResponse(resp, &released)
	s.Equal("READY_FOR_SALE", released["status"])
}

func (s *LedgerE2ESuite) TestDuplicateIMEIRejected() {
	line := map[string]interface{}{"imei": "356938035649999", "brand": "Google", "model": "Pixel 7", "condition": "USED", "purchase_price": "200"}
	body := map[string]interface{}{"payment_type": "PAID_NOW", "items": []map[string]interface{}{line}}

	resp := s.makeRequest("POST", "/purchases", body)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.makeRequest("POST", "/purchases", body)
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func (s *LedgerE2ESuite) TestConcurrentSalesOfOnePhone() {
	resp := s.makeRequest("POST", "/purchases", map[string]interface{}{
		"payment_type": "PAID_NOW",
		"items": []map[string]interface{}{
			{"imei": "356938035648888", "brand": "Apple", "model": "iPhone 12 mini", "condition": "GOOD", "purchase_price": "150"},
		},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.makeRequest("POST", "/sales", map[string]interface{}{
				"payment_type": "PAID_NOW",
				"items":        []map[string]interface{}{{"imei": "356938035648888", "sale_price": "199"}},
			})
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created, "a phone can only be sold once")
}

func TestLedgerE2ESuite(t *testing.T) {
	suite.Run(t, new(LedgerE2ESuite))
}

// startTestServer wires the real routes and middleware over the in-memory
// ledger, the redis cache on miniredis and disk exports.
func (s *LedgerE2ESuite) startTestServer() *httptest.Server {
	logger := helpers.TestLogger()
	store := memory.NewStore()
	customers := services.NewCustomerResolver("US", logger)
	cache := redis_a.NewCacheManager(redis_a.NewCache(s.testRedis.Client, time.Minute, logger), time.Minute, logger)
	exports := storage.NewLocalStorage(s.T().TempDir(), logger)

	routes := &handlers.Routes{
		Purchases: handlers.NewPurchaseHandler(services.NewPurchaseService(store, customers, logger), cache, logger),
		Sales:     handlers.NewSaleHandler(services.NewSaleService(store, customers, logger), cache, logger),
		Repairs:   handlers.NewRepairHandler(services.NewRepairService(store, logger), cache, logger),
		Inventory: handlers.NewInventoryHandler(services.NewInventoryService(store, logger), cache, logger),
		Ledger: handlers.NewLedgerHandler(
			services.NewLedgerAuditor(store, logger),
			services.NewLedgerExporter(store, exports, "exports", time.Hour, logger),
			nil,
			logger,
		),
	}

	mux := http.NewServeMux()
	routes.Register(mux)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	return httptest.NewServer(middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.RateLimit(ctx, 1000, time.Minute),
		middleware.MaxBody(1<<20),
		middleware.Timeout(5*time.Second),
	))
}

func (s *LedgerE2ESuite) makeRequest(method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *LedgerE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}
