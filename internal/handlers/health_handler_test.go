package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/phoneshop-be/internal/handlers"
	"github.com/ammerola/phoneshop-be/test/helpers"
	"github.com/ammerola/phoneshop-be/test/mocks"
)

func newHealthMux(h *handlers.HealthHandler, f fixture) *http.ServeMux {
	mux := http.NewServeMux()
	routes := &handlers.Routes{
		Health:    h,
		Purchases: handlers.NewPurchaseHandler(f.purchases, nil, helpers.TestLogger()),
		Sales:     handlers.NewSaleHandler(f.sales, nil, helpers.TestLogger()),
		Repairs:   handlers.NewRepairHandler(f.repairs, nil, helpers.TestLogger()),
		Inventory: handlers.NewInventoryHandler(f.inventory, nil, helpers.TestLogger()),
		Ledger:    handlers.NewLedgerHandler(f.auditor, nil, nil, helpers.TestLogger()),
	}
	routes.Register(mux)
	return mux
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("healthy_with_redis", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		db := mocks.NewMockDatabase(ctrl)
		db.EXPECT().Ping(gomock.Any()).Return(nil)
		db.EXPECT().Health(gomock.Any()).Return(map[string]interface{}{"total_conns": 3})
		rdb := helpers.SetupTestRedis(t)

		h := handlers.NewHealthHandler(db, rdb.Client, nil, "1.2.0", "test", helpers.TestLogger())
		w := serve(newHealthMux(h, newFixture(t)), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
		body := decodeBody(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.0", body["version"])
		services := body["services"].(map[string]interface{})
		assert.Contains(t, services, "database")
		assert.Contains(t, services, "cache")
		assert.NotContains(t, services, "queue")
		database := services["database"].(map[string]interface{})
		assert.Equal(t, true, database["critical"])
		assert.EqualValues(t, 3, database["details"].(map[string]interface{})["total_conns"])
	})

	t.Run("degraded_when_cache_down", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		db := mocks.NewMockDatabase(ctrl)
		db.EXPECT().Ping(gomock.Any()).Return(nil)
		db.EXPECT().Health(gomock.Any()).Return(map[string]interface{}{})
		rdb := helpers.SetupTestRedis(t)
		rdb.Server.Close()

		h := handlers.NewHealthHandler(db, rdb.Client, nil, "1.2.0", "test", helpers.TestLogger())
		w := serve(newHealthMux(h, newFixture(t)), http.MethodGet, "/api/v1/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "degraded", body["status"])
		cacheInfo := body["services"].(map[string]interface{})["cache"].(map[string]interface{})
		assert.Equal(t, "unhealthy", cacheInfo["status"])
		assert.Equal(t, false, cacheInfo["critical"])
	})

	t.Run("unhealthy_when_database_down", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		db := mocks.NewMockDatabase(ctrl)
		db.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

		h := handlers.NewHealthHandler(db, nil, nil, "1.2.0", "test", helpers.TestLogger())
		w := serve(newHealthMux(h, newFixture(t)), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "unhealthy", body["status"])
		database := body["services"].(map[string]interface{})["database"].(map[string]interface{})
		assert.Equal(t, "connection refused", database["message"])
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
		expectedReady  bool
	}{
		{name: "ready", expectedStatus: http.StatusOK, expectedReady: true},
		{name: "database_not_ready", pingErr: errors.New("timeout"), expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := mocks.NewMockDatabase(ctrl)
			db.EXPECT().Ping(gomock.Any()).Return(tt.pingErr)
			rdb := helpers.SetupTestRedis(t)

			h := handlers.NewHealthHandler(db, rdb.Client, nil, "dev", "test", helpers.TestLogger())
			w := serve(newHealthMux(h, newFixture(t)), http.MethodGet, "/ready", nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.expectedReady, body["ready"])
			assert.Equal(t, "ready", body["details"].(map[string]interface{})["cache"])
		})
	}

	t.Run("cache_down_still_ready", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		db := mocks.NewMockDatabase(ctrl)
		db.EXPECT().Ping(gomock.Any()).Return(nil)
		rdb := helpers.SetupTestRedis(t)
		rdb.Server.Close()

		h := handlers.NewHealthHandler(db, rdb.Client, nil, "dev", "test", helpers.TestLogger())
		w := serve(newHealthMux(h, newFixture(t)), http.MethodGet, "/ready", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["ready"])
		assert.Equal(t, "unavailable", body["details"].(map[string]interface{})["cache"])
	})
}
