package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/handlers"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

func testPurchase() *domain.Purchase {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	item := helpers.NewItem()
	p := &domain.Purchase{
		ID:          uuid.New(),
		CustomerID:  &customerID,
		PurchasedAt: now,
		Balance: domain.Balance{
			PaymentMethod: "cash",
			PaymentType:   domain.PaymentPayLater,
			TotalPrice:    helpers.Dec("150"),
			PaidNow:       helpers.Dec("50.5"),
			Remaining:     helpers.Dec("99.5"),
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	item.PurchaseID = &p.ID
	p.Items = []*domain.PurchaseItem{{
		ID:            uuid.New(),
		PurchaseID:    p.ID,
		ItemID:        item.ID,
		PurchasePrice: helpers.Dec("150"),
		IsActive:      true,
		Item:          item,
	}}
	return p
}

func TestPurchaseHandler_CreatePurchase(t *testing.T) {
	purchase := testPurchase()
	validBody := map[string]interface{}{
		"customer":       map[string]interface{}{"phone_number": "+1 415 555 0100", "full_name": "Dana Seller"},
		"payment_method": "cash",
		"payment_type":   "PAY_LATER",
		"paid_now":       "50.50",
		"items": []map[string]interface{}{{
			"imei":           "356938035643809",
			"brand":          "Apple",
			"model":          "iPhone 13",
			"condition":      "GOOD",
			"purchase_price": "150.00",
		}},
	}

	tests := []struct {
		name           string
		body           interface{}
		setupMocks     func(fixture)
		expectedStatus int
		validateBody   func(*testing.T, map[string]interface{})
	}{
		{
			name: "creates_purchase",
			body: validBody,
			setupMocks: func(f fixture) {
				f.purchases.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, in ports.CreatePurchaseInput) (*domain.Purchase, error) {
						assert.Equal(t, domain.PaymentPayLater, in.PaymentType)
						require.NotNil(t, in.PaidNow)
						assert.Equal(t, "50.5", in.PaidNow.String())
						require.NotNil(t, in.Customer.Inline)
						assert.Equal(t, "+1 415 555 0100", in.Customer.Inline.PhoneNumber)
						require.Len(t, in.Items, 1)
						assert.Equal(t, domain.ConditionGood, in.Items[0].Condition)
						assert.Nil(t, in.Items[0].InitialStatus)
						return purchase, nil
					})
				f.cache.EXPECT().Invalidate(gomock.Any())
			},
			expectedStatus: http.StatusCreated,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, purchase.ID.String(), body["id"])
				assert.Equal(t, "150.00", body["total_price"])
				assert.Equal(t, "50.50", body["paid_now"])
				assert.Equal(t, "99.50", body["remaining"])
				assert.Equal(t, "PAY_LATER", body["payment_type"])
				items := body["items"].([]interface{})
				require.Len(t, items, 1)
				assert.Equal(t, "150.00", items[0].(map[string]interface{})["price"])
			},
		},
		{
			name:           "malformed_json",
			body:           `{"items": [`,
			setupMocks:     func(fixture) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Invalid request body", body["error"])
			},
		},
		{
			name: "rejects_invalid_fields",
			body: map[string]interface{}{
				"payment_type": "LATER",
				"items": []map[string]interface{}{{
					"imei":           "",
					"brand":          "Apple",
					"model":          "iPhone 13",
					"condition":      "SHINY",
					"purchase_price": "10.001",
				}},
			},
			setupMocks:     func(fixture) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "validation failed", body["error"])
				details := body["details"].(map[string]interface{})
				assert.Contains(t, details, "payment_type")
				assert.Contains(t, details, "items[0].imei")
				assert.Contains(t, details, "items[0].condition")
				assert.Contains(t, details, "items[0].purchase_price")
			},
		},
		{
			name: "requires_items",
			body: map[string]interface{}{"payment_type": "PAID_NOW", "items": []interface{}{}},
			setupMocks: func(fixture) {
			},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body["details"], "items")
			},
		},
		{
			name: "duplicate_imei_conflict",
			body: validBody,
			setupMocks: func(f fixture) {
				f.purchases.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.Conflict("purchase.create", "imei %s already registered", "356938035643809"))
			},
			expectedStatus: http.StatusConflict,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "imei 356938035643809 already registered", body["error"])
			},
		},
		{
			name: "customer_required_validation",
			body: validBody,
			setupMocks: func(f fixture) {
				f.purchases.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.Validation("purchase.create", "customer is required when a balance remains"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal_error_hides_cause",
			body: validBody,
			setupMocks: func(f fixture) {
				f.purchases.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("pq: connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Failed to create purchase", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			w := serve(f.mux, http.MethodPost, "/api/v1/purchases", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.validateBody != nil {
				tt.validateBody(t, decodeBody(t, w))
			}
		})
	}
}

func TestPurchaseHandler_GetPurchase(t *testing.T) {
	purchase := testPurchase()
	key := "ledger:purchase:" + purchase.ID.String()

	tests := []struct {
		name           string
		id             string
		setupMocks     func(fixture)
		expectedStatus int
		validateBody   func(*testing.T, map[string]interface{})
	}{
		{
			name: "cache_miss_loads_and_stores",
			id:   purchase.ID.String(),
			setupMocks: func(f fixture) {
				f.cache.EXPECT().Lookup(gomock.Any(), key, gomock.Any()).Return(false)
				f.purchases.EXPECT().Get(gomock.Any(), purchase.ID).Return(purchase, nil)
				f.cache.EXPECT().Store(gomock.Any(), key, gomock.AssignableToTypeOf(handlers.PurchaseView{}))
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, purchase.ID.String(), body["id"])
				assert.Equal(t, "99.50", body["remaining"])
			},
		},
		{
			name: "cache_hit_skips_service",
			id:   purchase.ID.String(),
			setupMocks: func(f fixture) {
				f.cache.EXPECT().
					Lookup(gomock.Any(), key, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, dest interface{}) bool {
						*dest.(*handlers.PurchaseView) = handlers.PurchaseView{ID: purchase.ID, BalanceView: handlers.BalanceView{Remaining: "12.00"}}
						return true
					})
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "12.00", body["remaining"])
			},
		},
		{
			name:           "invalid_uuid_format",
			id:             "not-a-uuid",
			setupMocks:     func(fixture) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Invalid id format", body["error"])
			},
		},
		{
			name: "purchase_not_found",
			id:   purchase.ID.String(),
			setupMocks: func(f fixture) {
				f.cache.EXPECT().Lookup(gomock.Any(), key, gomock.Any()).Return(false)
				f.purchases.EXPECT().Get(gomock.Any(), purchase.ID).
					Return(nil, domain.NotFound("purchase.get", "purchase %s not found", purchase.ID))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			w := serve(f.mux, http.MethodGet, "/api/v1/purchases/"+tt.id, nil)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.validateBody != nil {
				tt.validateBody(t, decodeBody(t, w))
			}
		})
	}
}

func TestPurchaseHandler_ListPurchases(t *testing.T) {
	purchase := testPurchase()

	t.Run("passes_filters", func(t *testing.T) {
		f := newFixture(t)
		customerID := uuid.New()
		f.purchases.EXPECT().
			List(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params ports.TransactionListParams) (*ports.ListResult[*domain.Purchase], error) {
				assert.Equal(t, 2, params.Page.Page)
				assert.Equal(t, 10, params.PageSize)
				assert.Equal(t, domain.PaymentPayLater, params.PaymentType)
				require.NotNil(t, params.CustomerID)
				assert.Equal(t, customerID, *params.CustomerID)
				require.NotNil(t, params.From)
				assert.Equal(t, "2026-01-01", params.From.Format(time.DateOnly))
				require.NotNil(t, params.HasRemaining)
				assert.True(t, *params.HasRemaining)
				return ports.NewListResult([]*domain.Purchase{purchase}, params.Page, 11), nil
			})

		w := serve(f.mux, http.MethodGet,
			"/api/v1/purchases?page=2&page_size=10&payment_type=PAY_LATER&has_remaining=true&from=2026-01-01&customer_id="+customerID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.EqualValues(t, 11, body["total_count"])
		assert.EqualValues(t, 2, body["total_pages"])
		assert.Len(t, body["items"], 1)
	})

	tests := []struct {
		name  string
		query string
	}{
		{name: "bad_payment_type", query: "payment_type=SOMETIME"},
		{name: "bad_customer_id", query: "customer_id=abc"},
		{name: "bad_date", query: "from=yesterday"},
		{name: "bad_bool", query: "has_remaining=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := serve(f.mux, http.MethodGet, "/api/v1/purchases?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPurchaseHandler_AddPayment(t *testing.T) {
	purchase := testPurchase()
	path := "/api/v1/purchases/" + purchase.ID.String() + "/payments"

	t.Run("records_payment_and_invalidates_cache", func(t *testing.T) {
		f := newFixture(t)
		paid := *purchase
		paid.PaidNow = helpers.Dec("150")
		paid.Remaining = helpers.Dec("0")
		paid.PaymentType = domain.PaymentPaidNow

		f.purchases.EXPECT().
			AddPayment(gomock.Any(), purchase.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, in ports.PaymentInput) (*domain.Purchase, error) {
				assert.Equal(t, "99.5", in.Amount.String())
				assert.Equal(t, "cash at counter", in.Notes)
				return &paid, nil
			})
		f.cache.EXPECT().Invalidate(gomock.Any())

		w := serve(f.mux, http.MethodPost, path, map[string]string{"amount": "99.50", "notes": "cash at counter"})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, "0.00", body["remaining"])
		assert.Equal(t, "PAID_NOW", body["payment_type"])
	})

	t.Run("overpayment_rejected", func(t *testing.T) {
		f := newFixture(t)
		f.purchases.EXPECT().
			AddPayment(gomock.Any(), purchase.ID, gomock.Any()).
			Return(nil, domain.Validation("purchase.add_payment", "payment 200.00 exceeds remaining balance 99.50"))

		w := serve(f.mux, http.MethodPost, path, map[string]string{"amount": "200"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "payment 200.00 exceeds remaining balance 99.50", decodeBody(t, w)["error"])
	})

	t.Run("amount_scale_checked_before_service", func(t *testing.T) {
		f := newFixture(t)
		w := serve(f.mux, http.MethodPost, path, map[string]string{"amount": "1.999"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["details"], "amount")
	})
}

func TestPurchaseHandler_UpdateAndDelete(t *testing.T) {
	purchase := testPurchase()
	path := "/api/v1/purchases/" + purchase.ID.String()

	t.Run("update_passes_only_present_fields", func(t *testing.T) {
		f := newFixture(t)
		f.purchases.EXPECT().
			Update(gomock.Any(), purchase.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, in ports.UpdatePurchaseInput) (*domain.Purchase, error) {
				assert.Nil(t, in.Items)
				assert.Nil(t, in.PaymentType)
				assert.True(t, in.Customer.Empty())
				require.NotNil(t, in.PaidNow)
				assert.Equal(t, "75", in.PaidNow.String())
				require.NotNil(t, in.Notes)
				assert.Equal(t, "adjusted", *in.Notes)
				return purchase, nil
			})
		f.cache.EXPECT().Invalidate(gomock.Any())

		w := serve(f.mux, http.MethodPut, path, map[string]string{"paid_now": "75", "notes": "adjusted"})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("update_sold_item_conflict", func(t *testing.T) {
		f := newFixture(t)
		f.purchases.EXPECT().
			Update(gomock.Any(), purchase.ID, gomock.Any()).
			Return(nil, domain.Conflict("purchase.update", "item is sold and cannot be edited"))

		w := serve(f.mux, http.MethodPut, path, map[string]interface{}{
			"items": []map[string]string{{"imei": "1", "brand": "A", "model": "B", "condition": "USED", "purchase_price": "1"}},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete_returns_no_content", func(t *testing.T) {
		f := newFixture(t)
		f.purchases.EXPECT().Delete(gomock.Any(), purchase.ID).Return(nil)
		f.cache.EXPECT().Invalidate(gomock.Any())

		w := serve(f.mux, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("delete_missing_purchase", func(t *testing.T) {
		f := newFixture(t)
		f.purchases.EXPECT().Delete(gomock.Any(), purchase.ID).
			Return(domain.NotFound("purchase.delete", "purchase not found"))

		w := serve(f.mux, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPurchaseHandler_ListActivities(t *testing.T) {
	f := newFixture(t)
	purchase := testPurchase()
	activity, err := domain.NewActivity(domain.PurchaseTarget(purchase.ID), domain.ActivityPayment,
		helpers.Dec("50.5"), time.Now(), domain.NoteInitialPartial)
	require.NoError(t, err)

	f.purchases.EXPECT().ListActivities(gomock.Any(), purchase.ID).Return([]*domain.Activity{activity}, nil)

	w := serve(f.mux, http.MethodGet, "/api/v1/purchases/"+purchase.ID.String()+"/activities", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	activities := body["activities"].([]interface{})
	require.Len(t, activities, 1)
	first := activities[0].(map[string]interface{})
	assert.Equal(t, "50.50", first["amount"])
	assert.Equal(t, "PAYMENT", first["kind"])
	assert.Equal(t, domain.NoteInitialPartial, first["notes"])
	assert.Equal(t, purchase.ID.String(), first["purchase_id"])
}
