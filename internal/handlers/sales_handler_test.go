package handlers_test

import (
	"context"
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

func testSale() *domain.Sale {
	now := time.Date(2026, 3, 20, 16, 30, 0, 0, time.UTC)
	item := helpers.NewItem()
	item.Status = domain.StatusSold
	s := &domain.Sale{
		ID:     uuid.New(),
		SoldAt: now,
		Balance: domain.Balance{
			PaymentType: domain.PaymentPaidNow,
			TotalPrice:  helpers.Dec("249.9"),
			PaidNow:     helpers.Dec("249.9"),
			Remaining:   helpers.Dec("0"),
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	item.SaleID = &s.ID
	s.Items = []*domain.SaleItem{{
		ID:        uuid.New(),
		SaleID:    s.ID,
		ItemID:    item.ID,
		SalePrice: helpers.Dec("249.9"),
		IsActive:  true,
		Item:      item,
	}}
	return s
}

func TestSaleHandler_CreateSale(t *testing.T) {
	sale := testSale()
	imei := sale.Items[0].Item.IMEI

	tests := []struct {
		name           string
		body           interface{}
		setupMocks     func(fixture)
		expectedStatus int
		validateBody   func(*testing.T, map[string]interface{})
	}{
		{
			name: "sells_by_imei",
			body: map[string]interface{}{
				"payment_type": "PAID_NOW",
				"items":        []map[string]string{{"imei": imei, "sale_price": "249.90"}},
			},
			setupMocks: func(f fixture) {
				f.sales.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, in ports.CreateSaleInput) (*domain.Sale, error) {
						require.Len(t, in.Items, 1)
						assert.Nil(t, in.Items[0].ItemID)
						require.NotNil(t, in.Items[0].IMEI)
						assert.Equal(t, imei, *in.Items[0].IMEI)
						assert.True(t, in.Customer.Empty())
						return sale, nil
					})
				f.cache.EXPECT().Invalidate(gomock.Any())
			},
			expectedStatus: http.StatusCreated,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "249.90", body["total_price"])
				assert.Equal(t, "0.00", body["remaining"])
				items := body["items"].([]interface{})
				line := items[0].(map[string]interface{})
				assert.Equal(t, "SOLD", line["item"].(map[string]interface{})["status"])
			},
		},
		{
			name: "line_needs_item_reference",
			body: map[string]interface{}{
				"payment_type": "PAID_NOW",
				"items":        []map[string]string{{"sale_price": "10"}},
			},
			setupMocks:     func(fixture) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "is required", body["details"].(map[string]interface{})["items[0].item_id"])
			},
		},
		{
			name: "item_not_sellable",
			body: map[string]interface{}{
				"payment_type": "PAID_NOW",
				"items":        []map[string]string{{"item_id": uuid.NewString(), "sale_price": "10"}},
			},
			setupMocks: func(f fixture) {
				f.sales.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.Conflict("sale.create", "item is IN_REPAIR and not sellable"))
			},
			expectedStatus: http.StatusConflict,
			validateBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "item is IN_REPAIR and not sellable", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			w := serve(f.mux, http.MethodPost, "/api/v1/sales", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.validateBody != nil {
				tt.validateBody(t, decodeBody(t, w))
			}
		})
	}
}

func TestSaleHandler_GetSale(t *testing.T) {
	sale := testSale()
	f := newFixture(t)
	key := "ledger:sale:" + sale.ID.String()

	f.cache.EXPECT().Lookup(gomock.Any(), key, gomock.Any()).Return(false)
	f.sales.EXPECT().Get(gomock.Any(), sale.ID).Return(sale, nil)
	f.cache.EXPECT().Store(gomock.Any(), key, gomock.AssignableToTypeOf(handlers.SaleView{}))

	w := serve(f.mux, http.MethodGet, "/api/v1/sales/"+sale.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, sale.ID.String(), body["id"])
	assert.Equal(t, "PAID_NOW", body["payment_type"])
}

func TestSaleHandler_ListSales(t *testing.T) {
	f := newFixture(t)
	sale := testSale()

	f.sales.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params ports.TransactionListParams) (*ports.ListResult[*domain.Sale], error) {
			assert.Equal(t, 1, params.Page.Page)
			assert.Equal(t, ports.MaxPageSize, params.PageSize)
			require.NotNil(t, params.To)
			require.NotNil(t, params.HasRemaining)
			assert.False(t, *params.HasRemaining)
			return ports.NewListResult([]*domain.Sale{sale}, params.Page, 1), nil
		})

	w := serve(f.mux, http.MethodGet, "/api/v1/sales?limit=5000&to=2026-03-31T23:59:59Z&has_remaining=false", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.EqualValues(t, ports.MaxPageSize, body["page_size"])
	assert.EqualValues(t, 1, body["total_pages"])
}

func TestSaleHandler_PaymentsAndDelete(t *testing.T) {
	sale := testSale()
	path := "/api/v1/sales/" + sale.ID.String()

	t.Run("settled_sale_rejects_payment", func(t *testing.T) {
		f := newFixture(t)
		f.sales.EXPECT().
			AddPayment(gomock.Any(), sale.ID, gomock.Any()).
			Return(nil, domain.Validation("sale.add_payment", "sale is already fully paid"))

		w := serve(f.mux, http.MethodPost, path+"/payments", map[string]string{"amount": "5"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "sale is already fully paid", decodeBody(t, w)["error"])
	})

	t.Run("missing_amount", func(t *testing.T) {
		f := newFixture(t)
		w := serve(f.mux, http.MethodPost, path+"/payments", map[string]string{"notes": "no amount"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update_replaces_lines", func(t *testing.T) {
		f := newFixture(t)
		itemID := uuid.New()
		f.sales.EXPECT().
			Update(gomock.Any(), sale.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, in ports.UpdateSaleInput) (*domain.Sale, error) {
				require.Len(t, in.Items, 1)
				assert.Equal(t, itemID, *in.Items[0].ItemID)
				assert.Equal(t, "180", in.Items[0].SalePrice.String())
				require.NotNil(t, in.PaymentType)
				assert.Equal(t, domain.PaymentPayLater, *in.PaymentType)
				return sale, nil
			})
		f.cache.EXPECT().Invalidate(gomock.Any())

		w := serve(f.mux, http.MethodPut, path, map[string]interface{}{
			"payment_type": "PAY_LATER",
			"items":        []map[string]string{{"item_id": itemID.String(), "sale_price": "180"}},
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("delete_releases_sale", func(t *testing.T) {
		f := newFixture(t)
		f.sales.EXPECT().Delete(gomock.Any(), sale.ID).Return(nil)
		f.cache.EXPECT().Invalidate(gomock.Any())

		w := serve(f.mux, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("activities_of_missing_sale", func(t *testing.T) {
		f := newFixture(t)
		f.sales.EXPECT().ListActivities(gomock.Any(), sale.ID).
			Return(nil, domain.NotFound("sale.activities", "sale %s not found", sale.ID))

		w := serve(f.mux, http.MethodGet, path+"/activities", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
