package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/workers"
	"github.com/ammerola/phoneshop-be/test/helpers"
	"github.com/ammerola/phoneshop-be/test/mocks"
)

func TestLedgerProcessor_Reconcile(t *testing.T) {
	report := &ports.ReconcileReport{
		StartedAt:     time.Now().Add(-2 * time.Second),
		FinishedAt:    time.Now(),
		PurchasesSeen: 10,
		SalesSeen:     4,
		ItemsSeen:     14,
		Violations: []ports.Violation{
			{Entity: "sale", EntityID: uuid.New(), Rule: "payments_match_paid_now", Severity: "warning"},
			{Entity: "item", EntityID: uuid.New(), Rule: "sold_has_sale", Severity: "error"},
		},
		ErrorCount:   1,
		WarningCount: 1,
	}

	tests := []struct {
		name          string
		payload       []byte
		setupMocks    func(*mocks.MockLedgerAuditor)
		expectedError bool
		skipRetry     bool
	}{
		{
			name: "violations_do_not_fail_task",
			payload: func() []byte {
				data, _ := json.Marshal(workers.ReconcilePayload{Trigger: workers.TriggerSchedule})
				return data
			}(),
			setupMocks: func(m *mocks.MockLedgerAuditor) {
				m.EXPECT().Reconcile(gomock.Any()).Return(report, nil)
			},
		},
		{
			name:    "empty_payload_accepted",
			payload: nil,
			setupMocks: func(m *mocks.MockLedgerAuditor) {
				m.EXPECT().Reconcile(gomock.Any()).Return(&ports.ReconcileReport{}, nil)
			},
		},
		{
			name:          "malformed_payload_skips_retry",
			payload:       []byte("{not json"),
			setupMocks:    func(*mocks.MockLedgerAuditor) {},
			expectedError: true,
			skipRetry:     true,
		},
		{
			name:    "auditor_failure_is_retried",
			payload: []byte(`{"trigger":"api"}`),
			setupMocks: func(m *mocks.MockLedgerAuditor) {
				m.EXPECT().Reconcile(gomock.Any()).Return(nil, errors.New("connection reset"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			auditor := mocks.NewMockLedgerAuditor(ctrl)
			tt.setupMocks(auditor)

			processor := workers.NewLedgerProcessor(auditor, mocks.NewMockLedgerExporter(ctrl), helpers.TestLogger())
			err := processor.Reconcile(context.Background(), asynq.NewTask(workers.TypeLedgerReconcile, tt.payload))

			if !tt.expectedError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestLedgerProcessor_Export(t *testing.T) {
	t.Run("exports_workbook", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exporter := mocks.NewMockLedgerExporter(ctrl)
		exporter.EXPECT().Export(gomock.Any()).Return(&ports.ExportResult{
			Key:       "ledger-exports/ledger-20260401-030000.xlsx",
			Purchases: 2,
			Sales:     1,
		}, nil)

		processor := workers.NewLedgerProcessor(mocks.NewMockLedgerAuditor(ctrl), exporter, helpers.TestLogger())
		task := asynq.NewTask(workers.TypeLedgerExport, []byte(`{"requested_by":"req-1"}`))

		assert.NoError(t, processor.Export(context.Background(), task))
	})

	t.Run("upload_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exporter := mocks.NewMockLedgerExporter(ctrl)
		cause := errors.New("bucket missing")
		exporter.EXPECT().Export(gomock.Any()).Return(nil, cause)

		processor := workers.NewLedgerProcessor(mocks.NewMockLedgerAuditor(ctrl), exporter, helpers.TestLogger())
		err := processor.Export(context.Background(), asynq.NewTask(workers.TypeLedgerExport, nil))

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestNewServeMux_RoutesLedgerTasks(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditor := mocks.NewMockLedgerAuditor(ctrl)
	exporter := mocks.NewMockLedgerExporter(ctrl)
	auditor.EXPECT().Reconcile(gomock.Any()).Return(&ports.ReconcileReport{}, nil)
	exporter.EXPECT().Export(gomock.Any()).Return(&ports.ExportResult{Key: "k"}, nil)

	log := helpers.TestLogger()
	mux := workers.NewServeMux(workers.NewLedgerProcessor(auditor, exporter, log), nil, log)
	ctx := context.Background()

	reconcile, err := workers.NewReconcileTask(workers.TriggerAPI, 3)
	require.NoError(t, err)
	export, err := workers.NewExportTask("req-7", 3)
	require.NoError(t, err)

	assert.NoError(t, mux.ProcessTask(ctx, reconcile))
	assert.NoError(t, mux.ProcessTask(ctx, export))

	cleanup, err := workers.NewCleanupExportsTask(time.Hour)
	require.NoError(t, err)
	assert.Error(t, mux.ProcessTask(ctx, cleanup), "cleanup is not routed without a processor")
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		retry    int
		expected time.Duration
	}{
		{name: "first_retry", retry: 0, expected: time.Second},
		{name: "fourth_retry", retry: 3, expected: 8 * time.Second},
		{name: "capped", retry: 12, expected: 10 * time.Minute},
		{name: "just_under_cap", retry: 9, expected: 512 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, workers.RetryDelay(tt.retry, nil, nil))
		})
	}
}
