package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/orderdesk/backend/internal/infrastructure/event"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/orderdesk/backend/internal/interfaces/http/router"
	"github.com/orderdesk/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// LedgerTestServer wraps the test database and HTTP server for API testing
type LedgerTestServer struct {
	DB     *TestDB
	Engine *gin.Engine
}

// NewLedgerTestServer wires repositories, services and handlers against a
// containerized PostgreSQL, mirroring the production server setup.
func NewLedgerTestServer(t *testing.T) *LedgerTestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	testDB := NewTestDB(t)
	log := zap.NewNop()

	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	historyRepo := persistence.NewGormHistoryRepository(testDB.DB)
	uow := persistence.NewGormUnitOfWork(testDB.DB)

	eventBus := event.NewInMemoryEventBus(log)
	require.NoError(t, eventBus.Start(context.Background()))
	t.Cleanup(func() {
		_ = eventBus.Stop(context.Background())
	})

	orderService := ledgerapp.NewOrderService(uow, orderRepo, paymentRepo, eventBus, log)
	paymentService := ledgerapp.NewPaymentService(uow, paymentRepo, historyRepo, eventBus, log)
	bulkService := ledgerapp.NewBulkService(uow, 2, log)
	metricsService := ledgerapp.NewMetricsService(orderRepo, paymentRepo, nil, log)

	orderHandler := handler.NewOrderHandler(orderService, bulkService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	ledgerRoutes := router.NewDomainGroup("ledger", "/ledger")
	ledgerRoutes.POST("/orders", orderHandler.Create)
	ledgerRoutes.GET("/orders", orderHandler.List)
	ledgerRoutes.GET("/orders/overdue", orderHandler.ListOverdue)
	ledgerRoutes.GET("/orders/:id", orderHandler.GetByID)
	ledgerRoutes.GET("/orders/:id/summary", orderHandler.GetSummary)
	ledgerRoutes.GET("/orders/:id/payments", orderHandler.ListPayments)
	ledgerRoutes.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	ledgerRoutes.POST("/orders/bulk-status", orderHandler.BulkUpdateStatus)
	ledgerRoutes.POST("/orders/bulk-delete", orderHandler.BulkDelete)
	ledgerRoutes.POST("/payments", paymentHandler.Record)
	ledgerRoutes.GET("/payments/:id", paymentHandler.GetByID)
	ledgerRoutes.PATCH("/payments/:id", paymentHandler.Update)
	ledgerRoutes.DELETE("/payments/:id", paymentHandler.Delete)
	ledgerRoutes.GET("/payments/:id/history", paymentHandler.History)
	ledgerRoutes.GET("/metrics", metricsHandler.Snapshot)
	r.Register(ledgerRoutes)
	r.Setup()

	return &LedgerTestServer{DB: testDB, Engine: engine}
}

// apiResponse mirrors the standard response envelope
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (s *LedgerTestServer) request(t *testing.T, method, path string, body interface{}, actorID string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp),
			"Failed to parse response body: %s", w.Body.String())
	}
	return w, resp
}

type orderPayload struct {
	ID             string  `json:"id"`
	OrderNumber    string  `json:"order_number"`
	TotalAmount    float64 `json:"total_amount"`
	AmountReceived float64 `json:"amount_received"`
	BalanceAmount  float64 `json:"balance_amount"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"payment_status"`
}

type paymentPayload struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	AmountPaid float64 `json:"amount_paid"`
	Method     string  `json:"payment_method"`
	Status     string  `json:"status"`
}

// TestLedgerAPI_PaymentFlow exercises the full order payment lifecycle
func TestLedgerAPI_PaymentFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := NewLedgerTestServer(t)
	actor := testutil.TestActorID().String()

	// Create an order with an open balance
	w, resp := server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
		"order_number":  "ORD-2026-0001",
		"customer_name": "Acme Corp",
		"total_amount":  1000.0,
	}, actor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order orderPayload
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, 1000.0, order.BalanceAmount)
	assert.Equal(t, "DUE", order.PaymentStatus)

	// Duplicate order numbers are rejected
	w, resp = server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
		"order_number":  "ORD-2026-0001",
		"customer_name": "Copycat Corp",
		"total_amount":  500.0,
	}, actor)
	require.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_DUPLICATE_ORDER_NUMBER", resp.Error.Code)

	// Record a partial payment
	w, resp = server.request(t, http.MethodPost, "/api/v1/ledger/payments", map[string]interface{}{
		"order_id":       order.ID,
		"amount":         400.0,
		"payment_method": "UPI",
	}, actor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment paymentPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payment))
	assert.Equal(t, 400.0, payment.AmountPaid)

	// Summary reflects the partial position
	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders/"+order.ID+"/summary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		AmountReceived float64 `json:"amount_received"`
		BalanceAmount  float64 `json:"balance_amount"`
		PaymentStatus  string  `json:"payment_status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 400.0, summary.AmountReceived)
	assert.Equal(t, 600.0, summary.BalanceAmount)
	assert.Equal(t, "PARTIAL", summary.PaymentStatus)

	// A payment exceeding the balance is rejected and nothing is recorded
	w, resp = server.request(t, http.MethodPost, "/api/v1/ledger/payments", map[string]interface{}{
		"order_id":       order.ID,
		"amount":         700.0,
		"payment_method": "CASH",
	}, actor)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_OVERPAYMENT_REJECTED", resp.Error.Code)

	// Settle the remaining balance exactly
	w, _ = server.request(t, http.MethodPost, "/api/v1/ledger/payments", map[string]interface{}{
		"order_id":       order.ID,
		"amount":         600.0,
		"payment_method": "BANK_TRANSFER",
	}, actor)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders/"+order.ID+"/summary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 0.0, summary.BalanceAmount)
	assert.Equal(t, "PAID", summary.PaymentStatus)

	// Both payments show up on the order
	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders/"+order.ID+"/payments", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var payments []paymentPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payments))
	assert.Len(t, payments, 2)
}

// TestLedgerAPI_PaymentCorrections exercises update, delete and the audit trail
func TestLedgerAPI_PaymentCorrections(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := NewLedgerTestServer(t)
	actor := testutil.TestActorID().String()

	_, resp := server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
		"order_number":  "ORD-2026-0100",
		"customer_name": "Correction Co",
		"total_amount":  800.0,
	}, actor)
	var order orderPayload
	require.NoError(t, json.Unmarshal(resp.Data, &order))

	_, resp = server.request(t, http.MethodPost, "/api/v1/ledger/payments", map[string]interface{}{
		"order_id":       order.ID,
		"amount":         300.0,
		"payment_method": "CARD",
		"notes":          "initial deposit",
	}, actor)
	var payment paymentPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payment))

	// Correct the amount; the order rebalances atomically
	w, _ := server.request(t, http.MethodPatch, "/api/v1/ledger/payments/"+payment.ID, map[string]interface{}{
		"amount": 250.0,
		"notes":  "keyed in wrong amount",
	}, actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders/"+order.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, 250.0, order.AmountReceived)
	assert.Equal(t, 550.0, order.BalanceAmount)

	// An empty update is rejected
	w, _ = server.request(t, http.MethodPatch, "/api/v1/ledger/payments/"+payment.ID,
		map[string]interface{}{}, actor)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The audit trail captured creation and correction
	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/payments/"+payment.ID+"/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []struct {
		Action string `json:"action"`
		Diff   []struct {
			Field string `json:"field"`
			Old   string `json:"old"`
			New   string `json:"new"`
		} `json:"diff"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 2)
	// Newest first
	assert.Equal(t, "UPDATE", entries[0].Action)
	assert.Equal(t, "CREATE", entries[1].Action)
	require.NotEmpty(t, entries[0].Diff)

	// Deleting the payment reverses it from the order balance
	w, _ = server.request(t, http.MethodDelete, "/api/v1/ledger/payments/"+payment.ID, map[string]interface{}{
		"notes": "duplicate entry",
	}, actor)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders/"+order.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, 0.0, order.AmountReceived)
	assert.Equal(t, 800.0, order.BalanceAmount)
	assert.Equal(t, "DUE", order.PaymentStatus)

	// The deleted payment is gone but its trail remains
	w, _ = server.request(t, http.MethodGet, "/api/v1/ledger/payments/"+payment.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/payments/"+payment.ID+"/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	assert.Len(t, entries, 3)
	assert.Equal(t, "DELETE", entries[0].Action)
}

// TestLedgerAPI_BulkAndMetrics exercises bulk operations and the dashboard rollup
func TestLedgerAPI_BulkAndMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := NewLedgerTestServer(t)
	actor := testutil.TestActorID().String()

	orderIDs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		_, resp := server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
			"order_number":  fmt.Sprintf("ORD-2026-02%02d", i),
			"customer_name": "Bulk Buyer",
			"total_amount":  200.0,
		}, actor)
		var order orderPayload
		require.NoError(t, json.Unmarshal(resp.Data, &order))
		orderIDs = append(orderIDs, order.ID)
	}

	// Bulk status update with one unknown ID reports a partial result
	unknown := uuid.New().String()
	w, resp := server.request(t, http.MethodPost, "/api/v1/ledger/orders/bulk-status", map[string]interface{}{
		"order_ids": append(append([]string{}, orderIDs...), unknown),
		"status":    "CONFIRMED",
	}, actor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bulk struct {
		Succeeded []string `json:"succeeded"`
		Failed    []struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &bulk))
	assert.Len(t, bulk.Succeeded, 3)
	require.Len(t, bulk.Failed, 1)
	assert.Equal(t, unknown, bulk.Failed[0].ID)
	assert.Equal(t, "NOT_FOUND", bulk.Failed[0].Code)

	// Pay one order so the rollup has mixed statuses
	_, _ = server.request(t, http.MethodPost, "/api/v1/ledger/payments", map[string]interface{}{
		"order_id":       orderIDs[0],
		"amount":         200.0,
		"payment_method": "CASH",
	}, actor)

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/metrics?period_days=7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var metrics struct {
		TotalRevenue       float64          `json:"total_revenue"`
		TotalReceived      float64          `json:"total_received"`
		PendingAmount      float64          `json:"pending_amount"`
		CountsByStatus     map[string]int64 `json:"counts_by_status"`
		OrderCount         int64            `json:"order_count"`
		RecentPaymentCount int64            `json:"recent_payment_count"`
		PeriodDays         int              `json:"period_days"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &metrics))
	assert.Equal(t, 600.0, metrics.TotalRevenue)
	assert.Equal(t, 200.0, metrics.TotalReceived)
	assert.Equal(t, 400.0, metrics.PendingAmount)
	assert.Equal(t, int64(3), metrics.OrderCount)
	assert.Equal(t, int64(1), metrics.RecentPaymentCount)
	assert.Equal(t, 7, metrics.PeriodDays)
	assert.Equal(t, int64(1), metrics.CountsByStatus["PAID"])

	// Bulk delete removes orders from listings
	w, resp = server.request(t, http.MethodPost, "/api/v1/ledger/orders/bulk-delete", map[string]interface{}{
		"order_ids": []string{orderIDs[2]},
	}, actor)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &bulk))
	assert.Len(t, bulk.Succeeded, 1)

	w, resp = server.request(t, http.MethodGet, "/api/v1/ledger/orders?page=1&page_size=10", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
}

// TestLedgerAPI_OverdueListing exercises the derived overdue view
func TestLedgerAPI_OverdueListing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := NewLedgerTestServer(t)
	actor := testutil.TestActorID().String()

	pastDue := time.Now().AddDate(0, 0, -5).Format(time.RFC3339)
	futureDue := time.Now().AddDate(0, 0, 5).Format(time.RFC3339)

	_, _ = server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
		"order_number":  "ORD-2026-0300",
		"customer_name": "Late Payer",
		"total_amount":  500.0,
		"due_date":      pastDue,
	}, actor)
	_, _ = server.request(t, http.MethodPost, "/api/v1/ledger/orders", map[string]interface{}{
		"order_number":  "ORD-2026-0301",
		"customer_name": "Punctual Payer",
		"total_amount":  500.0,
		"due_date":      futureDue,
	}, actor)

	w, resp := server.request(t, http.MethodGet, "/api/v1/ledger/orders/overdue", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var orders []orderPayload
	require.NoError(t, json.Unmarshal(resp.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-2026-0300", orders[0].OrderNumber)
	assert.Equal(t, "OVERDUE", orders[0].PaymentStatus)
}
