package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
)

// MetricsHandler serves the dashboard metrics snapshot
type MetricsHandler struct {
	BaseHandler
	metricsService *ledgerapp.MetricsService
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metricsService *ledgerapp.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
	}
}

// MetricsResponse represents the ledger metrics snapshot
// @Description Ledger metrics snapshot response
type MetricsResponse struct {
	TotalRevenue       float64          `json:"total_revenue" example:"125000.00"`
	TotalReceived      float64          `json:"total_received" example:"98000.00"`
	PendingAmount      float64          `json:"pending_amount" example:"27000.00"`
	OverdueAmount      float64          `json:"overdue_amount" example:"8500.00"`
	CountsByStatus     map[string]int64 `json:"counts_by_status"`
	OrderCount         int64            `json:"order_count" example:"420"`
	AverageOrderValue  float64          `json:"average_order_value" example:"297.62"`
	RecentPaymentCount int64            `json:"recent_payment_count" example:"36"`
	PeriodDays         int              `json:"period_days" example:"30"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// Snapshot godoc
// @Summary      Get ledger metrics
// @Description  Returns the cached dashboard rollup over the ledger. Snapshots are eventually consistent with writers.
// @Tags         metrics
// @Produce      json
// @Param        period_days query int false "Rolling window in days" default(30)
// @Success      200 {object} dto.Response{data=MetricsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	periodDays := 30
	if raw := c.Query("period_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			h.BadRequest(c, "period_days must be an integer between 1 and 365")
			return
		}
		periodDays = parsed
	}

	snapshot, err := h.metricsService.GetSnapshot(c.Request.Context(), periodDays)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toMetricsResponse(snapshot))
}

func toMetricsResponse(snapshot *ledgerapp.MetricsSnapshot) MetricsResponse {
	counts := make(map[string]int64, len(snapshot.CountsByStatus))
	for status, count := range snapshot.CountsByStatus {
		counts[string(status)] = count
	}
	return MetricsResponse{
		TotalRevenue:       snapshot.TotalRevenue.InexactFloat64(),
		TotalReceived:      snapshot.TotalReceived.InexactFloat64(),
		PendingAmount:      snapshot.PendingAmount.InexactFloat64(),
		OverdueAmount:      snapshot.OverdueAmount.InexactFloat64(),
		CountsByStatus:     counts,
		OrderCount:         snapshot.OrderCount,
		AverageOrderValue:  snapshot.AverageOrderValue.InexactFloat64(),
		RecentPaymentCount: snapshot.RecentPaymentCount,
		PeriodDays:         snapshot.PeriodDays,
		GeneratedAt:        snapshot.GeneratedAt,
	}
}
