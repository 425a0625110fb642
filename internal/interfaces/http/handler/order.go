package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *ledgerapp.OrderService
	bulkService  *ledgerapp.BulkService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *ledgerapp.OrderService, bulkService *ledgerapp.BulkService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		bulkService:  bulkService,
	}
}

// CreateOrderRequest represents a request to register a new order
// @Description Request body for creating a new order
type CreateOrderRequest struct {
	OrderNumber  string     `json:"order_number" binding:"required,min=1,max=50" example:"ORD-2026-00042"`
	CustomerName string     `json:"customer_name" binding:"required,min=1,max=200" example:"Acme Corp"`
	TotalAmount  float64    `json:"total_amount" binding:"required,gte=0" example:"1500.00"`
	DueDate      *time.Time `json:"due_date"`
}

// UpdateOrderStatusRequest represents a request to change an order's fulfilment status
// @Description Request body for updating order status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED" example:"CONFIRMED"`
}

// BulkStatusRequest represents a bulk status update over multiple orders
// @Description Request body for bulk status update
type BulkStatusRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,max=500,dive,uuid"`
	Status   string   `json:"status" binding:"required,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED" example:"SHIPPED"`
}

// BulkDeleteRequest represents a bulk soft delete over multiple orders
// @Description Request body for bulk delete
type BulkDeleteRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,max=500,dive,uuid"`
}

// OrderResponse represents an order in API responses
// @Description Order response
type OrderResponse struct {
	ID             string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber    string     `json:"order_number" example:"ORD-2026-00042"`
	CustomerName   string     `json:"customer_name" example:"Acme Corp"`
	TotalAmount    float64    `json:"total_amount" example:"1500.00"`
	AmountReceived float64    `json:"amount_received" example:"500.00"`
	BalanceAmount  float64    `json:"balance_amount" example:"1000.00"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status" example:"PENDING"`
	PaymentStatus  string     `json:"payment_status" example:"PARTIAL"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int        `json:"version" example:"1"`
}

// OrderSummaryResponse represents an order's payment position
// @Description Order payment summary response
type OrderSummaryResponse struct {
	OrderID        string     `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber    string     `json:"order_number" example:"ORD-2026-00042"`
	CustomerName   string     `json:"customer_name" example:"Acme Corp"`
	TotalAmount    float64    `json:"total_amount" example:"1500.00"`
	AmountReceived float64    `json:"amount_received" example:"500.00"`
	BalanceAmount  float64    `json:"balance_amount" example:"1000.00"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status" example:"CONFIRMED"`
	PaymentStatus  string     `json:"payment_status" example:"PARTIAL"`
}

// BulkResultResponse reports per-item outcomes of a bulk operation
// @Description Bulk operation result
type BulkResultResponse struct {
	Succeeded []string              `json:"succeeded"`
	Failed    []BulkFailureResponse `json:"failed"`
}

// BulkFailureResponse describes one failed item in a bulk operation
// @Description Bulk operation failure item
type BulkFailureResponse struct {
	ID      string `json:"id" example:"550e8400-e29b-41d4-a716-446655440010"`
	Code    string `json:"code" example:"NOT_FOUND"`
	Message string `json:"message" example:"Resource not found"`
}

// Create godoc
// @Summary      Create a new order
// @Description  Register an order with an open balance in the payment ledger
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string false "Acting user ID"
// @Param        request body CreateOrderRequest true "Order creation request"
// @Success      201 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), ledgerapp.CreateOrderRequest{
		OrderNumber:  req.OrderNumber,
		CustomerName: req.CustomerName,
		TotalAmount:  decimal.NewFromFloat(req.TotalAmount),
		DueDate:      req.DueDate,
		Actor:        actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toOrderResponse(order))
}

// GetByID godoc
// @Summary      Get order by ID
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order))
}

// GetSummary godoc
// @Summary      Get order payment summary
// @Description  Returns the order's payment position with the status re-derived against the current clock
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=OrderSummaryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/{id}/summary [get]
func (h *OrderHandler) GetSummary(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	summary, err := h.orderService.GetSummary(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, OrderSummaryResponse{
		OrderID:        summary.OrderID.String(),
		OrderNumber:    summary.OrderNumber,
		CustomerName:   summary.CustomerName,
		TotalAmount:    summary.TotalAmount.InexactFloat64(),
		AmountReceived: summary.AmountReceived.InexactFloat64(),
		BalanceAmount:  summary.BalanceAmount.InexactFloat64(),
		DueDate:        summary.DueDate,
		Status:         summary.Status.String(),
		PaymentStatus:  summary.PaymentStatus.String(),
	})
}

// ListPayments godoc
// @Summary      List payments for an order
// @Description  Returns the non-deleted payments recorded against an order, newest first
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/{id}/payments [get]
func (h *OrderHandler) ListPayments(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	payments, err := h.orderService.ListPayments(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, toPaymentResponse(&payments[i]))
	}
	h.Success(c, responses)
}

// orderListQuery captures the query parameters of the order list endpoint
type orderListQuery struct {
	dto.ListRequest
	Status        *string  `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED"`
	PaymentStatus *string  `form:"payment_status" binding:"omitempty,oneof=PAID PARTIAL DUE OVERDUE"`
	DueFrom       *string  `form:"due_from"`
	DueTo         *string  `form:"due_to"`
	Overdue       *bool    `form:"overdue"`
	MinBalance    *float64 `form:"min_balance"`
	MaxBalance    *float64 `form:"max_balance"`
}

// List godoc
// @Summary      List orders
// @Description  Filtered, paginated order list
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search in order number and customer name"
// @Param        status query string false "Fulfilment status filter"
// @Param        payment_status query string false "Payment status filter"
// @Param        overdue query bool false "Only overdue orders"
// @Success      200 {object} dto.Response{data=[]OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	query := orderListQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := buildOrderFilter(query)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(page.Items))
	for i := range page.Items {
		responses = append(responses, toOrderResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// ListOverdue godoc
// @Summary      List overdue orders
// @Description  Orders whose due date has passed with a balance still open
// @Tags         orders
// @Produce      json
// @Success      200 {object} dto.Response{data=[]OrderResponse}
// @Router       /ledger/orders/overdue [get]
func (h *OrderHandler) ListOverdue(c *gin.Context) {
	query := orderListQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := buildOrderFilter(query)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orders, err := h.orderService.ListOverdue(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, toOrderResponse(&orders[i]))
	}
	h.Success(c, responses)
}

// UpdateStatus godoc
// @Summary      Update order status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body UpdateOrderStatusRequest true "Status update request"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, ledger.OrderStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order))
}

// BulkUpdateStatus godoc
// @Summary      Bulk update order status
// @Description  Updates the status of many orders. Per-item failures do not roll back succeeded items.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body BulkStatusRequest true "Bulk status update request"
// @Success      200 {object} dto.Response{data=BulkResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/bulk-status [post]
func (h *OrderHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ids, err := parseUUIDs(req.OrderIDs)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.bulkService.BulkUpdateStatus(c.Request.Context(), ids, ledger.OrderStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBulkResultResponse(result))
}

// BulkDelete godoc
// @Summary      Bulk soft delete orders
// @Description  Soft deletes many orders. Per-item failures do not roll back succeeded items.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body BulkDeleteRequest true "Bulk delete request"
// @Success      200 {object} dto.Response{data=BulkResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/orders/bulk-delete [post]
func (h *OrderHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ids, err := parseUUIDs(req.OrderIDs)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.bulkService.BulkSoftDelete(c.Request.Context(), ids)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBulkResultResponse(result))
}

func toOrderResponse(order *ledger.Order) OrderResponse {
	return OrderResponse{
		ID:             order.ID.String(),
		OrderNumber:    order.OrderNumber,
		CustomerName:   order.CustomerName,
		TotalAmount:    order.TotalAmount.InexactFloat64(),
		AmountReceived: order.AmountReceived.InexactFloat64(),
		BalanceAmount:  order.BalanceAmount.InexactFloat64(),
		DueDate:        order.DueDate,
		Status:         order.Status.String(),
		PaymentStatus:  order.PaymentStatus.String(),
		Notes:          order.Notes,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		Version:        order.Version,
	}
}

func toBulkResultResponse(result *ledgerapp.BulkResult) BulkResultResponse {
	resp := BulkResultResponse{
		Succeeded: make([]string, 0, len(result.Succeeded)),
		Failed:    make([]BulkFailureResponse, 0, len(result.Failed)),
	}
	for _, id := range result.Succeeded {
		resp.Succeeded = append(resp.Succeeded, id.String())
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, BulkFailureResponse{
			ID:      f.ID.String(),
			Code:    f.Code,
			Message: f.Message,
		})
	}
	return resp
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func buildOrderFilter(query orderListQuery) (ledger.OrderFilter, error) {
	filter := ledger.OrderFilter{}
	filter.Page = query.Page
	filter.PageSize = query.PageSize
	filter.OrderBy = query.OrderBy
	filter.OrderDir = query.OrderDir
	filter.Search = query.Search

	if query.Status != nil {
		status := ledger.OrderStatus(*query.Status)
		filter.Status = &status
	}
	if query.PaymentStatus != nil {
		status := ledger.PaymentStatus(*query.PaymentStatus)
		filter.PaymentStatus = &status
	}
	if query.DueFrom != nil {
		t, err := time.Parse(time.RFC3339, *query.DueFrom)
		if err != nil {
			return filter, err
		}
		filter.DueFrom = &t
	}
	if query.DueTo != nil {
		t, err := time.Parse(time.RFC3339, *query.DueTo)
		if err != nil {
			return filter, err
		}
		filter.DueTo = &t
	}
	filter.Overdue = query.Overdue
	if query.MinBalance != nil {
		d := decimal.NewFromFloat(*query.MinBalance)
		filter.MinBalance = &d
	}
	if query.MaxBalance != nil {
		d := decimal.NewFromFloat(*query.MaxBalance)
		filter.MaxBalance = &d
	}
	return filter, nil
}
