package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *ledgerapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RecordPaymentRequest represents a request to record a payment against an order
// @Description Request body for recording a payment
type RecordPaymentRequest struct {
	OrderID     string     `json:"order_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440010"`
	Amount      float64    `json:"amount" binding:"required,gt=0" example:"500.00"`
	Method      string     `json:"payment_method" binding:"required,oneof=CASH UPI BANK_TRANSFER CARD CHECK" example:"UPI"`
	PaymentDate *time.Time `json:"payment_date"`
	DueDate     *time.Time `json:"due_date"`
	Notes       string     `json:"notes" binding:"max=1000"`
}

// UpdatePaymentRequest represents a partial payment update.
// Absent fields leave the stored value unchanged.
// @Description Request body for updating a payment
type UpdatePaymentRequest struct {
	Amount      *float64   `json:"amount" binding:"omitempty,gt=0" example:"450.00"`
	Method      *string    `json:"payment_method" binding:"omitempty,oneof=CASH UPI BANK_TRANSFER CARD CHECK" example:"CARD"`
	PaymentDate *time.Time `json:"payment_date"`
	DueDate     *time.Time `json:"due_date"`
	Notes       *string    `json:"notes" binding:"omitempty,max=1000"`
}

// DeletePaymentRequest carries the optional audit note for a payment deletion
// @Description Request body for deleting a payment
type DeletePaymentRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// PaymentResponse represents a payment transaction in API responses
// @Description Payment transaction response
type PaymentResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440020"`
	OrderID     string     `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440010"`
	AmountPaid  float64    `json:"amount_paid" example:"500.00"`
	Method      string     `json:"payment_method" example:"UPI"`
	PaymentDate time.Time  `json:"payment_date"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status" example:"PARTIAL"`
	Notes       string     `json:"notes,omitempty"`
	CreatedBy   *string    `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HistoryEntryResponse represents one audit trail entry with its field diff
// @Description Payment history entry response
type HistoryEntryResponse struct {
	ID        string                  `json:"id"`
	PaymentID string                  `json:"payment_id"`
	OrderID   string                  `json:"order_id"`
	Action    string                  `json:"action" example:"UPDATE"`
	OldValues *ledger.PaymentSnapshot `json:"old_values,omitempty"`
	NewValues *ledger.PaymentSnapshot `json:"new_values,omitempty"`
	Diff      []ledger.FieldChange    `json:"diff"`
	ChangedBy *string                 `json:"changed_by,omitempty"`
	ChangedAt time.Time               `json:"changed_at"`
	Notes     string                  `json:"notes,omitempty"`
}

// Record godoc
// @Summary      Record a payment
// @Description  Records a payment against an order and updates the order's running totals atomically
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string false "Acting user ID"
// @Param        request body RecordPaymentRequest true "Payment request"
// @Success      201 {object} dto.Response{data=PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), ledgerapp.RecordPaymentRequest{
		OrderID:     orderID,
		Amount:      decimal.NewFromFloat(req.Amount),
		Method:      ledger.PaymentMethod(req.Method),
		PaymentDate: paymentDate,
		DueDate:     req.DueDate,
		Notes:       req.Notes,
		Actor:       actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

// GetByID godoc
// @Summary      Get payment by ID
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// Update godoc
// @Summary      Update a payment
// @Description  Applies a partial update to a payment, re-adjusting the owning order's totals atomically
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string false "Acting user ID"
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body UpdatePaymentRequest true "Payment update request"
// @Success      200 {object} dto.Response{data=PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	fields := ledger.PaymentUpdate{
		PaymentDate: req.PaymentDate,
		DueDate:     req.DueDate,
		Notes:       req.Notes,
	}
	if req.Amount != nil {
		fields.Amount = toDecimalPtr(*req.Amount)
	}
	if req.Method != nil {
		method := ledger.PaymentMethod(*req.Method)
		fields.Method = &method
	}

	payment, err := h.paymentService.UpdatePayment(c.Request.Context(), ledgerapp.UpdatePaymentRequest{
		PaymentID: paymentID,
		Fields:    fields,
		Actor:     actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// Delete godoc
// @Summary      Delete a payment
// @Description  Soft-deletes the payment and reverses its amount on the owning order atomically
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string false "Acting user ID"
// @Param        id path string true "Payment ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	// Body is optional on delete
	var req DeletePaymentRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.paymentService.DeletePayment(c.Request.Context(), paymentID, actorID, req.Notes); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// History godoc
// @Summary      Get payment audit trail
// @Description  Returns the write-once history entries for a payment, newest first, with derived field diffs
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]HistoryEntryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledger/payments/{id}/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	entries, err := h.paymentService.GetHistory(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toHistoryEntryResponse(&entries[i]))
	}
	h.Success(c, responses)
}

func toPaymentResponse(payment *ledger.PaymentTransaction) PaymentResponse {
	resp := PaymentResponse{
		ID:          payment.ID.String(),
		OrderID:     payment.OrderID.String(),
		AmountPaid:  payment.AmountPaid.InexactFloat64(),
		Method:      payment.Method.String(),
		PaymentDate: payment.PaymentDate,
		DueDate:     payment.DueDate,
		Status:      payment.Status.String(),
		Notes:       payment.Notes,
		CreatedAt:   payment.CreatedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
	if payment.CreatedBy != nil {
		s := payment.CreatedBy.String()
		resp.CreatedBy = &s
	}
	return resp
}

func toHistoryEntryResponse(view *ledgerapp.HistoryEntryView) HistoryEntryResponse {
	entry := view.Entry
	resp := HistoryEntryResponse{
		ID:        entry.ID.String(),
		PaymentID: entry.PaymentID.String(),
		OrderID:   entry.OrderID.String(),
		Action:    string(entry.Action),
		OldValues: entry.OldValues,
		NewValues: entry.NewValues,
		Diff:      view.Diff,
		ChangedAt: entry.ChangedAt,
		Notes:     entry.Notes,
	}
	if entry.ChangedBy != nil {
		s := entry.ChangedBy.String()
		resp.ChangedBy = &s
	}
	return resp
}
