package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
)

// IdempotencyKeyHeader deduplicates resubmitted transfer forms
const IdempotencyKeyHeader = "Idempotency-Key"

var proofContentTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// PaymentHandler handles resident transfers and committee payment review
type PaymentHandler struct {
	BaseHandler
	payments     *appdues.PaymentService
	maxProofSize int64
	submitLimit  []gin.HandlerFunc
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appdues.PaymentService, maxProofSize int64) *PaymentHandler {
	return &PaymentHandler{
		payments:     payments,
		maxProofSize: maxProofSize,
	}
}

// SetSubmitLimit guards the public transfer form with mw
func (h *PaymentHandler) SetSubmitLimit(mw gin.HandlerFunc) *PaymentHandler {
	h.submitLimit = []gin.HandlerFunc{mw}
	return h
}

// SubmitTransfer godoc
// @ID           submitTransfer
// @Summary      Submit a bank transfer
// @Description  Stores the proof and records a pending payment awaiting verification
// @Tags         payments
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Due ID"
// @Param        Idempotency-Key header string false "Form submission key"
// @Param        amount_paid formData string true "Amount transferred"
// @Param        payer_id formData string false "Resident ID"
// @Param        notes formData string false "Notes"
// @Param        proof formData file true "Proof of transfer"
// @Success      201 {object} APIResponse[appdues.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /dues/{id}/payments/transfer [post]
func (h *PaymentHandler) SubmitTransfer(c *gin.Context) {
	dueID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var form SubmitTransferForm
	if !h.Bind(c, &form) {
		return
	}
	amount, err := parseAmount(form.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	payerID, err := optionalUUID(&form.PayerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	proof, ok := h.formFile(c, "proof", true, h.maxProofSize, proofContentTypes...)
	if !ok {
		return
	}
	defer proof.close()

	payment, err := h.payments.SubmitTransfer(c.Request.Context(), appdues.TransferRequest{
		DueID:          dueID,
		AmountPaid:     amount,
		PayerID:        payerID,
		Notes:          form.Notes,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		Proof:          proof.file,
		ProofSize:      proof.size,
		ContentType:    proof.contentType,
		FileName:       proof.name,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// RecordCash godoc
// @ID           recordCashPayment
// @Summary      Record a cash payment
// @Description  Cash handed to the committee is verified immediately
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Due ID"
// @Param        X-Actor header string false "Committee member ID"
// @Param        request body RecordCashRequest true "Cash payment"
// @Success      201 {object} APIResponse[appdues.PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /dues/{id}/payments/cash [post]
func (h *PaymentHandler) RecordCash(c *gin.Context) {
	dueID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req RecordCashRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	payerID, err := optionalUUID(req.PayerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payment, err := h.payments.RecordCash(c.Request.Context(), appdues.CashRequest{
		DueID:       dueID,
		AmountPaid:  amount,
		PaymentDate: paymentDate,
		PayerID:     payerID,
		RecordedBy:  getActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// Verify godoc
// @ID           verifyPayment
// @Summary      Verify a transfer
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        X-Actor header string false "Committee member ID"
// @Success      200 {object} APIResponse[appdues.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Verify(c.Request.Context(), id, getActorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Reject godoc
// @ID           rejectPayment
// @Summary      Reject a transfer
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID"
// @Param        X-Actor header string false "Committee member ID"
// @Param        request body RejectPaymentRequest true "Reason"
// @Success      200 {object} APIResponse[appdues.PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req RejectPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	payment, err := h.payments.Reject(c.Request.Context(), id, getActorID(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Receipt godoc
// @ID           paymentReceipt
// @Summary      Receipt data of a verified payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[appdues.Receipt]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	receipt, err := h.payments.Receipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        due_id query string false "Due ID"
// @Param        status query string false "pending, verified or rejected"
// @Param        method query string false "transfer, cash or manual"
// @Success      200 {object} APIResponse[[]appdues.PaymentResponse]
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var q ListPaymentsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := appdues.PaymentListFilter{
		Status: dues.PaymentStatus(q.Status),
		Method: dues.PaymentMethod(q.Method),
	}
	if q.DueID != "" {
		id := uuid.MustParse(q.DueID)
		filter.DueID = &id
	}

	list, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// RegisterRoutes registers the payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dues/:id/payments/transfer", append(h.submitLimit, h.SubmitTransfer)...)
	rg.POST("/dues/:id/payments/cash", h.RecordCash)

	p := rg.Group("/payments")
	{
		p.GET("", h.List)
		p.POST("/:id/verify", h.Verify)
		p.POST("/:id/reject", h.Reject)
		p.GET("/:id/receipt", h.Receipt)
	}
}
