package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// DuesHandler handles due listing, generation and allocation endpoints
type DuesHandler struct {
	BaseHandler
	dues     *appdues.DuesService
	payments *appdues.PaymentService
	clock    shared.Clock
}

// NewDuesHandler creates a new DuesHandler
func NewDuesHandler(duesService *appdues.DuesService, payments *appdues.PaymentService, clock shared.Clock) *DuesHandler {
	return &DuesHandler{
		dues:     duesService,
		payments: payments,
		clock:    clock,
	}
}

// List godoc
// @ID           listDues
// @Summary      List dues
// @Tags         dues
// @Produce      json
// @Param        house_id query string false "House ID"
// @Param        year query int false "Year"
// @Param        month query int false "Month, requires year"
// @Param        status query string false "unpaid, paid or overdue"
// @Success      200 {object} APIResponse[[]appdues.DueResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /dues [get]
func (h *DuesHandler) List(c *gin.Context) {
	var q ListDuesQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := appdues.DueListFilter{Year: q.Year, Status: dues.DueStatus(q.Status)}
	if q.HouseID != "" {
		id := uuid.MustParse(q.HouseID)
		filter.HouseID = &id
	}
	if q.Month != 0 {
		if q.Year == 0 {
			h.HandleError(c, shared.NewDomainError("INVALID_PERIOD", "month requires year"))
			return
		}
		p, err := valueobject.NewPeriod(q.Year, time.Month(q.Month))
		if err != nil {
			h.HandleError(c, shared.WrapDomainError("INVALID_PERIOD", err.Error(), err))
			return
		}
		filter.Period = &p
		filter.Year = 0
	}

	list, err := h.dues.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Get godoc
// @ID           getDue
// @Summary      Get a due
// @Tags         dues
// @Produce      json
// @Param        id path string true "Due ID"
// @Success      200 {object} APIResponse[appdues.DueResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /dues/{id} [get]
func (h *DuesHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	due, err := h.dues.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, due)
}

// UpdateAmount godoc
// @ID           updateDueAmount
// @Summary      Change a due amount
// @Description  The status is re-derived from verified payments afterwards
// @Tags         dues
// @Accept       json
// @Produce      json
// @Param        id path string true "Due ID"
// @Param        request body UpdateDueAmountRequest true "Amount"
// @Success      200 {object} APIResponse[appdues.DueResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /dues/{id}/amount [put]
func (h *DuesHandler) UpdateAmount(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateDueAmountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	due, err := h.dues.UpdateAmount(c.Request.Context(), id, amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, due)
}

// BulkUpdateAmount godoc
// @ID           bulkUpdateDueAmount
// @Summary      Change the amount of a period's dues
// @Tags         dues
// @Accept       json
// @Produce      json
// @Param        request body BulkDueAmountRequest true "Period, amount and optional houses"
// @Success      200 {object} APIResponse[CountData]
// @Failure      400 {object} ErrorResponse
// @Router       /dues/amount [put]
func (h *DuesHandler) BulkUpdateAmount(c *gin.Context) {
	var req BulkDueAmountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	houseIDs, err := parseUUIDs(req.HouseIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	period, _ := valueobject.ParsePeriod(req.Period)

	n, err := h.dues.BulkUpdateAmount(c.Request.Context(), appdues.BulkAmountRequest{
		Period:   period,
		Amount:   amount,
		HouseIDs: houseIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CountData{Count: int64(n)})
}

// Generate godoc
// @ID           generateDues
// @Summary      Generate dues
// @Description  Creates the missing dues of a period for every billable house. Safe to repeat.
// @Tags         dues
// @Accept       json
// @Produce      json
// @Param        request body GenerateDuesRequest false "Period, defaults to this month"
// @Success      200 {object} APIResponse[appdues.GenerateResult]
// @Failure      400 {object} ErrorResponse
// @Router       /dues/generate [post]
func (h *DuesHandler) Generate(c *gin.Context) {
	var req GenerateDuesRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	var period *valueobject.Period
	if req.Period != "" {
		p, _ := valueobject.ParsePeriod(req.Period)
		period = &p
	}
	result, err := h.dues.Generate(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SweepOverdue godoc
// @ID           sweepOverdueDues
// @Summary      Mark overdue dues
// @Description  Unpaid dues past their due date become overdue
// @Tags         dues
// @Produce      json
// @Success      200 {object} APIResponse[SweepResult]
// @Router       /dues/sweep-overdue [post]
func (h *DuesHandler) SweepOverdue(c *gin.Context) {
	today := shared.Today(h.clock.Now())
	n, err := h.dues.SweepOverdue(c.Request.Context(), today)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SweepResult{Today: today.Format(DateLayout), Changed: n})
}

// Calendar godoc
// @ID           duesCalendar
// @Summary      Payment calendar
// @Description  Every house by the twelve months of a year
// @Tags         dues
// @Produce      json
// @Param        year query int false "Year, defaults to this year"
// @Success      200 {object} APIResponse[appdues.Calendar]
// @Failure      400 {object} ErrorResponse
// @Router       /dues/calendar [get]
func (h *DuesHandler) Calendar(c *gin.Context) {
	year, ok := h.parseYear(c, h.clock.Now().Year())
	if !ok {
		return
	}
	calendar, err := h.dues.Calendar(c.Request.Context(), year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, calendar)
}

// Dashboard godoc
// @ID           duesDashboard
// @Summary      Current month summary
// @Tags         dues
// @Produce      json
// @Success      200 {object} APIResponse[appdues.Dashboard]
// @Router       /dues/dashboard [get]
func (h *DuesHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.dues.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// ManualPayment godoc
// @ID           setManualPayment
// @Summary      Set the manual payment of a due
// @Description  Splits the amount into wajib and sukarela. Zero removes the manual payment.
// @Tags         dues
// @Accept       json
// @Produce      json
// @Param        id path string true "Due ID"
// @Param        X-Actor header string false "Committee member ID"
// @Param        request body ManualPaymentRequest true "Amount paid"
// @Success      200 {object} APIResponse[appdues.AllocationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /dues/{id}/manual-payment [put]
func (h *DuesHandler) ManualPayment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req ManualPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.payments.AllocateSingle(c.Request.Context(), id, amount, getActorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// LumpSum godoc
// @ID           allocateLumpSum
// @Summary      Spread a payment over several dues
// @Description  Fills the selected dues oldest first; the remainder becomes sukarela on the last one
// @Tags         dues
// @Accept       json
// @Produce      json
// @Param        id path string true "House ID"
// @Param        X-Actor header string false "Committee member ID"
// @Param        request body LumpSumRequest true "Dues and amount"
// @Success      200 {object} APIResponse[appdues.LumpSumResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /houses/{id}/lump-sum [post]
func (h *DuesHandler) LumpSum(c *gin.Context) {
	houseID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req LumpSumRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dueIDs, err := parseUUIDs(req.DueIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.payments.AllocateLumpSum(c.Request.Context(), appdues.LumpSumRequest{
		HouseID:     houseID,
		DueIDs:      dueIDs,
		AmountPaid:  amount,
		PaymentDate: paymentDate,
		RecordedBy:  getActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers the dues routes
func (h *DuesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	d := rg.Group("/dues")
	{
		d.GET("", h.List)
		d.GET("/calendar", h.Calendar)
		d.GET("/dashboard", h.Dashboard)
		d.POST("/generate", h.Generate)
		d.POST("/sweep-overdue", h.SweepOverdue)
		d.PUT("/amount", h.BulkUpdateAmount)
		d.GET("/:id", h.Get)
		d.PUT("/:id/amount", h.UpdateAmount)
		d.PUT("/:id/manual-payment", h.ManualPayment)
	}
	rg.POST("/houses/:id/lump-sum", h.LumpSum)
}
