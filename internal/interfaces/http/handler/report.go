package handler

import (
	"github.com/gin-gonic/gin"
	appfinance "github.com/rt44/backend/internal/application/finance"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// ReportHandler serves the cash reports and their opening balance anchors
type ReportHandler struct {
	BaseHandler
	reports *appfinance.ReportService
	clock   shared.Clock
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *appfinance.ReportService, clock shared.Clock) *ReportHandler {
	return &ReportHandler{reports: reports, clock: clock}
}

// Monthly godoc
// @ID           monthlyReport
// @Summary      Monthly cash report
// @Description  Opening balance, income split into wajib and sukarela, itemised expenses and closing balance
// @Tags         reports
// @Produce      json
// @Param        period query string false "YYYY-MM, defaults to this month"
// @Success      200 {object} APIResponse[appfinance.MonthlyReport]
// @Failure      400 {object} ErrorResponse
// @Router       /reports/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	var q MonthlyReportQuery
	if !h.BindQuery(c, &q) {
		return
	}
	period := valueobject.PeriodOf(h.clock.Now())
	if q.Period != "" {
		period, _ = valueobject.ParsePeriod(q.Period)
	}

	report, err := h.reports.Monthly(c.Request.Context(), period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Yearly godoc
// @ID           yearlyReport
// @Summary      Yearly cash overview
// @Tags         reports
// @Produce      json
// @Param        year query int false "Year, defaults to this year"
// @Success      200 {object} APIResponse[appfinance.YearlyReport]
// @Failure      400 {object} ErrorResponse
// @Router       /reports/yearly [get]
func (h *ReportHandler) Yearly(c *gin.Context) {
	year, ok := h.parseYear(c, h.clock.Now().Year())
	if !ok {
		return
	}
	report, err := h.reports.Yearly(c.Request.Context(), year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// UpsertAnchor godoc
// @ID           upsertBalanceAnchor
// @Summary      Set a month's opening balance
// @Description  Overrides the carried-over balance for that month and every month after it
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        period path string true "YYYY-MM"
// @Param        request body AnchorRequest true "Opening balance"
// @Success      200 {object} APIResponse[appfinance.AnchorResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /reports/anchors/{period} [put]
func (h *ReportHandler) UpsertAnchor(c *gin.Context) {
	period, ok := h.parsePeriodParam(c, "period")
	if !ok {
		return
	}
	var req AnchorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	amount, err := parseAmount(req.InitialBalance)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	anchor, err := h.reports.UpsertAnchor(c.Request.Context(), period, amount, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, anchor)
}

// DeleteAnchor godoc
// @ID           deleteBalanceAnchor
// @Summary      Remove a month's opening balance
// @Tags         reports
// @Param        period path string true "YYYY-MM"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /reports/anchors/{period} [delete]
func (h *ReportHandler) DeleteAnchor(c *gin.Context) {
	period, ok := h.parsePeriodParam(c, "period")
	if !ok {
		return
	}
	if err := h.reports.DeleteAnchor(c.Request.Context(), period); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	r := rg.Group("/reports")
	{
		r.GET("/monthly", h.Monthly)
		r.GET("/yearly", h.Yearly)
		r.PUT("/anchors/:period", h.UpsertAnchor)
		r.DELETE("/anchors/:period", h.DeleteAnchor)
	}
}
