package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appfinance "github.com/rt44/backend/internal/application/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// ExpenseHandler handles expense endpoints
type ExpenseHandler struct {
	BaseHandler
	expenses     *appfinance.ExpenseService
	maxProofSize int64
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenses *appfinance.ExpenseService, maxProofSize int64) *ExpenseHandler {
	return &ExpenseHandler{
		expenses:     expenses,
		maxProofSize: maxProofSize,
	}
}

// bindExpense reads the expense fields and the optional proof. The caller
// must close the returned upload.
func (h *ExpenseHandler) bindExpense(c *gin.Context) (appfinance.ExpenseRequest, *upload, bool) {
	var form ExpenseForm
	if !h.Bind(c, &form) {
		return appfinance.ExpenseRequest{}, nil, false
	}
	amount, err := parseAmount(form.Amount)
	if err != nil {
		h.HandleError(c, err)
		return appfinance.ExpenseRequest{}, nil, false
	}
	date, _ := time.Parse(DateLayout, form.Date)

	req := appfinance.ExpenseRequest{
		Title:    form.Title,
		Amount:   amount,
		Date:     date,
		Category: form.Category,
		Notes:    form.Notes,
	}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return req, nil, true
	}

	proof, ok := h.formFile(c, "proof", false, h.maxProofSize, proofContentTypes...)
	if !ok {
		return appfinance.ExpenseRequest{}, nil, false
	}
	if proof != nil {
		req.Proof = proof.file
		req.ProofSize = proof.size
		req.ContentType = proof.contentType
		req.FileName = proof.name
	}
	return req, proof, true
}

// Create godoc
// @ID           createExpense
// @Summary      Record an expense
// @Tags         expenses
// @Accept       json,mpfd
// @Produce      json
// @Param        request body ExpenseForm true "Expense"
// @Success      201 {object} APIResponse[appfinance.ExpenseResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	req, proof, ok := h.bindExpense(c)
	if !ok {
		return
	}
	defer proof.close()

	expense, err := h.expenses.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, expense)
}

// List godoc
// @ID           listExpenses
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Param        period query string false "YYYY-MM"
// @Param        year query int false "Year"
// @Param        category query string false "Category"
// @Success      200 {object} APIResponse[appfinance.ExpenseList]
// @Failure      400 {object} ErrorResponse
// @Router       /expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	var q ListExpensesQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := appfinance.ExpenseListFilter{Year: q.Year, Category: q.Category}
	if q.Period != "" {
		p, _ := valueobject.ParsePeriod(q.Period)
		filter.Period = &p
	}

	list, err := h.expenses.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Get godoc
// @ID           getExpense
// @Summary      Get an expense
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} APIResponse[appfinance.ExpenseResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	expense, err := h.expenses.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// Update godoc
// @ID           updateExpense
// @Summary      Replace an expense
// @Description  A new proof replaces the stored one; without a proof the old one is kept
// @Tags         expenses
// @Accept       json,mpfd
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body ExpenseForm true "Expense"
// @Success      200 {object} APIResponse[appfinance.ExpenseResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	req, proof, ok := h.bindExpense(c)
	if !ok {
		return
	}
	defer proof.close()

	expense, err := h.expenses.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// Delete godoc
// @ID           deleteExpense
// @Summary      Delete an expense
// @Tags         expenses
// @Param        id path string true "Expense ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.expenses.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Clone godoc
// @ID           cloneExpenses
// @Summary      Copy a month's expenses
// @Description  Days past the end of the target month are clamped to its last day
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CloneExpensesRequest true "Source and target months"
// @Success      201 {object} APIResponse[appfinance.CloneResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /expenses/clone [post]
func (h *ExpenseHandler) Clone(c *gin.Context) {
	var req CloneExpensesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	source, _ := valueobject.ParsePeriod(req.Source)
	target, _ := valueobject.ParsePeriod(req.Target)

	result, err := h.expenses.Clone(c.Request.Context(), source, target)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ProofURL godoc
// @ID           expenseProofURL
// @Summary      Link to an expense proof
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} APIResponse[URLData]
// @Failure      404 {object} ErrorResponse
// @Router       /expenses/{id}/proof [get]
func (h *ExpenseHandler) ProofURL(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	url, expiresAt, err := h.expenses.ProofURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, URLData{URL: url, ExpiresAt: expiresAt.UTC().Format(time.RFC3339)})
}

// RegisterRoutes registers the expense routes
func (h *ExpenseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	e := rg.Group("/expenses")
	{
		e.GET("", h.List)
		e.POST("", h.Create)
		e.POST("/clone", h.Clone)
		e.GET("/:id", h.Get)
		e.PUT("/:id", h.Update)
		e.DELETE("/:id", h.Delete)
		e.GET("/:id/proof", h.ProofURL)
	}
}
