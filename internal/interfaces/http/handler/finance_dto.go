package handler

// ExpenseForm creates or replaces an expense. It binds from JSON or from a
// multipart form, which may carry a "proof" file.
// @Description Expense fields
type ExpenseForm struct {
	Title    string `json:"title" form:"title" binding:"required,max=200" example:"Gaji satpam"`
	Amount   string `json:"amount" form:"amount" binding:"required" example:"1500000"`
	Date     string `json:"date" form:"date" binding:"required,datetime=2006-01-02" example:"2025-03-01"`
	Category string `json:"category" form:"category" binding:"max=50" example:"keamanan"`
	Notes    string `json:"notes" form:"notes" binding:"max=1000"`
}

// ListExpensesQuery filters the expense list
type ListExpensesQuery struct {
	Period   string `form:"period" binding:"omitempty,period"`
	Year     int    `form:"year" binding:"omitempty,gte=2000,lte=9999"`
	Category string `form:"category" binding:"max=50"`
}

// CloneExpensesRequest copies one month's expenses into another
// @Description Request body for cloning expenses
type CloneExpensesRequest struct {
	Source string `json:"source" binding:"required,period" example:"2025-02"`
	Target string `json:"target" binding:"required,period" example:"2025-03"`
}

// MonthlyReportQuery selects the month of a report
type MonthlyReportQuery struct {
	Period string `form:"period" binding:"omitempty,period" example:"2025-03"`
}

// AnchorRequest pins the opening balance of a month
// @Description Request body for setting an opening balance
type AnchorRequest struct {
	InitialBalance string `json:"initial_balance" binding:"required" example:"2500000"`
	Notes          string `json:"notes" binding:"max=500" example:"Saldo kas dari pengurus lama"`
}
