package handler

// ListDuesQuery filters the due list
type ListDuesQuery struct {
	HouseID string `form:"house_id" binding:"omitempty,uuid"`
	Year    int    `form:"year" binding:"omitempty,gte=2000,lte=9999"`
	Month   int    `form:"month" binding:"omitempty,gte=1,lte=12"`
	Status  string `form:"status" binding:"omitempty,oneof=unpaid paid overdue"`
}

// UpdateDueAmountRequest overrides the amount of one due
// @Description Request body for changing a due amount
type UpdateDueAmountRequest struct {
	Amount string `json:"amount" binding:"required" example:"135000"`
}

// BulkDueAmountRequest overrides the amount of every due in a period
// @Description Request body for changing the amount of many dues
type BulkDueAmountRequest struct {
	Period   string   `json:"period" binding:"required,period" example:"2025-03"`
	Amount   string   `json:"amount" binding:"required" example:"150000"`
	HouseIDs []string `json:"house_ids" binding:"omitempty,dive,uuid"`
}

// GenerateDuesRequest picks the period to generate; empty means this month
// @Description Request body for generating dues
type GenerateDuesRequest struct {
	Period string `json:"period" binding:"omitempty,period" example:"2025-03"`
}

// ManualPaymentRequest sets the committee-entered payment of a due
// @Description Request body for a manual payment; zero removes it
type ManualPaymentRequest struct {
	AmountPaid string `json:"amount_paid" binding:"required" example:"160000"`
}

// SweepResult reports an overdue sweep
type SweepResult struct {
	Today   string `json:"today" example:"2025-03-11"`
	Changed int    `json:"changed" example:"4"`
}
