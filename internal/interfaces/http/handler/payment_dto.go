package handler

// SubmitTransferForm is the multipart form of a transfer submission. The
// proof image travels in the "proof" file field.
type SubmitTransferForm struct {
	AmountPaid string `form:"amount_paid" binding:"required" example:"160000"`
	PayerID    string `form:"payer_id" binding:"omitempty,uuid"`
	Notes      string `form:"notes" binding:"max=500"`
}

// RecordCashRequest records cash received by the committee
// @Description Request body for a cash payment
type RecordCashRequest struct {
	AmountPaid  string  `json:"amount_paid" binding:"required" example:"160000"`
	PaymentDate string  `json:"payment_date" binding:"omitempty,datetime=2006-01-02" example:"2025-03-04"`
	PayerID     *string `json:"payer_id" binding:"omitempty,uuid"`
}

// RejectPaymentRequest carries the reason shown to the resident
// @Description Request body for rejecting a transfer
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500" example:"Bukti transfer tidak terbaca"`
}

// ListPaymentsQuery filters the payment list
type ListPaymentsQuery struct {
	DueID  string `form:"due_id" binding:"omitempty,uuid"`
	Status string `form:"status" binding:"omitempty,oneof=pending verified rejected"`
	Method string `form:"method" binding:"omitempty,oneof=transfer cash manual"`
}
