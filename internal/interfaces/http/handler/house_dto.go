package handler

// CreateHouseRequest registers a house
// @Description Request body for registering a house
type CreateHouseRequest struct {
	Block          string  `json:"block" binding:"required,max=10" example:"A1"`
	Number         string  `json:"number" binding:"required,max=10" example:"12"`
	Occupancy      string  `json:"occupancy" binding:"required,oneof=occupied vacant" example:"occupied"`
	ResidentStatus string  `json:"resident_status" binding:"omitempty,oneof=owner tenant unknown" example:"owner"`
	IsSubsidized   bool    `json:"is_subsidized" example:"false"`
	IsConnected    bool    `json:"is_connected" example:"false"`
	MeterCount     *int    `json:"meter_count" binding:"omitempty,gte=0,lte=2" example:"1"`
	OwnerID        *string `json:"owner_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// UpdateHouseRequest changes the fields that are present
// @Description Request body for updating a house
type UpdateHouseRequest struct {
	Block          *string `json:"block" binding:"omitempty,min=1,max=10" example:"A1"`
	Number         *string `json:"number" binding:"omitempty,min=1,max=10" example:"12"`
	Occupancy      *string `json:"occupancy" binding:"omitempty,oneof=occupied vacant" example:"vacant"`
	ResidentStatus *string `json:"resident_status" binding:"omitempty,oneof=owner tenant unknown" example:"tenant"`
	IsSubsidized   *bool   `json:"is_subsidized" example:"true"`
	IsConnected    *bool   `json:"is_connected" example:"true"`
	MeterCount     *int    `json:"meter_count" binding:"omitempty,gte=0,lte=2" example:"0"`
	OwnerID        *string `json:"owner_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	ClearOwner     bool    `json:"clear_owner" example:"false"`
}

// ListHousesQuery filters the house list
type ListHousesQuery struct {
	Search     string `form:"search" binding:"max=50"`
	Occupancy  string `form:"occupancy" binding:"omitempty,oneof=occupied vacant"`
	Subsidized *bool  `form:"subsidized"`
	Page       int    `form:"page" binding:"omitempty,gte=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,gte=1,lte=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=block number occupancy is_subsidized is_connected created_at updated_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// LumpSumRequest spreads one payment over several dues of a house
// @Description Request body for a lump-sum payment
type LumpSumRequest struct {
	DueIDs      []string `json:"due_ids" binding:"required,min=1,dive,uuid"`
	AmountPaid  string   `json:"amount_paid" binding:"required" example:"480000"`
	PaymentDate string   `json:"payment_date" binding:"omitempty,datetime=2006-01-02" example:"2025-03-04"`
}
