package house

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	csvimport "github.com/rt44/backend/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// HouseResponse is a house with its owner and current monthly amount
type HouseResponse struct {
	ID             uuid.UUID       `json:"id"`
	Block          string          `json:"block"`
	Number         string          `json:"number"`
	Label          string          `json:"label"`
	Occupancy      string          `json:"occupancy"`
	ResidentStatus string          `json:"resident_status"`
	IsSubsidized   bool            `json:"is_subsidized"`
	IsConnected    bool            `json:"is_connected"`
	MeterCount     int             `json:"meter_count"`
	OwnerID        *uuid.UUID      `json:"owner_id,omitempty"`
	OwnerName      string          `json:"owner_name,omitempty"`
	OwnerPhone     string          `json:"owner_phone,omitempty"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toHouseResponse(h *dues.House, owner *dues.Resident, amount decimal.Decimal) HouseResponse {
	resp := HouseResponse{
		ID:             h.ID,
		Block:          h.Block,
		Number:         h.Number,
		Label:          h.Label(),
		Occupancy:      string(h.Occupancy),
		ResidentStatus: string(h.ResidentStatus),
		IsSubsidized:   h.IsSubsidized,
		IsConnected:    h.IsConnected,
		MeterCount:     h.MeterCount,
		OwnerID:        h.OwnerID,
		MonthlyAmount:  amount,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
	if h.IsSubsidized {
		resp.MonthlyAmount = decimal.Zero
	}
	if owner != nil {
		resp.OwnerName = owner.Name
		resp.OwnerPhone = owner.Phone
	}
	return resp
}

// CreateHouseRequest registers a house
type CreateHouseRequest struct {
	Block          string
	Number         string
	Occupancy      dues.Occupancy
	ResidentStatus dues.ResidentStatus
	IsSubsidized   bool
	IsConnected    bool
	// MeterCount defaults to 1
	MeterCount *int
	OwnerID    *uuid.UUID
}

// UpdateHouseRequest changes the fields that are set
type UpdateHouseRequest struct {
	Block          *string
	Number         *string
	Occupancy      *dues.Occupancy
	ResidentStatus *dues.ResidentStatus
	IsSubsidized   *bool
	IsConnected    *bool
	MeterCount     *int
	OwnerID        *uuid.UUID
	// ClearOwner removes the owner; OwnerID is ignored when set
	ClearOwner bool
}

// ListFilter selects houses for listing
type ListFilter struct {
	Search     string
	Occupancy  dues.Occupancy
	Subsidized *bool
	Page       int
	PageSize   int
	OrderBy    string
	OrderDir   string
}

// UpdateResult is a saved house and how many current-month dues changed amount
type UpdateResult struct {
	House          HouseResponse `json:"house"`
	DuesRecomputed int           `json:"dues_recomputed"`
	DuesRemoved    int64         `json:"dues_removed"`
}

// ImportRequest is an uploaded house sheet
type ImportRequest struct {
	File io.Reader
}

// ImportResult counts what an import changed
type ImportResult struct {
	Rows             int `json:"rows"`
	HousesCreated    int `json:"houses_created"`
	HousesUpdated    int `json:"houses_updated"`
	ResidentsCreated int `json:"residents_created"`
	ResidentsUpdated int `json:"residents_updated"`
	DuesCreated      int `json:"dues_created"`
}

// ImportError rejects a whole import and lists the offending rows
type ImportError struct {
	Rows      []csvimport.RowError `json:"rows"`
	Total     int                  `json:"total"`
	Truncated bool                 `json:"truncated"`
}

func (e *ImportError) Error() string {
	return ErrImportRejected.Message
}

// Unwrap lets callers match ErrImportRejected
func (e *ImportError) Unwrap() error {
	return ErrImportRejected
}
