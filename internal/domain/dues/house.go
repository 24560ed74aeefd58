package dues

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared"
)

// Occupancy describes whether anyone lives in a house
type Occupancy string

const (
	OccupancyOccupied Occupancy = "occupied"
	OccupancyVacant   Occupancy = "vacant"
)

// IsValid checks if the occupancy is valid
func (o Occupancy) IsValid() bool {
	return o == OccupancyOccupied || o == OccupancyVacant
}

// String returns the string representation of Occupancy
func (o Occupancy) String() string {
	return string(o)
}

// ParseOccupancy accepts both the stored values and the local terms
// used in spreadsheets ("berpenghuni", "kosong").
func ParseOccupancy(s string) (Occupancy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "occupied", "berpenghuni", "":
		return OccupancyOccupied, nil
	case "vacant", "kosong":
		return OccupancyVacant, nil
	}
	return "", shared.NewDomainError("INVALID_OCCUPANCY", fmt.Sprintf("Unknown occupancy %q", s))
}

// ResidentStatus describes how the occupant relates to the house
type ResidentStatus string

const (
	ResidentStatusOwner   ResidentStatus = "owner"
	ResidentStatusTenant  ResidentStatus = "tenant"
	ResidentStatusUnknown ResidentStatus = "unknown"
)

// IsValid checks if the resident status is valid
func (s ResidentStatus) IsValid() bool {
	switch s {
	case ResidentStatusOwner, ResidentStatusTenant, ResidentStatusUnknown:
		return true
	}
	return false
}

// ParseResidentStatus accepts the stored values and "pemilik", "kontrak", "belum_diketahui"
func ParseResidentStatus(s string) (ResidentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner", "pemilik":
		return ResidentStatusOwner, nil
	case "tenant", "kontrak":
		return ResidentStatusTenant, nil
	case "unknown", "belum_diketahui", "":
		return ResidentStatusUnknown, nil
	}
	return "", shared.NewDomainError("INVALID_RESIDENT_STATUS", fmt.Sprintf("Unknown resident status %q", s))
}

// House is a billable unit in the neighborhood
type House struct {
	shared.BaseAggregateRoot
	Block          string
	Number         string
	Occupancy      Occupancy
	ResidentStatus ResidentStatus
	// IsSubsidized exempts the house from billing
	IsSubsidized   bool
	// IsConnected marks a house sharing water-meter infrastructure with another
	// house of the same owner
	IsConnected    bool
	// MeterCount is the number of meters installed at the house. A connected
	// house fed by its partner's meter has 0.
	MeterCount     int
	OwnerID        *uuid.UUID
}

// NewHouse creates a new house
func NewHouse(block, number string, occupancy Occupancy) (*House, error) {
	block = strings.TrimSpace(block)
	number = strings.TrimSpace(number)
	if block == "" {
		return nil, shared.NewDomainError("INVALID_BLOCK", "Block cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "House number cannot be empty")
	}
	if !occupancy.IsValid() {
		return nil, shared.NewDomainError("INVALID_OCCUPANCY", "Occupancy is not valid")
	}

	return &House{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Block:             block,
		Number:            number,
		Occupancy:         occupancy,
		ResidentStatus:    ResidentStatusUnknown,
		MeterCount:        1,
	}, nil
}

// Label returns "A1/12"
func (h *House) Label() string {
	return h.Block + "/" + h.Number
}

// SetAddress changes block and number
func (h *House) SetAddress(block, number string) error {
	block = strings.TrimSpace(block)
	number = strings.TrimSpace(number)
	if block == "" {
		return shared.NewDomainError("INVALID_BLOCK", "Block cannot be empty")
	}
	if number == "" {
		return shared.NewDomainError("INVALID_NUMBER", "House number cannot be empty")
	}
	h.Block = block
	h.Number = number
	h.IncrementVersion()
	return nil
}

// SetOccupancy updates occupancy and resident status
func (h *House) SetOccupancy(occupancy Occupancy, status ResidentStatus) error {
	if !occupancy.IsValid() {
		return shared.NewDomainError("INVALID_OCCUPANCY", "Occupancy is not valid")
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_RESIDENT_STATUS", "Resident status is not valid")
	}
	h.Occupancy = occupancy
	h.ResidentStatus = status
	h.IncrementVersion()
	return nil
}

// SetConnection updates the shared-meter configuration.
// The meter count is kept at 1 for unconnected houses.
func (h *House) SetConnection(connected bool, meterCount int) error {
	if !connected {
		meterCount = 1
	}
	if meterCount < 0 || meterCount > 2 {
		return shared.NewDomainError("INVALID_METER_COUNT", "Meter count must be between 0 and 2")
	}
	h.IsConnected = connected
	h.MeterCount = meterCount
	h.IncrementVersion()
	return nil
}

// SetSubsidized toggles billing exemption. Returns true when the house
// becomes subsidized, in which case its outstanding dues must be removed.
func (h *House) SetSubsidized(subsidized bool) bool {
	became := subsidized && !h.IsSubsidized
	h.IsSubsidized = subsidized
	h.IncrementVersion()
	return became
}

// AssignOwner sets or clears the owning resident
func (h *House) AssignOwner(ownerID *uuid.UUID) {
	h.OwnerID = ownerID
	h.IncrementVersion()
}

// IsBillable reports whether dues are generated for the house
func (h *House) IsBillable() bool {
	return !h.IsSubsidized
}
