package dues

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tariff holds the monthly rates
type Tariff struct {
	OccupiedRate    decimal.Decimal
	VacantRate      decimal.Decimal
	// SharedMeterRate is charged to each house of a connected pair that
	// shares a single meter (half of the combined tariff)
	SharedMeterRate decimal.Decimal
}

// DefaultTariff returns the standard rates
func DefaultTariff() Tariff {
	return Tariff{
		OccupiedRate:    decimal.NewFromInt(160000),
		VacantRate:      decimal.NewFromInt(110000),
		SharedMeterRate: decimal.NewFromInt(135000),
	}
}

// OwnerGroupIndex groups connected houses by owner. It is built from one
// house listing and replaces a store lookup per calculation.
type OwnerGroupIndex struct {
	groups map[uuid.UUID][]House
}

// NewOwnerGroupIndex indexes the connected, owned houses in the listing
func NewOwnerGroupIndex(houses []House) *OwnerGroupIndex {
	idx := &OwnerGroupIndex{groups: make(map[uuid.UUID][]House)}
	for _, h := range houses {
		if h.IsConnected && h.OwnerID != nil {
			idx.groups[*h.OwnerID] = append(idx.groups[*h.OwnerID], h)
		}
	}
	return idx
}

// ConnectedGroup returns the connected group h belongs to, with h's current
// state in place of any indexed copy. Returns nil when h is not connected or
// has no owner.
func (idx *OwnerGroupIndex) ConnectedGroup(h *House) []House {
	if !h.IsConnected || h.OwnerID == nil {
		return nil
	}
	group := []House{*h}
	if idx == nil {
		return group
	}
	for _, other := range idx.groups[*h.OwnerID] {
		if other.ID != h.ID {
			group = append(group, other)
		}
	}
	return group
}

// Calculator computes a house's monthly due amount
type Calculator struct {
	tariff Tariff
	index  *OwnerGroupIndex
}

// NewCalculator creates a calculator. A nil index treats every house as
// standing alone.
func NewCalculator(tariff Tariff, index *OwnerGroupIndex) *Calculator {
	return &Calculator{tariff: tariff, index: index}
}

// Calculate returns the due amount for a house.
//
// A connected group of two or more houses under one owner whose meter counts
// sum to 1 pays the shared-meter rate per house. Every other case, including
// separately metered connected houses and a connected house without a
// partner, pays the standard rate for its own occupancy.
func (c *Calculator) Calculate(h *House) decimal.Decimal {
	if group := c.index.ConnectedGroup(h); len(group) >= 2 {
		meters := 0
		for _, g := range group {
			meters += g.MeterCount
		}
		if meters == 1 {
			return c.tariff.SharedMeterRate
		}
	}

	if h.Occupancy == OccupancyVacant {
		return c.tariff.VacantRate
	}
	return c.tariff.OccupiedRate
}

// AffectedHouses returns the IDs of houses whose amount may change when h
// changes: h itself plus its connected group.
func (c *Calculator) AffectedHouses(h *House) []uuid.UUID {
	ids := []uuid.UUID{h.ID}
	for _, g := range c.index.ConnectedGroup(h) {
		if g.ID != h.ID {
			ids = append(ids, g.ID)
		}
	}
	return ids
}
