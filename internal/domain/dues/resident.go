package dues

import (
	"strings"

	"github.com/rt44/backend/internal/domain/shared"
)

// Resident is a person who owns a house or pays dues
type Resident struct {
	shared.BaseEntity
	Name  string
	Email string
	Phone string
}

// NewResident creates a new resident
func NewResident(name, email, phone string) (*Resident, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Resident name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Resident name cannot exceed 100 characters")
	}
	return &Resident{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Phone:      NormalizePhone(phone),
	}, nil
}

// UpdateContact replaces contact details
func (r *Resident) UpdateContact(name, email, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Resident name cannot be empty")
	}
	r.Name = name
	r.Email = strings.ToLower(strings.TrimSpace(email))
	r.Phone = NormalizePhone(phone)
	r.Touch()
	return nil
}

// HasPhone reports whether the resident can receive WhatsApp messages
func (r *Resident) HasPhone() bool {
	return r.Phone != ""
}

// NormalizePhone strips spaces, dashes and a leading "+" from a phone number
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
