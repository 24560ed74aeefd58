package reminder

import "github.com/rt44/backend/internal/domain/shared"

var (
	// ErrNothingOutstanding is returned when the house owes nothing for the year
	ErrNothingOutstanding = shared.NewDomainError("NOTHING_OUTSTANDING", "The house has no outstanding dues for this year")
	// ErrNoRecipient is returned when the house has no owner with a phone number
	ErrNoRecipient = shared.NewDomainError("NO_RECIPIENT", "The house owner has no phone number")
	// ErrHouseSubsidized is returned for houses exempt from billing
	ErrHouseSubsidized = shared.NewDomainError("HOUSE_SUBSIDIZED", "Subsidized houses are not billed")
)

// NewSendFailedError wraps a gateway failure
func NewSendFailedError(err error) *shared.DomainError {
	return shared.WrapDomainError("REMINDER_SEND_FAILED", "The reminder could not be delivered", err)
}
