package dues

import "github.com/rt44/backend/internal/domain/shared"

var (
	ErrHouseNotFound    = shared.NewNotFoundError("House")
	ErrDueNotFound      = shared.NewNotFoundError("Due")
	ErrPaymentNotFound  = shared.NewNotFoundError("Payment")
	ErrResidentNotFound = shared.NewNotFoundError("Resident")
)

var (
	ErrNegativeAmount     = shared.NewDomainError("INVALID_AMOUNT", "Amount paid cannot be negative")
	ErrNoDuesSelected     = shared.NewDomainError("NO_DUES_SELECTED", "At least one due must be selected")
	ErrDueHouseMismatch   = shared.NewDomainError("DUE_HOUSE_MISMATCH", "Selected dues must all belong to the house")
	ErrNoAllocationTarget = shared.NewDomainError("NO_ALLOCATION_TARGET", "All selected dues are already settled, the payment has nowhere to go")
	ErrDuplicateDue       = shared.NewDomainError("ALREADY_EXISTS", "A due already exists for this house and period")
	ErrHouseSubsidized    = shared.NewDomainError("HOUSE_SUBSIDIZED", "Subsidized houses are not billed")
	ErrReceiptNotReady    = shared.NewDomainError("INVALID_STATE", "Receipts are only available for verified payments")
)
