package finance

import "github.com/rt44/backend/internal/domain/shared"

var (
	ErrExpenseNotFound = shared.NewNotFoundError("Expense")
	ErrAnchorNotFound  = shared.NewNotFoundError("Monthly balance")
	ErrNothingToClone  = shared.NewDomainError("NOTHING_TO_CLONE", "The source month has no expenses to copy")
	ErrSameMonthClone  = shared.NewDomainError("INVALID_INPUT", "Source and target month must differ")
)
