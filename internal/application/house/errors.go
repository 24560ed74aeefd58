package house

import "github.com/rt44/backend/internal/domain/shared"

var (
	// ErrImportRejected is wrapped by ImportError
	ErrImportRejected = shared.NewDomainError("IMPORT_VALIDATION_FAILED", "The file has invalid rows, nothing was imported")
	// ErrOwnerNotFound is returned when an owner id does not exist
	ErrOwnerNotFound = shared.NewDomainError("OWNER_NOT_FOUND", "The selected owner does not exist")
)
