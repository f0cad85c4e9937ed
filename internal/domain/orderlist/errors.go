package orderlist

import (
	"fmt"

	"github.com/backoffice/backend/internal/domain/shared"
)

func validationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf(format, args...))
}

func permissionError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodePermissionDenied, fmt.Sprintf(format, args...))
}

func invalidStateError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf(format, args...))
}
