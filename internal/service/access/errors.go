package access

import (
	"fmt"

	"github.com/equihome/launchpad/internal/domain"
)

// Sentinel errors for the access service layer. Both wrap domain errors so
// the HTTP layer can classify them without importing this package.
var (
	ErrRequestNotFound = fmt.Errorf("access request %w", domain.ErrNotFound)
	ErrInvalidGrant    = domain.NewValidationError("allowlist", "entry has no email")
)
