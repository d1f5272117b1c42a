package driven

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// CredentialStore handles user and role persistence (PostgreSQL).
// Users are always returned with their Role resolved.
type CredentialStore interface {
	// FindByUsername retrieves a user by username
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID retrieves a user by ID
	FindByID(ctx context.Context, id int64) (*domain.User, error)

	// FindRoleByName retrieves a role by its unique name
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)

	// SaveUser inserts a new user and assigns its ID.
	// Returns domain.ErrConstraintViolation if the username is taken.
	SaveUser(ctx context.Context, user *domain.User) error

	// SaveRole creates or replaces a role by ID
	SaveRole(ctx context.Context, role *domain.Role) error
}
