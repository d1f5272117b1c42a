package driving

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// AuthService handles user authentication
type AuthService interface {
	// Authenticate checks a username/password pair.
	// Unknown users and wrong passwords both return domain.ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// Login authenticates and issues a bearer token for active users
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a bearer token and resolves its subject
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// CreateUser registers a user under an existing role
	CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)

	// UpsertRole creates or replaces a role by ID (bootstrap only)
	UpsertRole(ctx context.Context, id int64, name string) (*domain.Role, error)

	// GetUserByUsername looks up a user, domain.ErrNotFound if absent
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
