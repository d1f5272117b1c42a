package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface
type authService struct {
	store  driven.CredentialStore
	hasher driven.PasswordHasher
	signer driven.TokenSigner
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store driven.CredentialStore,
	hasher driven.PasswordHasher,
	signer driven.TokenSigner,
) driving.AuthService {
	return &authService{
		store:  store,
		hasher: hasher,
		signer: signer,
	}
}

// Authenticate validates credentials and returns the user with its role
func (s *authService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and issues an access token
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	// Checked after the password so inactive accounts are not enumerable
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}

	token, expiresAt, err := s.signer.Issue(user.ID, user.Username, user.RoleName())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   domain.TokenTypeBearer,
		ExpiresAt:   expiresAt,
		User:        user.ToSummary(),
	}, nil
}

// ValidateToken validates a token and re-resolves the subject.
// is_active is not re-checked; tokens of deactivated users stay usable until expiry.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, err
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	return &domain.AuthContext{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.RoleName(),
	}, nil
}

// CreateUser hashes the password and stores a user under the named role
func (s *authService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	roleName := req.RoleName
	if roleName == "" {
		roleName = domain.RoleUser
	}

	role, err := s.store.FindRoleByName(ctx, roleName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, roleName)
	}
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		RoleID:       role.ID,
		Role:         role,
		IsActive:     req.IsActive,
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateUsername, username)
		}
		return nil, err
	}

	return user, nil
}

// UpsertRole creates or replaces a role by ID
func (s *authService) UpsertRole(ctx context.Context, id int64, name string) (*domain.Role, error) {
	if id <= 0 || strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidInput
	}

	role := &domain.Role{ID: id, Name: name}
	if err := s.store.SaveRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetUserByUsername retrieves a user by username
func (s *authService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.store.FindByUsername(ctx, username)
}
