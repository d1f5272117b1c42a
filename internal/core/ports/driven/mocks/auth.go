package mocks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure mocks implement the auth ports
var (
	_ driven.PasswordHasher = (*MockPasswordHasher)(nil)
	_ driven.TokenSigner    = (*MockTokenSigner)(nil)
)

// MockPasswordHasher uses plain text comparison.
// NOT secure - only for testing.
type MockPasswordHasher struct {
	// HashErr, when set, is returned by Hash
	HashErr error
}

// NewMockPasswordHasher creates a new MockPasswordHasher
func NewMockPasswordHasher() *MockPasswordHasher {
	return &MockPasswordHasher{}
}

// Hash returns the password as-is (for testing only)
func (m *MockPasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if m.HashErr != nil {
		return "", m.HashErr
	}
	return password, nil
}

// Verify compares password with digest directly (for testing only)
func (m *MockPasswordHasher) Verify(ctx context.Context, password, digest string) bool {
	return password == digest
}

// MockTokenSigner issues unsigned base64-encoded JSON tokens.
// It still enforces expiry so service tests can observe ErrTokenExpired.
type MockTokenSigner struct {
	TTL time.Duration
	Now func() time.Time
}

// NewMockTokenSigner creates a MockTokenSigner with a one hour TTL
func NewMockTokenSigner() *MockTokenSigner {
	return &MockTokenSigner{
		TTL: time.Hour,
		Now: time.Now,
	}
}

// Issue creates a base64-encoded JSON token from claims
func (m *MockTokenSigner) Issue(subjectID int64, username, roleName string) (string, time.Time, error) {
	now := m.Now()
	expiresAt := now.Add(m.TTL)
	claims := domain.TokenClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		Username:  username,
		Role:      roleName,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), expiresAt, nil
}

// Parse decodes a base64-encoded JSON token and returns claims
func (m *MockTokenSigner) Parse(token string) (*domain.TokenClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.IsExpired(m.Now()) {
		return nil, domain.ErrTokenExpired
	}

	return &claims, nil
}
