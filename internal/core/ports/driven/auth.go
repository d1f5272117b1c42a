package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// PasswordHasher handles one-way password hashing.
// Implementations run the hash off the calling goroutine and honour ctx while waiting.
type PasswordHasher interface {
	// Hash returns a salted digest that embeds its algorithm and cost
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches digest. Malformed digests return false.
	Verify(ctx context.Context, password, digest string) bool
}

// TokenSigner issues and validates signed, time-bound bearer tokens.
// This does NOT resolve users - the AuthService does that.
type TokenSigner interface {
	// Issue signs a token for the subject that expires after the configured TTL
	Issue(subjectID int64, username, roleName string) (token string, expiresAt time.Time, err error)

	// Parse verifies signature and expiry.
	// Returns domain.ErrTokenInvalid or domain.ErrTokenExpired on failure.
	Parse(token string) (*domain.TokenClaims, error)
}
