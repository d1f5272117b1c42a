package domain

import (
	"strconv"
	"time"
)

// TokenTypeBearer is the token type reported to clients
const TokenTypeBearer = "bearer"

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *UserSummary `json:"user"`
}

// TokenClaims is the decoded payload of a bearer token.
// Username and Role reflect the user at issuance time and are informational.
type TokenClaims struct {
	Subject   string `json:"sub"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenID   string `json:"jti,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// SubjectID parses the subject claim as a user ID
func (c *TokenClaims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// IsExpired reports whether the claims have expired at the given time
func (c *TokenClaims) IsExpired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}
