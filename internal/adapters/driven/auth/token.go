package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure TokenSigner implements driven.TokenSigner
var _ driven.TokenSigner = (*TokenSigner)(nil)

// DefaultTokenTTL is the access token lifetime (seven days)
const DefaultTokenTTL = 10080 * time.Minute

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and parses HMAC-signed JWTs
type TokenSigner struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// TokenSignerOption configures a TokenSigner
type TokenSignerOption func(*TokenSigner)

// WithTTL sets the token lifetime
func WithTTL(ttl time.Duration) TokenSignerOption {
	return func(s *TokenSigner) {
		s.ttl = ttl
	}
}

// WithClock sets the time source used for iat, exp and validation
func WithClock(now func() time.Time) TokenSignerOption {
	return func(s *TokenSigner) {
		s.now = now
	}
}

// NewTokenSigner creates a signer for the named HMAC algorithm
// (HS256, HS384 or HS512).
func NewTokenSigner(secret, algorithm string, opts ...TokenSignerOption) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	method, err := SigningMethod(algorithm)
	if err != nil {
		return nil, err
	}

	s := &TokenSigner{
		secret: []byte(secret),
		method: method,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SigningMethod resolves a supported HMAC algorithm name
func SigningMethod(algorithm string) (*jwt.SigningMethodHMAC, error) {
	switch algorithm {
	case "", jwt.SigningMethodHS256.Alg():
		return jwt.SigningMethodHS256, nil
	case jwt.SigningMethodHS384.Alg():
		return jwt.SigningMethodHS384, nil
	case jwt.SigningMethodHS512.Alg():
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
}

// Issue creates a signed token for the subject
func (s *TokenSigner) Issue(subjectID int64, username, roleName string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	jc := jwtClaims{
		Username: username,
		Role:     roleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(s.method, jc).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies the signature, then the expiry, and returns the claims.
// Expired tokens yield domain.ErrTokenExpired; anything else wrong yields
// domain.ErrTokenInvalid.
func (s *TokenSigner) Parse(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	return out, nil
}
