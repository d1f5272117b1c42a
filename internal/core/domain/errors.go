package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates wrong username/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive indicates the credentials are valid but the account is disabled
	ErrAccountInactive = errors.New("account inactive")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed, tampered or signed
	// with an unsupported algorithm
	ErrTokenInvalid = errors.New("token invalid")

	// ErrRoleNotFound indicates a user was created with an unknown role name
	ErrRoleNotFound = errors.New("role not found")

	// ErrDuplicateUsername indicates the username is already taken
	ErrDuplicateUsername = errors.New("duplicate username")

	// ErrConstraintViolation indicates the store rejected a write on a constraint
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStorageUnavailable indicates the store could not be reached or timed out.
	// Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoPartitions indicates the audit topic reported no available partition
	ErrNoPartitions = errors.New("no partitions available")
)
