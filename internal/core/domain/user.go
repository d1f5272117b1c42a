package domain

// RoleAdmin is the role name given to the bootstrap administrator
const RoleAdmin = "Admin"

// RoleUser is the role assigned when none is requested
const RoleUser = "User"

// Role groups users by permission level. Deleting a role deletes its users.
type Role struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// User is an account that can obtain bearer tokens.
// Role is always resolved when a user is loaded from the store.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Never serialize
	RoleID       int64  `json:"role_id"`
	Role         *Role  `json:"role,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// RoleName returns the name of the resolved role, or "" if unresolved
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// UserSummary provides a safe view of user data (no password hash)
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// ToSummary converts a User to UserSummary
func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.RoleName(),
		IsActive: u.IsActive,
	}
}

// CreateUserRequest is the input for creating a user
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RoleName string `json:"role"`
	IsActive bool   `json:"is_active"`
}
