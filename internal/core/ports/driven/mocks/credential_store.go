package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure MockCredentialStore implements CredentialStore
var _ driven.CredentialStore = (*MockCredentialStore)(nil)

// MockCredentialStore is an in-memory CredentialStore for testing.
// It enforces unique usernames and the user → role foreign key like the real schema.
type MockCredentialStore struct {
	mu         sync.RWMutex
	users      map[int64]*domain.User
	byUsername map[string]int64
	roles      map[int64]*domain.Role
	nextID     int64

	// Err, when set, is returned by every method
	Err error
}

// NewMockCredentialStore creates a new MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		users:      make(map[int64]*domain.User),
		byUsername: make(map[string]int64),
		roles:      make(map[int64]*domain.Role),
	}
}

func (m *MockCredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.resolve(m.users[id]), nil
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.resolve(user), nil
}

func (m *MockCredentialStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, role := range m.roles {
		if role.Name == name {
			r := *role
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCredentialStore) SaveUser(ctx context.Context, user *domain.User) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byUsername[user.Username]; taken {
		return domain.ErrConstraintViolation
	}
	if _, ok := m.roles[user.RoleID]; !ok {
		return domain.ErrConstraintViolation
	}
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	}
	stored := *user
	stored.Role = nil
	m.users[user.ID] = &stored
	m.byUsername[user.Username] = user.ID
	return nil
}

func (m *MockCredentialStore) SaveRole(ctx context.Context, role *domain.Role) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.roles {
		if existing.Name == role.Name && id != role.ID {
			return domain.ErrConstraintViolation
		}
	}
	r := *role
	m.roles[role.ID] = &r
	return nil
}

// SetActive flips a user's active flag (administrative action in tests)
func (m *MockCredentialStore) SetActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		user.IsActive = active
	}
}

// UserCount returns the number of stored users
func (m *MockCredentialStore) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// RoleCount returns the number of stored roles
func (m *MockCredentialStore) RoleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roles)
}

// resolve returns a copy of user with its role attached. Caller holds mu.
func (m *MockCredentialStore) resolve(user *domain.User) *domain.User {
	u := *user
	if role, ok := m.roles[u.RoleID]; ok {
		r := *role
		u.Role = &r
	}
	return &u
}
