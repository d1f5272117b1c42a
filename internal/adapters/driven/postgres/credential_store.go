package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

// selectUser joins the role so every loaded user carries it
const selectUser = `
	SELECT u.id, u.username, u.password_hash, u.role_id, u.is_active, r.id, r.name
	FROM "user" u
	JOIN role r ON r.id = u.role_id
`

// CredentialStore implements driven.CredentialStore using PostgreSQL
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a new CredentialStore
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// FindByUsername retrieves a user and its role by username
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, selectUser+`WHERE u.username = $1`, username)
}

// FindByID retrieves a user and its role by ID
func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.findOne(ctx, selectUser+`WHERE u.id = $1`, id)
}

func (s *CredentialStore) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.db.timeout)
	defer cancel()

	var user domain.User
	var role domain.Role
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.RoleID,
		&user.IsActive,
		&role.ID,
		&role.Name,
	)
	if err != nil {
		return nil, mapError(err)
	}

	user.Role = &role
	return &user, nil
}

// FindRoleByName retrieves a role by its unique name
func (s *CredentialStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := withTimeout(ctx, s.db.timeout)
	defer cancel()

	var role domain.Role
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM role WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &role, nil
}

// SaveUser inserts a new user (ID 0, ID assigned) or updates an existing one
func (s *CredentialStore) SaveUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := withTimeout(ctx, s.db.timeout)
	defer cancel()

	if user.ID == 0 {
		query := `
			INSERT INTO "user" (username, password_hash, role_id, is_active)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		err := s.db.QueryRowContext(ctx, query,
			user.Username,
			user.PasswordHash,
			user.RoleID,
			user.IsActive,
		).Scan(&user.ID)
		return mapError(err)
	}

	query := `
		INSERT INTO "user" (id, username, password_hash, role_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			role_id = EXCLUDED.role_id,
			is_active = EXCLUDED.is_active,
			modified_date = now()
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.RoleID,
		user.IsActive,
	)
	return mapError(err)
}

// SaveRole creates or replaces a role by ID. Explicit IDs bypass the identity
// sequence, so it is moved past the highest ID afterwards.
func (s *CredentialStore) SaveRole(ctx context.Context, role *domain.Role) error {
	ctx, cancel := withTimeout(ctx, s.db.timeout)
	defer cancel()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO role (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				modified_date = now()
		`
		if _, err := tx.ExecContext(ctx, query, role.ID, role.Name); err != nil {
			return mapError(err)
		}

		_, err := tx.ExecContext(ctx, `
			SELECT setval(pg_get_serial_sequence('role', 'id'), GREATEST((SELECT MAX(id) FROM role), 1))
		`)
		return mapError(err)
	})
}
