package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oporhq/opor-admin-api/internal/model"
)

// UserRepo persists user credential records. All lookups except FindByID are
// tenant-scoped; callers pass the tenant id resolved from the identity
// context so cross-tenant reads are structurally impossible.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,tenant_id,username,email,password_hash,first_name,last_name,role,status,token_version,last_login,created_at,updated_at"

func scanUser(scan func(dest ...any) error) (model.User, error) {
	var u model.User
	err := scan(&u.ID, &u.TenantID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Role, &u.Status, &u.TokenVersion,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Create inserts a user whose PasswordHash has already been computed by the
// caller and returns the new id. Username and email are normalized to lower
// case; duplicates within the tenant surface as ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (tenant_id, username, email, password_hash, first_name, last_name, role, status, token_version)
		 VALUES (?,?,?,?,?,?,?,?,0)`,
		u.TenantID,
		strings.ToLower(strings.TrimSpace(u.Username)),
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByIdentifier fetches a user within a tenant by username or email,
// ignoring case. Both columns are stored lowercased, so lowering the
// identifier once is enough.
func (r *UserRepo) FindByIdentifier(ctx context.Context, tenantID uint64, identifier string) (model.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE tenant_id=? AND (username=? OR email=?) LIMIT 1",
		tenantID, identifier, identifier)
	return scanUser(row.Scan)
}

// FindByID fetches a user by id. The auth middleware uses this for the
// per-request liveness check, so it is deliberately not tenant-scoped: the
// tenant binding is re-checked from the loaded record itself.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row.Scan)
}

// FindInTenant fetches a user by id scoped to a tenant.
func (r *UserRepo) FindInTenant(ctx context.Context, tenantID, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID)
	return scanUser(row.Scan)
}

// RecordLogin stamps last_login and bumps token_version in one statement,
// then reads back the new version. The bump silently invalidates every
// refresh token issued before this login.
func (r *UserRepo) RecordLogin(ctx context.Context, id uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=UTC_TIMESTAMP(), token_version=token_version+1 WHERE id=?", id)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	var v int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT token_version FROM users WHERE id=?", id).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// UpdatePassword stores a new password hash and bumps token_version so that
// outstanding refresh tokens die with the old password.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, token_version=token_version+1, updated_at=UTC_TIMESTAMP() WHERE id=?",
		hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of the tenant's users plus the total count. When search
// is non-empty it is matched case-insensitively against username, email and
// both name fields.
func (r *UserRepo) List(ctx context.Context, tenantID uint64, search string, page, limit int) ([]model.User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	where := "tenant_id=?"
	args := []any{tenantID}
	if search = strings.TrimSpace(search); search != "" {
		needle := "%" + strings.ToLower(search) + "%"
		where += " AND (username LIKE ? OR email LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)"
		args = append(args, needle, needle, needle, needle)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userCols, where)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Update modifies profile fields, role and status of a tenant's user.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, role=?, status=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND tenant_id=?`,
		u.FirstName, u.LastName, u.Role, u.Status, u.ID, u.TenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a tenant's user.
func (r *UserRepo) Delete(ctx context.Context, tenantID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE id=? AND tenant_id=?", id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
