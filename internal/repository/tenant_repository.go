package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/oporhq/opor-admin-api/internal/model"
)

// TenantRepo persists tenant records.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

const tenantCols = "id,name,code,domain,status,created_at,updated_at"

func scanTenant(row *sql.Row) (model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.Domain, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tenant{}, ErrNotFound
	}
	return t, err
}

// Create inserts a tenant and returns its ID. The code is normalized to
// lower case so that lookups stay case-insensitive.
func (r *TenantRepo) Create(ctx context.Context, name, code string, domain *string) (uint64, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants (name, code, domain, status) VALUES (?,?,?,?)",
		name, code, domain, model.TenantActive)
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

// FindByCode fetches a tenant by its login code, ignoring case.
func (r *TenantRepo) FindByCode(ctx context.Context, code string) (model.Tenant, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE code=? LIMIT 1", code))
}

// FindByID fetches a tenant by id.
func (r *TenantRepo) FindByID(ctx context.Context, id uint64) (model.Tenant, error) {
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE id=? LIMIT 1", id))
}

// List returns all tenants ordered by creation time.
func (r *TenantRepo) List(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tenantCols+" FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Domain, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Any reports whether at least one tenant exists. Used by the one-shot system
// bootstrap endpoint.
func (r *TenantRepo) Any(ctx context.Context) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants").Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus transitions a tenant between active/inactive/suspended.
func (r *TenantRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tenants SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
