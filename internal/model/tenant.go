package model

import "time"

// Tenant statuses. A tenant that is not active cannot be logged into and all
// of its users are locked out of protected routes.
const (
	TenantActive    = "active"
	TenantInactive  = "inactive"
	TenantSuspended = "suspended"
)

// Tenant represents an isolated customer namespace as stored in the `tenants`
// table. The code is the case-insensitive lookup key presented at login.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name of the organisation.
//	Code      – unique, lowercased login code (e.g. "demo001").
//	Domain    – optional custom domain (nullable).
//	Status    – active | inactive | suspended.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Tenant struct {
	ID        uint64    // tenants.id
	Name      string    // tenants.name
	Code      string    // tenants.code
	Domain    *string   // tenants.domain (nullable)
	Status    string    // tenants.status
	CreatedAt time.Time // tenants.created_at
	UpdatedAt time.Time // tenants.updated_at
}

// Active reports whether the tenant may authenticate users.
func (t Tenant) Active() bool { return t.Status == TenantActive }
