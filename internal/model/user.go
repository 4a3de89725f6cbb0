package model

import "time"

// User roles. Roles are checked by the role middleware against per-route
// allow-lists.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// User statuses. Only active users may authenticate; the auth middleware
// re-checks the status on every request so deactivation takes effect within a
// single access-token lifetime.
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

// User represents an application user record as stored in the `users` table.
// Each user belongs to exactly one tenant; username and email are unique
// within that tenant. The password is stored only as a bcrypt hash.
//
// Fields:
//
//	ID           – primary key identifier.
//	TenantID     – owning tenant.
//	Username     – lowercased, unique per tenant.
//	Email        – lowercased, unique per tenant.
//	PasswordHash – bcrypt hash of the password.
//	FirstName    – given name.
//	LastName     – family name.
//	Role         – admin | staff | user.
//	Status       – active | inactive | suspended.
//	TokenVersion – monotonic counter; refresh tokens minted under an older
//	               version are rejected, which is the "log out everywhere"
//	               mechanism.
//	LastLogin    – time of the most recent successful login (nullable).
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type User struct {
	ID           uint64     // users.id
	TenantID     uint64     // users.tenant_id
	Username     string     // users.username
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	FirstName    string     // users.first_name
	LastName     string     // users.last_name
	Role         string     // users.role
	Status       string     // users.status
	TokenVersion int64      // users.token_version
	LastLogin    *time.Time // users.last_login (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Active reports whether the account may authenticate.
func (u User) Active() bool { return u.Status == UserActive }

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleUser
}
