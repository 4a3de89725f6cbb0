// Package repository implements data access over database/sql. This file
// defines sentinel errors reused across repositories so that handlers can
// translate failure scenarios into HTTP statuses without inspecting driver
// errors.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist or is not visible to
// the caller's tenant. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// e.g. registering a username or email that already exists within the tenant.
// Handlers translate this into HTTP 400/409.
var ErrDuplicate = errors.New("duplicate record")
