package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

const authTestSecret = "auth-middleware-test-secret"

type fakeUserStore struct {
	users map[uint64]model.User
}

func (f *fakeUserStore) FindByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeTenantStore struct {
	tenants map[uint64]model.Tenant
}

func (f *fakeTenantStore) FindByID(_ context.Context, id uint64) (model.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return model.Tenant{}, repository.ErrNotFound
	}
	return t, nil
}

func authFixture() (*fakeUserStore, *fakeTenantStore) {
	users := &fakeUserStore{users: map[uint64]model.User{
		1: {ID: 1, TenantID: 5, Username: "alice", Role: model.RoleAdmin, Status: model.UserActive},
	}}
	tenants := &fakeTenantStore{tenants: map[uint64]model.Tenant{
		5: {ID: 5, Code: "demo001", Status: model.TenantActive},
	}}
	return users, tenants
}

// runAuth sends one request through Authenticate into a probe handler that
// captures the identity it sees.
func runAuth(t *testing.T, users *fakeUserStore, tenants *fakeTenantStore, header string) (*httptest.ResponseRecorder, Identity, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Identity
	var seen bool
	h := Authenticate(authTestSecret, users, tenants)(func(c echo.Context) error {
		got, seen = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, got, seen
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	users, tenants := authFixture()
	tok, err := utils.NewAccessToken(authTestSecret, 1, "alice", model.RoleAdmin, 5, 15)
	require.NoError(t, err)

	rec, id, seen := runAuth(t, users, tenants, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, seen)
	assert.Equal(t, uint64(1), id.ID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.Equal(t, uint64(5), id.TenantID)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	users, tenants := authFixture()
	rec, _, seen := runAuth(t, users, tenants, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)
}

func TestAuthenticateRejectsMalformedToken(t *testing.T) {
	users, tenants := authFixture()
	rec, _, seen := runAuth(t, users, tenants, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	users, tenants := authFixture()
	tok, err := utils.NewAccessToken(authTestSecret, 99, "ghost", model.RoleUser, 5, 15)
	require.NoError(t, err)

	rec, _, seen := runAuth(t, users, tenants, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	users, tenants := authFixture()
	users.users[1] = model.User{ID: 1, TenantID: 5, Username: "alice", Role: model.RoleAdmin, Status: model.UserSuspended}
	tok, err := utils.NewAccessToken(authTestSecret, 1, "alice", model.RoleAdmin, 5, 15)
	require.NoError(t, err)

	rec, _, seen := runAuth(t, users, tenants, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)
}

func TestAuthenticateRejectsInactiveTenant(t *testing.T) {
	// A still-valid token stops working the moment the tenant is suspended.
	users, tenants := authFixture()
	tok, err := utils.NewAccessToken(authTestSecret, 1, "alice", model.RoleAdmin, 5, 15)
	require.NoError(t, err)

	tenants.tenants[5] = model.Tenant{ID: 5, Code: "demo001", Status: model.TenantSuspended}
	rec, _, seen := runAuth(t, users, tenants, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen)
}
