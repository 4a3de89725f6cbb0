package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/repository"
)

// fakeEventStore keeps a single event in memory and records token writes.
type fakeEventStore struct {
	event model.Event
}

func (f *fakeEventStore) FindByID(_ context.Context, tenantID, id uint64) (model.Event, error) {
	if tenantID != f.event.TenantID || id != f.event.ID {
		return model.Event{}, repository.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeEventStore) SetCheckinToken(_ context.Context, tenantID, id uint64, token string, expiresAt time.Time) error {
	if tenantID != f.event.TenantID || id != f.event.ID {
		return repository.ErrNotFound
	}
	f.event.QRToken = &token
	f.event.QRExpiresAt = &expiresAt
	return nil
}

func newQRFixture(t *testing.T) (*QRService, *fakeEventStore, *time.Time) {
	t.Helper()
	store := &fakeEventStore{event: model.Event{ID: 10, TenantID: 1, Title: "Standup"}}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewQRService(store)
	svc.Now = func() time.Time { return now }
	return svc, store, &now
}

func TestIssueAndVerifyCheckinToken(t *testing.T) {
	svc, store, _ := newQRFixture(t)
	ctx := context.Background()

	p, err := svc.IssueCheckinToken(ctx, 1, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), p.EventID)
	assert.Len(t, p.Token, 64)
	require.NotNil(t, store.event.QRToken)
	assert.Equal(t, p.Token, *store.event.QRToken)

	ok, err := svc.VerifyCheckinToken(ctx, 1, 10, p.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newQRFixture(t)
	ctx := context.Background()

	p, err := svc.IssueCheckinToken(ctx, 1, 10, 5)
	require.NoError(t, err)

	tampered := "0"
	if p.Token[0] == '0' {
		tampered = "1"
	}
	ok, err := svc.VerifyCheckinToken(ctx, 1, 10, tampered+p.Token[1:])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyCheckinToken(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc, _, now := newQRFixture(t)
	ctx := context.Background()

	p, err := svc.IssueCheckinToken(ctx, 1, 10, 5)
	require.NoError(t, err)

	*now = now.Add(5*time.Minute + time.Second)
	ok, err := svc.VerifyCheckinToken(ctx, 1, 10, p.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReissueInvalidatesPreviousToken(t *testing.T) {
	svc, _, _ := newQRFixture(t)
	ctx := context.Background()

	first, err := svc.IssueCheckinToken(ctx, 1, 10, 5)
	require.NoError(t, err)
	second, err := svc.IssueCheckinToken(ctx, 1, 10, 5)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	ok, err := svc.VerifyCheckinToken(ctx, 1, 10, first.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyCheckinToken(ctx, 1, 10, second.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyUnknownEventIsFalseNotError(t *testing.T) {
	svc, _, _ := newQRFixture(t)

	ok, err := svc.VerifyCheckinToken(context.Background(), 1, 999, "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderQRProducesDataURL(t *testing.T) {
	svc, _, _ := newQRFixture(t)

	url, err := svc.RenderQR(CheckinPayload{EventID: 10, Token: "abc", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Greater(t, len(url), 100)
}
