// Package service holds business logic that sits between handlers and
// repositories: QR check-in tokens, attendance reports and event
// notifications.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/oporhq/opor-admin-api/internal/model"
	"github.com/oporhq/opor-admin-api/internal/utils"
)

// EventTokenStore is the subset of the event repository the QR service needs.
type EventTokenStore interface {
	FindByID(ctx context.Context, tenantID, id uint64) (model.Event, error)
	SetCheckinToken(ctx context.Context, tenantID, id uint64, token string, expiresAt time.Time) error
}

// QRService issues and verifies the time-boxed check-in tokens distributed to
// event participants as QR codes. A token is an opaque 256-bit random string
// stored inline on the event; issuing a new one overwrites the previous one,
// and there is no use-count tracking: a still-valid token can be redeemed by
// several bearers before it expires.
type QRService struct {
	Events EventTokenStore
	Now    func() time.Time // injectable clock for tests
}

func NewQRService(events EventTokenStore) *QRService {
	return &QRService{Events: events, Now: func() time.Time { return time.Now().UTC() }}
}

// CheckinPayload is the JSON document encoded into the QR image. Participants
// scan it and post eventId+token back to the check-in endpoint.
type CheckinPayload struct {
	EventID   uint64    `json:"eventId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueCheckinToken mints a fresh token for the event with the given TTL in
// minutes, replacing any previous token. The event must exist within the
// caller's tenant.
func (s *QRService) IssueCheckinToken(ctx context.Context, tenantID, eventID uint64, ttlMin int) (CheckinPayload, error) {
	if _, err := s.Events.FindByID(ctx, tenantID, eventID); err != nil {
		return CheckinPayload{}, err
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return CheckinPayload{}, fmt.Errorf("generate checkin token: %w", err)
	}
	expiresAt := s.Now().Add(time.Duration(ttlMin) * time.Minute)

	if err := s.Events.SetCheckinToken(ctx, tenantID, eventID, token, expiresAt); err != nil {
		return CheckinPayload{}, err
	}
	return CheckinPayload{EventID: eventID, Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyCheckinToken reports whether the presented token is the event's
// current token and still within its validity window. Every failure mode
// (missing event, no stored token, mismatch, expired) is just "false";
// callers never learn which check failed.
func (s *QRService) VerifyCheckinToken(ctx context.Context, tenantID, eventID uint64, presented string) (bool, error) {
	e, err := s.Events.FindByID(ctx, tenantID, eventID)
	if err != nil {
		return false, nil
	}
	if e.QRToken == nil || e.QRExpiresAt == nil || presented == "" {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(*e.QRToken), []byte(presented)) != 1 {
		return false, nil
	}
	return e.QRExpiresAt.After(s.Now()), nil
}

// RenderQR encodes the payload as a PNG QR code and returns it as a data URL
// suitable for embedding directly in a client <img> tag.
func (s *QRService) RenderQR(p CheckinPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
