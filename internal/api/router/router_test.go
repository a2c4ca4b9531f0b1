package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/callsync"
	"github.com/sheep1986/apex-sub005/internal/campaigns"
	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/internal/http/handlers"
	"github.com/sheep1986/apex-sub005/internal/outcome"
	"github.com/sheep1986/apex-sub005/internal/vapi"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

type noopCampaigns struct{}

func (noopCampaigns) ListCampaignIDsByOrg(ctx context.Context, orgID string) ([]string, error) {
	return nil, nil
}

func (noopCampaigns) ListLeadsByCampaignIDs(ctx context.Context, ids []string) ([]campaigns.Lead, error) {
	return nil, nil
}

type noopProvider struct{}

func (noopProvider) GetCall(ctx context.Context, orgID, callID string) (*vapi.Call, error) {
	return &vapi.Call{ID: callID}, nil
}

func (noopProvider) ListCalls(ctx context.Context, orgID string, limit int) ([]vapi.Call, error) {
	return nil, nil
}

type noopCapture struct{}

func (noopCapture) Insert(ctx context.Context, evt events.Event) error { return nil }

type noopDispatch struct{}

func (noopDispatch) Dispatch(evt events.Event) bool { return true }

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	logger := logging.NewText("error")
	job := callsync.New(callsync.Config{
		Provider:   noopProvider{},
		Calls:      calls.NewInMemoryRepository(),
		Campaigns:  noopCampaigns{},
		Classifier: outcome.NewClassifier(),
		Logger:     logger,
	})
	return New(&Config{
		Logger: logger,
		Webhook: handlers.NewWebhookHandler(handlers.WebhookConfig{
			EventLog:   noopCapture{},
			Dispatcher: noopDispatch{},
			Logger:     logger,
		}),
		Status:          handlers.NewStatusHandler("test"),
		Sync:            handlers.NewSyncHandler(job, logger),
		AdminAuthSecret: secret,
	})
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "org-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"type":"call-started","call":{"id":"c1"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync-calls", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync-calls",
		strings.NewReader(`{"organizationId":"org-1"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "secret"))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSingleCallSync(t *testing.T) {
	r := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync-call/call-42",
		strings.NewReader(`{"organizationId":"org-1"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "secret"))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "call-42")
}
