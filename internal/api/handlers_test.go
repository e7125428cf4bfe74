package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/send-governor/internal/admission"
	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/reputation"
	"github.com/ignite/send-governor/internal/sendlog"
	"github.com/ignite/send-governor/internal/tier"
	"github.com/ignite/send-governor/internal/usage"
)

type stubAccounts struct {
	accts map[string]*domain.Account
}

func (s *stubAccounts) Get(_ context.Context, id string) (*domain.Account, error) {
	a, ok := s.accts[id]
	if !ok {
		return nil, reputation.ErrAccountNotFound
	}
	return a, nil
}

type stubRep struct{}

func (stubRep) Record(_ context.Context, accountID string) (*domain.ReputationRecord, error) {
	return &domain.ReputationRecord{AccountID: accountID, Score: domain.NeutralScore}, nil
}

type stubSendlogRepo struct {
	mu       sync.Mutex
	attempts []*domain.SendAttempt
}

func (s *stubSendlogRepo) Insert(_ context.Context, a *domain.SendAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts = append(s.attempts, &cp)
	return nil
}

func (s *stubSendlogRepo) MarkOutcome(_ context.Context, accountID, recipientHash string, outcome domain.Outcome, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.AccountID == accountID && a.RecipientHash == recipientHash && a.Outcome == domain.OutcomePending {
			a.Outcome = outcome
			return nil
		}
	}
	return sendlog.ErrAttemptNotFound
}

func (s *stubSendlogRepo) TrailingByCount(_ context.Context, _ string, _ int) ([]domain.SendAttempt, error) {
	return nil, nil
}

func (s *stubSendlogRepo) TrailingSince(_ context.Context, _ string, _ time.Time) ([]domain.SendAttempt, error) {
	return nil, nil
}

type stubAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (s *stubAlertRepo) Create(_ context.Context, a *domain.Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.alerts {
		if e.AccountID == a.AccountID && e.WindowKey == a.WindowKey && e.Threshold == a.Threshold {
			return false, nil
		}
	}
	s.alerts = append(s.alerts, *a)
	return true, nil
}

func (s *stubAlertRepo) List(_ context.Context, accountID string, unreadOnly bool) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.AccountID != accountID {
			continue
		}
		if unreadOnly && a.Acknowledged {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAlertRepo) Acknowledge(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].Acknowledged = true
			return nil
		}
	}
	return alert.ErrAlertNotFound
}

func newTestRouter(t *testing.T) (http.Handler, *stubAlertRepo, *alert.Emitter) {
	t.Helper()

	accounts := &stubAccounts{accts: map[string]*domain.Account{
		"acct-1": {
			ID:        "acct-1",
			CreatedAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
			Tier:      domain.TierActive,
		},
		"acct-frozen": {
			ID:               "acct-frozen",
			CreatedAt:        time.Now().UTC().Add(-30 * 24 * time.Hour),
			Tier:             domain.TierSuspended,
			SuspensionReason: "score 1.88 below 2.50 floor",
		},
	}}

	alertRepo := &stubAlertRepo{}
	alerts := alert.NewEmitter(alertRepo, nil)

	ctrl := admission.NewController(accounts, usage.NewMemoryStore(), tier.Default(), stubRep{}, alerts, admission.DefaultConfig())
	logSvc := sendlog.NewService(&stubSendlogRepo{}, nil, 0)

	return SetupRoutes(NewHandlers(ctrl, logSvc, alerts), nil), alertRepo, alerts
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestCheckAdmission_Allowed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var d admission.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.True(t, d.Allowed)
	assert.Equal(t, 490, d.RemainingDaily)
	assert.Equal(t, 90, d.RemainingHourly)
}

func TestCheckAdmission_QuotaExceededIs429WithRetryAfter(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 100})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 1})
	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var d admission.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.False(t, d.Allowed)
	assert.Equal(t, admission.ReasonQuotaExceeded, d.Reason)
	assert.Equal(t, 0, d.RemainingHourly)
}

func TestCheckAdmission_SuspendedIs403(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-frozen/admission", map[string]int{"count": 1})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var d admission.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, admission.ReasonAccountSuspended, d.Reason)
	assert.Contains(t, d.Detail, "below")
}

func TestCheckAdmission_UnknownAccountIs404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/nobody/admission", map[string]int{"count": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckAdmission_RejectsBadCount(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/acct-1/admission", bytes.NewBufferString("{broken"))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestGetStatus(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/acct-1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st admission.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, domain.TierActive, st.Tier)
	assert.Equal(t, 5, st.DailyUsed)
	assert.Equal(t, 500, st.DailyLimit)
	assert.Equal(t, 0, st.WarmupDaysRemaining)
}

func TestReleaseCapacity(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/admission", map[string]int{"count": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/release", map[string]int{"count": 5})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/acct-1/status", nil)
	var st admission.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 0, st.DailyUsed)
}

func TestRegisterRecipient_LogsAttempt(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/recipients",
		map[string]string{"recipient_hash": "hash-a"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accepted  bool   `json:"accepted"`
		AttemptID string `json:"attempt_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.NotEmpty(t, resp.AttemptID)
}

func TestRecordOutcome_ReplayIsAcknowledged(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/accounts/acct-1/recipients",
		map[string]string{"recipient_hash": "hash-a"})
	require.Equal(t, http.StatusOK, rec.Code)

	evt := map[string]string{
		"account_id":     "acct-1",
		"recipient_hash": "hash-a",
		"outcome":        "delivered",
	}

	rec = doJSON(t, router, http.MethodPost, "/api/events/outcome", evt)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recorded":true`)

	// Replay: no pending attempt remains, acknowledged without effect.
	rec = doJSON(t, router, http.MethodPost, "/api/events/outcome", evt)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recorded":false`)
}

func TestRecordOutcome_RejectsNonTerminal(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/events/outcome", map[string]string{
		"account_id":     "acct-1",
		"recipient_hash": "hash-a",
		"outcome":        "pending",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlerts_ListAndAcknowledge(t *testing.T) {
	router, alertRepo, alerts := newTestRouter(t)

	alerts.Emit(context.Background(), "acct-1", domain.AlertWarning, "daily_capacity_low", "2026-03-10", "daily capacity low")

	rec := doJSON(t, router, http.MethodGet, "/api/accounts/acct-1/alerts?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = doJSON(t, router, http.MethodPost, "/api/alerts/"+listed[0].ID+"/ack", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, alertRepo.alerts[0].Acknowledged)

	rec = doJSON(t, router, http.MethodGet, "/api/accounts/acct-1/alerts?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 0)
}

func TestAcknowledgeAlert_UnknownIs404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/alerts/no-such-alert/ack", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
