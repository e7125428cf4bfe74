package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/send-governor/internal/admission"
	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/pkg/httputil"
	"github.com/ignite/send-governor/internal/reputation"
	"github.com/ignite/send-governor/internal/sendlog"
)

// Handlers holds the HTTP handlers for the admission engine.
type Handlers struct {
	admission *admission.Controller
	log       *sendlog.Service
	alerts    *alert.Emitter
}

// NewHandlers creates the handler set.
func NewHandlers(ctrl *admission.Controller, log *sendlog.Service, alerts *alert.Emitter) *Handlers {
	return &Handlers{admission: ctrl, log: log, alerts: alerts}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStatus serves the advisory account summary.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	st, err := h.admission.Status(r.Context(), accountID)
	if errors.Is(err, reputation.ErrAccountNotFound) {
		httputil.NotFound(w, "account not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, st)
}

type admissionRequest struct {
	Count int `json:"count"`
}

// CheckAdmission runs an admission check, reserving capacity on success.
// Denials carry the full decision body so batch senders can branch on the
// reason without a second request.
func (h *Handlers) CheckAdmission(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req admissionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Count <= 0 {
		httputil.BadRequest(w, "count must be positive")
		return
	}

	d := h.admission.Check(r.Context(), accountID, req.Count)
	if d.Allowed {
		httputil.OK(w, d)
		return
	}

	switch d.Reason {
	case admission.ReasonQuotaExceeded:
		httputil.TooManyRequests(w, d.RetryAfterSecs, d)
	case admission.ReasonAccountSuspended:
		httputil.JSON(w, http.StatusForbidden, d)
	case admission.ReasonInvalidAccount:
		httputil.NotFound(w, "account not found")
	case admission.ReasonStorageUnavailable:
		httputil.JSON(w, http.StatusServiceUnavailable, d)
	default:
		httputil.JSON(w, http.StatusForbidden, d)
	}
}

type releaseRequest struct {
	Count int `json:"count"`
}

// ReleaseCapacity hands back reserved capacity for sends that never
// happened.
func (h *Handlers) ReleaseCapacity(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req releaseRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Count <= 0 {
		httputil.BadRequest(w, "count must be positive")
		return
	}

	if err := h.admission.Release(r.Context(), accountID, req.Count); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

type recipientRequest struct {
	RecipientHash string `json:"recipient_hash"`
}

type recipientResponse struct {
	Accepted  bool   `json:"accepted"`
	AttemptID string `json:"attempt_id,omitempty"`
}

// RegisterRecipient counts a recipient hash against the unique-recipient
// cap and, when accepted, appends a pending attempt to the send log.
func (h *Handlers) RegisterRecipient(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req recipientRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.RecipientHash == "" {
		httputil.BadRequest(w, "recipient_hash is required")
		return
	}

	accepted, err := h.admission.RecordRecipient(r.Context(), accountID, req.RecipientHash)
	if errors.Is(err, reputation.ErrAccountNotFound) {
		httputil.NotFound(w, "account not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !accepted {
		httputil.OK(w, recipientResponse{Accepted: false})
		return
	}

	a, err := h.log.LogAttempt(r.Context(), accountID, req.RecipientHash)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, recipientResponse{Accepted: true, AttemptID: a.ID})
}

// ListAlerts returns an account's alerts, newest first. ?unread=true
// filters out acknowledged ones.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	unreadOnly := r.URL.Query().Get("unread") == "true"

	alerts, err := h.alerts.List(r.Context(), accountID, unreadOnly)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	httputil.OK(w, alerts)
}

// AcknowledgeAlert marks an alert read.
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	err := h.alerts.Acknowledge(r.Context(), alertID)
	if errors.Is(err, alert.ErrAlertNotFound) {
		httputil.NotFound(w, "alert not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

type outcomeEvent struct {
	AccountID     string    `json:"account_id"`
	RecipientHash string    `json:"recipient_hash"`
	Outcome       string    `json:"outcome"`
	Timestamp     time.Time `json:"timestamp"`
}

type outcomeResponse struct {
	Recorded bool `json:"recorded"`
}

// RecordOutcome ingests a delivery outcome webhook. Replayed events are
// acknowledged without effect so providers retrying deliveries converge.
func (h *Handlers) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var evt outcomeEvent
	if !httputil.Decode(w, r, &evt) {
		return
	}
	if evt.AccountID == "" || evt.RecipientHash == "" {
		httputil.BadRequest(w, "account_id and recipient_hash are required")
		return
	}

	at := evt.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	err := h.log.RecordOutcome(r.Context(), evt.AccountID, evt.RecipientHash, domain.Outcome(evt.Outcome), at)
	if errors.Is(err, sendlog.ErrNotTerminal) {
		httputil.BadRequest(w, "outcome must be terminal")
		return
	}
	if errors.Is(err, sendlog.ErrAttemptNotFound) {
		httputil.OK(w, outcomeResponse{Recorded: false})
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, outcomeResponse{Recorded: true})
}
