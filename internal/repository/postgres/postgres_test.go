package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/reputation"
	"github.com/ignite/send-governor/internal/sendlog"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAccountRepo_GetMapsNoRows(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAccountRepo(db)

	mock.ExpectQuery(`SELECT id, created_at, tier`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if err != reputation.ErrAccountNotFound {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestAccountRepo_GetScansSuspension(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAccountRepo(db)

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	suspended := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "tier", "suspension_reason", "suspended_at"}).
		AddRow("acct-1", created, "suspended", "score 1.88 below 2.50 floor", suspended)

	mock.ExpectQuery(`SELECT id, created_at, tier`).
		WithArgs("acct-1").
		WillReturnRows(rows)

	a, err := repo.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !a.Suspended() {
		t.Error("expected suspended account")
	}
	if a.SuspendedAt == nil || !a.SuspendedAt.Equal(suspended) {
		t.Errorf("SuspendedAt = %v, want %v", a.SuspendedAt, suspended)
	}
}

func TestAccountRepo_UpdateTierUnknownAccount(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAccountRepo(db)

	mock.ExpectExec(`UPDATE accounts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTier(context.Background(), "missing", domain.TierWarming, "", nil)
	if err != reputation.ErrAccountNotFound {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestReputationRepo_GetMapsNoRows(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewReputationRepo(db)

	mock.ExpectQuery(`SELECT account_id, score`).
		WithArgs("fresh").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "fresh")
	if err != reputation.ErrRecordNotFound {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestReputationRepo_SaveUpserts(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewReputationRepo(db)

	rec := &domain.ReputationRecord{
		AccountID:          "acct-1",
		Score:              6.4,
		TotalSent:          200,
		TotalDelivered:     196,
		TotalBounced:       3,
		TotalComplained:    1,
		LastRecalculatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reputation_records")).
		WithArgs(rec.AccountID, rec.Score, rec.TotalSent, rec.TotalDelivered,
			rec.TotalBounced, rec.TotalComplained, rec.LastRecalculatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSendLogRepo_MarkOutcomeNoPending(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSendLogRepo(db)

	mock.ExpectExec(`UPDATE send_attempts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkOutcome(context.Background(), "acct-1", "hash-a", domain.OutcomeDelivered, time.Now())
	if err != sendlog.ErrAttemptNotFound {
		t.Errorf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSendLogRepo_TrailingByCount(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSendLogRepo(db)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "account_id", "recipient_hash", "attempted_at", "outcome"}).
		AddRow("a2", "acct-1", "h2", at, "bounced").
		AddRow("a1", "acct-1", "h1", at.Add(-time.Minute), "delivered")

	mock.ExpectQuery(`SELECT id, account_id, recipient_hash`).
		WithArgs("acct-1", 200).
		WillReturnRows(rows)

	got, err := repo.TrailingByCount(context.Background(), "acct-1", 200)
	if err != nil {
		t.Fatalf("TrailingByCount: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Outcome != domain.OutcomeBounced {
		t.Errorf("newest outcome = %s, want bounced", got[0].Outcome)
	}
}

func TestAlertRepo_CreateReportsDuplicate(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAlertRepo(db)

	a := &domain.Alert{
		ID:        "al-1",
		AccountID: "acct-1",
		Level:     domain.AlertWarning,
		Threshold: "daily_capacity_low",
		WindowKey: "2026-03-10",
		Message:   "daily capacity low",
		CreatedAt: time.Now().UTC(),
	}

	// First insert lands, the replay hits ON CONFLICT DO NOTHING.
	mock.ExpectExec(`INSERT INTO alerts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO alerts`).WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), a)
	if err != nil || !created {
		t.Fatalf("first Create = (%v, %v), want (true, nil)", created, err)
	}
	created, err = repo.Create(context.Background(), a)
	if err != nil || created {
		t.Fatalf("second Create = (%v, %v), want (false, nil)", created, err)
	}
}

func TestAlertRepo_AcknowledgeUnknown(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewAlertRepo(db)

	mock.ExpectExec(`UPDATE alerts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Acknowledge(context.Background(), "no-such")
	if err != alert.ErrAlertNotFound {
		t.Errorf("err = %v, want ErrAlertNotFound", err)
	}
}
