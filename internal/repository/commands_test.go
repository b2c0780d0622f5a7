package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/luminatrade/gateway/internal/types"
)

func TestInsertCommand(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	balance := 10.0
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cmd := &types.Command{
		ID:                "cmd-1",
		Type:              types.CommandOpen,
		AccountID:         "acct-1",
		Symbol:            "EURUSD",
		Side:              types.SideBuy,
		Size:              0.01,
		StopLoss:          1.05,
		AccountBalanceUSD: &balance,
		Actor:             "ops",
		Channel:           types.ChannelTelegram,
		CreatedAt:         createdAt,
	}

	mock.ExpectExec("INSERT INTO commands").
		WithArgs("cmd-1", "acct-1", "open", sqlmock.AnyArg(), "ops", "telegram", "accepted", sqlmock.AnyArg(), createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.InsertCommand(context.Background(), cmd, types.DecisionAccepted, ""); err != nil {
		t.Fatalf("insert command: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertCommandBlockedKeepsReason(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	cmd := &types.Command{
		ID:      "cmd-2",
		Type:    types.CommandOpen,
		Actor:   "ops",
		Channel: types.ChannelSystem,
	}

	mock.ExpectExec("INSERT INTO commands").
		WithArgs("cmd-2", sqlmock.AnyArg(), "open", sqlmock.AnyArg(), "ops", "system", "blocked", "sl_required_for_10usd_account", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.InsertCommand(context.Background(), cmd, types.DecisionBlocked, "sl_required_for_10usd_account"); err != nil {
		t.Fatalf("insert command: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	decision := types.DecisionExecuted
	reason := "filled"
	mock.ExpectExec("UPDATE commands").
		WithArgs("cmd-1", "executed", "filled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateDecision(context.Background(), &types.CommandPatch{
		ID:             "cmd-1",
		Decision:       &decision,
		DecisionReason: &reason,
	})
	if err != nil {
		t.Fatalf("update decision: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDecisionNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	decision := types.DecisionFailed
	mock.ExpectExec("UPDATE commands").
		WithArgs("cmd-missing", "failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateDecision(context.Background(), &types.CommandPatch{ID: "cmd-missing", Decision: &decision})
	if err != ErrCommandNotFound {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
}

func TestUpdateDecisionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	decision := types.DecisionExecuted
	mock.ExpectExec("UPDATE commands").
		WillReturnError(errors.New("db error"))

	if err := repo.UpdateDecision(context.Background(), &types.CommandPatch{ID: "cmd-1", Decision: &decision}); err == nil {
		t.Fatal("expected update error")
	}
}

func TestListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "account_id", "type", "actor", "channel", "decision", "decision_reason", "created_at"}).
		AddRow("cmd-2", "acct-1", "open", "ops", "telegram", "blocked", "sl_required_for_10usd_account", createdAt).
		AddRow("cmd-1", nil, "status", "ops", "system", "accepted", nil, createdAt.Add(-time.Minute))

	mock.ExpectQuery("SELECT id, account_id, type, actor, channel, decision, decision_reason, created_at").
		WithArgs(20).
		WillReturnRows(rows)

	records, err := repo.ListRecent(context.Background(), 20)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID != "cmd-2" || records[0].Decision != types.DecisionBlocked {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].DecisionReason != "sl_required_for_10usd_account" {
		t.Fatalf("reason = %q", records[0].DecisionReason)
	}
	if records[1].AccountID != "" || records[1].DecisionReason != "" {
		t.Fatalf("null columns should scan to empty strings: %+v", records[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewCommandRepository(db)

	mock.ExpectQuery("SELECT id, account_id, type").
		WillReturnError(errors.New("db error"))

	if _, err := repo.ListRecent(context.Background(), 20); err == nil {
		t.Fatal("expected query error")
	}
}
