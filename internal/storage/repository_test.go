package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finsight/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finsight.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ledgerTxn(user string, date string, cents int64, kind core.TxnKind) LedgerTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return LedgerTransaction{
		UserID:      user,
		Date:        d,
		AmountCents: cents,
		Kind:        kind,
		Category:    "general",
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddTransaction(ctx, ledgerTxn("alice", "2024-01-05", 100000, core.Credit))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if _, err := repo.AddTransaction(ctx, ledgerTxn("alice", "2024-01-10", 40000, core.Debit)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if _, err := repo.AddTransaction(ctx, ledgerTxn("bob", "2024-01-07", 5000, core.Debit)); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got.UserID != "alice" || got.AmountCents != 100000 || got.Kind != core.Credit {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Date.Format("2006-01-02") != "2024-01-05" {
		t.Errorf("date = %v", got.Date)
	}

	list, err := repo.ListTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 alice transactions, got %d", len(list))
	}
	if !list[0].Date.Before(list[1].Date) {
		t.Error("ledger not date-ascending")
	}
}

func TestLedgerListUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, u := range []string{"carol", "alice", "alice", "bob"} {
		if _, err := repo.AddTransaction(ctx, ledgerTxn(u, "2024-02-01", 1000, core.Debit)); err != nil {
			t.Fatalf("AddTransaction failed: %v", err)
		}
	}
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(users) != len(want) {
		t.Fatalf("users = %v, want %v", users, want)
	}
	for i := range want {
		if users[i] != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, users[i], want[i])
		}
	}
}

func TestLedgerDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddTransaction(ctx, ledgerTxn("alice", "2024-01-05", 1000, core.Debit))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is a no-op.
	if err := repo.DeleteTransaction(ctx, id); err != nil {
		t.Errorf("second delete should not fail: %v", err)
	}
}

func TestLedgerRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cases := []struct {
		name string
		txn  LedgerTransaction
	}{
		{"empty user", ledgerTxn("", "2024-01-05", 1000, core.Debit)},
		{"unknown kind", ledgerTxn("alice", "2024-01-05", 1000, core.TxnKind("Moved"))},
		{"negative amount", ledgerTxn("alice", "2024-01-05", -1, core.Debit)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.AddTransaction(ctx, tc.txn); !errors.Is(err, core.ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestMilestoneCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateMilestone(ctx, Milestone{
		UserID:     "alice",
		SavedCents: 50000,
		GoalCents:  500000,
		Duration:   "12 months",
	})
	if err != nil {
		t.Fatalf("CreateMilestone failed: %v", err)
	}

	m, err := repo.GetMilestone(ctx, id)
	if err != nil {
		t.Fatalf("GetMilestone failed: %v", err)
	}
	if m.GoalCents != 500000 || m.SavedCents != 50000 {
		t.Errorf("milestone = %+v", m)
	}

	m.SavedCents = 120000
	if err := repo.UpdateMilestone(ctx, m); err != nil {
		t.Fatalf("UpdateMilestone failed: %v", err)
	}
	m, _ = repo.GetMilestone(ctx, id)
	if m.SavedCents != 120000 {
		t.Errorf("saved = %d after update, want 120000", m.SavedCents)
	}

	list, err := repo.ListMilestones(ctx, "alice")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListMilestones = %v (err=%v)", list, err)
	}

	if err := repo.DeleteMilestone(ctx, id); err != nil {
		t.Fatalf("DeleteMilestone failed: %v", err)
	}
	if _, err := repo.GetMilestone(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Updating a missing milestone reports not found.
	if err := repo.UpdateMilestone(ctx, Milestone{ID: id, GoalCents: 100}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMilestoneValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateMilestone(ctx, Milestone{UserID: "alice", GoalCents: 0}); !errors.Is(err, core.ErrMalformedInput) {
		t.Errorf("zero goal should be rejected, got %v", err)
	}
	if _, err := repo.CreateMilestone(ctx, Milestone{UserID: "", GoalCents: 100}); !errors.Is(err, core.ErrMalformedInput) {
		t.Errorf("empty user should be rejected, got %v", err)
	}
}
