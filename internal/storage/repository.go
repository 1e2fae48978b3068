// Package storage is the SQLite-backed ledger: a running per-user log of
// transactions and savings milestones. The ledger outlives the in-memory
// baseline store and can be replayed through the engine to retrain a
// baseline without a fresh statement upload.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finsight/internal/core"
	"finsight/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

// LedgerTransaction is one row of a user's running transaction log.
type LedgerTransaction struct {
	ID          int64
	UserID      string
	Date        time.Time
	AmountCents int64
	Kind        core.TxnKind
	Category    string
	Method      string
	Receiver    string
	CreatedAt   time.Time
}

// Record converts the ledger row to the engine's transaction record.
func (t LedgerTransaction) Record() core.TransactionRecord {
	return core.TransactionRecord{
		Date:   t.Date,
		Amount: core.Money{Cents: t.AmountCents},
		Kind:   t.Kind,
	}
}

// Milestone is a savings goal tracked per user.
type Milestone struct {
	ID         int64
	UserID     string
	SavedCents int64
	GoalCents  int64
	Duration   string
	CreatedAt  time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddTransaction appends a transaction to the user's ledger and returns
// its id.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t LedgerTransaction) (int64, error) {
	if err := t.Record().Validate(); err != nil {
		return 0, err
	}
	if t.UserID == "" {
		return 0, fmt.Errorf("%w: empty user id", core.ErrMalformedInput)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, txn_date, amount_cents, kind, category, method, receiver)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date.Format(dateLayout), t.AmountCents, string(t.Kind),
		t.Category, t.Method, t.Receiver)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to ledger",
		"id", id,
		log.FieldUserID, t.UserID,
		log.FieldAmountCents, t.AmountCents,
		log.FieldTxnKind, string(t.Kind))

	return id, nil
}

// ListTransactions returns the user's ledger, date-ascending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, txn_date, amount_cents, kind, category, method, receiver, created_at
		 FROM transactions WHERE user_id = ? ORDER BY txn_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction fetches one ledger row by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, txn_date, amount_cents, kind, category, method, receiver, created_at
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return LedgerTransaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return t, err
}

// DeleteTransaction removes a ledger row. Deleting a missing row is not an
// error.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Transaction deleted from ledger", "id", id)
	}
	return nil
}

// ListUsers returns the distinct user ids present in the ledger.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// CreateMilestone stores a new savings goal and returns its id.
func (r *SQLiteRepository) CreateMilestone(ctx context.Context, m Milestone) (int64, error) {
	if m.UserID == "" {
		return 0, fmt.Errorf("%w: empty user id", core.ErrMalformedInput)
	}
	if m.GoalCents <= 0 {
		return 0, fmt.Errorf("%w: milestone goal must be positive", core.ErrMalformedInput)
	}
	if m.SavedCents < 0 {
		return 0, fmt.Errorf("%w: saved amount cannot be negative", core.ErrMalformedInput)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO milestones (user_id, saved_cents, goal_cents, duration)
		 VALUES (?, ?, ?, ?)`,
		m.UserID, m.SavedCents, m.GoalCents, m.Duration)
	if err != nil {
		return 0, fmt.Errorf("insert milestone: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetMilestone fetches one milestone by id.
func (r *SQLiteRepository) GetMilestone(ctx context.Context, id int64) (Milestone, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, saved_cents, goal_cents, duration, created_at
		 FROM milestones WHERE id = ?`, id)
	var m Milestone
	var created string
	err := row.Scan(&m.ID, &m.UserID, &m.SavedCents, &m.GoalCents, &m.Duration, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Milestone{}, fmt.Errorf("milestone %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Milestone{}, fmt.Errorf("scan milestone: %w", err)
	}
	m.CreatedAt = parseTimestamp(created)
	return m, nil
}

// ListMilestones returns a user's milestones, oldest first.
func (r *SQLiteRepository) ListMilestones(ctx context.Context, userID string) ([]Milestone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, saved_cents, goal_cents, duration, created_at
		 FROM milestones WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var m Milestone
		var created string
		if err := rows.Scan(&m.ID, &m.UserID, &m.SavedCents, &m.GoalCents, &m.Duration, &created); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		m.CreatedAt = parseTimestamp(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return out, nil
}

// UpdateMilestone overwrites the saved amount, goal and duration of an
// existing milestone.
func (r *SQLiteRepository) UpdateMilestone(ctx context.Context, m Milestone) error {
	if m.GoalCents <= 0 {
		return fmt.Errorf("%w: milestone goal must be positive", core.ErrMalformedInput)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE milestones SET saved_cents = ?, goal_cents = ?, duration = ? WHERE id = ?`,
		m.SavedCents, m.GoalCents, m.Duration, m.ID)
	if err != nil {
		return fmt.Errorf("update milestone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("milestone %d: %w", m.ID, ErrNotFound)
	}
	return nil
}

// DeleteMilestone removes a milestone. Deleting a missing row is not an
// error.
func (r *SQLiteRepository) DeleteMilestone(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (LedgerTransaction, error) {
	var t LedgerTransaction
	var date, kind, created string
	err := row.Scan(&t.ID, &t.UserID, &date, &t.AmountCents, &kind,
		&t.Category, &t.Method, &t.Receiver, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerTransaction{}, err
		}
		return LedgerTransaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.TxnKind(kind)
	t.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return LedgerTransaction{}, fmt.Errorf("parse ledger date %q: %w", date, err)
	}
	t.CreatedAt = parseTimestamp(created)
	return t, nil
}

// parseTimestamp tolerates the formats SQLite emits for CURRENT_TIMESTAMP.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
