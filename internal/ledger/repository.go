package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicatePaymentRef means a ledger entry already references the payment.
// The unique index on ref_payment_id is what makes payment approval safe to
// retry concurrently.
var ErrDuplicatePaymentRef = errors.New("ledger entry already exists for payment")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, e Entry) (*Entry, error) {
	query := `
		INSERT INTO credit_ledger (student_id, delta, reason, ref_payment_id, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, student_id, delta, reason, ref_payment_id, created_by, expires_at, created_at
	`

	var entry Entry
	err := r.db.GetContext(ctx, &entry, query,
		e.StudentID, e.Delta, e.Reason, e.RefPaymentID, e.CreatedBy, e.ExpiresAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicatePaymentRef
		}
		return nil, err
	}

	return &entry, nil
}

// Balance sums deltas of all entries that have not expired. An entry with
// expires_at in the past contributes zero regardless of sign.
func (r *repository) Balance(ctx context.Context, studentID int) (int, error) {
	query := `
		SELECT COALESCE(SUM(delta), 0)
		FROM credit_ledger
		WHERE student_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var balance int
	err := r.db.GetContext(ctx, &balance, query, studentID)
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, student_id, delta, reason, ref_payment_id, created_by, expires_at, created_at
		FROM credit_ledger
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, query, studentID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ExpiringSoon sums positive deltas whose expiry falls inside the window.
func (r *repository) ExpiringSoon(ctx context.Context, studentID int, within time.Duration) (int, error) {
	query := `
		SELECT COALESCE(SUM(delta), 0)
		FROM credit_ledger
		WHERE student_id = $1
		  AND delta > 0
		  AND expires_at IS NOT NULL
		  AND expires_at > NOW()
		  AND expires_at <= NOW() + $2 * INTERVAL '1 second'
	`

	var total int
	err := r.db.GetContext(ctx, &total, query, studentID, int(within.Seconds()))
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *repository) ExistsForPayment(ctx context.Context, paymentID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM credit_ledger WHERE ref_payment_id = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, paymentID)
	if err != nil {
		return false, err
	}

	return exists, nil
}
