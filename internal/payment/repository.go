package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPackageNotFound = errors.New("package not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNotPending      = errors.New("payment is not pending")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePackage(ctx context.Context, name string, credits, validityDays *int, amountCents int64) (*Package, error) {
	query := `
		INSERT INTO packages (name, credits, validity_days, amount_cents, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, name, credits, validity_days, amount_cents, active, created_at
	`

	var pkg Package
	err := r.db.GetContext(ctx, &pkg, query, name, credits, validityDays, amountCents)
	if err != nil {
		return nil, err
	}

	return &pkg, nil
}

func (r *repository) GetPackageByID(ctx context.Context, id int) (*Package, error) {
	query := `
		SELECT id, name, credits, validity_days, amount_cents, active, created_at
		FROM packages
		WHERE id = $1
	`

	var pkg Package
	err := r.db.GetContext(ctx, &pkg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	return &pkg, nil
}

func (r *repository) ListPackages(ctx context.Context, activeOnly bool) ([]Package, error) {
	query := `
		SELECT id, name, credits, validity_days, amount_cents, active, created_at
		FROM packages
	`

	if activeOnly {
		query += " WHERE active = TRUE"
	}

	query += " ORDER BY amount_cents ASC"

	var packages []Package
	err := r.db.SelectContext(ctx, &packages, query)
	if err != nil {
		return nil, err
	}

	return packages, nil
}

// CreatePayment copies the package fields onto the payment row. The snapshot
// is what approval later grants, regardless of package edits in between.
func (r *repository) CreatePayment(ctx context.Context, studentID int, pkg *Package) (*Payment, error) {
	query := `
		INSERT INTO payments (student_id, package_name, package_credits, package_validity_days, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, student_id, package_name, package_credits, package_validity_days,
		          amount_cents, status, proof_path, approved_at, approved_by, created_at
	`

	var payment Payment
	err := r.db.GetContext(ctx, &payment, query,
		studentID, pkg.Name, pkg.Credits, pkg.ValidityDays, pkg.AmountCents)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *repository) GetPaymentByID(ctx context.Context, id int) (*Payment, error) {
	query := `
		SELECT id, student_id, package_name, package_credits, package_validity_days,
		       amount_cents, status, proof_path, approved_at, approved_by, created_at
		FROM payments
		WHERE id = $1
	`

	var payment Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &payment, nil
}

func (r *repository) AttachProof(ctx context.Context, id, studentID int, proofPath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET proof_path = $1
		 WHERE id = $2 AND student_id = $3 AND status = 'pending'`,
		proofPath, id, studentID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotPending
	}

	return nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]Payment, error) {
	query := `
		SELECT id, student_id, package_name, package_credits, package_validity_days,
		       amount_cents, status, proof_path, approved_at, approved_by, created_at
		FROM payments
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query, studentID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *repository) ListByStatus(ctx context.Context, status string) ([]Payment, error) {
	query := `
		SELECT id, student_id, package_name, package_credits, package_validity_days,
		       amount_cents, status, proof_path, approved_at, approved_by, created_at
		FROM payments
		WHERE status = $1
		ORDER BY created_at ASC
	`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query, status)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// MarkApproved is conditioned on the payment still being pending so two
// concurrent approvals cannot both win. Zero rows affected is not an error
// here: the caller treats it as "someone else already settled it".
func (r *repository) MarkApproved(ctx context.Context, id, adminID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'approved', approved_at = NOW(), approved_by = $1
		 WHERE id = $2 AND status = 'pending'`,
		adminID, id,
	)
	return err
}

func (r *repository) MarkRejected(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'rejected'
		 WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotPending
	}

	return nil
}
