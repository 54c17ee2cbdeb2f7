package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "package_name", "package_credits", "package_validity_days",
		"amount_cents", "status", "proof_path", "approved_at", "approved_by", "created_at",
	})
}

func TestCreatePayment_SnapshotsPackage(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	credits := 10
	validity := 30
	pkg := &Package{ID: 3, Name: "10 Classes", Credits: &credits, ValidityDays: &validity, AmountCents: 50000}

	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(1, "10 Classes", &credits, &validity, int64(50000)).
		WillReturnRows(paymentRows().AddRow(5, 1, "10 Classes", credits, validity, 50000, "pending", nil, nil, nil, time.Now()))

	payment, err := repo.CreatePayment(context.Background(), 1, pkg)
	require.NoError(t, err)
	require.Equal(t, 5, payment.ID)
	require.Equal(t, "10 Classes", payment.PackageName)
	require.Equal(t, 10, *payment.PackageCredits)
	require.Equal(t, StatusPending, payment.Status)
}

func TestGetPaymentByID_NotFound(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery("FROM payments").
		WithArgs(999).
		WillReturnRows(paymentRows())

	_, err := repo.GetPaymentByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestAttachProof(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec("UPDATE payments").
		WithArgs("/uploads/proof.jpg", 5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AttachProof(context.Background(), 5, 1, "/uploads/proof.jpg")
	require.NoError(t, err)
}

func TestAttachProof_AlreadySettled(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// Attaching to a settled payment matches no row
	mock.ExpectExec("UPDATE payments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AttachProof(context.Background(), 5, 1, "/uploads/proof.jpg")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestMarkApproved_AlreadySettledIsNotAnError(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// Zero rows means a concurrent approval won; the caller treats it
	// as already settled, so the repo stays silent.
	mock.ExpectExec("UPDATE payments").
		WithArgs(9, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkApproved(context.Background(), 5, 9)
	require.NoError(t, err)
}

func TestMarkRejected_AlreadySettled(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec("UPDATE payments").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRejected(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestListPackages_ActiveOnly(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	credits := 10
	validity := 30
	rows := sqlmock.NewRows([]string{
		"id", "name", "credits", "validity_days", "amount_cents", "active", "created_at",
	}).AddRow(1, "10 Classes", credits, validity, 50000, true, time.Now())

	mock.ExpectQuery("FROM packages").
		WillReturnRows(rows)

	packages, err := repo.ListPackages(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	require.Equal(t, "10 Classes", packages[0].Name)
}
