package ledger

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, e Entry) (*Entry, error)
	Balance(ctx context.Context, studentID int) (int, error)
	ListByStudent(ctx context.Context, studentID int, limit, offset int) ([]Entry, error)
	ExpiringSoon(ctx context.Context, studentID int, within time.Duration) (int, error)
	ExistsForPayment(ctx context.Context, paymentID int) (bool, error)
}
