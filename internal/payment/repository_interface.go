package payment

import "context"

type Repository interface {
	CreatePackage(ctx context.Context, name string, credits, validityDays *int, amountCents int64) (*Package, error)
	GetPackageByID(ctx context.Context, id int) (*Package, error)
	ListPackages(ctx context.Context, activeOnly bool) ([]Package, error)

	CreatePayment(ctx context.Context, studentID int, pkg *Package) (*Payment, error)
	GetPaymentByID(ctx context.Context, id int) (*Payment, error)
	AttachProof(ctx context.Context, id, studentID int, proofPath string) error
	ListByStudent(ctx context.Context, studentID int) ([]Payment, error)
	ListByStatus(ctx context.Context, status string) ([]Payment, error)
	MarkApproved(ctx context.Context, id, adminID int) error
	MarkRejected(ctx context.Context, id int) error
}
