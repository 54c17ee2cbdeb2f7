package payment

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/ledger"
	"wavewellness/internal/logger"
	"wavewellness/internal/metrics"
	"wavewellness/internal/user"
)

var (
	ErrNotAdmin         = errors.New("only admins can settle payments")
	ErrNotStudent       = errors.New("only students can purchase packages")
	ErrNotPaymentOwner  = errors.New("payment belongs to another student")
	ErrPackageInactive  = errors.New("package is not available")
	ErrNoProof          = errors.New("payment has no proof attached")
	ErrUnlimitedPackage = errors.New("unlimited-credit packages cannot be approved")
	ErrBadProofType     = errors.New("proof file type not allowed")
)

// allowedProofExtensions mirrors what the upload layer accepts. The path
// itself stays opaque; only the extension is checked here.
var allowedProofExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// Notifier is the slice of the notification service payments care about.
type Notifier interface {
	SendPaymentApproved(ctx context.Context, email, name string, credits int, expiresAt time.Time) error
	SendPaymentRejected(ctx context.Context, email, name, packageName string) error
}

type Service interface {
	CreatePackage(ctx context.Context, actor auth.Principal, req CreatePackageRequest) (*Package, error)
	ListPackages(ctx context.Context, activeOnly bool) ([]Package, error)
	Purchase(ctx context.Context, actor auth.Principal, packageID int) (*Payment, error)
	AttachProof(ctx context.Context, actor auth.Principal, paymentID int, proofPath string) error
	ListMine(ctx context.Context, actor auth.Principal) ([]Payment, error)
	ListByStatus(ctx context.Context, status string) ([]Payment, error)
	Approve(ctx context.Context, actor auth.Principal, paymentID int) error
	Reject(ctx context.Context, actor auth.Principal, paymentID int) error
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	userRepo   user.Repository
	notifier   Notifier
	now        func() time.Time
}

func NewService(repo Repository, ledgerRepo ledger.Repository, userRepo user.Repository, notifier Notifier) Service {
	return &service{
		repo:       repo,
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *service) CreatePackage(ctx context.Context, actor auth.Principal, req CreatePackageRequest) (*Package, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return s.repo.CreatePackage(ctx, req.Name, req.Credits, req.ValidityDays, req.AmountCents)
}

func (s *service) ListPackages(ctx context.Context, activeOnly bool) ([]Package, error) {
	return s.repo.ListPackages(ctx, activeOnly)
}

func (s *service) Purchase(ctx context.Context, actor auth.Principal, packageID int) (*Payment, error) {
	if !actor.IsStudent() {
		return nil, ErrNotStudent
	}

	pkg, err := s.repo.GetPackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	if !pkg.Active {
		return nil, ErrPackageInactive
	}

	return s.repo.CreatePayment(ctx, actor.ID, pkg)
}

func (s *service) AttachProof(ctx context.Context, actor auth.Principal, paymentID int, proofPath string) error {
	if !actor.IsStudent() {
		return ErrNotStudent
	}

	ext := strings.ToLower(filepath.Ext(proofPath))
	if !allowedProofExtensions[ext] {
		return ErrBadProofType
	}

	payment, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if payment.StudentID != actor.ID {
		return ErrNotPaymentOwner
	}

	return s.repo.AttachProof(ctx, paymentID, actor.ID, proofPath)
}

func (s *service) ListMine(ctx context.Context, actor auth.Principal) ([]Payment, error) {
	return s.repo.ListByStudent(ctx, actor.ID)
}

func (s *service) ListByStatus(ctx context.Context, status string) ([]Payment, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Approve settles a pending payment: exactly one ledger entry per payment,
// ever. The existence check makes retries cheap; the unique index on the
// ledger's ref_payment_id closes the race two concurrent approvals would
// otherwise win together. The status update afterwards is conditioned on
// the payment still being pending, so repeating the call is harmless.
func (s *service) Approve(ctx context.Context, actor auth.Principal, paymentID int) error {
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}

	payment, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if payment.Status != StatusPending {
		return ErrNotPending
	}

	if payment.ProofPath == nil || *payment.ProofPath == "" {
		return ErrNoProof
	}

	if payment.PackageCredits == nil {
		return ErrUnlimitedPackage
	}

	exists, err := s.ledgerRepo.ExistsForPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	validityDays := DefaultValidityDays
	if payment.PackageValidityDays != nil {
		validityDays = *payment.PackageValidityDays
	}
	expiresAt := s.now().AddDate(0, 0, validityDays)

	if !exists {
		_, err = s.ledgerRepo.Insert(ctx, ledger.Entry{
			StudentID:    payment.StudentID,
			Delta:        *payment.PackageCredits,
			Reason:       ledger.ReasonPaymentApproved,
			RefPaymentID: &paymentID,
			CreatedBy:    actor.ID,
			ExpiresAt:    &expiresAt,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicatePaymentRef) {
				// A concurrent approval already credited this payment.
				logger.Infof("Payment %d was credited concurrently, skipping insert", paymentID)
			} else {
				return err
			}
		} else {
			metrics.RecordCreditsGranted(*payment.PackageCredits)
		}
	}

	if err := s.repo.MarkApproved(ctx, paymentID, actor.ID); err != nil {
		logger.Errorf("Status update failed after crediting payment %d: %v", paymentID, err)
		metrics.RecordLedgerAnomaly()
		return err
	}

	metrics.RecordPaymentSettled(StatusApproved)

	if s.notifier != nil {
		if u, err := s.userRepo.FindByID(ctx, payment.StudentID); err == nil {
			s.notifier.SendPaymentApproved(ctx, u.Email, u.Name, *payment.PackageCredits, expiresAt)
		}
	}

	return nil
}

func (s *service) Reject(ctx context.Context, actor auth.Principal, paymentID int) error {
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}

	payment, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if payment.Status != StatusPending {
		return ErrNotPending
	}

	if err := s.repo.MarkRejected(ctx, paymentID); err != nil {
		return err
	}

	metrics.RecordPaymentSettled(StatusRejected)

	if s.notifier != nil {
		if u, err := s.userRepo.FindByID(ctx, payment.StudentID); err == nil {
			s.notifier.SendPaymentRejected(ctx, u.Email, u.Name, payment.PackageName)
		}
	}

	return nil
}
