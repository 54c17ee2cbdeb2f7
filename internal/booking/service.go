package booking

import (
	"context"
	"errors"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/ledger"
	"wavewellness/internal/logger"
	"wavewellness/internal/metrics"
	"wavewellness/internal/user"
)

var (
	ErrNotStudent = errors.New("only students can book slots")
	ErrNoCredit   = errors.New("no credits available")
	ErrNotOwner   = errors.New("booking belongs to another student")
	ErrNotAllowed = errors.New("not allowed to mark attendance for this booking")
	ErrBadStatus  = errors.New("attendance status must be attended or no_show")
)

// Notifier is the slice of the notification service bookings care about.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, email, name string, startsAt time.Time) error
	SendCancellation(ctx context.Context, email, name string, startsAt time.Time, refunded bool) error
}

type Service interface {
	BookSlot(ctx context.Context, actor auth.Principal, slotID int) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Principal, bookingID int) (refunded bool, err error)
	MarkAttendance(ctx context.Context, actor auth.Principal, bookingID int, status string) error
	ListMine(ctx context.Context, actor auth.Principal) ([]BookingWithDetails, error)
	ListBySlot(ctx context.Context, actor auth.Principal, slotID int, slotCoachID int) ([]BookingWithDetails, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error)
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

// BookSlot gates on a positive credit balance, then delegates the capacity
// and duplicate checks to the repository's transactional insert. The booking
// itself never debits the ledger: credits are only consumed at settlement
// time (attendance or no-show), and restored at timely cancellation.
func (s *service) BookSlot(ctx context.Context, actor auth.Principal, slotID int) (*Booking, error) {
	if !actor.IsStudent() {
		return nil, ErrNotStudent
	}

	balance, err := s.ledgerRepo.Balance(ctx, actor.ID)
	if err != nil {
		// Fail closed: an unreadable ledger gates like a zero balance.
		logger.Errorf("Balance read failed for student %d: %v", actor.ID, err)
		return nil, ErrNoCredit
	}

	if balance <= 0 {
		return nil, ErrNoCredit
	}

	booking, err := s.repo.BookSlot(ctx, actor.ID, slotID)
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking()

	if s.notifier != nil {
		if u, err := s.userRepo.FindByID(ctx, actor.ID); err == nil {
			withSlot, err := s.repo.GetByIDWithSlot(ctx, booking.ID)
			if err == nil {
				s.notifier.SendBookingConfirmation(ctx, u.Email, u.Name, withSlot.SlotStartsAt)
			}
		}
	}

	return booking, nil
}

// Cancel flips a booked reservation to cancelled. With at least 24 hours of
// notice the credit comes back as a +1 class_cancelled entry written in the
// same transaction as the status change; with less notice it is forfeited.
func (s *service) Cancel(ctx context.Context, actor auth.Principal, bookingID int) (bool, error) {
	if !actor.IsStudent() {
		return false, ErrNotStudent
	}

	booking, err := s.repo.GetByIDWithSlot(ctx, bookingID)
	if err != nil {
		return false, err
	}

	if booking.StudentID != actor.ID {
		return false, ErrNotOwner
	}

	if booking.Status != StatusBooked {
		return false, ErrAlreadyFinalized
	}

	refund := booking.SlotStartsAt.Sub(s.now()) >= CancellationNotice

	if err := s.repo.CancelWithRefund(ctx, bookingID, actor.ID, refund); err != nil {
		return false, err
	}

	metrics.RecordCancellation(refund)

	if s.notifier != nil {
		if u, err := s.userRepo.FindByID(ctx, actor.ID); err == nil {
			s.notifier.SendCancellation(ctx, u.Email, u.Name, booking.SlotStartsAt, refund)
		}
	}

	return refund, nil
}

// MarkAttendance finalizes a booking as attended or no_show and debits one
// credit. Both outcomes debit the same: only a timely cancellation avoids
// the charge. The status update and the ledger insert are sequential; if
// the ledger write fails after the status flip, the anomaly is logged and
// counted but the status change stands.
func (s *service) MarkAttendance(ctx context.Context, actor auth.Principal, bookingID int, status string) error {
	if status != StatusAttended && status != StatusNoShow {
		return ErrBadStatus
	}

	if !actor.IsCoach() && !actor.IsAdmin() {
		return ErrNotAllowed
	}

	booking, err := s.repo.GetByIDWithSlot(ctx, bookingID)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && booking.CoachID != actor.ID {
		return ErrNotAllowed
	}

	if booking.Status != StatusBooked {
		return ErrAlreadyFinalized
	}

	if err := s.repo.Finalize(ctx, bookingID, status); err != nil {
		return err
	}

	metrics.RecordAttendance(status)

	reason := ledger.ReasonClassAttended
	if status == StatusNoShow {
		reason = ledger.ReasonClassNoShow
	}

	_, err = s.ledgerRepo.Insert(ctx, ledger.Entry{
		StudentID: booking.StudentID,
		Delta:     -1,
		Reason:    reason,
		CreatedBy: actor.ID,
	})
	if err != nil {
		logger.Errorf("Ledger debit failed after finalizing booking %d as %s: %v", bookingID, status, err)
		metrics.RecordLedgerAnomaly()
	}

	return nil
}

func (s *service) ListMine(ctx context.Context, actor auth.Principal) ([]BookingWithDetails, error) {
	return s.repo.ListByStudent(ctx, actor.ID)
}

func (s *service) ListBySlot(ctx context.Context, actor auth.Principal, slotID int, slotCoachID int) ([]BookingWithDetails, error) {
	if !actor.IsAdmin() && actor.ID != slotCoachID {
		return nil, ErrNotAllowed
	}
	return s.repo.ListBySlot(ctx, slotID)
}

func (s *service) StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error) {
	return s.repo.StatsByDay(ctx, from, to)
}
