package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotInactive     = errors.New("slot is not active")
	ErrSlotInPast       = errors.New("cannot book a slot in the past")
	ErrSlotFull         = errors.New("slot is full")
	ErrDuplicateBooking = errors.New("student already has a booking for this slot")
	ErrAlreadyFinalized = errors.New("booking is not in booked status")
	ErrBookingNotFound  = errors.New("booking not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// BookSlot performs the capacity check, duplicate check and insert as one
// transaction. The slot row is locked with FOR UPDATE so two concurrent
// requests for the last seat serialize: the loser re-reads the count after
// the winner commits and fails with ErrSlotFull. The partial unique index on
// (student_id, slot_id) WHERE status = 'booked' backs the duplicate check.
func (r *repository) BookSlot(ctx context.Context, studentID, slotID int) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var slot struct {
		StartsAt time.Time `db:"starts_at"`
		Capacity int       `db:"capacity"`
		Active   bool      `db:"active"`
	}
	err = tx.QueryRowxContext(ctx,
		`SELECT starts_at, capacity, active
		 FROM coach_slots
		 WHERE id = $1
		 FOR UPDATE`,
		slotID,
	).StructScan(&slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if !slot.Active {
		return nil, ErrSlotInactive
	}

	if !slot.StartsAt.After(time.Now()) {
		return nil, ErrSlotInPast
	}

	var bookedCount int
	err = tx.GetContext(ctx, &bookedCount,
		`SELECT COUNT(*) FROM class_bookings WHERE slot_id = $1 AND status = 'booked'`,
		slotID,
	)
	if err != nil {
		return nil, err
	}

	if bookedCount >= slot.Capacity {
		return nil, ErrSlotFull
	}

	var hasBooking bool
	err = tx.GetContext(ctx, &hasBooking,
		`SELECT EXISTS(
			SELECT 1 FROM class_bookings
			WHERE student_id = $1 AND slot_id = $2 AND status = 'booked'
		)`,
		studentID, slotID,
	)
	if err != nil {
		return nil, err
	}

	if hasBooking {
		return nil, ErrDuplicateBooking
	}

	var booking Booking
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO class_bookings (student_id, slot_id, status)
		 VALUES ($1, $2, 'booked')
		 RETURNING id, student_id, slot_id, status, created_at, cancelled_at`,
		studentID, slotID,
	).StructScan(&booking)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	query := `
		SELECT id, student_id, slot_id, status, created_at, cancelled_at
		FROM class_bookings
		WHERE id = $1
	`

	var booking Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &booking, nil
}

func (r *repository) GetByIDWithSlot(ctx context.Context, id int) (*BookingWithSlot, error) {
	query := `
		SELECT
			b.id, b.student_id, b.slot_id, b.status, b.created_at, b.cancelled_at,
			s.starts_at AS slot_starts_at,
			s.ends_at AS slot_ends_at,
			s.coach_id
		FROM class_bookings b
		JOIN coach_slots s ON b.slot_id = s.id
		WHERE b.id = $1
	`

	var booking BookingWithSlot
	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &booking, nil
}

// CancelWithRefund flips the booking to cancelled and, when refund is true,
// appends the +1 class_cancelled ledger entry in the same transaction. A
// refund is never recorded without the cancellation committing, and vice
// versa. The update is conditioned on status still being 'booked' so a
// second cancel attempt loses cleanly.
func (r *repository) CancelWithRefund(ctx context.Context, bookingID, studentID int, refund bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE class_bookings
		 SET status = 'cancelled', cancelled_at = NOW()
		 WHERE id = $1 AND status = 'booked'`,
		bookingID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyFinalized
	}

	if refund {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO credit_ledger (student_id, delta, reason, created_by)
			 VALUES ($1, 1, 'class_cancelled', $2)`,
			studentID, studentID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Finalize moves a booking from booked to attended or no_show. The WHERE
// clause on the current status makes the transition single-shot: of two
// concurrent attempts only one sees a row to update.
func (r *repository) Finalize(ctx context.Context, bookingID int, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE class_bookings
		 SET status = $1
		 WHERE id = $2 AND status = 'booked'`,
		status, bookingID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyFinalized
	}

	return nil
}

func (r *repository) ListByStudent(ctx context.Context, studentID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id, b.student_id, b.slot_id, b.status, b.created_at, b.cancelled_at,
			s.starts_at AS slot_starts_at,
			s.ends_at AS slot_ends_at,
			coach.name AS coach_name,
			student.name AS student_name,
			student.email AS student_email
		FROM class_bookings b
		JOIN coach_slots s ON b.slot_id = s.id
		JOIN profiles coach ON s.coach_id = coach.id
		JOIN profiles student ON b.student_id = student.id
		WHERE b.student_id = $1
		ORDER BY s.starts_at DESC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, studentID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) ListBySlot(ctx context.Context, slotID int) ([]BookingWithDetails, error) {
	query := `
		SELECT
			b.id, b.student_id, b.slot_id, b.status, b.created_at, b.cancelled_at,
			s.starts_at AS slot_starts_at,
			s.ends_at AS slot_ends_at,
			coach.name AS coach_name,
			student.name AS student_name,
			student.email AS student_email
		FROM class_bookings b
		JOIN coach_slots s ON b.slot_id = s.id
		JOIN profiles coach ON s.coach_id = coach.id
		JOIN profiles student ON b.student_id = student.id
		WHERE b.slot_id = $1
		ORDER BY b.created_at ASC
	`

	var bookings []BookingWithDetails
	err := r.db.SelectContext(ctx, &bookings, query, slotID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error) {
	query := `
		SELECT
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS day,
			COUNT(*) FILTER (WHERE status = 'booked')    AS booked,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'attended')  AS attended,
			COUNT(*) FILTER (WHERE status = 'no_show')   AS no_show
		FROM class_bookings
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY DATE(created_at)
		ORDER BY day
	`

	var stats []DayStats
	err := r.db.SelectContext(ctx, &stats, query, from, to)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
