package slot

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrDuplicateSlot   = errors.New("slot already exists at this time")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotHasBookings = errors.New("slot has bookings")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, coachID int, startsAt, endsAt time.Time, capacity int) (*Slot, error) {
	query := `
		INSERT INTO coach_slots (coach_id, starts_at, ends_at, capacity, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, coach_id, starts_at, ends_at, capacity, active, created_at
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, query, coachID, startsAt, endsAt, capacity)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}

	return &slot, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Slot, error) {
	query := `
		SELECT id, coach_id, starts_at, ends_at, capacity, active, created_at
		FROM coach_slots
		WHERE id = $1
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if err != nil {
		return nil, err
	}

	return &slot, nil
}

func (r *repository) ListUpcoming(ctx context.Context) ([]SlotWithAvailability, error) {
	query := `
		SELECT
			s.id, s.coach_id, s.starts_at, s.ends_at, s.capacity, s.active, s.created_at,
			p.name AS coach_name,
			COUNT(b.id) FILTER (WHERE b.status = 'booked') AS booked_count,
			s.capacity - COUNT(b.id) FILTER (WHERE b.status = 'booked') AS available
		FROM coach_slots s
		JOIN profiles p ON p.id = s.coach_id
		LEFT JOIN class_bookings b ON b.slot_id = s.id
		WHERE s.active = TRUE AND s.starts_at > NOW()
		GROUP BY s.id, p.name
		ORDER BY s.starts_at ASC
	`

	var slots []SlotWithAvailability
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, err
	}

	for i := range slots {
		slots[i].IsFull = slots[i].Available <= 0
	}

	return slots, nil
}

func (r *repository) ListByCoach(ctx context.Context, coachID int, onlyFuture bool) ([]SlotWithAvailability, error) {
	query := `
		SELECT
			s.id, s.coach_id, s.starts_at, s.ends_at, s.capacity, s.active, s.created_at,
			p.name AS coach_name,
			COUNT(b.id) FILTER (WHERE b.status = 'booked') AS booked_count,
			s.capacity - COUNT(b.id) FILTER (WHERE b.status = 'booked') AS available
		FROM coach_slots s
		JOIN profiles p ON p.id = s.coach_id
		LEFT JOIN class_bookings b ON b.slot_id = s.id
		WHERE s.coach_id = $1
	`

	if onlyFuture {
		query += " AND s.starts_at > NOW()"
	}

	query += " GROUP BY s.id, p.name ORDER BY s.starts_at ASC"

	var slots []SlotWithAvailability
	if err := r.db.SelectContext(ctx, &slots, query, coachID); err != nil {
		return nil, err
	}

	for i := range slots {
		slots[i].IsFull = slots[i].Available <= 0
	}

	return slots, nil
}

func (r *repository) UpdateTime(ctx context.Context, id, coachID int, startsAt, endsAt time.Time) error {
	query := `
		UPDATE coach_slots
		SET starts_at = $1, ends_at = $2
		WHERE id = $3 AND coach_id = $4
	`

	result, err := r.db.ExecContext(ctx, query, startsAt, endsAt, id, coachID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateSlot
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSlotNotFound
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, coachID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM coach_slots WHERE id = $1 AND coach_id = $2`, id, coachID)
	if err != nil {
		// FK restrict from class_bookings blocks deleting a booked slot.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrSlotHasBookings
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSlotNotFound
	}

	return nil
}

func (r *repository) HasBookings(ctx context.Context, id int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM class_bookings WHERE slot_id = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, id)
	if err != nil {
		return false, err
	}

	return exists, nil
}
