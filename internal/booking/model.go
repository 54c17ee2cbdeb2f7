package booking

import "time"

// Booking status lifecycle is one-way and single-shot:
// booked -> cancelled | attended | no_show. Terminal states never change.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusAttended  = "attended"
	StatusNoShow    = "no_show"
)

// CancellationNotice is the minimum notice for a cancellation refund.
// Cancelling with less notice forfeits the credit.
const CancellationNotice = 24 * time.Hour

type Booking struct {
	ID          int        `db:"id" json:"id"`
	StudentID   int        `db:"student_id" json:"student_id"`
	SlotID      int        `db:"slot_id" json:"slot_id"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// BookingWithSlot carries the slot fields the cancellation and attendance
// rules need: start time for the refund window, coach for ownership checks.
type BookingWithSlot struct {
	Booking
	SlotStartsAt time.Time `db:"slot_starts_at" json:"slot_starts_at"`
	SlotEndsAt   time.Time `db:"slot_ends_at" json:"slot_ends_at"`
	CoachID      int       `db:"coach_id" json:"coach_id"`
}

type BookingWithDetails struct {
	Booking
	SlotStartsAt time.Time `db:"slot_starts_at" json:"slot_starts_at"`
	SlotEndsAt   time.Time `db:"slot_ends_at" json:"slot_ends_at"`
	CoachName    string    `db:"coach_name" json:"coach_name"`
	StudentName  string    `db:"student_name" json:"student_name"`
	StudentEmail string    `db:"student_email" json:"student_email"`
}

type AttendanceRequest struct {
	Status string `json:"status" binding:"required,oneof=attended no_show"`
}

type DayStats struct {
	Day       string `db:"day" json:"day"`
	Booked    int    `db:"booked" json:"booked"`
	Cancelled int    `db:"cancelled" json:"cancelled"`
	Attended  int    `db:"attended" json:"attended"`
	NoShow    int    `db:"no_show" json:"no_show"`
}
