package booking

import (
	"context"
	"time"
)

type Repository interface {
	BookSlot(ctx context.Context, studentID, slotID int) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	GetByIDWithSlot(ctx context.Context, id int) (*BookingWithSlot, error)
	CancelWithRefund(ctx context.Context, bookingID, studentID int, refund bool) error
	Finalize(ctx context.Context, bookingID int, status string) error
	ListByStudent(ctx context.Context, studentID int) ([]BookingWithDetails, error)
	ListBySlot(ctx context.Context, slotID int) ([]BookingWithDetails, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error)
}
