package slot

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, coachID int, startsAt, endsAt time.Time, capacity int) (*Slot, error)
	GetByID(ctx context.Context, id int) (*Slot, error)
	ListUpcoming(ctx context.Context) ([]SlotWithAvailability, error)
	ListByCoach(ctx context.Context, coachID int, onlyFuture bool) ([]SlotWithAvailability, error)
	UpdateTime(ctx context.Context, id, coachID int, startsAt, endsAt time.Time) error
	Delete(ctx context.Context, id, coachID int) error
	HasBookings(ctx context.Context, id int) (bool, error)
}
