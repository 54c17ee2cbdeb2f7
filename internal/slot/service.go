package slot

import (
	"context"
	"errors"
	"time"

	"wavewellness/internal/auth"
	"wavewellness/internal/metrics"
)

var (
	ErrNotCoach     = errors.New("only coaches can manage availability")
	ErrSlotInPast   = errors.New("slot start time must be in the future")
	ErrNotSlotOwner = errors.New("slot belongs to another coach")
	ErrBadTime      = errors.New("invalid time format")
)

type Service interface {
	Create(ctx context.Context, actor auth.Principal, req CreateSlotRequest) (*Slot, error)
	BulkCreate(ctx context.Context, actor auth.Principal, req BulkCreateRequest) (*BulkCreateResponse, error)
	ListUpcoming(ctx context.Context) ([]SlotWithAvailability, error)
	ListMine(ctx context.Context, actor auth.Principal, onlyFuture bool) ([]SlotWithAvailability, error)
	UpdateTime(ctx context.Context, actor auth.Principal, slotID int, req UpdateSlotRequest) error
	Delete(ctx context.Context, actor auth.Principal, slotID int) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Principal, req CreateSlotRequest) (*Slot, error) {
	if !actor.IsCoach() {
		return nil, ErrNotCoach
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, ErrBadTime
	}

	if !startsAt.After(s.now()) {
		return nil, ErrSlotInPast
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	slot, err := s.repo.Create(ctx, actor.ID, startsAt, startsAt.Add(SlotDuration), capacity)
	if err != nil {
		return nil, err
	}

	metrics.RecordSlotCreated()
	return slot, nil
}

// BulkCreate inserts a slot for every date×hour pair. Past instants and
// duplicates are skipped, not errors: the coach picks a grid of times and
// gets back how many were new.
func (s *service) BulkCreate(ctx context.Context, actor auth.Principal, req BulkCreateRequest) (*BulkCreateResponse, error) {
	if !actor.IsCoach() {
		return nil, ErrNotCoach
	}

	now := s.now()
	resp := &BulkCreateResponse{}

	for _, dateStr := range req.Dates {
		for _, hourStr := range req.Hours {
			startsAt, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+hourStr, now.Location())
			if err != nil {
				return nil, ErrBadTime
			}

			if !startsAt.After(now) {
				resp.SkippedCount++
				continue
			}

			_, err = s.repo.Create(ctx, actor.ID, startsAt, startsAt.Add(SlotDuration), DefaultCapacity)
			if err != nil {
				if errors.Is(err, ErrDuplicateSlot) {
					resp.SkippedCount++
					continue
				}
				return nil, err
			}

			metrics.RecordSlotCreated()
			resp.CreatedCount++
		}
	}

	return resp, nil
}

func (s *service) ListUpcoming(ctx context.Context) ([]SlotWithAvailability, error) {
	return s.repo.ListUpcoming(ctx)
}

func (s *service) ListMine(ctx context.Context, actor auth.Principal, onlyFuture bool) ([]SlotWithAvailability, error) {
	if !actor.IsCoach() {
		return nil, ErrNotCoach
	}
	return s.repo.ListByCoach(ctx, actor.ID, onlyFuture)
}

func (s *service) UpdateTime(ctx context.Context, actor auth.Principal, slotID int, req UpdateSlotRequest) error {
	if !actor.IsCoach() {
		return ErrNotCoach
	}

	slot, err := s.repo.GetByID(ctx, slotID)
	if err != nil {
		return ErrSlotNotFound
	}

	if slot.CoachID != actor.ID {
		return ErrNotSlotOwner
	}

	hasBookings, err := s.repo.HasBookings(ctx, slotID)
	if err != nil {
		return err
	}
	if hasBookings {
		return ErrSlotHasBookings
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return ErrBadTime
	}

	if !startsAt.After(s.now()) {
		return ErrSlotInPast
	}

	return s.repo.UpdateTime(ctx, slotID, actor.ID, startsAt, startsAt.Add(SlotDuration))
}

func (s *service) Delete(ctx context.Context, actor auth.Principal, slotID int) error {
	if !actor.IsCoach() {
		return ErrNotCoach
	}

	slot, err := s.repo.GetByID(ctx, slotID)
	if err != nil {
		return ErrSlotNotFound
	}

	if slot.CoachID != actor.ID {
		return ErrNotSlotOwner
	}

	return s.repo.Delete(ctx, slotID, actor.ID)
}
