package slot

import "time"

// SlotDuration is fixed: every availability block is exactly one hour.
const SlotDuration = time.Hour

// DefaultCapacity is the seat count a new slot gets unless overridden.
const DefaultCapacity = 2

type Slot struct {
	ID        int       `db:"id" json:"id"`
	CoachID   int       `db:"coach_id" json:"coach_id"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SlotWithAvailability struct {
	Slot
	CoachName   string `db:"coach_name" json:"coach_name"`
	BookedCount int    `db:"booked_count" json:"booked_count"`
	Available   int    `db:"available" json:"available"`
	IsFull      bool   `db:"-" json:"is_full"`
}

type CreateSlotRequest struct {
	StartsAt string `json:"starts_at" binding:"required"`
	Capacity int    `json:"capacity" binding:"omitempty,min=1"`
}

// BulkCreateRequest creates one slot per (date, hour) combination,
// skipping past instants and already-existing slots.
type BulkCreateRequest struct {
	Dates []string `json:"dates" binding:"required,min=1,dive,datetime=2006-01-02"`
	Hours []string `json:"hours" binding:"required,min=1,dive,datetime=15:04"`
}

type UpdateSlotRequest struct {
	StartsAt string `json:"starts_at" binding:"required"`
}

type BulkCreateResponse struct {
	CreatedCount int `json:"created_count"`
	SkippedCount int `json:"skipped_count"`
}
