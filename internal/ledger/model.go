package ledger

import "time"

// Reason codes for credit ledger entries. Entries are append-only: a
// student's balance is always recomputed from deltas, never stored.
type Reason string

const (
	ReasonPaymentApproved  Reason = "payment_approved"
	ReasonClassAttended    Reason = "class_attended"
	ReasonClassNoShow      Reason = "class_no_show"
	ReasonClassCancelled   Reason = "class_cancelled"
	ReasonManualAdjustment Reason = "manual_adjustment"
	ReasonCreditsExpired   Reason = "credits_expired"
)

type Entry struct {
	ID           int        `db:"id" json:"id"`
	StudentID    int        `db:"student_id" json:"student_id"`
	Delta        int        `db:"delta" json:"delta"`
	Reason       Reason     `db:"reason" json:"reason"`
	RefPaymentID *int       `db:"ref_payment_id" json:"ref_payment_id,omitempty"`
	CreatedBy    int        `db:"created_by" json:"created_by"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// BalanceResponse is the student-facing credit summary.
type BalanceResponse struct {
	Balance      int `json:"balance"`
	ExpiringSoon int `json:"expiring_soon"`
}

type AdjustCreditsRequest struct {
	Delta int `json:"delta" binding:"required"`
}
