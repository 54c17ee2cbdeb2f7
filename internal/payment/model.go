package payment

import "time"

// Payment status lifecycle is single-shot: pending -> approved | rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// DefaultValidityDays applies when a payment carries no validity snapshot.
const DefaultValidityDays = 30

// Package is a purchasable credit bundle. Credits == nil means unlimited,
// which the approval path does not support.
type Package struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Credits      *int      `db:"credits" json:"credits,omitempty"`
	ValidityDays *int      `db:"validity_days" json:"validity_days,omitempty"`
	AmountCents  int64     `db:"amount_cents" json:"amount_cents"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Payment snapshots the package at purchase time so later package edits
// never change what an already-sold payment grants.
type Payment struct {
	ID                  int        `db:"id" json:"id"`
	StudentID           int        `db:"student_id" json:"student_id"`
	PackageName         string     `db:"package_name" json:"package_name"`
	PackageCredits      *int       `db:"package_credits" json:"package_credits,omitempty"`
	PackageValidityDays *int       `db:"package_validity_days" json:"package_validity_days,omitempty"`
	AmountCents         int64      `db:"amount_cents" json:"amount_cents"`
	Status              string     `db:"status" json:"status"`
	ProofPath           *string    `db:"proof_path" json:"proof_path,omitempty"`
	ApprovedAt          *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy          *int       `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

type CreatePackageRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=100"`
	Credits      *int   `json:"credits" binding:"omitempty,min=1"`
	ValidityDays *int   `json:"validity_days" binding:"omitempty,min=1"`
	AmountCents  int64  `json:"amount_cents" binding:"required,min=1"`
}

type CreatePaymentRequest struct {
	PackageID int `json:"package_id" binding:"required"`
}

type AttachProofRequest struct {
	ProofPath string `json:"proof_path" binding:"required"`
}
