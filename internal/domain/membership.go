package domain

import "time"

// MembershipStatus tracks the lifecycle of a purchased membership.
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusExpired   MembershipStatus = "expired"
	MembershipStatusCancelled MembershipStatus = "cancelled"
)

// PaymentStatus tracks payment bookkeeping rows.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// CancellationStatus tracks member cancellation requests.
type CancellationStatus string

const (
	CancellationStatusPending  CancellationStatus = "pending"
	CancellationStatusApproved CancellationStatus = "approved"
	CancellationStatusRejected CancellationStatus = "rejected"
)

// MembershipPlan is a purchasable package.
type MembershipPlan struct {
	ID           int64
	Name         string
	Description  string
	Price        int64
	DurationDays int
	IsActive     bool
	CreatedAt    time.Time
}

// Payment records money received for a plan.
type Payment struct {
	ID             int64
	UserID         int64
	PlanID         int64
	Amount         int64
	Method         string
	TransactionRef string
	Status         PaymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Membership grants member access for a date range.
type Membership struct {
	ID        int64
	UserID    int64
	PlanID    int64
	PaymentID int64
	StartDate time.Time
	EndDate   time.Time
	Status    MembershipStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CancellationRequest is a member's request to end a membership with a refund.
type CancellationRequest struct {
	ID            int64
	UserID        int64
	MembershipID  int64
	Reason        string
	BankName      string
	AccountNumber string
	AccountHolder string
	Status        CancellationStatus
	ReviewedBy    *int64
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}
