package dto

import (
	"time"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// PurchaseRequest payload for buying a plan.
type PurchaseRequest struct {
	PlanID        int64  `json:"planId" validate:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card bank_transfer ewallet"`
}

// CancelMembershipRequest payload for requesting a refund cancellation.
type CancelMembershipRequest struct {
	Reason        string `json:"reason" validate:"required,max=500"`
	BankName      string `json:"bankName" validate:"required,max=100"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=6,max=30"`
	AccountHolder string `json:"accountHolder" validate:"required,max=100"`
}

// PlanResponse is the public view of a plan.
type PlanResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"durationDays"`
}

// PaymentResponse is a payment receipt.
type PaymentResponse struct {
	ID             int64                `json:"id"`
	Amount         int64                `json:"amount"`
	Method         string               `json:"method"`
	TransactionRef string               `json:"transactionRef"`
	Status         domain.PaymentStatus `json:"status"`
}

// MembershipResponse describes a membership period.
type MembershipResponse struct {
	ID        int64                   `json:"id"`
	PlanID    int64                   `json:"planId"`
	StartDate time.Time               `json:"startDate"`
	EndDate   time.Time               `json:"endDate"`
	Status    domain.MembershipStatus `json:"status"`
}

// PurchaseResponse bundles the outcome of a purchase.
type PurchaseResponse struct {
	Membership MembershipResponse `json:"membership"`
	Payment    PaymentResponse    `json:"payment"`
	Plan       PlanResponse       `json:"plan"`
	Role       domain.Role        `json:"role"`
}

// CancellationResponse is the admin and member view of a refund request.
type CancellationResponse struct {
	ID            int64                     `json:"id"`
	UserID        int64                     `json:"userId"`
	MembershipID  int64                     `json:"membershipId"`
	Reason        string                    `json:"reason"`
	BankName      string                    `json:"bankName"`
	AccountNumber string                    `json:"accountNumber"`
	AccountHolder string                    `json:"accountHolder"`
	Status        domain.CancellationStatus `json:"status"`
	ReviewedBy    *int64                    `json:"reviewedBy,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

// NewPlanResponses maps plans.
func NewPlanResponses(plans []domain.MembershipPlan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, newPlanResponse(&plans[i]))
	}
	return out
}

func newPlanResponse(p *domain.MembershipPlan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		DurationDays: p.DurationDays,
	}
}

// NewMembershipResponse maps a membership.
func NewMembershipResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:        m.ID,
		PlanID:    m.PlanID,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Status:    m.Status,
	}
}

// NewPurchaseResponse flattens the rows written by a purchase.
func NewPurchaseResponse(m *domain.Membership, p *domain.Payment, plan *domain.MembershipPlan, role domain.Role) PurchaseResponse {
	return PurchaseResponse{
		Membership: NewMembershipResponse(m),
		Payment: PaymentResponse{
			ID:             p.ID,
			Amount:         p.Amount,
			Method:         p.Method,
			TransactionRef: p.TransactionRef,
			Status:         p.Status,
		},
		Plan: newPlanResponse(plan),
		Role: role,
	}
}

// NewCancellationResponse maps a cancellation request.
func NewCancellationResponse(r *domain.CancellationRequest) CancellationResponse {
	return CancellationResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		MembershipID:  r.MembershipID,
		Reason:        r.Reason,
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		AccountHolder: r.AccountHolder,
		Status:        r.Status,
		ReviewedBy:    r.ReviewedBy,
		CreatedAt:     r.CreatedAt,
	}
}

// NewCancellationResponses maps a slice of cancellation requests.
func NewCancellationResponses(reqs []domain.CancellationRequest) []CancellationResponse {
	out := make([]CancellationResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewCancellationResponse(&reqs[i]))
	}
	return out
}
