package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/repository"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

// PurchaseInput describes a plan purchase.
type PurchaseInput struct {
	PlanID        int64
	PaymentMethod string
}

// CancellationInput describes a member's refund request.
type CancellationInput struct {
	Reason        string
	BankName      string
	AccountNumber string
	AccountHolder string
}

// PurchaseResult bundles the rows written by a purchase.
type PurchaseResult struct {
	Membership *domain.Membership
	Payment    *domain.Payment
	Plan       *domain.MembershipPlan
	Role       domain.Role
}

// MembershipService handles plan purchase and cancellation bookkeeping.
type MembershipService struct {
	repos      repository.Repositories
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// MembershipDependencies bundles collaborators for the membership service.
type MembershipDependencies struct {
	Repos      repository.Repositories
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewMembershipService constructs the service.
func NewMembershipService(deps MembershipDependencies) *MembershipService {
	s := &MembershipService{
		repos:      deps.Repos,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListPlans returns purchasable plans.
func (s *MembershipService) ListPlans(ctx context.Context) ([]domain.MembershipPlan, error) {
	return s.repos.Plans.ListActive(ctx)
}

// Purchase records a confirmed payment, opens a membership and promotes a
// guest to member. All three writes share one transaction.
func (s *MembershipService) Purchase(ctx context.Context, userID int64, input PurchaseInput) (*PurchaseResult, error) {
	var result PurchaseResult
	err := s.tx.WithTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if _, err := repos.Memberships.GetActiveByUser(ctx, userID); err == nil {
			return apperrors.NewConflict("an active membership already exists")
		} else if !apperrors.IsNotFound(err) {
			return err
		}

		plan, err := repos.Plans.GetByID(ctx, input.PlanID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("plan does not exist", map[string]any{"planId": input.PlanID})
			}
			return err
		}
		if !plan.IsActive {
			return apperrors.NewValidationError("plan is not available", map[string]any{"planId": input.PlanID})
		}

		payment := &domain.Payment{
			UserID:         userID,
			PlanID:         plan.ID,
			Amount:         plan.Price,
			Method:         input.PaymentMethod,
			TransactionRef: uuid.NewString(),
			Status:         domain.PaymentStatusConfirmed,
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}

		start := s.now().UTC()
		membership := &domain.Membership{
			UserID:    userID,
			PlanID:    plan.ID,
			PaymentID: payment.ID,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, plan.DurationDays),
			Status:    domain.MembershipStatusActive,
		}
		if err := repos.Memberships.Create(ctx, membership); err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflict("an active membership already exists")
			}
			return err
		}

		if user.Role == domain.RoleGuest {
			user.Role = domain.RoleMember
			if err := repos.Users.Update(ctx, user); err != nil {
				return err
			}
		}

		result = PurchaseResult{Membership: membership, Payment: payment, Plan: plan, Role: user.Role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("membership purchased",
		zap.Int64("user_id", userID),
		zap.Int64("plan_id", result.Plan.ID),
		zap.String("transaction_ref", result.Payment.TransactionRef))
	s.publish(ctx, events.Event{
		Type:      events.EventMembershipPurchased,
		SubjectID: userID,
		Actor:     events.Actor{UserID: userID, Role: result.Role},
		Payload: events.MembershipPurchasedPayload{
			PlanID:         result.Plan.ID,
			PaymentID:      result.Payment.ID,
			Amount:         result.Payment.Amount,
			TransactionRef: result.Payment.TransactionRef,
			EndDate:        result.Membership.EndDate,
		},
	})
	return &result, nil
}

// CurrentMembership returns the caller's active membership.
func (s *MembershipService) CurrentMembership(ctx context.Context, userID int64) (*domain.Membership, error) {
	m, err := s.repos.Memberships.GetActiveByUser(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("active membership")
		}
		return nil, err
	}
	return m, nil
}

// RequestCancellation files a pending refund request for the active membership.
func (s *MembershipService) RequestCancellation(ctx context.Context, userID int64, input CancellationInput) (*domain.CancellationRequest, error) {
	membership, err := s.CurrentMembership(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Cancellations.GetPendingByUser(ctx, userID); err == nil {
		return nil, apperrors.NewConflict("a cancellation request is already pending")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	req := &domain.CancellationRequest{
		UserID:        userID,
		MembershipID:  membership.ID,
		Reason:        input.Reason,
		BankName:      input.BankName,
		AccountNumber: input.AccountNumber,
		AccountHolder: input.AccountHolder,
		Status:        domain.CancellationStatusPending,
	}
	if err := s.repos.Cancellations.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventCancellationRequested,
		SubjectID: userID,
		Actor:     events.Actor{UserID: userID, Role: domain.RoleMember},
		Payload: events.CancellationPayload{
			RequestID:    req.ID,
			MembershipID: membership.ID,
			Status:       req.Status,
		},
	})
	return req, nil
}

// ListCancellations returns requests, optionally filtered by status.
func (s *MembershipService) ListCancellations(ctx context.Context, status *domain.CancellationStatus) ([]domain.CancellationRequest, error) {
	return s.repos.Cancellations.List(ctx, status)
}

// ApproveCancellation cancels the membership, refunds its payment and returns
// the user to guest, all in one transaction.
func (s *MembershipService) ApproveCancellation(ctx context.Context, adminID, requestID int64) (*domain.CancellationRequest, error) {
	var req *domain.CancellationRequest
	err := s.tx.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		req, err = reviewable(ctx, repos, requestID)
		if err != nil {
			return err
		}
		if err := repos.Cancellations.Review(ctx, req.ID, domain.CancellationStatusApproved, adminID); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewConflict("cancellation request already reviewed")
			}
			return err
		}

		membership, err := repos.Memberships.GetByID(ctx, req.MembershipID)
		if err != nil {
			return err
		}
		if err := repos.Memberships.UpdateStatus(ctx, membership.ID, domain.MembershipStatusCancelled); err != nil {
			return err
		}
		if err := repos.Payments.UpdateStatus(ctx, membership.PaymentID, domain.PaymentStatusRefunded); err != nil {
			return err
		}

		user, err := repos.Users.GetByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if user.Role == domain.RoleMember {
			user.Role = domain.RoleGuest
			if err := repos.Users.Update(ctx, user); err != nil {
				return err
			}
		}

		req.Status = domain.CancellationStatusApproved
		req.ReviewedBy = &adminID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("membership cancelled",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", req.UserID),
		zap.Int64("request_id", req.ID))
	s.publish(ctx, events.Event{
		Type:      events.EventMembershipCancelled,
		SubjectID: req.UserID,
		Actor:     events.Actor{UserID: adminID, Role: domain.RoleAdmin},
		Payload: events.CancellationPayload{
			RequestID:    req.ID,
			MembershipID: req.MembershipID,
			Status:       req.Status,
		},
	})
	return req, nil
}

// RejectCancellation closes a pending request without touching the membership.
func (s *MembershipService) RejectCancellation(ctx context.Context, adminID, requestID int64) (*domain.CancellationRequest, error) {
	req, err := reviewable(ctx, s.repos, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Cancellations.Review(ctx, req.ID, domain.CancellationStatusRejected, adminID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewConflict("cancellation request already reviewed")
		}
		return nil, err
	}
	req.Status = domain.CancellationStatusRejected
	req.ReviewedBy = &adminID
	return req, nil
}

func reviewable(ctx context.Context, repos repository.Repositories, requestID int64) (*domain.CancellationRequest, error) {
	req, err := repos.Cancellations.GetByID(ctx, requestID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("cancellation request")
		}
		return nil, err
	}
	if req.Status != domain.CancellationStatusPending {
		return nil, apperrors.NewConflict("cancellation request already reviewed")
	}
	return req, nil
}

func (s *MembershipService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
