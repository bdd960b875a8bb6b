package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/repository"
	"github.com/smokeking/smokeking-api/internal/repository/repotest"
)

type membershipFixture struct {
	store      *repotest.Store
	dispatcher *recordingDispatcher
	svc        *MembershipService
	plan       domain.MembershipPlan
	guest      domain.User
	admin      domain.User
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()
	store := repotest.NewStore(testNow)
	dispatcher := &recordingDispatcher{}
	f := &membershipFixture{
		store:      store,
		dispatcher: dispatcher,
		svc: NewMembershipService(MembershipDependencies{
			Repos:      store.Repos(),
			Transactor: store,
			Dispatcher: dispatcher,
			Clock:      func() time.Time { return testNow },
		}),
	}
	f.plan = store.AddPlan(domain.MembershipPlan{Name: "Basic", Price: 199000, DurationDays: 30, IsActive: true})
	f.guest = store.AddUser(domain.User{Email: "g@example.com", Role: domain.RoleGuest, IsActive: true})
	f.admin = store.AddUser(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true})
	return f
}

func (f *membershipFixture) purchase(t *testing.T) *PurchaseResult {
	t.Helper()
	res, err := f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: f.plan.ID, PaymentMethod: "card"})
	require.NoError(t, err)
	return res
}

func TestPurchasePromotesGuest(t *testing.T) {
	f := newMembershipFixture(t)

	res := f.purchase(t)

	assert.Equal(t, domain.RoleMember, res.Role)
	assert.Equal(t, domain.RoleMember, f.store.User(f.guest.ID).Role)
	assert.Equal(t, domain.PaymentStatusConfirmed, res.Payment.Status)
	assert.Equal(t, f.plan.Price, res.Payment.Amount)
	assert.NotEmpty(t, res.Payment.TransactionRef)
	assert.Equal(t, testNow.AddDate(0, 0, 30), res.Membership.EndDate)
	assert.Equal(t, []events.EventType{events.EventMembershipPurchased}, f.dispatcher.types())

	current, err := f.svc.CurrentMembership(context.Background(), f.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Membership.ID, current.ID)
}

func TestPurchaseRejectsSecondActiveMembership(t *testing.T) {
	f := newMembershipFixture(t)
	f.purchase(t)

	_, err := f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: f.plan.ID, PaymentMethod: "card"})
	requireStatus(t, err, http.StatusConflict)
	assert.Len(t, f.store.Payments(), 1)
}

func TestPurchaseUnknownOrInactivePlan(t *testing.T) {
	f := newMembershipFixture(t)
	retired := f.store.AddPlan(domain.MembershipPlan{Name: "Old", Price: 1, DurationDays: 1})

	_, err := f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: 404, PaymentMethod: "card"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: retired.ID, PaymentMethod: "card"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestPurchaseRollsBackOnFailure(t *testing.T) {
	t.Run("membership insert", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.store.FailMembershipCreate = true

		_, err := f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: f.plan.ID, PaymentMethod: "card"})
		requireStatus(t, err, http.StatusInternalServerError)

		assert.Empty(t, f.store.Payments())
		assert.Equal(t, domain.RoleGuest, f.store.User(f.guest.ID).Role)
		assert.Equal(t, 1, f.store.Rollbacks)
		assert.Empty(t, f.dispatcher.types())
	})

	t.Run("role promotion", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.store.FailUserUpdate = true

		_, err := f.svc.Purchase(context.Background(), f.guest.ID, PurchaseInput{PlanID: f.plan.ID, PaymentMethod: "card"})
		require.Error(t, err)

		assert.Empty(t, f.store.Payments())
		assert.Empty(t, f.store.Memberships())
		assert.Equal(t, domain.RoleGuest, f.store.User(f.guest.ID).Role)
	})
}

func TestCancellationApproveDemotesAndRefunds(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()
	res := f.purchase(t)

	req, err := f.svc.RequestCancellation(ctx, f.guest.ID, CancellationInput{
		Reason:        "moving away",
		BankName:      "Bank",
		AccountNumber: "123",
		AccountHolder: "G",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationStatusPending, req.Status)

	_, err = f.svc.RequestCancellation(ctx, f.guest.ID, CancellationInput{Reason: "again"})
	requireStatus(t, err, http.StatusConflict)

	approved, err := f.svc.ApproveCancellation(ctx, f.admin.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, f.admin.ID, *approved.ReviewedBy)

	assert.Equal(t, domain.RoleGuest, f.store.User(f.guest.ID).Role)
	assert.Equal(t, domain.MembershipStatusCancelled, f.store.Memberships()[res.Membership.ID].Status)
	assert.Equal(t, domain.PaymentStatusRefunded, f.store.Payments()[res.Payment.ID].Status)

	_, err = f.svc.CurrentMembership(ctx, f.guest.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.svc.ApproveCancellation(ctx, f.admin.ID, req.ID)
	requireStatus(t, err, http.StatusConflict)

	assert.Equal(t, []events.EventType{
		events.EventMembershipPurchased,
		events.EventCancellationRequested,
		events.EventMembershipCancelled,
	}, f.dispatcher.types())
}

func TestCancellationRejectKeepsMembership(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()
	res := f.purchase(t)

	req, err := f.svc.RequestCancellation(ctx, f.guest.ID, CancellationInput{Reason: "price"})
	require.NoError(t, err)

	rejected, err := f.svc.RejectCancellation(ctx, f.admin.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CancellationStatusRejected, rejected.Status)

	assert.Equal(t, domain.RoleMember, f.store.User(f.guest.ID).Role)
	assert.Equal(t, domain.MembershipStatusActive, f.store.Memberships()[res.Membership.ID].Status)

	_, err = f.svc.RejectCancellation(ctx, f.admin.ID, req.ID)
	requireStatus(t, err, http.StatusConflict)

	_, err = f.svc.ApproveCancellation(ctx, f.admin.ID, 9999)
	requireStatus(t, err, http.StatusNotFound)

	pending := domain.CancellationStatusPending
	list, err := f.svc.ListCancellations(ctx, &pending)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApproveAfterConcurrentRejectConflicts(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()
	res := f.purchase(t)

	req, err := f.svc.RequestCancellation(ctx, f.guest.ID, CancellationInput{Reason: "price"})
	require.NoError(t, err)
	seen := *req

	_, err = f.svc.RejectCancellation(ctx, f.admin.ID, req.ID)
	require.NoError(t, err)

	tx := wrappingTx{tx: f.store, wrap: func(r repository.Repositories) repository.Repositories {
		r.Cancellations = staleCancellations{CancellationRepository: r.Cancellations, seen: seen}
		return r
	}}
	lagging := NewMembershipService(MembershipDependencies{
		Repos:      f.store.Repos(),
		Transactor: tx,
		Clock:      func() time.Time { return testNow },
	})
	_, err = lagging.ApproveCancellation(ctx, f.admin.ID, req.ID)
	requireStatus(t, err, http.StatusConflict)

	assert.Equal(t, domain.RoleMember, f.store.User(f.guest.ID).Role)
	assert.Equal(t, domain.MembershipStatusActive, f.store.Memberships()[res.Membership.ID].Status)
	assert.Equal(t, domain.PaymentStatusConfirmed, f.store.Payments()[res.Payment.ID].Status)
}

func TestConcurrentPurchaseHitsActiveMembershipIndex(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()
	f.purchase(t)

	tx := wrappingTx{tx: f.store, wrap: func(r repository.Repositories) repository.Repositories {
		r.Memberships = blindMemberships{MembershipRepository: r.Memberships}
		return r
	}}
	racing := NewMembershipService(MembershipDependencies{
		Repos:      f.store.Repos(),
		Transactor: tx,
		Clock:      func() time.Time { return testNow },
	})
	_, err := racing.Purchase(ctx, f.guest.ID, PurchaseInput{PlanID: f.plan.ID, PaymentMethod: "card"})
	requireStatus(t, err, http.StatusConflict)

	assert.Len(t, f.store.Payments(), 1)
	assert.Len(t, f.store.Memberships(), 1)
	assert.Equal(t, 1, f.store.Rollbacks)
}

func TestRequestCancellationWithoutMembership(t *testing.T) {
	f := newMembershipFixture(t)

	_, err := f.svc.RequestCancellation(context.Background(), f.guest.ID, CancellationInput{Reason: "x"})
	requireStatus(t, err, http.StatusNotFound)
}
