package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smokeking/smokeking-api/internal/domain"
	"github.com/smokeking/smokeking-api/internal/events"
	"github.com/smokeking/smokeking-api/internal/repository"
	apperrors "github.com/smokeking/smokeking-api/pkg/util/errorutil"
)

const previewLength = 80

// BookingInput describes a new appointment.
type BookingInput struct {
	CoachID     int64
	ScheduledAt time.Time
	Note        string
}

// CoachingService handles appointments and member/coach chat.
type CoachingService struct {
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	messages     repository.MessageRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// CoachingDependencies bundles collaborators for the coaching service.
type CoachingDependencies struct {
	UserRepo        repository.UserRepository
	AppointmentRepo repository.AppointmentRepository
	MessageRepo     repository.MessageRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Clock           func() time.Time
}

// NewCoachingService constructs the service.
func NewCoachingService(deps CoachingDependencies) *CoachingService {
	s := &CoachingService{
		users:        deps.UserRepo,
		appointments: deps.AppointmentRepo,
		messages:     deps.MessageRepo,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		now:          deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListCoaches returns active coaches.
func (s *CoachingService) ListCoaches(ctx context.Context) ([]domain.User, error) {
	role := domain.RoleCoach
	return s.users.List(ctx, repository.UserFilter{Role: &role, ActiveOnly: true})
}

// Book creates a pending appointment between member and an active coach.
func (s *CoachingService) Book(ctx context.Context, memberID int64, input BookingInput) (*domain.Appointment, error) {
	if _, err := s.activeUserWithRole(ctx, input.CoachID, domain.RoleCoach); err != nil {
		return nil, err
	}
	if !input.ScheduledAt.After(s.now()) {
		return nil, apperrors.NewValidationError("appointment must be scheduled in the future", map[string]any{"scheduledAt": "future"})
	}

	appt := &domain.Appointment{
		MemberID:    memberID,
		CoachID:     input.CoachID,
		ScheduledAt: input.ScheduledAt.UTC(),
		Note:        strings.TrimSpace(input.Note),
		Status:      domain.AppointmentStatusPending,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListAppointments returns the caller's appointments from their side.
func (s *CoachingService) ListAppointments(ctx context.Context, caller *domain.User) ([]domain.Appointment, error) {
	if caller.Role == domain.RoleCoach {
		return s.appointments.ListByCoach(ctx, caller.ID)
	}
	return s.appointments.ListByMember(ctx, caller.ID)
}

// appointmentTransitions lists, per target status, the allowed source
// statuses and whether a member may perform the move.
var appointmentTransitions = map[domain.AppointmentStatus]struct {
	from        []domain.AppointmentStatus
	memberAllow bool
}{
	domain.AppointmentStatusConfirmed: {from: []domain.AppointmentStatus{domain.AppointmentStatusPending}},
	domain.AppointmentStatusCompleted: {from: []domain.AppointmentStatus{domain.AppointmentStatusConfirmed}},
	domain.AppointmentStatusCancelled: {
		from:        []domain.AppointmentStatus{domain.AppointmentStatusPending, domain.AppointmentStatusConfirmed},
		memberAllow: true,
	},
}

// UpdateStatus moves an appointment along pending -> confirmed -> completed,
// or cancels it. Only the two participants may act on it.
func (s *CoachingService) UpdateStatus(ctx context.Context, caller *domain.User, appointmentID int64, next domain.AppointmentStatus) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("appointment")
		}
		return nil, err
	}

	isCoach := caller.Role == domain.RoleCoach && appt.CoachID == caller.ID
	isMember := caller.Role == domain.RoleMember && appt.MemberID == caller.ID
	if !isCoach && !isMember {
		return nil, apperrors.NewForbidden("not a participant of this appointment")
	}

	rule, ok := appointmentTransitions[next]
	if !ok || !containsStatus(rule.from, appt.Status) {
		return nil, apperrors.NewValidationError(
			"cannot move appointment from "+string(appt.Status)+" to "+string(next),
			map[string]any{"status": string(next)})
	}
	if isMember && !rule.memberAllow {
		return nil, apperrors.NewForbidden("only the coach can set this status")
	}

	previous := appt.Status
	if err := s.appointments.UpdateStatus(ctx, appt.ID, previous, next); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewConflict("appointment status changed, reload and retry")
		}
		return nil, err
	}
	appt.Status = next

	s.publish(ctx, events.Event{
		Type:      events.EventAppointmentStatusChanged,
		SubjectID: appt.ID,
		Actor:     events.Actor{UserID: caller.ID, Role: caller.Role},
		Payload: events.AppointmentStatusChangedPayload{
			MemberID:  appt.MemberID,
			CoachID:   appt.CoachID,
			OldStatus: previous,
			NewStatus: next,
		},
	})
	return appt, nil
}

func containsStatus(list []domain.AppointmentStatus, status domain.AppointmentStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

// ListMembers returns the members who have booked coachID.
func (s *CoachingService) ListMembers(ctx context.Context, coachID int64) ([]domain.User, error) {
	return s.appointments.ListMembersOfCoach(ctx, coachID)
}

// SendMessage stores a chat message. Members write to coaches and coaches to members.
func (s *CoachingService) SendMessage(ctx context.Context, sender *domain.User, receiverID int64, content string) (*domain.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"content": "required"})
	}
	if receiverID == sender.ID {
		return nil, apperrors.NewValidationError("cannot message yourself", map[string]any{"receiverId": "self"})
	}

	want := domain.RoleCoach
	if sender.Role == domain.RoleCoach {
		want = domain.RoleMember
	}
	if _, err := s.activeUserWithRole(ctx, receiverID, want); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{SenderID: sender.ID, ReceiverID: receiverID, Content: content}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	preview := content
	if r := []rune(preview); len(r) > previewLength {
		preview = string(r[:previewLength])
	}
	s.publish(ctx, events.Event{
		Type:      events.EventMessageSent,
		SubjectID: msg.ID,
		Actor:     events.Actor{UserID: sender.ID, Role: sender.Role},
		Payload: events.MessageSentPayload{
			MessageID:   msg.ID,
			ReceiverID:  receiverID,
			BodyPreview: preview,
		},
	})
	return msg, nil
}

// Conversation returns the thread between caller and partner and marks the
// partner's messages as read.
func (s *CoachingService) Conversation(ctx context.Context, callerID, partnerID int64) ([]domain.ChatMessage, error) {
	msgs, err := s.messages.ListConversation(ctx, callerID, partnerID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkRead(ctx, partnerID, callerID); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *CoachingService) activeUserWithRole(ctx context.Context, id int64, role domain.Role) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound(string(role))
		}
		return nil, err
	}
	if !user.IsActive || user.Role != role {
		return nil, apperrors.NewNotFound(string(role))
	}
	return user, nil
}

func (s *CoachingService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
