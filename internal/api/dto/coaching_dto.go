package dto

import (
	"time"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// CreateAppointmentRequest payload for booking a coach.
type CreateAppointmentRequest struct {
	CoachID     int64     `json:"coachId" validate:"required,gt=0"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Note        string    `json:"note" validate:"omitempty,max=500"`
}

// UpdateAppointmentStatusRequest payload for status transitions.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// SendMessageRequest payload for chat messages.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required,max=2000"`
}

// SurveyRequest payload for the smoking intake survey.
type SurveyRequest struct {
	CigarettesPerDay *int   `json:"cigarettesPerDay" validate:"required,min=0,max=200"`
	PricePerPack     *int64 `json:"pricePerPack" validate:"required,min=0"`
	SmokingYears     *int   `json:"smokingYears" validate:"required,min=0,max=80"`
	QuitAttempts     *int   `json:"quitAttempts" validate:"required,min=0"`
	Motivation       string `json:"motivation" validate:"required,max=1000"`
}

// AppointmentResponse is the participant view of an appointment.
type AppointmentResponse struct {
	ID          int64                    `json:"id"`
	MemberID    int64                    `json:"memberId"`
	CoachID     int64                    `json:"coachId"`
	ScheduledAt time.Time                `json:"scheduledAt"`
	Note        string                   `json:"note,omitempty"`
	Status      domain.AppointmentStatus `json:"status"`
}

// MessageResponse is one chat message.
type MessageResponse struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SurveyResponse echoes stored survey answers.
type SurveyResponse struct {
	CigarettesPerDay int       `json:"cigarettesPerDay"`
	PricePerPack     int64     `json:"pricePerPack"`
	SmokingYears     int       `json:"smokingYears"`
	QuitAttempts     int       `json:"quitAttempts"`
	Motivation       string    `json:"motivation"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewAppointmentResponse maps an appointment.
func NewAppointmentResponse(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		MemberID:    a.MemberID,
		CoachID:     a.CoachID,
		ScheduledAt: a.ScheduledAt,
		Note:        a.Note,
		Status:      a.Status,
	}
}

// NewAppointmentResponses maps a slice of appointments.
func NewAppointmentResponses(appts []domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, NewAppointmentResponse(&appts[i]))
	}
	return out
}

// NewMessageResponse maps a chat message.
func NewMessageResponse(m *domain.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMessageResponses maps a conversation.
func NewMessageResponses(msgs []domain.ChatMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewMessageResponse(&msgs[i]))
	}
	return out
}

// NewSurveyResponse maps a survey.
func NewSurveyResponse(s *domain.SmokingSurvey) SurveyResponse {
	return SurveyResponse{
		CigarettesPerDay: s.CigarettesPerDay,
		PricePerPack:     s.PricePerPack,
		SmokingYears:     s.SmokingYears,
		QuitAttempts:     s.QuitAttempts,
		Motivation:       s.Motivation,
		UpdatedAt:        s.UpdatedAt,
	}
}
