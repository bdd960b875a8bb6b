package events

import (
	"time"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMembershipPurchased      EventType = "membership_purchased"
	EventCancellationRequested    EventType = "cancellation_requested"
	EventMembershipCancelled      EventType = "membership_cancelled"
	EventAppointmentStatusChanged EventType = "appointment_status_changed"
	EventMessageSent              EventType = "message_sent"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MembershipPurchasedPayload payload.
type MembershipPurchasedPayload struct {
	PlanID         int64     `json:"plan_id"`
	PaymentID      int64     `json:"payment_id"`
	Amount         int64     `json:"amount"`
	TransactionRef string    `json:"transaction_ref"`
	EndDate        time.Time `json:"end_date"`
}

// CancellationPayload payload.
type CancellationPayload struct {
	RequestID    int64                     `json:"request_id"`
	MembershipID int64                     `json:"membership_id"`
	Status       domain.CancellationStatus `json:"status"`
}

// AppointmentStatusChangedPayload payload.
type AppointmentStatusChangedPayload struct {
	MemberID  int64                    `json:"member_id"`
	CoachID   int64                    `json:"coach_id"`
	OldStatus domain.AppointmentStatus `json:"old_status"`
	NewStatus domain.AppointmentStatus `json:"new_status"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	MessageID   int64  `json:"message_id"`
	ReceiverID  int64  `json:"receiver_id"`
	BodyPreview string `json:"body_preview"`
}
