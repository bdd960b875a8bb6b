package domain

import "time"

// AppointmentStatus tracks a coaching session booking.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a session booked by a member with a coach.
type Appointment struct {
	ID          int64
	MemberID    int64
	CoachID     int64
	ScheduledAt time.Time
	Note        string
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
