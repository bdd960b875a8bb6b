package domain

import "time"

// ChatMessage is a direct message between a member and a coach.
type ChatMessage struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}
