package repository

import (
	"context"

	"github.com/smokeking/smokeking-api/internal/domain"
)

// MessageRepository manages member/coach chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	ListConversation(ctx context.Context, userID, partnerID int64) ([]domain.ChatMessage, error)
	MarkRead(ctx context.Context, senderID, receiverID int64) error
}

type messageRepository struct {
	db DBTX
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO messages (sender_id, receiver_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, is_read, created_at`
	return r.db.QueryRow(ctx, query,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
	).Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt)
}

func (r *messageRepository) ListConversation(ctx context.Context, userID, partnerID int64) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, sender_id, receiver_id, content, is_read, created_at
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, userID, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, senderID, receiverID int64) error {
	const query = `
        UPDATE messages SET is_read=TRUE
        WHERE sender_id=$1 AND receiver_id=$2 AND is_read=FALSE`
	_, err := r.db.Exec(ctx, query, senderID, receiverID)
	return err
}
