package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/veroa/veroa-api/internal/pkg/database"
)

// Repository defines chat data access interface
type Repository interface {
	// Conversations
	GetByAnchor(ctx context.Context, anchor Anchor) (*Conversation, error)
	Create(ctx context.Context, conv *Conversation, participants []uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error)
	ListQuoteInbox(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error)

	// Participants
	AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)

	// Messages
	CreateMessage(ctx context.Context, msg *Message, preview string) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, error)
	CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, isAdmin bool) (int64, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new chat repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const conversationColumns = `c.id, c.anchor_kind, c.quote_id, c.booking_id, c.last_message, c.last_message_at, c.created_at`

// unreadCount counts messages from others that the reader has not seen.
// $1 is the reader, $2 whether the reader is an admin.
const unreadCount = `
	(SELECT COUNT(*) FROM messages m
	 WHERE m.conversation_id = c.id
	   AND m.sender_id <> $1
	   AND CASE WHEN $2 THEN NOT m.is_admin_read ELSE NOT m.is_read END) AS unread_count`

// GetByAnchor looks the conversation up by its single anchor column
func (r *repository) GetByAnchor(ctx context.Context, anchor Anchor) (*Conversation, error) {
	column := "booking_id"
	if anchor.Kind == AnchorQuote {
		column = "quote_id"
	}

	var conv Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.`+column+` = $1`, anchor.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat repository get by anchor: %w", err)
	}
	return &conv, nil
}

// Create inserts the conversation and its initial participants together.
// A concurrent create for the same anchor fails on the unique index.
func (r *repository) Create(ctx context.Context, conv *Conversation, participants []uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, anchor_kind, quote_id, booking_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, conv.ID, conv.AnchorKind, conv.QuoteID, conv.BookingID, conv.CreatedAt)
		if err != nil {
			return err
		}

		for _, userID := range participants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id)
				VALUES ($1, $2)
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, conv.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error) {
	query := `
		SELECT ` + conversationColumns + `, ` + unreadCount + `
		FROM conversations c
		WHERE $2 OR EXISTS (
			SELECT 1 FROM conversation_participants p
			WHERE p.conversation_id = c.id AND p.user_id = $1
		)
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
	`
	var items []*ConversationWithUnread
	if err := r.db.SelectContext(ctx, &items, query, userID, isAdmin); err != nil {
		return nil, fmt.Errorf("chat repository list: %w", err)
	}
	return items, nil
}

// ListQuoteInbox returns quote threads whose quote is not final yet
func (r *repository) ListQuoteInbox(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error) {
	query := `
		SELECT ` + conversationColumns + `, ` + unreadCount + `
		FROM conversations c
		JOIN quotes q ON q.id = c.quote_id
		WHERE c.anchor_kind = 'quote'
		  AND q.is_quote_final = false
		  AND ($2 OR EXISTS (
			SELECT 1 FROM conversation_participants p
			WHERE p.conversation_id = c.id AND p.user_id = $1
		  ))
		ORDER BY unread_count DESC, c.last_message_at DESC NULLS LAST, c.created_at DESC
	`
	var items []*ConversationWithUnread
	if err := r.db.SelectContext(ctx, &items, query, userID, isAdmin); err != nil {
		return nil, fmt.Errorf("chat repository quote inbox: %w", err)
	}
	return items, nil
}

func (r *repository) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID)
	return err
}

func (r *repository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID)
	return exists, err
}

// CreateMessage stores msg and moves the conversation's last message marker
func (r *repository) CreateMessage(ctx context.Context, msg *Message, preview string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO messages (
				id, conversation_id, sender_id, message, message_type,
				budget, start_date, end_date, location, event_type, attachment_url,
				is_read, is_admin_read, created_at
			) VALUES (
				:id, :conversation_id, :sender_id, :message, :message_type,
				:budget, :start_date, :end_date, :location, :event_type, :attachment_url,
				:is_read, :is_admin_read, :created_at
			)
		`, msg)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET last_message = $2, last_message_at = $3
			WHERE id = $1
		`, msg.ConversationID, preview, msg.CreatedAt)
		return err
	})
}

// ListMessages returns a page newest first
func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, error) {
	var msgs []*Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return msgs, err
}

func (r *repository) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID)
	return n, err
}

// MarkRead flags messages from others as read for the reader's audience
func (r *repository) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, isAdmin bool) (int64, error) {
	query := `UPDATE messages SET is_read = true WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = false`
	if isAdmin {
		query = `UPDATE messages SET is_admin_read = true WHERE conversation_id = $1 AND sender_id <> $2 AND is_admin_read = false`
	}
	result, err := r.db.ExecContext(ctx, query, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
