package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// AnchorKind names what a conversation hangs off
type AnchorKind string

const (
	AnchorQuote   AnchorKind = "quote"
	AnchorBooking AnchorKind = "booking"
)

// Anchor identifies the quote or booking a conversation belongs to.
// Quote and booking threads are separate even after conversion.
type Anchor struct {
	Kind AnchorKind
	ID   uuid.UUID
}

// QuoteAnchor returns the anchor for a quote thread
func QuoteAnchor(id uuid.UUID) Anchor {
	return Anchor{Kind: AnchorQuote, ID: id}
}

// BookingAnchor returns the anchor for a booking thread
func BookingAnchor(id uuid.UUID) Anchor {
	return Anchor{Kind: AnchorBooking, ID: id}
}

// Valid reports whether the anchor names a known kind and a non-nil id
func (a Anchor) Valid() bool {
	return (a.Kind == AnchorQuote || a.Kind == AnchorBooking) && a.ID != uuid.Nil
}

// RoomKey is the realtime room name, e.g. "booking:<uuid>"
func (a Anchor) RoomKey() string {
	return string(a.Kind) + ":" + a.ID.String()
}

// MessageType classifies message bodies
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeFile        MessageType = "file"
	MessageTypePaymentCard MessageType = "paymentCard"
)

// Conversation is the thread attached to exactly one anchor
type Conversation struct {
	ID            uuid.UUID      `db:"id"`
	AnchorKind    AnchorKind     `db:"anchor_kind"`
	QuoteID       uuid.NullUUID  `db:"quote_id"`
	BookingID     uuid.NullUUID  `db:"booking_id"`
	LastMessage   sql.NullString `db:"last_message"`
	LastMessageAt sql.NullTime   `db:"last_message_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

// NewConversation builds an unsaved conversation for anchor
func NewConversation(anchor Anchor) *Conversation {
	c := &Conversation{
		ID:         uuid.New(),
		AnchorKind: anchor.Kind,
		CreatedAt:  time.Now().UTC(),
	}
	if anchor.Kind == AnchorQuote {
		c.QuoteID = uuid.NullUUID{UUID: anchor.ID, Valid: true}
	} else {
		c.BookingID = uuid.NullUUID{UUID: anchor.ID, Valid: true}
	}
	return c
}

// Anchor returns the quote or booking this conversation belongs to
func (c *Conversation) Anchor() Anchor {
	if c.AnchorKind == AnchorQuote {
		return QuoteAnchor(c.QuoteID.UUID)
	}
	return BookingAnchor(c.BookingID.UUID)
}

// ConversationWithUnread is a listing row
type ConversationWithUnread struct {
	Conversation
	UnreadCount int `db:"unread_count"`
}

// Message is an immutable chat entry. Only the read flags change after insert.
type Message struct {
	ID             uuid.UUID       `db:"id"`
	ConversationID uuid.UUID       `db:"conversation_id"`
	SenderID       uuid.UUID       `db:"sender_id"`
	Body           string          `db:"message"`
	Type           MessageType     `db:"message_type"`
	Budget         sql.NullFloat64 `db:"budget"`
	StartDate      sql.NullTime    `db:"start_date"`
	EndDate        sql.NullTime    `db:"end_date"`
	Location       sql.NullString  `db:"location"`
	EventType      sql.NullString  `db:"event_type"`
	AttachmentURL  sql.NullString  `db:"attachment_url"`
	IsRead         bool            `db:"is_read"`
	IsAdminRead    bool            `db:"is_admin_read"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Actor is the authenticated caller of a chat operation
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}
