package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/pkg/jsontypes"
)

// AnchorRequest names a thread by quote or booking. Exactly one must be set.
type AnchorRequest struct {
	QuoteID   *uuid.UUID `json:"quoteId,omitempty"`
	BookingID *uuid.UUID `json:"bookingId,omitempty"`
}

// Anchor converts the request into an Anchor
func (r AnchorRequest) Anchor() (Anchor, error) {
	switch {
	case r.QuoteID != nil && r.BookingID == nil:
		return QuoteAnchor(*r.QuoteID), nil
	case r.BookingID != nil && r.QuoteID == nil:
		return BookingAnchor(*r.BookingID), nil
	}
	return Anchor{}, ErrInvalidAnchor
}

// SendMessageRequest is shared by POST /messages and the send_message event.
// The optional proposal fields carry quote updates on paymentCard messages.
type SendMessageRequest struct {
	AnchorRequest
	Message       string           `json:"message" validate:"max=5000"`
	Type          string           `json:"type" validate:"message_type"`
	MessageType   string           `json:"messageType,omitempty" validate:"message_type"`
	Budget        *jsontypes.Money `json:"budget,omitempty" validate:"omitempty,gt=0,lte=9999999999.99"`
	StartDate     *jsontypes.Date  `json:"startDate,omitempty"`
	EndDate       *jsontypes.Date  `json:"endDate,omitempty"`
	Location      *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	EventType     *string          `json:"eventType,omitempty" validate:"omitempty,max=100"`
	AttachmentURL string           `json:"attachmentUrl,omitempty" validate:"omitempty,url,max=1024"`
}

// Kind returns the message type. REST clients send messageType, socket
// clients send type; messageType wins when both are present.
func (r *SendMessageRequest) Kind() MessageType {
	if r.MessageType != "" {
		return MessageType(r.MessageType)
	}
	return MessageType(r.Type)
}

// ConversationResponse represents a conversation in API
type ConversationResponse struct {
	ID            uuid.UUID  `json:"id"`
	AnchorKind    string     `json:"anchorKind"`
	QuoteID       *uuid.UUID `json:"quoteId,omitempty"`
	BookingID     *uuid.UUID `json:"bookingId,omitempty"`
	Room          string     `json:"room"`
	LastMessage   string     `json:"lastMessage,omitempty"`
	LastMessageAt *string    `json:"lastMessageAt,omitempty"`
	UnreadCount   int        `json:"unreadCount"`
	CreatedAt     string     `json:"createdAt"`
}

// ConversationResponseFromEntity converts entity to response
func ConversationResponseFromEntity(c *Conversation, unread int) *ConversationResponse {
	resp := &ConversationResponse{
		ID:          c.ID,
		AnchorKind:  string(c.AnchorKind),
		Room:        c.Anchor().RoomKey(),
		LastMessage: c.LastMessage.String,
		UnreadCount: unread,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.QuoteID.Valid {
		resp.QuoteID = &c.QuoteID.UUID
	}
	if c.BookingID.Valid {
		resp.BookingID = &c.BookingID.UUID
	}
	if c.LastMessageAt.Valid {
		s := c.LastMessageAt.Time.Format(time.RFC3339)
		resp.LastMessageAt = &s
	}
	return resp
}

// MessageResponse represents a message in API and in receive_message events
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Message        string    `json:"message"`
	Type           string    `json:"type"`
	Budget         *float64  `json:"budget,omitempty"`
	StartDate      *string   `json:"startDate,omitempty"`
	EndDate        *string   `json:"endDate,omitempty"`
	Location       *string   `json:"location,omitempty"`
	EventType      *string   `json:"eventType,omitempty"`
	AttachmentURL  *string   `json:"attachmentUrl,omitempty"`
	IsRead         bool      `json:"isRead"`
	IsAdminRead    bool      `json:"isAdminRead"`
	CreatedAt      string    `json:"createdAt"`
}

// MessageResponseFromEntity converts entity to response
func MessageResponseFromEntity(m *Message) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Message:        m.Body,
		Type:           string(m.Type),
		IsRead:         m.IsRead,
		IsAdminRead:    m.IsAdminRead,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.Budget.Valid {
		resp.Budget = &m.Budget.Float64
	}
	if m.StartDate.Valid {
		s := m.StartDate.Time.Format(time.RFC3339)
		resp.StartDate = &s
	}
	if m.EndDate.Valid {
		s := m.EndDate.Time.Format(time.RFC3339)
		resp.EndDate = &s
	}
	if m.Location.Valid {
		resp.Location = &m.Location.String
	}
	if m.EventType.Valid {
		resp.EventType = &m.EventType.String
	}
	if m.AttachmentURL.Valid {
		resp.AttachmentURL = &m.AttachmentURL.String
	}
	return resp
}

// QuoteInboxResponse represents a quote thread with its unread count
type QuoteInboxResponse struct {
	QuoteID        uuid.UUID `json:"quoteId"`
	ConversationID uuid.UUID `json:"conversationId"`
	UnreadCount    int       `json:"unreadCount"`
	LastMessage    string    `json:"lastMessage,omitempty"`
	LastMessageAt  *string   `json:"lastMessageAt,omitempty"`
	CreatedAt      string    `json:"createdAt"`
}

// QuoteInboxResponseFromEntity converts an inbox row to response
func QuoteInboxResponseFromEntity(item *ConversationWithUnread) *QuoteInboxResponse {
	resp := &QuoteInboxResponse{
		QuoteID:        item.QuoteID.UUID,
		ConversationID: item.ID,
		UnreadCount:    item.UnreadCount,
		LastMessage:    item.LastMessage.String,
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
	}
	if item.LastMessageAt.Valid {
		s := item.LastMessageAt.Time.Format(time.RFC3339)
		resp.LastMessageAt = &s
	}
	return resp
}

// AttachmentResponse is returned by POST /messages/attachments
type AttachmentResponse struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MimeType     string `json:"mimeType"`
	Size         int    `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}
