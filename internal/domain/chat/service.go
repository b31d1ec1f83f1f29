package chat

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/domain/user"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/imaging"
	"github.com/veroa/veroa-api/internal/pkg/storage"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
	previewLength       = 100
)

// Service handles chat business logic
type Service struct {
	repo      Repository
	userRepo  user.Repository
	anchors   AnchorResolver
	hub       *Hub // nil disables realtime delivery
	store     storage.Storage
	processor *imaging.Processor
}

// NewService creates chat service
func NewService(repo Repository, userRepo user.Repository, anchors AnchorResolver, hub *Hub, store storage.Storage, processor *imaging.Processor) *Service {
	return &Service{
		repo:      repo,
		userRepo:  userRepo,
		anchors:   anchors,
		hub:       hub,
		store:     store,
		processor: processor,
	}
}

// GetOrCreateConversation returns the anchor's conversation, creating it with
// its default participants on first use. Quote threads start with the client
// and every admin; booking threads add the assigned photographer.
func (s *Service) GetOrCreateConversation(ctx context.Context, anchor Anchor, actor Actor) (*Conversation, error) {
	if !anchor.Valid() {
		return nil, ErrInvalidAnchor
	}

	conv, err := s.repo.GetByAnchor(ctx, anchor)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, s.ensureParticipant(ctx, conv, actor)
	}

	parties, err := s.authorizeAnchor(ctx, anchor, actor)
	if err != nil {
		return nil, err
	}

	participants, err := s.defaultParticipants(ctx, parties)
	if err != nil {
		return nil, err
	}

	conv = NewConversation(anchor)
	if err := s.repo.Create(ctx, conv, participants); err != nil {
		if !apperr.IsUniqueViolation(err) {
			return nil, err
		}
		// Lost the race to another creator; use theirs.
		conv, err = s.repo.GetByAnchor(ctx, anchor)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		return conv, s.ensureParticipant(ctx, conv, actor)
	}

	log.Info().
		Str("conversation_id", conv.ID.String()).
		Str("room", anchor.RoomKey()).
		Int("participants", len(participants)).
		Msg("Conversation created")

	return conv, nil
}

// CanAccess reports whether actor may read or write conv
func (s *Service) CanAccess(ctx context.Context, conv *Conversation, actor Actor) (bool, error) {
	if actor.IsAdmin {
		return true, nil
	}
	return s.repo.IsParticipant(ctx, conv.ID, actor.UserID)
}

// ensureParticipant grants access to participants and admins. A party of the
// anchor missing from the participant set (a photographer assigned after the
// thread started) is added on the way in.
func (s *Service) ensureParticipant(ctx context.Context, conv *Conversation, actor Actor) error {
	ok, err := s.CanAccess(ctx, conv, actor)
	if err != nil || ok {
		return err
	}

	parties, err := s.anchors.Resolve(ctx, conv.Anchor())
	if err != nil {
		return err
	}
	if parties == nil || !parties.Includes(actor.UserID) {
		return ErrForbidden
	}

	if err := s.repo.AddParticipant(ctx, conv.ID, actor.UserID); err != nil {
		return err
	}
	log.Info().
		Str("conversation_id", conv.ID.String()).
		Str("user_id", actor.UserID.String()).
		Msg("Anchor party joined conversation")
	return nil
}

// authorizeAnchor checks that the anchor exists and actor may open its thread
func (s *Service) authorizeAnchor(ctx context.Context, anchor Anchor, actor Actor) (*AnchorParties, error) {
	parties, err := s.anchors.Resolve(ctx, anchor)
	if err != nil {
		return nil, err
	}
	if parties == nil {
		return nil, ErrAnchorNotFound
	}
	if !actor.IsAdmin && !parties.Includes(actor.UserID) {
		return nil, ErrForbidden
	}
	return parties, nil
}

func (s *Service) defaultParticipants(ctx context.Context, parties *AnchorParties) ([]uuid.UUID, error) {
	admins, err := s.userRepo.ListIDsByRole(ctx, user.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	add(parties.ClientID)
	if parties.PhotographerID.Valid {
		add(parties.PhotographerID.UUID)
	}
	for _, id := range admins {
		add(id)
	}
	return ids, nil
}

// conversationFor resolves the conversation for a message operation. With
// create unset, a missing conversation is reported as not found.
func (s *Service) conversationFor(ctx context.Context, anchor Anchor, actor Actor, create bool) (*Conversation, error) {
	if create {
		return s.GetOrCreateConversation(ctx, anchor, actor)
	}
	if !anchor.Valid() {
		return nil, ErrInvalidAnchor
	}

	conv, err := s.repo.GetByAnchor(ctx, anchor)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if err := s.ensureParticipant(ctx, conv, actor); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the actor's conversations with unread counts
func (s *Service) ListConversations(ctx context.Context, actor Actor) ([]*ConversationWithUnread, error) {
	return s.repo.ListByUser(ctx, actor.UserID, actor.IsAdmin)
}

// ListQuotesWithUnread returns open quote threads, most unread first, then by
// latest activity, then newest conversation.
func (s *Service) ListQuotesWithUnread(ctx context.Context, actor Actor) ([]*ConversationWithUnread, error) {
	items, err := s.repo.ListQuoteInbox(ctx, actor.UserID, actor.IsAdmin)
	if err != nil {
		return nil, err
	}
	sortInbox(items)
	return items, nil
}

func sortInbox(items []*ConversationWithUnread) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.UnreadCount != b.UnreadCount {
			return a.UnreadCount > b.UnreadCount
		}
		if !a.LastMessageAt.Time.Equal(b.LastMessageAt.Time) {
			return a.LastMessageAt.Time.After(b.LastMessageAt.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// GetMessages returns one page of history in chronological order. A thread
// that was never started reads as empty.
func (s *Service) GetMessages(ctx context.Context, anchor Anchor, actor Actor, page, limit int) ([]*Message, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	conv, err := s.conversationFor(ctx, anchor, actor, false)
	if errors.Is(err, ErrConversationNotFound) {
		if _, err := s.authorizeAnchor(ctx, anchor, actor); err != nil {
			return nil, 0, err
		}
		return []*Message{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountMessages(ctx, conv.ID)
	if err != nil {
		return nil, 0, err
	}

	msgs, err := s.repo.ListMessages(ctx, conv.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

// SendMessage persists a message and then broadcasts it to the anchor's room,
// sender's own sockets included. The REST path passes create=false and needs
// an existing conversation; the socket path creates it lazily.
func (s *Service) SendMessage(ctx context.Context, anchor Anchor, actor Actor, req *SendMessageRequest, create bool) (*Message, error) {
	msgType := req.Kind()
	if msgType == "" {
		msgType = MessageTypeText
	}
	body := strings.TrimSpace(req.Message)
	if body == "" && req.AttachmentURL == "" && msgType != MessageTypePaymentCard {
		return nil, ErrEmptyMessage
	}

	conv, err := s.conversationFor(ctx, anchor, actor, create)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       actor.UserID,
		Body:           body,
		Type:           msgType,
		CreatedAt:      time.Now().UTC(),
	}
	if req.Budget != nil {
		msg.Budget = sql.NullFloat64{Float64: req.Budget.Float64(), Valid: true}
	}
	if req.StartDate != nil && !req.StartDate.IsZero() {
		msg.StartDate = sql.NullTime{Time: req.StartDate.Time, Valid: true}
	}
	if req.EndDate != nil && !req.EndDate.IsZero() {
		msg.EndDate = sql.NullTime{Time: req.EndDate.Time, Valid: true}
	}
	if req.Location != nil {
		msg.Location = sql.NullString{String: *req.Location, Valid: true}
	}
	if req.EventType != nil {
		msg.EventType = sql.NullString{String: *req.EventType, Valid: true}
	}
	if req.AttachmentURL != "" {
		msg.AttachmentURL = sql.NullString{String: req.AttachmentURL, Valid: true}
	}

	if err := s.repo.CreateMessage(ctx, msg, preview(msg)); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Broadcast(anchor.RoomKey(), &Event{
			Event: EventReceiveMessage,
			Data:  MessageResponseFromEntity(msg),
		})
	}

	return msg, nil
}

// preview is the conversation's last_message text
func preview(m *Message) string {
	text := m.Body
	if text == "" {
		switch m.Type {
		case MessageTypeImage:
			text = "[image]"
		case MessageTypeFile:
			text = "[file]"
		case MessageTypePaymentCard:
			text = "[payment card]"
		}
	}
	runes := []rune(text)
	if len(runes) > previewLength {
		return string(runes[:previewLength-3]) + "..."
	}
	return text
}

// MarkAsRead flags messages from others as read. Admins clear the admin
// flag, everyone else the user flag.
func (s *Service) MarkAsRead(ctx context.Context, anchor Anchor, actor Actor) (int64, error) {
	conv, err := s.conversationFor(ctx, anchor, actor, false)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.MarkRead(ctx, conv.ID, actor.UserID, actor.IsAdmin)
	if err != nil {
		return 0, err
	}

	if s.hub != nil && n > 0 {
		s.hub.Broadcast(anchor.RoomKey(), &Event{
			Event: EventMessagesRead,
			Data: map[string]interface{}{
				"userId": actor.UserID,
				"room":   anchor.RoomKey(),
			},
		})
	}
	return n, nil
}

// UploadAttachment stores the bytes of an image or file message and returns
// the URL the message should carry. Images are downsized and get a preview.
func (s *Service) UploadAttachment(ctx context.Context, actor Actor, reader io.Reader) (*AttachmentResponse, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}

	data, mimeType, ext, err := storage.ValidateFile(reader, storage.MaxAttachmentSize)
	if err != nil {
		return nil, apperr.Wrap(ErrAttachmentRejected, err)
	}

	base := fmt.Sprintf("chat/%s/%s", actor.UserID, uuid.New())
	resp := &AttachmentResponse{MimeType: mimeType, Size: len(data)}

	if storage.IsImage(mimeType) && s.processor != nil && mimeType != "image/gif" {
		result, err := s.processor.Process(data)
		if err != nil {
			return nil, apperr.Wrap(ErrAttachmentRejected, err)
		}
		imgExt := ".jpg"
		if result.ContentType == "image/png" {
			imgExt = ".png"
		}

		key := base + imgExt
		if err := s.store.Put(ctx, key, bytes.NewReader(result.Original), result.ContentType); err != nil {
			return nil, fmt.Errorf("store attachment: %w", err)
		}
		thumbKey := base + "_thumb" + imgExt
		if err := s.store.Put(ctx, thumbKey, bytes.NewReader(result.Thumbnail), result.ContentType); err != nil {
			return nil, fmt.Errorf("store thumbnail: %w", err)
		}

		resp.URL = s.store.GetURL(key)
		resp.ThumbnailURL = s.store.GetURL(thumbKey)
		resp.MimeType = result.ContentType
		resp.Size = len(result.Original)
		resp.Width = result.Width
		resp.Height = result.Height
		return resp, nil
	}

	key := base + ext
	if err := s.store.Put(ctx, key, bytes.NewReader(data), mimeType); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	resp.URL = s.store.GetURL(key)
	return resp, nil
}
