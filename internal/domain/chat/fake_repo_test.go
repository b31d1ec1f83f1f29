package chat

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/veroa/veroa-api/internal/domain/user"
)

type storedMessage struct {
	seq int
	msg *Message
}

type memRepo struct {
	mu           sync.Mutex
	convs        map[uuid.UUID]*Conversation
	byAnchor     map[string]uuid.UUID
	participants map[uuid.UUID]map[uuid.UUID]bool
	messages     []storedMessage
	quoteFinal   map[uuid.UUID]bool

	// beforeCreate runs inside Create, before the anchor check
	beforeCreate func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		convs:        make(map[uuid.UUID]*Conversation),
		byAnchor:     make(map[string]uuid.UUID),
		participants: make(map[uuid.UUID]map[uuid.UUID]bool),
		quoteFinal:   make(map[uuid.UUID]bool),
	}
}

func (r *memRepo) GetByAnchor(ctx context.Context, anchor Anchor) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byAnchor[anchor.RoomKey()]
	if !ok {
		return nil, nil
	}
	cp := *r.convs[id]
	return &cp, nil
}

func (r *memRepo) Create(ctx context.Context, conv *Conversation, participants []uuid.UUID) error {
	if r.beforeCreate != nil {
		hook := r.beforeCreate
		r.beforeCreate = nil
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := conv.Anchor().RoomKey()
	if _, exists := r.byAnchor[key]; exists {
		return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	cp := *conv
	r.convs[conv.ID] = &cp
	r.byAnchor[key] = conv.ID
	r.participants[conv.ID] = make(map[uuid.UUID]bool)
	for _, id := range participants {
		r.participants[conv.ID][id] = true
	}
	return nil
}

func (r *memRepo) unread(convID, reader uuid.UUID, isAdmin bool) int {
	n := 0
	for _, sm := range r.messages {
		m := sm.msg
		if m.ConversationID != convID || m.SenderID == reader {
			continue
		}
		if (isAdmin && !m.IsAdminRead) || (!isAdmin && !m.IsRead) {
			n++
		}
	}
	return n
}

func (r *memRepo) list(userID uuid.UUID, isAdmin bool, keep func(*Conversation) bool) []*ConversationWithUnread {
	var out []*ConversationWithUnread
	for id, c := range r.convs {
		if !isAdmin && !r.participants[id][userID] {
			continue
		}
		if !keep(c) {
			continue
		}
		out = append(out, &ConversationWithUnread{Conversation: *c, UnreadCount: r.unread(id, userID, isAdmin)})
	}
	return out
}

func (r *memRepo) ListByUser(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(userID, isAdmin, func(*Conversation) bool { return true }), nil
}

// ListQuoteInbox returns rows in map order; the service does the sorting.
func (r *memRepo) ListQuoteInbox(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*ConversationWithUnread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(userID, isAdmin, func(c *Conversation) bool {
		return c.AnchorKind == AnchorQuote && !r.quoteFinal[c.QuoteID.UUID]
	}), nil
}

func (r *memRepo) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[conversationID][userID] = true
	return nil
}

func (r *memRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participants[conversationID][userID], nil
}

func (r *memRepo) CreateMessage(ctx context.Context, msg *Message, preview string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages = append(r.messages, storedMessage{seq: len(r.messages), msg: &cp})
	c := r.convs[msg.ConversationID]
	c.LastMessage = sql.NullString{String: preview, Valid: true}
	c.LastMessageAt = sql.NullTime{Time: msg.CreatedAt, Valid: true}
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []storedMessage
	for _, sm := range r.messages {
		if sm.msg.ConversationID == conversationID {
			rows = append(rows, sm)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	var out []*Message
	for i := offset; i < len(rows) && len(out) < limit; i++ {
		cp := *rows[i].msg
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sm := range r.messages {
		if sm.msg.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, isAdmin bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, sm := range r.messages {
		m := sm.msg
		if m.ConversationID != conversationID || m.SenderID == userID {
			continue
		}
		if isAdmin && !m.IsAdminRead {
			m.IsAdminRead = true
			n++
		}
		if !isAdmin && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

// fakeResolver serves anchor parties from a map. A non-nil block channel
// makes Resolve wait for it or for ctx to end.
type fakeResolver struct {
	mu      sync.Mutex
	parties map[Anchor]*AnchorParties
	block   chan struct{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{parties: make(map[Anchor]*AnchorParties)}
}

func (f *fakeResolver) set(anchor Anchor, p *AnchorParties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parties[anchor] = p
}

func (f *fakeResolver) Resolve(ctx context.Context, anchor Anchor) (*AnchorParties, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parties[anchor]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type memUserRepo struct {
	admins []uuid.UUID
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	for _, a := range r.admins {
		if a == id {
			return &user.User{ID: id, Role: user.RoleAdmin}, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ListIDsByRole(ctx context.Context, role user.Role) ([]uuid.UUID, error) {
	if role == user.RoleAdmin {
		return r.admins, nil
	}
	return nil, nil
}

// fixture wires a service over in-memory collaborators
type fixture struct {
	repo     *memRepo
	resolver *fakeResolver
	hub      *Hub
	svc      *Service

	admin        uuid.UUID
	client       uuid.UUID
	photographer uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:         newMemRepo(),
		resolver:     newFakeResolver(),
		hub:          NewHub(nil),
		admin:        uuid.New(),
		client:       uuid.New(),
		photographer: uuid.New(),
	}
	f.svc = NewService(f.repo, &memUserRepo{admins: []uuid.UUID{f.admin}}, f.resolver, f.hub, nil, nil)
	return f
}

func (f *fixture) addQuote() Anchor {
	a := QuoteAnchor(uuid.New())
	f.resolver.set(a, &AnchorParties{ClientID: f.client})
	return a
}

func (f *fixture) addBooking(photographer uuid.NullUUID) Anchor {
	a := BookingAnchor(uuid.New())
	f.resolver.set(a, &AnchorParties{ClientID: f.client, PhotographerID: photographer})
	return a
}

// attach registers a socket-less client with the hub and joins it to room
func (f *fixture) attach(userID uuid.UUID, room string) *Client {
	c := NewClient(userID, false, nil)
	f.hub.mu.Lock()
	f.hub.clients[c] = true
	f.hub.mu.Unlock()
	f.hub.Join(c, room)
	return c
}
