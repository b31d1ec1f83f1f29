package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/pkg/imaging"
	"github.com/veroa/veroa-api/internal/pkg/storage"
)

func text(body string) *SendMessageRequest {
	return &SendMessageRequest{Message: body, Type: "text"}
}

func TestConversationAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addQuote()

	conv, err := f.svc.GetOrCreateConversation(ctx, anchor, Actor{UserID: f.client})
	if err != nil {
		t.Fatalf("client create: %v", err)
	}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"client participant", Actor{UserID: f.client}, true},
		{"admin participant", Actor{UserID: f.admin, IsAdmin: true}, true},
		{"admin outside participants", Actor{UserID: uuid.New(), IsAdmin: true}, true},
		{"stranger", Actor{UserID: uuid.New()}, false},
		{"photographer not on quote", Actor{UserID: f.photographer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CanAccess(ctx, conv, tt.actor)
			if err != nil {
				t.Fatalf("can access: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := f.svc.GetOrCreateConversation(ctx, anchor, Actor{UserID: uuid.New()}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger join: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.GetOrCreateConversation(ctx, QuoteAnchor(uuid.New()), Actor{UserID: f.client}); !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("unknown quote: expected ErrAnchorNotFound, got %v", err)
	}
}

func TestDefaultParticipantsPerAnchorKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	quoteConv, err := f.svc.GetOrCreateConversation(ctx, f.addQuote(), Actor{UserID: f.client})
	if err != nil {
		t.Fatalf("quote conversation: %v", err)
	}
	if got := len(f.repo.participants[quoteConv.ID]); got != 2 {
		t.Fatalf("quote thread: expected client and admin, got %d participants", got)
	}

	bookingAnchor := f.addBooking(uuid.NullUUID{UUID: f.photographer, Valid: true})
	bookingConv, err := f.svc.GetOrCreateConversation(ctx, bookingAnchor, Actor{UserID: f.admin, IsAdmin: true})
	if err != nil {
		t.Fatalf("booking conversation: %v", err)
	}
	p := f.repo.participants[bookingConv.ID]
	if !p[f.client] || !p[f.photographer] || !p[f.admin] {
		t.Fatalf("booking thread missing a default participant: %v", p)
	}
}

func TestLateAssignedPhotographerJoinsOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addBooking(uuid.NullUUID{})

	conv, err := f.svc.GetOrCreateConversation(ctx, anchor, Actor{UserID: f.client})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := f.svc.GetMessages(ctx, anchor, Actor{UserID: f.photographer}, 1, 50); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unassigned photographer: expected ErrForbidden, got %v", err)
	}

	f.resolver.set(anchor, &AnchorParties{ClientID: f.client, PhotographerID: uuid.NullUUID{UUID: f.photographer, Valid: true}})

	if _, _, err := f.svc.GetMessages(ctx, anchor, Actor{UserID: f.photographer}, 1, 50); err != nil {
		t.Fatalf("assigned photographer: %v", err)
	}
	if !f.repo.participants[conv.ID][f.photographer] {
		t.Fatal("expected photographer to be added to participants")
	}
}

func TestConcurrentCreateUsesExistingConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addQuote()

	var winner *Conversation
	f.repo.beforeCreate = func() {
		winner = NewConversation(anchor)
		f.repo.Create(ctx, winner, []uuid.UUID{f.client, f.admin})
	}

	conv, err := f.svc.GetOrCreateConversation(ctx, anchor, Actor{UserID: f.client})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.ID != winner.ID {
		t.Fatalf("expected the concurrently created conversation %s, got %s", winner.ID, conv.ID)
	}
	if len(f.repo.convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(f.repo.convs))
	}
}

func TestQuotesWithUnreadOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client := Actor{UserID: f.client}
	admin := Actor{UserID: f.admin, IsAdmin: true}

	counts := []int{0, 3, 1}
	anchors := make([]Anchor, len(counts))
	for i, n := range counts {
		anchors[i] = f.addQuote()
		if _, err := f.svc.GetOrCreateConversation(ctx, anchors[i], client); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		for j := 0; j < n; j++ {
			if _, err := f.svc.SendMessage(ctx, anchors[i], client, text("hello"), false); err != nil {
				t.Fatalf("send: %v", err)
			}
		}
	}
	// The admin's own reply never counts as unread for the admin.
	if _, err := f.svc.SendMessage(ctx, anchors[0], admin, text("reply"), false); err != nil {
		t.Fatalf("admin send: %v", err)
	}

	items, err := f.svc.ListQuotesWithUnread(ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []int
	for _, item := range items {
		got = append(got, item.UnreadCount)
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("expected unread counts [3 1 0], got %v", got)
	}

	// The client sees the admin's reply as unread.
	items, _ = f.svc.ListQuotesWithUnread(ctx, client)
	if items[0].UnreadCount != 1 || items[0].QuoteID.UUID != anchors[0].ID {
		t.Fatalf("client inbox: expected the replied quote first with 1 unread, got %+v", items[0])
	}

	// Final quotes drop out of the inbox.
	f.repo.quoteFinal[anchors[1].ID] = true
	items, _ = f.svc.ListQuotesWithUnread(ctx, admin)
	if len(items) != 2 {
		t.Fatalf("expected final quote excluded, got %d items", len(items))
	}
}

func TestSortInboxTieBreaks(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := func(unread int, last, created time.Time) *ConversationWithUnread {
		c := ConversationWithUnread{UnreadCount: unread}
		c.ID = uuid.New()
		c.CreatedAt = created
		if !last.IsZero() {
			c.LastMessageAt.Time, c.LastMessageAt.Valid = last, true
		}
		return &c
	}

	older := row(2, base, base)
	newer := row(2, base.Add(time.Minute), base)
	quietOld := row(0, time.Time{}, base)
	quietNew := row(0, time.Time{}, base.Add(time.Hour))

	items := []*ConversationWithUnread{quietOld, older, quietNew, newer}
	sortInbox(items)

	want := []*ConversationWithUnread{newer, older, quietNew, quietOld}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("position %d: unexpected order", i)
		}
	}
}

func TestGetMessagesChronological(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client := Actor{UserID: f.client}
	anchor := f.addBooking(uuid.NullUUID{})

	if _, err := f.svc.GetOrCreateConversation(ctx, anchor, client); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := f.svc.SendMessage(ctx, anchor, client, text(string(rune('0'+i))), false); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	msgs, total, err := f.svc.GetMessages(ctx, anchor, client, 1, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	var bodies []string
	for _, m := range msgs {
		bodies = append(bodies, m.Body)
	}
	if strings.Join(bodies, ",") != "3,4,5" {
		t.Fatalf("expected latest page in chronological order 3,4,5, got %v", bodies)
	}

	msgs, _, _ = f.svc.GetMessages(ctx, anchor, client, 2, 3)
	if len(msgs) != 2 || msgs[0].Body != "1" || msgs[1].Body != "2" {
		t.Fatalf("expected older page 1,2, got %d messages", len(msgs))
	}
}

func TestGetMessagesBeforeConversationExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addQuote()

	msgs, total, err := f.svc.GetMessages(ctx, anchor, Actor{UserID: f.client}, 1, 50)
	if err != nil || total != 0 || len(msgs) != 0 {
		t.Fatalf("expected empty history, got %d/%d %v", len(msgs), total, err)
	}
	if _, _, err := f.svc.GetMessages(ctx, anchor, Actor{UserID: uuid.New()}, 1, 50); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: expected ErrForbidden, got %v", err)
	}
}

func TestSendMessageRequiresConversationOverREST(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addQuote()
	client := Actor{UserID: f.client}

	if _, err := f.svc.SendMessage(ctx, anchor, client, text("hi"), false); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, anchor, client, text("hi"), true); err != nil {
		t.Fatalf("lazy create: %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, anchor, client, text("   "), false); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendMessageBroadcastsToWholeRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	anchor := f.addBooking(uuid.NullUUID{UUID: f.photographer, Valid: true})

	sender := f.attach(f.client, anchor.RoomKey())
	other := f.attach(f.photographer, anchor.RoomKey())
	outsider := f.attach(f.client, f.addQuote().RoomKey())

	msg, err := f.svc.SendMessage(ctx, anchor, Actor{UserID: f.client}, text("see you at 5"), true)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	for name, c := range map[string]*Client{"sender": sender, "other": other} {
		select {
		case raw := <-c.Send:
			var ev struct {
				Event EventName       `json:"event"`
				Data  MessageResponse `json:"data"`
			}
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("%s: decode: %v", name, err)
			}
			if ev.Event != EventReceiveMessage || ev.Data.ID != msg.ID {
				t.Fatalf("%s: unexpected event %s %s", name, ev.Event, ev.Data.ID)
			}
		default:
			t.Fatalf("%s: expected receive_message", name)
		}
	}

	select {
	case <-outsider.Send:
		t.Fatal("socket in another room received the message")
	default:
	}
}

func TestMarkAsReadUsesAudienceFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client := Actor{UserID: f.client}
	admin := Actor{UserID: f.admin, IsAdmin: true}
	anchor := f.addQuote()

	f.svc.SendMessage(ctx, anchor, client, text("one"), true)
	f.svc.SendMessage(ctx, anchor, client, text("two"), false)

	n, err := f.svc.MarkAsRead(ctx, anchor, admin)
	if err != nil || n != 2 {
		t.Fatalf("admin mark: %d %v", n, err)
	}
	for _, sm := range f.repo.messages {
		if !sm.msg.IsAdminRead || sm.msg.IsRead {
			t.Fatalf("admin read must only set is_admin_read: %+v", sm.msg)
		}
	}

	if n, _ := f.svc.MarkAsRead(ctx, anchor, client); n != 0 {
		t.Fatalf("client's own messages are never unread for the client, marked %d", n)
	}
}

func TestMarkAsReadSharesUserFlagInBookingThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := Actor{UserID: f.admin, IsAdmin: true}
	anchor := f.addBooking(uuid.NullUUID{UUID: f.photographer, Valid: true})

	if _, err := f.svc.SendMessage(ctx, anchor, admin, text("Schedule confirmed"), true); err != nil {
		t.Fatalf("send: %v", err)
	}

	if n, err := f.svc.MarkAsRead(ctx, anchor, Actor{UserID: f.photographer}); err != nil || n != 1 {
		t.Fatalf("photographer mark: %d %v", n, err)
	}
	for _, sm := range f.repo.messages {
		if !sm.msg.IsRead || sm.msg.IsAdminRead {
			t.Fatalf("non-admin read must only set is_read: %+v", sm.msg)
		}
	}

	// The client shares is_read with the photographer, so nothing is left.
	if n, _ := f.svc.MarkAsRead(ctx, anchor, Actor{UserID: f.client}); n != 0 {
		t.Fatalf("expected the client's view to be read already, marked %d", n)
	}
}

func TestUploadAttachmentImage(t *testing.T) {
	f := newFixture()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	f.svc = NewService(f.repo, &memUserRepo{}, f.resolver, nil, store, imaging.NewProcessor(imaging.DefaultConfig()))

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		img.Set(x, x%400, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	resp, err := f.svc.UploadAttachment(context.Background(), Actor{UserID: f.client}, &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "http://localhost:8080/uploads/chat/"+f.client.String()+"/") {
		t.Fatalf("unexpected url %s", resp.URL)
	}
	if resp.ThumbnailURL == "" || resp.MimeType != "image/png" || resp.Width != 800 {
		t.Fatalf("unexpected response %+v", resp)
	}

	_, err = f.svc.UploadAttachment(context.Background(), Actor{UserID: f.client}, strings.NewReader("#!/bin/sh\necho hi\n"))
	if !errors.Is(err, ErrAttachmentRejected) {
		t.Fatalf("expected ErrAttachmentRejected, got %v", err)
	}
}

func TestUploadAttachmentWithoutStorage(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.UploadAttachment(context.Background(), Actor{UserID: f.client}, strings.NewReader("x")); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
