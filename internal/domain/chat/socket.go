package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/middleware"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/jwt"
	"github.com/veroa/veroa-api/internal/pkg/validator"
)

// WebSocket constants
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	opTimeout      = 10 * time.Second
)

// inboundEvent is the envelope read from clients
type inboundEvent struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// socketToken finds the access token in the Authorization header, the token
// query param or the Sec-WebSocket-Protocol header, in that order. The last
// form returns the protocol value to echo back.
func socketToken(r *http.Request) (token, protocol string) {
	if t, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return t, ""
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, ""
	}

	protocols := websocket.Subprotocols(r)
	switch {
	case len(protocols) >= 2 && strings.EqualFold(protocols[0], "bearer"):
		return protocols[1], protocols[0]
	case len(protocols) == 1:
		return protocols[0], protocols[0]
	}
	return "", ""
}

// WebSocket handles GET /ws. The token is checked before any event is read;
// a bad token still upgrades so the client gets an error event before close.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token, protocol := socketToken(r)

	var header http.Header
	if protocol != "" {
		header = http.Header{"Sec-Websocket-Protocol": []string{protocol}}
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	claims, err := h.authenticate(token)
	if err != nil {
		h.rejectSocket(conn, err)
		return
	}

	client := NewClient(claims.UserID, claims.Role == middleware.RoleAdmin, conn)
	h.hub.Register(client)

	go h.wsWriter(client)
	go h.wsReader(client)
}

func (h *Handler) authenticate(token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperr.Wrap(ErrUnauthorized, err)
	}
	return claims, nil
}

func (h *Handler) rejectSocket(conn *websocket.Conn, err error) {
	defer conn.Close()

	_, code, message := apperr.Classify(err)
	data, _ := json.Marshal(&Event{Event: EventError, Data: ErrorData{Code: code, Message: message}})

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code))
}

func (h *Handler) wsReader(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("WebSocket read error")
			}
			return
		}

		var in inboundEvent
		if err := json.Unmarshal(raw, &in); err != nil {
			h.sendError(client, ErrInvalidPayload)
			continue
		}

		if err := h.dispatch(client, &in); err != nil {
			h.sendError(client, err)
		}
	}
}

func (h *Handler) dispatch(client *Client, in *inboundEvent) error {
	switch in.Event {
	case EventJoinBookingChat, EventJoinQuoteChat:
		var data AnchorRequest
		if err := decodeData(in.Data, &data); err != nil {
			return err
		}
		var anchor Anchor
		if in.Event == EventJoinBookingChat && data.BookingID != nil {
			anchor = BookingAnchor(*data.BookingID)
		} else if in.Event == EventJoinQuoteChat && data.QuoteID != nil {
			anchor = QuoteAnchor(*data.QuoteID)
		} else {
			return ErrInvalidAnchor
		}
		return h.join(client, anchor)

	case EventLeaveChat:
		anchor, err := decodeAnchor(in.Data)
		if err != nil {
			return err
		}
		h.hub.Leave(client, anchor.RoomKey())
		client.send(&Event{Event: EventLeftChat, Data: map[string]string{"room": anchor.RoomKey()}})
		return nil

	case EventSendMessage:
		var req SendMessageRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		if errs := validator.Validate(&req); errs != nil {
			return ErrInvalidPayload
		}
		anchor, err := req.Anchor()
		if err != nil {
			return err
		}
		if !h.rateLimiter.Allow(context.Background(), client.UserID) {
			return ErrRateLimited
		}
		if !h.hub.InRoom(client, anchor.RoomKey()) {
			if err := h.join(client, anchor); err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		_, err = h.service.SendMessage(ctx, anchor, client.Actor(), &req, true)
		return err

	case EventTyping, EventStopTyping:
		anchor, err := decodeAnchor(in.Data)
		if err != nil {
			return err
		}
		room := anchor.RoomKey()
		if !h.hub.InRoom(client, room) {
			return ErrNotJoined
		}
		h.hub.BroadcastExcept(room, &Event{
			Event: in.Event,
			Data:  map[string]interface{}{"userId": client.UserID, "room": room},
		}, client)
		return nil

	case EventMarkRead:
		anchor, err := decodeAnchor(in.Data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		_, err = h.service.MarkAsRead(ctx, anchor, client.Actor())
		return err
	}

	return ErrUnknownEvent
}

// join authorizes the socket for anchor within the join timeout and adds it
// to the anchor's room.
func (h *Handler) join(client *Client, anchor Anchor) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.joinTimeout)
	defer cancel()

	conv, err := h.service.GetOrCreateConversation(ctx, anchor, client.Actor())
	if err != nil {
		return err
	}

	room := anchor.RoomKey()
	if !h.hub.Join(client, room) {
		return nil
	}
	client.send(&Event{
		Event: EventJoinedChat,
		Data: map[string]interface{}{
			"room":           room,
			"conversationId": conv.ID,
		},
	})
	return nil
}

func (h *Handler) sendError(client *Client, err error) {
	_, code, message := apperr.Classify(err)
	if code == "INTERNAL_ERROR" {
		log.Error().Err(err).Str("user_id", client.UserID.String()).Msg("Socket event failed")
	}
	client.send(&Event{Event: EventError, Data: ErrorData{Code: code, Message: message}})
}

func (h *Handler) wsWriter(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send queues an event for this socket only. Called from the reader
// goroutine, which is the only place the socket is unregistered from.
func (c *Client) send(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
		wsEventsSentTotal.Add(1)
	default:
		wsEventsDroppedTotal.Add(1)
	}
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Wrap(ErrInvalidPayload, err)
	}
	return nil
}

func decodeAnchor(raw json.RawMessage) (Anchor, error) {
	var data AnchorRequest
	if err := decodeData(raw, &data); err != nil {
		return Anchor{}, err
	}
	return data.Anchor()
}
