package chat

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EventName is the "event" field of the socket envelope
type EventName string

// Client to server
const (
	EventJoinBookingChat EventName = "join_booking_chat"
	EventJoinQuoteChat   EventName = "join_quote_chat"
	EventLeaveChat       EventName = "leave_chat"
	EventSendMessage     EventName = "send_message"
	EventMarkRead        EventName = "mark_read"
)

// Server to client
const (
	EventJoinedChat     EventName = "joined_chat"
	EventLeftChat       EventName = "left_chat"
	EventReceiveMessage EventName = "receive_message"
	EventMessagesRead   EventName = "messages_read"
	EventError          EventName = "error"
)

// Both directions
const (
	EventTyping     EventName = "typing"
	EventStopTyping EventName = "stop_typing"
)

const roomChannelPrefix = "chat:room:"

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// Event is the socket envelope used in both directions
type Event struct {
	Event EventName   `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorData is the payload of an error event
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// roomMessage is what travels over Redis between instances
type roomMessage struct {
	Instance string          `json:"instance"`
	Event    json.RawMessage `json:"event"`
}

// Client is one socket. Rooms are tracked per socket, so a user with two
// tabs can sit in different rooms.
type Client struct {
	UserID  uuid.UUID
	IsAdmin bool
	Conn    *websocket.Conn
	Send    chan []byte

	rooms map[string]bool
}

// NewClient creates a client with a buffered send queue
func NewClient(userID uuid.UUID, isAdmin bool, conn *websocket.Conn) *Client {
	return &Client{
		UserID:  userID,
		IsAdmin: isAdmin,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		rooms:   make(map[string]bool),
	}
}

// Actor returns the chat identity of the socket's user
func (c *Client) Actor() Actor {
	return Actor{UserID: c.UserID, IsAdmin: c.IsAdmin}
}

// Hub tracks sockets and room memberships on this instance and fans room
// events out to other instances over Redis Pub/Sub when Redis is configured.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	redis  *redis.Client
	pubsub *redis.PubSub

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates a hub. redisClient may be nil for single-instance setups.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		redis:      redisClient,
		ctx:        ctx,
		cancel:     cancel,
		instanceID: uuid.NewString(),
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, roomChannelPrefix+"*")
	}

	return h
}

// Run relays events from other instances until Shutdown (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}
	<-h.ctx.Done()
}

// runRedisSubscriber delivers events published by other instances
func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			room := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			if room == msg.Channel {
				continue
			}

			var rm roomMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				continue
			}
			// Already delivered locally before publishing.
			if rm.Instance == h.instanceID {
				continue
			}
			h.deliverLocal(room, rm.Event, nil)
		}
	}
}

// Register adds a socket. It is visible to Join as soon as this returns.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	wsConnectionsGauge.Add(1)
	log.Debug().Str("user_id", c.UserID.String()).Msg("Socket connected")
}

// Unregister removes a socket, drops all its room memberships and closes
// its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeFromRoom(room, c)
	}
	close(c.Send)
	wsConnectionsGauge.Add(-1)
	log.Debug().Str("user_id", c.UserID.String()).Msg("Socket disconnected")
}

// Join adds the socket to room. Returns false if the socket is gone.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
	return true
}

// Leave removes the socket from room
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(room, c)
}

// InRoom reports whether the socket has joined room
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][c]
}

// removeFromRoom requires h.mu held for writing
func (h *Hub) removeFromRoom(room string, c *Client) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends event to every socket in room on every instance
func (h *Hub) Broadcast(room string, event *Event) {
	h.broadcast(room, event, nil)
}

// BroadcastExcept sends event to every socket in room except the sender's
func (h *Hub) BroadcastExcept(room string, event *Event, except *Client) {
	h.broadcast(room, event, except)
}

func (h *Hub) broadcast(room string, event *Event, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal socket event")
		return
	}

	h.deliverLocal(room, data, except)

	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(roomMessage{Instance: h.instanceID, Event: data})
	if err != nil {
		return
	}
	if err := h.redis.Publish(h.ctx, roomChannelPrefix+room, payload).Err(); err != nil {
		log.Error().Err(err).Str("room", room).Msg("Redis publish failed")
	}
}

// deliverLocal sends data to sockets connected to THIS instance
func (h *Hub) deliverLocal(room string, data []byte, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("user_id", c.UserID.String()).Msg("Socket send buffer full")
		}
	}
}

// RoomSize returns the number of local sockets in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns number of local sockets
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown stops Run and the Redis subscription
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
