package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"fanlink/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RoomEventSource delivers room events published by this or other nodes.
type RoomEventSource interface {
	SubscribeRoomEvents() *redis.PubSub
}

// Hub tracks every live connection and its room subscriptions, and fans
// events out to them. Register/unregister flow through channels consumed by
// Run; broadcast and subscription methods are safe to call from any
// connection's event loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client            // connection id -> client
	rooms   map[string]map[string]Client // room id -> connection id -> client

	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.RoomEvent

	source RoomEventSource
}

// NewHub creates a hub. source may be nil, in which case only local
// broadcasts happen (used by tests and single-node setups without Redis).
func NewHub(source RoomEventSource) *Hub {
	return &Hub{
		clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.RoomEvent, 64),
		source:       source,
	}
}

// Run is the hub's dispatcher goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()

	for {
		select {
		case c := <-h.RegisterCh:
			h.register(c)
		case c := <-h.UnregisterCh:
			h.unregister(c)
		case re := <-h.PubSubCh:
			h.BroadcastRoom(re.RoomID, re.Event, "")
		}
	}
}

// startPubSubListener pipes Redis room events into PubSubCh.
func (h *Hub) startPubSubListener() {
	if h.source == nil {
		return
	}
	go func() {
		pubsub := h.source.SubscribeRoomEvents()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var re models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &re); err != nil {
				log.Printf("hub: dropping malformed room event: %v", err)
				continue
			}
			h.PubSubCh <- re
		}
	}()
}

func (h *Hub) register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.Session().ConnectionID] = c
}

func (h *Hub) unregister(c Client) {
	connID := c.Session().ConnectionID

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	c.Close()
}

// SubscribeRoom adds the connection to a room's broadcast group.
func (h *Hub) SubscribeRoom(c Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]Client)
		h.rooms[roomID] = members
	}
	members[c.Session().ConnectionID] = c
}

// UnsubscribeRoom removes the connection from a room's broadcast group. A
// room with no subscribers left ceases to exist.
func (h *Hub) UnsubscribeRoom(c Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c.Session().ConnectionID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// RoomSize reports the current subscriber count of a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastRoom sends the event to every subscriber of a room, optionally
// skipping one connection (the sender of a typing event, for example).
func (h *Hub) BroadcastRoom(roomID string, ev models.Event, exceptConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, c := range h.rooms[roomID] {
		if connID == exceptConnID {
			continue
		}
		h.push(c, ev)
	}
}

// BroadcastAll sends the event to every live connection except one.
func (h *Hub) BroadcastAll(ev models.Event, exceptConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, c := range h.clients {
		if connID == exceptConnID {
			continue
		}
		h.push(c, ev)
	}
}

// SendToConn sends the event to one connection. It reports false when the
// connection is unknown.
func (h *Hub) SendToConn(connID string, ev models.Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	h.push(c, ev)
	return true
}

// push hands the event to the client's write pump without ever blocking the
// dispatcher; a client that cannot keep up loses events, not the hub.
func (h *Hub) push(c Client, ev models.Event) {
	select {
	case c.SendChannel() <- ev:
	default:
		log.Printf("hub: send buffer full, dropping %s for %s",
			ev.Name, c.Session().ConnectionID)
	}
}
