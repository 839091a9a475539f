package realtime

import (
	"context"
	"log"
	"sync"

	"talentbridge/internal/utils"
)

// Publisher is the multicast surface the dispatcher, presence tracker, and
// NATS bridge publish through.
type Publisher interface {
	Publish(room Room, eventType string, payload interface{})
}

// Hub maintains the set of active clients and the room membership sets. It is
// the only component allowed to mutate membership.
type Hub struct {
	// Registered clients and their joined rooms.
	mu          sync.RWMutex
	rooms       map[Room]map[*Client]bool
	memberships map[*Client]map[Room]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	gate     *Gate
	presence *Presence
	metrics  *utils.MetricsCollector
}

func NewHub(gate *Gate, metrics *utils.MetricsCollector) *Hub {
	return &Hub{
		rooms:       make(map[Room]map[*Client]bool),
		memberships: make(map[*Client]map[Room]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		gate:        gate,
		metrics:     metrics,
	}
}

// SetPresence wires the presence tracker in after construction (the tracker
// publishes through the hub, so the two reference each other).
func (h *Hub) SetPresence(p *Presence) {
	h.presence = p
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	log.Println("Realtime hub started.")
	for {
		select {
		case client := <-h.Register:
			h.RegisterClient(client)
		case client := <-h.Unregister:
			h.UnregisterClient(client)
		}
	}
}

// RegisterClient admits a connection to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	h.memberships[client] = make(map[Room]bool)
	h.mu.Unlock()
	h.metrics.ActiveConnections.Inc()
	if h.presence != nil {
		h.presence.ClientConnected(client.UserID, client.Role)
	}
	log.Printf("Client registered for user %s (%s)", client.UserID, client.Role)
}

// UnregisterClient removes a connection and clears its room memberships.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	rooms, ok := h.memberships[client]
	if ok {
		for room := range rooms {
			h.removeLocked(client, room)
		}
		delete(h.memberships, client)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.ActiveConnections.Dec()
		if h.presence != nil {
			h.presence.ClientDisconnected(client.UserID, client.Role)
		}
		log.Printf("Client unregistered for user %s", client.UserID)
	}
}

// Join subscribes a client to a room after the authorization gate approves.
// A denied join is a silent no-op for the caller. The gate query may block on
// the store, so it runs before the room lock is taken.
func (h *Hub) Join(ctx context.Context, client *Client, room Room) {
	if !h.gate.CanJoin(ctx, client.UserID, client.Role, room) {
		h.metrics.JoinsDenied.Inc()
		log.Printf("Join denied: user %s -> %s", client.UserID, room)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, registered := h.memberships[client]; !registered {
		// Client disconnected while the gate query was in flight.
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
		h.metrics.OpenRooms.Inc()
	}
	h.rooms[room][client] = true
	h.memberships[client][room] = true
}

// Leave removes a client from a room.
func (h *Hub) Leave(client *Client, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client, room)
	if rooms, ok := h.memberships[client]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) removeLocked(client *Client, room Room) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
			h.metrics.OpenRooms.Dec()
		}
	}
}

// Publish fans an event out to every connection currently joined to the room.
// Delivery to each connection is an enqueue onto its buffered send channel;
// a subscriber whose buffer is full has the payload dropped rather than
// delaying the others. The guarantee is at least once to currently joined
// connections, never across reconnects.
func (h *Hub) Publish(room Room, eventType string, payload interface{}) {
	data, err := EncodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Publish: failed to encode %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.metrics.EventsPublished.WithLabelValues(eventType).Inc()

	for _, client := range targets {
		select {
		case client.Send <- data:
		default:
			h.metrics.PayloadsDropped.Inc()
			log.Printf("Send buffer full for user %s in %s; payload dropped", client.UserID, room)
		}
	}
}

// InRoom reports whether the client is currently joined to the room.
func (h *Hub) InRoom(client *Client, room Room) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.memberships[client][room]
}

// RoomSize returns the current subscriber count of a room.
func (h *Hub) RoomSize(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// JoinedRooms returns a snapshot of the client's current room set.
func (h *Hub) JoinedRooms(client *Client) []Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]Room, 0, len(h.memberships[client]))
	for room := range h.memberships[client] {
		rooms = append(rooms, room)
	}
	return rooms
}
