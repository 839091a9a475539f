package realtime

import (
	"talentbridge/internal/models"

	"github.com/google/uuid"
)

// Dispatcher translates completed write-path operations into room publishes.
// It performs no persistence itself; callers invoke it only after the store
// write has succeeded, so a published event never references a record that
// does not exist yet. When a bus is configured, every event is also forwarded
// so other instances can serve their own connections.
type Dispatcher struct {
	pub Publisher
	bus *Bus // optional
}

func NewDispatcher(pub Publisher, bus *Bus) *Dispatcher {
	return &Dispatcher{pub: pub, bus: bus}
}

func (d *Dispatcher) emit(room Room, eventType string, payload interface{}) {
	d.pub.Publish(room, eventType, payload)
	if d.bus != nil {
		d.bus.Publish(room, eventType, payload)
	}
}

func participantRooms(conv *models.Conversation) []Room {
	return []Room{
		ConversationRoom(conv.ID),
		UserRoom(conv.CandidateID),
		UserRoom(conv.RecruiterID),
	}
}

// MessageCreated announces a freshly persisted message to the conversation
// room and both participant user rooms.
func (d *Dispatcher) MessageCreated(conv *models.Conversation, msg *models.Message) {
	for _, room := range participantRooms(conv) {
		d.emit(room, EventNewMessage, msg)
	}
}

// MessageUpdated announces a mutation (soft delete) of an existing message.
func (d *Dispatcher) MessageUpdated(conv *models.Conversation, msg *models.Message) {
	for _, room := range participantRooms(conv) {
		d.emit(room, EventMessageUpdated, msg)
	}
}

// ConversationUpdated announces a conversation snapshot change (last message,
// unread counters, lifecycle status).
func (d *Dispatcher) ConversationUpdated(conv *models.Conversation) {
	for _, room := range participantRooms(conv) {
		d.emit(room, EventConversationUpdated, conv)
	}
}

// StatusChanged announces an interview or application status transition to
// both participants.
func (d *Dispatcher) StatusChanged(conv *models.Conversation, entityID uuid.UUID, status string) {
	payload := StatusChangedPayload{EntityID: entityID.String(), Status: status}
	d.emit(UserRoom(conv.CandidateID), EventStatusChanged, payload)
	d.emit(UserRoom(conv.RecruiterID), EventStatusChanged, payload)
}

// NotificationCreated delivers a system notification into its recipient scope.
func (d *Dispatcher) NotificationCreated(n *models.Notification) {
	d.emit(Room(n.RecipientScope), EventSystemNotification, n)
}
