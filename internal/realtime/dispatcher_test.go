package realtime

import (
	"testing"
	"time"

	"talentbridge/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// recordingPublisher captures publishes instead of fanning them out.
type recordingPublisher struct {
	published []publishedEvent
}

type publishedEvent struct {
	Room    Room
	Type    string
	Payload interface{}
}

func (r *recordingPublisher) Publish(room Room, eventType string, payload interface{}) {
	r.published = append(r.published, publishedEvent{Room: room, Type: eventType, Payload: payload})
}

func (r *recordingPublisher) rooms() []Room {
	rooms := make([]Room, 0, len(r.published))
	for _, e := range r.published {
		rooms = append(rooms, e.Room)
	}
	return rooms
}

func testConversation() *models.Conversation {
	return &models.Conversation{
		ID:          uuid.New(),
		CandidateID: uuid.New(),
		RecruiterID: uuid.New(),
		Status:      models.ConversationActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestDispatcherMessageCreatedRooms(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil)
	conv := testConversation()

	d.MessageCreated(conv, &models.Message{ID: uuid.New(), ConversationID: conv.ID})

	assert.Equal(t, []Room{
		ConversationRoom(conv.ID),
		UserRoom(conv.CandidateID),
		UserRoom(conv.RecruiterID),
	}, pub.rooms())
	for _, e := range pub.published {
		assert.Equal(t, EventNewMessage, e.Type)
	}
}

func TestDispatcherStatusChangedTargetsUserRoomsOnly(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil)
	conv := testConversation()
	entityID := uuid.New()

	d.StatusChanged(conv, entityID, "interview_scheduled")

	assert.Equal(t, []Room{
		UserRoom(conv.CandidateID),
		UserRoom(conv.RecruiterID),
	}, pub.rooms(), "status transitions bypass the conversation room")
	payload, ok := pub.published[0].Payload.(StatusChangedPayload)
	assert.True(t, ok)
	assert.Equal(t, entityID.String(), payload.EntityID)
	assert.Equal(t, "interview_scheduled", payload.Status)
}

func TestDispatcherNotificationScope(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil)

	n := &models.Notification{
		ID:             uuid.New(),
		RecipientScope: "role:recruiter",
		Title:          "maintenance window",
		CreatedAt:      time.Now().UTC(),
	}
	d.NotificationCreated(n)

	assert.Equal(t, []Room{Room("role:recruiter")}, pub.rooms())
	assert.Equal(t, EventSystemNotification, pub.published[0].Type)
}

func TestDispatcherConversationUpdated(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil)
	conv := testConversation()

	d.ConversationUpdated(conv)

	assert.Len(t, pub.published, 3)
	for _, e := range pub.published {
		assert.Equal(t, EventConversationUpdated, e.Type)
	}
}
