package actors

import (
	"context"
	"testing"
	"time"

	"talentbridge/internal/database"
	"talentbridge/internal/models"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records room publishes for assertions.
type capturingPublisher struct {
	events []capturedEvent
}

type capturedEvent struct {
	Room    realtime.Room
	Type    string
	Payload interface{}
}

func (c *capturingPublisher) Publish(room realtime.Room, eventType string, payload interface{}) {
	c.events = append(c.events, capturedEvent{Room: room, Type: eventType, Payload: payload})
}

func (c *capturingPublisher) count(eventType string) int {
	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type actorFixture struct {
	system *actor.ActorSystem
	pid    *actor.PID
	store  *database.MemoryDB
	pub    *capturingPublisher
}

func newConversationFixture(t *testing.T) *actorFixture {
	t.Helper()
	system := actor.NewActorSystem()
	store := database.NewMemoryDB()
	pub := &capturingPublisher{}
	dispatcher := realtime.NewDispatcher(pub, nil)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewConversationActor(store, dispatcher, utils.NewMetricsCollector())
	})
	pid := system.Root.Spawn(props)
	return &actorFixture{system: system, pid: pid, store: store, pub: pub}
}

func (f *actorFixture) ask(t *testing.T, msg interface{}) interface{} {
	t.Helper()
	future := f.system.Root.RequestFuture(f.pid, msg, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		t.Fatalf("actor request failed: %v", err)
	}
	return result
}

func (f *actorFixture) startConversation(t *testing.T) (*models.Conversation, uuid.UUID, uuid.UUID) {
	t.Helper()
	candidateID := uuid.New()
	recruiterID := uuid.New()
	result := f.ask(t, &StartConversationMsg{CandidateID: candidateID, RecruiterID: recruiterID})
	conv, ok := result.(*models.Conversation)
	if !ok {
		t.Fatalf("expected conversation, got %T", result)
	}
	return conv, candidateID, recruiterID
}

func TestStartConversationIsGetOrCreate(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	assert.Equal(t, models.ConversationActive, conv.Status)

	// Second start for the same pair returns the existing conversation.
	again := f.ask(t, &StartConversationMsg{CandidateID: candidateID, RecruiterID: recruiterID})
	sameConv, ok := again.(*models.Conversation)
	require.True(t, ok)
	assert.Equal(t, conv.ID, sameConv.ID)

	// A different job anchor is a distinct conversation.
	jobID := uuid.New()
	withJob := f.ask(t, &StartConversationMsg{JobID: &jobID, CandidateID: candidateID, RecruiterID: recruiterID})
	jobConv, ok := withJob.(*models.Conversation)
	require.True(t, ok)
	assert.NotEqual(t, conv.ID, jobConv.ID)
}

func TestSendMessagePersistsThenDispatches(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	result := f.ask(t, &SendMessageMsg{
		ConversationID: conv.ID,
		SenderID:       candidateID,
		Body:           "hello there",
		ClientTag:      "tag-1",
	})
	msg, ok := result.(*models.Message)
	require.True(t, ok, "expected message, got %T", result)

	assert.Equal(t, models.MessageText, msg.Kind, "kind defaults to text")
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, "tag-1", msg.ClientTag, "correlation tag is echoed back")
	require.NotNil(t, msg.ReceiverID)
	assert.Equal(t, recruiterID, *msg.ReceiverID)

	// The stored conversation snapshot was bumped atomically with the save.
	stored, err := f.store.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", stored.LastMessage)
	assert.Equal(t, 1, stored.RecruiterUnread, "recipient side unread incremented")
	assert.Equal(t, 0, stored.CandidateUnread)

	assert.Equal(t, 3, f.pub.count(realtime.EventNewMessage), "conversation room plus both user rooms")
	assert.GreaterOrEqual(t, f.pub.count(realtime.EventConversationUpdated), 3)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	f := newConversationFixture(t)
	conv, _, _ := f.startConversation(t)

	result := f.ask(t, &SendMessageMsg{
		ConversationID: conv.ID,
		SenderID:       uuid.New(),
		Body:           "let me in",
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected AppError, got %T", result)
	assert.Equal(t, utils.ErrNotParticipant, appErr.Code)
	assert.Equal(t, 0, f.pub.count(realtime.EventNewMessage), "nothing is dispatched for a rejected send")
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	for i := 0; i < 3; i++ {
		f.ask(t, &SendMessageMsg{ConversationID: conv.ID, SenderID: candidateID, Body: "ping"})
	}

	result := f.ask(t, &MarkReadMsg{ConversationID: conv.ID, RequesterID: recruiterID})
	ack, ok := result.(*MarkReadResponse)
	require.True(t, ok, "expected ack, got %T", result)
	assert.Equal(t, 0, ack.Unread)

	// Acking again is a no-op that reports the same remainder.
	result = f.ask(t, &MarkReadMsg{ConversationID: conv.ID, RequesterID: recruiterID})
	ack, ok = result.(*MarkReadResponse)
	require.True(t, ok)
	assert.Equal(t, 0, ack.Unread)

	stored, err := f.store.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RecruiterUnread)
}

func TestGetMessagesOrderingAndPaging(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	bodies := []string{"one", "two", "three", "four"}
	for _, body := range bodies {
		f.ask(t, &SendMessageMsg{ConversationID: conv.ID, SenderID: candidateID, Body: body})
	}

	result := f.ask(t, &GetMessagesMsg{ConversationID: conv.ID, RequesterID: recruiterID})
	page, ok := result.(*database.MessagePage)
	require.True(t, ok, "expected page, got %T", result)
	require.Len(t, page.Messages, 4)
	assert.Equal(t, "one", page.Messages[0].Body, "ascending by default")
	assert.Equal(t, 4, page.Total)

	result = f.ask(t, &GetMessagesMsg{ConversationID: conv.ID, RequesterID: recruiterID, Limit: 2, Descending: true})
	page, ok = result.(*database.MessagePage)
	require.True(t, ok)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "four", page.Messages[0].Body)
	assert.Equal(t, 4, page.Total, "total reflects the full timeline, not the page")
}

func TestDeleteMessageIsPerSide(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	sent := f.ask(t, &SendMessageMsg{ConversationID: conv.ID, SenderID: candidateID, Body: "oops"}).(*models.Message)

	result := f.ask(t, &DeleteMessageMsg{ConversationID: conv.ID, MessageID: sent.ID, RequesterID: candidateID})
	deleted, ok := result.(*models.Message)
	require.True(t, ok, "expected message, got %T", result)
	assert.False(t, deleted.VisibleTo(models.RoleCandidate))
	assert.True(t, deleted.VisibleTo(models.RoleRecruiter), "the other side keeps seeing the message")

	// The deleting side's history no longer includes it.
	page := f.ask(t, &GetMessagesMsg{ConversationID: conv.ID, RequesterID: candidateID}).(*database.MessagePage)
	assert.Empty(t, page.Messages)
	page = f.ask(t, &GetMessagesMsg{ConversationID: conv.ID, RequesterID: recruiterID}).(*database.MessagePage)
	assert.Len(t, page.Messages, 1)
}

func TestDeleteConversationIsPerSide(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)

	result := f.ask(t, &DeleteConversationMsg{ConversationID: conv.ID, RequesterID: candidateID})
	updated, ok := result.(*models.Conversation)
	require.True(t, ok, "expected conversation, got %T", result)
	assert.Equal(t, models.ConversationDeletedByCandidate, updated.Status)
	assert.False(t, updated.VisibleTo(models.RoleCandidate))
	assert.True(t, updated.VisibleTo(models.RoleRecruiter))

	// The recruiter still lists it; the candidate does not.
	convs := f.ask(t, &ListConversationsMsg{UserID: recruiterID, Role: models.RoleRecruiter}).([]*models.Conversation)
	assert.Len(t, convs, 1)
	convs = f.ask(t, &ListConversationsMsg{UserID: candidateID, Role: models.RoleCandidate}).([]*models.Conversation)
	assert.Empty(t, convs)
}

func TestStatusChangePersistsSystemMessage(t *testing.T) {
	f := newConversationFixture(t)
	conv, candidateID, recruiterID := f.startConversation(t)
	entityID := uuid.New()
	setupEvents := len(f.pub.events)

	result := f.ask(t, &StatusChangeMsg{
		ConversationID: conv.ID,
		EntityID:       entityID,
		Status:         "interview_scheduled",
		RequesterID:    recruiterID,
	})
	msg, ok := result.(*models.Message)
	require.True(t, ok, "expected message, got %T", result)
	assert.Equal(t, models.MessageSystem, msg.Kind)
	assert.Contains(t, msg.Body, "interview_scheduled")

	// The transition shows up in history, so an offline candidate recovers
	// it on the next fetch.
	page := f.ask(t, &GetMessagesMsg{ConversationID: conv.ID, RequesterID: candidateID}).(*database.MessagePage)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, models.MessageSystem, page.Messages[0].Kind)

	assert.Equal(t, 2, f.pub.count(realtime.EventStatusChanged), "both participants are notified directly")
	assert.Equal(t, 3, f.pub.count(realtime.EventNewMessage))

	// The conversation snapshot is pushed too, carrying the fresh unread
	// count and preview, so a live recipient's list stays current.
	snapshots := 0
	for _, e := range f.pub.events[setupEvents:] {
		if e.Type != realtime.EventConversationUpdated {
			continue
		}
		snapshots++
		pushed, ok := e.Payload.(*models.Conversation)
		require.True(t, ok, "expected conversation payload, got %T", e.Payload)
		assert.Equal(t, 1, pushed.CandidateUnread)
		assert.Contains(t, pushed.LastMessage, "interview_scheduled")
	}
	assert.Equal(t, 3, snapshots)
}
