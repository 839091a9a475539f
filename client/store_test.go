package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversationSnapshot(id string, candidateUnread int, lastAt time.Time) Conversation {
	return Conversation{
		ID:              id,
		CandidateID:     "u1",
		RecruiterID:     "u2",
		CandidateUnread: candidateUnread,
		Status:          "active",
		LastMessageAt:   &lastAt,
		CreatedAt:       lastAt.Add(-time.Hour),
	}
}

func TestStoreOptimisticSendLifecycle(t *testing.T) {
	store := NewConversationStore(RoleCandidate)

	tag := store.AppendPending("c1", "u1", MessageText, "hello")
	timeline := store.Messages("c1")
	require.Len(t, timeline, 1)
	assert.Equal(t, StatusPending, timeline[0].Status)
	assert.Empty(t, timeline[0].ID)

	confirmed := Message{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "u1",
		Kind:           MessageText,
		Body:           "hello",
		Status:         StatusSent,
		ClientTag:      tag,
		CreatedAt:      time.Now().UTC(),
	}
	store.ResolveSend(confirmed)

	timeline = store.Messages("c1")
	require.Len(t, timeline, 1)
	assert.Equal(t, "m1", timeline[0].ID)
	assert.Equal(t, StatusSent, timeline[0].Status)
}

func TestStoreFailedSendIsKeptForRetry(t *testing.T) {
	store := NewConversationStore(RoleCandidate)

	tag := store.AppendPending("c1", "u1", MessageText, "flaky")
	store.FailSend("c1", tag)

	timeline := store.Messages("c1")
	require.Len(t, timeline, 1)
	assert.Equal(t, StatusFailed, timeline[0].Status, "failed sends stay visible")

	failed, ok := store.TakeRetry("c1", tag)
	require.True(t, ok)
	assert.Equal(t, "flaky", failed.Body)
	assert.Empty(t, store.Messages("c1"), "retry removes the failed placeholder")

	_, ok = store.TakeRetry("c1", tag)
	assert.False(t, ok)
}

func TestStorePushResolvesBeforeRESTResponse(t *testing.T) {
	store := NewConversationStore(RoleCandidate)

	tag := store.AppendPending("c1", "u1", MessageText, "hello")
	confirmed := Message{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "u1",
		Kind:           MessageText,
		Body:           "hello",
		Status:         StatusSent,
		ClientTag:      tag,
		CreatedAt:      time.Now().UTC(),
	}

	// Push event lands first, REST confirmation second.
	store.ApplyMessage(confirmed)
	store.ResolveSend(confirmed)

	assert.Len(t, store.Messages("c1"), 1)
}

func TestStoreUnreadFollowsServerCounts(t *testing.T) {
	store := NewConversationStore(RoleCandidate)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.ApplyConversation(conversationSnapshot("c1", 2, base))
	assert.Equal(t, 2, store.Unread("c1"))

	// New activity raises the count.
	store.ApplyConversation(conversationSnapshot("c1", 3, base.Add(time.Minute)))
	assert.Equal(t, 3, store.Unread("c1"))

	// Read ack drops it to the authoritative remainder.
	store.AcknowledgeRead(MarkReadResult{ConversationID: "c1", Unread: 0})
	assert.Equal(t, 0, store.Unread("c1"))

	// A stale snapshot from before the ack must not resurrect the count.
	store.ApplyConversation(conversationSnapshot("c1", 3, base.Add(time.Minute)))
	assert.Equal(t, 0, store.Unread("c1"))

	// Genuinely new activity raises it again.
	store.ApplyConversation(conversationSnapshot("c1", 1, base.Add(2*time.Minute)))
	assert.Equal(t, 1, store.Unread("c1"))
}

func TestStoreTotalUnread(t *testing.T) {
	store := NewConversationStore(RoleRecruiter)
	base := time.Now().UTC()

	c1 := conversationSnapshot("c1", 0, base)
	c1.RecruiterUnread = 2
	c2 := conversationSnapshot("c2", 0, base)
	c2.RecruiterUnread = 5

	store.ApplyConversation(c1)
	store.ApplyConversation(c2)
	assert.Equal(t, 7, store.TotalUnread())
}

func TestStoreApplyPageMergesWithTimeline(t *testing.T) {
	store := NewConversationStore(RoleCandidate)
	base := time.Now().UTC()

	pushed := Message{ID: "m2", ConversationID: "c1", Kind: MessageText, Status: StatusSent, CreatedAt: base.Add(time.Second)}
	store.ApplyMessage(pushed)

	page := &MessagePage{
		Messages: []Message{
			{ID: "m1", ConversationID: "c1", Kind: MessageText, Status: StatusSent, CreatedAt: base},
			pushed,
		},
		Conversation: func() *Conversation { c := conversationSnapshot("c1", 1, base.Add(time.Second)); return &c }(),
	}
	store.ApplyPage("c1", page)

	timeline := store.Messages("c1")
	require.Len(t, timeline, 2)
	assert.Equal(t, "m1", timeline[0].ID)
	assert.Equal(t, 1, store.Unread("c1"))
}
