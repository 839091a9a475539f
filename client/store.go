package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversationStore holds the client's reconciled view of its conversations:
// the merged message timeline per conversation, the conversation snapshots,
// and the unread counters. All three input sources (cache, fetch, push) flow
// through Merge, so the store never sees an unreconciled timeline.
type ConversationStore struct {
	mu            sync.RWMutex
	role          Role
	conversations map[string]Conversation
	timelines     map[string][]Message
	unread        map[string]int
}

func NewConversationStore(role Role) *ConversationStore {
	return &ConversationStore{
		role:          role,
		conversations: make(map[string]Conversation),
		timelines:     make(map[string][]Message),
		unread:        make(map[string]int),
	}
}

// ApplyPage folds a normalized history page into the store.
func (s *ConversationStore) ApplyPage(conversationID string, page *MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[conversationID] = Merge(s.timelines[conversationID], page.Messages)
	if page.Conversation != nil {
		s.applyConversationLocked(*page.Conversation)
	}
}

// ApplyMessage folds one pushed or fetched message into its timeline.
func (s *ConversationStore) ApplyMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[m.ConversationID] = Merge(s.timelines[m.ConversationID], []Message{m})
}

// ApplyConversation folds a conversation snapshot into the store. The server
// count is authoritative for unread state, with one exception: while a lower
// local count exists (a read ack is in flight), a larger pushed count from an
// older event may not resurrect already-acknowledged messages, so the counter
// only moves up when the snapshot's last activity is newer than what we hold.
func (s *ConversationStore) ApplyConversation(c Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyConversationLocked(c)
}

func (s *ConversationStore) applyConversationLocked(c Conversation) {
	prev, known := s.conversations[c.ID]
	s.conversations[c.ID] = c

	count := c.UnreadFor(s.role)
	if known && count > s.unread[c.ID] && !newerThan(c.LastMessageAt, prev.LastMessageAt) {
		return
	}
	s.unread[c.ID] = count
}

func newerThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// AppendPending inserts an optimistic placeholder for a message the caller is
// about to send and returns its correlation tag.
func (s *ConversationStore) AppendPending(conversationID, senderID, kind, body string) string {
	tag := uuid.NewString()
	placeholder := Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		Body:           body,
		Status:         StatusPending,
		ClientTag:      tag,
		CreatedAt:      time.Now().UTC(),
	}
	s.mu.Lock()
	s.timelines[conversationID] = Merge(s.timelines[conversationID], []Message{placeholder})
	s.mu.Unlock()
	return tag
}

// ResolveSend replaces the placeholder carrying the confirmed message's
// ClientTag with the server copy. Safe to call after the push event already
// delivered the same message.
func (s *ConversationStore) ResolveSend(confirmed Message) {
	s.ApplyMessage(confirmed)
}

// FailSend marks the placeholder with the given tag as failed. The message
// stays in the timeline so the user can retry it; nothing retries
// automatically.
func (s *ConversationStore) FailSend(conversationID, clientTag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeline := s.timelines[conversationID]
	for i := range timeline {
		if timeline[i].ClientTag == clientTag && timeline[i].ID == "" {
			timeline[i].Status = StatusFailed
			return
		}
	}
}

// TakeRetry removes a failed placeholder from the timeline and returns it so
// the caller can resend its content under a fresh tag.
func (s *ConversationStore) TakeRetry(conversationID, clientTag string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeline := s.timelines[conversationID]
	for i := range timeline {
		if timeline[i].ClientTag == clientTag && timeline[i].Status == StatusFailed {
			m := timeline[i]
			s.timelines[conversationID] = append(timeline[:i:i], timeline[i+1:]...)
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the reconciled timeline for a conversation.
func (s *ConversationStore) Messages(conversationID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	timeline := s.timelines[conversationID]
	out := make([]Message, len(timeline))
	copy(out, timeline)
	return out
}

// Conversation returns the stored snapshot for a conversation.
func (s *ConversationStore) Conversation(conversationID string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	return c, ok
}

// Unread returns the current unread count for a conversation.
func (s *ConversationStore) Unread(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[conversationID]
}

// TotalUnread sums unread counts across all known conversations.
func (s *ConversationStore) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.unread {
		total += n
	}
	return total
}

// AcknowledgeRead applies the authoritative remaining count from a read ack.
func (s *ConversationStore) AcknowledgeRead(result MarkReadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[result.ConversationID] = result.Unread
	if c, ok := s.conversations[result.ConversationID]; ok {
		if s.role == RoleCandidate {
			c.CandidateUnread = result.Unread
		} else {
			c.RecruiterUnread = result.Unread
		}
		s.conversations[result.ConversationID] = c
	}
}

// String implements fmt.Stringer for debug logging.
func (s *ConversationStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("ConversationStore{conversations: %d, unread: %d}", len(s.conversations), len(s.unread))
}
