// Package client is the Go SDK for the TalentBridge messaging API. It wraps
// the REST surface, maintains a local conversation store reconciled from
// cache, fetch, and push sources, and manages the realtime connection.
package client

import (
	"encoding/json"
	"time"
)

// Role identifies which side of a conversation an identity occupies.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Message kinds.
const (
	MessageText       = "text"
	MessageImage      = "image"
	MessageFile       = "file"
	MessageSystem     = "system"
	MessageInvitation = "invitation"
)

// Message delivery statuses. Pending and failed exist only locally for
// optimistic sends; everything returned by the server is sent.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Message is the canonical client-side message record. Every server shape is
// normalized into this form before it reaches application code.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId,omitempty"`
	Kind           string          `json:"kind"`
	Body           string          `json:"body"`
	Meta           json.RawMessage `json:"meta,omitempty"`
	Status         string          `json:"status"`
	ClientTag      string          `json:"clientTag,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Before defines the canonical display order: ascending creation time, ties
// broken by identifier so repeated sorts are stable.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Conversation is a two-party thread between a candidate and a recruiter.
type Conversation struct {
	ID              string     `json:"id"`
	JobID           string     `json:"jobId,omitempty"`
	CandidateID     string     `json:"candidateId"`
	RecruiterID     string     `json:"recruiterId"`
	CandidateUnread int        `json:"candidateUnread"`
	RecruiterUnread int        `json:"recruiterUnread"`
	Status          string     `json:"status"`
	LastMessage     string     `json:"lastMessage"`
	LastMessageAt   *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// UnreadFor returns the unread counter for a role.
func (c *Conversation) UnreadFor(role Role) int {
	if role == RoleCandidate {
		return c.CandidateUnread
	}
	return c.RecruiterUnread
}

// Notification is a system notification delivered into a recipient scope.
type Notification struct {
	ID             string    `json:"id"`
	RecipientScope string    `json:"recipientScope"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Category       string    `json:"category,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessagePage is one page of conversation history plus the conversation
// snapshot, when the server includes it.
type MessagePage struct {
	Messages     []Message     `json:"messages"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Total        int           `json:"total"`
}

// TypingEvent is relayed typing state; it is never persisted.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// StatusChangedEvent announces an interview/application status transition.
type StatusChangedEvent struct {
	EntityID string `json:"entityId"`
	Status   string `json:"status"`
}

// MarkReadResult carries the authoritative unread count after a read ack.
type MarkReadResult struct {
	ConversationID string `json:"conversationId"`
	Unread         int    `json:"unread"`
}

// Envelope is the wire format for every realtime event and command.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server-to-client event types.
const (
	EventNewMessage          = "new-message"
	EventMessageUpdated      = "message-updated"
	EventConversationUpdated = "conversation-updated"
	EventSystemNotification  = "system-notification"
	EventStatusChanged       = "status-changed"
	EventUserOnline          = "user-online"
	EventUserOffline         = "user-offline"
	EventTyping              = "typing"
)

// Client-to-server command types.
const (
	cmdJoinUser          = "join-user"
	cmdJoinConversation  = "join-conversation"
	cmdLeaveConversation = "leave-conversation"
	cmdJoinRole          = "join-role"
	cmdTyping            = "typing"
)
