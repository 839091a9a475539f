package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageKind distinguishes message payloads.
type MessageKind string

const (
	MessageText       MessageKind = "text"
	MessageImage      MessageKind = "image"
	MessageFile       MessageKind = "file"
	MessageSystem     MessageKind = "system"
	MessageInvitation MessageKind = "invitation"
)

// MessageStatus is the delivery status of a message. Only client-originated
// optimistic messages are ever "pending" or "failed"; everything the server
// persists is "sent".
type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

// Message is a single entry in a conversation. Once the server assigns an ID
// it never changes; the ID is the sole deduplication key. ClientTag carries
// the sender-generated correlation token so an optimistic placeholder can be
// matched with its confirmed counterpart.
type Message struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	ConversationID     uuid.UUID       `json:"conversationId" db:"conversation_id"`
	SenderID           uuid.UUID       `json:"senderId" db:"sender_id"`
	ReceiverID         *uuid.UUID      `json:"receiverId,omitempty" db:"receiver_id"`
	Kind               MessageKind     `json:"kind" db:"kind"`
	Body               string          `json:"body" db:"body"`
	Meta               json.RawMessage `json:"meta,omitempty" db:"meta"`
	Status             MessageStatus   `json:"status" db:"status"`
	ClientTag          string          `json:"clientTag,omitempty" db:"client_tag"`
	DeletedByCandidate bool            `json:"-" db:"deleted_by_candidate"`
	DeletedByRecruiter bool            `json:"-" db:"deleted_by_recruiter"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
}

// VisibleTo reports whether a role still sees this message.
func (m *Message) VisibleTo(role Role) bool {
	if role == RoleCandidate {
		return !m.DeletedByCandidate
	}
	return !m.DeletedByRecruiter
}

// MarkDeletedBy flags the message as deleted for one role only.
func (m *Message) MarkDeletedBy(role Role) {
	if role == RoleCandidate {
		m.DeletedByCandidate = true
	} else {
		m.DeletedByRecruiter = true
	}
}

// Before defines the canonical display order: ascending creation time,
// ties broken by identifier so repeated sorts are stable.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID.String() < other.ID.String()
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
