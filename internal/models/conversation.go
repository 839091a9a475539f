package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of a conversation an identity occupies.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Other returns the opposite conversation role.
func (r Role) Other() Role {
	if r == RoleCandidate {
		return RoleRecruiter
	}
	return RoleCandidate
}

// ConversationStatus tracks per-role soft deletion. Conversations are never
// hard-deleted; a role that "deletes" one just stops seeing it.
type ConversationStatus string

const (
	ConversationActive             ConversationStatus = "active"
	ConversationDeletedByCandidate ConversationStatus = "deleted_by_candidate"
	ConversationDeletedByRecruiter ConversationStatus = "deleted_by_recruiter"
)

// Conversation is a two-party thread between a candidate and a recruiter,
// optionally anchored to a job posting.
type Conversation struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	JobID           *uuid.UUID         `json:"jobId,omitempty" db:"job_id"`
	CandidateID     uuid.UUID          `json:"candidateId" db:"candidate_id"`
	RecruiterID     uuid.UUID          `json:"recruiterId" db:"recruiter_id"`
	CandidateUnread int                `json:"candidateUnread" db:"candidate_unread"`
	RecruiterUnread int                `json:"recruiterUnread" db:"recruiter_unread"`
	Status          ConversationStatus `json:"status" db:"status"`
	LastMessage     string             `json:"lastMessage" db:"last_message"`
	LastMessageAt   *time.Time         `json:"lastMessageAt,omitempty" db:"last_message_at"`
	CreatedAt       time.Time          `json:"createdAt" db:"created_at"`
}

// HasParticipant reports whether the given identity is one of the two
// stored participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.CandidateID == userID || c.RecruiterID == userID
}

// ParticipantRole returns the role an identity holds in this conversation.
func (c *Conversation) ParticipantRole(userID uuid.UUID) (Role, bool) {
	switch userID {
	case c.CandidateID:
		return RoleCandidate, true
	case c.RecruiterID:
		return RoleRecruiter, true
	}
	return "", false
}

// Counterpart returns the other participant's identity.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.CandidateID {
		return c.RecruiterID
	}
	return c.CandidateID
}

// UnreadFor returns the unread counter for a role.
func (c *Conversation) UnreadFor(role Role) int {
	if role == RoleCandidate {
		return c.CandidateUnread
	}
	return c.RecruiterUnread
}

// VisibleTo reports whether a role still sees this conversation.
func (c *Conversation) VisibleTo(role Role) bool {
	switch c.Status {
	case ConversationDeletedByCandidate:
		return role != RoleCandidate
	case ConversationDeletedByRecruiter:
		return role != RoleRecruiter
	}
	return true
}

// DeletedStatusFor maps a role to the status recording its soft delete.
func DeletedStatusFor(role Role) ConversationStatus {
	if role == RoleCandidate {
		return ConversationDeletedByCandidate
	}
	return ConversationDeletedByRecruiter
}
