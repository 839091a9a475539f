package database

import (
	"context"

	"talentbridge/internal/models"

	"github.com/google/uuid"
)

// MessagePage is one page of a conversation's history together with the
// conversation snapshot and the total visible message count, so clients can
// backfill without a second round trip.
type MessagePage struct {
	Messages     []*models.Message    `json:"messages"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
	Total        int                  `json:"total"`
}

// DBAdapter defines the common interface for database operations. It allows
// using PostgreSQL, MongoDB, or an in-memory store as the backend.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	// User methods
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	// Conversation methods
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindConversation(ctx context.Context, jobID *uuid.UUID, candidateID, recruiterID uuid.UUID) (*models.Conversation, error)
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	ListConversations(ctx context.Context, userID uuid.UUID, role models.Role, limit, offset int) ([]*models.Conversation, error)
	SetConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error
	// MarkConversationRead zeroes the unread counter for one role and
	// returns the remaining count. It is idempotent.
	MarkConversationRead(ctx context.Context, id uuid.UUID, role models.Role) (int, error)

	// Message methods. SaveMessage also bumps the conversation's
	// last-message snapshot and the recipient role's unread counter, so a
	// persisted message is always consistent with its conversation row.
	SaveMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, viewer models.Role, limit, offset int, descending bool) (*MessagePage, error)
	SoftDeleteMessage(ctx context.Context, messageID uuid.UUID, role models.Role) (*models.Message, error)

	// Notification methods
	SaveNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, scopes []string, limit, offset int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
}
