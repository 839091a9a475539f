// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"sync"

	"talentbridge/internal/models"
	"talentbridge/internal/utils"

	"github.com/google/uuid"
)

// MemoryDB is a goroutine-safe in-memory DBAdapter used by tests and by
// DB_TYPE=memory development runs.
type MemoryDB struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*models.User
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID]*models.Message
	notifications map[uuid.UUID]*models.Notification
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[uuid.UUID]*models.User),
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID]*models.Message),
		notifications: make(map[uuid.UUID]*models.Notification),
	}
}

func (m *MemoryDB) Close(ctx context.Context) error { return nil }

func (m *MemoryDB) Ping(ctx context.Context) error { return nil }

func (m *MemoryDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryDB) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getConversationLocked(id)
}

func (m *MemoryDB) getConversationLocked(id uuid.UUID) (*models.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	copied := *conv
	return &copied, nil
}

func (m *MemoryDB) FindConversation(ctx context.Context, jobID *uuid.UUID, candidateID, recruiterID uuid.UUID) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conv := range m.conversations {
		if conv.CandidateID != candidateID || conv.RecruiterID != recruiterID {
			continue
		}
		if (jobID == nil) != (conv.JobID == nil) {
			continue
		}
		if jobID != nil && *jobID != *conv.JobID {
			continue
		}
		copied := *conv
		return &copied, nil
	}
	return nil, nil
}

func (m *MemoryDB) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conv
	m.conversations[conv.ID] = &copied
	return nil
}

func (m *MemoryDB) ListConversations(ctx context.Context, userID uuid.UUID, role models.Role, limit, offset int) ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var convs []*models.Conversation
	for _, conv := range m.conversations {
		if !conv.HasParticipant(userID) || conv.Status == models.DeletedStatusFor(role) {
			continue
		}
		copied := *conv
		convs = append(convs, &copied)
	}

	// Newest activity first
	sort.Slice(convs, func(i, j int) bool {
		ti, tj := convs[i].CreatedAt, convs[j].CreatedAt
		if convs[i].LastMessageAt != nil {
			ti = *convs[i].LastMessageAt
		}
		if convs[j].LastMessageAt != nil {
			tj = *convs[j].LastMessageAt
		}
		return ti.After(tj)
	})

	return pageSlice(convs, limit, offset), nil
}

func (m *MemoryDB) SetConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	conv.Status = status
	return nil
}

func (m *MemoryDB) MarkConversationRead(ctx context.Context, id uuid.UUID, role models.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return 0, utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+id.String(), nil)
	}
	if role == models.RoleCandidate {
		conv.CandidateUnread = 0
	} else {
		conv.RecruiterUnread = 0
	}
	return 0, nil
}

func (m *MemoryDB) SaveMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return utils.NewAppError(utils.ErrConversationNotFound, "conversation not found: "+msg.ConversationID.String(), nil)
	}

	copied := *msg
	m.messages[msg.ID] = &copied

	conv.LastMessage = msg.Body
	createdAt := msg.CreatedAt
	conv.LastMessageAt = &createdAt
	if role, _ := conv.ParticipantRole(msg.SenderID); role == models.RoleRecruiter {
		conv.CandidateUnread++
	} else {
		conv.RecruiterUnread++
	}
	return nil
}

func (m *MemoryDB) ListMessages(ctx context.Context, conversationID uuid.UUID, viewer models.Role, limit, offset int, descending bool) (*MessagePage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, err := m.getConversationLocked(conversationID)
	if err != nil {
		return nil, err
	}

	var messages []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID || !msg.VisibleTo(viewer) {
			continue
		}
		copied := *msg
		messages = append(messages, &copied)
	}

	sort.Slice(messages, func(i, j int) bool {
		if descending {
			return messages[j].Before(messages[i])
		}
		return messages[i].Before(messages[j])
	})

	total := len(messages)
	return &MessagePage{
		Messages:     pageSlice(messages, limit, offset),
		Conversation: conv,
		Total:        total,
	}, nil
}

func (m *MemoryDB) SoftDeleteMessage(ctx context.Context, messageID uuid.UUID, role models.Role) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, utils.NewAppError(utils.ErrMessageNotFound, "message not found: "+messageID.String(), nil)
	}
	msg.MarkDeletedBy(role)
	copied := *msg
	return &copied, nil
}

func (m *MemoryDB) SaveNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.notifications[n.ID] = &copied
	return nil
}

func (m *MemoryDB) ListNotifications(ctx context.Context, scopes []string, limit, offset int) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scopeSet := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		scopeSet[scope] = true
	}

	var notifications []*models.Notification
	for _, n := range m.notifications {
		if !scopeSet[n.RecipientScope] {
			continue
		}
		copied := *n
		notifications = append(notifications, &copied)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return pageSlice(notifications, limit, offset), nil
}

func (m *MemoryDB) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return utils.NewAppError(utils.ErrNotFound, "notification not found: "+id.String(), nil)
	}
	n.IsRead = true
	return nil
}

func pageSlice[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
