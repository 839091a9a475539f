package database

import (
	"context"
	"testing"
	"time"

	"talentbridge/internal/models"
	"talentbridge/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoryConversation(t *testing.T, db *MemoryDB) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		ID:          uuid.New(),
		CandidateID: uuid.New(),
		RecruiterID: uuid.New(),
		Status:      models.ConversationActive,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.SaveConversation(context.Background(), conv))
	return conv
}

func TestMemorySaveMessageBumpsSnapshot(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	conv := seedMemoryConversation(t, db)

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       conv.CandidateID,
		Kind:           models.MessageText,
		Body:           "hi",
		Status:         models.MessageSent,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.SaveMessage(ctx, msg))

	stored, err := db.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.LastMessage)
	require.NotNil(t, stored.LastMessageAt)
	assert.Equal(t, 1, stored.RecruiterUnread, "candidate send raises recruiter unread")
	assert.Equal(t, 0, stored.CandidateUnread)

	remaining, err := db.MarkConversationRead(ctx, conv.ID, models.RoleRecruiter)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	stored, err = db.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RecruiterUnread)
}

func TestMemorySaveMessageUnknownConversation(t *testing.T) {
	db := NewMemoryDB()
	err := db.SaveMessage(context.Background(), &models.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrConversationNotFound))
}

func TestMemoryListMessagesRespectsVisibility(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	conv := seedMemoryConversation(t, db)

	base := time.Now().UTC()
	var first *models.Message
	for i := 0; i < 3; i++ {
		msg := &models.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       conv.CandidateID,
			Kind:           models.MessageText,
			Body:           "m",
			Status:         models.MessageSent,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.SaveMessage(ctx, msg))
		if first == nil {
			first = msg
		}
	}

	_, err := db.SoftDeleteMessage(ctx, first.ID, models.RoleCandidate)
	require.NoError(t, err)

	page, err := db.ListMessages(ctx, conv.ID, models.RoleCandidate, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2, "deleted message is hidden from the deleting side")
	assert.Equal(t, 2, page.Total)

	page, err = db.ListMessages(ctx, conv.ID, models.RoleRecruiter, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3, "other side still sees it")
}

func TestMemoryListMessagesPaging(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	conv := seedMemoryConversation(t, db)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, db.SaveMessage(ctx, &models.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       conv.RecruiterID,
			Kind:           models.MessageText,
			Body:           string(rune('a' + i)),
			Status:         models.MessageSent,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := db.ListMessages(ctx, conv.ID, models.RoleCandidate, 2, 2, false)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "c", page.Messages[0].Body)
	assert.Equal(t, 5, page.Total)

	page, err = db.ListMessages(ctx, conv.ID, models.RoleCandidate, 2, 0, true)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "e", page.Messages[0].Body)

	// Offset past the end yields an empty page, not an error.
	page, err = db.ListMessages(ctx, conv.ID, models.RoleCandidate, 10, 100, false)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestMemoryFindConversationMatchesJobAnchor(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	candidateID := uuid.New()
	recruiterID := uuid.New()
	jobID := uuid.New()

	bare := &models.Conversation{ID: uuid.New(), CandidateID: candidateID, RecruiterID: recruiterID, Status: models.ConversationActive, CreatedAt: time.Now()}
	anchored := &models.Conversation{ID: uuid.New(), JobID: &jobID, CandidateID: candidateID, RecruiterID: recruiterID, Status: models.ConversationActive, CreatedAt: time.Now()}
	require.NoError(t, db.SaveConversation(ctx, bare))
	require.NoError(t, db.SaveConversation(ctx, anchored))

	found, err := db.FindConversation(ctx, nil, candidateID, recruiterID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, bare.ID, found.ID)

	found, err = db.FindConversation(ctx, &jobID, candidateID, recruiterID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, anchored.ID, found.ID)

	otherJob := uuid.New()
	found, err = db.FindConversation(ctx, &otherJob, candidateID, recruiterID)
	require.NoError(t, err)
	assert.Nil(t, found, "absence is (nil, nil), not an error")
}

func TestMemoryNotificationsScoping(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	userID := uuid.New()

	forUser := &models.Notification{ID: uuid.New(), RecipientScope: "user:" + userID.String(), Title: "for you", CreatedAt: time.Now()}
	forRole := &models.Notification{ID: uuid.New(), RecipientScope: "role:candidate", Title: "for candidates", CreatedAt: time.Now().Add(time.Second)}
	forOthers := &models.Notification{ID: uuid.New(), RecipientScope: "role:recruiter", Title: "not yours", CreatedAt: time.Now()}
	for _, n := range []*models.Notification{forUser, forRole, forOthers} {
		require.NoError(t, db.SaveNotification(ctx, n))
	}

	list, err := db.ListNotifications(ctx, []string{"user:" + userID.String(), "role:candidate"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "for candidates", list[0].Title, "newest first")

	require.NoError(t, db.MarkNotificationRead(ctx, forUser.ID))
	list, err = db.ListNotifications(ctx, []string{"user:" + userID.String()}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}
