package realtime

import (
	"context"
	"testing"
	"time"

	"talentbridge/internal/database"
	"talentbridge/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateUserRoom(t *testing.T) {
	gate := NewGate(database.NewMemoryDB())
	userID := uuid.New()

	assert.True(t, gate.CanJoin(context.Background(), userID, models.RoleCandidate, UserRoom(userID)))
	assert.False(t, gate.CanJoin(context.Background(), userID, models.RoleCandidate, UserRoom(uuid.New())),
		"a user may only join their own user room")
}

func TestGateConversationRoom(t *testing.T) {
	store := database.NewMemoryDB()
	gate := NewGate(store)

	candidateID := uuid.New()
	recruiterID := uuid.New()
	conv := &models.Conversation{
		ID:          uuid.New(),
		CandidateID: candidateID,
		RecruiterID: recruiterID,
		Status:      models.ConversationActive,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveConversation(context.Background(), conv))

	room := ConversationRoom(conv.ID)
	assert.True(t, gate.CanJoin(context.Background(), candidateID, models.RoleCandidate, room))
	assert.True(t, gate.CanJoin(context.Background(), recruiterID, models.RoleRecruiter, room))
	assert.False(t, gate.CanJoin(context.Background(), uuid.New(), models.RoleCandidate, room),
		"non-participants are denied")
}

func TestGateConversationRoomFailsClosed(t *testing.T) {
	gate := NewGate(database.NewMemoryDB())
	// Unknown conversation: the membership query errors and the join is denied.
	assert.False(t, gate.CanJoin(context.Background(), uuid.New(), models.RoleCandidate, ConversationRoom(uuid.New())))
}

func TestGateRoleRoomChecksStoredRole(t *testing.T) {
	store := database.NewMemoryDB()
	gate := NewGate(store)

	userID := uuid.New()
	require.NoError(t, store.SaveUser(context.Background(), &models.User{
		ID: userID, Name: "n", Email: "n@x.test", Role: models.RoleRecruiter, CreatedAt: time.Now(),
	}))

	assert.True(t, gate.CanJoin(context.Background(), userID, models.RoleRecruiter, RoleRoom(models.RoleRecruiter)))
	assert.False(t, gate.CanJoin(context.Background(), userID, models.RoleRecruiter, RoleRoom(models.RoleCandidate)),
		"stored role must match the room")
	assert.False(t, gate.CanJoin(context.Background(), userID, models.RoleCandidate, RoleRoom(models.RoleRecruiter)),
		"claimed role must agree with the stored role")
	assert.False(t, gate.CanJoin(context.Background(), uuid.New(), models.RoleRecruiter, RoleRoom(models.RoleRecruiter)),
		"unknown users are denied")
}

func TestGateMalformedRoom(t *testing.T) {
	gate := NewGate(database.NewMemoryDB())
	assert.False(t, gate.CanJoin(context.Background(), uuid.New(), models.RoleCandidate, Room("bogus")))
	assert.False(t, gate.CanJoin(context.Background(), uuid.New(), models.RoleCandidate, Room("user:not-a-uuid")))
}

func TestRoomAddressing(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, RoomKindUser, UserRoom(id).Kind())
	assert.Equal(t, RoomKindConversation, ConversationRoom(id).Kind())
	assert.Equal(t, RoomKindRole, RoleRoom(models.RoleCandidate).Kind())
	assert.Equal(t, RoomKind(""), Room("junk").Kind())
	assert.Equal(t, RoomKind(""), Room("widget:123").Kind())

	assert.Equal(t, "candidate", RoleRoom(models.RoleCandidate).Target())
	parsed, err := ConversationRoom(id).TargetID()
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
