package realtime

import (
	"context"
	"log"

	"talentbridge/internal/database"
	"talentbridge/internal/models"

	"github.com/google/uuid"
)

// Gate decides whether an authenticated identity may join a room. It runs on
// every join attempt, not only at initial connect, and fails closed: any
// store error is a denial.
type Gate struct {
	store database.DBAdapter
}

func NewGate(store database.DBAdapter) *Gate {
	return &Gate{store: store}
}

// CanJoin reports whether userID may subscribe to room. claimedRole is the
// role carried in the connection's token; for role rooms it is still checked
// against the stored user record rather than trusted.
func (g *Gate) CanJoin(ctx context.Context, userID uuid.UUID, claimedRole models.Role, room Room) bool {
	switch room.Kind() {
	case RoomKindUser:
		targetID, err := room.TargetID()
		if err != nil {
			return false
		}
		return targetID == userID

	case RoomKindConversation:
		conversationID, err := room.TargetID()
		if err != nil {
			return false
		}
		conv, err := g.store.GetConversation(ctx, conversationID)
		if err != nil {
			log.Printf("Gate: denying %s for user %s: %v", room, userID, err)
			return false
		}
		return conv.HasParticipant(userID)

	case RoomKindRole:
		user, err := g.store.GetUser(ctx, userID)
		if err != nil {
			log.Printf("Gate: denying %s for user %s: %v", room, userID, err)
			return false
		}
		return string(user.Role) == room.Target() && user.Role == claimedRole
	}

	return false
}
