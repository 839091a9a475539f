package realtime

import (
	"strings"

	"talentbridge/internal/models"

	"github.com/google/uuid"
)

// RoomKind is the addressing class of a room.
type RoomKind string

const (
	RoomKindUser         RoomKind = "user"
	RoomKindConversation RoomKind = "conversation"
	RoomKindRole         RoomKind = "role"
)

// Room is a logical multicast address with no persisted state of its own:
// "user:<id>", "conversation:<id>", or "role:<name>". The hub exclusively
// owns the live membership set behind each room.
type Room string

func UserRoom(id uuid.UUID) Room {
	return Room("user:" + id.String())
}

func ConversationRoom(id uuid.UUID) Room {
	return Room("conversation:" + id.String())
}

func RoleRoom(role models.Role) Room {
	return Room("role:" + string(role))
}

// Kind returns the room's addressing class, or "" for a malformed room.
func (r Room) Kind() RoomKind {
	prefix, _, ok := strings.Cut(string(r), ":")
	if !ok {
		return ""
	}
	switch RoomKind(prefix) {
	case RoomKindUser, RoomKindConversation, RoomKindRole:
		return RoomKind(prefix)
	}
	return ""
}

// Target returns the part after the kind prefix.
func (r Room) Target() string {
	_, target, _ := strings.Cut(string(r), ":")
	return target
}

// TargetID parses the target as a UUID, for user and conversation rooms.
func (r Room) TargetID() (uuid.UUID, error) {
	return uuid.Parse(r.Target())
}
