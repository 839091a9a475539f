package realtime

import "encoding/json"

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
	CmdJoinUser          = "join-user"
	CmdJoinConversation  = "join-conversation"
	CmdLeaveConversation = "leave-conversation"
	CmdJoinRole          = "join-role"
	CmdTyping            = "typing"
)

// Envelope is the wire format for every event and command.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent marshals an event envelope for transmission.
func EncodeEvent(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// TypingPayload is relayed, never persisted.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// StatusChangedPayload announces an interview/application status transition.
type StatusChangedPayload struct {
	EntityID string `json:"entityId"`
	Status   string `json:"status"`
}
