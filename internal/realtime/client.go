package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"talentbridge/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Deadline for the gate's membership query on a join command.
	joinTimeout = 3 * time.Second
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The authenticated identity this connection represents.
	UserID uuid.UUID
	Role   models.Role

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte
}

type joinPayload struct {
	ID string `json:"id"`
}

type joinRolePayload struct {
	Role string `json:"role"`
}

// ReadPump pumps commands from the websocket connection into the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		log.Printf("ReadPump stopped for user %s", c.UserID)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Read error for user %s: %v", c.UserID, err)
			}
			break
		}
		c.handleCommand(message)
	}
}

func (c *Client) handleCommand(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Printf("Dropping malformed command from user %s: %v", c.UserID, err)
		return
	}

	switch env.Type {
	case CmdJoinUser:
		var p joinPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return
		}
		c.join(UserRoom(id))

	case CmdJoinConversation:
		var p joinPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return
		}
		c.join(ConversationRoom(id))

	case CmdLeaveConversation:
		var p joinPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return
		}
		c.Hub.Leave(c, ConversationRoom(id))

	case CmdJoinRole:
		var p joinRolePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		c.join(RoleRoom(models.Role(p.Role)))

	case CmdTyping:
		var p TypingPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		id, err := uuid.Parse(p.ConversationID)
		if err != nil {
			return
		}
		// Relay only within a conversation the sender has joined; typing
		// state is never persisted.
		room := ConversationRoom(id)
		if !c.Hub.InRoom(c, room) {
			return
		}
		p.UserID = c.UserID.String()
		c.Hub.Publish(room, EventTyping, p)

	default:
		log.Printf("Unknown command %q from user %s", env.Type, c.UserID)
	}
}

func (c *Client) join(room Room) {
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	c.Hub.Join(ctx, c, room)
}

// WritePump pumps events from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		log.Printf("WritePump stopped for user %s", c.UserID)
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Write error for user %s: %v", c.UserID, err)
				return
			}

			// Drain any queued events onto the wire while we hold the writer.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					log.Printf("Write error for user %s: %v", c.UserID, err)
					return
				}
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping error for user %s: %v", c.UserID, err)
				return
			}
		}
	}
}
