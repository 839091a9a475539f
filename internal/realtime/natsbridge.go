package realtime

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const busSubject = "talentbridge.events"

// Bus rebroadcasts dispatcher events over NATS so that a second server
// instance can fan them out to its own connections. Each instance tags its
// publishes and ignores its own, keeping local delivery single-sourced.
type Bus struct {
	nc         *nats.Conn
	instanceID string
}

type busEnvelope struct {
	Instance string          `json:"instance"`
	Room     Room            `json:"room"`
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload"`
}

func NewBus(url string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("talentbridge"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %v", err)
	}
	log.Printf("Connected to NATS at %s", url)
	return &Bus{nc: nc, instanceID: uuid.NewString()}, nil
}

// Publish forwards an event to the bus. Best effort: a bus failure must not
// affect local delivery, so errors are logged and swallowed.
func (b *Bus) Publish(room Room, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Bus: failed to encode %s payload: %v", eventType, err)
		return
	}
	data, err := json.Marshal(busEnvelope{
		Instance: b.instanceID,
		Room:     room,
		Event:    eventType,
		Payload:  raw,
	})
	if err != nil {
		log.Printf("Bus: failed to encode envelope: %v", err)
		return
	}
	if err := b.nc.Publish(busSubject, data); err != nil {
		log.Printf("Bus: publish failed: %v", err)
	}
}

// Bind subscribes to the bus and republishes events from other instances
// into the local hub.
func (b *Bus) Bind(pub Publisher) error {
	_, err := b.nc.Subscribe(busSubject, func(m *nats.Msg) {
		var env busEnvelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			log.Printf("Bus: dropping malformed envelope: %v", err)
			return
		}
		if env.Instance == b.instanceID {
			return
		}
		pub.Publish(env.Room, env.Event, env.Payload)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to bus: %v", err)
	}
	return nil
}

func (b *Bus) Close() {
	b.nc.Drain()
}
