package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"talentbridge/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceTTL = 5 * time.Minute

// Presence maps user identities to live connection counts and emits
// online/offline transitions. Multiple simultaneous connections coalesce:
// a user is online while at least one connection exists. Presence is a UX
// optimization; none of its failure modes may block message delivery.
type Presence struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int

	pub Publisher
	rdb *redis.Client // optional cross-instance mirror
}

func NewPresence(pub Publisher, rdb *redis.Client) *Presence {
	return &Presence{
		counts: make(map[uuid.UUID]int),
		pub:    pub,
		rdb:    rdb,
	}
}

// ClientConnected records a new connection; the first connection for an
// identity announces it online to the opposite role room.
func (p *Presence) ClientConnected(userID uuid.UUID, role models.Role) {
	p.mu.Lock()
	p.counts[userID]++
	first := p.counts[userID] == 1
	p.mu.Unlock()

	if !first {
		return
	}
	p.pub.Publish(RoleRoom(role.Other()), EventUserOnline, userID)
	p.mirror(userID, true)
}

// ClientDisconnected records a closed connection; the last one announces the
// identity offline.
func (p *Presence) ClientDisconnected(userID uuid.UUID, role models.Role) {
	p.mu.Lock()
	if p.counts[userID] > 0 {
		p.counts[userID]--
	}
	last := p.counts[userID] == 0
	if last {
		delete(p.counts, userID)
	}
	p.mu.Unlock()

	if !last {
		return
	}
	p.pub.Publish(RoleRoom(role.Other()), EventUserOffline, userID)
	p.mirror(userID, false)
}

// Online reports whether the identity has at least one live connection.
func (p *Presence) Online(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0
}

// mirror writes the transition to Redis so other instances can read it.
// Best effort: errors are logged and ignored.
func (p *Presence) mirror(userID uuid.UUID, online bool) {
	if p.rdb == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		key := "presence:" + userID.String()
		var err error
		if online {
			err = p.rdb.Set(ctx, key, "online", presenceTTL).Err()
		} else {
			err = p.rdb.Del(ctx, key).Err()
		}
		if err != nil {
			log.Printf("Presence mirror failed for %s: %v", userID, err)
		}
	}()
}
