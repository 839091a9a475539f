package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"talentbridge/client"
)

type SimConfig struct {
	NumPairs         int
	SimulationTime   time.Duration
	MessageFrequency float64 // messages per pair per minute
	TypingChance     float64 // chance a message is preceded by a typing burst
	ReadChance       float64 // chance the recipient acks the conversation read
	DisconnectRate   float64 // chance per tick that a participant drops its socket
	EngineURL        string
}

type SimulationStats struct {
	mu               sync.Mutex
	StartTime        time.Time
	MessagesSent     int
	MessagesReceived int
	ReadAcks         int
	Reconnects       int
	ErrorCount       int
}

func (s *SimulationStats) record(fn func(*SimulationStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// participant is one simulated identity: its REST API client, realtime
// connection, and reconciled local store.
type participant struct {
	ID      string
	Role    client.Role
	API     *client.API
	Store   *client.ConversationStore
	Manager *client.Manager
}

// pair couples one candidate and one recruiter around a single conversation.
type pair struct {
	Candidate      *participant
	Recruiter      *participant
	ConversationID string
}

type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	pairs  []*pair
	http   *http.Client
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats:  &SimulationStats{StartTime: time.Now()},
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Simulator) GetStats() *SimulationStats {
	return s.stats
}

func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting simulation...")

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup
	for _, p := range s.pairs {
		wg.Add(1)
		go func(p *pair) {
			defer wg.Done()
			s.runPair(ctx, p)
		}(p)
	}
	wg.Wait()

	for _, p := range s.pairs {
		p.Candidate.Manager.Close()
		p.Recruiter.Manager.Close()
	}
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	log.Printf("Phase 1: Registering %d candidate/recruiter pairs...", s.config.NumPairs)
	for i := 0; i < s.config.NumPairs; i++ {
		candidate, err := s.register(ctx, fmt.Sprintf("candidate-%d", i), client.RoleCandidate)
		if err != nil {
			return err
		}
		recruiter, err := s.register(ctx, fmt.Sprintf("recruiter-%d", i), client.RoleRecruiter)
		if err != nil {
			return err
		}
		s.pairs = append(s.pairs, &pair{Candidate: candidate, Recruiter: recruiter})
	}

	log.Printf("Phase 2: Opening conversations and sockets...")
	for _, p := range s.pairs {
		conv, err := p.Candidate.API.StartConversation(ctx, "", p.Candidate.ID, p.Recruiter.ID)
		if err != nil {
			return fmt.Errorf("failed to start conversation: %v", err)
		}
		p.ConversationID = conv.ID

		for _, member := range []*participant{p.Candidate, p.Recruiter} {
			if err := member.Manager.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect socket for %s: %v", member.ID, err)
			}
			if err := member.Manager.JoinUser(ctx, member.ID); err != nil {
				return err
			}
			if err := member.Manager.JoinConversation(ctx, conv.ID); err != nil {
				return err
			}
		}
	}

	log.Printf("Initialization completed: %d pairs ready", len(s.pairs))
	return nil
}

func (s *Simulator) register(ctx context.Context, name string, role client.Role) (*participant, error) {
	body, _ := json.Marshal(map[string]string{
		"name":  name,
		"email": name + "@simulated.test",
		"role":  string(role),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.EngineURL+"/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %v", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to register %s: HTTP %d", name, resp.StatusCode)
	}

	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, err
	}

	p := &participant{
		ID:    reg.User.ID,
		Role:  role,
		API:   client.NewAPI(s.config.EngineURL, reg.Token),
		Store: client.NewConversationStore(role),
	}
	p.Manager = client.NewManager(
		s.config.EngineURL,
		client.Config{Token: reg.Token, AutoReconnect: true},
		client.Handlers{
			OnNewMessage: func(m client.Message) {
				if m.SenderID != p.ID {
					s.stats.record(func(st *SimulationStats) { st.MessagesReceived++ })
				}
			},
			OnReconnecting: func(attempt int, delay time.Duration) {
				s.stats.record(func(st *SimulationStats) { st.Reconnects++ })
			},
		},
		p.Store,
		p.API.Cache(),
	)
	return p, nil
}

// runPair drives one conversation until the context expires: alternating
// sends with optional typing bursts, read acks, and random socket drops.
func (s *Simulator) runPair(ctx context.Context, p *pair) {
	interval := time.Duration(float64(time.Minute) / s.config.MessageFrequency)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	turn := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sender, recipient := p.Candidate, p.Recruiter
			if turn%2 == 1 {
				sender, recipient = p.Recruiter, p.Candidate
			}
			turn++

			if rand.Float64() < s.config.TypingChance {
				sender.Manager.SendTyping(ctx, p.ConversationID, true)
				time.Sleep(200 * time.Millisecond)
				sender.Manager.SendTyping(ctx, p.ConversationID, false)
			}

			s.sendMessage(ctx, sender, p.ConversationID, fmt.Sprintf("message %d from %s", turn, sender.Role))

			if rand.Float64() < s.config.ReadChance {
				if result, err := recipient.API.MarkRead(ctx, p.ConversationID); err == nil {
					recipient.Store.AcknowledgeRead(*result)
					s.stats.record(func(st *SimulationStats) { st.ReadAcks++ })
				} else {
					s.stats.record(func(st *SimulationStats) { st.ErrorCount++ })
				}
			}

			if rand.Float64() < s.config.DisconnectRate {
				// Drop and rebuild the socket to exercise the rejoin path.
				recipient.Manager.Close()
				if err := recipient.Manager.Connect(ctx); err == nil {
					s.stats.record(func(st *SimulationStats) { st.Reconnects++ })
				}
			}
		}
	}
}

// sendMessage runs the full optimistic send flow: placeholder first, then the
// REST call, then resolve or fail-and-retry.
func (s *Simulator) sendMessage(ctx context.Context, sender *participant, conversationID, body string) {
	tag := sender.Store.AppendPending(conversationID, sender.ID, client.MessageText, body)

	confirmed, err := sender.API.SendMessage(ctx, conversationID, client.MessageText, body, tag)
	if err != nil {
		sender.Store.FailSend(conversationID, tag)
		s.stats.record(func(st *SimulationStats) { st.ErrorCount++ })

		// Manual retry, once, the way a user tapping "retry" would.
		if failed, ok := sender.Store.TakeRetry(conversationID, tag); ok {
			retryTag := sender.Store.AppendPending(conversationID, sender.ID, failed.Kind, failed.Body)
			if confirmed, err = sender.API.SendMessage(ctx, conversationID, failed.Kind, failed.Body, retryTag); err != nil {
				sender.Store.FailSend(conversationID, retryTag)
				return
			}
		} else {
			return
		}
	}

	sender.Store.ResolveSend(*confirmed)
	s.stats.record(func(st *SimulationStats) { st.MessagesSent++ })
}
