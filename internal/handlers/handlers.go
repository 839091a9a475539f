package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"talentbridge/internal/database"
	"talentbridge/internal/engine"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system, engine,
// and the realtime hub.
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *realtime.Hub
	Store          database.DBAdapter
	Metrics        *utils.MetricsCollector
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *realtime.Hub,
	store database.DBAdapter,
	metrics *utils.MetricsCollector,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Store:          store,
		Metrics:        metrics,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// ask sends a message to an actor and waits for the response, mapping
// timeouts and AppError responses onto the HTTP response. It returns nil if
// an error was already written.
func (s *Server) ask(w http.ResponseWriter, pid *actor.PID, msg interface{}) interface{} {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		http.Error(w, "Request timed out", http.StatusGatewayTimeout)
		return nil
	}
	if appErr, ok := result.(*utils.AppError); ok {
		http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
		return nil
	}
	return result
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HandleHealth reports store and hub liveness.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok"}
		if err := s.Store.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSON(w, status)
	}
}
