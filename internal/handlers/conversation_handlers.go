package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"talentbridge/internal/engine/actors"
	"talentbridge/internal/middleware"
	"talentbridge/internal/models"

	"github.com/google/uuid"
)

// StartConversationRequest opens (or returns) the conversation for a
// candidate/recruiter pair, optionally anchored to a job.
type StartConversationRequest struct {
	JobID       string `json:"jobId,omitempty"`
	CandidateID string `json:"candidateId"`
	RecruiterID string `json:"recruiterId"`
}

// SendMessageRequest represents a request to send a message into a
// conversation. ClientTag is the sender-generated correlation token echoed
// back on the persisted message and the push event.
type SendMessageRequest struct {
	ConversationID string          `json:"conversationId"`
	Kind           string          `json:"kind,omitempty"`
	Body           string          `json:"body"`
	Meta           json.RawMessage `json:"meta,omitempty"`
	ClientTag      string          `json:"clientTag,omitempty"`
}

// HandleConversations lists, starts, and soft-deletes conversations.
func (s *Server) HandleConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing identity", http.StatusUnauthorized)
			return
		}
		role, _ := middleware.GetRoleFromContext(r.Context())

		switch r.Method {
		case http.MethodGet:
			limit, offset := pageParams(r)
			msg := &actors.ListConversationsMsg{
				UserID: requesterID,
				Role:   role,
				Limit:  limit,
				Offset: offset,
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		case http.MethodPost:
			var req StartConversationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			candidateID, err := uuid.Parse(req.CandidateID)
			if err != nil {
				http.Error(w, "Invalid candidate ID", http.StatusBadRequest)
				return
			}
			recruiterID, err := uuid.Parse(req.RecruiterID)
			if err != nil {
				http.Error(w, "Invalid recruiter ID", http.StatusBadRequest)
				return
			}
			if requesterID != candidateID && requesterID != recruiterID {
				http.Error(w, "Requester must be a participant", http.StatusForbidden)
				return
			}
			msg := &actors.StartConversationMsg{
				CandidateID: candidateID,
				RecruiterID: recruiterID,
			}
			if req.JobID != "" {
				jobID, err := uuid.Parse(req.JobID)
				if err != nil {
					http.Error(w, "Invalid job ID", http.StatusBadRequest)
					return
				}
				msg.JobID = &jobID
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		case http.MethodDelete:
			conversationID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
			if err != nil {
				http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
				return
			}
			msg := &actors.DeleteConversationMsg{
				ConversationID: conversationID,
				RequesterID:    requesterID,
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMessages fetches a page of messages, sends a message, or soft-deletes
// one.
func (s *Server) HandleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing identity", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			conversationID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
			if err != nil {
				http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
				return
			}
			limit, offset := pageParams(r)
			msg := &actors.GetMessagesMsg{
				ConversationID: conversationID,
				RequesterID:    requesterID,
				Limit:          limit,
				Offset:         offset,
				Descending:     r.URL.Query().Get("sort") == "desc",
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		case http.MethodPost:
			var req SendMessageRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			conversationID, err := uuid.Parse(req.ConversationID)
			if err != nil {
				http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
				return
			}
			if req.Body == "" && len(req.Meta) == 0 {
				http.Error(w, "Message body is required", http.StatusBadRequest)
				return
			}
			msg := &actors.SendMessageMsg{
				ConversationID: conversationID,
				SenderID:       requesterID,
				Kind:           models.MessageKind(req.Kind),
				Body:           req.Body,
				Meta:           req.Meta,
				ClientTag:      req.ClientTag,
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		case http.MethodDelete:
			conversationID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
			if err != nil {
				http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
				return
			}
			messageID, err := uuid.Parse(r.URL.Query().Get("messageId"))
			if err != nil {
				http.Error(w, "Invalid message ID", http.StatusBadRequest)
				return
			}
			msg := &actors.DeleteMessageMsg{
				ConversationID: conversationID,
				MessageID:      messageID,
				RequesterID:    requesterID,
			}
			if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMarkRead acknowledges a conversation as read for the caller's role
// and returns the authoritative unread count. Idempotent.
func (s *Server) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		requesterID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing identity", http.StatusUnauthorized)
			return
		}

		var req struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		conversationID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}

		msg := &actors.MarkReadMsg{
			ConversationID: conversationID,
			RequesterID:    requesterID,
		}
		if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
			writeJSON(w, result)
		}
	}
}

// HandleStatusChange records an interview/application status transition and
// pushes it to both participants.
func (s *Server) HandleStatusChange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		requesterID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing identity", http.StatusUnauthorized)
			return
		}

		var req struct {
			ConversationID string `json:"conversationId"`
			EntityID       string `json:"entityId"`
			Status         string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		conversationID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}
		entityID, err := uuid.Parse(req.EntityID)
		if err != nil {
			http.Error(w, "Invalid entity ID", http.StatusBadRequest)
			return
		}
		if req.Status == "" {
			http.Error(w, "Status is required", http.StatusBadRequest)
			return
		}

		msg := &actors.StatusChangeMsg{
			ConversationID: conversationID,
			EntityID:       entityID,
			Status:         req.Status,
			RequesterID:    requesterID,
		}
		if result := s.ask(w, s.Engine.GetConversationActor(), msg); result != nil {
			writeJSON(w, result)
		}
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}
