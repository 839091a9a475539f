package handlers

import (
	"encoding/json"
	"net/http"

	"talentbridge/internal/engine/actors"
	"talentbridge/internal/middleware"
	"talentbridge/internal/models"
	"talentbridge/internal/realtime"

	"github.com/google/uuid"
)

// CreateNotificationRequest targets a single delivery scope: a user room, a
// conversation room, or a role room.
type CreateNotificationRequest struct {
	RecipientScope string `json:"recipientScope"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Category       string `json:"category,omitempty"`
}

// HandleNotifications lists the caller's notifications and lets admins create
// new ones.
func (s *Server) HandleNotifications() http.HandlerFunc {
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
			msg := &actors.ListNotificationsMsg{
				Scopes: []string{
					string(realtime.UserRoom(requesterID)),
					string(realtime.RoleRoom(role)),
				},
				Limit:  limit,
				Offset: offset,
			}
			if result := s.ask(w, s.Engine.GetNotificationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		case http.MethodPost:
			if role != models.RoleAdmin {
				http.Error(w, "Admin role required", http.StatusForbidden)
				return
			}
			var req CreateNotificationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			if req.Title == "" {
				http.Error(w, "Title is required", http.StatusBadRequest)
				return
			}
			msg := &actors.CreateNotificationMsg{
				RecipientScope: req.RecipientScope,
				Title:          req.Title,
				Content:        req.Content,
				Category:       req.Category,
			}
			if result := s.ask(w, s.Engine.GetNotificationActor(), msg); result != nil {
				writeJSON(w, result)
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleNotificationRead marks a single notification as read.
func (s *Server) HandleNotificationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			http.Error(w, "Missing identity", http.StatusUnauthorized)
			return
		}

		var req struct {
			NotificationID string `json:"notificationId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		notificationID, err := uuid.Parse(req.NotificationID)
		if err != nil {
			http.Error(w, "Invalid notification ID", http.StatusBadRequest)
			return
		}

		msg := &actors.MarkNotificationReadMsg{NotificationID: notificationID}
		if result := s.ask(w, s.Engine.GetNotificationActor(), msg); result != nil {
			writeJSON(w, map[string]bool{"success": true})
		}
	}
}
