package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"talentbridge/internal/middleware"
	"talentbridge/internal/models"
	"talentbridge/internal/utils"

	"github.com/google/uuid"
)

// RegisterUserRequest mirrors the identity record pushed in by the platform's
// account service. Registration here only provisions the messaging-side
// profile; credentials live elsewhere.
type RegisterUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegisterUserResponse returns the stored profile with a development token so
// local clients and the simulator can connect without the identity service.
type RegisterUserResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// HandleUsers provisions and fetches user profiles.
func (s *Server) HandleUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req RegisterUserRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			role := models.Role(req.Role)
			if role != models.RoleCandidate && role != models.RoleRecruiter && role != models.RoleAdmin {
				http.Error(w, "Invalid role", http.StatusBadRequest)
				return
			}
			if req.Name == "" || req.Email == "" {
				http.Error(w, "Name and email are required", http.StatusBadRequest)
				return
			}

			user := &models.User{
				ID:        uuid.New(),
				Name:      req.Name,
				Email:     req.Email,
				Role:      role,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.Store.SaveUser(r.Context(), user); err != nil {
				if appErr, ok := err.(*utils.AppError); ok {
					http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
					return
				}
				http.Error(w, "Failed to save user", http.StatusInternalServerError)
				return
			}

			token, err := middleware.GenerateToken(user.ID, user.Role)
			if err != nil {
				http.Error(w, "Failed to generate token", http.StatusInternalServerError)
				return
			}
			writeJSON(w, &RegisterUserResponse{User: user, Token: token})

		case http.MethodGet:
			userID, err := uuid.Parse(r.URL.Query().Get("id"))
			if err != nil {
				http.Error(w, "Invalid user ID", http.StatusBadRequest)
				return
			}
			user, err := s.Store.GetUser(r.Context(), userID)
			if err != nil {
				if appErr, ok := err.(*utils.AppError); ok {
					http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
					return
				}
				http.Error(w, "Failed to fetch user", http.StatusInternalServerError)
				return
			}
			writeJSON(w, user)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
