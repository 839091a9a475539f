package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"talentbridge/internal/database"
	"talentbridge/internal/engine"
	"talentbridge/internal/engine/actors"
	"talentbridge/internal/middleware"
	"talentbridge/internal/models"
	"talentbridge/internal/realtime"
	"talentbridge/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()
	hub := realtime.NewHub(realtime.NewGate(store), metrics)
	dispatcher := realtime.NewDispatcher(hub, nil)
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, dispatcher, metrics)
	return NewServer(system, eng, hub, store, metrics)
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		handler = middleware.ApplyJWTMiddleware(handler)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, server *Server, name string, role models.Role) (id, token string) {
	t.Helper()
	w := doJSON(t, server.HandleUsers(), "POST", "/users", "", RegisterUserRequest{
		Name:  name,
		Email: name + "@example.com",
		Role:  string(role),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RegisterUserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID.String(), resp.Token
}

func TestConversationFlow(t *testing.T) {
	server := newTestServer(t)

	candidateID, candidateToken := registerUser(t, server, "alice", models.RoleCandidate)
	recruiterID, recruiterToken := registerUser(t, server, "bob", models.RoleRecruiter)

	// Step 1: Candidate opens the conversation.
	w := doJSON(t, server.HandleConversations(), "POST", "/conversations", candidateToken, StartConversationRequest{
		CandidateID: candidateID,
		RecruiterID: recruiterID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	t.Logf("Conversation created with ID: %s", conv.ID)

	// Step 2: A third party may not open a conversation for others.
	_, strangerToken := registerUser(t, server, "mallory", models.RoleCandidate)
	w = doJSON(t, server.HandleConversations(), "POST", "/conversations", strangerToken, StartConversationRequest{
		CandidateID: candidateID,
		RecruiterID: recruiterID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Step 3: Candidate sends a message with a correlation tag.
	w = doJSON(t, server.HandleMessages(), "POST", "/conversations/messages", candidateToken, SendMessageRequest{
		ConversationID: conv.ID.String(),
		Body:           "hello, I saw the posting",
		ClientTag:      "tag-abc",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.Equal(t, "tag-abc", sent.ClientTag)
	assert.Equal(t, models.MessageSent, sent.Status)

	// Step 4: Recruiter fetches history and sees the message.
	w = doJSON(t, server.HandleMessages(), "GET", "/conversations/messages?conversationId="+conv.ID.String(), recruiterToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page database.MessagePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, 1, page.Conversation.RecruiterUnread)

	// Step 5: Recruiter acks the conversation read.
	w = doJSON(t, server.HandleMarkRead(), "POST", "/conversations/read", recruiterToken, map[string]string{
		"conversationId": conv.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ack actors.MarkReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, 0, ack.Unread)

	// Step 6: An outsider cannot read the history.
	w = doJSON(t, server.HandleMessages(), "GET", "/conversations/messages?conversationId="+conv.ID.String(), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Step 7: Requests without a token are rejected outright.
	req := httptest.NewRequest("GET", "/conversations", nil)
	w = httptest.NewRecorder()
	middleware.ApplyJWTMiddleware(server.HandleConversations())(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Step 8: Candidate soft-deletes the conversation; the recruiter still
	// lists it.
	w = doJSON(t, server.HandleConversations(), "DELETE", "/conversations?conversationId="+conv.ID.String(), candidateToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server.HandleConversations(), "GET", "/conversations", recruiterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recruiterConvs []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recruiterConvs))
	assert.Len(t, recruiterConvs, 1)

	w = doJSON(t, server.HandleConversations(), "GET", "/conversations", candidateToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var candidateConvs []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candidateConvs))
	assert.Empty(t, candidateConvs)
}

func TestStatusChangeEndpoint(t *testing.T) {
	server := newTestServer(t)

	candidateID, candidateToken := registerUser(t, server, "carol", models.RoleCandidate)
	recruiterID, recruiterToken := registerUser(t, server, "dave", models.RoleRecruiter)

	w := doJSON(t, server.HandleConversations(), "POST", "/conversations", recruiterToken, StartConversationRequest{
		CandidateID: candidateID,
		RecruiterID: recruiterID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))

	entityID := conv.ID // any referenced entity; the endpoint does not interpret it
	w = doJSON(t, server.HandleStatusChange(), "POST", "/conversations/status", recruiterToken, map[string]string{
		"conversationId": conv.ID.String(),
		"entityId":       entityID.String(),
		"status":         "interview_scheduled",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, models.MessageSystem, msg.Kind)

	// The transition is recoverable from history.
	w = doJSON(t, server.HandleMessages(), "GET", "/conversations/messages?conversationId="+conv.ID.String(), candidateToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page database.MessagePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, models.MessageSystem, page.Messages[0].Kind)
}

func TestNotificationEndpoints(t *testing.T) {
	server := newTestServer(t)

	_, recruiterToken := registerUser(t, server, "erin", models.RoleRecruiter)
	_, adminToken := registerUser(t, server, "frank", models.RoleAdmin)

	// Only admins may create notifications.
	w := doJSON(t, server.HandleNotifications(), "POST", "/notifications", recruiterToken, CreateNotificationRequest{
		RecipientScope: "role:recruiter",
		Title:          "nope",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, server.HandleNotifications(), "POST", "/notifications", adminToken, CreateNotificationRequest{
		RecipientScope: "role:recruiter",
		Title:          "maintenance tonight",
		Content:        "expect a short outage",
		Category:       "system",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created models.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// An invalid scope is rejected.
	w = doJSON(t, server.HandleNotifications(), "POST", "/notifications", adminToken, CreateNotificationRequest{
		RecipientScope: "everyone",
		Title:          "bad scope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The recruiter sees the role-scoped notification in their list.
	w = doJSON(t, server.HandleNotifications(), "GET", "/notifications", recruiterToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list []models.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "maintenance tonight", list[0].Title)

	// Mark it read.
	w = doJSON(t, server.HandleNotificationRead(), "POST", "/notifications/read", recruiterToken, map[string]string{
		"notificationId": created.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
