package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// API is the REST client for the messaging service. Responses cross the
// normalization boundary before being returned, so callers only ever see the
// canonical client model.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	cache      *Cache
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		cache:      NewCache(defaultCacheTTL),
	}
}

// Cache exposes the page cache so the connection manager can invalidate it
// when push events arrive.
func (a *API) Cache() *Cache {
	return a.cache
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Body)
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	endpoint := a.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	return data, nil
}

// ListConversations returns the caller's visible conversations.
func (a *API) ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	data, err := a.do(ctx, http.MethodGet, "/conversations", query, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeConversationList(data)
}

// StartConversation opens (or returns) the conversation for a pair of
// participants, optionally anchored to a job.
func (a *API) StartConversation(ctx context.Context, jobID, candidateID, recruiterID string) (*Conversation, error) {
	body := map[string]string{
		"candidateId": candidateID,
		"recruiterId": recruiterID,
	}
	if jobID != "" {
		body["jobId"] = jobID
	}
	data, err := a.do(ctx, http.MethodPost, "/conversations", nil, body)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// GetMessages fetches one page of history, consulting the cache first. A
// fresh cached page short-circuits the request; a stale one is returned only
// if the fetch fails.
func (a *API) GetMessages(ctx context.Context, conversationID string, limit, offset int, descending bool) (*MessagePage, error) {
	key := PageKey(conversationID, limit, offset, descending)
	if page, stale, ok := a.cache.Get(key); ok && !stale {
		return page, nil
	}

	query := url.Values{"conversationId": {conversationID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	if descending {
		query.Set("sort", "desc")
	}
	data, err := a.do(ctx, http.MethodGet, "/conversations/messages", query, nil)
	if err != nil {
		if page, _, ok := a.cache.Get(key); ok {
			return page, nil
		}
		return nil, err
	}

	page, err := NormalizeMessagePage(data)
	if err != nil {
		return nil, err
	}
	a.cache.Put(key, page)
	return page, nil
}

// SendMessage posts a message. clientTag is echoed back on the stored message
// so the caller's optimistic placeholder can be reconciled.
func (a *API) SendMessage(ctx context.Context, conversationID, kind, body, clientTag string) (*Message, error) {
	payload := map[string]string{
		"conversationId": conversationID,
		"body":           body,
	}
	if kind != "" {
		payload["kind"] = kind
	}
	if clientTag != "" {
		payload["clientTag"] = clientTag
	}
	data, err := a.do(ctx, http.MethodPost, "/conversations/messages", nil, payload)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	a.cache.InvalidateConversation(conversationID)
	return &msg, nil
}

// MarkRead acknowledges a conversation as read and returns the authoritative
// remaining unread count. Idempotent.
func (a *API) MarkRead(ctx context.Context, conversationID string) (*MarkReadResult, error) {
	data, err := a.do(ctx, http.MethodPost, "/conversations/read", nil, map[string]string{
		"conversationId": conversationID,
	})
	if err != nil {
		return nil, err
	}
	var result MarkReadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode read ack: %w", err)
	}
	return &result, nil
}

// DeleteMessage soft-deletes a message for the caller's side only.
func (a *API) DeleteMessage(ctx context.Context, conversationID, messageID string) (*Message, error) {
	query := url.Values{
		"conversationId": {conversationID},
		"messageId":      {messageID},
	}
	data, err := a.do(ctx, http.MethodDelete, "/conversations/messages", query, nil)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	a.cache.InvalidateConversation(conversationID)
	return &msg, nil
}

// DeleteConversation soft-deletes a conversation for the caller's side only.
func (a *API) DeleteConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	query := url.Values{"conversationId": {conversationID}}
	data, err := a.do(ctx, http.MethodDelete, "/conversations", query, nil)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// ChangeStatus records an interview/application status transition.
func (a *API) ChangeStatus(ctx context.Context, conversationID, entityID, status string) (*Message, error) {
	data, err := a.do(ctx, http.MethodPost, "/conversations/status", nil, map[string]string{
		"conversationId": conversationID,
		"entityId":       entityID,
		"status":         status,
	})
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode status message: %w", err)
	}
	return &msg, nil
}

// ListNotifications returns the caller's notifications.
func (a *API) ListNotifications(ctx context.Context, limit, offset int) ([]Notification, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	data, err := a.do(ctx, http.MethodGet, "/notifications", query, nil)
	if err != nil {
		return nil, err
	}
	var notifications []Notification
	if err := json.Unmarshal(data, &notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks one notification as read.
func (a *API) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := a.do(ctx, http.MethodPost, "/notifications/read", nil, map[string]string{
		"notificationId": notificationID,
	})
	return err
}
