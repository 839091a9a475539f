package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBareArray(t *testing.T) {
	raw := []byte(`[
		{"id":"m1","conversationId":"c1","senderId":"u1","kind":"text","body":"hi","status":"sent","createdAt":"2026-03-01T12:00:00Z"},
		{"id":"m2","conversationId":"c1","senderId":"u2","kind":"text","body":"hey","status":"sent","createdAt":"2026-03-01T12:00:05Z"}
	]`)

	page, err := NormalizeMessagePage(raw)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, 2, page.Total)
	assert.Nil(t, page.Conversation)
}

func TestNormalizePageObject(t *testing.T) {
	raw := []byte(`{
		"messages": [{"id":"m1","conversationId":"c1","senderId":"u1","kind":"text","body":"hi","status":"sent","createdAt":"2026-03-01T12:00:00Z"}],
		"conversation": {"id":"c1","candidateId":"u1","recruiterId":"u2","candidateUnread":0,"recruiterUnread":1,"status":"active","lastMessage":"hi","createdAt":"2026-03-01T11:00:00Z"},
		"total": 40
	}`)

	page, err := NormalizeMessagePage(raw)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
	assert.Equal(t, 40, page.Total)
	require.NotNil(t, page.Conversation)
	assert.Equal(t, 1, page.Conversation.RecruiterUnread)
}

func TestNormalizeDataWrapped(t *testing.T) {
	raw := []byte(`{"data": {"messages": [{"id":"m1","conversationId":"c1","senderId":"u1","kind":"text","body":"hi","status":"sent","createdAt":"2026-03-01T12:00:00Z"}]}}`)

	page, err := NormalizeMessagePage(raw)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
	assert.Equal(t, 1, page.Total)
}

func TestNormalizeDataWrappedArray(t *testing.T) {
	raw := []byte(`{"data": [{"id":"m1","conversationId":"c1","senderId":"u1","kind":"text","body":"hi","status":"sent","createdAt":"2026-03-01T12:00:00Z"}]}`)

	page, err := NormalizeMessagePage(raw)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
}

func TestNormalizeUnknownShapeFails(t *testing.T) {
	_, err := NormalizeMessagePage([]byte(`"just a string"`))
	assert.Error(t, err)

	_, err = NormalizeMessagePage([]byte(`{"rows": []}`))
	assert.Error(t, err)
}

func TestNormalizeEmptyMessages(t *testing.T) {
	page, err := NormalizeMessagePage([]byte(`{"messages": []}`))
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 0, page.Total)
}

func TestNormalizeConversationList(t *testing.T) {
	bare := []byte(`[{"id":"c1","candidateId":"u1","recruiterId":"u2","status":"active","createdAt":"2026-03-01T11:00:00Z"}]`)
	convs, err := NormalizeConversationList(bare)
	require.NoError(t, err)
	assert.Len(t, convs, 1)

	wrapped := []byte(`{"data": [{"id":"c1","candidateId":"u1","recruiterId":"u2","status":"active","createdAt":"2026-03-01T11:00:00Z"}]}`)
	convs, err = NormalizeConversationList(wrapped)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
