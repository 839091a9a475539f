package client

import (
	"encoding/json"
	"fmt"
)

// Normalization is the single boundary between server payload shapes and the
// canonical client model. The history endpoint has shipped three shapes over
// time: a bare message array, an object with messages plus a conversation
// snapshot, and either of those nested under a "data" wrapper. Everything
// past this file sees only MessagePage.

type pageBody struct {
	Messages     []Message       `json:"messages"`
	Conversation *Conversation   `json:"conversation"`
	Total        int             `json:"total"`
	Data         json.RawMessage `json:"data"`
}

// NormalizeMessagePage converts any supported history payload shape into a
// MessagePage. Unknown fields are ignored; an unrecognized shape is an error
// rather than a silent empty page.
func NormalizeMessagePage(raw []byte) (*MessagePage, error) {
	trimmed := firstNonSpace(raw)

	if trimmed == '[' {
		var messages []Message
		if err := json.Unmarshal(raw, &messages); err != nil {
			return nil, fmt.Errorf("normalize message array: %w", err)
		}
		return &MessagePage{Messages: messages, Total: len(messages)}, nil
	}

	if trimmed != '{' {
		return nil, fmt.Errorf("normalize: unrecognized payload shape")
	}

	var body pageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("normalize message page: %w", err)
	}

	// Unwrap one level of {"data": ...} envelope.
	if body.Messages == nil && len(body.Data) > 0 {
		return NormalizeMessagePage(body.Data)
	}
	if body.Messages == nil {
		return nil, fmt.Errorf("normalize: payload has no messages field")
	}

	page := &MessagePage{
		Messages:     body.Messages,
		Conversation: body.Conversation,
		Total:        body.Total,
	}
	if page.Total == 0 {
		page.Total = len(page.Messages)
	}
	return page, nil
}

// NormalizeConversationList accepts a bare array or a data-wrapped array.
func NormalizeConversationList(raw []byte) ([]Conversation, error) {
	if firstNonSpace(raw) == '[' {
		var convs []Conversation
		if err := json.Unmarshal(raw, &convs); err != nil {
			return nil, fmt.Errorf("normalize conversation list: %w", err)
		}
		return convs, nil
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || len(wrapper.Data) == 0 {
		return nil, fmt.Errorf("normalize: unrecognized conversation list shape")
	}
	return NormalizeConversationList(wrapper.Data)
}

func firstNonSpace(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
