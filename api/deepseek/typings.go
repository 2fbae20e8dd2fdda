package deepseek

import "encoding/json"

type envelope struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data *envelopeData `json:"data"`
}

type envelopeData struct {
	BizCode int             `json:"biz_code"`
	BizMsg  string          `json:"biz_msg"`
	BizData json.RawMessage `json:"biz_data"`
}

type createSessionRequest struct {
	CharacterID *string `json:"character_id"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type deleteSessionRequest struct {
	ChatSessionID string `json:"chat_session_id"`
}

type createChallengeRequest struct {
	TargetPath string `json:"target_path"`
}

type createChallengeResponse struct {
	Challenge json.RawMessage `json:"challenge"`
}

type completionRequest struct {
	ChatSessionID   string  `json:"chat_session_id"`
	ParentMessageID *string `json:"parent_message_id"`
	Prompt          string  `json:"prompt"`
	ThinkingEnabled bool    `json:"thinking_enabled"`
	SearchEnabled   bool    `json:"search_enabled"`
}

// Options tune one completion call.
type Options struct {
	SearchEnabled   bool
	ThinkingEnabled bool
	// Token overrides the configured DEEPSEEK_TOKEN.
	Token string
}
