package imitate

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/maxduke/go-deepseek-api/prompt"
)

const (
	ModelChat     = "deepseek-chat"
	ModelReasoner = "deepseek-reasoner"
)

type APIRequest struct {
	Messages        []APIMessage `json:"messages" binding:"required"`
	Model           string       `json:"model"`
	Stream          bool         `json:"stream"`
	SearchEnabled   *bool        `json:"search_enabled,omitempty"`
	ThinkingEnabled *bool        `json:"thinking_enabled,omitempty"`
}

type APIMessage struct {
	Role string `json:"role"`
	// Content is either a string or an array of {"type":"text","text":...} parts.
	Content   json.RawMessage   `json:"content"`
	ToolCalls []prompt.ToolCall `json:"tool_calls,omitempty"`
}

// Text flattens the message content. Non-text parts are dropped.
func (m APIMessage) Text() string {
	content := gjson.ParseBytes(m.Content)
	switch {
	case content.Type == gjson.String:
		return content.Str
	case content.IsArray():
		var parts []string
		content.ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String {
				parts = append(parts, part.Str)
			} else if part.Get("type").String() == "text" {
				parts = append(parts, part.Get("text").String())
			}
			return true
		})
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

func (r APIRequest) promptMessages() []prompt.Message {
	messages := make([]prompt.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		messages = append(messages, prompt.Message{
			Role:      m.Role,
			Content:   m.Text(),
			ToolCalls: m.ToolCalls,
		})
	}
	return messages
}

type ChatCompletion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Msg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Index        int    `json:"index"`
	Message      Msg    `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

func (chunk *ChatCompletionChunk) String() string {
	resp, _ := json.Marshal(chunk)
	return string(resp)
}

type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
