// Package prompt renders a conversation into the single prompt string the
// chat service parses. The sentinel tokens must stay byte-exact.
package prompt

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const (
	EndOfSentence    = "<｜end▁of▁sentence｜>"
	User             = "<｜User｜>"
	Assistant        = "<｜Assistant｜>"
	ToolCallsBegin   = "<｜tool▁calls▁begin｜>"
	ToolCallBegin    = "<｜tool▁call▁begin｜>"
	ToolSep          = "<｜tool▁sep｜>"
	ToolCallEnd      = "<｜tool▁call▁end｜>"
	ToolCallsEnd     = "<｜tool▁calls▁end｜>"
	ToolOutputsBegin = "<｜tool▁outputs▁begin｜>"
	ToolOutputBegin  = "<｜tool▁output▁begin｜>"
	ToolOutputEnd    = "<｜tool▁output▁end｜>"
	ToolOutputsEnd   = "<｜tool▁outputs▁end｜>"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// nil means the message carries no tool calls at all.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Render serializes messages in order.
func Render(messages []Message) string {
	var b strings.Builder

	b.WriteString(EndOfSentence)
	first := true
	for _, m := range messages {
		if m.Role != RoleSystem {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
		first = false
	}

	inTool := false
	outputFirst := true
	for i, m := range messages {
		switch {
		case m.Role == RoleUser:
			// a user turn drops the open tool run without closing it
			inTool = false
			b.WriteString(User)
			b.WriteString(m.Content)
			if i != len(messages)-1 {
				b.WriteString(Assistant)
			}

		case m.Role == RoleAssistant && m.ToolCalls != nil:
			if inTool {
				b.WriteString(ToolOutputsEnd)
			}
			inTool = false
			outputFirst = true
			for j, call := range m.ToolCalls {
				if j == 0 {
					b.WriteString(m.Content)
					b.WriteString(ToolCallsBegin)
				} else {
					b.WriteString("\n")
				}
				writeToolCall(&b, call)
			}
			b.WriteString(ToolCallsEnd)
			b.WriteString(EndOfSentence)

		case m.Role == RoleAssistant:
			if inTool {
				b.WriteString(ToolOutputsEnd)
				inTool = false
			}
			b.WriteString(m.Content)
			b.WriteString(EndOfSentence)

		case m.Role == RoleTool:
			inTool = true
			if outputFirst {
				b.WriteString(ToolOutputsBegin)
				outputFirst = false
			} else {
				b.WriteString("\n")
			}
			b.WriteString(ToolOutputBegin)
			b.WriteString(m.Content)
			b.WriteString(ToolOutputEnd)
		}
	}
	if inTool {
		b.WriteString(ToolOutputsEnd)
	}
	return b.String()
}

func writeToolCall(b *strings.Builder, call ToolCall) {
	b.WriteString(ToolCallBegin)
	b.WriteString(call.Type)
	b.WriteString(ToolSep)
	b.WriteString(call.Function.Name)
	b.WriteString("\n```json\n")
	b.WriteString(call.Function.Arguments)
	b.WriteString("\n```")
	b.WriteString(ToolCallEnd)
}
