// ABOUTME: Projects conversation history and the active tool set to the pkg/ai wire format
// ABOUTME: Modeled on the assistantMessage/toolResultMessage/aiTools conversion helpers this runtime builds on

package agent

import (
	"encoding/base64"

	"github.com/pi-agent/runtime/pkg/ai"
)

// convertToLlm projects a conversation history onto the provider-facing
// message list. Consecutive tool-result entries are folded into a single
// user-role message carrying one tool_result content block per entry,
// matching how providers expect tool outputs to be returned.
func convertToLlm(history []Message) []ai.Message {
	out := make([]ai.Message, 0, len(history))

	for i := 0; i < len(history); i++ {
		m := history[i]
		switch m.Role {
		case RoleUser:
			out = append(out, ai.Message{Role: ai.RoleUser, Content: convertUserContent(*m.User)})
		case RoleAssistant:
			out = append(out, ai.Message{Role: ai.RoleAssistant, Content: convertAssistantContent(*m.Assistant)})
		case RoleToolResult:
			var blocks []ai.Content
			for i < len(history) && history[i].Role == RoleToolResult {
				blocks = append(blocks, convertToolResultContent(*history[i].ToolResult)...)
				i++
			}
			i--
			out = append(out, ai.Message{Role: ai.RoleUser, Content: blocks})
		}
	}

	return out
}

func convertUserContent(u UserMessage) []ai.Content {
	parts := u.Content()
	out := make([]ai.Content, 0, len(parts))
	for _, p := range parts {
		if p.Type == PartImage {
			out = append(out, ai.Content{
				Type:      ai.ContentImage,
				MediaType: p.ImageMimeType,
				Data:      base64.StdEncoding.EncodeToString(p.ImageData),
			})
			continue
		}
		out = append(out, ai.Content{Type: ai.ContentText, Text: p.Text})
	}
	return out
}

func convertAssistantContent(a AssistantMessage) []ai.Content {
	out := make([]ai.Content, 0, len(a.Content))
	for _, p := range a.Content {
		switch p.Type {
		case PartText:
			out = append(out, ai.Content{Type: ai.ContentText, Text: p.Text})
		case PartThinking:
			out = append(out, ai.Content{Type: ai.ContentThinking, Thinking: p.Text})
		case PartToolCall:
			out = append(out, ai.Content{
				Type:  ai.ContentToolUse,
				ID:    p.ToolCallID,
				Name:  p.ToolName,
				Input: p.ToolInput,
			})
		}
	}
	return out
}

// convertToolResultContent projects one tool-result message to the
// provider's content blocks: one tool_result block carrying the text, plus
// one image block per attached image.
func convertToolResultContent(r ToolResultMessage) []ai.Content {
	out := []ai.Content{{
		Type:       ai.ContentToolResult,
		ID:         r.ToolCallID,
		ResultText: r.Content,
		IsError:    r.IsError,
	}}
	for _, img := range r.Images {
		out = append(out, ai.Content{
			Type:      ai.ContentImage,
			MediaType: img.MimeType,
			Data:      base64.StdEncoding.EncodeToString(img.Data),
		})
	}
	return out
}

// convertTools projects the active Go-side tool set to the provider's
// tool-declaration wire format.
func convertTools(tools []*Tool) []ai.Tool {
	out := make([]ai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ai.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return out
}
