// Package modelmock provides deterministic model implementations for mock
// mode, so the server boots and exercises the full editing flow without a
// provider key.
package modelmock

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealdraft/dealdraft/offer"
)

// Model is a deterministic mock chat model. A user message containing
// "[edit]" triggers one update-tool call with the remainder as feedback;
// anything else yields a plain assistant answer.
type Model struct{}

func NewModel() *Model {
	return &Model{}
}

var _ offer.ChatModel = (*Model)(nil)

func (m *Model) Complete(_ context.Context, request offer.ModelRequest) (offer.ModelReply, error) {
	latestUser := latestUserMessage(request.Messages)

	if feedback, ok := strings.CutPrefix(strings.TrimSpace(latestUser), "[edit]"); ok && !toolResultPending(request.Messages) {
		return offer.ModelReply{
			ToolCalls: []offer.ToolCall{
				{
					ID:   fmt.Sprintf("call-mock-%d", len(request.Messages)),
					Name: offer.UpdateToolName,
					Arguments: map[string]any{
						"feedback": strings.TrimSpace(feedback),
					},
				},
			},
		}, nil
	}

	return offer.ModelReply{
		Content: fmt.Sprintf(
			"mock_response messages=%d tools=%d latest_user=%q",
			len(request.Messages),
			len(request.Tools),
			latestUser,
		),
	}, nil
}

// Generator is a deterministic mock text generator. It echoes a stable
// rewrite so document versions advance predictably in mock mode.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

var _ offer.TextGenerator = (*Generator)(nil)

func (g *Generator) GenerateText(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("# Offer (mock rewrite)\n\nmock_generated prompt_chars=%d", len(prompt)), nil
}

func latestUserMessage(messages []offer.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == offer.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// toolResultPending reports whether the transcript already ends in a tool
// observation for the latest user message, so the mock answers plainly
// instead of looping tool calls forever.
func toolResultPending(messages []offer.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case offer.RoleTool:
			return true
		case offer.RoleUser:
			return false
		}
	}
	return false
}
