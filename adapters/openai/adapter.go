// Package openai adapts the chat-completions HTTP API to the session's
// model seams: the multi-turn, tool-augmented completion used by the
// conversation loop and the single-shot generation used by the update tool
// and autofill.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dealdraft/dealdraft/offer"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultEndpoint = "/chat/completions"
	defaultTimeout  = 60 * time.Second

	maxResponseBytes = 2 << 20
)

type Config struct {
	APIKey       string
	ChatModel    string
	RewriteModel string
	BaseURL      string
	HTTPClient   *http.Client
}

// Adapter implements both model seams against one provider endpoint.
type Adapter struct {
	apiKey       string
	chatModel    string
	rewriteModel string
	endpointURL  string
	httpClient   *http.Client
}

var (
	_ offer.ChatModel     = (*Adapter)(nil)
	_ offer.TextGenerator = (*Adapter)(nil)
)

func New(cfg Config) (*Adapter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new model adapter: api key is required")
	}
	chatModel := strings.TrimSpace(cfg.ChatModel)
	if chatModel == "" {
		return nil, fmt.Errorf("new model adapter: chat model is required")
	}
	rewriteModel := strings.TrimSpace(cfg.RewriteModel)
	if rewriteModel == "" {
		rewriteModel = chatModel
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	endpointURL := strings.TrimRight(baseURL, "/") + defaultEndpoint

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Adapter{
		apiKey:       apiKey,
		chatModel:    chatModel,
		rewriteModel: rewriteModel,
		endpointURL:  endpointURL,
		httpClient:   httpClient,
	}, nil
}

// Complete runs one tool-augmented completion round over the transcript.
func (a *Adapter) Complete(ctx context.Context, request offer.ModelRequest) (offer.ModelReply, error) {
	payload, err := buildChatRequest(a.chatModel, request)
	if err != nil {
		return offer.ModelReply{}, fmt.Errorf("provider request: %w", err)
	}

	parsed, err := a.post(ctx, payload)
	if err != nil {
		return offer.ModelReply{}, err
	}
	if len(parsed.Choices) == 0 {
		return offer.ModelReply{}, fmt.Errorf("provider response decode: no choices")
	}

	return toModelReply(parsed.Choices[0].Message)
}

// GenerateText runs one single-shot, non-streaming generation.
func (a *Adapter) GenerateText(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: a.rewriteModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	parsed, err := a.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider response decode: no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (a *Adapter) post(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider request encode: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider request build: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := a.httpClient.Do(httpRequest)
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider request execute: %w", err)
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider response read: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return chatCompletionResponse{}, fmt.Errorf(
			"provider response status=%d body=%s",
			response.StatusCode,
			string(bodyBytes),
		)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return chatCompletionResponse{}, fmt.Errorf("provider response decode: %w", err)
	}
	return parsed, nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

func buildChatRequest(model string, request offer.ModelRequest) (chatCompletionRequest, error) {
	messages := make([]chatMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, chatMessage{
			Role:    "system",
			Content: request.System,
		})
	}
	for i := range request.Messages {
		converted, err := toChatMessage(request.Messages[i])
		if err != nil {
			return chatCompletionRequest{}, err
		}
		messages = append(messages, converted)
	}

	tools := make([]chatTool, len(request.Tools))
	for i := range request.Tools {
		tools[i] = chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        request.Tools[i].Name,
				Description: request.Tools[i].Description,
				Parameters:  request.Tools[i].InputSchema,
			},
		}
	}

	return chatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}, nil
}

func toChatMessage(message offer.Message) (chatMessage, error) {
	out := chatMessage{
		Role:    string(message.Role),
		Content: message.Content,
	}
	if message.Role == offer.RoleTool {
		out.ToolCallID = message.InvocationID
	}
	for i := range message.Invocations {
		invocation := message.Invocations[i]
		encodedArgs, err := json.Marshal(map[string]any{
			"current_offer": invocation.Arguments.CurrentOffer,
			"feedback":      invocation.Arguments.Feedback,
		})
		if err != nil {
			return chatMessage{}, fmt.Errorf("encode invocation %q arguments: %w", invocation.ID, err)
		}
		out.ToolCalls = append(out.ToolCalls, chatToolCall{
			ID:   invocation.ID,
			Type: "function",
			Function: chatToolCallFunction{
				Name:      invocation.Name,
				Arguments: string(encodedArgs),
			},
		})
	}
	return out, nil
}

func toModelReply(message chatMessage) (offer.ModelReply, error) {
	reply := offer.ModelReply{Content: message.Content}
	for _, call := range message.ToolCalls {
		arguments := map[string]any{}
		if trimmed := strings.TrimSpace(call.Function.Arguments); trimmed != "" {
			if err := json.Unmarshal([]byte(trimmed), &arguments); err != nil {
				return offer.ModelReply{}, fmt.Errorf("decode tool call %q arguments: %w", call.ID, err)
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, offer.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: arguments,
		})
	}
	return reply, nil
}
