package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dealdraft/dealdraft/adapters/openai"
	"github.com/dealdraft/dealdraft/offer"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string `json:"role"`
		Content    string `json:"content"`
		ToolCallID string `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools"`
}

func newAdapter(t *testing.T, serverURL string) *openai.Adapter {
	t.Helper()

	adapter, err := openai.New(openai.Config{
		APIKey:       "sk-test",
		ChatModel:    "gpt-4o",
		RewriteModel: "gpt-4-turbo",
		BaseURL:      serverURL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return adapter
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := openai.New(openai.Config{ChatModel: "gpt-4o"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := openai.New(openai.Config{APIKey: "sk-test"}); err == nil {
		t.Fatal("expected error for missing chat model")
	}
}

func TestCompleteSendsTranscriptAndParsesToolCalls(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {
							"name": "update_offer",
							"arguments": "{\"feedback\": \"raise the price\"}"
						}
					}]
				}
			}]
		}`))
	}))
	defer server.Close()

	adapter := newAdapter(t, server.URL)
	reply, err := adapter.Complete(context.Background(), offer.ModelRequest{
		System: "system prompt with the offer",
		Messages: []offer.Message{
			{ID: "m1", Role: offer.RoleUser, Content: "raise the price"},
		},
		Tools: []offer.ToolDefinition{offer.UpdateToolDefinition()},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if authHeader != "Bearer sk-test" {
		t.Fatalf("authorization = %q", authHeader)
	}
	if captured.Model != "gpt-4o" {
		t.Fatalf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != offer.UpdateToolName {
		t.Fatalf("tools = %+v", captured.Tools)
	}

	if len(reply.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(reply.ToolCalls))
	}
	call := reply.ToolCalls[0]
	if call.ID != "call-1" || call.Name != offer.UpdateToolName {
		t.Fatalf("call = %+v", call)
	}
	if call.Arguments["feedback"] != "raise the price" {
		t.Fatalf("arguments = %+v", call.Arguments)
	}
}

func TestCompleteEncodesInvocationHistory(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "done"}}]}`))
	}))
	defer server.Close()

	adapter := newAdapter(t, server.URL)
	_, err := adapter.Complete(context.Background(), offer.ModelRequest{
		Messages: []offer.Message{
			{ID: "m1", Role: offer.RoleUser, Content: "raise the price"},
			{
				ID:   "m2",
				Role: offer.RoleAssistant,
				Invocations: []offer.ToolInvocation{{
					ID:    "inv-1",
					Name:  offer.UpdateToolName,
					State: offer.InvocationStateResult,
					Arguments: offer.UpdateArguments{
						Feedback: "raise the price",
					},
				}},
			},
			{ID: "m3", Role: offer.RoleTool, InvocationID: "inv-1", Content: "I've updated the offer"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(captured.Messages))
	}
	assistant := captured.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "inv-1" {
		t.Fatalf("assistant tool calls = %+v", assistant.ToolCalls)
	}
	if !strings.Contains(assistant.ToolCalls[0].Function.Arguments, "raise the price") {
		t.Fatalf("encoded arguments = %q", assistant.ToolCalls[0].Function.Arguments)
	}
	toolMessage := captured.Messages[2]
	if toolMessage.Role != "tool" || toolMessage.ToolCallID != "inv-1" {
		t.Fatalf("tool message = %+v", toolMessage)
	}
}

func TestGenerateTextUsesRewriteModel(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "rewritten offer"}}]}`))
	}))
	defer server.Close()

	adapter := newAdapter(t, server.URL)
	out, err := adapter.GenerateText(context.Background(), "rewrite prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "rewritten offer" {
		t.Fatalf("out = %q", out)
	}
	if captured.Model != "gpt-4-turbo" {
		t.Fatalf("model = %q, want the rewrite model", captured.Model)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	if len(captured.Tools) != 0 {
		t.Fatalf("single-shot generation must not declare tools: %+v", captured.Tools)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	adapter := newAdapter(t, server.URL)
	_, err := adapter.GenerateText(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if !strings.Contains(err.Error(), "status=429") || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	adapter := newAdapter(t, server.URL)
	if _, err := adapter.Complete(context.Background(), offer.ModelRequest{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
