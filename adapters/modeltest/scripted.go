// Package modeltest provides deterministic model and generator doubles for
// protocol tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dealdraft/dealdraft/offer"
)

// Response configures one completion round in a scripted sequence.
type Response struct {
	Reply offer.ModelReply
	Err   error
}

// ScriptedModel is a deterministic chat model for session tests. It replays
// the configured responses in order and records every request it receives.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []offer.ModelRequest
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{
		responses: cloned,
	}
}

var _ offer.ChatModel = (*ScriptedModel)(nil)

func (m *ScriptedModel) Complete(_ context.Context, request offer.ModelRequest) (offer.ModelReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, offer.ModelRequest{
		System:   request.System,
		Messages: offer.CloneMessages(request.Messages),
		Tools:    request.Tools,
	})

	if m.index >= len(m.responses) {
		return offer.ModelReply{}, fmt.Errorf("script exhausted at round %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return offer.ModelReply{}, current.Err
	}
	return current.Reply, nil
}

// Requests returns the completion requests observed so far.
func (m *ScriptedModel) Requests() []offer.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]offer.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GeneratorFunc adapts a function to the TextGenerator seam.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

var _ offer.TextGenerator = (GeneratorFunc)(nil)

func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StaticGenerator always returns the same text.
func StaticGenerator(text string) GeneratorFunc {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}
