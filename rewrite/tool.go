// Package rewrite implements the offer-update tool and the file-based
// auto-population flow. Both produce complete replacement documents through
// one single-shot generation; neither retries, falls back, or persists.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dealdraft/dealdraft/offer"
)

const updatePromptTemplate = `You are an AI assistant specializing in updating real estate offers based on user feedback.
Modify the offer to incorporate the user's feedback while maintaining the overall structure and professional tone of the document.
Respond ONLY with the updated offer in markdown format, without any additional commentary.
Do NOT wrap the response in code fences or any other delimiters.

Current offer:
%s

User feedback:
%s

Updated offer:`

// Tool rewrites the current offer from natural-language feedback.
type Tool struct {
	generator offer.TextGenerator
}

var _ offer.ToolExecutor = (*Tool)(nil)

func NewTool(generator offer.TextGenerator) (*Tool, error) {
	if generator == nil {
		return nil, errors.New("new update tool: text generator is required")
	}
	return &Tool{generator: generator}, nil
}

// Execute produces the full replacement document plus a short confirmation.
// The current offer may be empty (first-time population); feedback must not
// be, and is rejected before any generation call. Empty generation output
// fails the invocation so the caller can inform the user; the unmodified
// document is never returned as a success.
func (t *Tool) Execute(ctx context.Context, currentOffer, feedback string) (offer.UpdateOutcome, error) {
	if ctx == nil {
		return offer.UpdateOutcome{}, offer.ErrContextNil
	}
	if strings.TrimSpace(feedback) == "" {
		return offer.UpdateOutcome{}, offer.ErrEmptyFeedback
	}

	prompt := fmt.Sprintf(updatePromptTemplate, currentOffer, feedback)
	updated, err := t.generator.GenerateText(ctx, prompt)
	if err != nil {
		return offer.UpdateOutcome{}, fmt.Errorf("update offer: %w", err)
	}
	if strings.TrimSpace(updated) == "" {
		return offer.UpdateOutcome{}, fmt.Errorf("update offer: %w", offer.ErrGenerationFailed)
	}

	return offer.UpdateOutcome{
		Confirmation: fmt.Sprintf("I've updated the offer based on your feedback: %q", feedback),
		UpdatedOffer: updated,
	}, nil
}
