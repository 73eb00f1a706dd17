// Package deadline enforces the per-request generation ceiling around model
// calls. There are deliberately no retry decorators: retry in this system is
// a manual user action, never automatic.
package deadline

import (
	"context"
	"time"

	"github.com/dealdraft/dealdraft/offer"
)

// DefaultCeiling matches the overall per-request limit the editing flows
// tolerate before treating an operation as failed.
const DefaultCeiling = 60 * time.Second

func normalizedCeiling(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return DefaultCeiling
	}
	return ceiling
}

// WrapChatModel bounds every completion call with the ceiling.
func WrapChatModel(model offer.ChatModel, ceiling time.Duration) offer.ChatModel {
	if model == nil {
		return nil
	}
	return &chatModelWrapper{
		next:    model,
		ceiling: normalizedCeiling(ceiling),
	}
}

type chatModelWrapper struct {
	next    offer.ChatModel
	ceiling time.Duration
}

func (w *chatModelWrapper) Complete(ctx context.Context, request offer.ModelRequest) (offer.ModelReply, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return offer.ModelReply{}, ctxErr
	}
	boundedCtx, cancel := context.WithTimeout(ctx, w.ceiling)
	defer cancel()
	return w.next.Complete(boundedCtx, request)
}

// WrapTextGenerator bounds every single-shot generation with the ceiling.
func WrapTextGenerator(generator offer.TextGenerator, ceiling time.Duration) offer.TextGenerator {
	if generator == nil {
		return nil
	}
	return &textGeneratorWrapper{
		next:    generator,
		ceiling: normalizedCeiling(ceiling),
	}
}

type textGeneratorWrapper struct {
	next    offer.TextGenerator
	ceiling time.Duration
}

func (w *textGeneratorWrapper) GenerateText(ctx context.Context, prompt string) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	boundedCtx, cancel := context.WithTimeout(ctx, w.ceiling)
	defer cancel()
	return w.next.GenerateText(boundedCtx, prompt)
}
