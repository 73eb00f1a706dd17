package chathub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dealdraft/dealdraft/internal/config"
	"github.com/dealdraft/dealdraft/offer"
)

type eventLogSink struct {
	logger    *slog.Logger
	logFormat config.LogFormat
}

// NewEventLogSink mirrors session events to the debug log.
func NewEventLogSink(logger *slog.Logger, logFormat config.LogFormat) offer.EventSink {
	if logger == nil {
		return nil
	}
	if logFormat == "" {
		logFormat = config.LogFormatText
	}
	return eventLogSink{
		logger:    logger,
		logFormat: logFormat,
	}
}

func (s eventLogSink) Publish(ctx context.Context, event offer.Event) error {
	if ctx == nil {
		return offer.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if s.logFormat == config.LogFormatJSON {
		s.logger.Debug("session event", slog.Any("event", event))
		return nil
	}

	eventPayload, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return marshalErr
	}

	s.logger.Debug("session event", slog.String("event", string(eventPayload)))
	return nil
}
