// Package eventing composes session event sinks.
package eventing

import (
	"context"
	"errors"

	"github.com/dealdraft/dealdraft/offer"
)

// Fanout publishes every event to all wrapped sinks. Publish errors are
// joined so one failing sink cannot hide another.
type Fanout struct {
	sinks []offer.EventSink
}

var _ offer.EventSink = (*Fanout)(nil)

func NewFanout(sinks ...offer.EventSink) *Fanout {
	out := make([]offer.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Publish(ctx context.Context, event offer.Event) error {
	var errs error
	for _, sink := range f.sinks {
		errs = errors.Join(errs, sink.Publish(ctx, event))
	}
	return errs
}
