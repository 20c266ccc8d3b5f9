package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// EventSource delivers raw stream messages in order. Next blocks until a
// message is available or the context ends; a non-context error signals a
// broken subscription that Run will re-establish with backoff.
type EventSource interface {
	Next(ctx context.Context) (json.RawMessage, error)
}

// Run consumes the source until the context is cancelled. Transport failures
// reconnect with exponential backoff; malformed messages are logged and
// skipped so one bad event cannot stall the feed.
func (p *Processor) Run(ctx context.Context, src EventSource) error {
	delay := initialReconnectDelay

	for {
		raw, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			p.logger.Error().Err(err).Dur("retry_in", delay).Msg("feed source failed, reconnecting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if delay *= 2; delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}
		delay = initialReconnectDelay

		if err := p.ProcessMessage(raw); err != nil {
			p.logger.Error().Err(err).Msg("failed to process feed event")
		}
	}
}
