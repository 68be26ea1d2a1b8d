package notify

import (
	"context"
	"errors"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
)

// Multi fans every event out to all sinks and joins their errors.
type Multi []drepo.Notifier

func (m Multi) PositionOpened(ctx context.Context, ev models.PositionEvent) error {
	return m.each(func(n drepo.Notifier) error { return n.PositionOpened(ctx, ev) })
}

func (m Multi) PositionClosed(ctx context.Context, ev models.PositionEvent) error {
	return m.each(func(n drepo.Notifier) error { return n.PositionClosed(ctx, ev) })
}

func (m Multi) SessionEnded(ctx context.Context, s models.SessionSummary) error {
	return m.each(func(n drepo.Notifier) error { return n.SessionEnded(ctx, s) })
}

func (m Multi) each(fn func(drepo.Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
