package notify

import (
	"context"
	"sync"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	applogger "FlowTrader/pkg/logger"
)

// Async delivers events on their own goroutines so the trading loop never
// waits on a sink. Delivery failures are logged and counted, not returned.
type Async struct {
	next    drepo.Notifier
	timeout time.Duration
	metrics drepo.Metrics
	log     *applogger.Logger
	wg      sync.WaitGroup
}

var _ drepo.Notifier = (*Async)(nil)

func NewAsync(next drepo.Notifier, timeout time.Duration, metrics drepo.Metrics, l *applogger.Logger) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Async{next: next, timeout: timeout, metrics: metrics, log: l}
}

func (a *Async) PositionOpened(ctx context.Context, ev models.PositionEvent) error {
	a.dispatch(ctx, "position_opened", ev.Market, func(c context.Context) error { return a.next.PositionOpened(c, ev) })
	return nil
}

func (a *Async) PositionClosed(ctx context.Context, ev models.PositionEvent) error {
	a.dispatch(ctx, "position_closed", ev.Market, func(c context.Context) error { return a.next.PositionClosed(c, ev) })
	return nil
}

func (a *Async) SessionEnded(ctx context.Context, s models.SessionSummary) error {
	a.dispatch(ctx, "session_ended", s.Market, func(c context.Context) error { return a.next.SessionEnded(c, s) })
	return nil
}

// Wait blocks until every delivery started so far has finished.
func (a *Async) Wait() { a.wg.Wait() }

func (a *Async) dispatch(ctx context.Context, event, market string, send func(context.Context) error) {
	// Deliveries outlive the caller's cancellation but not the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		if err := send(ctx); err != nil {
			a.metrics.RecordError("notify")
			a.log.Warn("notification failed",
				applogger.String("event", event),
				applogger.String("market", market),
				applogger.Error(err),
			)
		}
	}()
}
