package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/feed"
	applogger "FlowTrader/pkg/logger"
)

// SessionFactory builds the session of one market for a live run.
type SessionFactory func(market string) (*Session, error)

// LiveRunner drives one session per market from a multiplexed feed. All
// sessions live on the feed loop goroutine; only snapshots leave it.
type LiveRunner struct {
	transport   feed.Transport
	codec       feed.Codec
	markets     []string
	newSession  SessionFactory
	board       *Board
	bookkeeping time.Duration
	metrics     drepo.Metrics
	log         *applogger.Logger

	sessions map[string]*Session
}

func NewLiveRunner(transport feed.Transport, codec feed.Codec, markets []string, factory SessionFactory, board *Board, bookkeeping time.Duration, metrics drepo.Metrics, l *applogger.Logger) *LiveRunner {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	if board == nil {
		board = NewBoard()
	}
	return &LiveRunner{
		transport:   transport,
		codec:       codec,
		markets:     markets,
		newSession:  factory,
		board:       board,
		bookkeeping: bookkeeping,
		metrics:     metrics,
		log:         l,
	}
}

func (r *LiveRunner) Board() *Board { return r.board }

// Run blocks until ctx is cancelled. On the way out every session sends its
// summary and the feed transport is closed.
func (r *LiveRunner) Run(ctx context.Context) error {
	r.sessions = make(map[string]*Session, len(r.markets))
	for _, m := range r.markets {
		if _, dup := r.sessions[m]; dup {
			continue
		}
		s, err := r.newSession(m)
		if err != nil {
			return fmt.Errorf("session %s: %w", m, err)
		}
		r.sessions[m] = s
	}
	r.board.Track(r.markets...)

	mux := feed.NewMultiplexer(r.transport, r.codec, r.log,
		feed.WithTimer(r.bookkeeping, r.publish),
		feed.WithMetrics(r.metrics),
	)
	// Exit hooks run after cancellation, so their notifications need a live context.
	exitCtx := context.WithoutCancel(ctx)
	for code, s := range r.sessions {
		mux.Register(code, feed.Callbacks{
			OnTrade:     s.OnTrade,
			OnOrderbook: s.OnOrderbook,
			OnTicker:    func(t models.Ticker) { s.OnTicker(ctx, t) },
			OnCandle:    s.OnLiveCandle,
			OnExit:      func() { r.exit(exitCtx, s) },
		})
	}

	r.log.Info("live run started", applogger.Strings("markets", mux.Codes()))
	return mux.Run(ctx)
}

func (r *LiveRunner) publish(now time.Time) {
	for _, s := range r.sessions {
		r.board.Publish(s.Snapshot(now))
	}
}

func (r *LiveRunner) exit(ctx context.Context, s *Session) {
	now := time.Now().UTC()
	r.board.Publish(s.Snapshot(now))
	s.mgr.NotifySummary(ctx, now)
	sum := s.Summary(now)
	r.log.Info("session ended",
		applogger.String("market", sum.Market),
		applogger.String("strategy", sum.Strategy),
		applogger.Int("trades", sum.TotalTrades),
		applogger.Float64("win_rate", sum.WinRate),
		applogger.Float64("cumulative_pnl", sum.CumulativePnLPct),
		applogger.Float64("free_capital", sum.FreeCapital),
		applogger.Bool("in_position", s.Position().InPosition()),
	)
}

// Summaries returns the final ledger summary of every session, by market.
// Call it after Run returns.
func (r *LiveRunner) Summaries() []models.SessionSummary {
	now := time.Now().UTC()
	out := make([]models.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Summary(now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}
