// Package feed multiplexes one exchange stream onto per-instrument callbacks.
package feed

import (
	"context"
	"errors"
	"sort"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	applogger "FlowTrader/pkg/logger"
)

type EventType int

const (
	EventUnknown EventType = iota
	EventTrade
	EventOrderbook
	EventTicker
	EventCandle
)

func (t EventType) String() string {
	switch t {
	case EventTrade:
		return "trade"
	case EventOrderbook:
		return "orderbook"
	case EventTicker:
		return "ticker"
	case EventCandle:
		return "candle"
	default:
		return "unknown"
	}
}

// Event is one decoded inbound message. Exactly one payload matches Type.
type Event struct {
	Type      EventType
	Code      string
	Trade     models.Trade
	Orderbook models.Orderbook
	Ticker    models.Ticker
	Candle    models.Candle
}

// ErrUnsupported is returned by a Codec for frames it recognises but does not route.
var ErrUnsupported = errors.New("unsupported message type")

// Transport is a single bidirectional stream connection.
type Transport interface {
	// Open connects and sends the subscription frame.
	Open(ctx context.Context, subscription []byte) error
	// Read blocks until the next frame arrives or the connection fails.
	Read() ([]byte, error)
	Close() error
}

// Codec builds the subscription frame and decodes inbound frames.
type Codec interface {
	Subscription(codes []string) ([]byte, error)
	Decode(frame []byte) (Event, error)
}

// Callbacks is the handler set registered for one instrument code.
// Nil handlers are skipped.
type Callbacks struct {
	OnTrade     func(models.Trade)
	OnOrderbook func(models.Orderbook)
	OnTicker    func(models.Ticker)
	OnCandle    func(models.Candle)
	OnExit      func()
}

type Option func(*Multiplexer)

// WithTimer installs a periodic bookkeeping hook run on the loop goroutine.
func WithTimer(every time.Duration, fn func(time.Time)) Option {
	return func(m *Multiplexer) {
		m.timerEvery = every
		m.onTimer = fn
	}
}

func WithMetrics(metrics drepo.Metrics) Option {
	return func(m *Multiplexer) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// Multiplexer owns one transport for the lifetime of Run. All callbacks run on
// the goroutine that called Run, one at a time.
type Multiplexer struct {
	transport Transport
	codec     Codec
	handlers  map[string]Callbacks
	log       *applogger.Logger
	metrics   drepo.Metrics

	timerEvery time.Duration
	onTimer    func(time.Time)
}

func NewMultiplexer(transport Transport, codec Codec, l *applogger.Logger, opts ...Option) *Multiplexer {
	if l == nil {
		l = applogger.Nop()
	}
	m := &Multiplexer{
		transport: transport,
		codec:     codec,
		handlers:  make(map[string]Callbacks),
		log:       l,
		metrics:   drepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register sets the callbacks for code. It must be called before Run.
func (m *Multiplexer) Register(code string, cb Callbacks) {
	m.handlers[code] = cb
}

// Codes returns the registered instrument codes in name order.
func (m *Multiplexer) Codes() []string {
	codes := make([]string, 0, len(m.handlers))
	for c := range m.handlers {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Run connects, subscribes every registered code to all channels, and
// dispatches until ctx is cancelled. On cancellation each OnExit runs exactly
// once before the transport is closed. A read failure stops reading but Run
// still waits for cancellation; it never returns on its own after connecting.
func (m *Multiplexer) Run(ctx context.Context) error {
	codes := m.Codes()
	sub, err := m.codec.Subscription(codes)
	if err != nil {
		return err
	}
	if err := m.transport.Open(ctx, sub); err != nil {
		return err
	}
	m.log.Info("feed subscribed", applogger.Strings("codes", codes))

	done := make(chan struct{})
	frames := m.readLoop(done)

	var tick <-chan time.Time
	if m.onTimer != nil && m.timerEvery > 0 {
		t := time.NewTicker(m.timerEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case now := <-tick:
			m.onTimer(now)
		case r, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if r.err != nil {
				m.log.Error("feed read failed, waiting for shutdown", applogger.Error(r.err))
				m.metrics.RecordError("feed_read")
				frames = nil
				continue
			}
			m.dispatch(r.frame)
		}
	}

	close(done)
	m.exit()
	if err := m.transport.Close(); err != nil {
		m.log.Warn("feed close failed", applogger.Error(err))
	}
	return nil
}

type readResult struct {
	frame []byte
	err   error
}

// readLoop pumps frames until the first error or until done is closed.
func (m *Multiplexer) readLoop(done <-chan struct{}) <-chan readResult {
	out := make(chan readResult)
	go func() {
		defer close(out)
		for {
			b, err := m.transport.Read()
			select {
			case out <- readResult{frame: b, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func (m *Multiplexer) dispatch(frame []byte) {
	ev, err := m.codec.Decode(frame)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			m.log.Debug("feed frame ignored", applogger.Error(err))
			return
		}
		m.log.Warn("feed frame dropped", applogger.Error(err), applogger.Int("bytes", len(frame)))
		m.metrics.RecordDropped("malformed")
		return
	}
	cb, ok := m.handlers[ev.Code]
	if !ok {
		m.log.Warn("feed frame for unknown code", applogger.String("code", ev.Code), applogger.String("type", ev.Type.String()))
		m.metrics.RecordDropped("unknown_code")
		return
	}
	switch ev.Type {
	case EventTrade:
		if cb.OnTrade != nil {
			cb.OnTrade(ev.Trade)
		}
	case EventOrderbook:
		if cb.OnOrderbook != nil {
			cb.OnOrderbook(ev.Orderbook)
		}
	case EventTicker:
		if cb.OnTicker != nil {
			cb.OnTicker(ev.Ticker)
		}
	case EventCandle:
		if cb.OnCandle != nil {
			cb.OnCandle(ev.Candle)
		}
	default:
		m.metrics.RecordDropped("unknown_type")
	}
}

func (m *Multiplexer) exit() {
	for _, code := range m.Codes() {
		if cb := m.handlers[code]; cb.OnExit != nil {
			cb.OnExit()
		}
	}
}
