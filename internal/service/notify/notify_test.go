package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"FlowTrader/internal/domain/models"
	apphttp "FlowTrader/pkg/http"
)

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestWebhookEmbeds(t *testing.T) {
	var (
		mu   sync.Mutex
		msgs []webhookMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		var m webhookMessage
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		msgs = append(msgs, m)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", apphttp.NewClient())
	ctx := context.Background()
	if err := wh.PositionOpened(ctx, models.PositionEvent{Market: "KRW-BTC", Strategy: "absorption", Price: 100, StopLoss: 99, TakeProfit: 103, RiskReward: 3, At: at}); err != nil {
		t.Fatalf("opened: %v", err)
	}
	if err := wh.PositionClosed(ctx, models.PositionEvent{Market: "KRW-BTC", Price: 98, PnL: -2, PnLPct: -0.02, Reason: "Trailing stop", At: at}); err != nil {
		t.Fatalf("closed: %v", err)
	}
	if err := wh.SessionEnded(ctx, models.SessionSummary{Market: "KRW-BTC", TotalTrades: 4, Wins: 3, WinRate: 0.75, At: at}); err != nil {
		t.Fatalf("summary: %v", err)
	}

	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Username != DefaultUsername || msgs[0].Embeds[0].Title != "Buy signal" {
		t.Fatalf("buy message %+v", msgs[0])
	}
	if d := msgs[0].Embeds[0].Description; !strings.Contains(d, "(+3.00%)") || !strings.Contains(d, "(-1.00%)") || !strings.Contains(d, "2024-05-01 09:30:00 UTC") {
		t.Fatalf("buy description %q", d)
	}
	if d := msgs[1].Embeds[0].Description; !strings.Contains(d, "stopped out") || !strings.Contains(d, "-2.00%") {
		t.Fatalf("sell description %q", d)
	}
	if d := msgs[2].Embeds[0].Description; !strings.Contains(d, "**Win rate**: 75.00%") || !strings.Contains(d, "**Trades**: 4") {
		t.Fatalf("summary description %q", d)
	}
}

func TestWebhookStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "bot", nil).SessionEnded(context.Background(), models.SessionSummary{})
	var se *apphttp.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
}

type fakePublisher struct {
	mu    sync.Mutex
	topic string
	keys  []string
	vals  []Envelope
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.keys = append(f.keys, string(key))
	f.vals = append(f.vals, value.(Envelope))
	return nil
}

func TestKafkaEnvelopes(t *testing.T) {
	pub := &fakePublisher{}
	k := NewKafka(pub, "positions")
	ctx := context.Background()
	_ = k.PositionOpened(ctx, models.PositionEvent{Market: "KRW-BTC", Price: 1})
	_ = k.PositionClosed(ctx, models.PositionEvent{Market: "KRW-ETH", Price: 2})
	_ = k.SessionEnded(ctx, models.SessionSummary{Market: "KRW-BTC", TotalTrades: 1})

	if pub.topic != "positions" || len(pub.vals) != 3 {
		t.Fatalf("published %d to %q", len(pub.vals), pub.topic)
	}
	if pub.keys[1] != "KRW-ETH" || pub.vals[1].Type != EventClosed || pub.vals[1].Position.Price != 2 {
		t.Fatalf("closed envelope %+v", pub.vals[1])
	}
	if pub.vals[2].Type != EventSummary || pub.vals[2].Summary == nil || pub.vals[2].Position != nil {
		t.Fatalf("summary envelope %+v", pub.vals[2])
	}
}

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
	err     error
}

func (b *blockingNotifier) record(ctx context.Context) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return b.err
}

func (b *blockingNotifier) PositionOpened(ctx context.Context, _ models.PositionEvent) error {
	return b.record(ctx)
}

func (b *blockingNotifier) PositionClosed(ctx context.Context, _ models.PositionEvent) error {
	return b.record(ctx)
}

func (b *blockingNotifier) SessionEnded(ctx context.Context, _ models.SessionSummary) error {
	return b.record(ctx)
}

func TestAsyncDoesNotBlock(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(next, time.Minute, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.PositionOpened(ctx, models.PositionEvent{})
		_ = a.PositionClosed(ctx, models.PositionEvent{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("async notifier blocked the caller")
	}

	cancel()
	close(next.release)
	a.Wait()
	if next.calls != 2 {
		t.Fatalf("deliveries %d, want 2 despite caller cancellation", next.calls)
	}
}

func TestAsyncTimeout(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{})}
	a := NewAsync(next, 10*time.Millisecond, nil, nil)
	_ = a.SessionEnded(context.Background(), models.SessionSummary{})
	a.Wait()
	if next.calls != 0 {
		t.Fatalf("timed out delivery should not complete")
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &fakePublisher{}
	failing := &blockingNotifier{release: make(chan struct{}), err: errors.New("down")}
	close(failing.release)

	m := Multi{NewKafka(ok, "t"), failing}
	err := m.PositionOpened(context.Background(), models.PositionEvent{Market: "KRW-BTC"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.vals) != 1 || failing.calls != 1 {
		t.Fatalf("every sink must be called")
	}
}
