package notify

import (
	"context"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
}

const (
	EventOpened  = "position_opened"
	EventClosed  = "position_closed"
	EventSummary = "session_ended"
)

// Envelope is the message value published per event.
type Envelope struct {
	Type     string                 `json:"type"`
	Market   string                 `json:"market"`
	Position *models.PositionEvent  `json:"position,omitempty"`
	Summary  *models.SessionSummary `json:"summary,omitempty"`
}

// Kafka publishes events keyed by market, so one market's events stay ordered.
type Kafka struct {
	pub   Publisher
	topic string
}

var _ drepo.Notifier = (*Kafka)(nil)

func NewKafka(pub Publisher, topic string) *Kafka {
	return &Kafka{pub: pub, topic: topic}
}

func (k *Kafka) PositionOpened(ctx context.Context, ev models.PositionEvent) error {
	return k.publish(ctx, Envelope{Type: EventOpened, Market: ev.Market, Position: &ev})
}

func (k *Kafka) PositionClosed(ctx context.Context, ev models.PositionEvent) error {
	return k.publish(ctx, Envelope{Type: EventClosed, Market: ev.Market, Position: &ev})
}

func (k *Kafka) SessionEnded(ctx context.Context, s models.SessionSummary) error {
	return k.publish(ctx, Envelope{Type: EventSummary, Market: s.Market, Summary: &s})
}

func (k *Kafka) publish(ctx context.Context, env Envelope) error {
	return k.pub.Publish(ctx, k.topic, []byte(env.Market), env)
}
