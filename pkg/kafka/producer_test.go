package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishEncodes(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, "gzip", reg)

	if err := p.Publish(context.Background(), "events", []byte("KRW-BTC"), map[string]int{"n": 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.PublishBatch(context.Background(), "events", []Message{{Value: "raw"}, {Value: []byte("bytes")}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(w.msgs) != 3 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	if string(w.msgs[0].Value) != `{"n":1}` || string(w.msgs[0].Key) != "KRW-BTC" || w.msgs[0].Topic != "events" {
		t.Fatalf("first message %+v", w.msgs[0])
	}
	if string(w.msgs[1].Value) != "raw" || string(w.msgs[2].Value) != "bytes" {
		t.Fatalf("raw values %q %q", w.msgs[1].Value, w.msgs[2].Value)
	}
	if got := testutil.ToFloat64(p.metrics.msgs.WithLabelValues("events", "gzip", "ok")); got != 3 {
		t.Fatalf("ok counter %v", got)
	}
}

func TestPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip", prometheus.NewRegistry())
	if err := p.Publish(context.Background(), "events", nil, "x"); err == nil {
		t.Fatalf("expected error")
	}
	if got := testutil.ToFloat64(p.metrics.errs.WithLabelValues("events")); got != 1 {
		t.Fatalf("error counter %v", got)
	}
	if err := p.Publish(context.Background(), "events", nil, func() {}); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithHashByKey(true), WithCompression("none"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.metrics != nil {
		t.Fatalf("metrics without registerer")
	}
	_ = p.Close()
}
