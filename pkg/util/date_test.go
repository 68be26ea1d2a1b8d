package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestExchangeTimes(t *testing.T) {
	utc, err := ParseExchangeTime("2024-05-01T00:01:00", time.UTC)
	if err != nil {
		t.Fatalf("parse utc: %v", err)
	}
	kst, err := ParseExchangeTime("2024-05-01T09:01:00", KST)
	if err != nil {
		t.Fatalf("parse kst: %v", err)
	}
	if !utc.Equal(kst) {
		t.Fatalf("utc %v and kst %v should be the same instant", utc, kst)
	}
	if got := FormatCursor(kst); got != "2024-05-01T00:01:00Z" {
		t.Fatalf("cursor %q", got)
	}
}

func TestFromMillis(t *testing.T) {
	if !FromMillis(0).IsZero() {
		t.Fatalf("zero millis should give zero time")
	}
	want := time.Date(2024, 5, 1, 0, 0, 1, 500_000_000, time.UTC)
	if got := FromMillis(want.UnixMilli()); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
