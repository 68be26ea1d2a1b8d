package clickhouse

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "flowtrader",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: time.Minute,
	})
	if !strings.HasPrefix(dsn, "clickhouse://default:p%40ss@ch:9000/flowtrader?") {
		t.Fatalf("dsn %q", dsn)
	}
	if !strings.Contains(dsn, "dial_timeout=5s") || !strings.Contains(dsn, "max_execution_time=60") {
		t.Fatalf("dsn params %q", dsn)
	}

	if dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, UseHTTP: true}); !strings.HasPrefix(dsn, "http://ch:8123/") {
		t.Fatalf("http dsn %q", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected error without host")
	}
}
