package utils

import (
	"context"
	"testing"
	"time"
)

func TestRedisMarker_RejectsBadInput(t *testing.T) {
	var m *RedisMarker
	if _, err := m.MarkOnce(context.Background(), "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil marker")
	}

	m = NewRedisMarker(nil, "ivr:")
	if _, err := m.MarkOnce(context.Background(), "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := m.Clear(context.Background(), "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
