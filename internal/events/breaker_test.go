package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

type failingPublisher struct {
	calls int
	err   error
}

func (f *failingPublisher) Publish(ctx context.Context, topic string, event any) error {
	f.calls++
	return f.err
}

func (f *failingPublisher) Close() error { return nil }

func TestBreakerPublisher_TripsAfterFailures(t *testing.T) {
	inner := &failingPublisher{err: errors.New("nats: connection closed")}
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.Timeout = time.Hour
	pub := NewBreakerPublisher(inner, cfg)

	for i := 0; i < 3; i++ {
		if err := pub.Publish(context.Background(), TopicDomainCreated, DomainCreated{}); err == nil {
			t.Fatalf("publish %d: expected error", i)
		}
	}
	if pub.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", pub.State())
	}

	err := pub.Publish(context.Background(), TopicDomainCreated, DomainCreated{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("open breaker error = %v, want ErrOpenState", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	inner := &failingPublisher{}
	pub := NewBreakerPublisher(inner, DefaultBreakerConfig())

	for i := 0; i < 10; i++ {
		if err := pub.Publish(context.Background(), TopicConfigCreated, ConfigCreated{}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if pub.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", pub.State())
	}
	if inner.calls != 10 {
		t.Errorf("inner calls = %d, want 10", inner.calls)
	}
}
