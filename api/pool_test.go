package api

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"menu-api/domain"
)

func newIdleSender(t *testing.T, buffer int, handoff time.Duration) *orderSender {
	t.Helper()
	logger, _ := test.NewNullLogger()
	s := newOrderSender(newMockPublisher(), nil, logger, NotifyOptions{Buffer: buffer, HandoffTimeout: handoff})
	return s
}

func TestTryEnqueueWaitsForCapacity(t *testing.T) {
	s := newIdleSender(t, 1, 50*time.Millisecond)
	s.jobs <- orderJob{}

	done := make(chan bool, 1)
	go func() {
		done <- s.tryEnqueue(orderJob{})
	}()

	select {
	case <-done:
		t.Fatal("tryEnqueue returned before capacity was freed")
	case <-time.After(20 * time.Millisecond):
	}

	<-s.jobs

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("expected successful enqueue after capacity freed")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for enqueue completion")
	}
}

func TestTryEnqueueTimesOut(t *testing.T) {
	s := newIdleSender(t, 1, 30*time.Millisecond)
	s.jobs <- orderJob{}

	if s.tryEnqueue(orderJob{}) {
		t.Fatal("expected enqueue to fail when timeout elapsed")
	}
	select {
	case <-s.jobs:
	default:
		t.Fatal("expected channel to remain full after timeout")
	}
}

func TestTryEnqueueReturnsFalseWhenClosed(t *testing.T) {
	s := newIdleSender(t, 0, time.Millisecond)
	s.shutdown()

	if s.tryEnqueue(orderJob{}) {
		t.Fatal("expected enqueue to fail when channel is closed")
	}
}

func TestSendPublishesInlineWhenSaturated(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := newMockPublisher()
	s := newOrderSender(pub, nil, logger, NotifyOptions{})

	if err := s.send(orderJob{order: domain.OrderConfirmation{ID: "o1"}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := pub.Orders(); len(got) != 1 || got[0].ID != "o1" {
		t.Fatalf("expected inline publish, got %+v", got)
	}
}

func TestPublishFailureRollsBackKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	deduper := NewRedisDeduper(client, time.Minute)

	ctx := context.Background()
	if added, err := deduper.Add(ctx, "s1", "k1"); err != nil || !added {
		t.Fatalf("seed key: %v %v", added, err)
	}

	logger, hook := test.NewNullLogger()
	pub := newMockPublisher()
	pub.err = errors.New("queue down")
	s := newOrderSender(pub, deduper, logger, NotifyOptions{Workers: 1, Buffer: 1, Timeout: time.Second})
	t.Cleanup(s.shutdown)

	if err := s.send(orderJob{order: domain.OrderConfirmation{ID: "o1", SessionID: "s1"}, key: "k1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-pub.sent:
	case <-time.After(time.Second):
		t.Fatal("worker did not publish")
	}

	deadline := time.Now().Add(time.Second)
	for mr.Exists(deduper.key("s1", "k1")) {
		if time.Now().After(deadline) {
			t.Fatal("idempotency key was not rolled back")
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline = time.Now().Add(time.Second)
	for !containsError(hook) {
		if time.Now().After(deadline) {
			t.Fatal("publish failure was not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func containsError(hook *test.Hook) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == log.ErrorLevel {
			return true
		}
	}
	return false
}

func TestLogPublisherRecordsOrder(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := newOrderSender(nil, nil, logger, NotifyOptions{})
	if err := s.send(orderJob{order: domain.OrderConfirmation{ID: "o9", Items: make([]domain.CartItem, 2)}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "order.confirmed" || entry.Data["order"] != "o9" || entry.Data["items"] != 2 {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}
