package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisDeduperAddRemove(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})

	deduper := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "s1", "k1")
	if err != nil || !added {
		t.Fatalf("first add: %v %v", added, err)
	}
	added, err = deduper.Add(ctx, "s1", "k1")
	if err != nil || added {
		t.Fatalf("second add should be duplicate: %v %v", added, err)
	}
	if added, _ := deduper.Add(ctx, "s2", "k1"); !added {
		t.Fatal("keys must be namespaced by session")
	}
	if ttl := m.TTL("order:s1:k1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	if err := deduper.Remove(ctx, "s1", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if added, _ := deduper.Add(ctx, "s1", "k1"); !added {
		t.Fatal("expected key to be reusable after remove")
	}
}
