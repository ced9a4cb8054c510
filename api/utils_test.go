package api

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNextTimestampIsStrictlyIncreasing(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})
	base := time.Now().Add(time.Second).UnixNano()
	atomic.StoreInt64(&lastTimestamp, base)

	first := nextTimestamp()
	second := nextTimestamp()
	if first != base+1 || second != base+2 {
		t.Fatalf("expected %d and %d, got %d and %d", base+1, base+2, first, second)
	}
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	for _, name := range []string{"SESSION_TTL", "NAV_SETTLE_DELAY", "NAV_HEADER_OFFSET", "NOTIFY_WORKERS", "NOTIFY_BUFFER", "NOTIFY_TIMEOUT", "NOTIFY_HANDOFF_TIMEOUT"} {
		t.Setenv(name, "")
	}
	opts := OptionsFromEnv()
	if opts.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected session ttl %v", opts.SessionTTL)
	}
	if opts.Navigation.SettleDelay != time.Second || opts.Navigation.HeaderOffset != 68 {
		t.Fatalf("unexpected navigation config %+v", opts.Navigation)
	}
	if opts.Notify.Workers != 8 || opts.Notify.Buffer != 1024 || opts.Notify.HandoffTimeout != 15*time.Millisecond {
		t.Fatalf("unexpected notify options %+v", opts.Notify)
	}
}

func TestOptionsFromEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("NAV_SETTLE_DELAY", "750ms")
	t.Setenv("NAV_HEADER_OFFSET", "0")
	t.Setenv("NOTIFY_WORKERS", "2")

	opts := OptionsFromEnv()
	if opts.SessionTTL != 30*time.Minute || opts.Navigation.SettleDelay != 750*time.Millisecond {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Navigation.HeaderOffset != 0 || opts.Notify.Workers != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestOptionsFromEnvInlineWithoutWorkers(t *testing.T) {
	t.Setenv("NOTIFY_WORKERS", "0")
	t.Setenv("NOTIFY_BUFFER", "64")

	opts := OptionsFromEnv()
	if opts.Notify.Workers != 0 || opts.Notify.Buffer != 0 || opts.Notify.HandoffTimeout != 0 {
		t.Fatalf("expected inline notify options, got %+v", opts.Notify)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL", "")
	if d := EnvDuration("CATALOG_CACHE_TTL", time.Minute); d != time.Minute {
		t.Fatalf("expected default, got %v", d)
	}
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	if d := EnvDuration("CATALOG_CACHE_TTL", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d)
	}
	t.Setenv("CATALOG_CACHE_TTL", "0s")
	if d := EnvDuration("CATALOG_CACHE_TTL", time.Minute); d != 0 {
		t.Fatalf("expected zero to be accepted, got %v", d)
	}
}
