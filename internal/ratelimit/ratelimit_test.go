package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("10.0.0.1", "Mozilla/5.0 (X11; Linux x86_64)")
	b := Fingerprint("10.0.0.1", "Mozilla/5.0 (X11; LiDIFFERENT TAIL")
	c := Fingerprint("10.0.0.2", "Mozilla/5.0 (X11; Linux x86_64)")

	if a != b {
		t.Error("expected only the first 20 user agent characters to matter")
	}
	if a == c {
		t.Error("expected different addresses to give different fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, but got %d characters", len(a))
	}
	if Fingerprint("", "") != Fingerprint("unknown", "unknown") {
		t.Error("expected missing values to fall back to 'unknown'")
	}
}

func checkLimiter(t *testing.T, l Limiter, key string, limit int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= limit; i++ {
		d, err := l.Allow(ctx, key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed || d.Count != i {
			t.Fatalf("request %d: expected allowed with count %d, but got %+v", i, i, d)
		}
	}

	d, err := l.Allow(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Errorf("expected request %d to be rejected, but got %+v", limit+1, d)
	}
	if d.Count != limit {
		t.Errorf("expected rejected request not to be counted, but got count %d", d.Count)
	}
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(3, 100, time.Hour)
	checkLimiter(t, l, "client-a", 3)

	d, _ := l.Allow(context.Background(), "client-b")
	if !d.Allowed {
		t.Error("expected independent counter per key")
	}
}

func TestMemoryLimiterWindowExpires(t *testing.T) {
	l := NewMemoryLimiter(1, 100, 50*time.Millisecond)
	ctx := context.Background()

	if d, _ := l.Allow(ctx, "client"); !d.Allowed {
		t.Fatal("expected first request to be allowed")
	}
	if d, _ := l.Allow(ctx, "client"); d.Allowed {
		t.Fatal("expected second request to be rejected")
	}

	time.Sleep(150 * time.Millisecond)

	if d, _ := l.Allow(ctx, "client"); !d.Allowed {
		t.Error("expected request after the window to be allowed")
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLimiter(client, 2, time.Minute, zaptest.NewLogger(t))
	key := "test-" + uuid.New().String()
	t.Cleanup(func() { client.Del(context.Background(), "onboarding:rate:"+key) })

	checkLimiter(t, l, key, 2)
}

func TestRedisLimiterUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLimiter(client, 2, time.Minute, zaptest.NewLogger(t))
	if _, err := l.Allow(context.Background(), "client"); err == nil {
		t.Error("expected error when redis is unreachable, but got nil")
	}
}
