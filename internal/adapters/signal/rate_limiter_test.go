package signal

import (
	"testing"
	"time"
)

func TestJoinRateLimiter(t *testing.T) {
	t.Run("blocks at limit", func(t *testing.T) {
		rl := NewJoinRateLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			if !rl.Allow(1) {
				t.Fatalf("attempt %d blocked, want allowed", i)
			}
		}
		if rl.Allow(1) {
			t.Fatalf("attempt over limit allowed")
		}
	})

	t.Run("users are independent", func(t *testing.T) {
		rl := NewJoinRateLimiter(1, time.Minute)
		if !rl.Allow(1) {
			t.Fatalf("first user blocked")
		}
		if !rl.Allow(2) {
			t.Fatalf("second user blocked by first user's attempts")
		}
	})

	t.Run("window expires", func(t *testing.T) {
		rl := NewJoinRateLimiter(1, 10*time.Millisecond)
		if !rl.Allow(1) {
			t.Fatalf("first attempt blocked")
		}
		if rl.Allow(1) {
			t.Fatalf("second attempt inside window allowed")
		}
		time.Sleep(20 * time.Millisecond)
		if !rl.Allow(1) {
			t.Fatalf("attempt after window expiry blocked")
		}
	})
}
