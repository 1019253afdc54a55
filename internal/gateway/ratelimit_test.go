package gateway

import "testing"

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl.Enabled() {
		t.Fatal("rpm 0 must disable limiting")
	}
	for i := 0; i < 1000; i++ {
		if !rl.Allow("c1") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(60)

	allowed := 0
	for i := 0; i < 20; i++ {
		if rl.Allow("c1") {
			allowed++
		}
	}
	if allowed >= 20 {
		t.Errorf("allowed = %d, expected throttling after the burst", allowed)
	}
	if allowed == 0 {
		t.Error("burst entirely rejected")
	}

	// Independent clients have independent budgets.
	if !rl.Allow("c2") {
		t.Error("fresh client throttled by another client's usage")
	}
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewRateLimiter(60)
	for i := 0; i < 20; i++ {
		rl.Allow("c1")
	}
	rl.Forget("c1")
	if !rl.Allow("c1") {
		t.Error("budget not reset after Forget")
	}
}
