package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rollStatusServer(status func() map[string]interface{}) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/roll/status", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, status())
	})
	return httptest.NewServer(mux)
}

func collectTicks(t *testing.T, ch <-chan CountdownTick, limit time.Duration) []CountdownTick {
	t.Helper()

	var ticks []CountdownTick
	timeout := time.After(limit)
	for {
		select {
		case tick, ok := <-ch:
			if !ok {
				return ticks
			}
			ticks = append(ticks, tick)
		case <-timeout:
			t.Fatal("countdown channel did not close in time")
		}
	}
}

func TestCountdownTicksDownToRollable(t *testing.T) {
	next := time.Now().Add(80 * time.Millisecond)
	srv := rollStatusServer(func() map[string]interface{} {
		if !next.After(time.Now()) {
			return map[string]interface{}{"can_roll": true, "remaining_seconds": 0}
		}
		return map[string]interface{}{
			"can_roll":          false,
			"remaining_seconds": int64(time.Until(next) / time.Second),
			"next_roll_at":      next.Format(time.RFC3339Nano),
		}
	})
	defer srv.Close()

	w := NewCountdownWatcher(newTestClient(t, srv.URL), 10*time.Millisecond)
	ticks := collectTicks(t, w.Watch(context.Background()), 2*time.Second)

	require.GreaterOrEqual(t, len(ticks), 3, "expected several ticks before the cooldown elapsed")

	final := ticks[len(ticks)-1]
	assert.True(t, final.CanRoll)
	assert.Equal(t, time.Duration(0), final.Remaining)

	prev := ticks[0].Remaining
	for _, tick := range ticks[1 : len(ticks)-1] {
		assert.False(t, tick.CanRoll)
		assert.Greater(t, tick.Remaining, time.Duration(0))
		assert.LessOrEqual(t, tick.Remaining, prev)
		prev = tick.Remaining
	}
}

func TestCountdownImmediateWhenRollable(t *testing.T) {
	srv := rollStatusServer(func() map[string]interface{} {
		return map[string]interface{}{"can_roll": true, "remaining_seconds": 0}
	})
	defer srv.Close()

	w := NewCountdownWatcher(newTestClient(t, srv.URL), 10*time.Millisecond)
	ticks := collectTicks(t, w.Watch(context.Background()), time.Second)

	require.Len(t, ticks, 1)
	assert.True(t, ticks[0].CanRoll)
}

func TestCountdownStopsOnCancel(t *testing.T) {
	// No next_roll_at in the payload, so the watcher falls back to
	// remaining_seconds for its deadline.
	srv := rollStatusServer(func() map[string]interface{} {
		return map[string]interface{}{
			"can_roll":          false,
			"remaining_seconds": int64(3600),
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewCountdownWatcher(newTestClient(t, srv.URL), 5*time.Millisecond)
	ch := w.Watch(ctx)

	first := <-ch
	assert.False(t, first.CanRoll)
	assert.Greater(t, first.Remaining, 59*time.Minute)

	cancel()

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("countdown did not stop after cancellation")
		}
	}
}
