package client

import (
	"context"
	"log/slog"
	"time"
)

// CountdownTick is one observed moment of the roll cooldown. Remaining is
// zero and CanRoll true once the cooldown has elapsed.
type CountdownTick struct {
	Remaining time.Duration
	CanRoll   bool
}

// CountdownWatcher turns the one-shot roll status into a live countdown. It
// fetches the status once, then ticks locally without re-asking the server,
// and stops when the cooldown elapses or its context is cancelled.
type CountdownWatcher struct {
	client   *Client
	interval time.Duration
}

// NewCountdownWatcher creates a countdown over the caller's roll cooldown.
// interval defaults to one second.
func NewCountdownWatcher(c *Client, interval time.Duration) *CountdownWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &CountdownWatcher{client: c, interval: interval}
}

// Watch sends a tick on the returned channel at every interval. When the
// deadline passes the watcher confirms against the server, emits a final
// CanRoll tick, and closes the channel. A cancelled context closes the
// channel without a final tick.
func (w *CountdownWatcher) Watch(ctx context.Context) <-chan CountdownTick {
	out := make(chan CountdownTick, 1)

	go func() {
		defer close(out)

		deadline, ok := w.deadline(ctx)
		if !ok {
			return
		}
		if !w.emit(ctx, out, deadline) {
			return
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if time.Until(deadline) <= 0 {
					// Local clocks drift; confirm before declaring rollable.
					if d, ok := w.deadline(ctx); ok && d.After(time.Now()) {
						deadline = d
					}
				}
				if !w.emit(ctx, out, deadline) {
					return
				}
			}
		}
	}()

	return out
}

// deadline resolves the next-roll time from the server. ok is false when the
// status cannot be fetched; a zero deadline with ok set means roll now.
func (w *CountdownWatcher) deadline(ctx context.Context) (time.Time, bool) {
	status, err := w.client.RollStatus(ctx)
	if err != nil {
		slog.Debug("Roll status fetch failed", slog.String("error", err.Error()))
		return time.Time{}, false
	}
	if status.CanRoll {
		return time.Time{}, true
	}
	if status.NextRollAt != nil {
		return *status.NextRollAt, true
	}
	return time.Now().Add(time.Duration(status.RemainingSeconds) * time.Second), true
}

// emit sends one tick for deadline, returning false once the countdown is
// finished or ctx is done.
func (w *CountdownWatcher) emit(ctx context.Context, out chan<- CountdownTick, deadline time.Time) bool {
	tick := CountdownTick{Remaining: time.Until(deadline)}
	if tick.Remaining <= 0 {
		tick = CountdownTick{CanRoll: true}
	}
	select {
	case out <- tick:
	case <-ctx.Done():
		return false
	}
	return !tick.CanRoll
}
