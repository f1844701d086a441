package client

import (
	"context"
	"log/slog"
	"time"
)

// RecentWatcher polls the recent-cards feed and emits cards it has not seen
// before, oldest first. It stops cleanly when its context is cancelled.
type RecentWatcher struct {
	client   *Client
	interval time.Duration
	limit    int

	seen map[string]struct{}
}

// NewRecentWatcher creates a watcher over the global recent feed. interval
// defaults to thirty seconds, limit to ten.
func NewRecentWatcher(c *Client, interval time.Duration, limit int) *RecentWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if limit <= 0 {
		limit = 10
	}
	return &RecentWatcher{
		client:   c,
		interval: interval,
		limit:    limit,
		seen:     make(map[string]struct{}),
	}
}

// Watch polls until ctx is cancelled, sending unseen cards on the returned
// channel. The channel is closed when the watcher stops. The first poll seeds
// the seen set without emitting, so subscribers only hear about cards
// collected after they started watching.
func (w *RecentWatcher) Watch(ctx context.Context) <-chan OwnedCard {
	out := make(chan OwnedCard, w.limit)

	go func() {
		defer close(out)

		if cards, err := w.client.Recent(ctx, w.limit); err == nil {
			for _, card := range cards {
				w.seen[card.UniqueCardID] = struct{}{}
			}
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll(ctx, out)
			}
		}
	}()

	return out
}

func (w *RecentWatcher) poll(ctx context.Context, out chan<- OwnedCard) {
	cards, err := w.client.Recent(ctx, w.limit)
	if err != nil {
		slog.Debug("Recent feed poll failed", slog.String("error", err.Error()))
		return
	}

	// The feed is newest first; emit unseen entries oldest first.
	for i := len(cards) - 1; i >= 0; i-- {
		card := cards[i]
		if _, ok := w.seen[card.UniqueCardID]; ok {
			continue
		}
		w.seen[card.UniqueCardID] = struct{}{}

		select {
		case out <- card:
		case <-ctx.Done():
			return
		}
	}
}
