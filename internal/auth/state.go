package auth

import (
	"sync"
)

// Event names an auth-state transition.
type Event string

const (
	// EventInitialSession delivers the session state that was already in
	// effect when the subscriber attached. It is not a transition and must
	// not be surfaced as a "signed in"/"signed out" notification.
	EventInitialSession Event = "initial_session"
	EventSignedIn       Event = "signed_in"
	EventSignedOut      Event = "signed_out"
	EventTokenRefreshed Event = "token_refreshed"
)

// Change is one auth-state delivery. Session is nil when signed out.
type Change struct {
	Event   Event
	Session *UserSession
}

// Broadcaster is the single process-wide auth-state store. Its lifecycle is
// explicit: subscribe on gate mount, release the returned unsubscribe on
// unmount. Every subscriber first receives EventInitialSession with the
// current state, then genuine transitions.
type Broadcaster struct {
	mu      sync.Mutex
	current *UserSession
	subs    map[int]chan Change
	nextID  int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan Change),
	}
}

// Subscribe registers a listener. The first delivery on the channel is always
// the initial-session snapshot. The returned function releases the
// subscription; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Change, 8)
	ch <- Change{Event: EventInitialSession, Session: b.current}
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, unsubscribe
}

// Publish records the new state and fans it out to all subscribers. Slow
// subscribers drop deliveries instead of blocking the publisher.
func (b *Broadcaster) Publish(event Event, session *UserSession) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch event {
	case EventSignedIn, EventTokenRefreshed:
		b.current = session
	case EventSignedOut:
		b.current = nil
	}

	change := Change{Event: event, Session: b.current}
	for _, sub := range b.subs {
		select {
		case sub <- change:
		default:
		}
	}
}

// Current returns the session in effect, or nil when signed out.
func (b *Broadcaster) Current() *UserSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
