package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// GateState is where the session gate currently stands.
type GateState int

const (
	// GateChecking means the gate has not yet resolved the session.
	GateChecking GateState = iota
	// GateAuthenticated means a valid session exists.
	GateAuthenticated
	// GateUnauthenticated means there is no session; protected views should
	// redirect to login.
	GateUnauthenticated
)

func (s GateState) String() string {
	switch s {
	case GateChecking:
		return "checking"
	case GateAuthenticated:
		return "authenticated"
	case GateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// GateChange is one observed state of the gate. Initial marks deliveries
// that report pre-existing state rather than an actual transition: the
// snapshot a new subscriber receives on subscribe, and the gate's first
// resolution out of GateChecking. Subscribers that react to sign-in and
// sign-out (toasts, redirect loops) should skip changes where Initial is set.
type GateChange struct {
	State   GateState
	Session *Session
	Initial bool
}

// Gate resolves and tracks the user's session so protected views can decide
// between rendering and redirecting. The zero state is GateChecking: nothing
// should redirect before the first validation finishes.
type Gate struct {
	client   *Client
	interval time.Duration

	mu      sync.Mutex
	state   GateState
	session *Session
	subs    map[int]chan GateChange
	nextID  int
}

// NewGate wraps a client in a session gate. interval is how often the session
// is revalidated while the gate runs; zero means every five minutes.
func NewGate(c *Client, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Gate{
		client:   c,
		interval: interval,
		state:    GateChecking,
		subs:     make(map[int]chan GateChange),
	}
}

// State returns the current gate state and session snapshot.
func (g *Gate) State() (GateState, *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.session
}

// Subscribe registers for gate changes. The current state is delivered first
// with Initial set, then every transition until unsubscribe. The returned
// function is safe to call more than once.
func (g *Gate) Subscribe() (<-chan GateChange, func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++

	ch := make(chan GateChange, 8)
	g.subs[id] = ch

	ch <- GateChange{State: g.state, Session: g.session, Initial: true}
	g.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Run validates the session immediately and then on every interval tick until
// ctx is cancelled. The first validation moves the gate out of GateChecking.
func (g *Gate) Run(ctx context.Context) {
	g.check(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.check(ctx)
		}
	}
}

// Check revalidates the session once and returns the resulting state.
func (g *Gate) Check(ctx context.Context) GateState {
	g.check(ctx)
	state, _ := g.State()
	return state
}

func (g *Gate) check(ctx context.Context) {
	session, err := g.client.ValidateSession(ctx)

	var next GateState
	switch {
	case err == nil:
		next = GateAuthenticated
	case errors.Is(err, ErrUnauthorized):
		next = GateUnauthenticated
	default:
		// Transient failure. An established session survives a flaky check;
		// an unresolved gate stays in checking rather than bouncing the user
		// to login on a network blip.
		slog.Debug("Session check failed", slog.String("error", err.Error()))
		return
	}

	g.mu.Lock()
	resolving := g.state == GateChecking
	changed := g.state != next
	g.state = next
	g.session = session
	subs := make([]chan GateChange, 0, len(g.subs))
	for _, ch := range g.subs {
		subs = append(subs, ch)
	}
	g.mu.Unlock()

	if !changed {
		return
	}

	// Leaving GateChecking resolves pre-existing state, not a user action, so
	// the change carries Initial like the subscribe-time snapshot does.
	change := GateChange{State: next, Session: session, Initial: resolving}
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}
