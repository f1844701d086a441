package auth

import (
	"testing"
)

func TestSubscribeDeliversInitialSessionFirst(t *testing.T) {
	b := NewBroadcaster()
	session := &UserSession{UserID: "user-1"}
	b.Publish(EventSignedIn, session)

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	change := <-ch
	if change.Event != EventInitialSession {
		t.Fatalf("first delivery = %q, want %q", change.Event, EventInitialSession)
	}
	if change.Session == nil || change.Session.UserID != "user-1" {
		t.Errorf("initial snapshot session = %+v, want user-1", change.Session)
	}
}

func TestSubscribeBeforeAnySignIn(t *testing.T) {
	b := NewBroadcaster()

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	change := <-ch
	if change.Event != EventInitialSession {
		t.Fatalf("first delivery = %q, want %q", change.Event, EventInitialSession)
	}
	if change.Session != nil {
		t.Errorf("expected nil session before any sign-in, got %+v", change.Session)
	}
}

func TestPublishTransitions(t *testing.T) {
	b := NewBroadcaster()

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()
	<-ch // drain the initial snapshot

	b.Publish(EventSignedIn, &UserSession{UserID: "user-1"})
	change := <-ch
	if change.Event != EventSignedIn || change.Session.UserID != "user-1" {
		t.Errorf("got %+v, want signed_in for user-1", change)
	}
	if b.Current() == nil {
		t.Error("Current() should reflect the signed-in session")
	}

	b.Publish(EventSignedOut, nil)
	change = <-ch
	if change.Event != EventSignedOut || change.Session != nil {
		t.Errorf("got %+v, want signed_out with nil session", change)
	}
	if b.Current() != nil {
		t.Error("Current() should be nil after sign-out")
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := NewBroadcaster()

	ch, unsubscribe := b.Subscribe()
	<-ch

	unsubscribe()
	unsubscribe() // second call must not panic

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(EventSignedIn, &UserSession{UserID: "user-1"})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()

	_, unsubscribe := b.Subscribe()
	defer unsubscribe()

	// Fill well past the channel buffer; Publish must never block.
	for i := 0; i < 100; i++ {
		b.Publish(EventTokenRefreshed, &UserSession{UserID: "user-1"})
	}
}
