package auth

import (
	"encoding/base64"
	"testing"
	"time"
)

func testSession() *UserSession {
	return &UserSession{
		UserID:    "user-1",
		Email:     "kea@example.co.nz",
		IsAdmin:   true,
		ExpiresAt: time.Now().Add(SessionTTL).Truncate(time.Second),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessionService("test-key", false)

	encoded, err := s.EncodeSession(testSession())
	if err != nil {
		t.Fatalf("EncodeSession returned error: %v", err)
	}

	decoded, err := s.DecodeSession(encoded)
	if err != nil {
		t.Fatalf("DecodeSession returned error: %v", err)
	}

	want := testSession()
	if decoded.UserID != want.UserID || decoded.Email != want.Email || decoded.IsAdmin != want.IsAdmin {
		t.Errorf("DecodeSession = %+v, want %+v", decoded, want)
	}
	if !decoded.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", decoded.ExpiresAt, want.ExpiresAt)
	}
}

func TestDecodeSessionRejectsTampering(t *testing.T) {
	s := NewSessionService("test-key", false)

	encoded, err := s.EncodeSession(testSession())
	if err != nil {
		t.Fatalf("EncodeSession returned error: %v", err)
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	raw[0] ^= 0xff
	tampered := base64.URLEncoding.EncodeToString(raw)

	if _, err := s.DecodeSession(tampered); err == nil {
		t.Error("DecodeSession accepted a tampered payload")
	}
}

func TestDecodeSessionRejectsWrongKey(t *testing.T) {
	encoded, err := NewSessionService("key-a", false).EncodeSession(testSession())
	if err != nil {
		t.Fatalf("EncodeSession returned error: %v", err)
	}

	if _, err := NewSessionService("key-b", false).DecodeSession(encoded); err == nil {
		t.Error("DecodeSession accepted a session signed with a different key")
	}
}

func TestDecodeSessionRejectsGarbage(t *testing.T) {
	s := NewSessionService("test-key", false)

	for _, input := range []string{"", "not-base64!!!", base64.URLEncoding.EncodeToString([]byte("short"))} {
		if _, err := s.DecodeSession(input); err == nil {
			t.Errorf("DecodeSession(%q) should fail", input)
		}
	}
}

func TestEncodeSessionRequiresKey(t *testing.T) {
	s := NewSessionService("", false)
	if _, err := s.EncodeSession(testSession()); err == nil {
		t.Error("EncodeSession should fail without a session key")
	}
}
