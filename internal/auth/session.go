package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	SessionCookieName = "nz_session"
	StateCookieName   = "oauth_state"

	SessionTTL = 24 * time.Hour
)

// UserSession is the signed payload stored in the session cookie.
type UserSession struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionService manages HMAC-signed cookie sessions.
type SessionService struct {
	sessionKey string
	secure     bool
}

func NewSessionService(sessionKey string, secure bool) *SessionService {
	return &SessionService{
		sessionKey: sessionKey,
		secure:     secure,
	}
}

// CreateSession signs the session and sets the session cookie.
func (s *SessionService) CreateSession(c *fiber.Ctx, userSession *UserSession) error {
	signed, err := s.EncodeSession(userSession)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	slog.Info("Session created",
		slog.String("user_id", userSession.UserID),
		slog.String("email", userSession.Email))

	return nil
}

// GetSession retrieves and validates the user session from the request.
func (s *SessionService) GetSession(c *fiber.Ctx) (*UserSession, error) {
	sessionCookie := c.Cookies(SessionCookieName)
	if sessionCookie == "" {
		return nil, fmt.Errorf("no session cookie found")
	}

	userSession, err := s.DecodeSession(sessionCookie)
	if err != nil {
		return nil, err
	}

	if time.Now().After(userSession.ExpiresAt) {
		s.DestroySession(c)
		return nil, fmt.Errorf("session expired")
	}

	return userSession, nil
}

// DestroySession removes the session cookie.
func (s *SessionService) DestroySession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// RefreshSession extends the session expiration time.
func (s *SessionService) RefreshSession(c *fiber.Ctx, userSession *UserSession) error {
	userSession.ExpiresAt = time.Now().Add(SessionTTL)
	return s.CreateSession(c, userSession)
}

// SetState stores the OAuth state parameter in a short-lived signed cookie.
func (s *SessionService) SetState(c *fiber.Ctx, state string) error {
	signed, err := s.signData([]byte(state))
	if err != nil {
		return fmt.Errorf("failed to sign state: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}

// GetAndClearState retrieves and clears the OAuth state parameter.
func (s *SessionService) GetAndClearState(c *fiber.Ctx) (string, error) {
	stateCookie := c.Cookies(StateCookieName)
	if stateCookie == "" {
		return "", fmt.Errorf("no state cookie found")
	}

	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	stateData, err := s.verifyAndDecodeData(stateCookie)
	if err != nil {
		return "", fmt.Errorf("invalid state signature: %w", err)
	}

	return string(stateData), nil
}

// EncodeSession serializes and signs a session.
func (s *SessionService) EncodeSession(userSession *UserSession) (string, error) {
	sessionData, err := json.Marshal(userSession)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	signed, err := s.signData(sessionData)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// DecodeSession verifies the signature and deserializes a session.
func (s *SessionService) DecodeSession(encoded string) (*UserSession, error) {
	sessionData, err := s.verifyAndDecodeData(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid session signature: %w", err)
	}

	var userSession UserSession
	if err := json.Unmarshal(sessionData, &userSession); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &userSession, nil
}

// signData signs data using HMAC-SHA256.
func (s *SessionService) signData(data []byte) (string, error) {
	if s.sessionKey == "" {
		return "", fmt.Errorf("session key not configured")
	}

	h := hmac.New(sha256.New, []byte(s.sessionKey))
	h.Write(data)
	signature := h.Sum(nil)

	combined := append(data, signature...)
	return base64.URLEncoding.EncodeToString(combined), nil
}

// verifyAndDecodeData verifies the signature and returns the original data.
func (s *SessionService) verifyAndDecodeData(encodedData string) ([]byte, error) {
	if s.sessionKey == "" {
		return nil, fmt.Errorf("session key not configured")
	}

	combined, err := base64.URLEncoding.DecodeString(encodedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	if len(combined) < sha256.Size {
		return nil, fmt.Errorf("invalid data length")
	}

	data := combined[:len(combined)-sha256.Size]
	receivedSignature := combined[len(combined)-sha256.Size:]

	h := hmac.New(sha256.New, []byte(s.sessionKey))
	h.Write(data)
	expectedSignature := h.Sum(nil)

	if !hmac.Equal(receivedSignature, expectedSignature) {
		return nil, fmt.Errorf("signature verification failed")
	}

	return data, nil
}
