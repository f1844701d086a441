package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/newzealection/new-zealection/internal/auth"
	"github.com/newzealection/new-zealection/internal/web/middleware"
	"github.com/newzealection/new-zealection/internal/web/utils"
)

func newTestApp() (*fiber.App, *auth.SessionService) {
	sessions := auth.NewSessionService("test-key", false)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})

	webApp := &WebApp{Sessions: sessions}
	app.Get("/api/auth/validate", ValidateSession(webApp))

	// Register the public cards group before the authenticated /api group,
	// matching the registration order in SetupRoutes.
	public := app.Group("/api/cards")
	public.Use(middleware.OptionalAuth(sessions))
	public.Get("/", func(c *fiber.Ctx) error {
		if session, ok := utils.ExtractUserSession(c); ok {
			return utils.SendSuccess(c, session.UserID, "")
		}
		return utils.SendSuccess(c, "anonymous", "")
	})

	api := app.Group("/api")
	api.Use(middleware.AuthRequired(sessions))
	api.Get("/whoami", func(c *fiber.Ctx) error {
		session, _ := utils.ExtractUserSession(c)
		return utils.SendSuccess(c, session.UserID, "")
	})

	admin := app.Group("/admin/api")
	admin.Use(middleware.AuthRequired(sessions))
	admin.Use(middleware.AdminRequired())
	admin.Get("/ping", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "pong", "")
	})

	return app, sessions
}

func signedCookie(t *testing.T, sessions *auth.SessionService, isAdmin bool) *http.Cookie {
	t.Helper()
	encoded, err := sessions.EncodeSession(&auth.UserSession{
		UserID:    "user-1",
		Email:     "kea@example.co.nz",
		IsAdmin:   isAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to encode session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: encoded}
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, body)
	}
	return out
}

func TestValidateSessionWithoutCookie(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["success"] != false {
		t.Error("expected success=false envelope")
	}
}

func TestValidateSessionWithValidCookie(t *testing.T) {
	app, sessions := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	req.AddCookie(signedCookie(t, sessions, false))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	data := envelope["data"].(map[string]interface{})
	if data["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", data["user_id"])
	}
}

func TestValidateSessionRejectsExpired(t *testing.T) {
	app, sessions := newTestApp()

	encoded, err := sessions.EncodeSession(&auth.UserSession{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("failed to encode session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: encoded})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for an expired session", resp.StatusCode)
	}
}

func TestAuthRequiredBlocksAPIPaths(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for API request without session", resp.StatusCode)
	}
}

func TestAuthRequiredPassesSessionThrough(t *testing.T) {
	app, sessions := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(signedCookie(t, sessions, false))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["data"] != "user-1" {
		t.Errorf("data = %v, want user-1", envelope["data"])
	}
}

func TestAdminRequired(t *testing.T) {
	app, sessions := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/admin/api/ping", nil)
	req.AddCookie(signedCookie(t, sessions, false))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/api/ping", nil)
	req.AddCookie(signedCookie(t, sessions, true))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for admin", resp.StatusCode)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/cards/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without a session", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["data"] != "anonymous" {
		t.Errorf("data = %v, want anonymous", envelope["data"])
	}
}

func TestOptionalAuthAttributesSignedInUsers(t *testing.T) {
	app, sessions := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/cards/", nil)
	req.AddCookie(signedCookie(t, sessions, false))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["data"] != "user-1" {
		t.Errorf("data = %v, want user-1", envelope["data"])
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"5", 5},
		{"500", 50},
		{"0", 10},
		{"-3", 10},
		{"abc", 10},
	}

	for _, tt := range tests {
		if got := parseLimit(tt.raw, 10, 50); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
