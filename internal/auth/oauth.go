package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newzealection/new-zealection/internal/config"
)

// ProviderUser is the identity returned by the OAuth provider's userinfo
// endpoint. ID is the stable user identifier all tables key on.
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// OAuthService runs the authorization-code flow against the configured
// identity provider.
type OAuthService struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

func NewOAuthService(cfg config.OAuthConfig) *OAuthService {
	return &OAuthService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateState creates a random state parameter for CSRF protection.
func (o *OAuthService) GenerateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// AuthorizeURL builds the provider's authorization URL.
func (o *OAuthService) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", o.cfg.ClientID)
	params.Set("redirect_uri", o.cfg.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(o.cfg.Scopes, " "))
	params.Set("state", state)

	return o.cfg.AuthURL + "?" + params.Encode()
}

// ExchangeCodeForToken exchanges an authorization code for an access token.
func (o *OAuthService) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", o.cfg.ClientID)
	data.Set("client_secret", o.cfg.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", o.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.TokenURL,
		strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint error: %s", string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	return tokenResp.AccessToken, nil
}

// FetchUser loads the authenticated user's identity from the provider.
func (o *OAuthService) FetchUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo endpoint error: %s", string(body))
	}

	var user ProviderUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("userinfo response missing user id")
	}

	return &user, nil
}
