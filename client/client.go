// Package client is the Go consumer for the New Zealection API. It caches
// read queries, retries transient read failures with bounded backoff, and
// keeps mutations (roll, sell) strictly single-shot.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnauthorized   = errors.New("not authenticated")
	ErrRollOnCooldown = errors.New("roll is on cooldown")
	ErrCardNotFound   = errors.New("card not found in collection")
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = 200 * time.Millisecond
	defaultMaxDelay   = 2 * time.Second
)

// Client talks to the New Zealection API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *queryCache

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	newIdempotencyKey func() string
}

type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCacheTTL overrides how long read queries are served from cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache.ttl = ttl }
}

// WithMaxRetries bounds how many attempts a read query makes. Mutations are
// never retried regardless of this setting.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	cache, err := newQueryCache(128, 30*time.Second)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		cache:             cache,
		maxRetries:        defaultMaxRetries,
		baseDelay:         defaultBaseDelay,
		maxDelay:          defaultMaxDelay,
		newIdempotencyKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session is the authenticated user as the server sees it.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OwnedCard is one card instance in a user's collection.
type OwnedCard struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	UniqueCardID string    `json:"unique_card_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	Rarity       string    `json:"rarity"`
	ImageURL     string    `json:"image_url"`
	Description  string    `json:"description"`
	ManaValue    int64     `json:"mana_value"`
	CollectedAt  time.Time `json:"collected_at"`
}

// CollectionPage is a filtered view of the user's cards plus the location
// values available for filtering.
type CollectionPage struct {
	Cards     []OwnedCard `json:"cards"`
	Locations []string    `json:"locations"`
	Total     int         `json:"total"`
}

// CollectionQuery selects and orders a collection view. Zero value means
// everything, sorted by rarity.
type CollectionQuery struct {
	Rarity   string
	Location string
	SortBy   string
}

func (q CollectionQuery) cacheKey() string {
	return "collection|" + q.Rarity + "|" + q.Location + "|" + q.SortBy
}

// RollStatus reports roll eligibility.
type RollStatus struct {
	CanRoll          bool       `json:"can_roll"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	NextRollAt       *time.Time `json:"next_roll_at"`
	LastRollAt       *time.Time `json:"last_roll_at"`
}

// RolledCard is the card a roll produced.
type RolledCard struct {
	UserCardID   string    `json:"user_card_id"`
	CardID       string    `json:"card_id"`
	UniqueCardID string    `json:"unique_card_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	Rarity       string    `json:"rarity"`
	ImageURL     string    `json:"image_url"`
	ManaValue    int64     `json:"mana_value"`
	CollectedAt  time.Time `json:"collected_at"`
}

// SellResult is the outcome of a completed sale, including the refreshed
// collection and balance.
type SellResult struct {
	UserCardID  string
	CardID      string
	ManaAwarded int64
	ManaBalance int64

	Collection *CollectionPage
}

// ValidateSession returns the current session or ErrUnauthorized.
func (c *Client) ValidateSession(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.getJSON(ctx, "/api/auth/validate", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Collection fetches the user's cards for the given query. Results are served
// from cache until the TTL expires or a mutation invalidates them.
func (c *Client) Collection(ctx context.Context, query CollectionQuery) (*CollectionPage, error) {
	key := query.cacheKey()
	if page, ok := c.cache.get(key); ok {
		return page.(*CollectionPage), nil
	}

	params := url.Values{}
	if query.Rarity != "" {
		params.Set("rarity", query.Rarity)
	}
	if query.Location != "" {
		params.Set("location", query.Location)
	}
	if query.SortBy != "" {
		params.Set("sort", query.SortBy)
	}

	var page CollectionPage
	if err := c.getJSON(ctx, "/api/collection", params, &page); err != nil {
		return nil, err
	}

	c.cache.set(key, &page)
	return &page, nil
}

// Mana returns the user's mana balance.
func (c *Client) Mana(ctx context.Context) (int64, error) {
	if v, ok := c.cache.get("mana"); ok {
		return v.(int64), nil
	}

	var resp struct {
		UserID string `json:"user_id"`
		Mana   int64  `json:"mana"`
	}
	if err := c.getJSON(ctx, "/api/mana", nil, &resp); err != nil {
		return 0, err
	}

	c.cache.set("mana", resp.Mana)
	return resp.Mana, nil
}

// RollStatus reports whether the user can roll right now. Never cached; the
// countdown changes every second.
func (c *Client) RollStatus(ctx context.Context) (*RollStatus, error) {
	var status RollStatus
	if err := c.getJSON(ctx, "/api/roll/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Recent lists the latest cards collected across all users.
func (c *Client) Recent(ctx context.Context, limit int) ([]OwnedCard, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var cards []OwnedCard
	if err := c.getJSON(ctx, "/api/cards/recent", params, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Roll draws a card. The request is made exactly once: a roll that fails in
// flight must not be blindly repeated, the server may have already drawn.
func (c *Client) Roll(ctx context.Context) (*RolledCard, error) {
	var card RolledCard
	if err := c.doOnce(ctx, http.MethodPost, "/api/roll", nil, &card); err != nil {
		return nil, err
	}

	// The collection and the recent feed are stale now.
	c.cache.invalidatePrefix("collection")
	return &card, nil
}

// Sell sells an owned card for its mana value, then refetches the collection
// and balance concurrently so the caller sees consistent post-sale state. The
// sale itself is sent exactly once; the idempotency key means a caller-level
// retry after a network failure cannot credit twice.
func (c *Client) Sell(ctx context.Context, userCardID string) (*SellResult, error) {
	return c.sellWithKey(ctx, userCardID, c.newIdempotencyKey())
}

// SellWithIdempotencyKey is Sell with a caller-chosen key, for retrying a
// sale whose first attempt failed in flight.
func (c *Client) SellWithIdempotencyKey(ctx context.Context, userCardID, key string) (*SellResult, error) {
	return c.sellWithKey(ctx, userCardID, key)
}

func (c *Client) sellWithKey(ctx context.Context, userCardID, key string) (*SellResult, error) {
	body := map[string]string{
		"user_card_id":    userCardID,
		"idempotency_key": key,
	}

	var resp struct {
		UserCardID  string `json:"user_card_id"`
		CardID      string `json:"card_id"`
		ManaAwarded int64  `json:"mana_awarded"`
		ManaBalance int64  `json:"mana_balance"`
	}
	if err := c.doOnce(ctx, http.MethodPost, "/api/sell", body, &resp); err != nil {
		return nil, err
	}

	c.cache.invalidatePrefix("collection")
	c.cache.invalidate("mana")

	result := &SellResult{
		UserCardID:  resp.UserCardID,
		CardID:      resp.CardID,
		ManaAwarded: resp.ManaAwarded,
		ManaBalance: resp.ManaBalance,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := c.Collection(gctx, CollectionQuery{})
		if err != nil {
			return err
		}
		result.Collection = page
		return nil
	})
	g.Go(func() error {
		balance, err := c.Mana(gctx)
		if err != nil {
			return err
		}
		result.ManaBalance = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		// The sale committed; the refresh is best effort.
		return result, nil
	}

	return result, nil
}

// Logout clears the server session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doOnce(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.cache.purge()
	return err
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// getJSON performs a read with bounded exponential backoff. Only transport
// errors and 5xx responses are retried.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	delay := c.baseDelay

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status=%d", resp.StatusCode)
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		return err
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// doOnce performs a mutation exactly once, no retries.
func (c *Client) doOnce(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrRollOnCooldown
	case http.StatusNotFound:
		return ErrCardNotFound
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}

	if !envelope.Success {
		msg := "request failed"
		if envelope.Error != nil {
			msg = envelope.Error.Message
		}
		return fmt.Errorf("api error: status=%d message=%s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
