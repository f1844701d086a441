package models

import (
	"time"

	"github.com/newzealection/new-zealection/internal/collection"
)

// SessionResponse is returned by the session validation endpoint.
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RollStatusResponse reports whether a user can roll and the countdown until
// the next roll.
type RollStatusResponse struct {
	CanRoll          bool       `json:"can_roll"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	NextRollAt       *time.Time `json:"next_roll_at,omitempty"`
	LastRollAt       *time.Time `json:"last_roll_at,omitempty"`
}

// RollResponse is the card a roll produced.
type RollResponse struct {
	UserCardID   string    `json:"user_card_id"`
	CardID       string    `json:"card_id"`
	UniqueCardID string    `json:"unique_card_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	Rarity       string    `json:"rarity"`
	ImageURL     string    `json:"image_url"`
	Description  string    `json:"description,omitempty"`
	ManaValue    int64     `json:"mana_value"`
	CollectedAt  time.Time `json:"collected_at"`
}

// SellRequest identifies the owned card to sell. The idempotency key lets a
// client retry safely after a network failure.
type SellRequest struct {
	UserCardID     string `json:"user_card_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// SellResponse is the receipt for a completed sale.
type SellResponse struct {
	UserCardID  string `json:"user_card_id"`
	CardID      string `json:"card_id"`
	ManaAwarded int64  `json:"mana_awarded"`
	ManaBalance int64  `json:"mana_balance"`
}

// ManaResponse reports a user's mana balance.
type ManaResponse struct {
	UserID string `json:"user_id"`
	Mana   int64  `json:"mana"`
}

// CollectionResponse bundles a user's filtered cards with the location values
// the filter dropdown offers.
type CollectionResponse struct {
	Cards     []collection.OwnedCard `json:"cards"`
	Locations []string               `json:"locations"`
	Total     int                    `json:"total"`
}

// SaleRecord is one row of a user's sale history.
type SaleRecord struct {
	ID         string    `json:"id"`
	UserCardID string    `json:"user_card_id"`
	CardID     string    `json:"card_id"`
	ManaValue  int64     `json:"mana_value"`
	Status     string    `json:"status"`
	SoldAt     time.Time `json:"sold_at"`
}

// CatalogCard is the public view of a catalog entry.
type CatalogCard struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Rarity      string `json:"rarity"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description,omitempty"`
	CardCode    string `json:"card_code"`
	Season      string `json:"season"`
}

// CardCreateRequest is the admin payload for adding a catalog card.
type CardCreateRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Rarity      string `json:"rarity"`
	Description string `json:"description"`
	CardCode    string `json:"card_code"`
	Season      string `json:"season"`
	ImageURL    string `json:"image_url"`
}

// CardBulkCreateRequest seeds many catalog cards at once.
type CardBulkCreateRequest struct {
	Cards []CardCreateRequest `json:"cards"`
}

// BulkCreateResult reports how many rows a bulk seed actually inserted.
type BulkCreateResult struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}
