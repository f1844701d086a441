package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserCard is one user's instance of a catalog card. ManaValue is snapshotted
// from the card's rarity when the card is rolled and used verbatim on sell, so
// later value-table changes never touch already-owned cards.
type UserCard struct {
	bun.BaseModel `bun:"table:user_cards,alias:uc"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID       string    `bun:"user_id,notnull,type:uuid"`
	CardID       string    `bun:"card_id,notnull,type:uuid"`
	UniqueCardID string    `bun:"unique_card_id,notnull,unique"`
	ManaValue    int64     `bun:"mana_value,notnull,default:0"`
	CollectedAt  time.Time `bun:"collected_at,notnull,default:current_timestamp"`
	LastRollAt   time.Time `bun:"last_roll_at,notnull,default:current_timestamp"`
}
