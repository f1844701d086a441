package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusFailed    SaleStatus = "failed"
)

// CardSale is the audit row written inside the sell transaction. The
// idempotency key lets a replayed sell request return the recorded outcome
// instead of crediting the balance twice.
type CardSale struct {
	bun.BaseModel `bun:"table:card_sales,alias:cs"`

	ID             string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserCardID     string     `bun:"user_card_id,notnull,type:uuid"`
	CardID         string     `bun:"card_id,notnull,type:uuid"`
	UserID         string     `bun:"user_id,notnull,type:uuid"`
	ManaValue      int64      `bun:"mana_value,notnull"`
	Status         SaleStatus `bun:"status,notnull,default:'completed'"`
	IdempotencyKey string     `bun:"idempotency_key,unique,nullzero"`
	SoldAt         time.Time  `bun:"sold_at,notnull,default:current_timestamp"`
}
