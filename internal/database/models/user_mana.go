package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserMana is the per-user currency balance. Exactly one row exists per user;
// the row is created lazily at 0 on first read.
type UserMana struct {
	bun.BaseModel `bun:"table:user_mana,alias:um"`

	ID     string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID string `bun:"user_id,notnull,unique,type:uuid"`
	Mana   int64  `bun:"mana,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
