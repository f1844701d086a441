package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Profile mirrors the identity provider's stable user id and email. Rows are
// upserted at sign-in.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID    string `bun:"id,pk,type:uuid"`
	Email string `bun:"email"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
