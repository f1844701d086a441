package models

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/gacha"
)

// Card is a catalog template. Catalog rows are immutable from the player's
// point of view; only admin seeding writes them.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID          string       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Title       string       `bun:"title,notnull"`
	Location    string       `bun:"location,notnull"`
	Rarity      gacha.Rarity `bun:"rarity,notnull,default:'common'"`
	ImageURL    string       `bun:"image_url,notnull"`
	Description string       `bun:"description,type:text,default:''"`
	CardCode    string       `bun:"card_code,notnull"`
	Season      string       `bun:"season,notnull,default:'S1'"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
