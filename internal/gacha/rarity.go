package gacha

import "fmt"

// Rarity is the four-tier card classification. Each rarity maps to a fixed
// mana value that is snapshotted onto an owned card at roll time.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var manaValues = map[Rarity]int64{
	RarityLegendary: 500,
	RarityEpic:      400,
	RarityRare:      300,
	RarityCommon:    100,
}

// rarityOrder sorts by desirability, legendary first.
var rarityOrder = map[Rarity]int{
	RarityLegendary: 0,
	RarityEpic:      1,
	RarityRare:      2,
	RarityCommon:    3,
}

func ParseRarity(s string) (Rarity, error) {
	r := Rarity(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown rarity %q", s)
	}
	return r, nil
}

func (r Rarity) Valid() bool {
	_, ok := manaValues[r]
	return ok
}

// ManaValue returns the fixed mana value for the rarity. Unknown rarities are
// worth nothing rather than panicking on bad catalog data.
func (r Rarity) ManaValue() int64 {
	return manaValues[r]
}

// Order returns the sort rank of the rarity, legendary < epic < rare < common.
// Unknown rarities sort last.
func (r Rarity) Order() int {
	if rank, ok := rarityOrder[r]; ok {
		return rank
	}
	return len(rarityOrder)
}

// Rarities lists all valid rarities in descending desirability.
func Rarities() []Rarity {
	return []Rarity{RarityLegendary, RarityEpic, RarityRare, RarityCommon}
}
