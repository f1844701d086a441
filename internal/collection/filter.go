package collection

import (
	"sort"
	"strings"
	"time"

	"github.com/newzealection/new-zealection/internal/gacha"
)

// FilterAll disables a filter dimension.
const FilterAll = "all"

type SortKey string

const (
	SortByRarity    SortKey = "rarity"
	SortByLocation  SortKey = "location"
	SortByCollected SortKey = "collected"
)

// Filters narrow a collection view. Dimensions compose with logical AND; an
// empty value or FilterAll leaves a dimension open.
type Filters struct {
	Rarity   string
	Location string
}

// OwnedCard is the joined view of a user's card instance and its catalog
// template, the unit the collection grid renders.
type OwnedCard struct {
	ID           string       `json:"id"`
	CardID       string       `json:"card_id"`
	UniqueCardID string       `json:"unique_card_id"`
	Title        string       `json:"title"`
	Location     string       `json:"location"`
	Rarity       gacha.Rarity `json:"rarity"`
	ImageURL     string       `json:"image_url"`
	Description  string       `json:"description"`
	ManaValue    int64        `json:"mana_value"`
	CollectedAt  time.Time    `json:"collected_at"`
}

// Apply filters and sorts a collection view. The input slice is not modified.
// Sorting is stable so that equal keys keep their incoming relative order,
// which keeps the output deterministic for identical inputs.
func Apply(cards []OwnedCard, filters Filters, sortBy SortKey) []OwnedCard {
	out := make([]OwnedCard, 0, len(cards))
	for _, card := range cards {
		if !matchFilter(filters.Rarity, string(card.Rarity)) {
			continue
		}
		if !matchFilter(filters.Location, card.Location) {
			continue
		}
		out = append(out, card)
	}

	switch sortBy {
	case SortByRarity:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Rarity.Order() < out[j].Rarity.Order()
		})
	case SortByLocation:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Location < out[j].Location
		})
	case SortByCollected:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CollectedAt.After(out[j].CollectedAt)
		})
	}

	return out
}

func matchFilter(want, got string) bool {
	return want == "" || want == FilterAll || want == got
}

// Locations derives the distinct, sorted set of locations present in the
// user's own cards. The filter dropdown is built from this, not from the full
// catalog.
func Locations(cards []OwnedCard) []string {
	seen := make(map[string]struct{}, len(cards))
	var out []string
	for _, card := range cards {
		if _, ok := seen[card.Location]; ok {
			continue
		}
		seen[card.Location] = struct{}{}
		out = append(out, card.Location)
	}
	sort.Strings(out)
	return out
}

// ParseSortKey maps a query parameter to a sort key, defaulting to rarity.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(s)) {
	case SortByLocation:
		return SortByLocation
	case SortByCollected:
		return SortByCollected
	default:
		return SortByRarity
	}
}
