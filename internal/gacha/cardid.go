package gacha

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const instanceSuffixLen = 4

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewInstanceCode builds a unique instance code for an owned card, of the form
// CODE-SEASON-XXXX. The suffix is random; uniqueness is ultimately enforced by
// the unique constraint on user_cards.unique_card_id.
func NewInstanceCode(cardCode, season string) (string, error) {
	suffix, err := randomBase36(instanceSuffixLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate instance suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s",
		strings.ToUpper(cardCode),
		strings.ToUpper(season),
		suffix,
	), nil
}

func randomBase36(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range bytes {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out), nil
}
