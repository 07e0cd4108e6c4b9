// Package content fingerprints card content so imports can recognize
// a card they have already seen, regardless of incidental whitespace
// or casing differences in the source file.
package content

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize lowercases, trims and joins the card's sides with a
// newline. The separator prevents distinct cards from colliding when
// one side's tail equals another's head.
func Normalize(front, back string) string {
	clean := func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimSpace(s)
		return strings.ReplaceAll(s, "\r\n", "\n")
	}
	return clean(front) + "\n" + clean(back)
}

// Hash returns the hex SHA-256 of the normalized content.
func Hash(front, back string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}
