// Package idgen generates preset ids on the server and placeholder ids on
// the client.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every server-assigned preset ID.
var DefaultPrefix = "ps-"

// PlaceholderPrefix marks ids minted locally before the server has answered.
const PlaceholderPrefix = "tmp-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// Generate returns a new unique ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Placeholder returns a temporary id for an optimistically inserted preset.
// It can never collide with a server id.
func Placeholder() string {
	return PlaceholderPrefix + uuid.NewString()
}

// IsPlaceholder reports whether id was produced by Placeholder.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}
