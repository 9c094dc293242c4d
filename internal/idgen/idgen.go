// Package idgen generates short local identifiers for folder references.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// FolderRefPrefix is prepended to folder reference ids.
const FolderRefPrefix = "fr-"

// Alphabet is lower-case only so ids survive case-insensitive lookups.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// FolderRefID returns a new folder reference id such as "fr-0k3v9x2m1q7a".
func FolderRefID() (string, error) {
	return WithPrefix(FolderRefPrefix)
}

// WithPrefix returns a new id with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Valid reports whether id has the given prefix followed by Length
// characters from Alphabet.
func Valid(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
