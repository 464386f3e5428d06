// Package shortid generates the random codes used as short link paths.
package shortid

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the URL-safe set codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// DefaultLength is the length of generated short codes.
const DefaultLength = 7

// MaxSlugLength bounds user-chosen codes.
const MaxSlugLength = 64

// Generator produces random codes of a fixed length. Collisions are possible;
// uniqueness is enforced by the store.
type Generator struct {
	length int
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

func (g *Generator) Generate() (string, error) {
	return gonanoid.Generate(Alphabet, g.length)
}

// Valid reports whether s can be used verbatim as a short code.
func Valid(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}
