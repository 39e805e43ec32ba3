package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Built-in code alphabets. Alphanumeric codes are minted uppercase; lookups
// are case-insensitive either way.
const (
	AlphabetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AlphabetNumeric      = "0123456789"
)

// DefaultCodeLength gives at least 10^6 combinations even for the numeric
// alphabet.
const DefaultCodeLength = 6

// CodeGenerator produces short share codes from a fixed alphabet using a
// cryptographically strong source, so codes are not guessable from timing
// or prior output. Collision checking against live codes is the store's
// job, not the generator's.
type CodeGenerator struct {
	alphabet string
	length   int
}

// NewCodeGenerator creates a generator for the given alphabet and code
// length. Zero or negative length falls back to DefaultCodeLength.
func NewCodeGenerator(alphabet string, length int) *CodeGenerator {
	if alphabet == "" {
		alphabet = AlphabetAlphanumeric
	}
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &CodeGenerator{alphabet: alphabet, length: length}
}

// Generate returns one candidate code.
func (g *CodeGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.alphabet)))
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		code[i] = g.alphabet[n.Int64()]
	}
	return string(code), nil
}

// Length returns the length of generated codes.
func (g *CodeGenerator) Length() int {
	return g.length
}
