package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

var batchIDPattern = regexp.MustCompile(`^[0-9a-f]{12,64}$`)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The result is twice as long as size, since each byte expands to two hex
// characters. It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewBatchID returns a fresh unguessable batch identifier.
func NewBatchID() (string, error) {
	return MakeRandHexString(BatchIDSize)
}

// ValidBatchID reports whether id looks like something NewBatchID could
// have produced. It says nothing about whether the batch exists.
func ValidBatchID(id string) bool {
	return batchIDPattern.MatchString(id)
}

// ParseBatchID returns id unchanged when it is well formed and an error
// wrapping ErrInvalidBatchID otherwise.
func ParseBatchID(id string) (string, error) {
	if !ValidBatchID(id) {
		return "", fmt.Errorf("%q: %w", id, ErrInvalidBatchID)
	}
	return id, nil
}
