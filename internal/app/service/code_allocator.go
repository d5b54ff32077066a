package service

import (
	"crypto/rand"
	"errors"
	"fmt"
)

var (
	// ErrAllocationExhausted means repeated collisions exhausted the retry
	// budget. It is fatal at creation time: it signals the keyspace or the
	// retry policy needs revisiting, not something to swallow.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
)

// codeAlphabet excludes visually confusable characters (0/O, 1/l/I), leaving
// 58 symbols. At 7 characters that is 58^7 ≈ 2.2e12 tokens, so random
// collisions stay negligible at any realistic table size.
const (
	codeAlphabet  = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	codeLength    = 7
	allocAttempts = 5
)

// Allocator issues candidate short codes. Uniqueness is enforced by the
// storage-level unique index, never by an application pre-check: the caller
// inserts, and retries on ErrShortCodeTaken.
type Allocator struct {
	length int
}

// NewAllocator returns an allocator producing codes of the default length.
func NewAllocator() *Allocator {
	return &Allocator{length: codeLength}
}

// Allocate generates one random candidate token.
func (a *Allocator) Allocate() (string, error) {
	buf := make([]byte, a.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("allocate short code: %w", err)
	}

	// len(codeAlphabet) == 58 does not divide 256 evenly, but the bias per
	// symbol is under 2% and irrelevant for collision avoidance.
	out := make([]byte, a.length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// Attempts returns the bounded retry budget creation loops use before
// reporting ErrAllocationExhausted.
func (a *Allocator) Attempts() int {
	return allocAttempts
}
