package service

import (
	"strings"
	"testing"
)

func TestAllocator_Allocate(t *testing.T) {
	a := NewAllocator()

	code, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("expected %d characters, got %d (%q)", codeLength, len(code), code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains %q, which is outside the alphabet", code, r)
		}
	}
}

func TestAllocator_NoAmbiguousCharacters(t *testing.T) {
	for _, forbidden := range "0O1lI" {
		if strings.ContainsRune(codeAlphabet, forbidden) {
			t.Errorf("alphabet must not contain %q", forbidden)
		}
	}
}

func TestAllocator_CodesVary(t *testing.T) {
	a := NewAllocator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate returned error: %v", err)
		}
		if seen[code] {
			// 58^7 tokens: a repeat within 100 draws means the source
			// is broken, not unlucky.
			t.Fatalf("duplicate code %q within 100 allocations", code)
		}
		seen[code] = true
	}
}

func TestAllocator_Attempts(t *testing.T) {
	if got := NewAllocator().Attempts(); got < 2 {
		t.Fatalf("retry budget must allow at least one retry, got %d", got)
	}
}
