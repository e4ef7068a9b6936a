package fingerprint

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GroupSeparator joins serialized signal groups before hashing.
const GroupSeparator = "|||"

// Hasher reduces a Bundle to an opaque identifier. It combines several independent
// non-cryptographic hashes over the input and its reversal; the result deters casual
// spoofing but is not a secure identity.
type Hasher struct{}

// Hash is deterministic: equal bundles always produce equal strings.
func (Hasher) Hash(b Bundle) string {
	parts := make([]string, 0, 9)
	for _, r := range b.ordered() {
		parts = append(parts, r.String())
	}
	return HashString(strings.Join(parts, GroupSeparator))
}

// HashString applies every hash function to s and to its reversal and concatenates the results.
func HashString(s string) string {
	rev := reverse(s)
	var sb strings.Builder
	sb.Grow(64)
	for _, in := range []string{s, rev} {
		fmt.Fprintf(&sb, "%08x%08x%016x", rollingHash(in), djb2(in), xxhash.Sum64String(in))
	}
	return sb.String()
}

// rollingHash is the multiplicative h*31+c hash over runes.
func rollingHash(s string) uint32 {
	var h uint32
	for _, r := range s {
		h = h*31 + uint32(r)
	}
	return h
}

func djb2(s string) uint32 {
	h := uint32(5381)
	for _, r := range s {
		h = (h << 5) + h + uint32(r)
	}
	return h
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
