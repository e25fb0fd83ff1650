package domain

import (
	"fmt"
	"strings"
)

// Address is a 20-byte account identifier in 0x-prefixed hex form.
// Stored lowercased so it can be used directly as a map key.
type Address string

const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("parse address: %q is not a 0x-prefixed 20-byte hex string", s)
	}
	for _, c := range s[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("parse address: %q contains non-hex character %q", s, c)
		}
	}
	return Address(strings.ToLower(s)), nil
}

// IsZero reports whether the address is unset or the zero address.
// Purchases and claims against the zero address are rejected before
// any chain call is made.
func (a Address) IsZero() bool {
	return a == "" || Address(strings.ToLower(string(a))) == ZeroAddress
}

func (a Address) String() string { return string(a) }
