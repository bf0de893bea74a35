// Package utils holds small input-validation helpers shared by the HTTP
// handlers.
package utils

import "strings"

// IsWalletAddress reports whether s looks like a 0x-prefixed 20-byte hex
// wallet address.
func IsWalletAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// IsCompositionHash reports whether s is a 64-character hex SHA-256 digest.
func IsCompositionHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// NormalizeAddress lower-cases a wallet address so lookups are
// case-insensitive, matching how the ledger reports addresses.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
