// Package address validates and normalizes payee wallet addresses.
//
// An address is the 42-character "0x"-prefixed hex form. Mixed-case
// addresses carry an EIP-55 checksum and are verified against it;
// all-lowercase and all-uppercase addresses skip the checksum, matching
// common wallet behavior. Validation is pure and never blocks.
package address

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrMalformedAddress indicates the address fails shape or checksum validation.
var ErrMalformedAddress = errors.New("malformed address")

const (
	prefix  = "0x"
	hexLen  = 40
	fullLen = len(prefix) + hexLen
)

// Validate checks the address shape and, for mixed-case input, the EIP-55
// checksum. It returns ErrMalformedAddress (wrapped with detail) on failure.
func Validate(addr string) error {
	if len(addr) != fullLen {
		return fmt.Errorf("%w: expected %d characters, got %d", ErrMalformedAddress, fullLen, len(addr))
	}
	if !strings.HasPrefix(addr, prefix) {
		return fmt.Errorf("%w: missing 0x prefix", ErrMalformedAddress)
	}

	hex := addr[len(prefix):]
	for _, c := range hex {
		if !isHex(byte(c)) {
			return fmt.Errorf("%w: invalid character %q", ErrMalformedAddress, c)
		}
	}

	lower := strings.ToLower(hex)
	upper := strings.ToUpper(hex)
	if hex == lower || hex == upper {
		// No checksum encoded.
		return nil
	}

	if checksum(lower) != hex {
		return fmt.Errorf("%w: checksum mismatch", ErrMalformedAddress)
	}
	return nil
}

// Normalize lowercases an address for storage and comparison. The registry
// stores addresses in this canonical form so matching is case-insensitive.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Checksummed returns the EIP-55 mixed-case rendering of a valid address.
func Checksummed(addr string) (string, error) {
	if err := Validate(addr); err != nil {
		return "", err
	}
	return prefix + checksum(strings.ToLower(addr[len(prefix):])), nil
}

// checksum applies EIP-55 casing to a lowercase 40-char hex string: each
// alphabetic nibble is uppercased when the corresponding nibble of
// keccak256(addr) is >= 8.
func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

func isHex(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
