// ABOUTME: Hex address validation and EIP-55 checksum normalization
// ABOUTME: Policies store addresses in canonical checksummed form

package policy

import (
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ChecksumAddress returns the EIP-55 checksummed form of a hex address.
// The input must already satisfy IsHexAddress.
func ChecksumAddress(addr string) string {
	lower := strings.ToLower(addr[2:])

	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' {
			nibble := digest[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// checksumAll returns a new slice with every address checksummed.
func checksumAll(addrs []string) []string {
	if addrs == nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = ChecksumAddress(a)
	}
	return out
}
