// Package cipher implements the chat payload transform: a repeating-key
// XOR rendered as lowercase hex.
//
// This is an obfuscation layer agreed with the server, not a security
// mechanism.  Both directions are total over arbitrary input.
package cipher

import "strings"

// NoKey is returned instead of a transformed value when the session key
// is empty.
const NoKey = "[NO_KEY]"

const hexDigits = "0123456789abcdef"

// Encode XORs every byte of plaintext with key[i mod len(key)] and
// returns the result as two lowercase hex digits per byte.
func Encode(plaintext, key string) string {
	if key == "" {
		return NoKey
	}
	var b strings.Builder
	b.Grow(2 * len(plaintext))
	for i := 0; i < len(plaintext); i++ {
		c := plaintext[i] ^ key[i%len(key)]
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// Decode reverses Encode.  A dangling final hex digit is dropped and a
// pair containing a non-hex character decodes as zero before the XOR.
func Decode(ciphertext, key string) string {
	if key == "" {
		return NoKey
	}
	n := len(ciphertext) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = parsePair(ciphertext[2*i], ciphertext[2*i+1]) ^ key[i%len(key)]
	}
	return string(out)
}

func parsePair(hi, lo byte) byte {
	h, okh := nibble(hi)
	l, okl := nibble(lo)
	if !okh || !okl {
		return 0
	}
	return h<<4 | l
}

func nibble(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
