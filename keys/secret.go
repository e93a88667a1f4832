package keys

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Secret is private key material together with its curve.
type Secret struct {
	Curve Curve
	Key   []byte
}

// ParseSecret parses the text form "[curve:]hex". A missing curve prefix
// selects secp256k1. A leading "0x" on the hex part is accepted.
func ParseSecret(text string) (Secret, error) {
	text = strings.TrimSpace(text)
	curve := Secp256k1
	if i := strings.IndexByte(text, ':'); i >= 0 {
		c, err := ParseCurve(text[:i])
		if err != nil {
			return Secret{}, err
		}
		curve = c
		text = text[i+1:]
	}
	text = strings.TrimPrefix(text, "0x")
	data, err := hex.DecodeString(text)
	if err != nil {
		return Secret{}, &Error{Kind: KindKey, Message: "private key is not valid hex", Cause: err}
	}
	if len(data) != SecretSize {
		return Secret{}, keyError(fmt.Sprintf("expected private key length of %d bytes, got %d", SecretSize, len(data)))
	}
	return Secret{Curve: curve, Key: data}, nil
}

// FormatSecret is the inverse of ParseSecret.
func FormatSecret(s Secret) string {
	return string(s.Curve) + ":" + hex.EncodeToString(s.Key)
}

// Wipe zeroes the key bytes.
func (s *Secret) Wipe() {
	for i := range s.Key {
		s.Key[i] = 0
	}
}
