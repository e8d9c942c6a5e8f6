// Package codec provides the low-level byte encodings the license token
// wire format is built from: base64url and hex, plus the canonical JSON
// encoding used when signing and persisting records.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EncodeB64url encodes b as unpadded base64url, per the token wire format.
func EncodeB64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeB64url decodes base64url, accepting input with or without the
// trailing '=' padding that RawURLEncoding strips and URLEncoding expects.
func DecodeB64url(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid base64url: %w", err)
	}
	return b, nil
}

// EncodeHex lowercase-hex-encodes b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a hex string, case-insensitive.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid hex: %w", err)
	}
	return b, nil
}

// MarshalCanonical encodes v with Go's default compact JSON encoder, which
// already emits no insignificant whitespace and the shortest numeric forms
// for the plain structs used throughout this package.
func MarshalCanonical(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
