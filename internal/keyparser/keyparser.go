// Package keyparser accepts the two textual forms an Ed25519 public key may
// arrive in — 64-char hex, or base64 of a SubjectPublicKeyInfo DER blob —
// and yields the 32 raw key bytes.
package keyparser

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/tuishdotdev/tuish-go/internal/codec"
)

// ErrInvalidPublicKey is returned when the input matches neither accepted form.
var ErrInvalidPublicKey = errors.New("keyparser: invalid public key")

// spkiPrefix is the fixed 12-byte ASN.1 DER prefix for an Ed25519
// SubjectPublicKeyInfo: SEQUENCE { SEQUENCE { OID 1.3.101.112 } BIT STRING }.
var spkiPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}

const spkiTotalLen = 44 // 12-byte prefix + 32 key bytes

// Parse accepts a 64-char hex string or a base64-encoded SPKI blob beginning
// with "MCow" or "MCoq", and returns the 32 raw Ed25519 public key bytes.
func Parse(input string) (ed25519.PublicKey, error) {
	if isHex64(input) {
		raw, err := codec.DecodeHex(input)
		if err != nil {
			return nil, ErrInvalidPublicKey
		}
		return ed25519.PublicKey(raw), nil
	}

	if strings.HasPrefix(input, "MCow") || strings.HasPrefix(input, "MCoq") {
		der, err := decodeStdBase64(input)
		if err != nil {
			return nil, ErrInvalidPublicKey
		}
		if len(der) != spkiTotalLen {
			return nil, ErrInvalidPublicKey
		}
		if !bytes.Equal(der[:len(spkiPrefix)], spkiPrefix) {
			return nil, ErrInvalidPublicKey
		}
		return ed25519.PublicKey(der[len(spkiPrefix):]), nil
	}

	return nil, ErrInvalidPublicKey
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// decodeStdBase64 decodes standard (non-URL) base64, with or without padding —
// SPKI blobs are conventionally transported as standard base64.
func decodeStdBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
