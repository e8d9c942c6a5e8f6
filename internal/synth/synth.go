// Package synth produces signed license tokens from a seed, for the property
// tests of the verifier and resolver. It is test-only tooling: nothing in the
// production path imports it.
package synth

import (
	"crypto/ed25519"
	"fmt"

	"github.com/tuishdotdev/tuish-go/internal/codec"
	"github.com/tuishdotdev/tuish-go/internal/token"
)

// Seed describes the license a synthesized token should carry. Zero values
// pick sensible defaults via Sign below.
type Seed struct {
	LicenseID   string
	ProductID   string
	CustomerID  string
	DeveloperID string
	Features    []string
	IssuedAtMs  int64
	ExpiresAtMs *int64 // nil => perpetual
	MachineID   string // empty => unbound
}

// NewKeyPair generates a fresh Ed25519 key pair for a test run.
func NewKeyPair() (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(fmt.Sprintf("synth: generate key: %v", err))
	}
	return pub, priv
}

// Sign encodes and signs a token for the given seed.
func Sign(priv ed25519.PrivateKey, s Seed) string {
	features := s.Features
	if features == nil {
		features = []string{}
	}
	payload := token.Payload{
		LID:      orDefault(s.LicenseID, "lic_test"),
		PID:      orDefault(s.ProductID, "prod_test"),
		CID:      orDefault(s.CustomerID, "cust_test"),
		DID:      orDefault(s.DeveloperID, "dev_test"),
		Features: features,
		IAT:      s.IssuedAtMs,
		EXP:      s.ExpiresAtMs,
		MID:      s.MachineID,
	}
	raw, err := token.Encode(priv, payload)
	if err != nil {
		panic(fmt.Sprintf("synth: encode: %v", err))
	}
	return raw
}

// Tamper perturbs the named segment (0=header, 1=payload, 2=signature) of a
// well-formed token, flipping the low bit of a byte inside a JSON string
// *value* for the header/payload segments (never a structural byte — a
// brace, quote, or colon — so the segment stays syntactically valid JSON)
// and of the first raw byte for the signature segment.
//
// This keeps Parse itself succeeding for the payload and signature segments,
// so the Verifier reaches its Ed25519 check and reports invalid_signature.
// The header segment is different: its only string field, "alg", is checked
// in token.Parse for exact equality against a fixed constant, not merely for
// presence, so ANY change to its value — structural or not — makes Parse
// return ok=false. Tampering segment 0 therefore always yields
// invalid_format, never invalid_signature; callers asserting against a
// tampered header must expect that reason instead.
func Tamper(raw string, segment int) string {
	parts := splitSegments(raw)
	if segment < 0 || segment > 2 || len(parts[segment]) == 0 {
		return raw
	}

	if segment == 2 {
		sig, err := codec.DecodeB64url(parts[segment])
		if err != nil || len(sig) == 0 {
			return raw
		}
		sig[0] ^= 0x01
		parts[segment] = codec.EncodeB64url(sig)
		return parts[0] + "." + parts[1] + "." + parts[2]
	}

	decoded, err := codec.DecodeB64url(parts[segment])
	if err != nil {
		return raw
	}
	tampered, ok := flipByteInStringValue(decoded)
	if !ok {
		return raw
	}
	parts[segment] = codec.EncodeB64url(tampered)
	return parts[0] + "." + parts[1] + "." + parts[2]
}

// flipByteInStringValue finds the first JSON `"key":"value` boundary and
// flips the low bit of the value's first character — always a plain
// alphanumeric in this package's fixtures, so the result stays valid JSON
// and decodes to a different string.
func flipByteInStringValue(data []byte) ([]byte, bool) {
	for i := 0; i+3 < len(data); i++ {
		if data[i] == '"' && data[i+1] == ':' && data[i+2] == '"' {
			out := make([]byte, len(data))
			copy(out, data)
			out[i+3] ^= 0x01
			return out, true
		}
	}
	return nil, false
}

func splitSegments(raw string) [3]string {
	var out [3]string
	start, idx := 0, 0
	for i := 0; i < len(raw) && idx < 2; i++ {
		if raw[i] == '.' {
			out[idx] = raw[start:i]
			idx++
			start = i + 1
		}
	}
	out[2] = raw[start:]
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
