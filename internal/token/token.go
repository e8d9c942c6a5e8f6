// Package token splits and parses the three-part license token wire format
// (HEADER.PAYLOAD.SIGNATURE) without performing any cryptographic check —
// that belongs to the verifier, which consumes the segments this package
// preserves verbatim.
package token

import (
	"encoding/json"
	"strings"

	"github.com/tuishdotdev/tuish-go/internal/codec"
)

// wantAlg and wantVer are the only header values this format accepts.
const (
	wantAlg = "ed25519"
	wantVer = 1
)

// Header is the token's first segment, decoded.
type Header struct {
	Alg string `json:"alg"`
	Ver int    `json:"ver"`
}

// Payload is the token's second segment, decoded.
type Payload struct {
	LID      string   `json:"lid"`
	PID      string   `json:"pid"`
	CID      string   `json:"cid"`
	DID      string   `json:"did"`
	Features []string `json:"features"`
	IAT      int64    `json:"iat"`
	EXP      *int64   `json:"exp"`
	MID      string   `json:"mid"`
}

// SignedLicense is a successfully-split (not yet verified) token. HeaderSegment
// and PayloadSegment retain the exact bytes as received, since the Verifier
// signs/verifies over those literal segments, never a re-serialization.
type SignedLicense struct {
	HeaderSegment  string
	PayloadSegment string
	Signature      []byte
	Header         Header
	Payload        Payload
}

// Parse splits and decodes raw into a SignedLicense. It never panics or
// returns an error; malformed input simply yields ok=false, per the parse
// totality property the Verifier relies on.
func Parse(raw string) (lic *SignedLicense, ok bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, false
	}
	headerSeg, payloadSeg, sigSeg := parts[0], parts[1], parts[2]
	if headerSeg == "" || payloadSeg == "" || sigSeg == "" {
		return nil, false
	}

	headerBytes, err := codec.DecodeB64url(headerSeg)
	if err != nil {
		return nil, false
	}
	var header Header
	if err := codec.Unmarshal(headerBytes, &header); err != nil {
		return nil, false
	}
	if header.Alg != wantAlg || header.Ver != wantVer {
		return nil, false
	}

	payloadBytes, err := codec.DecodeB64url(payloadSeg)
	if err != nil {
		return nil, false
	}
	var raw64 rawPayload
	if err := codec.Unmarshal(payloadBytes, &raw64); err != nil {
		return nil, false
	}
	payload, ok := raw64.toPayload()
	if !ok {
		return nil, false
	}

	sig, err := codec.DecodeB64url(sigSeg)
	if err != nil {
		return nil, false
	}

	return &SignedLicense{
		HeaderSegment:  headerSeg,
		PayloadSegment: payloadSeg,
		Signature:      sig,
		Header:         header,
		Payload:        payload,
	}, true
}

// rawPayload mirrors Payload but with every field as a pointer/any so that a
// missing REQUIRED field or a field of the wrong JSON kind can be detected
// explicitly, rather than silently taking a zero value.
type rawPayload struct {
	LID      *string  `json:"lid"`
	PID      *string  `json:"pid"`
	CID      *string  `json:"cid"`
	DID      *string  `json:"did"`
	Features *[]string      `json:"features"`
	IAT      *int64          `json:"iat"`
	EXP      json.RawMessage `json:"exp"` // absent => empty; null => "null"
	MID      *string         `json:"mid"`
}

func (r rawPayload) toPayload() (Payload, bool) {
	if r.LID == nil || r.PID == nil || r.CID == nil || r.DID == nil || r.Features == nil || r.IAT == nil || len(r.EXP) == 0 || r.MID == nil {
		return Payload{}, false
	}
	var exp *int64
	if err := codec.Unmarshal(r.EXP, &exp); err != nil {
		return Payload{}, false
	}
	features := *r.Features
	if features == nil {
		features = []string{}
	}
	return Payload{
		LID:      *r.LID,
		PID:      *r.PID,
		CID:      *r.CID,
		DID:      *r.DID,
		Features: features,
		IAT:      *r.IAT,
		EXP:      exp,
		MID:      *r.MID,
	}, true
}
