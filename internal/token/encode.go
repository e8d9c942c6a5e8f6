package token

import (
	"crypto/ed25519"

	"github.com/tuishdotdev/tuish-go/internal/codec"
)

// SignedMessage returns the exact ASCII bytes that get Ed25519-signed: the
// header segment and payload segment as received, joined by ".". Verification
// is always over these literal bytes, never over a re-serialization.
func SignedMessage(headerSegment, payloadSegment string) []byte {
	return []byte(headerSegment + "." + payloadSegment)
}

// Encode builds the three-part wire-format string for payload, signed with
// priv. It is used only by the test-only token synthesizer (internal/synth)
// and this package's own tests; production code never mints tokens.
func Encode(priv ed25519.PrivateKey, payload Payload) (string, error) {
	headerBytes, err := codec.MarshalCanonical(Header{Alg: wantAlg, Ver: wantVer})
	if err != nil {
		return "", err
	}
	payloadBytes, err := codec.MarshalCanonical(payload)
	if err != nil {
		return "", err
	}

	headerSeg := codec.EncodeB64url(headerBytes)
	payloadSeg := codec.EncodeB64url(payloadBytes)
	sig := ed25519.Sign(priv, SignedMessage(headerSeg, payloadSeg))
	sigSeg := codec.EncodeB64url(sig)

	return headerSeg + "." + payloadSeg + "." + sigSeg, nil
}
