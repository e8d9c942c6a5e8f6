// Package verifier performs offline, I/O-free verification of a license
// token: Ed25519 signature check, expiry check, and machine-binding check,
// applied in the exact order spec'd so that unsigned tokens never leak
// expiry or machine-binding information.
package verifier

import (
	"crypto/ed25519"
	"time"

	"github.com/tuishdotdev/tuish-go/internal/token"
)

// ReasonCode is the closed set of verdict reasons the core can produce.
type ReasonCode string

const (
	ReasonNotFound         ReasonCode = "not_found"
	ReasonExpired          ReasonCode = "expired"
	ReasonRevoked          ReasonCode = "revoked"
	ReasonInvalidFormat    ReasonCode = "invalid_format"
	ReasonInvalidSignature ReasonCode = "invalid_signature"
	ReasonMachineMismatch  ReasonCode = "machine_mismatch"
	ReasonNetworkError     ReasonCode = "network_error"
)

// Clock abstracts "now" so tests can freeze time, per the spec's design note
// that now_ms should come from a single injectable clock.
type Clock func() time.Time

// Result is the tagged outcome of an offline verification. A Valid result
// always carries Payload; an invalid result carries Payload only once the
// signature has been confirmed sound (steps 3-4 of the ordering).
type Result struct {
	Valid   bool
	Reason  ReasonCode
	Payload *token.Payload
}

// Verifier checks tokens against a single fixed Ed25519 public key.
type Verifier struct {
	publicKey ed25519.PublicKey
	clock     Clock
}

// New constructs a Verifier. clock defaults to time.Now if nil.
func New(publicKey ed25519.PublicKey, clock Clock) *Verifier {
	if clock == nil {
		clock = time.Now
	}
	return &Verifier{publicKey: publicKey, clock: clock}
}

// Verify runs the full offline check: parse, signature, expiry, machine
// binding. machineID == nil disables step 4 entirely, distinct from a
// non-nil machineID that happens to differ from the token's own (possibly
// empty) mid.
func (v *Verifier) Verify(raw string, machineID *string) Result {
	lic, ok := token.Parse(raw)
	if !ok {
		return Result{Valid: false, Reason: ReasonInvalidFormat}
	}

	msg := token.SignedMessage(lic.HeaderSegment, lic.PayloadSegment)
	if !ed25519.Verify(v.publicKey, msg, lic.Signature) {
		return Result{Valid: false, Reason: ReasonInvalidSignature}
	}

	nowMs := v.clock().UnixMilli()

	if lic.Payload.EXP != nil && *lic.Payload.EXP < nowMs {
		return Result{Valid: false, Reason: ReasonExpired, Payload: &lic.Payload}
	}

	if machineID != nil && lic.Payload.MID != "" && lic.Payload.MID != *machineID {
		return Result{Valid: false, Reason: ReasonMachineMismatch, Payload: &lic.Payload}
	}

	return Result{Valid: true, Payload: &lic.Payload}
}

// ExtractPayload parses a token without any signature check, for display
// paths that only need to show claimed (not verified) license details.
func ExtractPayload(raw string) (*token.Payload, bool) {
	lic, ok := token.Parse(raw)
	if !ok {
		return nil, false
	}
	return &lic.Payload, true
}

// IsExpired reports whether raw's claimed expiry has passed. Perpetual
// tokens (exp == nil) are never expired; malformed tokens are always
// reported expired, since there is no valid claim to trust.
func IsExpired(raw string, clock Clock) bool {
	if clock == nil {
		clock = time.Now
	}
	payload, ok := ExtractPayload(raw)
	if !ok {
		return true
	}
	if payload.EXP == nil {
		return false
	}
	return *payload.EXP < clock().UnixMilli()
}

// TimeRemainingMs returns exp - now_ms, or nil for a perpetual or malformed
// token. The result may be negative for an already-expired token.
func TimeRemainingMs(raw string, clock Clock) *int64 {
	if clock == nil {
		clock = time.Now
	}
	payload, ok := ExtractPayload(raw)
	if !ok || payload.EXP == nil {
		return nil
	}
	remaining := *payload.EXP - clock().UnixMilli()
	return &remaining
}
