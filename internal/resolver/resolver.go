// Package resolver implements the top-level license-check state machine:
// the decision tree that combines the on-disk Cache, the offline
// cryptographic Verifier, and the online RemoteValidator into a single
// Verdict, per spec.md §4.8. The algorithm below is transcribed literally
// from that section; do not reorder branches without re-reading it.
package resolver

import (
	"context"

	"github.com/tuishdotdev/tuish-go/internal/cache"
	"github.com/tuishdotdev/tuish-go/internal/remote"
	"github.com/tuishdotdev/tuish-go/internal/verifier"
)

// Source records which layer produced a Verdict.
type Source string

const (
	SourceOffline  Source = "offline"
	SourceOnline   Source = "online"
	SourceNotFound Source = "not_found"
)

// LicenseDetails mirrors the server's view of a license, carried on a valid
// Verdict.
type LicenseDetails = remote.LicenseDetails

// Verdict is the Resolver's single output. A Verdict with Valid=true always
// carries a non-nil License; a Verdict with Reason=ReasonNetworkError always
// has Source=SourceOnline and Valid=false. These combinations are enforced
// by the unexported constructors below, never by callers.
type Verdict struct {
	Valid   bool
	Reason  verifier.ReasonCode
	Source  Source
	License *LicenseDetails
}

func okVerdict(source Source, license *LicenseDetails) Verdict {
	if license == nil {
		license = &LicenseDetails{}
	}
	return Verdict{Valid: true, Source: source, License: license}
}

func failVerdict(reason verifier.ReasonCode, source Source) Verdict {
	if reason == verifier.ReasonNetworkError {
		source = SourceOnline
	}
	return Verdict{Valid: false, Reason: reason, Source: source}
}

// Clock abstracts "now" for deterministic tests, per spec.md §9.
type Clock func() int64 // now, in ms since Unix epoch

// Resolver combines a Cache, a Verifier, and a RemoteValidator into Check.
// Cache, the RemoteValidator, and the clock are injected capabilities so
// tests can substitute in-memory and deterministic variants, per spec.md §9's
// "injection of collaborators" design note.
type Resolver struct {
	productID string
	cache     *cache.Cache
	verifier  *verifier.Verifier
	remote    remote.Validator
	clock     Clock
	fp        func() string
}

// New constructs a Resolver for productID. fingerprintFn is called on every
// Check (and once more by Store, before its Check) to obtain the current
// machine fingerprint (the spec allows,
// but does not require, that the result be cached across calls — that
// caching lives in internal/fingerprint, not here).
func New(productID string, c *cache.Cache, v *verifier.Verifier, rv remote.Validator, clock Clock, fingerprintFn func() string) *Resolver {
	return &Resolver{
		productID: productID,
		cache:     c,
		verifier:  v,
		remote:    rv,
		clock:     clock,
		fp:        fingerprintFn,
	}
}

// Check runs the decision tree of spec.md §4.8 and returns a Verdict. Cache
// side effects (Save/Remove) happen exactly where that section specifies,
// relative to the returned Verdict.
func (r *Resolver) Check(ctx context.Context) Verdict {
	mf := r.fp()

	rec, ok := r.cache.Load(r.productID)
	if !ok {
		return failVerdict(verifier.ReasonNotFound, SourceNotFound)
	}

	off := r.verifier.Verify(rec.LicenseKey, &mf)

	if off.Valid {
		return r.handleOfflineValid(ctx, rec, off, mf)
	}

	if off.Reason == verifier.ReasonExpired {
		return r.handleOfflineExpired(ctx, rec, mf)
	}

	// (C) any other offline failure: signature, format, machine mismatch.
	// Tampered, malformed, or wrong-machine cache entries are never trusted
	// and are purged eagerly.
	r.cache.Remove(r.productID)
	return failVerdict(off.Reason, SourceOffline)
}

// handleOfflineValid implements branch (A): the cached token verifies
// offline. Fresh & valid is the hot path with zero network dependency;
// stale & valid opportunistically refreshes, degrading gracefully to
// offline validity on a network error.
func (r *Resolver) handleOfflineValid(ctx context.Context, rec cache.Record, off verifier.Result, mf string) Verdict {
	if !r.cache.NeedsRefresh(rec) {
		return okVerdict(SourceOffline, payloadToLicense(off))
	}

	on := r.remote.Validate(ctx, rec.LicenseKey, mf)

	if on.Valid {
		r.cache.Save(r.productID, rec.LicenseKey, mf)
		return okVerdict(SourceOnline, on.License)
	}
	if on.Reason == verifier.ReasonNetworkError {
		return okVerdict(SourceOffline, payloadToLicense(off)) // trust cache
	}

	// Server says "not valid": authoritative. Purge local cache.
	r.cache.Remove(r.productID)
	return failVerdict(on.Reason, SourceOnline)
}

// handleOfflineExpired implements branch (B): the cached token is offline-
// expired. The server gets a chance to resurrect it (renewal case);
// otherwise the cache is purged.
func (r *Resolver) handleOfflineExpired(ctx context.Context, rec cache.Record, mf string) Verdict {
	on := r.remote.Validate(ctx, rec.LicenseKey, mf)
	if !on.Valid {
		r.cache.Remove(r.productID)
		return failVerdict(on.Reason, SourceOnline)
	}
	// Renewal case: the server resurrected an offline-expired license. The
	// cache is deliberately left as-is (not re-stamped) here — only the
	// "valid & stale" refresh path in handleOfflineValid re-stamps on success.
	return okVerdict(SourceOnline, on.License)
}

// Store persists a freshly obtained license key (purchase completion or
// manual entry) then runs a normal Check.
func (r *Resolver) Store(ctx context.Context, licenseKey string) Verdict {
	mf := r.fp()
	r.cache.Save(r.productID, licenseKey, mf)
	return r.Check(ctx)
}

func payloadToLicense(res verifier.Result) *LicenseDetails {
	if res.Payload == nil {
		return nil
	}
	return &LicenseDetails{
		ID:        res.Payload.LID,
		ProductID: res.Payload.PID,
		Features:  res.Payload.Features,
		Status:    "active",
		IssuedAt:  res.Payload.IAT,
		ExpiresAt: res.Payload.EXP,
	}
}
