package resolver

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuishdotdev/tuish-go/internal/cache"
	"github.com/tuishdotdev/tuish-go/internal/remote"
	"github.com/tuishdotdev/tuish-go/internal/synth"
	"github.com/tuishdotdev/tuish-go/internal/verifier"
)

const testMachineID = "fixture-machine"
const testProductID = "prod-fixture"

type fakeValidator struct {
	result remote.Result
	calls  int
}

func (f *fakeValidator) Validate(ctx context.Context, licenseKey, machineFingerprint string) remote.Result {
	f.calls++
	return f.result
}

func newFixture(t *testing.T, now time.Time) (res *Resolver, c *cache.Cache, fv *fakeValidator, dir string, priv ed25519.PrivateKey) {
	t.Helper()
	dir = t.TempDir()
	c = cache.New(dir, func() time.Time { return now })
	t.Cleanup(c.Close)

	pub, priv := synth.NewKeyPair()
	v := verifier.New(pub, func() time.Time { return now })
	fv = &fakeValidator{}

	res = New(testProductID, c, v, fv, func() int64 { return now.UnixMilli() }, func() string { return testMachineID })
	return res, c, fv, dir, priv
}

func TestScenario1_FreshPerpetualFreshCache(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, _, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 3600_000})
	c.Save(testProductID, raw, testMachineID)

	v := res.Check(context.Background())

	assert.True(t, v.Valid)
	assert.Empty(t, v.Reason)
	assert.Equal(t, SourceOffline, v.Source)
	assert.Equal(t, 0, fv.calls, "remote validator must not be called on the fresh/valid hot path")
}

func TestScenario2_ValidButStaleServerOK(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, dir, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 100*3600_000})
	staleCache(dir, testProductID, raw, testMachineID, now.Add(-48*time.Hour))
	fv.result = remote.Result{Valid: true, License: &remote.LicenseDetails{ID: "lic_1"}}

	v := res.Check(context.Background())

	assert.True(t, v.Valid)
	assert.Equal(t, SourceOnline, v.Source)
	rec, ok := c.Load(testProductID)
	require.True(t, ok)
	assert.Equal(t, now.UnixMilli(), rec.CachedAtMs, "cache must be re-stamped")
}

func TestScenario3_ValidButStaleNetworkError(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, dir, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 100*3600_000})
	staleCache(dir, testProductID, raw, testMachineID, now.Add(-48*time.Hour))
	fv.result = remote.Result{Valid: false, Reason: verifier.ReasonNetworkError}

	v := res.Check(context.Background())

	assert.True(t, v.Valid)
	assert.Equal(t, SourceOffline, v.Source)
	rec, ok := c.Load(testProductID)
	require.True(t, ok)
	assert.NotEqual(t, now.UnixMilli(), rec.CachedAtMs, "cache must be unchanged on network error")
}

func TestScenario4_ValidButStaleServerRevoked(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, dir, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 100*3600_000})
	staleCache(dir, testProductID, raw, testMachineID, now.Add(-48*time.Hour))
	fv.result = remote.Result{Valid: false, Reason: verifier.ReasonRevoked}

	v := res.Check(context.Background())

	assert.False(t, v.Valid)
	assert.Equal(t, verifier.ReasonRevoked, v.Reason)
	assert.Equal(t, SourceOnline, v.Source)
	_, ok := c.Load(testProductID)
	assert.False(t, ok, "cache must be removed on server revocation")
}

func TestScenario5_OfflineExpiredServerRenews(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, _, priv := newFixture(t, now)

	exp := now.UnixMilli() - 1
	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 3600_000, ExpiresAtMs: &exp})
	c.Save(testProductID, raw, testMachineID)
	fv.result = remote.Result{Valid: true, License: &remote.LicenseDetails{ID: "lic_renewed"}}

	v := res.Check(context.Background())

	assert.True(t, v.Valid)
	assert.Equal(t, SourceOnline, v.Source)
	_, ok := c.Load(testProductID)
	assert.True(t, ok, "cache must NOT be removed on renewal")
}

func TestScenario6_OfflineExpiredServerConfirmsExpired(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, _, priv := newFixture(t, now)

	exp := now.UnixMilli() - 1
	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli() - 3600_000, ExpiresAtMs: &exp})
	c.Save(testProductID, raw, testMachineID)
	fv.result = remote.Result{Valid: false, Reason: verifier.ReasonExpired}

	v := res.Check(context.Background())

	assert.False(t, v.Valid)
	assert.Equal(t, verifier.ReasonExpired, v.Reason)
	assert.Equal(t, SourceOnline, v.Source)
	_, ok := c.Load(testProductID)
	assert.False(t, ok, "cache must be removed")
}

func TestScenario7_TamperedSignature(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, fv, _, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli()})
	tampered := synth.Tamper(raw, 2)
	c.Save(testProductID, tampered, testMachineID)

	v := res.Check(context.Background())

	assert.False(t, v.Valid)
	assert.Equal(t, verifier.ReasonInvalidSignature, v.Reason)
	assert.Equal(t, SourceOffline, v.Source)
	_, ok := c.Load(testProductID)
	assert.False(t, ok, "cache must be removed")
	assert.Equal(t, 0, fv.calls, "remote validator must not be called for a tampered cache entry")
}

func TestScenario8_MachineMismatch(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, _, _, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli(), MachineID: "some-other-machine"})
	c.Save(testProductID, raw, testMachineID)

	v := res.Check(context.Background())

	assert.False(t, v.Valid)
	assert.Equal(t, verifier.ReasonMachineMismatch, v.Reason)
	assert.Equal(t, SourceOffline, v.Source)
	_, ok := c.Load(testProductID)
	assert.False(t, ok)
}

func TestScenario9_NoCache(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, _, fv, _, _ := newFixture(t, now)

	v := res.Check(context.Background())

	assert.False(t, v.Valid)
	assert.Equal(t, verifier.ReasonNotFound, v.Reason)
	assert.Equal(t, SourceNotFound, v.Source)
	assert.Equal(t, 0, fv.calls)
}

func TestStoreSavesThenChecks(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	res, c, _, _, priv := newFixture(t, now)

	raw := synth.Sign(priv, synth.Seed{IssuedAtMs: now.UnixMilli()})
	v := res.Store(context.Background(), raw)

	assert.True(t, v.Valid)
	rec, ok := c.Load(testProductID)
	require.True(t, ok)
	assert.Equal(t, raw, rec.LicenseKey)
}

// staleCache writes a record to dir stamped as of `at`, by using a second
// Cache instance over the same directory with a past-pinned clock. The
// fixture's own Cache then reads it back off disk (its in-process memo tier
// has never seen this productID yet) as an already-stale record relative to
// the fixture's frozen "now".
func staleCache(dir, productID, licenseKey, mf string, at time.Time) {
	past := cache.New(dir, func() time.Time { return at })
	defer past.Close()
	past.Save(productID, licenseKey, mf)
}
