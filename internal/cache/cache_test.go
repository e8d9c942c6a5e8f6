package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, now time.Time) *Cache {
	t.Helper()
	dir := t.TempDir()
	c := New(dir, func() time.Time { return now })
	t.Cleanup(c.Close)
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	c := newTestCache(t, now)

	c.Save("prod-1", "key-abc", "fp-1")
	rec, ok := c.Load("prod-1")
	require.True(t, ok)
	assert.Equal(t, "key-abc", rec.LicenseKey)
	assert.Equal(t, "prod-1", rec.ProductID)
	assert.Equal(t, "fp-1", rec.MachineFingerprint)
	assert.Equal(t, now.UnixMilli(), rec.CachedAtMs)
	assert.Equal(t, now.UnixMilli()+RefreshWindow.Milliseconds(), rec.RefreshAtMs)
}

func TestLoadAbsentReturnsNotOK(t *testing.T) {
	c := newTestCache(t, time.Now())
	_, ok := c.Load("nonexistent")
	assert.False(t, ok)
}

func TestLoadCorruptFileTreatedAsAbsent(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()
	c := New(dir, func() time.Time { return now })
	defer c.Close()

	path := filepath.Join(dir, filename("prod-x"))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := c.Load("prod-x")
	assert.False(t, ok)
}

func TestFilenameDeterministic(t *testing.T) {
	a := filename("my-product")
	b := filename("my-product")
	assert.Equal(t, a, b)
	assert.Len(t, a, len("0123456789abcdef")+len(".json"))
	assert.Regexp(t, "^[0-9a-f]{16}\\.json$", a)

	other := filename("other-product")
	assert.NotEqual(t, a, other)
}

func TestNeedsRefresh(t *testing.T) {
	now := time.UnixMilli(1_800_000_000_000)
	rec := Record{CachedAtMs: now.UnixMilli(), RefreshAtMs: now.UnixMilli() + 1000}

	assert.False(t, rec.NeedsRefresh(now.UnixMilli()))
	assert.True(t, rec.NeedsRefresh(now.UnixMilli()+1000))
	assert.True(t, rec.NeedsRefresh(now.UnixMilli()+2000))
}

func TestNeedsRefreshLegacyRecordWithEarlyRefreshAt(t *testing.T) {
	// refresh_at precedes cached_at: treated as always needing refresh.
	rec := Record{CachedAtMs: 2000, RefreshAtMs: 1000}
	assert.True(t, rec.NeedsRefresh(1500))
}

func TestRemove(t *testing.T) {
	c := newTestCache(t, time.Now())
	c.Save("prod-1", "key", "fp")
	c.Remove("prod-1")
	_, ok := c.Load("prod-1")
	assert.False(t, ok)
}

func TestRemoveAbsentIsSilent(t *testing.T) {
	c := newTestCache(t, time.Now())
	assert.NotPanics(t, func() { c.Remove("never-saved") })
}

func TestClearAll(t *testing.T) {
	c := newTestCache(t, time.Now())
	c.Save("prod-1", "key1", "fp")
	c.Save("prod-2", "key2", "fp")

	c.ClearAll()

	_, ok1 := c.Load("prod-1")
	_, ok2 := c.Load("prod-2")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestSaveIsAtomicNoTornRecord(t *testing.T) {
	// Writing repeatedly to the same product must never leave a torn file:
	// every Load after a Save sees a fully valid record.
	now := time.Now()
	c := newTestCache(t, now)
	for i := 0; i < 20; i++ {
		c.Save("prod-1", "key", "fp")
		rec, ok := c.Load("prod-1")
		require.True(t, ok)
		assert.Equal(t, "key", rec.LicenseKey)
	}
}
