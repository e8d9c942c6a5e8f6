// Package cache implements the on-disk content-addressed store of cached
// license tokens, with a short-lived in-process tier in front of it (grounded
// on dc4eu-vc's use of jellydator/ttlcache/v3 for exactly this kind of
// memoization) so a host application that calls Check in a tight loop does
// not re-read the file on every call.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/tuishdotdev/tuish-go/internal/codec"
)

// RefreshWindow is how long a cached record stays fresh before Check opts
// into an online revalidation.
const RefreshWindow = 24 * time.Hour

// memoTTL bounds how long the in-process tier trusts its copy of a record
// before re-reading the file — long enough to absorb a hot loop, short
// enough that an out-of-process Save/Remove (another process sharing the
// same storage dir) is picked up quickly.
const memoTTL = 5 * time.Second

// Record is the persisted per-product cached token, per the wire format
// fields named in the spec ("license_key, cached_at, refresh_at, product_id,
// machine_fingerprint").
type Record struct {
	LicenseKey         string `json:"license_key"`
	CachedAtMs         int64  `json:"cached_at"`
	RefreshAtMs        int64  `json:"refresh_at"`
	ProductID          string `json:"product_id"`
	MachineFingerprint string `json:"machine_fingerprint"`
}

// NeedsRefresh reports whether now has reached or passed r's refresh
// deadline. A record whose refresh_at precedes cached_at (a malformed or
// legacy record) is always treated as needing refresh.
func (r Record) NeedsRefresh(nowMs int64) bool {
	if r.RefreshAtMs < r.CachedAtMs {
		return true
	}
	return nowMs >= r.RefreshAtMs
}

// Clock abstracts "now" for deterministic tests.
type Clock func() time.Time

// Cache is a directory of per-product JSON records.
type Cache struct {
	dir   string
	clock Clock
	memo  *ttlcache.Cache[string, Record]
}

// New constructs a Cache rooted at dir. The directory is created lazily on
// first write, never at construction time.
func New(dir string, clock Clock) *Cache {
	if clock == nil {
		clock = time.Now
	}
	c := &Cache{
		dir:   dir,
		clock: clock,
		memo:  ttlcache.New(ttlcache.WithTTL[string, Record](memoTTL)),
	}
	go c.memo.Start()
	return c
}

// Close stops the in-process memoization tier's background eviction loop.
func (c *Cache) Close() {
	c.memo.Stop()
}

// filename returns the first 16 hex characters of SHA-256(productID),
// followed by ".json" — total and deterministic for any productID.
func filename(productID string) string {
	sum := sha256.Sum256([]byte(productID))
	return codec.EncodeHex(sum[:])[:16] + ".json"
}

func (c *Cache) path(productID string) string {
	return filepath.Join(c.dir, filename(productID))
}

// Save writes or overwrites the cached record for productID, stamping
// cached_at/refresh_at from the cache's clock. Filesystem failures are
// swallowed: Save never returns an error, but a subsequent Load will simply
// report absence.
func (c *Cache) Save(productID, licenseKey, machineFingerprint string) {
	now := c.clock().UnixMilli()
	rec := Record{
		LicenseKey:         licenseKey,
		CachedAtMs:         now,
		RefreshAtMs:        now + RefreshWindow.Milliseconds(),
		ProductID:          productID,
		MachineFingerprint: machineFingerprint,
	}

	data, err := codec.MarshalCanonical(rec)
	if err != nil {
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}

	target := c.path(productID)
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return
	}

	c.memo.Set(productID, rec, ttlcache.DefaultTTL)
}

// Load returns the cached record for productID, or ok=false if the file is
// absent, unreadable, or fails to parse — a record is either fully valid or
// treated as not present, never partially trusted.
func (c *Cache) Load(productID string) (Record, bool) {
	if item := c.memo.Get(productID); item != nil {
		return item.Value(), true
	}

	data, err := os.ReadFile(c.path(productID))
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}

	c.memo.Set(productID, rec, ttlcache.DefaultTTL)
	return rec, true
}

// NeedsRefresh reports whether rec needs revalidation, using the cache's clock.
func (c *Cache) NeedsRefresh(rec Record) bool {
	return rec.NeedsRefresh(c.clock().UnixMilli())
}

// Remove deletes the cached file for productID, if present. Silent on
// absence or failure.
func (c *Cache) Remove(productID string) {
	c.memo.Delete(productID)
	_ = os.Remove(c.path(productID))
}

// ClearAll deletes every *.json file in the cache directory.
func (c *Cache) ClearAll() {
	c.memo.DeleteAll()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, e.Name()))
	}
}
