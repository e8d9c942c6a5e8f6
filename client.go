// Package license is the SDK's public facade: construct a Client from a
// Config and call Check/Store. Everything under internal/ is plumbing the
// Client wires together; host applications never need to import it
// directly.
package license

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tuishdotdev/tuish-go/internal/cache"
	"github.com/tuishdotdev/tuish-go/internal/fingerprint"
	"github.com/tuishdotdev/tuish-go/internal/keyparser"
	"github.com/tuishdotdev/tuish-go/internal/remote"
	"github.com/tuishdotdev/tuish-go/internal/resolver"
	"github.com/tuishdotdev/tuish-go/internal/verifier"
)

// Verdict is the result of Check/Store, re-exported so callers never import
// internal/resolver directly.
type Verdict = resolver.Verdict

// Client validates a single product's license: offline-first via the cached
// signed token, refreshing against the remote API on the schedule Cache's
// refresh window dictates.
type Client struct {
	productID string
	resolver  *resolver.Resolver
	log       *slog.Logger
}

// New constructs a Client from cfg. Parsing cfg.PublicKey is the only way
// construction can fail — every later operation resolves to a Verdict, never
// an error, mirroring the teacher's own Checker, which logs and degrades
// rather than returning errors out of validate().
func New(cfg Config) (*Client, error) {
	pub, err := keyparser.Parse(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("license: parse public key: %w", err)
	}

	log := newLogger(cfg.Debug)

	c := cache.New(cfg.StorageDir, time.Now)
	v := verifier.New(pub, time.Now)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rv := remote.NewHTTPValidator(cfg.APIBaseURL, cfg.APIKey, timeout)

	res := resolver.New(cfg.ProductID, c, v, rv, func() int64 { return time.Now().UnixMilli() }, fingerprint.Machine.Compute)

	log.Debug("license client constructed", "product_id", cfg.ProductID, "storage_dir", cfg.StorageDir)
	return &Client{productID: cfg.ProductID, resolver: res, log: log}, nil
}

// newLogger mirrors the teacher's cmd/server/main.go: JSON to stderr when
// debug is on, otherwise a discard handler so a library doesn't pollute a
// host application's own logs by default.
func newLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Check runs the offline-first validation decision tree and returns a
// Verdict. It never blocks longer than one RemoteValidator call, and only
// makes that call when the cached record needs it.
func (c *Client) Check(ctx context.Context) Verdict {
	return c.resolver.Check(ctx)
}

// Store persists licenseKey to the local cache, then runs a normal Check.
func (c *Client) Store(ctx context.Context, licenseKey string) Verdict {
	return c.resolver.Store(ctx, licenseKey)
}

// StartBackgroundRefresh runs Check on a ticker and publishes every Verdict
// to the returned channel, until ctx is cancelled (which also closes the
// channel). Grounded on the teacher's Checker.Start()/loop() pattern
// (internal/license/license.go): validate immediately, then on a fixed
// interval, except here "validate" is Check, which itself only touches the
// network when the cached record's refresh window has elapsed.
func (c *Client) StartBackgroundRefresh(ctx context.Context, interval time.Duration) <-chan Verdict {
	if interval <= 0 {
		interval = defaultBackgroundRefreshInterval
	}
	out := make(chan Verdict, 1)

	go func() {
		defer close(out)

		publish := func() {
			v := c.Check(ctx)
			select {
			case out <- v:
			case <-ctx.Done():
			}
		}

		publish()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.log.Debug("background refresh stopped", "product_id", c.productID)
				return
			case <-ticker.C:
				publish()
			}
		}
	}()

	return out
}
