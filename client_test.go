package license

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuishdotdev/tuish-go/internal/remote/mockserver"
	"github.com/tuishdotdev/tuish-go/internal/synth"
)

func spkiBase64(pub ed25519.PublicKey) string {
	prefix := []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}
	return base64.StdEncoding.EncodeToString(append(prefix, pub...))
}

func TestNewRejectsInvalidPublicKey(t *testing.T) {
	_, err := New(Config{ProductID: "p", PublicKey: "not-a-key", StorageDir: t.TempDir()})
	assert.Error(t, err)
}

func TestCheckWithNoStoredLicense(t *testing.T) {
	pub, _ := synth.NewKeyPair()
	cl, err := New(Config{
		ProductID:  "prod_1",
		PublicKey:  spkiBase64(pub),
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)

	v := cl.Check(context.Background())
	assert.False(t, v.Valid)
}

func TestStoreThenCheckValidatesOffline(t *testing.T) {
	pub, priv := synth.NewKeyPair()
	srv := mockserver.New()
	defer srv.Close()

	cl, err := New(Config{
		ProductID:  "prod_1",
		PublicKey:  spkiBase64(pub),
		APIBaseURL: srv.URL,
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)

	raw := synth.Sign(priv, synth.Seed{ProductID: "prod_1", IssuedAtMs: time.Now().UnixMilli()})
	v := cl.Store(context.Background(), raw)

	assert.True(t, v.Valid)
	assert.Equal(t, 0, int(srv.RequestCount()), "a fresh cached record needs no remote round-trip")
}

func TestBackgroundRefreshPublishesAtLeastOneVerdict(t *testing.T) {
	pub, priv := synth.NewKeyPair()
	cl, err := New(Config{
		ProductID:  "prod_1",
		PublicKey:  spkiBase64(pub),
		StorageDir: t.TempDir(),
	})
	require.NoError(t, err)

	raw := synth.Sign(priv, synth.Seed{ProductID: "prod_1", IssuedAtMs: time.Now().UnixMilli()})
	cl.Store(context.Background(), raw)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	verdicts := cl.StartBackgroundRefresh(ctx, time.Hour)
	first := <-verdicts
	assert.True(t, first.Valid)
}
