// Package fingerprint derives a stable machine identifier from host
// attributes, the way the teacher's license checker derived one from
// os.Hostname() plus a storage path (internal/license/license.go in the
// original server), generalized here to the four components and remap
// tables the SDK's machine-binding contract requires.
package fingerprint

import (
	"crypto/sha256"
	"os"
	"os/user"
	"runtime"
	"strings"
	"sync"

	"github.com/tuishdotdev/tuish-go/internal/codec"
)

// Fingerprint computes and caches the current machine's stable identifier.
// A zero-value Fingerprint is ready to use.
type Fingerprint struct {
	once  sync.Once
	value string
}

// Compute returns the lowercase hex SHA-256 of "hostname:username:platform:arch".
// The result is cached on f for the life of the process/struct, as the spec's
// design notes recommend.
func (f *Fingerprint) Compute() string {
	f.once.Do(func() {
		f.value = compute(hostname(), username(), normalizedPlatform(), normalizedArch())
	})
	return f.value
}

// Machine is a package-level singleton Fingerprint for callers that don't
// need a distinct instance (e.g. the CLI and the resolver's default wiring).
var Machine = &Fingerprint{}

func compute(hostname, username, platform, arch string) string {
	joined := strings.Join([]string{hostname, username, platform, arch}, ":")
	sum := sha256.Sum256([]byte(joined))
	return codec.EncodeHex(sum[:])
}

// hostname returns the OS-reported host name, or "" on failure — any single
// component lookup failing substitutes the empty string rather than failing
// the whole call, so the fingerprint stays stable as long as the failure does.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func username() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		if env := os.Getenv("USER"); env != "" {
			return env
		}
		if env := os.Getenv("USERNAME"); env != "" {
			return env
		}
		return ""
	}
	return u.Username
}

// normalizedPlatform lowercases runtime.GOOS and remaps it to the fingerprint
// contract's canonical spelling via remapPlatform.
func normalizedPlatform() string {
	return remapPlatform(runtime.GOOS)
}

// remapPlatform maps a lowercased GOOS-style platform name to its
// cross-SDK canonical spelling. Exposed as its own function (rather than
// inlined in normalizedPlatform) so tests can drive the real remap table
// with arbitrary inputs instead of depending on the test machine's actual
// runtime.GOOS.
func remapPlatform(goos string) string {
	p := strings.ToLower(goos)
	switch p {
	case "darwin", "macos":
		return "darwin"
	case "windows":
		return "win32"
	default:
		return p
	}
}

// normalizedArch lowercases runtime.GOARCH and remaps it to the fingerprint
// contract's canonical architecture name via remapArch.
func normalizedArch() string {
	return remapArch(runtime.GOARCH)
}

// remapArch maps a lowercased GOARCH-style architecture name to the
// canonical architecture names the fingerprint contract uses. Exposed as its
// own function for the same reason as remapPlatform above.
func remapArch(goarch string) string {
	a := strings.ToLower(goarch)
	switch a {
	case "x86_64", "amd64":
		return "x64"
	case "aarch64", "arm64":
		return "arm64"
	case "x86", "i386", "i686":
		return "ia32"
	case "arm":
		return "arm"
	default:
		return a
	}
}
