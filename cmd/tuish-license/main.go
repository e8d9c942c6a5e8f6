// Command tuish-license is a thin CLI front-end over the SDK's public
// boundary (package license at the repo root) — it never reaches into
// internal/ itself, the same way the teacher's cmd/server/main.go only calls
// into its internal/ packages through their exported constructors.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/tuishdotdev/tuish-go"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := license.Load()
	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	cl, err := license.New(cfg)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "check":
		emit(cl.Check(ctx))
	case "store":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tuish-license store <license-key>")
			os.Exit(2)
		}
		emit(cl.Store(ctx, os.Args[2]))
	case "status":
		v := cl.Check(ctx)
		emitCompact(map[string]bool{"valid": v.Valid})
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tuish-license <check|store <key>|status>")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// emit prints a Verdict, pretty for a TTY (mirroring a human running the
// teacher's CLI-equivalent tools interactively), compact JSON when piped.
func emit(v license.Verdict) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		emitCompact(v)
		return
	}

	if v.Valid {
		fmt.Printf("valid: true\n")
		if v.License != nil && v.License.ExpiresAt != nil {
			remaining := time.Until(time.UnixMilli(*v.License.ExpiresAt))
			fmt.Printf("expires: %s\n", humanize.Time(time.Now().Add(remaining)))
		} else {
			fmt.Println("expires: never")
		}
		return
	}

	fmt.Printf("valid: false\n")
	fmt.Printf("reason: %s\n", v.Reason)
}

func emitCompact(v any) {
	json.NewEncoder(os.Stdout).Encode(v) //nolint:errcheck
}
