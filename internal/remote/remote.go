// Package remote defines the RemoteValidator boundary the Resolver depends
// on, and an HTTP implementation grounded on the teacher's Keygen.sh client
// (internal/license/license.go in the original server): same JSON
// request/response idiom, same bounded http.Client, same non-2xx/5xx
// handling, generalized to the license-token API this SDK validates against.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/tuishdotdev/tuish-go/internal/verifier"
)

// LicenseDetails is what the server returns about a valid license.
type LicenseDetails struct {
	ID         string   `json:"id"`
	ProductID  string   `json:"product_id"`
	Features   []string `json:"features"`
	Status     string   `json:"status"`
	IssuedAt   int64    `json:"issued_at"`
	ExpiresAt  *int64   `json:"expires_at,omitempty"`
}

// Result is the bounded outcome of an online validation call. Reason is
// meaningful only when Valid is false. HTTPValidator sets ReasonNetworkError
// itself on a transport failure; otherwise Reason is the server's reason
// string as received, not checked against verifier.ReasonCode's values (the
// server is expected to answer with one other than not_found/invalid_format).
type Result struct {
	Valid   bool
	Reason  verifier.ReasonCode
	License *LicenseDetails
}

// Validator is the external boundary the Resolver depends on. Validate never
// returns a Go error: a transport, timeout, DNS, or 5xx failure is collapsed
// into Result{Valid:false, Reason:ReasonNetworkError} at this boundary, so
// the Resolver only ever branches on the bounded Result kind (spec.md §4.7).
type Validator interface {
	Validate(ctx context.Context, licenseKey, machineFingerprint string) Result
}

// HTTPValidator calls a remote license API over HTTPS.
type HTTPValidator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPValidator constructs an HTTPValidator. timeout bounds each
// individual HTTP attempt (spec.md §5's "implementation-defined timeout,
// typically 30 seconds").
func NewHTTPValidator(baseURL, apiKey string, timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type validateRequest struct {
	LicenseKey         string `json:"license_key"`
	MachineFingerprint string `json:"machine_fingerprint"`
}

type validateResponse struct {
	Valid   bool            `json:"valid"`
	Reason  string          `json:"reason,omitempty"`
	License *LicenseDetails `json:"license,omitempty"`
}

// Validate posts a validation request, retrying transient transport failures
// with a short bounded exponential backoff (the retry policy is the one
// thing spec.md §4.7 leaves to the implementation) before collapsing any
// remaining failure into Result{Reason: ReasonNetworkError} — the mapping
// spec.md §4.7 requires the Resolver be able to depend on unconditionally.
func (h *HTTPValidator) Validate(ctx context.Context, licenseKey, machineFingerprint string) Result {
	var result Result
	requestID := uuid.NewString()

	op := func() error {
		r, err := h.attempt(ctx, licenseKey, machineFingerprint, requestID)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Result{Valid: false, Reason: verifier.ReasonNetworkError}
	}
	return result
}

func (h *HTTPValidator) attempt(ctx context.Context, licenseKey, machineFingerprint, requestID string) (Result, error) {
	payload, err := json.Marshal(validateRequest{
		LicenseKey:         licenseKey,
		MachineFingerprint: machineFingerprint,
	})
	if err != nil {
		return Result{}, fmt.Errorf("remote: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/licenses/validate", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("remote: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{}, fmt.Errorf("remote: server error: %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, backoff.Permanent(fmt.Errorf("remote: client error %d: %s", resp.StatusCode, body))
	}

	var vr validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Result{}, fmt.Errorf("remote: decode response: %w", err)
	}

	return Result{
		Valid:   vr.Valid,
		Reason:  verifier.ReasonCode(vr.Reason),
		License: vr.License,
	}, nil
}
