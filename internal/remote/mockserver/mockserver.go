// Package mockserver stands in for the real license validation API in
// integration tests of internal/remote.HTTPValidator, using the teacher's
// own HTTP router (github.com/go-chi/chi/v5) so the transport stack is
// exercised end-to-end without a live network dependency.
package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// Response is the canned reply the server returns for the next request(s).
type Response struct {
	StatusCode int
	Body       any // marshaled as JSON; ignored if StatusCode >= 400 and Body is nil
}

// Server is a controllable stand-in for the validation API.
type Server struct {
	*httptest.Server
	requestCount atomic.Int64
	nextResponse atomic.Pointer[Response]
	failNTimes   atomic.Int64 // if > 0, returns 503 and decrements, ignoring nextResponse
}

// New starts a mock validation server.
func New() *Server {
	s := &Server{}
	r := chi.NewRouter()
	r.Post("/v1/licenses/validate", s.handleValidate)
	s.Server = httptest.NewServer(r)
	return s
}

// SetResponse configures the canned response for all subsequent requests
// (until SetResponse is called again). Failures queued by FailNextN take
// precedence while any remain.
func (s *Server) SetResponse(resp Response) {
	s.nextResponse.Store(&resp)
}

// FailNextN makes the next n requests return HTTP 503, to exercise
// HTTPValidator's retry-then-network_error path.
func (s *Server) FailNextN(n int64) {
	s.failNTimes.Store(n)
}

// RequestCount returns how many requests the server has handled.
func (s *Server) RequestCount() int64 {
	return s.requestCount.Load()
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.requestCount.Add(1)

	if s.failNTimes.Load() > 0 {
		s.failNTimes.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	resp := s.nextResponse.Load()
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]bool{"valid": true}) //nolint:errcheck
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		json.NewEncoder(w).Encode(resp.Body) //nolint:errcheck
	}
}
