//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// remoteStub plays the remote posts collection. It serves an empty array
// until told otherwise.
type remoteStub struct {
	server *httptest.Server
	calls  atomic.Int32

	mu      sync.Mutex
	titles  []string
	failing int // number of upcoming requests answered with 503; -1 means always
}

func newRemoteStub() *remoteStub {
	s := &remoteStub{}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))

	return s
}

func (s *remoteStub) handle(w http.ResponseWriter, _ *http.Request) {
	s.calls.Add(1)

	s.mu.Lock()
	titles := s.titles
	fail := s.failing != 0

	if s.failing > 0 {
		s.failing--
	}
	s.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	posts := make([]map[string]any, len(titles))
	for i, title := range titles {
		posts[i] = map[string]any{"userId": 1, "id": i + 1, "title": title, "body": "ignored"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(posts)
}

// Serve replaces the served titles and clears any failure mode.
func (s *remoteStub) Serve(titles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.titles = titles
	s.failing = 0
}

// Fail answers every request with 503.
func (s *remoteStub) Fail() {
	s.FailNext(-1)
}

// FailNext answers the next n requests with 503.
func (s *remoteStub) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failing = n
}

// Calls reports how many requests reached the stub.
func (s *remoteStub) Calls() int {
	return int(s.calls.Load())
}

func (s *remoteStub) URL() string {
	return s.server.URL
}

func (s *remoteStub) Close() {
	s.server.Close()
}
