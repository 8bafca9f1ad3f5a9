package clients

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-keeper/internal/platform/config"
)

const postsJSON = `[{"userId":1,"id":1,"title":"sunt aut facere","body":"quia et suscipit"}]`

// postsSource answers GET /posts with a scripted status per call. The last
// status repeats once the script runs out.
type postsSource struct {
	server   *httptest.Server
	calls    atomic.Int32
	statuses []int

	mu      sync.Mutex
	headers []http.Header
}

func newPostsSource(t *testing.T, statuses ...int) *postsSource {
	t.Helper()

	if len(statuses) == 0 {
		statuses = []int{http.StatusOK}
	}

	s := &postsSource{statuses: statuses}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1)) - 1

		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		if r.URL.Path != "/posts" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		status := s.statuses[min(n, len(s.statuses)-1)]
		w.WriteHeader(status)

		if status == http.StatusOK {
			_, _ = io.WriteString(w, postsJSON)
		}
	}))
	t.Cleanup(s.server.Close)

	return s
}

func (s *postsSource) lastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.headers[len(s.headers)-1]
}

// remoteQuotesConfig mirrors the local profile, with backoff shrunk for tests.
func remoteQuotesConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		ServiceName: "remote-quotes",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, HalfOpenLimit: 1},
	}
}

func newRemoteClient(t *testing.T, cfg *Config) *Client {
	t.Helper()

	client, err := New(cfg)
	require.NoError(t, err)

	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
		wantURL string
	}{
		{name: "nil config", wantErr: "config is required"},
		{name: "missing service name", cfg: &Config{BaseURL: "https://jsonplaceholder.typicode.com"}, wantErr: "service name is required"},
		{name: "trailing slash trimmed", cfg: remoteQuotesConfig("https://jsonplaceholder.typicode.com/"), wantURL: "https://jsonplaceholder.typicode.com"},
		{name: "zero values filled", cfg: &Config{ServiceName: "remote-quotes"}, wantURL: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, client.baseURL)
			assert.Equal(t, "remote-quotes", client.ServiceName())
			assert.Positive(t, client.cfg.Retry.MaxAttempts)
			assert.NotZero(t, client.http.Timeout)
		})
	}
}

func TestClient_Get_RetriesPosts(t *testing.T) {
	tests := []struct {
		name        string
		statuses    []int
		maxAttempts int
		wantCalls   int32
		wantStatus  int
		wantErr     string
	}{
		{name: "posts on the first try", statuses: []int{200}, maxAttempts: 3, wantCalls: 1, wantStatus: 200},
		{name: "two 503s then posts", statuses: []int{503, 503, 200}, maxAttempts: 3, wantCalls: 3, wantStatus: 200},
		{name: "404 is handed back without retrying", statuses: []int{404}, maxAttempts: 3, wantCalls: 1, wantStatus: 404},
		{name: "429 is handed back without retrying", statuses: []int{429, 200}, maxAttempts: 3, wantCalls: 1, wantStatus: 429},
		{name: "every attempt fails", statuses: []int{500, 502, 503}, maxAttempts: 3, wantCalls: 3, wantErr: "server error: 503"},
		{name: "single attempt gives up at once", statuses: []int{503, 200}, maxAttempts: 1, wantCalls: 1, wantErr: "server error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newPostsSource(t, tt.statuses...)

			cfg := remoteQuotesConfig(source.server.URL)
			cfg.Retry.MaxAttempts = tt.maxAttempts

			resp, err := newRemoteClient(t, cfg).Get(context.Background(), "posts")

			assert.Equal(t, tt.wantCalls, source.calls.Load())

			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrMaxRetriesExceeded)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.JSONEq(t, postsJSON, string(body))
			}
		})
	}
}

func TestClient_Get_OutboundHeaders(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func() context.Context
		auth     func(*http.Request)
		expected map[string]string
	}{
		{
			name: "scheduled sync carries no request IDs",
			ctx:  context.Background,
			expected: map[string]string{
				"Accept":                       "application/json",
				middleware.HeaderRequestID:     "",
				middleware.HeaderCorrelationID: "",
			},
		},
		{
			name: "manual sync forwards the inbound IDs",
			ctx: func() context.Context {
				ctx := middleware.ContextWithRequestID(context.Background(), "req-sync-42")
				return middleware.ContextWithCorrelationID(ctx, "corr-sync-42")
			},
			expected: map[string]string{
				middleware.HeaderRequestID:     "req-sync-42",
				middleware.HeaderCorrelationID: "corr-sync-42",
			},
		},
		{
			name: "auth decorator",
			ctx:  context.Background,
			auth: func(r *http.Request) { r.Header.Set("Authorization", "Bearer qk-remote") },
			expected: map[string]string{
				"Authorization": "Bearer qk-remote",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newPostsSource(t)

			cfg := remoteQuotesConfig(source.server.URL)
			cfg.AuthFunc = tt.auth

			resp, err := newRemoteClient(t, cfg).Get(tt.ctx(), "/posts")
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())

			got := source.lastHeader()
			for key, want := range tt.expected {
				assert.Equal(t, want, got.Get(key), key)
			}
		})
	}
}

func TestClient_AuthFuncRunsOnEveryAttempt(t *testing.T) {
	source := newPostsSource(t, http.StatusBadGateway, http.StatusOK)

	var decorated atomic.Int32

	cfg := remoteQuotesConfig(source.server.URL)
	cfg.AuthFunc = func(r *http.Request) {
		decorated.Add(1)
		r.Header.Set("Authorization", fmt.Sprintf("Bearer qk-remote-%d", decorated.Load()))
	}

	resp, err := newRemoteClient(t, cfg).Get(context.Background(), "/posts")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, int32(2), decorated.Load())
	assert.Equal(t, "Bearer qk-remote-2", source.lastHeader().Get("Authorization"))
}

func TestClient_BreakerAcrossSyncCycles(t *testing.T) {
	source := newPostsSource(t, http.StatusServiceUnavailable)

	cfg := remoteQuotesConfig(source.server.URL)
	cfg.Retry.MaxAttempts = 2
	cfg.Circuit.MaxFailures = 2

	client := newRemoteClient(t, cfg)

	cycles := []struct {
		wantErr   error
		wantState State
		wantCalls int32
	}{
		{wantErr: ErrMaxRetriesExceeded, wantState: StateClosed, wantCalls: 2},
		{wantErr: ErrMaxRetriesExceeded, wantState: StateOpen, wantCalls: 4},
		{wantErr: ErrCircuitOpen, wantState: StateOpen, wantCalls: 4},
		{wantErr: ErrCircuitOpen, wantState: StateOpen, wantCalls: 4},
	}

	for i, cycle := range cycles {
		_, err := client.Get(context.Background(), "/posts")

		require.ErrorIs(t, err, cycle.wantErr, "cycle %d", i)
		assert.Equal(t, cycle.wantState, client.CircuitState(), "cycle %d", i)
		assert.Equal(t, cycle.wantCalls, source.calls.Load(), "cycle %d", i)
	}
}

func TestClient_Get_GivesUpWithoutRetrying(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	failing := newPostsSource(t, http.StatusServiceUnavailable)

	tests := []struct {
		name    string
		baseURL string
		tune    func(*Config)
		ctx     func() (context.Context, context.CancelFunc)
		wantIs  error
	}{
		{
			name:    "shutdown cancels the sync",
			baseURL: slow.URL,
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				return ctx, cancel
			},
			wantIs: context.Canceled,
		},
		{
			name:    "deadline expires during backoff",
			baseURL: failing.server.URL,
			tune: func(c *Config) {
				c.Retry.InitialInterval = time.Second
				c.Retry.MaxInterval = time.Second
			},
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 100*time.Millisecond)
			},
			wantIs: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := remoteQuotesConfig(tt.baseURL)
			if tt.tune != nil {
				tt.tune(cfg)
			}

			ctx, cancel := tt.ctx()
			defer cancel()

			_, err := newRemoteClient(t, cfg).Get(ctx, "/posts")

			require.ErrorIs(t, err, tt.wantIs)
			assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
		})
	}
}

func TestClient_AttemptTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	cfg := remoteQuotesConfig(slow.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.Retry.MaxAttempts = 1

	client := newRemoteClient(t, cfg)

	start := time.Now()
	_, err := client.Get(context.Background(), "/posts")

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name        string
		in          config.TransportConfig
		idle        int
		idlePerHost int
		idleTimeout time.Duration
	}{
		{
			name:        "single remote host",
			in:          config.TransportConfig{MaxIdleConns: 4, MaxIdleConnsPerHost: 2, IdleConnTimeout: time.Minute},
			idle:        4,
			idlePerHost: 2,
			idleTimeout: time.Minute,
		},
		{
			name:        "zero values fall back",
			idle:        defaultMaxIdleConns,
			idlePerHost: defaultMaxIdleConnsPerHost,
			idleTimeout: defaultIdleConnTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newTransport(tt.in)

			assert.Equal(t, tt.idle, transport.MaxIdleConns)
			assert.Equal(t, tt.idlePerHost, transport.MaxIdleConnsPerHost)
			assert.Equal(t, tt.idleTimeout, transport.IdleConnTimeout)
		})
	}
}

func TestClient_BuildURL(t *testing.T) {
	client := newRemoteClient(t, remoteQuotesConfig("https://jsonplaceholder.typicode.com/"))

	for _, path := range []string{"/posts", "posts"} {
		assert.Equal(t, "https://jsonplaceholder.typicode.com/posts", client.buildURL(path))
	}
}

func TestCalculateBackoff(t *testing.T) {
	// Local profile: 200ms doubling, capped at 2s.
	retry := config.RetryConfig{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second, Multiplier: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 200 * time.Millisecond},
		{1, 400 * time.Millisecond},
		{3, 1600 * time.Millisecond},
		{4, 2 * time.Second},
		{10, 2 * time.Second},
	}

	cfg := remoteQuotesConfig("")
	cfg.Retry = retry
	client := newRemoteClient(t, cfg)

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, client.calculateBackoff(tt.attempt))
		})
	}

	t.Run("jitter stays inside its band", func(t *testing.T) {
		cfg := remoteQuotesConfig("")
		cfg.Retry = retry
		cfg.Retry.JitterFactor = 0.1
		jittered := newRemoteClient(t, cfg)

		for range 100 {
			got := jittered.calculateBackoff(1)
			assert.GreaterOrEqual(t, got, 360*time.Millisecond)
			assert.LessOrEqual(t, got, 440*time.Millisecond)
		}
	})
}

type stubNetError struct{ timeout bool }

func (e stubNetError) Error() string   { return "stub net error" }
func (e stubNetError) Timeout() bool   { return e.timeout }
func (e stubNetError) Temporary() bool { return false }

func TestIsRetryableError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"connection refused", refused, true},
		{"connection reset wrapped by the url error", &url.Error{Op: "Get", URL: "https://jsonplaceholder.typicode.com/posts", Err: &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}}, true},
		{"timeout", stubNetError{timeout: true}, true},
		{"non-timeout net error", stubNetError{}, false},
		{"unknown host", &net.DNSError{Err: "no such host", Name: "jsonplaceholder.typicode.com", IsNotFound: true}, false},
		{"shutdown", &url.Error{Op: "Get", URL: "https://jsonplaceholder.typicode.com/posts", Err: context.Canceled}, false},
		{"deadline", fmt.Errorf("fetching posts: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}
