package acl

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-keeper/internal/platform/config"
)

func newTestClient(t *testing.T, handler http.Handler) *clients.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{
		ServiceName: "remote-quotes",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   10,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 3,
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	return client
}

func newPostsClient(t *testing.T, handler http.HandlerFunc) *PostsClient {
	t.Helper()

	return NewPostsClient(PostsClientConfig{
		Client: newTestClient(t, handler),
		Logger: discardLogger(),
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
