package acl

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/clients"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// DefaultPostsPath is the collection the remote source serves posts from.
const DefaultPostsPath = "/posts"

// PostsClientConfig configures a PostsClient.
type PostsClientConfig struct {
	// Client is pointed at the remote source's base URL.
	Client *clients.Client

	// Path of the posts collection. Defaults to DefaultPostsPath.
	Path string

	// Category every fetched quote is filed under. Defaults to domain.ServerCategory.
	Category string

	Logger *slog.Logger
}

var errMissingTitle = errors.New("post has no string title")

// PostsClient reads remote posts and turns each title into a quote.
type PostsClient struct {
	BaseAdapter

	path     string
	category string
	logger   *slog.Logger
}

var (
	_ ports.RemoteQuoteSource = (*PostsClient)(nil)
	_ ports.HealthChecker     = (*PostsClient)(nil)
)

// NewPostsClient creates the adapter. Panics if Client is nil.
func NewPostsClient(cfg PostsClientConfig) *PostsClient {
	if cfg.Client == nil {
		panic("acl: PostsClient requires a client")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPostsPath
	}

	category := cfg.Category
	if category == "" {
		category = domain.ServerCategory
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PostsClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        path,
		category:    category,
		logger:      logger.With(slog.String("component", "acl.PostsClient")),
	}
}

// post is the remote wire shape. Only the title is used. It is a pointer so a
// missing or null title can be told apart from an empty one.
type post struct {
	Title *string `json:"title"`
}

// FetchQuotes returns one quote per remote post, in remote order. A non-array
// body, a post without a string title, a non-2xx status and a transport error
// are all reported as a domain.SyncFetchError.
func (c *PostsClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	logger := logging.FromContextOr(ctx, c.logger)
	logger.DebugContext(ctx, "fetching remote quotes", slog.String("path", c.path))

	body, err := c.Get(ctx, c.path, "fetch quotes")
	if err != nil {
		return nil, domain.NewSyncFetchError(c.ServiceName(), err)
	}

	posts, err := DecodeResponse[[]post](body)
	if err != nil {
		return nil, domain.NewSyncFetchError(c.ServiceName(), err)
	}

	quotes, err := TranslateSlice(*posts, c.translate)
	if err != nil {
		return nil, domain.NewSyncFetchError(c.ServiceName(), err)
	}

	logger.Log(ctx, logging.LevelTrace, "translated remote posts", slog.Int("count", len(quotes)))

	return quotes, nil
}

func (c *PostsClient) translate(p *post) (domain.Quote, error) {
	if p.Title == nil {
		return domain.Quote{}, errMissingTitle
	}

	return domain.Quote{Text: *p.Title, Category: c.category}, nil
}

// Name implements ports.HealthChecker.
func (c *PostsClient) Name() string {
	return c.ServiceName()
}

// Check reports the remote source unhealthy while its circuit is open, and
// otherwise probes the posts collection.
func (c *PostsClient) Check(ctx context.Context) error {
	if c.client.CircuitState() == clients.StateOpen {
		return domain.NewUnavailableError(c.ServiceName(), "circuit breaker open")
	}

	body, err := c.Get(ctx, c.path, "health check")
	if err != nil {
		return err
	}

	return body.Close()
}
