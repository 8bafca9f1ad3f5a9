package dto

import (
	"time"

	"github.com/jsamuelsen/quote-keeper/internal/app"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

// Length limits on user-entered quotes.
const (
	MaxTextLength     = 1000
	MaxCategoryLength = 100
)

// QuoteResponse is one quote on the wire.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice, never returning nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// ListQuotesQuery is the GET /quotes query string.
type ListQuotesQuery struct {
	Category string `form:"category" json:"category" validate:"max=100"`
}

// ListQuotesResponse is the filtered view of the collection.
type ListQuotesResponse struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Quotes   []QuoteResponse `json:"quotes"`
}

// AddQuoteRequest is the POST /quotes body.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notblank,max=1000"`
	Category string `json:"category" validate:"required,notblank,max=100"`
}

// CategoriesResponse lists the categories present plus the "all" selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// FilterRequest is the PUT /filter body.
type FilterRequest struct {
	Category string `json:"category" validate:"required,notblank,max=100"`
}

// FilterResponse is the current filter selection.
type FilterResponse struct {
	Category string `json:"category"`
}

// ImportResponse reports how many quotes were appended.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// SyncResponse reports a manual sync cycle.
type SyncResponse struct {
	Skipped bool `json:"skipped"`
	Fetched int  `json:"fetched"`
	Changed bool `json:"changed"`
	Total   int  `json:"total"`
}

// NewSyncResponse converts a sync result.
func NewSyncResponse(r app.SyncResult) SyncResponse {
	return SyncResponse{Skipped: r.Skipped, Fetched: r.Fetched, Changed: r.Changed, Total: r.Total}
}

// NotificationResponse is one raised message.
type NotificationResponse struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NotificationsResponse is the change version and recent messages, oldest first.
// Clients poll it and re-fetch quotes when Version moves.
type NotificationsResponse struct {
	Version       uint64                 `json:"version"`
	Notifications []NotificationResponse `json:"notifications"`
}

// NewNotificationsResponse converts a feed snapshot.
func NewNotificationsResponse(version uint64, items []app.Notification) NotificationsResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{Message: n.Message, At: n.At})
	}

	return NotificationsResponse{Version: version, Notifications: out}
}
