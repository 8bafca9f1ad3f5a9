package domain

import "strings"

const (
	// FilterAll is the selection that matches every category.
	FilterAll = "all"

	// ServerCategory is the category assigned to quotes pulled from the remote source.
	ServerCategory = "Server"
)

// Quote is a text and the category it is filed under.
// Quotes are values: there is no identity field and no in-place editing.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuote trims both fields and returns a ValidationError if either ends up empty.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports a ValidationError for the first blank field.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// DefaultQuotes returns the collection used when nothing has been stored yet.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The best way to get started is to quit talking and begin doing.", Category: "Motivation"},
		{Text: "Dont let yesterday take up too much of today.", Category: "Inspiration"},
		{Text: "Your limitation—it’s only your imagination.", Category: "Self-Improvement"},
	}
}
