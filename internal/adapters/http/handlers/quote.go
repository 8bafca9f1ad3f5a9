package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-keeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-keeper/internal/app"
	"github.com/jsamuelsen/quote-keeper/internal/domain"
)

// DefaultMaxImportBytes caps an import document when no limit is configured.
const DefaultMaxImportBytes = 1 << 20

// importFormField is the multipart field carrying an uploaded import file.
const importFormField = "file"

// QuoteHandler serves the quote collection.
type QuoteHandler struct {
	service        *app.QuoteService
	maxImportBytes int64
}

// QuoteHandlerOption customizes a QuoteHandler.
type QuoteHandlerOption func(*QuoteHandler)

// WithMaxImportBytes bounds the size of an import document.
func WithMaxImportBytes(n int64) QuoteHandlerOption {
	return func(h *QuoteHandler) {
		if n > 0 {
			h.maxImportBytes = n
		}
	}
}

// NewQuoteHandler creates a quote handler.
func NewQuoteHandler(service *app.QuoteService, opts ...QuoteHandlerOption) *QuoteHandler {
	h := &QuoteHandler{
		service:        service,
		maxImportBytes: DefaultMaxImportBytes,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ListQuotes handles GET /api/v1/quotes.
// Without a category query the persisted filter selection applies.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Param category query string false "Category, or \"all\""
// @Success 200 {object} dto.ListQuotesResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var query dto.ListQuotesQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		h.badRequest(c, err)
		return
	}

	quotes, selection := h.service.ListQuotes(c.Request.Context(), query.Category)

	c.JSON(http.StatusOK, dto.ListQuotesResponse{
		Category: selection,
		Count:    len(quotes),
		Quotes:   dto.NewQuoteResponses(quotes),
	})
}

// AddQuote handles POST /api/v1/quotes.
//
// @Summary Add a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param body body dto.AddQuoteRequest true "Quote"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	q, err := h.service.AddQuote(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(q))
}

// RandomQuote handles GET /api/v1/quotes/random.
//
// @Summary Get a random quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	q, err := h.service.RandomQuote(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	ctx := c.Request.Context()

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: append([]string{domain.FilterAll}, h.service.Categories(ctx)...),
		Selected:   h.service.SelectedFilter(ctx),
	})
}

// GetFilter handles GET /api/v1/filter.
func (h *QuoteHandler) GetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FilterResponse{Category: h.service.SelectedFilter(c.Request.Context())})
}

// SetFilter handles PUT /api/v1/filter.
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()

	if err := h.service.SetFilter(ctx, req.Category); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FilterResponse{Category: h.service.SelectedFilter(ctx)})
}

// ImportQuotes handles POST /api/v1/quotes/import. The document is either the
// raw request body or a multipart upload in the "file" field.
//
// @Summary Import quotes
// @Tags quotes
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes)

	body, closeBody, err := h.importSource(c)
	if err != nil {
		h.importFailed(c, err)
		return
	}
	defer closeBody()

	n, err := h.service.ImportQuotes(c.Request.Context(), body)
	if err != nil {
		h.importFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{
		Imported: n,
		Total:    h.service.Count(c.Request.Context()),
	})
}

func (h *QuoteHandler) importSource(c *gin.Context) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return c.Request.Body, func() {}, nil
	}

	header, err := c.FormFile(importFormField)
	if err != nil {
		return nil, nil, domain.NewImportError("missing \""+importFormField+"\" upload", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening upload: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}

func (h *QuoteHandler) importFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		dto.AbortWithCode(c, dto.ErrorCodePayloadTooLarge,
			fmt.Sprintf("import document exceeds %d bytes", tooLarge.Limit))

		return
	}

	dto.HandleError(c, err)
}

// ExportQuotes handles GET /api/v1/quotes/export.
//
// @Summary Export quotes
// @Tags quotes
// @Produce json
// @Success 200 {array} dto.QuoteResponse
// @Router /api/v1/quotes/export [get]
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.ExportFilename))
	c.Status(http.StatusOK)

	if err := h.service.ExportQuotes(c.Request.Context(), c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// Sync handles POST /api/v1/sync and runs one sync cycle now.
// A cycle already in flight yields skipped=true rather than a second fetch.
//
// @Summary Sync with the remote source
// @Tags sync
// @Produce json
// @Success 200 {object} dto.SyncResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/sync [post]
func (h *QuoteHandler) Sync(c *gin.Context) {
	result, err := h.service.SyncNow(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(result))
}

// Notifications handles GET /api/v1/notifications.
func (h *QuoteHandler) Notifications(c *gin.Context) {
	version, items := h.service.Notifications(c.Request.Context())

	c.JSON(http.StatusOK, dto.NewNotificationsResponse(version, items))
}

// RegisterQuoteRoutes registers the collection routes on rg. syncGuards run
// in front of POST /sync only.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup, syncGuards ...gin.HandlerFunc) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.POST("/import", h.ImportQuotes)
	quotes.GET("/export", h.ExportQuotes)

	rg.GET("/categories", h.Categories)
	rg.GET("/filter", h.GetFilter)
	rg.PUT("/filter", h.SetFilter)
	rg.GET("/notifications", h.Notifications)

	rg.POST("/sync", append(syncGuards, h.Sync)...)
}

// badRequest maps binding and validation failures onto the error envelope.
func (h *QuoteHandler) badRequest(c *gin.Context, err error) {
	if errors.Is(err, dto.ErrValidation) {
		resp := dto.NewErrorResponseWithDetails(dto.ErrorCodeValidation, "request validation failed",
			dto.ValidationErrors(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, resp.WithTraceID(dto.GetTraceID(c)))

		return
	}

	dto.AbortWithCode(c, dto.ErrorCodeBadRequest, "malformed request body")
}
