package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nDmitry/imagefeed/internal/app"
	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

// Loaders provides the composed resource loaders served over HTTP
type Loaders interface {
	FeedLoader() loader.LoadFunc[[]entity.FeedItem]
	LoadMore(ctx context.Context, afterID uuid.UUID) ([]entity.FeedItem, error)
	CommentsLoader(imageID uuid.UUID) loader.LoadFunc[[]entity.Comment]
	ImageDataLoader(url string) loader.LoadFunc[[]byte]
	AllowsImage(ctx context.Context, url string) (bool, error)
	ValidateCache(ctx context.Context) error
}

// Generator renders feed items as RSS or Atom
type Generator interface {
	Generate(ctx context.Context, items []entity.FeedItem, params *entity.FeedParams) ([]byte, error)
}

var (
	errUnavailable    = errors.New("resource is unavailable, try again later")
	errImageNotInFeed = errors.New("image is not part of the feed")
)

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

// FeedHandler handles routes for the image feed
type FeedHandler struct {
	loaders   Loaders
	generator Generator
	logger    *slog.Logger
}

// NewFeedHandler creates a new FeedHandler and registers its routes on mux
func NewFeedHandler(mux *http.ServeMux, l Loaders, g Generator) *FeedHandler {
	handler := &FeedHandler{
		loaders:   l,
		generator: g,
		logger:    app.Logger(),
	}

	mux.HandleFunc("GET /feed", handler.GetFeed)
	mux.HandleFunc("GET /feed/more", handler.GetMore)
	mux.HandleFunc("GET /images/{id}/comments", handler.GetComments)
	mux.HandleFunc("GET /images/data", handler.GetImageData)
	mux.HandleFunc("POST /cache/validate", handler.ValidateCache)

	return handler
}

// GetFeed serves the first feed page, falling back to the cached one
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewFeedParamsFromRequest(r, false)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	items, err := await(r.Context(), h.loaders.FeedLoader())

	if err != nil {
		h.handleLoadError(w, r, err)
		return
	}

	h.serveItems(w, r, items, params)
}

// GetMore appends the page after after_id to the cached feed and serves the result
func (h *FeedHandler) GetMore(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewFeedParamsFromRequest(r, true)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	afterID := *params.AfterID

	items, err := await(r.Context(), func(ctx context.Context) ([]entity.FeedItem, error) {
		return h.loaders.LoadMore(ctx, afterID)
	})

	if err != nil {
		h.handleLoadError(w, r, err)
		return
	}

	h.serveItems(w, r, items, params)
}

// GetComments serves the comments of a single image
func (h *FeedHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	imageID, err := entity.ImageIDFromRequest(r)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	comments, err := await(r.Context(), h.loaders.CommentsLoader(imageID))

	if err != nil {
		h.handleLoadError(w, r, err)
		return
	}

	h.serveJSON(w, itemsResponse[entity.Comment]{Items: comments})
}

// GetImageData serves the raw bytes of an image from the feed or a configured host
func (h *FeedHandler) GetImageData(w http.ResponseWriter, r *http.Request) {
	imageURL, err := entity.ImageURLFromRequest(r)

	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	allowed, err := h.loaders.AllowsImage(r.Context(), imageURL)

	if err != nil {
		h.handleLoadError(w, r, err)
		return
	}

	if !allowed {
		h.handleError(w, errImageNotInFeed, http.StatusForbidden)
		return
	}

	data, err := await(r.Context(), h.loaders.ImageDataLoader(imageURL))

	if err != nil {
		h.handleLoadError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.Warn("Failed to write image data", "error", err, "url", imageURL)
	}
}

// ValidateCache drops every expired cache entry
func (h *FeedHandler) ValidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.loaders.ValidateCache(r.Context()); err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) serveItems(w http.ResponseWriter, r *http.Request, items []entity.FeedItem, params *entity.FeedParams) {
	if items == nil {
		items = []entity.FeedItem{}
	}

	if params.Format == entity.FormatJSON {
		h.serveJSON(w, itemsResponse[entity.FeedItem]{Items: items})
		return
	}

	content, err := h.generator.Generate(r.Context(), items, params)

	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	h.serveContent(w, content, params.Format)
}

// serveContent sends the content to the client with appropriate headers
func (h *FeedHandler) serveContent(w http.ResponseWriter, content []byte, format string) {
	var contentType string
	switch format {
	case entity.FormatRSS:
		contentType = "application/rss+xml"
	case entity.FormatAtom:
		contentType = "application/atom+xml"
	default:
		contentType = "application/xml"
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content); err != nil {
		handleBadErrorResponse(err, string(content))
	}
}

func (h *FeedHandler) serveJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		handleBadErrorResponse(err, body)
	}
}

// handleLoadError reports a failed load without leaking its cause to the client
func (h *FeedHandler) handleLoadError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		h.logger.Debug("Client went away before the load finished", "path", r.URL.Path, "error", err)
		return
	}

	h.logger.Warn("Load failed", "path", r.URL.Path, "error", err)
	h.handleError(w, errUnavailable, http.StatusServiceUnavailable)
}

// handleError responds with an error message
func (h *FeedHandler) handleError(w http.ResponseWriter, err error, statusCode int) {
	h.logger.Error("Request error", "error", err, "status", statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]string{"error": err.Error()}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		handleBadErrorResponse(err, response)
	}
}

func handleBadErrorResponse(err error, resp any) {
	app.Logger().Error(
		"failed to encode a response",
		"error", err,
		"response", resp,
	)
}

// await starts load as a task and waits for its result.
// The task is cancelled once ctx is done, so a finished request never receives a late result.
func await[T any](ctx context.Context, load loader.LoadFunc[T]) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	task := loader.Start(ctx, load, func(value T, err error) {
		done <- result{value: value, err: err}
	})

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		task.Cancel()

		var zero T

		return zero, ctx.Err()
	}
}
