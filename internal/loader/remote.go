package loader

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nDmitry/imagefeed/internal/app"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// HTTPClient performs GET requests. Cancelling ctx cancels the request.
type HTTPClient interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// Mapper validates a response and decodes its body into a resource.
type Mapper[T any] func(data []byte, resp *Response) (T, error)

// Remote loads a resource from a single URL.
type Remote[T any] struct {
	url    string
	client HTTPClient
	mapper Mapper[T]
	logger *slog.Logger
}

// NewRemote creates a remote loader for url
func NewRemote[T any](url string, client HTTPClient, mapper Mapper[T]) *Remote[T] {
	return &Remote[T]{
		url:    url,
		client: client,
		mapper: mapper,
		logger: app.Logger(),
	}
}

// Load fetches and maps the resource. Transport failures are reported as
// ErrConnectivity and mapping failures as ErrInvalidData; the underlying
// errors are only logged. A cancelled ctx yields ctx.Err().
func (r *Remote[T]) Load(ctx context.Context) (T, error) {
	var zero T

	resp, err := r.client.Get(ctx, r.url)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		r.logger.Debug("Remote request failed", "url", r.url, "error", err)

		return zero, ErrConnectivity
	}

	resource, err := r.mapper(resp.Body, resp)

	if err != nil {
		r.logger.Debug("Could not map remote response",
			"url", r.url,
			"status", resp.StatusCode,
			"error", err)

		return zero, ErrInvalidData
	}

	return resource, nil
}
