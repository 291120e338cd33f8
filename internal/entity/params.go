package entity

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
	FormatJSON = "json"
)

// FeedParams represents validated request parameters for feed endpoints
type FeedParams struct {
	// Format is the response format: "json", "rss" or "atom"
	Format string

	// AfterID is the last item the client already has, set for pagination only
	AfterID *uuid.UUID
}

// NewFeedParamsFromRequest parses and validates feed request parameters.
// requireAfterID is set by the pagination endpoint.
func NewFeedParamsFromRequest(r *http.Request, requireAfterID bool) (*FeedParams, error) {
	qp := r.URL.Query()

	format := qp.Get("format")

	if format == "" {
		format = FormatJSON
	} else if format != FormatJSON && format != FormatRSS && format != FormatAtom {
		return nil, fmt.Errorf("format must be %s, %s or %s", FormatJSON, FormatRSS, FormatAtom)
	}

	params := &FeedParams{Format: format}

	afterID := qp.Get("after_id")

	if afterID == "" {
		if requireAfterID {
			return nil, fmt.Errorf("after_id is required")
		}

		return params, nil
	}

	id, err := uuid.Parse(afterID)

	if err != nil {
		return nil, fmt.Errorf("after_id must be a valid UUID")
	}

	params.AfterID = &id

	return params, nil
}

// ImageIDFromRequest returns the validated {id} path value
func ImageIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")

	if raw == "" {
		return uuid.Nil, fmt.Errorf("image id is required")
	}

	id, err := uuid.Parse(raw)

	if err != nil {
		return uuid.Nil, fmt.Errorf("image id must be a valid UUID")
	}

	return id, nil
}

// ImageURLFromRequest returns the validated absolute image URL from the url query parameter
func ImageURLFromRequest(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("url")

	if raw == "" {
		return "", fmt.Errorf("url is required")
	}

	u, err := url.Parse(raw)

	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("url must be an absolute http(s) URL")
	}

	return raw, nil
}
