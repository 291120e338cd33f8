// Package mapper validates remote responses and decodes them into entities.
package mapper

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

var (
	errStatus = errors.New("unexpected status code")
	errSchema = errors.New("unexpected schema")
)

// Feed decodes a feed page. Any 2xx status is accepted.
func Feed(data []byte, resp *loader.Response) ([]entity.FeedItem, error) {
	items, err := itemsOf(data, resp)

	if err != nil {
		return nil, err
	}

	feed := make([]entity.FeedItem, 0, len(items))

	for i, item := range items {
		id, err := uuidOf(item, "id")

		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		image := item.Get("image")

		if image.Type != gjson.String || !isImageURL(image.String()) {
			return nil, fmt.Errorf("item %d: image must be an absolute http(s) URL: %w", i, errSchema)
		}

		description, err := optionalString(item, "description")

		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		location, err := optionalString(item, "location")

		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		feed = append(feed, entity.FeedItem{
			ID:          id,
			Description: description,
			Location:    location,
			URL:         image.String(),
		})
	}

	return feed, nil
}

func isImageURL(raw string) bool {
	u, err := url.Parse(raw)

	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

// Comments decodes the comments of an image. Any 2xx status is accepted.
func Comments(data []byte, resp *loader.Response) ([]entity.Comment, error) {
	items, err := itemsOf(data, resp)

	if err != nil {
		return nil, err
	}

	comments := make([]entity.Comment, 0, len(items))

	for i, item := range items {
		id, err := uuidOf(item, "id")

		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}

		message := item.Get("message")
		username := item.Get("author.username")
		createdAt := item.Get("created_at")

		if message.Type != gjson.String || username.Type != gjson.String || createdAt.Type != gjson.String {
			return nil, fmt.Errorf("comment %d: message, created_at and author.username are required: %w", i, errSchema)
		}

		created, err := parseTime(createdAt.String())

		if err != nil {
			return nil, fmt.Errorf("comment %d: created_at: %w", i, err)
		}

		comments = append(comments, entity.Comment{
			ID:        id,
			Message:   message.String(),
			CreatedAt: created,
			Username:  username.String(),
		})
	}

	return comments, nil
}

// ImageData accepts only a 200 response with a non-empty body.
func ImageData(data []byte, resp *loader.Response) ([]byte, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data: %w", errSchema)
	}

	return data, nil
}

func itemsOf(data []byte, resp *loader.Response) ([]gjson.Result, error) {
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed JSON: %w", errSchema)
	}

	items := gjson.GetBytes(data, "items")

	if !items.IsArray() {
		return nil, fmt.Errorf("items must be an array: %w", errSchema)
	}

	return items.Array(), nil
}

func uuidOf(item gjson.Result, path string) (uuid.UUID, error) {
	value := item.Get(path)

	if value.Type != gjson.String {
		return uuid.Nil, fmt.Errorf("%s must be a string: %w", path, errSchema)
	}

	id, err := uuid.Parse(value.String())

	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", path, err)
	}

	return id, nil
}

// ISO 8601 timestamps with and without a colon in the zone offset
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z0700"}

func parseTime(s string) (time.Time, error) {
	var err error

	for _, layout := range timeLayouts {
		var t time.Time

		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, err
}

// optionalString returns nil for a missing or null value
func optionalString(item gjson.Result, path string) (*string, error) {
	value := item.Get(path)

	switch value.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		s := value.String()
		return &s, nil
	default:
		return nil, fmt.Errorf("%s must be a string or null: %w", path, errSchema)
	}
}
