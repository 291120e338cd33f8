package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/feeds"

	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
)

const untitled = "Untitled image"

// Meta describes the feed as a whole
type Meta struct {
	Title   string
	Link    string
	Updated time.Time
}

// ImageSizer reports the size in bytes of an image, or 0 when unknown
type ImageSizer func(url string) int64

// Generate renders feed items as RSS or Atom and returns it as a byte array.
// sizer may be nil.
func Generate(items []entity.FeedItem, params *entity.FeedParams, meta Meta, sizer ImageSizer) ([]byte, error) {
	feed := &feeds.Feed{
		Title:   meta.Title,
		Link:    &feeds.Link{Href: meta.Link},
		Created: meta.Updated,
		Updated: meta.Updated,
	}

	for _, item := range items {
		var size int64

		if sizer != nil {
			size = sizer(item.URL)
		}

		feedItem := &feeds.Item{
			Id:      "urn:uuid:" + item.ID.String(),
			Title:   itemTitle(item),
			Link:    &feeds.Link{Href: item.URL},
			Created: meta.Updated,
			Enclosure: &feeds.Enclosure{
				Url:    item.URL,
				Type:   imageTypeFromURL(item.URL),
				Length: strconv.FormatInt(size, 10),
			},
		}

		if item.Description != nil {
			feedItem.Description = *item.Description
		}

		feed.Items = append(feed.Items, feedItem)
	}

	var content string
	var err error

	switch params.Format {
	case entity.FormatRSS:
		content, err = feed.ToRss()
	case entity.FormatAtom:
		content, err = feed.ToAtom()
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", params.Format)
	}

	if err != nil {
		return nil, fmt.Errorf("could not marshal %d items to feed: %w", len(items), err)
	}

	return []byte(content), nil
}

// itemTitle prefers the description, then the location
func itemTitle(item entity.FeedItem) string {
	if item.Description != nil {
		if title := extractTitle(*item.Description); title != "" {
			return title
		}
	}

	if item.Location != nil && *item.Location != "" {
		return formatTitle(*item.Location)
	}

	return untitled
}

// Generator renders feeds with fixed metadata, timestamped at generation time
type Generator struct {
	Title string
	Link  string
	// Size optionally reports known image sizes for enclosures
	Size func(ctx context.Context, url string) int64
	Now  loader.Clock
}

// Generate renders items in the format requested by params
func (g *Generator) Generate(ctx context.Context, items []entity.FeedItem, params *entity.FeedParams) ([]byte, error) {
	var sizer ImageSizer

	if g.Size != nil {
		sizer = func(url string) int64 { return g.Size(ctx, url) }
	}

	now := time.Now

	if g.Now != nil {
		now = g.Now
	}

	return Generate(items, params, Meta{Title: g.Title, Link: g.Link, Updated: now().UTC()}, sizer)
}
