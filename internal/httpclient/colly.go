package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/nDmitry/imagefeed/internal/loader"
)

// CollyClient performs GET requests through a colly collector, which adds
// per-domain parallelism and delay limits on top of net/http.
type CollyClient struct {
	collector *colly.Collector
	limit     int64
}

// NewCollyClient creates a CollyClient. parallelism and delay of zero leave the domain unthrottled.
func NewCollyClient(config ClientConfig, parallelism int, delay time.Duration) (*CollyClient, error) {
	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(collyBodyLimit(config.MaxBodySize)),
	)

	c.WithTransport(NewHTTPClient(&config).Transport)

	if parallelism > 0 || delay > 0 {
		err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: parallelism,
			Delay:       delay,
		})

		if err != nil {
			return nil, fmt.Errorf("could not set colly limits: %w", err)
		}
	}

	return &CollyClient{collector: c, limit: config.MaxBodySize}, nil
}

// collyBodyLimit leaves one byte of headroom so an oversized body reaches
// readLimited instead of being cut off silently. Zero disables colly's limit.
func collyBodyLimit(limit int64) int {
	if limit <= 0 {
		return 0
	}

	return int(limit + 1)
}

// Get visits url and returns the response. Non-2xx responses are not errors here.
func (cc *CollyClient) Get(ctx context.Context, url string) (*loader.Response, error) {
	// Clones share the transport and limits but not callbacks
	c := cc.collector.Clone()
	c.Context = ctx

	var response *loader.Response
	var decodeErr error

	c.OnResponse(func(r *colly.Response) {
		header := http.Header{}

		if r.Headers != nil {
			header = r.Headers.Clone()
		}

		encoding := header.Get("Content-Encoding")

		// colly inflates gzip bodies itself
		if strings.Contains(strings.ToLower(encoding), "gzip") {
			encoding = ""
		}

		body, err := decodeBytes(r.Body, encoding, cc.limit)

		if err != nil {
			decodeErr = err
			return
		}

		header.Del("Content-Encoding")

		response = &loader.Response{
			StatusCode: r.StatusCode,
			Header:     header,
			Body:       body,
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("could not visit %s: %w", url, err)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("could not decode response body: %w", decodeErr)
	}

	if response == nil {
		return nil, fmt.Errorf("no response from %s", url)
	}

	return response, nil
}
