package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nDmitry/imagefeed/internal/app"
	"github.com/nDmitry/imagefeed/internal/cache"
	"github.com/nDmitry/imagefeed/internal/entity"
	"github.com/nDmitry/imagefeed/internal/loader"
	"github.com/nDmitry/imagefeed/internal/mapper"
	"github.com/nDmitry/imagefeed/internal/metrics"
)

// Resource names used for coalescing keys and metrics
const (
	ResourceFeed      = "feed"
	ResourceComments  = "comments"
	ResourceImageData = "image_data"
)

// Options configure a Composer
type Options struct {
	// BaseURL of the image feed API, e.g. https://api.example.com
	BaseURL  string
	PageSize int
	// Timeout bounds each remote request. Zero disables it.
	Timeout time.Duration
	// MaxAge applies to feed and comments
	MaxAge time.Duration
	// ImageMaxAge of zero keeps image data forever
	ImageMaxAge time.Duration
	Coalesce    bool
	// ImageHosts are served as image data without a feed lookup
	ImageHosts []string
	// Now defaults to time.Now
	Now loader.Clock
}

// Composer builds the offline-first loaders for every resource:
// the remote result is cached on success and the cache is served when the remote fails.
type Composer struct {
	client    loader.HTTPClient
	backend   cache.Backend
	opts      Options
	baseURL   *url.URL
	coalescer *loader.Coalescer
	policy    loader.CachePolicy
	feed      *loader.Local[[]entity.FeedItem]
	feedStore *cache.JSONStore[[]entity.FeedItem]
	hosts     map[string]struct{}
	images    *loader.LocalImageData
	imageData *cache.ImageDataStore
	logger    *slog.Logger
}

// NewComposer creates a Composer reading remotely through client and caching into backend
func NewComposer(client loader.HTTPClient, backend cache.Backend, opts Options) (*Composer, error) {
	baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))

	if err != nil || !baseURL.IsAbs() {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}

	c := &Composer{
		client:    client,
		backend:   backend,
		opts:      opts,
		baseURL:   baseURL,
		policy:    loader.NewCachePolicy(opts.MaxAge),
		feedStore: cache.NewFeedStore(backend),
		hosts:     make(map[string]struct{}, len(opts.ImageHosts)),
		imageData: cache.NewImageDataStore(backend),
		logger:    app.Logger(),
	}

	for _, host := range opts.ImageHosts {
		c.hosts[strings.ToLower(host)] = struct{}{}
	}

	if opts.Coalesce {
		c.coalescer = loader.NewCoalescer()
	}

	c.feed = loader.NewLocal[[]entity.FeedItem](c.feedStore, c.policy, opts.Now)
	c.images = loader.NewLocalImageData(c.imageData, loader.NewCachePolicy(opts.ImageMaxAge), opts.Now)

	return c, nil
}

// FeedURL returns the remote URL of the first feed page, or of the page following afterID
func (c *Composer) FeedURL(afterID *uuid.UUID) string {
	u := *c.baseURL
	u.Path += "/v1/feed"

	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.opts.PageSize))

	if afterID != nil {
		query.Set("after_id", afterID.String())
	}

	u.RawQuery = query.Encode()

	return u.String()
}

// CommentsURL returns the remote URL of the comments for an image
func (c *Composer) CommentsURL(imageID uuid.UUID) string {
	u := *c.baseURL
	u.Path += "/v1/image/" + imageID.String() + "/comments"

	return u.String()
}

// FeedLoader returns the composed loader for the first feed page
func (c *Composer) FeedLoader() loader.LoadFunc[[]entity.FeedItem] {
	remote := loader.NewRemote(c.FeedURL(nil), c.client, mapper.Feed)

	return compose(c, ResourceFeed, ResourceFeed, remote.Load, c.feed.Load, c.feed.Save)
}

// CommentsLoader returns the composed loader for the comments of an image
func (c *Composer) CommentsLoader(imageID uuid.UUID) loader.LoadFunc[[]entity.Comment] {
	remote := loader.NewRemote(c.CommentsURL(imageID), c.client, mapper.Comments)
	local := loader.NewLocal[[]entity.Comment](cache.NewCommentsStore(c.backend, imageID), c.policy, c.opts.Now)

	return compose(c, ResourceComments, ResourceComments+":"+imageID.String(), remote.Load, local.Load, local.Save)
}

// ImageDataLoader returns the composed loader for the bytes of an image
func (c *Composer) ImageDataLoader(imageURL string) loader.LoadFunc[[]byte] {
	remote := loader.NewRemote(imageURL, c.client, mapper.ImageData)

	return compose(c, ResourceImageData, ResourceImageData+":"+imageURL, remote.Load, c.images.Loader(imageURL), c.images.Saver(imageURL))
}

// AllowsImage reports whether the bytes of imageURL may be served: its host is
// configured or an item of the cached feed points to it, expired or not.
func (c *Composer) AllowsImage(ctx context.Context, imageURL string) (bool, error) {
	u, err := url.Parse(imageURL)

	if err != nil {
		return false, nil
	}

	if _, ok := c.hosts[strings.ToLower(u.Hostname())]; ok {
		return true, nil
	}

	cached, err := c.feedStore.Retrieve(ctx)

	if err != nil {
		return false, fmt.Errorf("could not read cached feed: %w", err)
	}

	if cached == nil {
		return false, nil
	}

	for _, item := range cached.Value {
		if item.URL == imageURL {
			return true, nil
		}
	}

	return false, nil
}

func compose[T any](
	c *Composer,
	resource, key string,
	remote, local loader.LoadFunc[T],
	save func(context.Context, T) error,
) loader.LoadFunc[T] {
	remote = metrics.Observe(resource, metrics.StageRemote, loader.WithTimeout(remote, c.opts.Timeout))
	local = metrics.Observe(resource, metrics.StageLocal, local)

	pipeline := loader.Fallback(loader.Caching(remote, save), local)

	return loader.Coalesce(c.coalescer, key, metrics.Observe(resource, metrics.StageComposed, pipeline))
}

// LoadMore fetches the page following afterID and appends it to the cached feed.
// A valid cached feed is extended and saved, a missing or expired one restarts from the page.
// When the cache cannot be read the page is returned without touching it.
// A remote failure is returned as is: there is no local copy of a page never fetched.
func (c *Composer) LoadMore(ctx context.Context, afterID uuid.UUID) ([]entity.FeedItem, error) {
	remote := loader.NewRemote(c.FeedURL(&afterID), c.client, mapper.Feed)
	load := metrics.Observe(ResourceFeed, metrics.StageRemote, loader.WithTimeout(remote.Load, c.opts.Timeout))
	load = loader.Coalesce(c.coalescer, ResourceFeed+":after:"+afterID.String(), load)

	page, err := load(ctx)

	if err != nil {
		return nil, err
	}

	cached, err := c.feed.Load(ctx)

	if err != nil && !errors.Is(err, loader.ErrNotFound) && !errors.Is(err, loader.ErrExpired) {
		// A cached feed that could not be read is never replaced
		c.logger.Warn("Could not read cached feed, page is not cached", "afterId", afterID, "error", err)
		return page, nil
	}

	combined := appendNew(cached, page)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := c.feed.Save(saveCtx, combined); err != nil {
		c.logger.Warn("Could not cache feed page", "afterId", afterID, "error", err)
	}

	return combined, nil
}

// appendNew appends the page items that are not already in items
func appendNew(items, page []entity.FeedItem) []entity.FeedItem {
	seen := make(map[uuid.UUID]struct{}, len(items))
	combined := make([]entity.FeedItem, 0, len(items)+len(page))

	for _, item := range items {
		seen[item.ID] = struct{}{}
		combined = append(combined, item)
	}

	for _, item := range page {
		if _, ok := seen[item.ID]; ok {
			continue
		}

		seen[item.ID] = struct{}{}
		combined = append(combined, item)
	}

	return combined
}

// CachedImageSize returns the size of the cached bytes of an image, or 0.
// It never reaches the network.
func (c *Composer) CachedImageSize(ctx context.Context, imageURL string) int64 {
	data, err := c.images.Load(ctx, imageURL)

	if err != nil {
		return 0
	}

	return int64(len(data))
}

// ValidateCache deletes every expired cache entry. Image data is only
// validated when it has a max age.
func (c *Composer) ValidateCache(ctx context.Context) error {
	var errs []error

	err := c.feed.ValidateCache(ctx)
	metrics.ObserveValidation(ResourceFeed, err)
	errs = append(errs, err)

	ids, err := cache.CommentImageIDs(ctx, c.backend)

	if err != nil {
		errs = append(errs, fmt.Errorf("could not list cached comments: %w", err))
	}

	for _, id := range ids {
		local := loader.NewLocal[[]entity.Comment](cache.NewCommentsStore(c.backend, id), c.policy, c.opts.Now)
		err := local.ValidateCache(ctx)
		metrics.ObserveValidation(ResourceComments, err)
		errs = append(errs, err)
	}

	if c.opts.ImageMaxAge > 0 {
		urls, err := c.imageData.URLs(ctx)

		if err != nil {
			errs = append(errs, fmt.Errorf("could not list cached images: %w", err))
		}

		for _, imageURL := range urls {
			err := c.images.ValidateCache(ctx, imageURL)
			metrics.ObserveValidation(ResourceImageData, err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
