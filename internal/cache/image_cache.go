// Package cache keeps recently served image bytes so the console does not
// refetch them from the backend on every page view.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fairyhunter13/coupon-console/internal/model"
)

// Loader fetches an image that is not cached yet.
type Loader func(ctx context.Context, id int64) (*model.ImageContent, error)

// ImageCache is a fixed-size LRU of image contents keyed by image id.
// It is safe for concurrent use.
type ImageCache struct {
	entries *lru.Cache[int64, *model.ImageContent]
}

// NewImageCache creates a cache holding at most size images.
func NewImageCache(size int) (*ImageCache, error) {
	entries, err := lru.New[int64, *model.ImageContent](size)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	return &ImageCache{entries: entries}, nil
}

// Get returns the cached content for id.
func (c *ImageCache) Get(id int64) (*model.ImageContent, bool) {
	return c.entries.Get(id)
}

// GetOrLoad returns the cached content or calls load and caches its result.
// Failed loads are not cached.
func (c *ImageCache) GetOrLoad(ctx context.Context, id int64, load Loader) (*model.ImageContent, error) {
	if content, ok := c.entries.Get(id); ok {
		return content, nil
	}
	content, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.entries.Add(id, content)
	return content, nil
}

// Invalidate drops id, typically after the image was deleted.
func (c *ImageCache) Invalidate(id int64) {
	c.entries.Remove(id)
}

// Purge empties the cache.
func (c *ImageCache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	return c.entries.Len()
}
