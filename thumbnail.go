package filterchain

import (
	"image"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/gopix/filterchain/internal/cache"
)

// Default thumbnail configuration.
const (
	// DefaultThumbnailSize is the default bounding box for thumbnails,
	// in pixels.
	DefaultThumbnailSize = 48

	// defaultThumbnailCacheLimit bounds the number of cached thumbnails.
	defaultThumbnailCacheLimit = 128
)

// thumbKey identifies a rendered thumbnail: owner plus the version of its
// content at render time. Invalidation makes old keys unreachable; the LRU
// evicts them.
type thumbKey struct {
	id      uuid.UUID
	version uint64
}

// Thumbnailer renders and caches small previews of stage outputs and chain
// composites, for layer-panel icons. Rendering goes through the normal
// cached [Stage.Image] path, so a thumbnail refresh never recomputes a
// stage whose cache is warm.
type Thumbnailer struct {
	size   int
	cache  *cache.Cache[thumbKey, *image.RGBA]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// ThumbnailStats contains thumbnail cache statistics.
type ThumbnailStats struct {
	// Hits is the number of thumbnails served from cache.
	Hits uint64
	// Misses is the number of thumbnails that had to be rendered.
	Misses uint64
	// Entries is the number of cached thumbnails.
	Entries int
}

// NewThumbnailer creates a Thumbnailer with the given bounding-box size.
// A size <= 0 selects DefaultThumbnailSize.
func NewThumbnailer(size int) *Thumbnailer {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	return &Thumbnailer{
		size:  size,
		cache: cache.New[thumbKey, *image.RGBA](defaultThumbnailCacheLimit),
	}
}

// StageThumbnail returns a thumbnail of the stage's output, rendered at
// most once per stage version.
func (t *Thumbnailer) StageThumbnail(s *Stage) (*image.RGBA, error) {
	key := thumbKey{id: s.ID(), version: s.Version()}
	if th, ok := t.cache.Get(key); ok {
		t.hits.Add(1)
		return th, nil
	}
	t.misses.Add(1)

	img, err := s.Image()
	if err != nil {
		return nil, err
	}
	th := scaleToFit(img, t.size)
	t.cache.Set(key, th)
	return th, nil
}

// ChainThumbnail returns a thumbnail of the chain's effective image,
// rendered at most once per chain version.
func (t *Thumbnailer) ChainThumbnail(c *Chain) (*image.RGBA, error) {
	key := thumbKey{id: c.ID(), version: c.Version()}
	if th, ok := t.cache.Get(key); ok {
		t.hits.Add(1)
		return th, nil
	}
	t.misses.Add(1)

	img, err := c.EffectiveImage()
	if err != nil {
		return nil, err
	}
	th := scaleToFit(img, t.size)
	t.cache.Set(key, th)
	return th, nil
}

// Stats returns thumbnail cache statistics.
func (t *Thumbnailer) Stats() ThumbnailStats {
	return ThumbnailStats{
		Hits:    t.hits.Load(),
		Misses:  t.misses.Load(),
		Entries: t.cache.Len(),
	}
}

// Clear drops all cached thumbnails.
func (t *Thumbnailer) Clear() {
	t.cache.Clear()
}

// scaleToFit scales src to fit in a size x size box, preserving aspect
// ratio. Thumbnails trade quality for speed, so the approximate bilinear
// scaler is enough.
func scaleToFit(src *image.RGBA, size int) *image.RGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	tw, th := size, size
	if w > h {
		th = max(1, size*h/w)
	} else {
		tw = max(1, size*w/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}
