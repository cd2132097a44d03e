package imaging

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode is matched by every error returned from the decode functions.
var ErrDecode = errors.New("image decode failed")

// DecodeError reports an input that could not be turned into pixels.
type DecodeError struct {
	// Source is the file path, or "<bytes>" for in-memory input.
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return "failed to decode image " + e.Source + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes every DecodeError match ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Decode reads an image from r, applying the EXIF orientation tag when present.
// The returned image always has its bounds anchored at (0,0).
func Decode(r io.Reader) (image.Image, error) {
	return decode(r, "<bytes>")
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: "<bytes>", Err: errors.New("empty input")}
	}
	return decode(bytes.NewReader(data), "<bytes>")
}

// Open decodes the image file at path.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	defer f.Close()
	return decode(f, path)
}

func decode(r io.Reader, source string) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return Anchor(img, source)
}

// Anchor checks that img has pixels and returns it with bounds starting at
// (0,0), copying only when needed. source names the input in the error.
func Anchor(img image.Image, source string) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &DecodeError{Source: source, Err: errors.New("image has no pixels")}
	}
	if img.Bounds().Min != (image.Point{}) {
		return imaging.Clone(img), nil
	}
	return img, nil
}

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// An entry is reused only while the file's modification time and size are
// unchanged, so a photo overwritten in place is decoded again. The MCP server
// keeps one cache for its lifetime so repeated tool calls on the same
// photograph skip the decode; batch runs Evict what they load.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cacheEntry
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

func (e cacheEntry) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cacheEntry),
	}
}

// Load returns the cached image for path, decoding it on first use or when
// the file changed since it was cached.
func (c *ImageCache) Load(path string) (image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.matches(fi) {
		return entry.img, nil
	}

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = cacheEntry{img: img, modTime: fi.ModTime(), size: fi.Size()}
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about an image file.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif",
	// "bmp", "tiff", "webp" or "unknown".
	Format string `json:"format"`

	// Brightness is the mean BT.601 luma, 0-255.
	Brightness float64 `json:"brightness"`

	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and reports its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        FormatOf(path),
		Brightness:    Brightness(ToGray(img)),
		FileSizeBytes: stat.Size(),
	}, nil
}

// FormatOf maps a file extension to a format name.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	}
	return "unknown"
}
