// Package fetch downloads and decodes slideshow images.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/slideshow"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 16 << 20

	// MaxPixels bounds the declared size of an image before it is decoded.
	MaxPixels = 40_000_000
)

// Request identifies one download. Sighting ties the request to the target
// sighting that issued it so late results can be recognised.
type Request struct {
	ID       uuid.UUID
	Index    int
	URL      string
	Sighting int
}

// NewRequest builds a request for image index of seq.
func NewRequest(seq slideshow.Sequence, index, sighting int) Request {
	return Request{
		ID:       uuid.New(),
		Index:    index,
		URL:      seq.URL(index),
		Sighting: sighting,
	}
}

// Image is a decoded download.
type Image struct {
	Image  image.Image
	Width  int
	Height int
	Format string
	Bytes  []byte
}

// Aspect returns width/height.
func (i *Image) Aspect() float64 {
	if i == nil || i.Height == 0 {
		return 1
	}
	return float64(i.Width) / float64(i.Height)
}

// Result is the outcome of a Request. Exactly one of Image and Err is set.
type Result struct {
	Request   Request
	Image     *Image
	Err       error
	Duration  time.Duration
	FromCache bool
}

// Cache is the read-through body cache used by Fetcher.
type Cache interface {
	Get(url string) ([]byte, bool)
	Put(url string, body []byte) error
}

// Fetcher retrieves images over HTTP.
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64

	cache   Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFetcher creates a fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		MaxBytes: DefaultMaxBytes,
		logger:   logger,
	}
}

// SetCache enables the read-through cache.
func (f *Fetcher) SetCache(c Cache) {
	f.cache = c
}

// SetMetrics records fetch outcomes on m.
func (f *Fetcher) SetMetrics(m *metrics.Metrics) {
	f.metrics = m
}

// Fetch downloads and decodes req. It never panics on bad input; every
// failure comes back as an *Error in Result.Err.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{Request: req}

	if f.cache != nil {
		if body, ok := f.cache.Get(req.URL); ok {
			img, err := decode(req, body)
			if err == nil {
				res.Image = img
				res.FromCache = true
				res.Duration = time.Since(start)
				f.logger.Debug("image served from cache", "index", req.Index, "url", req.URL)
				f.metrics.ObserveFetch("cache", res.Duration)
				return res
			}
			f.logger.Warn("cached image unreadable, refetching", "index", req.Index, "error", err)
		}
	}

	body, err := f.download(ctx, req)
	if err == nil {
		res.Image, err = decode(req, body)
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		kind, _ := KindOf(err)
		f.logger.Warn("image fetch failed",
			"index", req.Index,
			"url", req.URL,
			"request_id", req.ID.String(),
			"kind", kind.String(),
			"error", err,
		)
		f.metrics.ObserveFetch(kind.String(), res.Duration)
		return res
	}

	if f.cache != nil {
		if err := f.cache.Put(req.URL, body); err != nil {
			f.logger.Warn("failed to cache image", "url", req.URL, "error", err)
		}
	}

	f.logger.Info("image fetched",
		"index", req.Index,
		"request_id", req.ID.String(),
		"width", res.Image.Width,
		"height", res.Image.Height,
		"format", res.Image.Format,
		"duration", res.Duration,
	)
	f.metrics.ObserveFetch("ok", res.Duration)
	return res
}

func (f *Fetcher) download(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Index: req.Index, URL: req.URL, Err: err}
	}
	httpReq.Header.Set("Accept", "image/*")

	resp, err := f.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Index: req.Index, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: KindResponse, Index: req.Index, URL: req.URL, Status: resp.StatusCode}
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Index: req.Index, URL: req.URL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > limit {
		return nil, &Error{Kind: KindResponse, Index: req.Index, URL: req.URL, Err: fmt.Errorf("body exceeds %d bytes", limit)}
	}
	return body, nil
}

func decode(req Request, body []byte) (*Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindDecode, Index: req.Index, URL: req.URL, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &Error{Kind: KindDecode, Index: req.Index, URL: req.URL, Err: errors.New("image has no pixels")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &Error{Kind: KindDecode, Index: req.Index, URL: req.URL,
			Err: fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxPixels)}
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindDecode, Index: req.Index, URL: req.URL, Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &Error{Kind: KindDecode, Index: req.Index, URL: req.URL, Err: errors.New("image has no pixels")}
	}
	return &Image{
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Bytes:  body,
	}, nil
}
