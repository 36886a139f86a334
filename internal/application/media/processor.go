// Package media downloads, normalizes and stores product images.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/storefront/backend/internal/domain/catalog"
)

var (
	// ErrBatchCancelled is returned when the batch context ends before all images finish
	ErrBatchCancelled = errors.New("media: image batch cancelled")
	// ErrImageTooLarge is returned for images whose header declares more than MaxPixels
	ErrImageTooLarge = errors.New("media: image pixel count exceeds limit")
)

const probeBytes = 64 * 1024

// Options tunes image processing
type Options struct {
	// MaxImages caps how many input URLs are processed
	MaxImages int
	// Concurrency is the number of images processed at once
	Concurrency int
	// MaxDimension is the longest allowed edge; larger images are scaled down
	MaxDimension int
	// MinDimension drops images whose probed edges are both smaller; 0 disables the probe
	MinDimension int
	// Quality is the JPEG quality, 1-100
	Quality int
	// MaxBytes limits the size of a downloaded image
	MaxBytes int64
	// MaxPixels limits width*height read from the image header before decoding
	MaxPixels int
	// ImageTimeout bounds the processing of one image
	ImageTimeout time.Duration
	// BatchTimeout bounds the whole batch
	BatchTimeout time.Duration
}

// DefaultOptions returns the processing defaults
func DefaultOptions() Options {
	return Options{
		MaxImages:    8,
		Concurrency:  3,
		MaxDimension: 1200,
		Quality:      85,
		MaxBytes:     10 << 20,
		MaxPixels:    40_000_000,
		ImageTimeout: 15 * time.Second,
		BatchTimeout: 60 * time.Second,
	}
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithDownloader replaces the HTTP downloader
func WithDownloader(d Downloader) Option {
	return func(p *Processor) {
		p.downloader = d
	}
}

// WithOptions sets the processing options; non-positive fields keep their defaults
func WithOptions(o Options) Option {
	return func(p *Processor) {
		def := DefaultOptions()
		if o.MaxImages <= 0 {
			o.MaxImages = def.MaxImages
		}
		if o.Concurrency <= 0 {
			o.Concurrency = def.Concurrency
		}
		if o.MaxDimension <= 0 {
			o.MaxDimension = def.MaxDimension
		}
		if o.Quality <= 0 || o.Quality > 100 {
			o.Quality = def.Quality
		}
		if o.MaxBytes <= 0 {
			o.MaxBytes = def.MaxBytes
		}
		if o.MaxPixels <= 0 {
			o.MaxPixels = def.MaxPixels
		}
		if o.ImageTimeout <= 0 {
			o.ImageTimeout = def.ImageTimeout
		}
		if o.BatchTimeout <= 0 {
			o.BatchTimeout = def.BatchTimeout
		}
		p.opts = o
	}
}

// Processor runs the download, resize, encode and upload pipeline for product images
type Processor struct {
	store      catalog.AssetStore
	downloader Downloader
	opts       Options
	logger     *zap.Logger
}

// NewProcessor creates a Processor uploading to store
func NewProcessor(store catalog.AssetStore, opts ...Option) *Processor {
	p := &Processor{
		store:  store,
		opts:   DefaultOptions(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.downloader == nil {
		p.downloader = NewHTTPDownloader(nil)
	}
	return p
}

// WithStore returns a copy of the processor uploading to store
func (p *Processor) WithStore(store catalog.AssetStore) *Processor {
	cp := *p
	cp.store = store
	return &cp
}

// Options returns the active options
func (p *Processor) Options() Options {
	return p.opts
}

// ProcessAll processes up to MaxImages URLs with at most Concurrency in flight.
// Failed images are logged and left out. The surviving image with the lowest input index is
// marked primary. Results are ordered by input index.
// An error is returned only when the batch context ends early, along with what completed.
func (p *Processor) ProcessAll(ctx context.Context, urls []string, productID string) ([]catalog.ProcessedImage, error) {
	if len(urls) > p.opts.MaxImages {
		urls = urls[:p.opts.MaxImages]
	}
	if len(urls) == 0 {
		return []catalog.ProcessedImage{}, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, p.opts.BatchTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]catalog.ProcessedImage, 0, len(urls))
		sem     = semaphore.NewWeighted(int64(p.opts.Concurrency))
	)

	for i, u := range urls {
		if err := sem.Acquire(batchCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(index int, sourceURL string) {
			defer wg.Done()
			defer sem.Release(1)

			img, err := p.processOne(batchCtx, sourceURL, productID, index)
			if err != nil {
				p.logger.Warn("Image processing failed",
					zap.String("product_id", productID),
					zap.String("url", sourceURL),
					zap.Int("index", index),
					zap.Error(err))
				return
			}
			mu.Lock()
			results = append(results, *img)
			mu.Unlock()
		}(i, u)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	if len(results) > 0 {
		results[0].Primary = true
	}

	if err := batchCtx.Err(); err != nil {
		return results, fmt.Errorf("%w: %d of %d images completed: %w", ErrBatchCancelled, len(results), len(urls), err)
	}
	return results, nil
}

func (p *Processor) processOne(ctx context.Context, sourceURL, productID string, index int) (*catalog.ProcessedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ImageTimeout)
	defer cancel()

	if p.opts.MinDimension > 0 {
		if dim := p.GetDimensions(ctx, sourceURL); dim != nil &&
			dim.Width < p.opts.MinDimension && dim.Height < p.opts.MinDimension {
			return nil, fmt.Errorf("image %dx%d is below the %dpx minimum", dim.Width, dim.Height, p.opts.MinDimension)
		}
	}

	data, err := p.downloader.Download(ctx, sourceURL, p.opts.MaxBytes)
	if err != nil {
		return nil, err
	}

	// Compressed formats can declare huge canvases in a small payload
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if int64(hdr.Width)*int64(hdr.Height) > int64(p.opts.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, hdr.Width, hdr.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	// Fit never upscales and keeps the aspect ratio
	out := imaging.Fit(src, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(p.opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asset, err := p.store.Upload(ctx, AssetKey(productID, index), buf.Bytes(), "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrAssetUpload, err)
	}

	bounds := out.Bounds()
	return &catalog.ProcessedImage{
		SourceURL: sourceURL,
		AssetID:   asset.ID,
		URL:       asset.URL,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Index:     index,
	}, nil
}

// GetDimensions reads the image header from the first 64KiB of url.
// It returns nil when the probe or the header decode fails.
func (p *Processor) GetDimensions(ctx context.Context, url string) *catalog.Dimensions {
	data, err := p.downloader.DownloadPrefix(ctx, url, probeBytes)
	if err != nil {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return &catalog.Dimensions{Width: cfg.Width, Height: cfg.Height}
}

// AssetKey returns the storage key of a product image
func AssetKey(productID string, index int) string {
	return "products/" + productID + "/" + hashKey(productID, strconv.Itoa(index)) + ".jpg"
}

func hashKey(parts ...string) string {
	h := fnv.New64a()
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
