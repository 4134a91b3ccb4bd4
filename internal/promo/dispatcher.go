package promo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pajangan-promoshot/internal/gemini"
)

var (
	ErrMissingImages = errors.New("person and product images are required")
	ErrGeneration    = errors.New("image generation failed")
)

// ImageGenerator is the external image-generation collaborator.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (string, error)
}

type Request struct {
	Person      *ImageFile
	Product     *ImageFile
	Background  string
	AspectRatio AspectRatio
}

type Options struct {
	Generator ImageGenerator
	Logger    *slog.Logger
}

type Dispatcher struct {
	gen    ImageGenerator
	logger *slog.Logger
}

func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Dispatcher{gen: opts.Generator, logger: logger}, nil
}

// Generate issues one call per pose concurrently and returns the images in
// pose order. Any failed call fails the whole batch.
func (d *Dispatcher) Generate(ctx context.Context, req Request) ([]string, error) {
	if !req.Person.Valid() || !req.Product.Valid() {
		return nil, ErrMissingImages
	}

	ratio := req.AspectRatio
	if ratio == "" {
		ratio = DefaultAspectRatio
	}

	images := []gemini.ImageInput{
		{DataBase64: req.Person.Base64, MimeType: req.Person.MIMEType},
		{DataBase64: req.Product.Base64, MimeType: req.Product.MIMEType},
	}

	batchID := uuid.NewString()
	start := time.Now()
	d.logger.Info("generation started", "batch", batchID, "aspect_ratio", string(ratio), "poses", PoseCount)

	results := make([]string, PoseCount)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, prompt := range BuildPrompts(ratio, req.Background) {
		eg.Go(func() error {
			img, err := d.gen.GenerateImage(egCtx, gemini.ImageRequest{
				Images:      images,
				Prompt:      prompt,
				AspectRatio: string(ratio),
			})
			if err != nil {
				return fmt.Errorf("%w: pose %d: %w", ErrGeneration, i+1, err)
			}
			results[i] = img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		d.logger.Error("generation failed", "batch", batchID, "err", err, "dur_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	d.logger.Info("generation finished", "batch", batchID, "images", len(results), "dur_ms", time.Since(start).Milliseconds())
	return results, nil
}
