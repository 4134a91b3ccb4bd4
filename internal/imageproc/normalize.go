package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"pajangan-promoshot/internal/dataurl"
	"pajangan-promoshot/internal/promo"
)

// Quality is the JPEG quality used when re-encoding.
const Quality = 95

var (
	ErrEmpty             = errors.New("image is empty")
	ErrDecode            = errors.New("cannot decode image")
	ErrCanvasUnavailable = errors.New("canvas unavailable")
)

// Normalizer letterboxes uploads. With FollowRatio unset every upload goes
// into promo.FixedCanvas whatever ratio is selected.
type Normalizer struct {
	FollowRatio bool
}

func (n Normalizer) Canvas(ratio promo.AspectRatio) promo.Size {
	if n.FollowRatio {
		return ratio.Canvas()
	}
	return promo.FixedCanvas
}

// Process reads an upload and normalizes it for the selected ratio.
func (n Normalizer) Process(ctx context.Context, r io.Reader, mimeType string, ratio promo.AspectRatio) (promo.ImageFile, error) {
	url, err := Load(ctx, r, mimeType)
	if err != nil {
		return promo.ImageFile{}, err
	}
	mimeType, _, _ = dataurl.Parse(url, mimeType)
	return Normalize(url, mimeType, n.Canvas(ratio))
}

// Load reads an upload into a data URL. An empty or generic MIME type is
// sniffed from the content.
func Load(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return dataurl.Encode(DetectMime(mimeType, data), data), nil
}

func DetectMime(declared string, data []byte) string {
	mimeType := dataurl.CleanMime(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = dataurl.CleanMime(http.DetectContentType(data))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

func Normalize(url, mimeType string, target promo.Size) (promo.ImageFile, error) {
	_, data, err := dataurl.Decode(url, mimeType)
	if err != nil {
		return promo.ImageFile{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return NormalizeBytes(data, mimeType, target)
}

// NormalizeBytes decodes an image, scales it without distortion to fit
// target, centres it on a black canvas and re-encodes it.
func NormalizeBytes(data []byte, mimeType string, target promo.Size) (promo.ImageFile, error) {
	if target.Width <= 0 || target.Height <= 0 {
		return promo.ImageFile{}, ErrCanvasUnavailable
	}
	if len(data) == 0 {
		return promo.ImageFile{}, ErrEmpty
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return promo.ImageFile{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return promo.ImageFile{}, ErrDecode
	}

	dst := Fit(b.Dx(), b.Dy(), target)
	canvas := imaging.New(target.Width, target.Height, color.NRGBA{A: 255})
	scaled := imaging.Resize(src, dst.Dx(), dst.Dy(), imaging.Lanczos)
	canvas = imaging.Overlay(canvas, scaled, dst.Min, 1.0)

	outMime, format := encoding(mimeType)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, format, imaging.JPEGQuality(Quality)); err != nil {
		return promo.ImageFile{}, fmt.Errorf("encode %s: %w", outMime, err)
	}

	url := dataurl.Encode(outMime, buf.Bytes())
	return promo.ImageFile{
		Base64:     dataurl.Payload(url),
		MIMEType:   outMime,
		PreviewURL: url,
	}, nil
}

// Fit returns where a width×height source lands inside target: full width
// when the source is relatively wider than target, full height otherwise,
// centred either way.
func Fit(width, height int, target promo.Size) image.Rectangle {
	targetRatio := float64(target.Width) / float64(target.Height)
	srcRatio := float64(width) / float64(height)

	drawW := float64(target.Width)
	drawH := float64(target.Height)
	if srcRatio > targetRatio {
		drawH = drawW / srcRatio
	} else {
		drawW = drawH * srcRatio
	}

	w := max(1, int(math.Round(drawW)))
	h := max(1, int(math.Round(drawH)))
	x := (target.Width - w) / 2
	y := (target.Height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// encoding maps a MIME type to an encoder. Types with no encoder fall back
// to PNG, as a browser canvas does.
func encoding(mimeType string) (string, imaging.Format) {
	switch dataurl.CleanMime(mimeType) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "image/jpeg", imaging.JPEG
	case "image/gif":
		return "image/gif", imaging.GIF
	case "image/bmp":
		return "image/bmp", imaging.BMP
	case "image/tiff":
		return "image/tiff", imaging.TIFF
	default:
		return "image/png", imaging.PNG
	}
}
