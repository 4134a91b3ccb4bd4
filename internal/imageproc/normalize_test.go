package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pajangan-promoshot/internal/dataurl"
	"pajangan-promoshot/internal/promo"
)

var red = color.NRGBA{R: 255, A: 255}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, red)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeResult(t *testing.T, f promo.ImageFile) image.Image {
	t.Helper()
	mimeType, data, err := dataurl.Decode(f.PreviewURL, "")
	require.NoError(t, err)
	assert.Equal(t, f.MIMEType, mimeType)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r < 0x1000 && g < 0x1000 && b < 0x1000
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xE000 && g < 0x2000 && b < 0x2000
}

func TestNormalizeWideImage(t *testing.T) {
	url := dataurl.Encode("image/png", solidPNG(t, 200, 100))

	f, err := Normalize(url, "image/png", promo.FixedCanvas)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MIMEType)
	assert.Equal(t, "data:image/png;base64,"+f.Base64, f.PreviewURL)

	img := decodeResult(t, f)
	assert.Equal(t, image.Rect(0, 0, 720, 1280), img.Bounds())

	// 720x360 band centred vertically at y=460..820
	assert.True(t, isBlack(img.At(360, 100)))
	assert.True(t, isBlack(img.At(360, 1200)))
	assert.True(t, isRed(img.At(360, 640)))
	assert.True(t, isRed(img.At(5, 640)))
}

func TestNormalizeTallImage(t *testing.T) {
	f, err := NormalizeBytes(solidPNG(t, 100, 400), "image/png", promo.FixedCanvas)
	require.NoError(t, err)

	img := decodeResult(t, f)
	assert.Equal(t, image.Rect(0, 0, 720, 1280), img.Bounds())

	// 320x1280 column centred horizontally at x=200..520
	assert.True(t, isBlack(img.At(50, 640)))
	assert.True(t, isBlack(img.At(680, 640)))
	assert.True(t, isRed(img.At(360, 640)))
	assert.True(t, isRed(img.At(360, 5)))
}

func TestNormalizeTransparentSourceIsOpaqueBlack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 100, 100))))

	f, err := NormalizeBytes(buf.Bytes(), "image/png", promo.FixedCanvas)
	require.NoError(t, err)
	require.Equal(t, "image/png", f.MIMEType)

	img := decodeResult(t, f)
	for _, pt := range []image.Point{{360, 640}, {360, 10}, {10, 640}} {
		c := img.At(pt.X, pt.Y)
		_, _, _, a := c.RGBA()
		assert.True(t, isBlack(c), "pixel %v", pt)
		assert.Equal(t, uint32(0xffff), a, "pixel %v", pt)
	}
}

func TestNormalizeBlendsTranslucentSource(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, color.NRGBA{R: 255, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	f, err := NormalizeBytes(buf.Bytes(), "image/png", promo.FixedCanvas)
	require.NoError(t, err)

	r, g, _, a := decodeResult(t, f).At(360, 640).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.InDelta(t, 0x8000, int(r), 0x800)
	assert.Less(t, g, uint32(0x1000))
}

func TestNormalizeKeepsJPEG(t *testing.T) {
	var buf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 90, 160))
	require.NoError(t, jpeg.Encode(&buf, src, nil))

	f, err := NormalizeBytes(buf.Bytes(), "image/jpeg", promo.FixedCanvas)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", f.MIMEType)
	assert.True(t, strings.HasPrefix(f.PreviewURL, "data:image/jpeg;base64,"))
	assert.Equal(t, image.Rect(0, 0, 720, 1280), decodeResult(t, f).Bounds())
}

func TestNormalizeErrors(t *testing.T) {
	_, err := NormalizeBytes([]byte("not an image"), "image/png", promo.FixedCanvas)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = NormalizeBytes(solidPNG(t, 10, 10), "image/png", promo.Size{})
	assert.ErrorIs(t, err, ErrCanvasUnavailable)

	_, err = NormalizeBytes(nil, "image/png", promo.FixedCanvas)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Normalize("data:image/png;base64,***", "image/png", promo.FixedCanvas)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFitPreservesAspectRatio(t *testing.T) {
	sizes := [][2]int{{200, 100}, {100, 400}, {720, 1280}, {1920, 1080}, {333, 777}, {4000, 3000}, {1000, 1000}}
	targets := []promo.Size{promo.FixedCanvas, promo.Ratio16x9.Canvas(), promo.Ratio1x1.Canvas()}

	for _, target := range targets {
		for _, s := range sizes {
			r := Fit(s[0], s[1], target)

			assert.LessOrEqual(t, r.Dx(), target.Width)
			assert.LessOrEqual(t, r.Dy(), target.Height)
			assert.True(t, r.Dx() == target.Width || r.Dy() == target.Height, "one side must touch the canvas")
			assert.InEpsilon(t, float64(s[0])/float64(s[1]), float64(r.Dx())/float64(r.Dy()), 0.01)

			// centred within a pixel
			assert.InDelta(t, target.Width-r.Max.X, r.Min.X, 1)
			assert.InDelta(t, target.Height-r.Max.Y, r.Min.Y, 1)
		}
	}
}

func TestEncodingFallsBackToPNG(t *testing.T) {
	mimeType, _ := encoding("image/webp")
	assert.Equal(t, "image/png", mimeType)

	mimeType, _ = encoding("IMAGE/JPG")
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestNormalizerCanvas(t *testing.T) {
	assert.Equal(t, promo.FixedCanvas, Normalizer{}.Canvas(promo.Ratio16x9))
	assert.Equal(t, promo.Size{Width: 1280, Height: 720}, Normalizer{FollowRatio: true}.Canvas(promo.Ratio16x9))
}

func TestProcess(t *testing.T) {
	n := Normalizer{FollowRatio: true}

	f, err := n.Process(context.Background(), bytes.NewReader(solidPNG(t, 50, 50)), "application/octet-stream", promo.Ratio1x1)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MIMEType)
	assert.Equal(t, image.Rect(0, 0, 1080, 1080), decodeResult(t, f).Bounds())

	_, err = n.Process(context.Background(), strings.NewReader(""), "image/png", promo.Ratio1x1)
	assert.ErrorIs(t, err, ErrEmpty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Process(ctx, bytes.NewReader(solidPNG(t, 5, 5)), "image/png", promo.Ratio1x1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, "image/png", DetectMime("", solidPNG(t, 2, 2)))
	assert.Equal(t, "image/gif", DetectMime("image/gif; x=y", nil))
	assert.Equal(t, "image/jpeg", DetectMime("application/octet-stream", []byte{0, 1, 2}))
}
