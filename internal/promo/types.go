package promo

import (
	"errors"
	"fmt"
	"strings"
)

// ImageFile is a normalized upload: the re-encoded payload, its MIME type and
// a preview data URL of the same bytes.
type ImageFile struct {
	Base64     string
	MIMEType   string
	PreviewURL string
}

func (f *ImageFile) Valid() bool {
	return f != nil && f.Base64 != "" && f.MIMEType != ""
}

type AspectRatio string

const (
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
	Ratio1x1  AspectRatio = "1:1"

	DefaultAspectRatio = Ratio9x16
)

var ErrUnknownAspectRatio = errors.New("unknown aspect ratio")

// Size is a canvas size in pixels.
type Size struct {
	Width  int
	Height int
}

// FixedCanvas is the 9:16 canvas every upload is letterboxed into unless the
// canvas is configured to follow the selected ratio.
var FixedCanvas = Size{Width: 720, Height: 1280}

func AspectRatios() []AspectRatio {
	return []AspectRatio{Ratio9x16, Ratio16x9, Ratio1x1}
}

func ParseAspectRatio(value string) (AspectRatio, error) {
	value = strings.TrimSpace(value)
	for _, r := range AspectRatios() {
		if string(r) == value {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAspectRatio, value)
}

// Description is the phrase used in the generation prompt. Unknown values
// get the portrait phrase.
func (r AspectRatio) Description() string {
	switch r {
	case Ratio16x9:
		return "horizontal 16:9 landscape"
	case Ratio1x1:
		return "square 1:1"
	default:
		return "vertical 9:16 portrait"
	}
}

func (r AspectRatio) Label() string {
	switch r {
	case Ratio16x9:
		return "16:9 (Horizontal)"
	case Ratio1x1:
		return "1:1 (Persegi)"
	default:
		return "9:16 (Vertikal)"
	}
}

// Canvas is the letterbox canvas matching this ratio.
func (r AspectRatio) Canvas() Size {
	switch r {
	case Ratio16x9:
		return Size{Width: 1280, Height: 720}
	case Ratio1x1:
		return Size{Width: 1080, Height: 1080}
	default:
		return FixedCanvas
	}
}

func (r AspectRatio) Valid() bool {
	_, err := ParseAspectRatio(string(r))
	return err == nil
}
