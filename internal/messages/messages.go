// Package messages maps core errors to the user-facing Indonesian texts
// shown by the web and chat surfaces.
package messages

import (
	"errors"

	"pajangan-promoshot/internal/imageproc"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
)

const (
	MissingImages = "Silakan unggah gambar model dan produk."
	Generation    = "Gagal menghasilkan gambar. Silakan periksa log untuk detailnya."
	Busy          = "Gambar sedang dibuat, harap tunggu."
	CanvasFailed  = "Tidak bisa mendapatkan konteks kanvas"
	DecodeFailed  = "Tidak dapat memuat gambar untuk diproses."
	ReadFailed    = "Tidak dapat membaca file yang dipilih."
	Unknown       = "Terjadi kesalahan yang tidak diketahui saat pemrosesan gambar."
)

// Preprocess returns the message for a failed upload.
func Preprocess(err error) string {
	switch {
	case errors.Is(err, imageproc.ErrCanvasUnavailable):
		return CanvasFailed
	case errors.Is(err, imageproc.ErrDecode):
		return DecodeFailed
	case errors.Is(err, imageproc.ErrEmpty):
		return ReadFailed
	case err != nil:
		return Unknown
	}
	return ""
}

// Generate returns the message for a failed batch.
func Generate(err error) string {
	switch {
	case errors.Is(err, promo.ErrMissingImages):
		return MissingImages
	case errors.Is(err, session.ErrBusy):
		return Busy
	case err != nil:
		return Generation
	}
	return ""
}
