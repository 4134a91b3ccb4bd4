package dataurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	url := Encode("image/png", []byte("png-bytes"))
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", url)

	mimeType, data, err := Decode(url, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantMime string
		wantData string
		wantErr  error
	}{
		{"full", "data:image/jpeg;base64,QUJD", "image/jpeg", "QUJD", nil},
		{"bare payload", "QUJD", "image/png", "QUJD", nil},
		{"missing mime", "data:;base64,QUJD", "image/png", "QUJD", nil},
		{"empty", "  ", "", "", ErrEmpty},
		{"no comma", "data:image/png;base64", "", "", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mimeType, payload, err := Parse(tt.in, "image/png")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, mimeType)
			assert.Equal(t, tt.wantData, payload)
		})
	}
}

func TestCleanMime(t *testing.T) {
	assert.Equal(t, "image/png", CleanMime(" Image/PNG; charset=binary"))
	assert.Equal(t, "image/jpeg", CleanMime("image/jpeg"))
	assert.Equal(t, "", CleanMime(""))
}

func TestPayload(t *testing.T) {
	assert.Equal(t, "QUJD", Payload("data:image/png;base64,QUJD"))
	assert.Equal(t, "QUJD", Payload("QUJD"))
}
