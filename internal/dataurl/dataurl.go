package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const prefix = "data:"

var (
	ErrEmpty   = errors.New("empty data url")
	ErrInvalid = errors.New("invalid data url")
)

// Encode builds a base64 data URL from raw bytes.
func Encode(mimeType string, data []byte) string {
	return FromBase64(mimeType, base64.StdEncoding.EncodeToString(data))
}

// FromBase64 builds a data URL from an already encoded payload.
func FromBase64(mimeType, payload string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload)
}

// Parse splits a data URL into its MIME type and base64 payload. A bare
// payload without the data: prefix is returned with fallbackMime.
func Parse(value, fallbackMime string) (mimeType string, payload string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", ErrEmpty
	}

	if !strings.HasPrefix(value, prefix) {
		return fallbackMime, value, nil
	}

	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", ErrInvalid
	}

	meta := strings.TrimPrefix(parts[0], prefix)
	metaParts := strings.Split(meta, ";")
	mimeType = strings.TrimSpace(metaParts[0])
	if mimeType == "" {
		mimeType = fallbackMime
	}
	return mimeType, parts[1], nil
}

// Decode parses a data URL and decodes its payload.
func Decode(value, fallbackMime string) (string, []byte, error) {
	mimeType, payload, err := Parse(value, fallbackMime)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", err)
	}
	return mimeType, data, nil
}

// Payload returns the part after the first comma, or the value itself.
func Payload(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

// CleanMime strips parameters such as "; charset=binary" from a content type.
func CleanMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	return strings.ToLower(mimeType)
}
