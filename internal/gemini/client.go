package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"pajangan-promoshot/internal/dataurl"
)

const DefaultModel = "gemini-2.5-flash-image"

var (
	ErrNoAPIKey = errors.New("gemini api key is empty")
	ErrNoImage  = errors.New("image generation failed, no image data returned")
)

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	models *genai.Models
	model  string
	logger *slog.Logger
}

// New builds the process-wide client. It is safe for concurrent use.
func New(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
			APIVersion: strings.TrimSpace(opts.APIVersion),
		},
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		models: gc.Models,
		model:  model,
		logger: logger,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// GenerateImage asks for image-only output and returns the first inline image
// of the first candidate as a data URL.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is empty")
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for i, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(dataurl.Payload(img.DataBase64))
		if err != nil {
			return "", fmt.Errorf("decode input image %d: %w", i+1, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, img.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if req.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	out, err := firstInlineImage(resp)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini image generated", "model", c.model, "dur_ms", time.Since(start).Milliseconds())
	return out, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoImage
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return "", ErrNoImage
	}

	for _, p := range content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		mimeType := p.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return dataurl.Encode(mimeType, p.InlineData.Data), nil
	}
	return "", ErrNoImage
}
