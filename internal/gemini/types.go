package gemini

type ImageInput struct {
	DataBase64 string
	MimeType   string
}

// ImageRequest is one image-only generation call. Images are sent in order,
// before the prompt text.
type ImageRequest struct {
	Images      []ImageInput
	Prompt      string
	AspectRatio string
}
