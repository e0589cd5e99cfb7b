package model

// AnalyzeResponse is the body of POST /api/analyze-user-image.
type AnalyzeResponse struct {
	Success  *bool            `json:"success,omitempty"`
	Metadata *AnalyzeMetadata `json:"metadata"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type AnalyzeMetadata struct {
	BodyType  string `json:"body_type"`
	SkinColor string `json:"skin_color"`
	Gender    string `json:"gender,omitempty"`
}

// SwapResponse is the body of POST /api/swap-head. OutputImage is a data
// URI; PregeneratedImageURL is used when the service served a cached
// render instead.
type SwapResponse struct {
	OutputImage          string           `json:"output_image,omitempty"`
	PregeneratedImageURL string           `json:"pregenerated_image_url,omitempty"`
	Warning              string           `json:"warning,omitempty"`
	Analysis             *AnalyzeMetadata `json:"analysis,omitempty"`
	Error                string           `json:"error,omitempty"`
}

// ErrorResponse is the body of any non-200 reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
