package services

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/valueobjects"
)

const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024 // 10MB

// Candidate is a file the user selected but that has not been validated.
// Size is the declared size; the larger of Size and len(Data) is checked.
type Candidate struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

func (c Candidate) size() int64 {
	return max(c.Size, int64(len(c.Data)))
}

type UploadValidator struct {
	maxBytes int64
}

func NewUploadValidator(maxBytes int64) *UploadValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadValidator{maxBytes: maxBytes}
}

func (v *UploadValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks type first, then size. Every failure is a
// *entities.ValidationError.
func (v *UploadValidator) Validate(candidate Candidate) (*valueobjects.UploadedImage, error) {
	mediaType := DeclaredMediaType(candidate)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, &entities.ValidationError{
			Kind:    entities.InvalidType,
			Message: "Please select a valid image file",
		}
	}

	size := candidate.size()
	if size >= v.maxBytes {
		return nil, TooLargeError(v.maxBytes)
	}
	if size == 0 || len(candidate.Data) == 0 {
		return nil, &entities.ValidationError{
			Kind:    entities.EmptyFile,
			Message: "The selected file is empty",
		}
	}

	image, err := valueobjects.NewUploadedImage(candidate.Data, mediaType, NormalizeFileName(candidate.FileName, mediaType))
	if err != nil {
		return nil, &entities.ValidationError{Kind: entities.InvalidType, Message: err.Error()}
	}
	return image, nil
}

func TooLargeError(maxBytes int64) *entities.ValidationError {
	return &entities.ValidationError{
		Kind:    entities.TooLarge,
		Message: fmt.Sprintf("File size must be less than %s", humanize.IBytes(uint64(maxBytes))),
	}
}

type PreviewResult struct {
	Preview *valueobjects.Preview
	Err     error
}

// DecodePreview decodes the preview in the background. The channel yields
// exactly one result and is then closed.
func (v *UploadValidator) DecodePreview(ctx context.Context, image *valueobjects.UploadedImage) <-chan PreviewResult {
	out := make(chan PreviewResult, 1)
	go func() {
		defer close(out)
		preview, err := image.DecodePreview()
		if ctx.Err() != nil {
			out <- PreviewResult{Err: ctx.Err()}
			return
		}
		out <- PreviewResult{Preview: preview, Err: err}
	}()
	return out
}

// DeclaredMediaType returns the lower-cased media type without parameters.
// A missing type falls back to the extension, then to sniffing. A generic
// octet-stream type is only replaced by what the content sniffs as.
func DeclaredMediaType(c Candidate) string {
	mediaType := parseMediaType(c.ContentType)
	switch mediaType {
	case "":
	case "application/octet-stream":
		if len(c.Data) > 0 {
			if sniffed := parseMediaType(http.DetectContentType(c.Data)); strings.HasPrefix(sniffed, "image/") {
				return sniffed
			}
		}
		return mediaType
	default:
		return mediaType
	}
	if byExt := parseMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(c.FileName)))); byExt != "" {
		return byExt
	}
	if len(c.Data) > 0 {
		return parseMediaType(http.DetectContentType(c.Data))
	}
	return mediaType
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

// NormalizeFileName guarantees a base name with an extension, since the
// remote service rejects uploads without one.
func NormalizeFileName(name, mediaType string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	if name != "" && strings.Contains(name, ".") {
		return name
	}

	ext := "jpg"
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
		ext = sub
	}
	return "uploaded_image." + ext
}
