package valueobjects

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

type ImageFormat string

const (
	JPEG ImageFormat = "jpeg"
	PNG  ImageFormat = "png"
	GIF  ImageFormat = "gif"
	WEBP ImageFormat = "webp"
)

// UploadedImage is a user photo that passed upload validation.
// The byte slice is owned by the value and never mutated.
type UploadedImage struct {
	data     []byte
	mimeType string
	fileName string
}

func NewUploadedImage(data []byte, mimeType, fileName string) (*UploadedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("not an image content type: %q", mimeType)
	}
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}

	return &UploadedImage{
		data:     data,
		mimeType: mimeType,
		fileName: fileName,
	}, nil
}

func (i *UploadedImage) Data() []byte {
	return i.data
}

func (i *UploadedImage) MimeType() string {
	return i.mimeType
}

func (i *UploadedImage) FileName() string {
	return i.fileName
}

func (i *UploadedImage) SizeBytes() int64 {
	return int64(len(i.data))
}

func (i *UploadedImage) ToBase64() string {
	return base64.StdEncoding.EncodeToString(i.data)
}

// ToDataURI renders the image the way a browser FileReader would.
func (i *UploadedImage) ToDataURI() string {
	return "data:" + i.mimeType + ";base64," + i.ToBase64()
}

// Preview is the locally decoded representation shown before any network call.
type Preview struct {
	DataURI string      `json:"data_uri"`
	Format  ImageFormat `json:"format"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
}

func (i *UploadedImage) DecodePreview() (*Preview, error) {
	cfg, format, err := DetectFormat(i.data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview: %w", err)
	}

	return &Preview{
		DataURI: i.ToDataURI(),
		Format:  format,
		Width:   cfg.Width,
		Height:  cfg.Height,
	}, nil
}

// DetectFormat reads only the image header.
func DetectFormat(data []byte) (image.Config, ImageFormat, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", err
	}

	switch format {
	case "jpeg":
		return cfg, JPEG, nil
	case "png":
		return cfg, PNG, nil
	case "gif":
		return cfg, GIF, nil
	case "webp":
		return cfg, WEBP, nil
	default:
		return image.Config{}, "", fmt.Errorf("unsupported format: %s", format)
	}
}
